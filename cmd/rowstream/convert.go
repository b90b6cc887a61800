package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	"github.com/ajitpratap0/rowstream/pkg/compression"
	"github.com/ajitpratap0/rowstream/pkg/config"
	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/filter/column"
	"github.com/ajitpratap0/rowstream/pkg/logger"
	"github.com/ajitpratap0/rowstream/pkg/metrics"
	"github.com/ajitpratap0/rowstream/pkg/observability"
	"github.com/ajitpratap0/rowstream/pkg/pipeline"
	"github.com/ajitpratap0/rowstream/pkg/storage"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert rows from one format to another",
		Long: `Convert streams every row of the input into the output format.

Formats are inferred from file extensions (after any compression extension)
and, for inputs, from the content itself. Settings come from an optional
job file, overridden by ROWSTREAM_* environment variables (also read from
.env), overridden by flags.

Examples:
  rowstream convert --in rows.csv --out rows.json
  rowstream convert --in s3://bucket/rows.csv.gz --out - --out-type application/x-ndjson
  rowstream convert --job job.yaml --max-rows 1000 --columns id,name`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			cfg, err := buildJobConfig(v)
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("job", "", "Path to a YAML job file")
	f.String("in", "", "Input path, \"-\" for stdin, or s3:// / gs:// URI")
	f.String("out", "", "Output path, \"-\" for stdout, or s3:// / gs:// URI")
	f.String("in-type", "", "Input MIME type (default: inferred)")
	f.String("out-type", "", "Output MIME type (default: inferred, else the input type)")
	f.Int64("max-rows", -1, "Maximum rows to read; negative means unlimited")
	f.String("columns", "", "Comma separated columns to keep, in output order")
	f.String("in-compression", "", "Input compression (default: inferred from extension)")
	f.String("compression", "", "Output compression: "+algorithmList())
	f.Int("compression-level", int(compression.Default), "Output compression level, 1 (fastest) to 9 (best)")
	f.String("metrics-file", "", "Write Prometheus metrics to this file when done")
	f.Bool("trace", false, "Export an OpenTelemetry trace of the run to stderr")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("log-format", "", "Log encoding (json, console)")
	f.String("s3-region", "", "AWS region for s3:// locations")
	f.String("s3-endpoint", "", "Custom S3 endpoint (path-style addressing)")
	f.String("gcs-credentials", "", "Service account JSON for gs:// locations")
	return cmd
}

func algorithmList() string {
	algs := compression.Algorithms()
	names := make([]string, len(algs))
	for i, alg := range algs {
		names[i] = string(alg)
	}
	return strings.Join(names, ", ")
}

// buildJobConfig layers the job file, then environment, then flags.
func buildJobConfig(v *viper.Viper) (*config.JobConfig, error) {
	cfg := config.Defaults()
	if path := v.GetString("job"); path != "" {
		loaded, err := config.LoadJob(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setString("in", &cfg.Input.Location)
	setString("out", &cfg.Output.Location)
	setString("in-type", &cfg.Input.MimeType)
	setString("out-type", &cfg.Output.MimeType)
	setString("in-compression", &cfg.Input.Compression)
	setString("compression", &cfg.Output.Compression)
	setString("metrics-file", &cfg.Metrics.TextfilePath)
	setString("log-level", &cfg.Logging.Level)
	setString("log-format", &cfg.Logging.Encoding)
	setString("s3-region", &cfg.Storage.S3.Region)
	setString("s3-endpoint", &cfg.Storage.S3.Endpoint)
	setString("gcs-credentials", &cfg.Storage.GCS.CredentialsFile)

	if v.IsSet("max-rows") {
		cfg.SetMaxRows(v.GetInt64("max-rows"))
	}
	if v.IsSet("columns") {
		cfg.Filters.Columns = column.Parse(v.GetString("columns")).Columns()
	}
	if v.IsSet("compression-level") {
		cfg.Output.CompressionLevel = v.GetInt("compression-level")
	}
	if v.IsSet("trace") {
		cfg.Tracing.Enabled = v.GetBool("trace")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// endpoint is one opened side of a conversion.
type endpoint struct {
	loc  storage.Location
	mime string
	alg  compression.Algorithm
}

func resolveEndpoint(ec config.EndpointConfig) (endpoint, error) {
	loc, err := storage.ParseLocation(ec.Location)
	if err != nil {
		return endpoint{}, err
	}
	ep := endpoint{loc: loc, mime: ec.MimeType}

	if ec.Compression != "" {
		if ep.alg, err = compression.Parse(ec.Compression); err != nil {
			return endpoint{}, err
		}
	} else {
		ep.alg, _ = compression.FromPath(loc.Name())
	}
	if ep.mime == "" {
		ep.mime = storage.MimeFromName(loc.Name())
	}
	return ep, nil
}

func runConvert(ctx context.Context, cfg *config.JobConfig, report io.Writer) error {
	if err := logger.Init(cfg.Logging); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	ctx = context.WithValue(ctx, logger.JobIDKey, cfg.Name)
	ctx = context.WithValue(ctx, logger.InputKey, cfg.Input.Location)
	ctx = context.WithValue(ctx, logger.OutputKey, cfg.Output.Location)
	jobLog := logger.WithContext(ctx)
	log := jobLog.With(zap.String("component", "rowstream-cli"))

	if err := observability.Init(cfg.Tracing); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	in, err := resolveEndpoint(cfg.Input)
	if err != nil {
		return err
	}
	out, err := resolveEndpoint(cfg.Output)
	if err != nil {
		return err
	}

	opener := storage.NewOpener(cfg.Storage)
	defer func() {
		if err := opener.Close(); err != nil {
			log.Warn("failed to close storage clients", zap.Error(err))
		}
	}()

	raw, err := opener.OpenReader(ctx, in.loc)
	if err != nil {
		return err
	}
	src, err := compression.NewReader(raw, in.alg)
	if err != nil {
		_ = raw.Close()
		return err
	}
	if in.mime == "" {
		if in.mime, src, err = storage.SniffReadCloser(src); err != nil {
			_ = src.Close()
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to detect input format")
		}
		if in.mime == "" {
			_ = src.Close()
			return errors.New(errors.ErrorTypeValidation, "input is empty or its format is unknown, set --in-type")
		}
		log.Debug("detected input format", zap.String("mime", in.mime))
	}
	if out.mime == "" {
		out.mime = in.mime
	}

	if !registry.Decoders().IsSupported(in.mime) || !registry.Encoders().IsSupported(out.mime) {
		_ = src.Close()
		return errors.Newf(errors.ErrorTypeCodecNotFound,
			"cannot convert %q to %q, see `rowstream formats`", in.mime, out.mime)
	}

	dec, err := pipeline.OpenDecoder(in.mime, src, cfg.Bound())
	if err != nil {
		_ = src.Close()
		return err
	}

	rawOut, err := opener.OpenWriter(ctx, out.loc, out.mime)
	if err != nil {
		dec.Close()
		return err
	}
	dst, err := compression.NewWriter(rawOut, out.alg, compression.Level(cfg.Output.CompressionLevel))
	if err != nil {
		dec.Close()
		_ = rawOut.Close()
		return err
	}
	enc, err := pipeline.OpenEncoder(out.mime, dst)
	if err != nil {
		dec.Close()
		_ = dst.Close()
		return err
	}

	conv, err := pipeline.NewStreamConverter(dec, enc, pipeline.WithName(cfg.Name), pipeline.WithLogger(jobLog))
	if err != nil {
		return err
	}
	if len(cfg.Filters.Columns) > 0 {
		conv.Filters().Add(column.New(cfg.Filters.Columns...))
	}

	stats, runErr := conv.Run(ctx)

	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Warn("failed to write metrics file", zap.String("path", path), zap.Error(err))
		}
	}

	fmt.Fprintf(report, "%s -> %s: %d rows read, %d rows written in %s\n",
		in.mime, out.mime, stats.RowsRead, stats.RowsWritten, stats.Duration.Round(time.Millisecond))

	if runErr != nil {
		return runErr
	}
	if stats.DecodeErr != nil {
		return errors.Wrap(stats.DecodeErr, errors.ErrorTypeData, "input ended early").
			WithDetail("rows_read", stats.RowsRead)
	}
	return nil
}
