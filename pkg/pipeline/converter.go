package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/filter"
	"github.com/ajitpratap0/rowstream/pkg/logger"
	"github.com/ajitpratap0/rowstream/pkg/metrics"
	"github.com/ajitpratap0/rowstream/pkg/observability"
)

// Conversion outcomes used as the "status" metric label.
const (
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusCancelled = "cancelled"
)

// Stats summarizes one converter run.
type Stats struct {
	RowsRead    int64
	RowsWritten int64
	Duration    time.Duration
	// DecodeErr is the read failure that ended the run early, if any.
	DecodeErr error
}

// Option configures a StreamConverter.
type Option func(*StreamConverter)

// WithLogger sets the converter's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *StreamConverter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer runs are recorded on. The global tracer is
// used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(c *StreamConverter) {
		c.tracer = t
	}
}

// WithName labels the converter in logs and spans.
func WithName(name string) Option {
	return func(c *StreamConverter) {
		c.name = name
	}
}

// StreamConverter drains one decoder into one encoder.
type StreamConverter struct {
	dec     core.Decoder
	enc     core.Encoder
	filters *filter.Pipeline
	name    string
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewStreamConverter pairs dec and enc. Either being nil is a configuration
// error reported immediately.
func NewStreamConverter(dec core.Decoder, enc core.Encoder, opts ...Option) (*StreamConverter, error) {
	if dec == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "stream converter requires a decoder")
	}
	if enc == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "stream converter requires an encoder")
	}

	c := &StreamConverter{
		dec:     dec,
		enc:     enc,
		filters: filter.NewPipeline(),
		name:    dec.MimeType() + " -> " + enc.MimeType(),
		logger:  logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(
		zap.String("component", "stream_converter"),
		zap.String("converter", c.name),
		zap.String("decoder", dec.MimeType()),
		zap.String("encoder", enc.MimeType()))
	return c, nil
}

// Decoder returns the converter's decoder.
func (c *StreamConverter) Decoder() core.Decoder { return c.dec }

// Encoder returns the converter's encoder.
func (c *StreamConverter) Encoder() core.Encoder { return c.enc }

// Name returns the converter label.
func (c *StreamConverter) Name() string { return c.name }

// Filters returns the converter-level pipeline, applied after the decoder's
// filters and before the encoder's.
func (c *StreamConverter) Filters() *filter.Pipeline { return c.filters }

// Run converts every row and closes both sides. It returns a write failure
// or a context error; read failures end the run early and are reported in
// Stats.DecodeErr.
func (c *StreamConverter) Run(ctx context.Context) (Stats, error) {
	decMime, encMime := c.dec.MimeType(), c.enc.MimeType()
	timer := metrics.NewTimer(c.name)
	tracker := metrics.NewThroughputTracker(decMime, encMime)

	ctx, span := observability.StartSpan(ctx, c.tracer, "rowstream.convert")
	span.SetAttribute("converter.name", c.name)
	span.SetAttribute("decoder.mime", decMime)
	span.SetAttribute("encoder.mime", encMime)
	defer span.End()

	c.logger.Info("conversion started", zap.String("max_rows", c.dec.MaxRows().String()))

	var stats Stats
	err := c.drain(ctx, &stats)

	c.dec.Close()
	c.enc.Close()

	stats.Duration = timer.Stop()
	tracker.Increment(stats.RowsWritten)
	throughput := tracker.GetAndReset()

	status := StatusSuccess
	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		status = StatusCancelled
	case err != nil || stats.DecodeErr != nil:
		status = StatusFailure
	}
	metrics.Conversions.WithLabelValues(decMime, encMime, status).Inc()
	metrics.ConversionDuration.WithLabelValues(decMime, encMime).Observe(stats.Duration.Seconds())

	span.SetAttribute("rows.read", stats.RowsRead)
	span.SetAttribute("rows.written", stats.RowsWritten)
	span.SetAttribute("status", status)
	if stats.DecodeErr != nil {
		span.AddEvent("input ended early",
			attribute.Int64("rows.read", stats.RowsRead),
			attribute.String("error", stats.DecodeErr.Error()))
	}
	if err != nil {
		span.RecordError(err)
	} else {
		span.RecordError(stats.DecodeErr)
	}

	fields := []zap.Field{
		zap.Int64("rows_read", stats.RowsRead),
		zap.Int64("rows_written", stats.RowsWritten),
		zap.Duration("duration", stats.Duration),
		zap.Float64("rows_per_second", throughput),
		zap.String("status", status),
	}
	switch {
	case err != nil:
		c.logger.Error("conversion stopped", append(fields, zap.Error(err))...)
	case stats.DecodeErr != nil:
		c.logger.Warn("conversion ended early on read failure", append(fields, zap.Error(stats.DecodeErr))...)
	default:
		c.logger.Info("conversion completed", fields...)
	}
	return stats, err
}

func (c *StreamConverter) drain(ctx context.Context, stats *Stats) error {
	it := c.dec.Iterate()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !it.Next() {
			break
		}
		stats.RowsRead++

		r := c.filters.Apply(it.Row())
		if err := c.enc.Write(r); err != nil {
			var structured *errors.Error
			if errors.As(err, &structured) {
				return err
			}
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write row").
				WithDetail("row", stats.RowsRead)
		}
		stats.RowsWritten++
	}
	stats.DecodeErr = it.Err()
	return nil
}
