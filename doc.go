// Package rowstream converts row-oriented data between formats one row at
// a time, so inputs larger than memory stream straight through.
//
// # Architecture
//
// Every format is a pair of codecs keyed by MIME type:
//
//   - A decoder reads rows from an io.ReadCloser. It is configured with a
//     row bound and a filter pipeline, then iterated with a FilteredIterator.
//   - An encoder writes rows to an io.WriteCloser, passing each one through
//     its own filter pipeline first.
//
// Codecs register factories in pkg/codec/registry, which resolves a MIME
// type to a fresh instance. pkg/pipeline joins one decoder to one encoder
// in a StreamConverter that records metrics and traces for each run.
//
// Built in formats:
//
//	text/csv                               pkg/codec/csv
//	text/tab-separated-values              pkg/codec/csv
//	application/json                       pkg/codec/json
//	application/x-ndjson                   pkg/codec/ndjson
//	application/bson                       pkg/codec/bson
//	application/avro                       pkg/codec/avro
//	application/vnd.apache.arrow.stream    pkg/codec/arrow
//	application/x-msgpack                  pkg/codec/msgpack
//
// # Quick Start
//
// Convert CSV to JSON, keeping two columns:
//
//	import (
//	    _ "github.com/ajitpratap0/rowstream/pkg/codec/all"
//	    "github.com/ajitpratap0/rowstream/pkg/codec/core"
//	    "github.com/ajitpratap0/rowstream/pkg/filter/column"
//	    "github.com/ajitpratap0/rowstream/pkg/pipeline"
//	)
//
//	dec, err := pipeline.OpenDecoder("text/csv", in, core.Unlimited())
//	if err != nil {
//	    return err
//	}
//	enc, err := pipeline.OpenEncoder("application/json", out)
//	if err != nil {
//	    dec.Close()
//	    return err
//	}
//	conv, err := pipeline.NewStreamConverter(dec, enc)
//	if err != nil {
//	    return err
//	}
//	conv.Filters().Add(column.New("id", "name"))
//	stats, err := conv.Run(ctx)
//
// # Command Line
//
// cmd/rowstream wraps the same machinery with compression
// (pkg/compression), local, S3 and GCS locations (pkg/storage), YAML job
// files (pkg/config), Prometheus metrics (pkg/metrics) and OpenTelemetry
// tracing (pkg/observability):
//
//	rowstream convert --in s3://bucket/events.csv.gz --out events.arrow
//	rowstream formats
//
// # Error Handling
//
// Errors are *errors.Error values from pkg/errors carrying a type such as
// codec_not_found, io or data:
//
//	if errors.IsType(err, errors.ErrorTypeCodecNotFound) {
//	    // unknown MIME type
//	}
package rowstream
