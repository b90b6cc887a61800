// Package base provides the lifecycle bookkeeping shared by every format:
// the filter pipeline, the row bound, the raw handle and the close
// contract. A format supplies only a small hook object and gets a complete
// core.Decoder or core.Encoder by composition.
package base

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/filter"
	"github.com/ajitpratap0/rowstream/pkg/logger"
	"github.com/ajitpratap0/rowstream/pkg/metrics"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// DecoderFormat is the format-specific half of a decoder.
type DecoderFormat interface {
	// Rows builds a single-pass row source over r.
	Rows(r io.Reader) (core.RowSource, error)
	// Teardown releases format state. It runs on every Close, including
	// closes of a decoder that was never opened, so it must be idempotent.
	Teardown()
}

// StreamDecoder implements core.Decoder around a DecoderFormat.
type StreamDecoder struct {
	mime    string
	format  DecoderFormat
	filters *filter.Pipeline
	bound   core.Bound
	handle  io.ReadCloser
	logger  *zap.Logger
}

var _ core.Decoder = (*StreamDecoder)(nil)

// NewStreamDecoder returns an unopened decoder for mime.
func NewStreamDecoder(mime string, format DecoderFormat) *StreamDecoder {
	return &StreamDecoder{
		mime:    mime,
		format:  format,
		filters: filter.NewPipeline(),
		bound:   core.Unlimited(),
		logger: logger.Get().With(
			zap.String("component", "stream_decoder"),
			zap.String("mime", mime)),
	}
}

// SetLogger replaces the decoder's logger.
func (d *StreamDecoder) SetLogger(l *zap.Logger) {
	d.logger = l.With(zap.String("component", "stream_decoder"), zap.String("mime", d.mime))
}

// MimeType implements core.Codec.
func (d *StreamDecoder) MimeType() string { return d.mime }

// Format returns the format hook.
func (d *StreamDecoder) Format() DecoderFormat { return d.format }

// Open attaches r. A previously attached handle is not closed.
func (d *StreamDecoder) Open(r io.ReadCloser) {
	d.handle = r
}

// IsOpen reports whether a handle is attached.
func (d *StreamDecoder) IsOpen() bool { return d.handle != nil }

// SetMaxRows sets the iteration bound.
func (d *StreamDecoder) SetMaxRows(b core.Bound) { d.bound = b }

// MaxRows returns the iteration bound.
func (d *StreamDecoder) MaxRows() core.Bound { return d.bound }

// Filters returns the decoder pipeline.
func (d *StreamDecoder) Filters() *filter.Pipeline { return d.filters }

// Iterate builds a filtered iterator over the open handle. Without a handle,
// or when the format cannot start reading, the iterator is empty.
func (d *StreamDecoder) Iterate() *core.FilteredIterator {
	if d.handle == nil {
		d.logger.Warn("iterate called on a decoder without an open handle")
		return core.Empty()
	}

	src, err := d.format.Rows(d.handle)
	if err != nil {
		d.logger.Error("failed to start decoding", zap.Error(err))
		metrics.CodecErrors.WithLabelValues(d.mime, metrics.KindDecoder, metrics.OpOpen).Inc()
		return core.Empty()
	}

	return core.NewFilteredIterator(&countingSource{src: src, mime: d.mime}, d.filters, d.bound, d.logger)
}

// Close closes the handle, if any, then runs the format teardown. Close
// errors are logged and dropped. Safe to call repeatedly.
func (d *StreamDecoder) Close() {
	if d.handle != nil {
		if err := d.handle.Close(); err != nil {
			d.logger.Error("failed to close input handle", zap.Error(err))
			metrics.CodecErrors.WithLabelValues(d.mime, metrics.KindDecoder, metrics.OpClose).Inc()
		}
		d.handle = nil
	}
	d.format.Teardown()
}

// countingSource records decoded rows and read failures.
type countingSource struct {
	src  core.RowSource
	mime string
}

func (s *countingSource) Next() (*row.Row, error) {
	r, err := s.src.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			metrics.CodecErrors.WithLabelValues(s.mime, metrics.KindDecoder, metrics.OpRead).Inc()
		}
		return nil, err
	}
	metrics.RowsDecoded.WithLabelValues(s.mime).Inc()
	return r, nil
}

func (s *countingSource) Remove() {
	if r, ok := s.src.(core.Remover); ok {
		r.Remove()
	}
}
