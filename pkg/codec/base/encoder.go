package base

import (
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/filter"
	"github.com/ajitpratap0/rowstream/pkg/logger"
	"github.com/ajitpratap0/rowstream/pkg/metrics"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// EncoderFormat is the format-specific half of an encoder.
type EncoderFormat interface {
	// WriteRow serializes one already-filtered row to w.
	WriteRow(w io.Writer, r *row.Row) error
	// Teardown flushes any trailer to w and resets format state. It runs
	// on every Close before the handle is closed; w is nil when no handle
	// is attached.
	Teardown(w io.Writer) error
}

// Resetter is implemented by formats that keep per-handle state and need
// to start over when a new handle is attached.
type Resetter interface {
	Reset()
}

// StreamEncoder implements core.Encoder around an EncoderFormat.
type StreamEncoder struct {
	mime    string
	format  EncoderFormat
	filters *filter.Pipeline
	handle  io.WriteCloser
	logger  *zap.Logger
}

var _ core.Encoder = (*StreamEncoder)(nil)

// NewStreamEncoder returns an unopened encoder for mime.
func NewStreamEncoder(mime string, format EncoderFormat) *StreamEncoder {
	return &StreamEncoder{
		mime:    mime,
		format:  format,
		filters: filter.NewPipeline(),
		logger: logger.Get().With(
			zap.String("component", "stream_encoder"),
			zap.String("mime", mime)),
	}
}

// SetLogger replaces the encoder's logger.
func (e *StreamEncoder) SetLogger(l *zap.Logger) {
	e.logger = l.With(zap.String("component", "stream_encoder"), zap.String("mime", e.mime))
}

// MimeType implements core.Codec.
func (e *StreamEncoder) MimeType() string { return e.mime }

// Format returns the format hook.
func (e *StreamEncoder) Format() EncoderFormat { return e.format }

// Open attaches w. A previously attached handle is not closed.
func (e *StreamEncoder) Open(w io.WriteCloser) {
	e.handle = w
	if r, ok := e.format.(Resetter); ok {
		r.Reset()
	}
}

// IsOpen reports whether a handle is attached.
func (e *StreamEncoder) IsOpen() bool { return e.handle != nil }

// Filters returns the encoder pipeline.
func (e *StreamEncoder) Filters() *filter.Pipeline { return e.filters }

// Write runs r through the encoder pipeline and serializes the result.
func (e *StreamEncoder) Write(r *row.Row) error {
	if e.handle == nil {
		return errors.New(errors.ErrorTypeIO, "encoder is not open").
			WithDetail("mime", e.mime)
	}

	filtered := e.filters.Apply(r)
	if err := e.format.WriteRow(e.handle, filtered); err != nil {
		metrics.CodecErrors.WithLabelValues(e.mime, metrics.KindEncoder, metrics.OpWrite).Inc()
		var structured *errors.Error
		if errors.As(err, &structured) {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write row").
			WithDetail("mime", e.mime)
	}

	metrics.RowsEncoded.WithLabelValues(e.mime).Inc()
	return nil
}

// Close flushes the format trailer into the handle, then closes it. Both
// errors are logged and dropped. Safe to call repeatedly.
func (e *StreamEncoder) Close() {
	var w io.Writer
	if e.handle != nil {
		w = e.handle
	}
	if err := e.format.Teardown(w); err != nil {
		e.logger.Error("failed to finalize output", zap.Error(err))
		metrics.CodecErrors.WithLabelValues(e.mime, metrics.KindEncoder, metrics.OpClose).Inc()
	}

	if e.handle != nil {
		if err := e.handle.Close(); err != nil {
			e.logger.Error("failed to close output handle", zap.Error(err))
			metrics.CodecErrors.WithLabelValues(e.mime, metrics.KindEncoder, metrics.OpClose).Inc()
		}
		e.handle = nil
	}
}
