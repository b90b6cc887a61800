// Package core defines the decoder and encoder contracts shared by every
// row format, along with the bounded, filtered iterator decoders expose.
package core

import (
	"io"

	"github.com/ajitpratap0/rowstream/pkg/filter"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// RowSource yields raw rows from a format parser. Next returns io.EOF once
// the source is exhausted; any other error ends the stream early.
type RowSource interface {
	Next() (*row.Row, error)
}

// Remover is implemented by sources that can drop the row last returned.
type Remover interface {
	Remove()
}

// Codec is the identity shared by decoders and encoders.
type Codec interface {
	// MimeType returns the immutable MIME type the codec is registered under.
	MimeType() string
}

// Decoder turns a raw input handle into rows.
//
// A decoder moves from unopened to open on Open and to closed on Close.
// Close never fails: handle close errors are logged and the format teardown
// always runs. Decoders are not safe for concurrent use.
type Decoder interface {
	Codec
	// Open attaches the input handle. A second call replaces the handle
	// without closing the previous one.
	Open(r io.ReadCloser)
	// SetMaxRows bounds the rows Iterate yields. Callable in any state.
	SetMaxRows(b Bound)
	MaxRows() Bound
	// Filters returns the decoder's pipeline. It is never nil.
	Filters() *filter.Pipeline
	// Iterate returns a bounded, filtered iterator over the open handle.
	Iterate() *FilteredIterator
	Close()
}

// Encoder turns rows into bytes on a raw output handle, with the same
// lifecycle and close guarantees as Decoder.
type Encoder interface {
	Codec
	Open(w io.WriteCloser)
	// Filters returns the encoder's pipeline. It is never nil.
	Filters() *filter.Pipeline
	// Write filters r through the encoder's pipeline and serializes the result.
	Write(r *row.Row) error
	Close()
}
