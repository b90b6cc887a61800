// Package ndjson implements the application/x-ndjson codec, one JSON
// object per line.
package ndjson

import (
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	rsjson "github.com/ajitpratap0/rowstream/pkg/json"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// MimeType is the registry key for this codec.
const MimeType = "application/x-ndjson"

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
}

// NewDecoder returns a newline delimited JSON decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, decoderFormat{})
}

// NewEncoder returns a newline delimited JSON encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, &encoderFormat{})
}

type decoderFormat struct{}

func (decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	return &source{dec: rsjson.NewDecoder(r)}, nil
}

func (decoderFormat) Teardown() {}

type source struct {
	dec *gojson.Decoder
}

func (s *source) Next() (*row.Row, error) {
	r := row.New(8)
	if err := s.dec.Decode(r); err != nil {
		return nil, err
	}
	return r, nil
}

type encoderFormat struct {
	enc *rsjson.StreamingEncoder
}

func (f *encoderFormat) WriteRow(w io.Writer, r *row.Row) error {
	if f.enc == nil {
		f.enc = rsjson.NewStreamingEncoder(w, false)
	}
	return f.enc.Encode(r)
}

func (f *encoderFormat) Teardown(io.Writer) error {
	defer f.Reset()
	if f.enc == nil {
		return nil
	}
	return f.enc.Close()
}

func (f *encoderFormat) Reset() {
	f.enc = nil
}
