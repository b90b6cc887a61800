// Package json implements the application/json codec: a top-level array of
// objects, streamed one element at a time in both directions.
package json

import (
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	rsjson "github.com/ajitpratap0/rowstream/pkg/json"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// MimeType is the registry key for this codec.
const MimeType = "application/json"

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
}

// NewDecoder returns a JSON array decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, decoderFormat{})
}

// NewEncoder returns a JSON array encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, &encoderFormat{})
}

type decoderFormat struct{}

func (decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	dec := rsjson.NewDecoder(r)
	tok, err := dec.Token()
	if err == io.EOF {
		return &source{}, nil
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(gojson.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("json: expected a top-level array, got %v", tok)
	}
	return &source{dec: dec}, nil
}

func (decoderFormat) Teardown() {}

type source struct {
	dec *gojson.Decoder
}

func (s *source) Next() (*row.Row, error) {
	if s.dec == nil {
		return nil, io.EOF
	}
	if !s.dec.More() {
		if _, err := s.dec.Token(); err != nil && err != io.EOF {
			return nil, err
		}
		s.dec = nil
		return nil, io.EOF
	}
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
		f.enc = rsjson.NewStreamingEncoder(w, true)
	}
	return f.enc.Encode(r)
}

func (f *encoderFormat) Teardown(w io.Writer) error {
	defer f.Reset()
	if f.enc == nil {
		if w == nil {
			return nil
		}
		f.enc = rsjson.NewStreamingEncoder(w, true)
	}
	return f.enc.Close()
}

func (f *encoderFormat) Reset() {
	f.enc = nil
}
