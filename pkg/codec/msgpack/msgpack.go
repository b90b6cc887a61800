// Package msgpack implements the application/x-msgpack codec: a sequence of
// MessagePack maps, one per row, with keys in column order.
package msgpack

import (
	"bufio"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// MimeType is the registry key for this codec.
const MimeType = "application/x-msgpack"

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
}

// NewDecoder returns a MessagePack map sequence decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, decoderFormat{})
}

// NewEncoder returns a MessagePack map sequence encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, &encoderFormat{})
}

type decoderFormat struct{}

func (decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	return &source{dec: msgpack.NewDecoder(bufio.NewReader(r))}, nil
}

func (decoderFormat) Teardown() {}

type source struct {
	dec *msgpack.Decoder
}

func (s *source) Next() (*row.Row, error) {
	c, err := s.dec.PeekCode()
	if err != nil {
		return nil, err
	}
	if !isMap(c) {
		return nil, fmt.Errorf("msgpack: expected a map, got code 0x%x", c)
	}
	return decodeRow(s.dec)
}

func isMap(c byte) bool {
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}

func decodeRow(dec *msgpack.Decoder) (*row.Row, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	r := row.New(n)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		r.Set(key, value)
	}
	return r, nil
}

func decodeValue(dec *msgpack.Decoder) (interface{}, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}
	if isMap(c) {
		return decodeRow(dec)
	}
	return dec.DecodeInterface()
}

type encoderFormat struct {
	enc    *msgpack.Encoder
	target io.Writer
}

func (f *encoderFormat) WriteRow(w io.Writer, r *row.Row) error {
	if f.enc == nil || f.target != w {
		f.enc = msgpack.NewEncoder(w)
		f.enc.UseCompactInts(false)
		f.target = w
	}
	return encodeRow(f.enc, r)
}

func encodeRow(enc *msgpack.Encoder, r *row.Row) error {
	if err := enc.EncodeMapLen(r.Len()); err != nil {
		return err
	}
	var err error
	r.Range(func(key string, value interface{}) bool {
		if err = enc.EncodeString(key); err != nil {
			return false
		}
		if nested, ok := value.(*row.Row); ok {
			err = encodeRow(enc, nested)
		} else {
			err = enc.Encode(row.Normalize(value))
		}
		return err == nil
	})
	return err
}

func (f *encoderFormat) Teardown(io.Writer) error {
	f.Reset()
	return nil
}

func (f *encoderFormat) Reset() {
	f.enc = nil
	f.target = nil
}
