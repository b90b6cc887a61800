// Package bson implements the application/bson codec: a sequence of
// length-prefixed BSON documents, one per row.
package bson

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// MimeType is the registry key for this codec.
const MimeType = "application/bson"

const (
	minDocumentSize = 5
	maxDocumentSize = 16 * 1024 * 1024
)

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
}

// NewDecoder returns a BSON document sequence decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, decoderFormat{})
}

// NewEncoder returns a BSON document sequence encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, encoderFormat{})
}

type decoderFormat struct{}

func (decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	return &source{reader: bufio.NewReader(r)}, nil
}

func (decoderFormat) Teardown() {}

type source struct {
	reader *bufio.Reader
}

func (s *source) Next() (*row.Row, error) {
	prefix, err := s.reader.Peek(4)
	if err != nil {
		if err == io.EOF && len(prefix) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	size := int32(binary.LittleEndian.Uint32(prefix))
	if size < minDocumentSize || size > maxDocumentSize {
		return nil, fmt.Errorf("bson: invalid document length %d", size)
	}

	raw, err := bson.NewFromIOReader(s.reader)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return fromDocument(doc), nil
}

func fromDocument(doc bson.D) *row.Row {
	r := row.New(len(doc))
	for _, e := range doc {
		r.Set(e.Key, fromValue(e.Value))
	}
	return r
}

func fromValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.D:
		return fromDocument(x)
	case bson.A:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = fromValue(item)
		}
		return out
	default:
		return v
	}
}

type encoderFormat struct{}

func (encoderFormat) WriteRow(w io.Writer, r *row.Row) error {
	data, err := bson.Marshal(toDocument(r))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (encoderFormat) Teardown(io.Writer) error { return nil }

func toDocument(r *row.Row) bson.D {
	doc := make(bson.D, 0, r.Len())
	r.Range(func(key string, value interface{}) bool {
		doc = append(doc, bson.E{Key: key, Value: toValue(value)})
		return true
	})
	return doc
}

func toValue(v interface{}) interface{} {
	switch x := v.(type) {
	case *row.Row:
		return toDocument(x)
	case []interface{}:
		out := make(bson.A, len(x))
		for i, item := range x {
			out[i] = toValue(item)
		}
		return out
	default:
		return row.Normalize(v)
	}
}
