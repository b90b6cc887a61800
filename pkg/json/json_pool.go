// Package json provides pooled JSON serialization helpers backed by goccy/go-json
package json

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/rowstream/pkg/pool"
)

// Number is re-exported so callers decoding with UseNumber need one import.
type Number = gojson.Number

// RawMessage is a raw encoded JSON value.
type RawMessage = gojson.RawMessage

// Buffers larger than 1MiB are not pooled
var bufferPool = pool.NewBufferPool(4096, 1024*1024)

// GetBuffer gets an empty pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get()
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	bufferPool.Put(buf)
}

// NewEncoder returns an encoder that does not escape HTML
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder returns a decoder that keeps numbers as Number
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// AppendValue appends the JSON encoding of v to dst. Floating point values
// always carry a fraction or exponent so they decode back as floats.
func AppendValue(dst []byte, v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(dst, "null"...), nil
	case float64:
		return appendFloat(dst, x, 64)
	case float32:
		return appendFloat(dst, float64(x), 32)
	case string:
		data, err := gojson.Marshal(x)
		if err != nil {
			return dst, err
		}
		return append(dst, data...), nil
	case int32:
		return strconv.AppendInt(dst, int64(x), 10), nil
	case int64:
		return strconv.AppendInt(dst, x, 10), nil
	case bool:
		return strconv.AppendBool(dst, x), nil
	default:
		data, err := gojson.Marshal(x)
		if err != nil {
			return dst, err
		}
		return append(dst, data...), nil
	}
}

func appendFloat(dst []byte, f float64, bits int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return dst, fmt.Errorf("json: unsupported float value %v", f)
	}
	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'g', -1, bits)
	if !bytes.ContainsAny(dst[start:], ".eE") {
		dst = append(dst, '.', '0')
	}
	return dst, nil
}

// StreamingEncoder writes a sequence of values either as one JSON array or
// as newline delimited documents.
type StreamingEncoder struct {
	writer      io.Writer
	firstRecord bool
	isArray     bool
	started     bool
}

// NewStreamingEncoder creates a new streaming encoder. Nothing is written
// until the first Encode or Close.
func NewStreamingEncoder(w io.Writer, isArray bool) *StreamingEncoder {
	return &StreamingEncoder{
		writer:      w,
		firstRecord: true,
		isArray:     isArray,
	}
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	data, err := gojson.Marshal(v)
	if err != nil {
		return err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if se.isArray {
		if !se.started {
			buf.WriteByte('[')
			se.started = true
		}
		if !se.firstRecord {
			buf.WriteByte(',')
		}
	}
	se.firstRecord = false

	buf.Write(data)
	if !se.isArray {
		buf.WriteByte('\n')
	}

	_, err = se.writer.Write(buf.Bytes())
	return err
}

// Close finalizes the encoding. An array encoder that saw no values writes [].
func (se *StreamingEncoder) Close() error {
	if !se.isArray {
		return nil
	}
	trailer := []byte{']'}
	if !se.started {
		trailer = []byte("[]")
		se.started = true
	}
	_, err := se.writer.Write(trailer)
	return err
}
