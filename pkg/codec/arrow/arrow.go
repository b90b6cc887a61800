// Package arrow implements the Arrow IPC stream codec.
//
// The encoder derives a nullable schema from the first row and emits a
// record batch every batchSize rows; the decoder walks record batches and
// yields one row per slot.
package arrow

import (
	"bufio"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// MimeType is the registry key for this codec.
const MimeType = "application/vnd.apache.arrow.stream"

const batchSize = 1024

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
}

// NewDecoder returns an Arrow IPC stream decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, &decoderFormat{})
}

// NewEncoder returns an Arrow IPC stream encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, &encoderFormat{})
}

type decoderFormat struct {
	reader *ipc.Reader
}

func (f *decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	f.Teardown()

	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err == io.EOF {
		return &source{}, nil
	}

	reader, err := ipc.NewReader(br, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, err
	}
	f.reader = reader
	return &source{reader: reader}, nil
}

func (f *decoderFormat) Teardown() {
	if f.reader != nil {
		f.reader.Release()
		f.reader = nil
	}
}

type source struct {
	reader *ipc.Reader
	record arrow.Record
	index  int
}

func (s *source) Next() (*row.Row, error) {
	if s.reader == nil {
		return nil, io.EOF
	}
	for s.record == nil || int64(s.index) >= s.record.NumRows() {
		if !s.reader.Next() {
			s.record = nil
			if err := s.reader.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return nil, io.EOF
		}
		s.record = s.reader.Record()
		s.index = 0
	}

	schema := s.record.Schema()
	r := row.New(int(s.record.NumCols()))
	for c := 0; c < int(s.record.NumCols()); c++ {
		v, err := cell(s.record.Column(c), s.index)
		if err != nil {
			return nil, fmt.Errorf("arrow: column %q: %w", schema.Field(c).Name, err)
		}
		r.Set(schema.Field(c).Name, v)
	}
	s.index++
	return r, nil
}

func cell(col arrow.Array, i int) (interface{}, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch a := col.(type) {
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	default:
		return a.ValueStr(i), nil
	}
}

type encoderFormat struct {
	schema  *arrow.Schema
	builder *array.RecordBuilder
	writer  *ipc.Writer
	pending int
}

func (f *encoderFormat) WriteRow(w io.Writer, r *row.Row) error {
	if f.writer == nil {
		f.start(w, r)
	}

	fields := f.schema.Fields()
	values := make([]interface{}, len(fields))
	for i, field := range fields {
		v, _ := r.Get(field.Name)
		values[i] = row.Normalize(v)
		if !accepts(field.Type, values[i]) {
			return fmt.Errorf("arrow: column %q: value %v (%T) does not match column type %s",
				field.Name, values[i], values[i], field.Type)
		}
	}
	for i, v := range values {
		appendValue(f.builder.Field(i), v)
	}
	f.pending++

	if f.pending >= batchSize {
		return f.flush()
	}
	return nil
}

func (f *encoderFormat) start(w io.Writer, first *row.Row) {
	fields := make([]arrow.Field, 0, first.Len())
	first.Range(func(key string, value interface{}) bool {
		fields = append(fields, arrow.Field{Name: key, Type: arrowType(row.Normalize(value)), Nullable: true})
		return true
	})
	mem := memory.NewGoAllocator()
	f.schema = arrow.NewSchema(fields, nil)
	f.builder = array.NewRecordBuilder(mem, f.schema)
	f.writer = ipc.NewWriter(w, ipc.WithSchema(f.schema), ipc.WithAllocator(mem))
}

func (f *encoderFormat) flush() error {
	if f.pending == 0 {
		return nil
	}
	rec := f.builder.NewRecord()
	defer rec.Release()
	f.pending = 0
	return f.writer.Write(rec)
}

func (f *encoderFormat) Teardown(io.Writer) error {
	defer f.Reset()
	if f.writer == nil {
		return nil
	}
	if err := f.flush(); err != nil {
		return err
	}
	return f.writer.Close()
}

func (f *encoderFormat) Reset() {
	if f.builder != nil {
		f.builder.Release()
	}
	f.schema = nil
	f.builder = nil
	f.writer = nil
	f.pending = 0
}

func arrowType(v interface{}) arrow.DataType {
	switch row.TypeOf(v) {
	case row.Integer:
		return arrow.PrimitiveTypes.Int32
	case row.Long:
		return arrow.PrimitiveTypes.Int64
	case row.Float:
		return arrow.PrimitiveTypes.Float32
	case row.Double:
		return arrow.PrimitiveTypes.Float64
	case row.Boolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// accepts reports whether v can be stored in a column of type dt. String
// columns take any value in its text form.
func accepts(dt arrow.DataType, v interface{}) bool {
	if v == nil || dt.ID() == arrow.STRING {
		return true
	}
	return arrow.TypeEqual(dt, arrowType(v))
}

func appendValue(b array.Builder, v interface{}) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch builder := b.(type) {
	case *array.StringBuilder:
		builder.Append(row.Stringify(v))
	case *array.Int32Builder:
		builder.Append(v.(int32))
	case *array.Int64Builder:
		builder.Append(v.(int64))
	case *array.Float32Builder:
		builder.Append(v.(float32))
	case *array.Float64Builder:
		builder.Append(v.(float64))
	case *array.BooleanBuilder:
		builder.Append(v.(bool))
	}
}
