// Package avro implements the application/avro codec on top of Avro object
// container files.
//
// The encoder infers a record schema named Row from the first row it sees.
// Every field is a union of null and the type of the first value, so later
// rows may leave a column empty but may not change its type. Column names
// that are not valid Avro names are rewritten (invalid characters become
// underscores) and the original name is kept in the field's "column"
// attribute, which the decoder restores.
package avro

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	rsjson "github.com/ajitpratap0/rowstream/pkg/json"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// MimeType is the registry key for this codec.
const MimeType = "application/avro"

// blockSize is the number of rows buffered per container block.
const blockSize = 1024

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
}

// NewDecoder returns an Avro OCF decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, decoderFormat{})
}

// NewEncoder returns an Avro OCF encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, &encoderFormat{})
}

type schemaField struct {
	Name string            `json:"name"`
	Type rsjson.RawMessage `json:"type"`
	// Column is the row key when it differs from Name.
	Column string `json:"column,omitempty"`
}

func (f schemaField) column() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

type recordSchema struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Fields []schemaField `json:"fields"`
}

type decoderFormat struct{}

func (decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err == io.EOF {
		return &source{}, nil
	}

	ocf, err := goavro.NewOCFReader(br)
	if err != nil {
		return nil, err
	}

	var schema recordSchema
	if err := rsjson.Unmarshal([]byte(ocf.Codec().Schema()), &schema); err != nil {
		return nil, fmt.Errorf("avro: unreadable writer schema: %w", err)
	}
	if schema.Type != "record" {
		return nil, fmt.Errorf("avro: top-level schema is %q, expected record", schema.Type)
	}
	return &source{ocf: ocf, fields: schema.Fields}, nil
}

func (decoderFormat) Teardown() {}

type source struct {
	ocf    *goavro.OCFReader
	fields []schemaField
}

func (s *source) Next() (*row.Row, error) {
	if s.ocf == nil || !s.ocf.Scan() {
		if s.ocf != nil {
			if err := s.ocf.Err(); err != nil {
				return nil, err
			}
		}
		return nil, io.EOF
	}

	datum, err := s.ocf.Read()
	if err != nil {
		return nil, err
	}
	record, ok := datum.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("avro: expected record datum, got %T", datum)
	}

	r := row.New(len(s.fields))
	for _, f := range s.fields {
		v := record[f.Name]
		if isUnion(f.Type) {
			v = unwrapUnion(v)
		}
		r.Set(f.column(), fromNative(v))
	}
	return r, nil
}

func isUnion(t rsjson.RawMessage) bool {
	trimmed := bytes.TrimSpace(t)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// unwrapUnion strips goavro's {"type": value} union wrapper.
func unwrapUnion(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for _, inner := range m {
			return inner
		}
	}
	return v
}

// fromNative turns nested records into rows with sorted keys.
func fromNative(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := row.New(len(keys))
	for _, k := range keys {
		r.Set(k, fromNative(m[k]))
	}
	return r
}

type encoderFormat struct {
	writer  *goavro.OCFWriter
	columns []string
	names   []string
	types   []string
	pending []interface{}
}

// writerOnly hides concrete handle types such as *os.File, which goavro
// would otherwise try to read an existing header from.
type writerOnly struct {
	io.Writer
}

func (f *encoderFormat) WriteRow(w io.Writer, r *row.Row) error {
	if f.writer == nil {
		if err := f.start(w, r); err != nil {
			return err
		}
	}

	datum := make(map[string]interface{}, len(f.columns))
	for i, col := range f.columns {
		v, _ := r.Get(col)
		native, err := toNative(f.types[i], v)
		if err != nil {
			return fmt.Errorf("avro: column %q: %w", col, err)
		}
		datum[f.names[i]] = native
	}
	f.pending = append(f.pending, datum)

	if len(f.pending) >= blockSize {
		return f.flush()
	}
	return nil
}

func (f *encoderFormat) start(w io.Writer, first *row.Row) error {
	schema := recordSchema{Type: "record", Name: "Row"}
	used := make(map[string]bool, first.Len())
	first.Range(func(key string, value interface{}) bool {
		typ := avroType(value)
		name := fieldName(key, used)
		f.columns = append(f.columns, key)
		f.names = append(f.names, name)
		f.types = append(f.types, typ)
		field := schemaField{
			Name: name,
			Type: rsjson.RawMessage(fmt.Sprintf(`["null",%q]`, typ)),
		}
		if name != key {
			field.Column = key
		}
		schema.Fields = append(schema.Fields, field)
		return true
	})

	text, err := rsjson.Marshal(schema)
	if err != nil {
		return err
	}
	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:      writerOnly{w},
		Schema: string(text),
	})
	if err != nil {
		f.Reset()
		return err
	}
	f.writer = writer
	return nil
}

func (f *encoderFormat) flush() error {
	if len(f.pending) == 0 {
		return nil
	}
	err := f.writer.Append(f.pending)
	f.pending = f.pending[:0]
	return err
}

func (f *encoderFormat) Teardown(io.Writer) error {
	defer f.Reset()
	if f.writer == nil {
		return nil
	}
	return f.flush()
}

func (f *encoderFormat) Reset() {
	f.writer = nil
	f.columns = nil
	f.names = nil
	f.types = nil
	f.pending = nil
}

// fieldName maps a row key to a unique name matching [A-Za-z_][A-Za-z0-9_]*.
func fieldName(key string, used map[string]bool) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "_"
	}
	for base, n := name, 2; used[name]; n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}

func avroType(v interface{}) string {
	switch row.TypeOf(row.Normalize(v)) {
	case row.Integer:
		return "int"
	case row.Long:
		return "long"
	case row.Float:
		return "float"
	case row.Double:
		return "double"
	case row.Boolean:
		return "boolean"
	default:
		return "string"
	}
}

func toNative(typ string, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	v = row.Normalize(v)
	if typ == "string" {
		return goavro.Union(typ, row.Stringify(v)), nil
	}
	if avroType(v) != typ {
		return nil, fmt.Errorf("value %v (%T) does not match field type %s", v, v, typ)
	}
	return goavro.Union(typ, v), nil
}
