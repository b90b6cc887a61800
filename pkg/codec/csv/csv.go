// Package csv implements the text/csv codec and its tab separated sibling.
//
// The first record is the header. Decoded values are always strings; rows
// shorter than the header simply lack the trailing columns. The encoder
// takes its header from the first row it writes and lays out later rows in
// that order, leaving unknown columns out and missing ones empty.
package csv

import (
	stdcsv "encoding/csv"
	"io"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

const (
	// MimeType is the comma separated flavour.
	MimeType = "text/csv"
	// TSVMimeType is the tab separated flavour.
	TSVMimeType = "text/tab-separated-values"
)

func init() {
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewEncoder(), nil })
	registry.RegisterDecoder(func() (core.Decoder, error) { return NewTSVDecoder(), nil })
	registry.RegisterEncoder(func() (core.Encoder, error) { return NewTSVEncoder(), nil })
}

// NewDecoder returns a comma separated decoder.
func NewDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(MimeType, &decoderFormat{comma: ','})
}

// NewEncoder returns a comma separated encoder.
func NewEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(MimeType, &encoderFormat{comma: ','})
}

// NewTSVDecoder returns a tab separated decoder.
func NewTSVDecoder() *base.StreamDecoder {
	return base.NewStreamDecoder(TSVMimeType, &decoderFormat{comma: '\t'})
}

// NewTSVEncoder returns a tab separated encoder.
func NewTSVEncoder() *base.StreamEncoder {
	return base.NewStreamEncoder(TSVMimeType, &encoderFormat{comma: '\t'})
}

type decoderFormat struct {
	comma rune
}

func (f *decoderFormat) Rows(r io.Reader) (core.RowSource, error) {
	reader := stdcsv.NewReader(r)
	reader.Comma = f.comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &source{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &source{reader: reader, header: header}, nil
}

func (f *decoderFormat) Teardown() {}

type source struct {
	reader *stdcsv.Reader
	header []string
}

func (s *source) Next() (*row.Row, error) {
	if s.reader == nil {
		return nil, io.EOF
	}
	record, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	r := row.New(len(s.header))
	for i, value := range record {
		if i >= len(s.header) {
			break
		}
		r.Set(s.header[i], value)
	}
	return r, nil
}

type encoderFormat struct {
	comma  rune
	writer *stdcsv.Writer
	header []string
}

func (f *encoderFormat) WriteRow(w io.Writer, r *row.Row) error {
	if f.writer == nil {
		f.writer = stdcsv.NewWriter(w)
		f.writer.Comma = f.comma
		f.header = r.Keys()
		if err := f.writer.Write(f.header); err != nil {
			return err
		}
	}

	record := make([]string, len(f.header))
	for i, key := range f.header {
		v, _ := r.Get(key)
		record[i] = row.Stringify(v)
	}
	return f.writer.Write(record)
}

func (f *encoderFormat) Teardown(io.Writer) error {
	defer f.Reset()
	if f.writer == nil {
		return nil
	}
	f.writer.Flush()
	return f.writer.Error()
}

func (f *encoderFormat) Reset() {
	f.writer = nil
	f.header = nil
}
