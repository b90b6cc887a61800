package pipeline

import (
	"io"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
)

// OpenDecoder resolves a decoder for mime, bounds it and attaches r.
// Unknown MIME types fail with errors.ErrorTypeCodecNotFound and leave r
// untouched.
func OpenDecoder(mime string, r io.ReadCloser, bound core.Bound) (core.Decoder, error) {
	dec, err := registry.Decoders().Resolve(mime)
	if err != nil {
		return nil, err
	}
	dec.SetMaxRows(bound)
	dec.Open(r)
	return dec, nil
}

// OpenEncoder resolves an encoder for mime and attaches w.
func OpenEncoder(mime string, w io.WriteCloser) (core.Encoder, error) {
	enc, err := registry.Encoders().Resolve(mime)
	if err != nil {
		return nil, err
	}
	enc.Open(w)
	return enc, nil
}
