package registry

import (
	"sync"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
)

// registration table filled by format init functions
var (
	tableMu          sync.Mutex
	decoderFactories []Factory[core.Decoder]
	encoderFactories []Factory[core.Encoder]
)

var (
	decoders = NewRegistry[core.Decoder]("decoder", registeredDecoders)
	encoders = NewRegistry[core.Encoder]("encoder", registeredEncoders)
)

// RegisterDecoder adds a decoder factory to the registration table.
// Registrations after the first lookup are not seen by Decoders.
func RegisterDecoder(f Factory[core.Decoder]) {
	tableMu.Lock()
	defer tableMu.Unlock()
	decoderFactories = append(decoderFactories, f)
}

// RegisterEncoder adds an encoder factory to the registration table.
// Registrations after the first lookup are not seen by Encoders.
func RegisterEncoder(f Factory[core.Encoder]) {
	tableMu.Lock()
	defer tableMu.Unlock()
	encoderFactories = append(encoderFactories, f)
}

func registeredDecoders() []Factory[core.Decoder] {
	tableMu.Lock()
	defer tableMu.Unlock()
	return append([]Factory[core.Decoder](nil), decoderFactories...)
}

func registeredEncoders() []Factory[core.Encoder] {
	tableMu.Lock()
	defer tableMu.Unlock()
	return append([]Factory[core.Encoder](nil), encoderFactories...)
}

// Decoders returns the process-wide decoder registry.
func Decoders() *Registry[core.Decoder] { return decoders }

// Encoders returns the process-wide encoder registry.
func Encoders() *Registry[core.Encoder] { return encoders }
