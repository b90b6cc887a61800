// Package registry maps MIME types to codec factories.
//
// Formats register a factory from their init function:
//
//	func init() {
//	    registry.RegisterDecoder(func() (core.Decoder, error) { return NewDecoder(), nil })
//	}
//
// The process-wide Decoders and Encoders registries snapshot the
// registration table on first use. Every Resolve returns a fresh instance.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/logger"
)

// Factory builds an independent codec instance.
type Factory[T core.Codec] func() (T, error)

// Registry is a MIME type to factory table populated exactly once.
type Registry[T core.Codec] struct {
	kind     string
	discover func() []Factory[T]

	once      sync.Once
	factories map[string]Factory[T]
}

// NewRegistry returns a registry that populates itself from discover on
// first use. kind names the codec family in logs and errors.
func NewRegistry[T core.Codec](kind string, discover func() []Factory[T]) *Registry[T] {
	return &Registry[T]{
		kind:     kind,
		discover: discover,
	}
}

func (r *Registry[T]) populate() {
	r.once.Do(func() {
		// read at first use: NewRegistry runs during package init
		log := logger.Get().With(zap.String("component", r.kind+"_registry"))
		table := make(map[string]Factory[T])
		for _, factory := range r.discover() {
			codec, err := factory()
			if err != nil {
				log.Error("skipping codec whose factory failed", zap.Error(err))
				continue
			}
			mime := codec.MimeType()
			table[mime] = factory
			log.Debug(fmt.Sprintf("%s -> %T", mime, codec))
		}
		r.factories = table
		log.Info("codec registry populated", zap.Int("codecs", len(table)))
	})
}

// SupportedMimeTypes returns the registered MIME types in sorted order.
func (r *Registry[T]) SupportedMimeTypes() []string {
	r.populate()
	mimes := make([]string, 0, len(r.factories))
	for mime := range r.factories {
		mimes = append(mimes, mime)
	}
	sort.Strings(mimes)
	return mimes
}

// IsSupported reports whether mime has a registered factory.
func (r *Registry[T]) IsSupported(mime string) bool {
	r.populate()
	_, ok := r.factories[mime]
	return ok
}

// Resolve returns a new codec for mime. Unknown MIME types and factory
// failures are ErrorTypeCodecNotFound.
func (r *Registry[T]) Resolve(mime string) (T, error) {
	r.populate()
	var zero T

	factory, ok := r.factories[mime]
	if !ok {
		return zero, errors.Newf(errors.ErrorTypeCodecNotFound, "no %s registered for %s", r.kind, mime).
			WithDetail("mime", mime)
	}

	codec, err := factory()
	if err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeCodecNotFound, fmt.Sprintf("failed to create %s for %s", r.kind, mime)).
			WithDetail("mime", mime)
	}
	return codec, nil
}
