package registry

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	rserrors "github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/logger"
	"github.com/ajitpratap0/rowstream/pkg/row"
	"github.com/ajitpratap0/rowstream/pkg/testutil"
)

type nopFormat struct{ buf []string }

func (f *nopFormat) Rows(io.Reader) (core.RowSource, error) { return nil, io.EOF }
func (f *nopFormat) Teardown()                              {}

func (f *nopFormat) WriteRow(_ io.Writer, r *row.Row) error {
	f.buf = append(f.buf, r.String())
	return nil
}

func (f *nopFormat) EncoderTeardown(io.Writer) error { return nil }

type encoderFormat struct{ *nopFormat }

func (f encoderFormat) Teardown(w io.Writer) error { return f.EncoderTeardown(w) }

func decoderFactory(mime string) Factory[core.Decoder] {
	return func() (core.Decoder, error) {
		return base.NewStreamDecoder(mime, &nopFormat{}), nil
	}
}

func encoderFactory(mime string) Factory[core.Encoder] {
	return func() (core.Encoder, error) {
		return base.NewStreamEncoder(mime, encoderFormat{&nopFormat{}}), nil
	}
}

func TestSupportedMimeTypesSorted(t *testing.T) {
	r := NewRegistry("decoder", func() []Factory[core.Decoder] {
		return []Factory[core.Decoder]{
			decoderFactory("text/csv"),
			decoderFactory("application/json"),
			decoderFactory("application/bson"),
		}
	})

	assert.Equal(t, []string{"application/bson", "application/json", "text/csv"}, r.SupportedMimeTypes())
	assert.True(t, r.IsSupported("text/csv"))
	assert.False(t, r.IsSupported("x/unknown"))
}

func TestResolveReturnsIndependentInstances(t *testing.T) {
	r := NewRegistry("encoder", func() []Factory[core.Encoder] {
		return []Factory[core.Encoder]{encoderFactory("text/csv")}
	})

	a, err := r.Resolve("text/csv")
	require.NoError(t, err)
	b, err := r.Resolve("text/csv")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	fa := a.(*base.StreamEncoder).Format().(encoderFormat)
	fb := b.(*base.StreamEncoder).Format().(encoderFormat)
	fa.buf = append(fa.buf, "x")
	assert.Empty(t, fb.buf)
}

func TestResolveUnknown(t *testing.T) {
	r := NewRegistry("decoder", func() []Factory[core.Decoder] { return nil })

	dec, err := r.Resolve("x/unknown")
	require.Error(t, err)
	assert.Nil(t, dec)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeCodecNotFound))
}

func TestFactoryFailures(t *testing.T) {
	calls := 0
	flaky := func() (core.Decoder, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("out of handles")
		}
		return base.NewStreamDecoder("text/flaky", &nopFormat{}), nil
	}
	broken := func() (core.Decoder, error) { return nil, errors.New("broken") }

	r := NewRegistry("decoder", func() []Factory[core.Decoder] {
		return []Factory[core.Decoder]{flaky, broken}
	})

	assert.Equal(t, []string{"text/flaky"}, r.SupportedMimeTypes())
	_, err := r.Resolve("text/flaky")
	require.Error(t, err)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeCodecNotFound))
}

func TestDuplicateMimeOverwrites(t *testing.T) {
	r := NewRegistry("decoder", func() []Factory[core.Decoder] {
		return []Factory[core.Decoder]{decoderFactory("text/csv"), decoderFactory("text/csv")}
	})
	assert.Equal(t, []string{"text/csv"}, r.SupportedMimeTypes())
}

func TestPopulatesOnceUnderConcurrency(t *testing.T) {
	var mu sync.Mutex
	discoveries := 0
	r := NewRegistry("decoder", func() []Factory[core.Decoder] {
		mu.Lock()
		discoveries++
		mu.Unlock()
		return []Factory[core.Decoder]{decoderFactory("text/csv"), decoderFactory("application/json")}
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, r.SupportedMimeTypes(), 2)
			assert.True(t, r.IsSupported("application/json"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, discoveries)
}

func TestLogsThroughLoggerInstalledAfterConstruction(t *testing.T) {
	r := NewRegistry("decoder", func() []Factory[core.Decoder] {
		return []Factory[core.Decoder]{
			decoderFactory("text/csv"),
			func() (core.Decoder, error) { return nil, errors.New("broken") },
		}
	})

	observed, logs := testutil.ObservedLogger()
	restore := logger.Replace(observed)
	defer restore()

	assert.True(t, r.IsSupported("text/csv"))

	failures := logs.FilterMessage("skipping codec whose factory failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "decoder_registry", failures[0].ContextMap()["component"])
	assert.Equal(t, 1, logs.FilterMessage("codec registry populated").Len())
}
