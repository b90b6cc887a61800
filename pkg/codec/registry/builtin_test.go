package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ajitpratap0/rowstream/pkg/codec/all"
	"github.com/ajitpratap0/rowstream/pkg/codec/base"
	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	rserrors "github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/row"
	"github.com/ajitpratap0/rowstream/pkg/testutil"
)

var builtin = []string{
	"application/avro",
	"application/bson",
	"application/json",
	"application/vnd.apache.arrow.stream",
	"application/x-msgpack",
	"application/x-ndjson",
	"text/csv",
	"text/tab-separated-values",
}

func TestBuiltinFormatsRegistered(t *testing.T) {
	assert.Equal(t, builtin, registry.Decoders().SupportedMimeTypes())
	assert.Equal(t, builtin, registry.Encoders().SupportedMimeTypes())
}

func TestIsSupported(t *testing.T) {
	assert.True(t, registry.Decoders().IsSupported("text/csv"))
	assert.False(t, registry.Decoders().IsSupported("x/unknown"))
	assert.True(t, registry.Encoders().IsSupported("application/bson"))
	assert.False(t, registry.Encoders().IsSupported("x/unknown"))
}

func TestResolveUnknownIsCodecNotFound(t *testing.T) {
	_, err := registry.Decoders().Resolve("x/unknown")
	require.Error(t, err)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeCodecNotFound))

	_, err = registry.Encoders().Resolve("x/unknown")
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeCodecNotFound))
}

func TestResolvedCSVEncodersShareNoState(t *testing.T) {
	a, err := registry.Encoders().Resolve("text/csv")
	require.NoError(t, err)
	b, err := registry.Encoders().Resolve("text/csv")
	require.NoError(t, err)

	require.NotSame(t, a.(*base.StreamEncoder), b.(*base.StreamEncoder))
	assert.NotSame(t, a.Filters(), b.Filters())

	ha, hb := testutil.NewHandle(nil), testutil.NewHandle(nil)
	a.Open(ha)
	b.Open(hb)
	require.NoError(t, a.Write(row.FromPairs("only", "a")))
	a.Close()
	require.NoError(t, b.Write(row.FromPairs("other", "b")))
	b.Close()

	assert.Equal(t, "only\na\n", ha.String())
	assert.Equal(t, "other\nb\n", hb.String())
}

func TestResolvedDecodersAreIndependent(t *testing.T) {
	for _, mime := range builtin {
		a, err := registry.Decoders().Resolve(mime)
		require.NoError(t, err)
		b, err := registry.Decoders().Resolve(mime)
		require.NoError(t, err)

		assert.Equal(t, mime, a.MimeType())
		assert.NotSame(t, a.(*base.StreamDecoder), b.(*base.StreamDecoder), mime)
	}
}
