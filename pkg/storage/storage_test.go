package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rserrors "github.com/ajitpratap0/rowstream/pkg/errors"
)

func TestParseLocation(t *testing.T) {
	cases := []struct {
		in     string
		scheme Scheme
		bucket string
		path   string
		name   string
	}{
		{"-", SchemeStdio, "", "", ""},
		{"data/rows.csv", SchemeFile, "", "data/rows.csv", "rows.csv"},
		{"file:///tmp/rows.json", SchemeFile, "", "/tmp/rows.json", "rows.json"},
		{"s3://bucket/exports/rows.csv.gz", SchemeS3, "bucket", "exports/rows.csv.gz", "rows.csv.gz"},
		{"gs://bucket/rows.avro", SchemeGCS, "bucket", "rows.avro", "rows.avro"},
	}
	for _, tc := range cases {
		loc, err := ParseLocation(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.scheme, loc.Scheme, tc.in)
		assert.Equal(t, tc.bucket, loc.Bucket, tc.in)
		assert.Equal(t, tc.path, loc.Path, tc.in)
		assert.Equal(t, tc.name, loc.Name(), tc.in)
		assert.Equal(t, tc.in, loc.String())
	}

	for _, bad := range []string{"", "s3://bucket", "s3:///key", "ftp://host/file"} {
		_, err := ParseLocation(bad)
		require.Error(t, err, bad)
		assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeValidation), bad)
	}
}

func TestLocalFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loc, err := ParseLocation(filepath.Join(dir, "nested", "out.csv"))
	require.NoError(t, err)

	o := NewOpener(Config{})
	w, err := o.OpenWriter(ctx, loc, "text/csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "a,b\n1,2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := o.OpenReader(ctx, loc)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestOpenMissingFile(t *testing.T) {
	loc, err := ParseLocation(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	_, err = NewOpener(Config{}).OpenReader(context.Background(), loc)
	require.Error(t, err)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStdioHandlesAreNotClosed(t *testing.T) {
	ctx := context.Background()
	loc, err := ParseLocation("-")
	require.NoError(t, err)

	var out bytes.Buffer
	o := NewOpener(Config{})
	o.stdin = strings.NewReader("hello")
	o.stdout = &out

	r, err := o.OpenReader(ctx, loc)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	w, err := o.OpenWriter(ctx, loc, "")
	require.NoError(t, err)
	_, err = io.WriteString(w, "world")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "world", out.String())
}

type fakeS3 struct {
	objects   map[string][]byte
	uploadErr error
	types     map[string]string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &manager.UploadOutput{UploadID: "up-1"}, nil
}

func newFakeOpener(f *fakeS3) *Opener {
	o := NewOpener(Config{})
	o.s3Get, o.s3Put = f, f
	return o
}

func TestS3RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	o := newFakeOpener(f)
	loc, err := ParseLocation("s3://bucket/rows.ndjson")
	require.NoError(t, err)

	w, err := o.OpenWriter(ctx, loc, "application/x-ndjson")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = io.WriteString(w, "{\"n\":1}\n")
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, strings.Repeat("{\"n\":1}\n", 3), string(f.objects["bucket/rows.ndjson"]))
	assert.Equal(t, "application/x-ndjson", f.types["bucket/rows.ndjson"])

	r, err := o.OpenReader(ctx, loc)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, data, 24)

	missing, err := ParseLocation("s3://bucket/none")
	require.NoError(t, err)
	_, err = o.OpenReader(ctx, missing)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeFile))
}

func TestS3UploadFailureSurfacesOnWriteOrClose(t *testing.T) {
	f := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, uploadErr: errors.New("access denied")}
	o := newFakeOpener(f)
	loc, err := ParseLocation("s3://bucket/rows.csv")
	require.NoError(t, err)

	w, err := o.OpenWriter(context.Background(), loc, "text/csv")
	require.NoError(t, err)
	_, werr := io.WriteString(w, "a\n1\n")
	cerr := w.Close()
	require.Error(t, cerr)
	assert.True(t, rserrors.IsType(cerr, rserrors.ErrorTypeFile))
	assert.Contains(t, cerr.Error(), "access denied")
	if werr != nil {
		assert.True(t, rserrors.IsType(werr, rserrors.ErrorTypeIO))
	}
}

func TestOpenerCloseWithoutClients(t *testing.T) {
	assert.NoError(t, NewOpener(Config{}).Close())
}
