// Package storage opens the raw handles codecs read from and write to:
// local files, standard input and output, Amazon S3 objects and Google
// Cloud Storage objects.
//
// Locations are plain paths, "-" for stdin/stdout, or s3:// and gs:// URIs:
//
//	loc, err := storage.ParseLocation("s3://bucket/exports/rows.csv.gz")
//	opener := storage.NewOpener(storage.Config{})
//	defer opener.Close()
//	rc, err := opener.OpenReader(ctx, loc)
package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/logger"
)

// Scheme identifies where a location lives.
type Scheme string

const (
	// SchemeFile is a local filesystem path
	SchemeFile Scheme = "file"
	// SchemeStdio is standard input or output, written "-"
	SchemeStdio Scheme = "stdio"
	// SchemeS3 is an Amazon S3 (or compatible) object
	SchemeS3 Scheme = "s3"
	// SchemeGCS is a Google Cloud Storage object
	SchemeGCS Scheme = "gs"
)

// Location is a parsed input or output address.
type Location struct {
	Scheme Scheme
	// Bucket is set for object store locations.
	Bucket string
	// Path is the object key, or the filesystem path for local files.
	Path string
	raw  string
}

// ParseLocation parses a path, "-", file://, s3:// or gs:// address.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return Location{}, errors.New(errors.ErrorTypeValidation, "location is empty")
	case raw == "-":
		return Location{Scheme: SchemeStdio, raw: raw}, nil
	case !strings.Contains(raw, "://"):
		return Location{Scheme: SchemeFile, Path: raw, raw: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeValidation, "invalid location").
			WithDetail("location", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return Location{Scheme: SchemeFile, Path: u.Path, raw: raw}, nil
	case "s3", "gs":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.Newf(errors.ErrorTypeValidation,
				"object location needs a bucket and a key: %s", raw)
		}
		return Location{Scheme: Scheme(strings.ToLower(u.Scheme)), Bucket: u.Host, Path: key, raw: raw}, nil
	default:
		return Location{}, errors.Newf(errors.ErrorTypeValidation, "unsupported location scheme %q", u.Scheme).
			WithDetail("location", raw)
	}
}

// String returns the location as it was written.
func (l Location) String() string { return l.raw }

// Name returns the final path element, used for extension based detection.
func (l Location) Name() string {
	if l.Scheme == SchemeStdio {
		return ""
	}
	return filepath.Base(l.Path)
}

// Config holds object store settings.
type Config struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// S3Config configures the S3 client and multipart uploader.
type S3Config struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	PartSize       int64  `yaml:"part_size"`
	Concurrency    int    `yaml:"concurrency"`
}

// GCSConfig configures the Cloud Storage client.
type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
}

// Opener opens handles for locations. Object store clients are created on
// first use and shared by later opens. Safe for concurrent use.
type Opener struct {
	cfg    Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer

	mu       sync.Mutex
	s3Get    objectGetter
	s3Put    objectUploader
	gcs      *gcs.Client
	gcsReady bool
}

// NewOpener returns an opener using cfg.
func NewOpener(cfg Config) *Opener {
	return &Opener{
		cfg:    cfg,
		logger: logger.Get().With(zap.String("component", "storage")),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// OpenReader opens loc for reading.
func (o *Opener) OpenReader(ctx context.Context, loc Location) (io.ReadCloser, error) {
	switch loc.Scheme {
	case SchemeStdio:
		return io.NopCloser(o.stdin), nil
	case SchemeFile:
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input file").
				WithDetail("path", loc.Path)
		}
		return f, nil
	case SchemeS3:
		get, _, err := o.s3Clients(ctx)
		if err != nil {
			return nil, err
		}
		return openS3Reader(ctx, get, loc)
	case SchemeGCS:
		client, err := o.gcsClient(ctx)
		if err != nil {
			return nil, err
		}
		return openGCSReader(ctx, client, loc)
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported location scheme %q", loc.Scheme)
	}
}

// OpenWriter opens loc for writing. contentType is recorded on object
// store uploads.
func (o *Opener) OpenWriter(ctx context.Context, loc Location, contentType string) (io.WriteCloser, error) {
	switch loc.Scheme {
	case SchemeStdio:
		return nopWriteCloser{o.stdout}, nil
	case SchemeFile:
		if dir := filepath.Dir(loc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
					WithDetail("path", dir)
			}
		}
		f, err := os.Create(loc.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
				WithDetail("path", loc.Path)
		}
		return f, nil
	case SchemeS3:
		_, put, err := o.s3Clients(ctx)
		if err != nil {
			return nil, err
		}
		return newS3Writer(ctx, put, loc, contentType, o.logger), nil
	case SchemeGCS:
		client, err := o.gcsClient(ctx)
		if err != nil {
			return nil, err
		}
		return openGCSWriter(ctx, client, loc, contentType), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported location scheme %q", loc.Scheme)
	}
}

// Close releases object store clients.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs != nil {
		err := o.gcs.Close()
		o.gcs = nil
		o.gcsReady = false
		return err
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
