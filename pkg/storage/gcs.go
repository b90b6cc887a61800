package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/rowstream/pkg/errors"
)

func (o *Opener) gcsClient(ctx context.Context) (*gcs.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcsReady {
		return o.gcs, nil
	}

	var opts []option.ClientOption
	if o.cfg.GCS.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.cfg.GCS.CredentialsFile))
	}
	if o.cfg.GCS.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.cfg.GCS.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}
	o.gcs, o.gcsReady = client, true
	o.logger.Debug("GCS client initialized", zap.Bool("custom_endpoint", o.cfg.GCS.Endpoint != ""))
	return client, nil
}

func openGCSReader(ctx context.Context, client *gcs.Client, loc Location) (io.ReadCloser, error) {
	r, err := client.Bucket(loc.Bucket).Object(loc.Path).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open GCS object").
			WithDetail("location", loc.String())
	}
	return r, nil
}

func openGCSWriter(ctx context.Context, client *gcs.Client, loc Location, contentType string) io.WriteCloser {
	w := client.Bucket(loc.Bucket).Object(loc.Path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	return w
}
