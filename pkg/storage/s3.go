package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/errors"
)

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

func (o *Opener) s3Clients(ctx context.Context) (objectGetter, objectUploader, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.s3Get != nil && o.s3Put != nil {
		return o.s3Get, o.s3Put, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if o.cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(o.cfg.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.cfg.S3.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.cfg.S3.Endpoint)
			so.UsePathStyle = true
		}
		if o.cfg.S3.ForcePathStyle {
			so.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if o.cfg.S3.PartSize > 0 {
			u.PartSize = o.cfg.S3.PartSize
		}
		if o.cfg.S3.Concurrency > 0 {
			u.Concurrency = o.cfg.S3.Concurrency
		}
	})

	o.s3Get, o.s3Put = client, uploader
	o.logger.Debug("S3 client initialized", zap.String("region", awsCfg.Region))
	return client, uploader, nil
}

func openS3Reader(ctx context.Context, get objectGetter, loc Location) (io.ReadCloser, error) {
	out, err := get.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Path),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to get S3 object").
			WithDetail("location", loc.String())
	}
	return out.Body, nil
}

// s3Writer streams writes into a multipart upload through a pipe. Close
// ends the body and waits for the upload to finish.
type s3Writer struct {
	pw     *io.PipeWriter
	done   chan error
	loc    Location
	logger *zap.Logger
	closed bool
	err    error
}

func newS3Writer(ctx context.Context, up objectUploader, loc Location, contentType string, log *zap.Logger) *s3Writer {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1), loc: loc, logger: log}

	input := &s3.PutObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Path),
		Body:   pr,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	go func() {
		out, err := up.Upload(ctx, input)
		if err != nil {
			// unblock a writer stuck on the pipe
			_ = pr.CloseWithError(err)
		} else {
			_ = pr.Close()
			log.Debug("S3 upload completed",
				zap.String("location", loc.String()),
				zap.String("upload_id", out.UploadID))
		}
		w.done <- err
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeIO, "failed to stream to S3").
			WithDetail("location", w.loc.String())
	}
	return n, nil
}

func (w *s3Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	_ = w.pw.Close()
	if err := <-w.done; err != nil {
		w.err = errors.Wrap(err, errors.ErrorTypeFile, "failed to upload S3 object").
			WithDetail("location", w.loc.String())
	}
	return w.err
}
