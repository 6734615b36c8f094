// Package storage writes upload artifacts to S3-compatible object
// storage.
package storage

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/config"
	"trunk-processor/internal/intake"
	"trunk-processor/internal/logger"
)

// PutFunc writes one object. Broken out so tests can count attempts
// without a live endpoint.
type PutFunc func(ctx context.Context, bucket, key string, data []byte) error

type Uploader struct {
	bucket string
	retry  RetryPolicy
	put    PutFunc
	log    *logger.Logger
}

// New builds an uploader over a minio client configured from the
// environment.
func New(cfg *config.Config, log *logger.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, err, "S3 client configuration error")
	}

	put := func(ctx context.Context, bucket, key string, data []byte) error {
		_, err := client.PutObject(ctx, bucket, key,
			bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
		return err
	}

	return &Uploader{
		bucket: cfg.BucketName,
		retry:  DefaultRetryPolicy(),
		put:    put,
		log:    log,
	}, nil
}

// NewWithPut builds an uploader around a custom put function and retry
// policy. Used by tests.
func NewWithPut(bucket string, retry RetryPolicy, put PutFunc, log *logger.Logger) *Uploader {
	return &Uploader{bucket: bucket, retry: retry, put: put, log: log}
}

// UploadPair writes both artifacts under the derived prefix concurrently.
// Either failure fails the pair; a partially uploaded pair is not cleaned
// up.
func (u *Uploader) UploadPair(ctx context.Context, prefix string, upload *intake.Upload) error {
	var g errgroup.Group
	g.Go(func() error { return u.uploadOne(ctx, prefix, upload.JSON) })
	g.Go(func() error { return u.uploadOne(ctx, prefix, upload.Audio) })
	return g.Wait()
}

func (u *Uploader) uploadOne(ctx context.Context, prefix string, a intake.Artifact) error {
	key := prefix + "/" + a.Name

	err := u.retry.Run(ctx, func() error {
		return u.put(ctx, u.bucket, key, a.Data)
	})
	if err != nil {
		return apperror.Wrap(apperror.KindObjectStorageUpload, err, "uploading %s", key)
	}

	u.log.Module("storage").
		WithField("key", key).
		WithField("bytes", len(a.Data)).
		Debug("object stored")
	return nil
}
