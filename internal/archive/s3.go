package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// S3Store keeps archives in an S3-compatible bucket. Handles are object keys.
type S3Store struct {
	client *minio.Client
	bucket string
}

// S3Options configures a new S3Store.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewS3Store connects to the S3 endpoint and ensures the bucket exists.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &S3Store{client: client, bucket: opts.Bucket}, nil
}

// Resolve opens the object behind the handle for reading.
func (s *S3Store) Resolve(ctx context.Context, handle string) (io.ReadCloser, error) {
	if handle == "" {
		return nil, errors.New("archive handle is required")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	// GetObject is lazy; stat now so a missing key surfaces here instead of
	// on the first read.
	if _, statErr := obj.Stat(); statErr != nil {
		_ = obj.Close()
		var errResp minio.ErrorResponse
		if errors.As(statErr, &errResp) && errResp.Code == "NoSuchKey" {
			return nil, model.ErrArchiveNotFound
		}
		return nil, fmt.Errorf("stat object: %w", statErr)
	}
	return obj, nil
}

// Put stores an archive under the handle.
func (s *S3Store) Put(ctx context.Context, handle string, r io.Reader, size int64) error {
	if handle == "" {
		return errors.New("archive handle is required")
	}

	_, err := s.client.PutObject(ctx, s.bucket, handle, r, size, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
