package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
)

// MinIOSink stores blobs in an S3-compatible bucket.
type MinIOSink struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOSink creates a client and ensures the bucket exists.
func NewMinIOSink(ctx context.Context, cfg *MinIOConfig) (*MinIOSink, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, fmt.Errorf("minio config missing"))
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, fmt.Errorf("minio new: %w", err))
	}
	s := &MinIOSink{client: mc, bucket: cfg.Bucket, publicURL: cfg.PublicURL}
	if s.publicURL == "" {
		s.publicURL = mc.EndpointURL().String()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, fmt.Errorf("minio bucket ensure: %w", err))
		}
	}
	return s, nil
}

func (s *MinIOSink) Backend() string { return "minio" }

func (s *MinIOSink) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	n := info.Size
	if n == 0 {
		n = size
	}
	return Object{Key: key, URL: joinURL(s.publicURL, s.bucket, key), Size: n}, nil
}

// Open returns a reader for the object after confirming it exists.
func (s *MinIOSink) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinIOError(err)
	}
	return obj, nil
}

func (s *MinIOSink) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *MinIOSink) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func mapMinIOError(err error) error {
	if isNoSuchKey(err) {
		return ErrObjectNotFound
	}
	return appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
}
