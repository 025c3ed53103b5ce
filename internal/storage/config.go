package storage

import (
	"context"

	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	// PublicURL overrides the scheme://host used in returned object URLs.
	PublicURL string
}

// Config selects and configures a Sink.
type Config struct {
	MinIO      MinIOConfig
	LocalDir   string
	PublicPath string
}

// NewSink returns the managed backend when MinIO endpoint and access key are
// set, otherwise the local directory fallback.
func NewSink(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.MinIO.Endpoint != "" && cfg.MinIO.AccessKey != "" {
		s, err := NewMinIOSink(ctx, &cfg.MinIO)
		if err != nil {
			return nil, err
		}
		logger.Infof("blob storage: minio endpoint=%s bucket=%s", cfg.MinIO.Endpoint, cfg.MinIO.Bucket)
		return s, nil
	}
	s, err := NewLocalSink(cfg.LocalDir, cfg.PublicPath)
	if err != nil {
		return nil, err
	}
	logger.Warnf("blob storage: MINIO_ENDPOINT not set, writing uploads to %s (ephemeral, not for production)", s.Root())
	return s, nil
}
