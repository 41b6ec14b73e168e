package storage

import (
	"fmt"

	"github.com/yi-nology/park_registry/pkg/config"
	"github.com/yi-nology/park_registry/pkg/storage/local"
	"github.com/yi-nology/park_registry/pkg/storage/s3"
)

// New creates a storage adapter based on configuration.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return local.New(cfg.Local.BasePath, ProxyPathPrefix)

	case "s3":
		return s3.New(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
			URLMode:   cfg.S3.URLMode,
			ProxyPath: ProxyPathPrefix,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
