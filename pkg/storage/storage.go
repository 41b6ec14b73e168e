// Package storage defines the blob layer for asset photos.
// It provides a unified interface for local filesystem and S3-compatible
// object storage (AWS S3, Aliyun OSS, MinIO).
package storage

import (
	"context"
	"io"
	"io/fs"
)

// ErrObjectNotFound is matched by errors.Is when GetObject is asked for a
// missing key. Adapters wrap fs.ErrNotExist so both sentinels match.
var ErrObjectNotFound = fs.ErrNotExist

// Storage defines the interface for object storage operations.
type Storage interface {
	// PutObject uploads data under key.
	// key: object key in format "photos/{yyyymmdd}/{stamp}-{id}{ext}"
	PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error

	// GetObject retrieves an object. The caller closes the reader.
	// Missing keys yield an error wrapping ErrObjectNotFound.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes an object. Deleting a missing key succeeds.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists in storage.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// GenerateURL creates a retrieval URL for the object.
	// For local storage and S3 proxy mode: /api/v1/photos/{key}
	// For S3 presigned mode: a presigned URL
	GenerateURL(ctx context.Context, key string) (string, error)

	// Type returns the storage type identifier ("local" or "s3").
	Type() string
}

// ProxyPathPrefix is the API path that streams objects back through the server.
const ProxyPathPrefix = "/api/v1/photos/"
