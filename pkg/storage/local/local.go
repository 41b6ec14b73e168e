// Package local implements the local filesystem storage adapter.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Storage implements the storage.Storage interface using local filesystem.
type Storage struct {
	basePath  string
	proxyPath string
}

// New creates a new local storage adapter.
// basePath is the root directory for stored photos (e.g., "data/photos");
// proxyPath is the API prefix that serves objects back (e.g., "/api/v1/photos/").
func New(basePath, proxyPath string) (*Storage, error) {
	if basePath == "" {
		basePath = "data/photos"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Storage{basePath: basePath, proxyPath: proxyPath}, nil
}

// PutObject writes an object to the local filesystem.
func (s *Storage) PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// GetObject opens an object for reading.
func (s *Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// DeleteObject removes an object from the local filesystem.
func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // already deleted
		}
		return fmt.Errorf("delete file: %w", err)
	}

	// Drop the day directory once it is empty; a non-empty one stays.
	_ = os.Remove(filepath.Dir(fullPath))
	return nil
}

// ObjectExists checks if an object exists in the local filesystem.
func (s *Storage) ObjectExists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return true, nil
}

// GenerateURL returns the API path that serves the object.
func (s *Storage) GenerateURL(ctx context.Context, key string) (string, error) {
	return s.proxyPath + key, nil
}

// Type returns "local" as the storage type identifier.
func (s *Storage) Type() string {
	return "local"
}

// keyToPath converts an object key to a full filesystem path, refusing keys
// that would escape the base directory.
func (s *Storage) keyToPath(key string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(key, "/"))
	if cleaned == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleaned)), nil
}
