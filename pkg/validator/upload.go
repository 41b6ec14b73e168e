package validator

import (
	"errors"
	"net/http"
	"strings"
)

// DefaultMaxUploadSize bounds a single photo.
const DefaultMaxUploadSize = 10 * 1024 * 1024 // 10MB

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file too large")
	ErrMissingType     = errors.New("missing content type")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// DefaultAllowedMimeTypes contains the photo formats accepted by default.
var DefaultAllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// UploadConfig defines constraints for photo uploads.
type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes map[string]bool
}

// DefaultUploadConfig returns the default upload configuration.
func DefaultUploadConfig() *UploadConfig {
	return &UploadConfig{
		MaxFileSize:      DefaultMaxUploadSize,
		AllowedMimeTypes: DefaultAllowedMimeTypes,
	}
}

// NewUploadConfig builds an UploadConfig from configured values, falling back
// to the defaults for zero values.
func NewUploadConfig(maxSize int64, allowed []string) *UploadConfig {
	cfg := DefaultUploadConfig()
	if maxSize > 0 {
		cfg.MaxFileSize = maxSize
	}
	if len(allowed) > 0 {
		cfg.AllowedMimeTypes = make(map[string]bool, len(allowed))
		for _, t := range allowed {
			cfg.AllowedMimeTypes[normalizeMime(t)] = true
		}
	}
	return cfg
}

// ValidateFileSize checks if the file size is within the allowed limit.
func (c *UploadConfig) ValidateFileSize(size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > c.MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateMimeType checks if the MIME type is in the allowed whitelist.
func (c *UploadConfig) ValidateMimeType(mimeType string) error {
	normalized := normalizeMime(mimeType)
	if normalized == "" {
		return ErrMissingType
	}
	if !c.AllowedMimeTypes[normalized] {
		return ErrUnsupportedType
	}
	return nil
}

// DetectAndValidateMimeType sniffs the MIME type from content, ignoring the
// declared type, and validates it.
func (c *UploadConfig) DetectAndValidateMimeType(data []byte) (string, error) {
	detected := normalizeMime(http.DetectContentType(data))
	if err := c.ValidateMimeType(detected); err != nil {
		return detected, err
	}
	return detected, nil
}

// Validate checks size and sniffed type, returning the detected MIME type.
func (c *UploadConfig) Validate(data []byte) (string, error) {
	if err := c.ValidateFileSize(int64(len(data))); err != nil {
		return "", err
	}
	return c.DetectAndValidateMimeType(data)
}

// normalizeMime lowercases and strips parameters ("text/plain; charset=utf-8").
func normalizeMime(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx > 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}
