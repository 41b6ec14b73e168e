package validator

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadValidate(t *testing.T) {
	cfg := NewUploadConfig(32, []string{"image/png"})

	tests := []struct {
		name     string
		data     []byte
		wantErr  error
		wantMime string
	}{
		{name: "png accepted", data: pngHeader, wantMime: "image/png"},
		{name: "empty", data: nil, wantErr: ErrEmptyFile},
		{name: "too large", data: bytes.Repeat([]byte{1}, 33), wantErr: ErrFileTooLarge},
		{name: "text rejected", data: []byte("hello world"), wantErr: ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := cfg.Validate(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && mime != tt.wantMime {
				t.Fatalf("expected mime %s, got %s", tt.wantMime, mime)
			}
		})
	}
}

func TestValidateMimeTypeStripsParameters(t *testing.T) {
	cfg := DefaultUploadConfig()
	if err := cfg.ValidateMimeType("Image/JPEG; q=1"); err != nil {
		t.Fatalf("expected jpeg accepted, got %v", err)
	}
	if err := cfg.ValidateMimeType(""); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
}

func TestValidateCoordinates(t *testing.T) {
	if err := ValidateCoordinates(37.1, 127.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateCoordinates(91, 0); !errors.Is(err, ErrLatitudeRange) {
		t.Fatalf("expected latitude error, got %v", err)
	}
	if err := ValidateCoordinates(0, -181); !errors.Is(err, ErrLongitudeRange) {
		t.Fatalf("expected longitude error, got %v", err)
	}
	if err := ValidateCoordinates(math.NaN(), 0); err == nil {
		t.Fatal("expected NaN rejected")
	}
}
