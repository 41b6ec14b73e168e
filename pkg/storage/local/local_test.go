package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), "/api/v1/photos/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := "photos/20261015/1760000000000-abc.jpg"
	data := []byte("jpeg bytes")
	if err := s.PutObject(ctx, key, bytes.NewReader(data), "image/jpeg", int64(len(data))); err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	rc, err := s.GetObject(ctx, key)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("stored data mismatch: %q", got)
	}

	url, err := s.GenerateURL(ctx, key)
	if err != nil {
		t.Fatalf("GenerateURL: %v", err)
	}
	if url != "/api/v1/photos/"+key {
		t.Fatalf("unexpected url %s", url)
	}

	if err := s.DeleteObject(ctx, key); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if err := s.DeleteObject(ctx, key); err != nil {
		t.Fatalf("second DeleteObject should succeed, got %v", err)
	}

	exists, err := s.ObjectExists(ctx, key)
	if err != nil {
		t.Fatalf("ObjectExists: %v", err)
	}
	if exists {
		t.Fatal("expected object to be gone")
	}

	if _, err := s.GetObject(ctx, key); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestKeyCannotEscapeBase(t *testing.T) {
	base := t.TempDir()
	s, err := New(base, "/p/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := s.keyToPath("../../etc/passwd")
	if err != nil {
		t.Fatalf("keyToPath: %v", err)
	}
	if want := base + "/etc/passwd"; p != want {
		t.Fatalf("expected %s, got %s", want, p)
	}
	if _, err := s.keyToPath("/"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
