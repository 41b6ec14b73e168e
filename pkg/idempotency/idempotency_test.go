package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	if _, reserved, err := s.Reserve(ctx, "tok"); err != nil || !reserved {
		t.Fatalf("first Reserve: reserved=%v err=%v", reserved, err)
	}
	if _, _, err := s.Reserve(ctx, "tok"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if err := s.Complete(ctx, "tok", "asset-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	result, reserved, err := s.Reserve(ctx, "tok")
	if err != nil || reserved || result != "asset-1" {
		t.Fatalf("expected recorded result, got %q reserved=%v err=%v", result, reserved, err)
	}
}

func TestMemoryStoreReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _, _ = s.Reserve(ctx, "tok")
	_ = s.Release(ctx, "tok")
	if _, reserved, _ := s.Reserve(ctx, "tok"); !reserved {
		t.Fatal("released token should be reservable")
	}

	_ = s.Complete(ctx, "tok", "asset-2")
	now = now.Add(2 * time.Minute)
	if _, reserved, _ := s.Reserve(ctx, "tok"); !reserved {
		t.Fatal("expired token should be reservable")
	}
}

func newGormStore(t *testing.T, ttl time.Duration) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s, err := NewGormStore(db, ttl)
	if err != nil {
		t.Fatalf("NewGormStore: %v", err)
	}
	return s
}

func TestGormStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t, 0)

	if _, reserved, err := s.Reserve(ctx, "legacy-1"); err != nil || !reserved {
		t.Fatalf("first Reserve: reserved=%v err=%v", reserved, err)
	}
	if _, _, err := s.Reserve(ctx, "legacy-1"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if err := s.Complete(ctx, "legacy-1", "asset-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	result, reserved, err := s.Reserve(ctx, "legacy-1")
	if err != nil || reserved || result != "asset-1" {
		t.Fatalf("expected recorded result, got %q reserved=%v err=%v", result, reserved, err)
	}

	if _, reserved, _ := s.Reserve(ctx, "legacy-2"); !reserved {
		t.Fatal("expected a fresh token to be reserved")
	}
	if err := s.Release(ctx, "legacy-2"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, reserved, _ := s.Reserve(ctx, "legacy-2"); !reserved {
		t.Fatal("released token should be reservable")
	}
}

func TestGormStorePendingLeaseLapses(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t, 0)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	// A submission that never completed stops blocking once its lease ends.
	_, _, _ = s.Reserve(ctx, "crashed")
	now = now.Add(pendingLease + time.Second)
	if _, reserved, err := s.Reserve(ctx, "crashed"); err != nil || !reserved {
		t.Fatalf("expected lapsed reservation to be reclaimed, reserved=%v err=%v", reserved, err)
	}

	_ = s.Complete(ctx, "crashed", "asset-3")
	now = now.Add(365 * 24 * time.Hour)
	if result, reserved, _ := s.Reserve(ctx, "crashed"); reserved || result != "asset-3" {
		t.Fatalf("completed token must be kept, got %q reserved=%v", result, reserved)
	}
}

func TestGormStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t, time.Minute)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _, _ = s.Reserve(ctx, "tok")
	_ = s.Complete(ctx, "tok", "asset-2")
	if result, reserved, _ := s.Reserve(ctx, "tok"); reserved || result != "asset-2" {
		t.Fatalf("token must be remembered within ttl, got %q reserved=%v", result, reserved)
	}
	now = now.Add(2 * time.Minute)
	if _, reserved, _ := s.Reserve(ctx, "tok"); !reserved {
		t.Fatal("expired token should be reservable")
	}
}
