package db

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/yi-nology/park_registry/biz/dal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Asset{}); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}
	return db
}

// CleanupTestDB closes the database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close DB: %v", err)
	}
}

// CreateTestAsset creates a bench asset with default values
func CreateTestAsset(t *testing.T, db *gorm.DB, name string) *model.Asset {
	t.Helper()
	lat, lon := 37.1, 127.0
	asset := &model.Asset{
		AssetName:   name,
		AssetType:   "bench",
		Condition:   "good",
		Description: "Test asset",
		PhotoKey:    "photos/test/" + name + ".jpg",
		Latitude:    &lat,
		Longitude:   &lon,
		RecordedAt:  time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}
	if err := NewAssetDAO().Create(context.Background(), db, asset); err != nil {
		t.Fatalf("Failed to create test asset: %v", err)
	}
	return asset
}
