package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yi-nology/park_registry/biz/dal/model"
	"gorm.io/gorm"
)

func TestAssetDAO_Create(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	t.Run("AssignsID", func(t *testing.T) {
		asset := &model.Asset{AssetID: "caller-chosen", AssetName: "Bench A", RecordedAt: time.Now()}
		if err := dao.Create(ctx, db, asset); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if asset.AssetID == "" || asset.AssetID == "caller-chosen" {
			t.Errorf("Expected store-assigned asset id, got %q", asset.AssetID)
		}
		found, err := dao.GetByAssetID(ctx, db, asset.AssetID)
		if err != nil {
			t.Fatalf("GetByAssetID failed: %v", err)
		}
		if found.AssetName != "Bench A" {
			t.Errorf("Expected name 'Bench A', got '%s'", found.AssetName)
		}
	})

	t.Run("NilEntity", func(t *testing.T) {
		if err := dao.Create(ctx, db, nil); err == nil {
			t.Error("Expected error for nil entity")
		}
	})

	t.Run("DistinctIDs", func(t *testing.T) {
		a := CreateTestAsset(t, db, "one")
		b := CreateTestAsset(t, db, "two")
		if a.AssetID == b.AssetID {
			t.Error("Expected distinct asset ids")
		}
	})
}

func TestAssetDAO_Update(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	original := CreateTestAsset(t, db, "lamp-1")

	t.Run("Success", func(t *testing.T) {
		changed := *original
		changed.Condition = "poor"
		changed.MapURL = ""
		changed.RecordedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

		if err := dao.Update(ctx, db, &changed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		found, err := dao.GetByAssetID(ctx, db, original.AssetID)
		if err != nil {
			t.Fatalf("GetByAssetID failed: %v", err)
		}
		if found.Condition != "poor" {
			t.Errorf("Expected condition poor, got %s", found.Condition)
		}
		if !found.RecordedAt.Equal(original.RecordedAt) {
			t.Errorf("recorded_at must not change, got %v", found.RecordedAt)
		}
		if found.PhotoKey != original.PhotoKey {
			t.Errorf("Expected photo key preserved, got %s", found.PhotoKey)
		}
	})

	t.Run("ClearsCoordinates", func(t *testing.T) {
		changed := *original
		changed.Latitude, changed.Longitude = nil, nil
		if err := dao.Update(ctx, db, &changed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		found, _ := dao.GetByAssetID(ctx, db, original.AssetID)
		if found.Latitude != nil || found.Longitude != nil {
			t.Error("Expected coordinates cleared")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		missing := &model.Asset{AssetID: "missing", AssetName: "x"}
		if err := dao.Update(ctx, db, missing); !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound, got %v", err)
		}
	})
}

func TestAssetDAO_DeleteAndList(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)
	dao := NewAssetDAO()
	ctx := context.Background()

	first := CreateTestAsset(t, db, "first")
	second := CreateTestAsset(t, db, "second")

	list, err := dao.List(ctx, db)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].AssetID != first.AssetID || list[1].AssetID != second.AssetID {
		t.Fatalf("Unexpected list %+v", list)
	}

	existed, err := dao.DeleteByAssetID(ctx, db, first.AssetID)
	if err != nil || !existed {
		t.Fatalf("Delete failed: existed=%v err=%v", existed, err)
	}
	existed, err = dao.DeleteByAssetID(ctx, db, first.AssetID)
	if err != nil || existed {
		t.Fatalf("Second delete should be a no-op: existed=%v err=%v", existed, err)
	}
	if _, err := dao.GetByAssetID(ctx, db, first.AssetID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound after delete, got %v", err)
	}
}
