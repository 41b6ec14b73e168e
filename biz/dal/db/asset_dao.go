package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yi-nology/park_registry/biz/dal/model"

	"gorm.io/gorm"
)

// updatableColumns excludes asset_id and recorded_at, which never change
// after creation.
var updatableColumns = []string{
	"asset_name", "asset_type", "condition_level", "description",
	"photo_key", "map_url", "latitude", "longitude",
	"acquired_at", "updated_at",
}

// AssetDAO handles CRUD operations for park assets.
type AssetDAO struct{}

func NewAssetDAO() *AssetDAO { return &AssetDAO{} }

// Create persists a new asset. The asset id is always assigned here.
func (dao *AssetDAO) Create(ctx context.Context, db *gorm.DB, asset *model.Asset) error {
	if asset == nil {
		return errors.New("asset must not be nil")
	}
	asset.ID = 0
	asset.AssetID = uuid.NewString()
	return db.WithContext(ctx).Create(asset).Error
}

// Update overwrites the mutable columns of the asset identified by AssetID,
// including columns being cleared.
func (dao *AssetDAO) Update(ctx context.Context, db *gorm.DB, asset *model.Asset) error {
	if asset == nil {
		return errors.New("asset must not be nil")
	}
	result := db.WithContext(ctx).
		Model(&model.Asset{}).
		Where("asset_id = ?", asset.AssetID).
		Select(updatableColumns).
		Updates(asset)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByAssetID hard-deletes an asset and reports whether a row existed.
func (dao *AssetDAO) DeleteByAssetID(ctx context.Context, db *gorm.DB, assetID string) (bool, error) {
	result := db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&model.Asset{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (dao *AssetDAO) GetByAssetID(ctx context.Context, db *gorm.DB, assetID string) (*model.Asset, error) {
	var asset model.Asset
	if err := db.WithContext(ctx).Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// List returns every asset in insertion order.
func (dao *AssetDAO) List(ctx context.Context, db *gorm.DB) ([]model.Asset, error) {
	var assets []model.Asset
	if err := db.WithContext(ctx).Order("id ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}
