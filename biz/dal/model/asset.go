package model

import (
	"time"
)

// Asset is the stored row for a registered park facility. Column names are
// the store's own; the gateway maps them to the canonical asset shape.
type Asset struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
	AssetID     string     `gorm:"column:asset_id;type:varchar(64);uniqueIndex:idx_asset_id" json:"asset_id"`
	AssetName   string     `gorm:"column:asset_name;type:varchar(255);not null" json:"asset_name"`
	AssetType   string     `gorm:"column:asset_type;type:varchar(64);index:idx_asset_type" json:"asset_type"`
	Condition   string     `gorm:"column:condition_level;type:varchar(16)" json:"condition"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	PhotoKey    string     `gorm:"column:photo_key;type:varchar(512)" json:"photo_key"`
	MapURL      string     `gorm:"column:map_url;type:text" json:"map_url,omitempty"`
	Latitude    *float64   `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude   *float64   `gorm:"column:longitude" json:"longitude,omitempty"`
	RecordedAt  time.Time  `gorm:"column:recorded_at;index:idx_asset_recorded" json:"recorded_at"`
	AcquiredAt  *time.Time `gorm:"column:acquired_at" json:"acquired_at,omitempty"`
	RecordedBy  int        `gorm:"column:recorded_by" json:"recorded_by,omitempty"`
}

// TableName overrides gorm to use the park_asset table.
func (Asset) TableName() string {
	return "park_asset"
}
