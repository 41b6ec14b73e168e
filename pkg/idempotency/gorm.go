package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tokenRow is one remembered submission. An empty AssetID marks a
// submission that has not finished.
type tokenRow struct {
	Token     string     `gorm:"column:token;type:varchar(191);primaryKey"`
	AssetID   string     `gorm:"column:asset_id;type:varchar(64)"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time
}

func (tokenRow) TableName() string {
	return "submission_token"
}

// GormStore keeps tokens in the record database, so they survive restarts
// without Redis. A ttl of zero keeps completed tokens forever.
type GormStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewGormStore migrates the token table and returns a GormStore.
func NewGormStore(db *gorm.DB, ttl time.Duration) (*GormStore, error) {
	if err := db.AutoMigrate(&tokenRow{}); err != nil {
		return nil, fmt.Errorf("migrate submission tokens: %w", err)
	}
	return &GormStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *GormStore) expiry() *time.Time {
	if s.ttl <= 0 {
		return nil
	}
	t := s.now().Add(s.ttl)
	return &t
}

func (s *GormStore) Reserve(ctx context.Context, token string) (string, bool, error) {
	lease := s.now().Add(reserveTTL(s.ttl))
	row := tokenRow{Token: token, ExpiresAt: &lease}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return "", false, fmt.Errorf("reserve token: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return "", true, nil
	}

	var existing tokenRow
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Released between the insert and the read.
			return s.Reserve(ctx, token)
		}
		return "", false, fmt.Errorf("read token: %w", err)
	}
	if existing.ExpiresAt != nil && !s.now().Before(*existing.ExpiresAt) {
		if err := s.Release(ctx, token); err != nil {
			return "", false, err
		}
		return s.Reserve(ctx, token)
	}
	if existing.AssetID == "" {
		return "", false, ErrInFlight
	}
	return existing.AssetID, false, nil
}

func (s *GormStore) Complete(ctx context.Context, token, result string) error {
	err := s.db.WithContext(ctx).Model(&tokenRow{}).Where("token = ?", token).
		Updates(map[string]any{"asset_id": result, "expires_at": s.expiry()}).Error
	if err != nil {
		return fmt.Errorf("complete token: %w", err)
	}
	return nil
}

func (s *GormStore) Release(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&tokenRow{}).Error; err != nil {
		return fmt.Errorf("release token: %w", err)
	}
	return nil
}
