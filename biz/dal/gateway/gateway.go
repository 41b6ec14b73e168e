// Package gateway is the single entry point to the record store and the
// photo blob store. It owns the mapping between stored rows and the
// canonical asset shape and pushes full snapshots to subscribers.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"github.com/yi-nology/park_registry/biz/dal/db"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/pkg/storage"

	"gorm.io/gorm"
)

// Notifier relays change notifications between processes sharing a store.
type Notifier interface {
	Notify(ctx context.Context) error
	Listen(ctx context.Context, onRemoteChange func()) error
}

// Gateway implements record and blob operations over gorm and storage.Storage.
type Gateway struct {
	db       *gorm.DB
	dao      *db.AssetDAO
	storage  storage.Storage
	notifier Notifier
	now      func() time.Time
	retryMin time.Duration
	retryMax time.Duration

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithNotifier shares change notifications with other processes.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) { g.notifier = n }
}

// WithClock overrides the time source used for blob keys.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithRetryBackoff bounds the delay before a subscription retries a failed
// reload. The delay doubles from min up to max.
func WithRetryBackoff(min, max time.Duration) Option {
	return func(g *Gateway) { g.retryMin, g.retryMax = min, max }
}

// New constructs a Gateway from explicit store handles.
func New(dbConn *gorm.DB, store storage.Storage, opts ...Option) *Gateway {
	g := &Gateway{
		db:       dbConn,
		dao:      db.NewAssetDAO(),
		storage:  store,
		now:      time.Now,
		retryMin: time.Second,
		retryMax: 30 * time.Second,
		subs:     make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start listens for remote change notifications until ctx is cancelled.
// Without a notifier it is a no-op.
func (g *Gateway) Start(ctx context.Context) error {
	if g.notifier == nil {
		return nil
	}
	return g.notifier.Listen(ctx, g.broadcast)
}

// --------------------- Blob operations ---------------------

// UploadBlob stores data under a fresh, timestamp-prefixed key.
func (g *Gateway) UploadBlob(ctx context.Context, data []byte, contentType, suggestedName string) (asset.BlobRef, error) {
	if len(data) == 0 {
		return asset.BlobRef{}, errors.New("blob is empty")
	}
	key := g.blobKey(suggestedName, contentType)
	if err := g.storage.PutObject(ctx, key, bytes.NewReader(data), contentType, int64(len(data))); err != nil {
		return asset.BlobRef{}, fmt.Errorf("put blob: %w", err)
	}
	url, err := g.storage.GenerateURL(ctx, key)
	if err != nil {
		if delErr := g.storage.DeleteObject(ctx, key); delErr != nil {
			hlog.CtxWarnf(ctx, "drop blob %s after url failure: %v", key, delErr)
		}
		return asset.BlobRef{}, fmt.Errorf("generate url: %w", err)
	}
	return asset.BlobRef{Key: key, URL: url}, nil
}

// DeleteBlob removes a blob. A missing blob is success.
func (g *Gateway) DeleteBlob(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := g.storage.DeleteObject(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// OpenBlob streams a stored blob. The caller closes the reader.
func (g *Gateway) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	return g.storage.GetObject(ctx, key)
}

func (g *Gateway) blobKey(suggestedName, contentType string) string {
	now := g.now().UTC()
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(suggestedName, "\\", "/"))))
	if !isSafeExt(ext) {
		ext = extForContentType(contentType)
	}
	return fmt.Sprintf("photos/%s/%d-%s%s", now.Format("20060102"), now.UnixMilli(), uuid.NewString(), ext)
}

func isSafeExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return true
	}
	return false
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ""
}

// --------------------- Record operations ---------------------

// CreateRecord persists a new asset and returns the store-assigned id.
func (g *Gateway) CreateRecord(ctx context.Context, a *asset.Asset) (string, error) {
	row := toModel(a)
	if err := g.dao.Create(ctx, g.db, row); err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	g.changed(ctx)
	return row.AssetID, nil
}

// UpdateRecord overwrites the mutable fields of the asset with id.
func (g *Gateway) UpdateRecord(ctx context.Context, id string, a *asset.Asset) error {
	row := toModel(a)
	row.AssetID = id
	if err := g.dao.Update(ctx, g.db, row); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return asset.ErrNotFound
		}
		return fmt.Errorf("update record: %w", err)
	}
	g.changed(ctx)
	return nil
}

// DeleteRecord removes the asset with id. Deleting a missing record succeeds.
func (g *Gateway) DeleteRecord(ctx context.Context, id string) error {
	existed, err := g.dao.DeleteByAssetID(ctx, g.db, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if !existed {
		hlog.CtxDebugf(ctx, "delete record %s: already gone", id)
		return nil
	}
	g.changed(ctx)
	return nil
}

// GetRecord loads one asset.
func (g *Gateway) GetRecord(ctx context.Context, id string) (*asset.Asset, error) {
	row, err := g.dao.GetByAssetID(ctx, g.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, asset.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	out := g.withURL(ctx, fromModel(row))
	return &out, nil
}

// ListRecords loads every asset. No particular order is promised.
func (g *Gateway) ListRecords(ctx context.Context) ([]asset.Asset, error) {
	rows, err := g.dao.List(ctx, g.db)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]asset.Asset, 0, len(rows))
	for i := range rows {
		out = append(out, g.withURL(ctx, fromModel(&rows[i])))
	}
	return out, nil
}

// withURL resolves the retrieval URL on every read; presigned URLs expire,
// so only the key is stored.
func (g *Gateway) withURL(ctx context.Context, a asset.Asset) asset.Asset {
	if a.ImageRef == "" {
		return a
	}
	url, err := g.storage.GenerateURL(ctx, a.ImageRef)
	if err != nil {
		hlog.CtxWarnf(ctx, "resolve photo url for %s: %v", a.ID, err)
		return a
	}
	a.ImageURL = url
	return a
}

// changed fans the change out locally and to other processes.
func (g *Gateway) changed(ctx context.Context) {
	g.broadcast()
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Notify(ctx); err != nil {
		hlog.CtxWarnf(ctx, "notify asset change: %v", err)
	}
}
