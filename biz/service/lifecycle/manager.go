// Package lifecycle validates drafts and orchestrates photo upload, record
// writes and cascading deletes against the store gateway.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/pkg/idempotency"
)

// Gateway is the subset of the store gateway the manager drives.
type Gateway interface {
	UploadBlob(ctx context.Context, data []byte, contentType, suggestedName string) (asset.BlobRef, error)
	DeleteBlob(ctx context.Context, key string) error
	CreateRecord(ctx context.Context, a *asset.Asset) (string, error)
	UpdateRecord(ctx context.Context, id string, a *asset.Asset) error
	DeleteRecord(ctx context.Context, id string) error
	GetRecord(ctx context.Context, id string) (*asset.Asset, error)
}

// MapBuilder derives the static map reference for a position.
type MapBuilder interface {
	URL(lat, lon float64, label string) string
}

// DeleteResult reports a completed delete. BlobWarning is set when the
// record is gone but its photo could not be removed.
type DeleteResult struct {
	BlobWarning error
}

// Manager runs create, update and delete submissions.
type Manager struct {
	gateway  Gateway
	maps     MapBuilder
	tokens   idempotency.Store
	rules    Rules
	reclaim  bool
	now      func() time.Time
	observer func(Transition)
}

// Option customises a Manager.
type Option func(*Manager)

// WithTokens enables submission token deduplication for creates.
func WithTokens(store idempotency.Store) Option {
	return func(m *Manager) { m.tokens = store }
}

// WithReclaim deletes a replaced photo after a successful update.
func WithReclaim(enabled bool) Option {
	return func(m *Manager) { m.reclaim = enabled }
}

// WithObserver receives every submission state transition.
func WithObserver(fn func(Transition)) Option {
	return func(m *Manager) { m.observer = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a Manager to its collaborators.
func NewManager(gw Gateway, maps MapBuilder, rules Rules, opts ...Option) *Manager {
	m := &Manager{gateway: gw, maps: maps, rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) begin(op string) *submission {
	s := &submission{op: op, state: StateIdle, observer: m.observer}
	s.to(StateValidating)
	return s
}

// SubmitCreate validates the draft, uploads the captured photo and only then
// writes the record. A record write failure leaves the uploaded photo behind
// and is reported so the caller can retry.
func (m *Manager) SubmitCreate(ctx context.Context, d asset.Draft) (*asset.Asset, error) {
	s := m.begin("create")
	d = m.normalize(d)

	if err := m.rules.validateDraft(d, false); err != nil {
		return nil, s.fail(err)
	}

	if token := strings.TrimSpace(d.SubmissionToken); token != "" && m.tokens != nil {
		existingID, reserved, err := m.tokens.Reserve(ctx, token)
		if err != nil {
			if errors.Is(err, idempotency.ErrInFlight) {
				return nil, s.fail(asset.Wrap(asset.KindWrite, "create record", err))
			}
			return nil, s.fail(asset.Wrap(asset.KindWrite, "reserve submission token", err))
		}
		if !reserved {
			hlog.CtxInfof(ctx, "submission %s already created asset %s", token, existingID)
			existing, err := m.gateway.GetRecord(ctx, existingID)
			if err != nil {
				return nil, s.fail(asset.Wrap(asset.KindWrite, "load existing record", err))
			}
			s.to(StateIdle)
			return existing, nil
		}
		created, err := m.create(ctx, s, d)
		if err != nil {
			if relErr := m.tokens.Release(ctx, token); relErr != nil {
				hlog.CtxWarnf(ctx, "release submission token %s: %v", token, relErr)
			}
			return nil, err
		}
		if err := m.tokens.Complete(ctx, token, created.ID); err != nil {
			hlog.CtxWarnf(ctx, "complete submission token %s: %v", token, err)
		}
		return created, nil
	}

	return m.create(ctx, s, d)
}

func (m *Manager) create(ctx context.Context, s *submission, d asset.Draft) (*asset.Asset, error) {
	s.to(StateUploadingBlob)
	ref, err := m.gateway.UploadBlob(ctx, d.Capture.Image, d.Capture.MimeType, d.Name)
	if err != nil {
		hlog.CtxErrorf(ctx, "upload photo for %q failed: %v", d.Name, err)
		return nil, s.fail(asset.Wrap(asset.KindUpload, "upload photo", err))
	}

	recordedAt := m.now()
	if d.RecordedAt != nil && !d.RecordedAt.IsZero() {
		recordedAt = *d.RecordedAt
	}
	loc := d.Capture.Location
	a := &asset.Asset{
		Name:        d.Name,
		Category:    d.Category,
		Condition:   d.Condition,
		Description: d.Description,
		ImageRef:    ref.Key,
		ImageURL:    ref.URL,
		MapRef:      m.mapRef(loc, d.Name),
		Location:    &loc,
		RecordedAt:  recordedAt,
		AcquiredAt:  d.AcquiredAt,
		RecordedBy:  d.RecordedBy,
	}

	s.to(StateWritingRecord)
	id, err := m.gateway.CreateRecord(ctx, a)
	if err != nil {
		hlog.CtxErrorf(ctx, "create record for %q failed, photo %s left orphaned: %v", d.Name, ref.Key, err)
		return nil, s.fail(asset.Wrap(asset.KindWrite, "create record", err))
	}
	a.ID = id
	s.to(StateIdle)
	hlog.CtxInfof(ctx, "asset %s registered (%s)", id, a.Name)
	return a, nil
}

// SubmitUpdate re-validates the draft and rewrites the record. A new capture
// replaces photo, coordinates and map reference; otherwise the stored photo
// and coordinates are kept. previousImageRef must name the stored photo.
func (m *Manager) SubmitUpdate(ctx context.Context, id string, d asset.Draft, previousImageRef string) (*asset.Asset, error) {
	s := m.begin("update")
	d = m.normalize(d)

	if strings.TrimSpace(id) == "" {
		return nil, s.fail(asset.Validation(asset.FieldError{Field: "id", Err: asset.ErrRequired}))
	}
	if err := m.rules.validateDraft(d, strings.TrimSpace(previousImageRef) != ""); err != nil {
		return nil, s.fail(err)
	}

	current, err := m.gateway.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			return nil, s.fail(asset.Wrap(asset.KindNotFound, "update record", err))
		}
		return nil, s.fail(asset.Wrap(asset.KindWrite, "load record", err))
	}
	if err := ownPhoto(current, previousImageRef); err != nil {
		return nil, s.fail(err)
	}

	next := *current
	next.Name = d.Name
	next.Category = d.Category
	next.Condition = d.Condition
	next.Description = d.Description
	if d.AcquiredAt != nil {
		next.AcquiredAt = d.AcquiredAt
	}

	replaced := ""
	if d.Capture != nil && len(d.Capture.Image) > 0 {
		s.to(StateUploadingBlob)
		ref, err := m.gateway.UploadBlob(ctx, d.Capture.Image, d.Capture.MimeType, d.Name)
		if err != nil {
			hlog.CtxErrorf(ctx, "upload replacement photo for %s failed: %v", id, err)
			return nil, s.fail(asset.Wrap(asset.KindUpload, "upload photo", err))
		}
		replaced = current.ImageRef
		next.ImageRef, next.ImageURL = ref.Key, ref.URL
		loc := d.Capture.Location
		if next.Location == nil || *next.Location != loc {
			next.MapRef = m.mapRef(loc, d.Name)
		}
		next.Location = &loc
	}

	s.to(StateWritingRecord)
	if err := m.gateway.UpdateRecord(ctx, id, &next); err != nil {
		hlog.CtxErrorf(ctx, "update record %s failed: %v", id, err)
		if errors.Is(err, asset.ErrNotFound) {
			return nil, s.fail(asset.Wrap(asset.KindNotFound, "update record", err))
		}
		return nil, s.fail(asset.Wrap(asset.KindWrite, "update record", err))
	}
	s.to(StateIdle)

	if m.reclaim && replaced != "" && replaced != next.ImageRef {
		if err := m.gateway.DeleteBlob(ctx, replaced); err != nil {
			hlog.CtxWarnf(ctx, "reclaim replaced photo %s: %v", replaced, err)
		}
	}
	return &next, nil
}

// DeleteAsset removes the record, then its stored photo. The record delete
// decides the outcome; a photo that cannot be removed only yields a warning.
// An unknown id succeeds without touching any photo. A non-empty imageRef
// must name the stored photo.
func (m *Manager) DeleteAsset(ctx context.Context, id, imageRef string) (*DeleteResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, asset.Validation(asset.FieldError{Field: "id", Err: asset.ErrRequired})
	}
	current, err := m.gateway.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			hlog.CtxDebugf(ctx, "delete asset %s: already gone", id)
			return &DeleteResult{}, nil
		}
		return nil, asset.Wrap(asset.KindWrite, "load record", err)
	}
	if err := ownPhoto(current, imageRef); err != nil {
		return nil, err
	}
	imageRef = current.ImageRef

	if err := m.gateway.DeleteRecord(ctx, id); err != nil {
		hlog.CtxErrorf(ctx, "delete record %s failed: %v", id, err)
		return nil, asset.Wrap(asset.KindWrite, "delete record", err)
	}

	result := &DeleteResult{}
	if err := m.gateway.DeleteBlob(ctx, imageRef); err != nil {
		hlog.CtxWarnf(ctx, "asset %s deleted but photo %s remains: %v", id, imageRef, err)
		result.BlobWarning = fmt.Errorf("photo not removed: %w", err)
	}
	hlog.CtxInfof(ctx, "asset %s deleted", id)
	return result, nil
}

// ownPhoto rejects a caller-supplied photo key that is not the record's own.
func ownPhoto(current *asset.Asset, imageRef string) error {
	if ref := strings.TrimSpace(imageRef); ref != "" && ref != current.ImageRef {
		return asset.Validation(asset.FieldError{Field: "image_ref", Err: asset.ErrForeignPhoto})
	}
	return nil
}

func (m *Manager) normalize(d asset.Draft) asset.Draft {
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	if d.Category == "" && len(m.rules.Categories) > 0 {
		d.Category = m.rules.Categories[0]
	}
	return d
}

func (m *Manager) mapRef(loc asset.Coordinates, label string) string {
	if m.maps == nil {
		return ""
	}
	return m.maps.URL(loc.Latitude, loc.Longitude, label)
}
