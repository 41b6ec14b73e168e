package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yi-nology/park_registry/biz/dal/db"
	"github.com/yi-nology/park_registry/biz/dal/model"
	"github.com/yi-nology/park_registry/biz/model/asset"
	"github.com/yi-nology/park_registry/pkg/storage"
	"github.com/yi-nology/park_registry/pkg/storage/local"
)

func newTestGateway(t *testing.T, opts ...Option) *Gateway {
	t.Helper()
	conn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, conn) })
	store, err := local.New(t.TempDir(), "/api/v1/photos/")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	return New(conn, store, opts...)
}

func sampleAsset() *asset.Asset {
	return &asset.Asset{
		Name:        "Bench A",
		Category:    "bench",
		Condition:   asset.ConditionGood,
		Description: "near gate 3",
		ImageRef:    "photos/x/1.jpg",
		MapRef:      "https://maps.example/?center=37.1,127",
		Location:    &asset.Coordinates{Latitude: 37.1, Longitude: 127.0},
		RecordedAt:  time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestBlobLifecycle(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	g := newTestGateway(t, WithClock(func() time.Time { return fixed }))

	data := []byte("\xff\xd8\xff photo")
	ref, err := g.UploadBlob(ctx, data, "image/jpeg", "../../evil.exe")
	if err != nil {
		t.Fatalf("UploadBlob: %v", err)
	}
	if !strings.HasPrefix(ref.Key, "photos/20261015/") || !strings.HasSuffix(ref.Key, ".jpg") {
		t.Fatalf("unexpected key %s", ref.Key)
	}
	if ref.URL != "/api/v1/photos/"+ref.Key {
		t.Fatalf("unexpected url %s", ref.URL)
	}

	other, err := g.UploadBlob(ctx, data, "image/jpeg", "same.jpg")
	if err != nil {
		t.Fatalf("UploadBlob: %v", err)
	}
	if other.Key == ref.Key {
		t.Fatal("keys must be unique even within the same millisecond")
	}

	rc, err := g.OpenBlob(ctx, ref.Key)
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatal("blob bytes differ from upload")
	}

	if err := g.DeleteBlob(ctx, ref.Key); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if err := g.DeleteBlob(ctx, ref.Key); err != nil {
		t.Fatalf("second DeleteBlob must succeed, got %v", err)
	}
	if err := g.DeleteBlob(ctx, ""); err != nil {
		t.Fatalf("empty key must be a no-op, got %v", err)
	}
	if _, err := g.UploadBlob(ctx, nil, "image/jpeg", "x.jpg"); err == nil {
		t.Fatal("expected error for empty blob")
	}
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	id, err := g.CreateRecord(ctx, sampleAsset())
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if id == "" {
		t.Fatal("expected store-assigned id")
	}

	got, err := g.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Name != "Bench A" || got.Location == nil || got.Location.Latitude != 37.1 || got.Location.Longitude != 127.0 {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.UpdatedAt != nil {
		t.Fatal("fresh record must not carry updated_at")
	}

	got.Condition = asset.ConditionPoor
	if err := g.UpdateRecord(ctx, id, got); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	updated, _ := g.GetRecord(ctx, id)
	if updated.Condition != asset.ConditionPoor || updated.ImageRef != got.ImageRef {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := g.UpdateRecord(ctx, "missing", got); !errors.Is(err, asset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := g.DeleteRecord(ctx, id); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if err := g.DeleteRecord(ctx, id); err != nil {
		t.Fatalf("second DeleteRecord must succeed, got %v", err)
	}
	if _, err := g.GetRecord(ctx, id); !errors.Is(err, asset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	snapshots := make(chan []asset.Asset, 8)
	unsubscribe := g.Subscribe(ctx, func(list []asset.Asset) { snapshots <- list }, nil)
	defer unsubscribe()

	first := waitSnapshot(t, snapshots)
	if first == nil || len(first) != 0 {
		t.Fatalf("expected empty initial snapshot, got %v", first)
	}

	if _, err := g.CreateRecord(ctx, sampleAsset()); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	for {
		list := waitSnapshot(t, snapshots)
		if len(list) == 1 {
			break
		}
	}

	unsubscribe()
	unsubscribe() // idempotent
	if _, err := g.CreateRecord(ctx, sampleAsset()); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	select {
	case list := <-snapshots:
		if len(list) == 2 {
			t.Fatal("snapshot delivered after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified int
	remote   func()
}

func (f *fakeNotifier) Notify(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified++
	return nil
}

func (f *fakeNotifier) Listen(_ context.Context, fn func()) error {
	f.remote = fn
	return nil
}

func TestNotifierRelaysChanges(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{}
	g := newTestGateway(t, WithNotifier(n))
	if err := g.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snapshots := make(chan []asset.Asset, 8)
	unsubscribe := g.Subscribe(ctx, func(list []asset.Asset) { snapshots <- list }, nil)
	defer unsubscribe()
	waitSnapshot(t, snapshots)

	if _, err := g.CreateRecord(ctx, sampleAsset()); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	n.mu.Lock()
	notified := n.notified
	n.mu.Unlock()
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}
	waitSnapshot(t, snapshots)

	// A change made by another process triggers a reload here.
	n.remote()
	waitSnapshot(t, snapshots)
}

// signingStorage hands out a new URL on every request, like presigned S3.
type signingStorage struct {
	storage.Storage
	mu     sync.Mutex
	issued int
}

func (s *signingStorage) GenerateURL(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return fmt.Sprintf("https://bucket.example/%s?sig=%d", key, s.issued), nil
}

func TestRecordURLResolvedOnRead(t *testing.T) {
	ctx := context.Background()
	conn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, conn) })
	base, err := local.New(t.TempDir(), "/api/v1/photos/")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	g := New(conn, &signingStorage{Storage: base})

	a := sampleAsset()
	a.ImageURL = "https://bucket.example/photos/x/1.jpg?sig=expired"
	id, err := g.CreateRecord(ctx, a)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	first, err := g.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	second, _ := g.GetRecord(ctx, id)
	if first.ImageURL == a.ImageURL || first.ImageURL == second.ImageURL {
		t.Fatalf("expected a fresh url per read, got %q then %q", first.ImageURL, second.ImageURL)
	}
	if !strings.HasPrefix(first.ImageURL, "https://bucket.example/photos/x/1.jpg?sig=") {
		t.Fatalf("url must follow the stored key, got %q", first.ImageURL)
	}

	list, err := g.ListRecords(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListRecords: %v %v", list, err)
	}
	if list[0].ImageURL == a.ImageURL || list[0].ImageURL == "" {
		t.Fatalf("list must resolve urls too, got %q", list[0].ImageURL)
	}
}

func TestSubscriptionRecoversWithoutWrites(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, WithRetryBackoff(10*time.Millisecond, 50*time.Millisecond))

	snapshots := make(chan []asset.Asset, 8)
	failures := make(chan error, 8)
	unsubscribe := g.Subscribe(ctx,
		func(list []asset.Asset) { snapshots <- list },
		func(err error) {
			select {
			case failures <- err:
			default:
			}
		})
	defer unsubscribe()
	waitSnapshot(t, snapshots)

	if err := g.db.Migrator().DropTable(&model.Asset{}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	g.broadcast()
	select {
	case err := <-failures:
		if !asset.IsKind(err, asset.KindSubscription) {
			t.Fatalf("expected subscription error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload failure")
	}

	// The store comes back; no write happens, the retry alone reattaches.
	if err := g.db.AutoMigrate(&model.Asset{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if list := waitSnapshot(t, snapshots); len(list) != 0 {
		t.Fatalf("expected empty snapshot after recovery, got %v", list)
	}
}

func waitSnapshot(t *testing.T, ch <-chan []asset.Asset) []asset.Asset {
	t.Helper()
	select {
	case list := <-ch:
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
