package recordset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yi-nology/park_registry/biz/dal/gateway"
	"github.com/yi-nology/park_registry/biz/model/asset"
)

type fakeSource struct {
	mu           sync.Mutex
	onChange     func([]asset.Asset)
	onError      func(error)
	unsubscribed bool
}

func (f *fakeSource) Subscribe(_ context.Context, onChange func([]asset.Asset), onError func(error)) gateway.Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange, f.onError = onChange, onError
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}
}

func TestSnapshotWaitsForFirstDelivery(t *testing.T) {
	src := &fakeSource{}
	set := New(src)
	set.Start(context.Background())
	defer set.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := set.Snapshot(ctx); !asset.IsKind(err, asset.KindSubscription) {
		t.Fatalf("expected SubscriptionError before first delivery, got %v", err)
	}

	src.onChange([]asset.Asset{})
	list, err := set.Snapshot(context.Background())
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %v %v", list, err)
	}
}

func TestSnapshotReportsFeedFailure(t *testing.T) {
	src := &fakeSource{}
	set := New(src)
	set.Start(context.Background())

	src.onChange([]asset.Asset{{ID: "a"}})
	src.onError(errors.New("connection reset"))

	_, err := set.Snapshot(context.Background())
	if !errors.Is(err, asset.ErrDataUnavailable) || !asset.IsKind(err, asset.KindSubscription) {
		t.Fatalf("expected data unavailable, got %v", err)
	}

	src.onChange([]asset.Asset{{ID: "a"}, {ID: "b"}})
	list, err := set.Snapshot(context.Background())
	if err != nil || len(list) != 2 {
		t.Fatalf("expected recovery, got %v %v", list, err)
	}

	list[0].ID = "mutated"
	again, _ := set.Snapshot(context.Background())
	if again[0].ID != "a" {
		t.Fatal("snapshot must be a copy")
	}

	set.Stop()
	if !src.unsubscribed {
		t.Fatal("Stop must unsubscribe")
	}
}
