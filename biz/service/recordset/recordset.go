// Package recordset keeps the live in-memory asset list that the inquiry
// and report endpoints read from.
package recordset

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/biz/dal/gateway"
	"github.com/yi-nology/park_registry/biz/model/asset"
)

// Source pushes full snapshots of the record collection.
type Source interface {
	Subscribe(ctx context.Context, onChange func([]asset.Asset), onError func(error)) gateway.Unsubscribe
}

// Set mirrors the latest snapshot. While the feed is failing every read
// reports data unavailable until a fresh snapshot arrives.
type Set struct {
	src Source

	mu          sync.RWMutex
	assets      []asset.Asset
	err         error
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe gateway.Unsubscribe
}

// New creates an unstarted Set.
func New(src Source) *Set {
	return &Set{src: src, ready: make(chan struct{})}
}

// Start attaches the subscription. It lives until Stop or ctx ends.
func (s *Set) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.src.Subscribe(ctx, s.onChange, s.onError)
	hlog.CtxInfof(ctx, "asset record set subscribed")
}

// Stop tears the subscription down.
func (s *Set) Stop() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Set) onChange(list []asset.Asset) {
	s.mu.Lock()
	s.assets = list
	s.err = nil
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Set) onError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

// Snapshot waits for the first delivery and returns a copy of the list.
func (s *Set) Snapshot(ctx context.Context) ([]asset.Asset, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, asset.Wrap(asset.KindSubscription, "load assets", fmt.Errorf("%w: %v", asset.ErrDataUnavailable, ctx.Err()))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, asset.Wrap(asset.KindSubscription, "load assets", fmt.Errorf("%w: %v", asset.ErrDataUnavailable, s.err))
	}
	return append([]asset.Asset{}, s.assets...), nil
}
