package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/biz/model/asset"
)

// Unsubscribe stops a subscription and waits for its delivery loop to exit.
type Unsubscribe func()

// subscriber coalesces change signals: however many writes land while a
// snapshot is being delivered, one more reload follows.
type subscriber struct {
	dirty    chan struct{}
	done     chan struct{}
	stopped  sync.WaitGroup
	onChange func([]asset.Asset)
	onError  func(error)
}

func (s *subscriber) mark() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Subscribe delivers the full asset list to onChange now and again after
// every change, until unsubscribed or ctx ends. Load failures go to onError
// as a subscription error; the subscription stays attached and retries with
// backoff, or sooner when another change arrives.
func (g *Gateway) Subscribe(ctx context.Context, onChange func([]asset.Asset), onError func(error)) Unsubscribe {
	s := &subscriber{
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		onChange: onChange,
		onError:  onError,
	}

	g.mu.Lock()
	g.subs[s] = struct{}{}
	g.mu.Unlock()

	s.mark() // initial snapshot
	s.stopped.Add(1)
	go g.deliver(ctx, s)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, s)
			g.mu.Unlock()
			close(s.done)
			s.stopped.Wait()
		})
	}
}

func (g *Gateway) deliver(ctx context.Context, s *subscriber) {
	defer s.stopped.Done()
	var retry <-chan time.Time
	backoff := g.retryMin
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.dirty:
		case <-retry:
		}
		retry = nil

		list, err := g.ListRecords(ctx)
		if err != nil {
			hlog.CtxErrorf(ctx, "asset subscription reload failed, retrying in %s: %v", backoff, err)
			if s.onError != nil {
				s.onError(asset.Wrap(asset.KindSubscription, "load assets", err))
			}
			retry = time.After(backoff)
			backoff = min(backoff*2, g.retryMax)
			continue
		}
		backoff = g.retryMin
		s.onChange(list)
	}
}

// broadcast marks every subscriber dirty.
func (g *Gateway) broadcast() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for s := range g.subs {
		s.mark()
	}
}
