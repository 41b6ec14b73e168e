// Package capture turns one camera frame plus a position fix into a
// capture result. The camera stream is held only for the duration of a
// single capture and is always released.
package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/park_registry/biz/model/asset"

	"golang.org/x/sync/errgroup"
)

// Frame is one still image.
type Frame struct {
	Data     []byte
	MimeType string
}

// Stream is an acquired camera.
type Stream interface {
	// Snapshot freezes and returns the current frame.
	Snapshot(ctx context.Context) (Frame, error)
	Close() error
}

// Camera hands out exclusive streams.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Locator answers the device position.
type Locator interface {
	Locate(ctx context.Context, highAccuracy bool) (asset.Coordinates, error)
}

// Encoder validates and encodes a raw frame.
type Encoder func(Frame) (Frame, error)

// Adapter owns one camera and one locator. Only one capture holds the
// camera at a time; a new capture first releases the previous stream.
type Adapter struct {
	camera  Camera
	locator Locator
	encode  Encoder

	mu     sync.Mutex
	active Stream
}

// NewAdapter binds a camera and locator. A nil encoder passes frames through.
func NewAdapter(camera Camera, locator Locator, encode Encoder) *Adapter {
	if encode == nil {
		encode = func(f Frame) (Frame, error) { return f, nil }
	}
	return &Adapter{camera: camera, locator: locator, encode: encode}
}

// Capture acquires the camera, snapshots one frame and queries the position
// concurrently. Camera failures stop before the location query.
func (a *Adapter) Capture(ctx context.Context) (*asset.CaptureResult, error) {
	stream, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer a.release(ctx, stream)

	var (
		frame  Frame
		coords asset.Coordinates
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := stream.Snapshot(gctx)
		if err != nil {
			return classify(err, asset.ErrCameraUnavailable)
		}
		encoded, err := a.encode(raw)
		if err != nil {
			return classify(err, asset.ErrCameraUnavailable)
		}
		frame = encoded
		return nil
	})
	g.Go(func() error {
		c, err := a.locator.Locate(gctx, true)
		if err != nil {
			return classify(err, asset.ErrLocationUnavailable)
		}
		coords = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &asset.CaptureResult{
		Image:    frame.Data,
		MimeType: frame.MimeType,
		Location: coords,
	}, nil
}

// Close releases any stream still held.
func (a *Adapter) Close() error {
	a.mu.Lock()
	stream := a.active
	a.active = nil
	a.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.Close()
}

func (a *Adapter) acquire(ctx context.Context) (Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		if err := a.active.Close(); err != nil {
			hlog.CtxWarnf(ctx, "release previous camera stream: %v", err)
		}
		a.active = nil
	}

	stream, err := a.camera.Open(ctx)
	if err != nil {
		return nil, asset.Wrap(asset.KindCapture, "open camera", errors.Join(asset.ErrCameraUnavailable, err))
	}
	a.active = stream
	return stream, nil
}

func (a *Adapter) release(ctx context.Context, stream Stream) {
	a.mu.Lock()
	owned := a.active == stream
	if owned {
		a.active = nil
	}
	a.mu.Unlock()
	if !owned {
		return // already released by a newer capture
	}
	if err := stream.Close(); err != nil {
		hlog.CtxWarnf(ctx, "release camera stream: %v", err)
	}
}

// classify keeps typed errors (validation of the frame or coordinates) and
// tags everything else as a capture failure with sentinel.
func classify(err error, sentinel error) error {
	var typed *asset.Error
	if errors.As(err, &typed) {
		return typed
	}
	op := "capture photo"
	if sentinel == asset.ErrLocationUnavailable {
		op = "locate device"
	}
	return asset.Wrap(asset.KindCapture, op, errors.Join(sentinel, err))
}
