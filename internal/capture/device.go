// Package capture acquires frames from a local camera. A Session owns at
// most one live stream; a Registry makes sure only one session holds a
// given device at a time.
package capture

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPermissionDenied: the process may not open the camera.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable: no camera, busy camera, or the stream died.
	ErrDeviceUnavailable = errors.New("camera unavailable")
	// ErrStreamClosed is returned by FrameBuffer.Next after Close.
	ErrStreamClosed = errors.New("stream closed")
	// ErrNotActive is returned by frame accessors when the session has no stream.
	ErrNotActive = errors.New("camera session not active")
)

// Resolution is the preferred frame size. Devices may deliver less.
type Resolution struct {
	Width  int
	Height int
}

// DefaultResolution is requested when nothing else is configured.
var DefaultResolution = Resolution{Width: 1280, Height: 720}

func (r Resolution) orDefault() Resolution {
	if r.Width <= 0 || r.Height <= 0 {
		return DefaultResolution
	}
	return r
}

// Device opens camera streams.
type Device interface {
	// ID identifies the physical camera for exclusive ownership.
	ID() string
	// Open starts a stream and returns once the first frame is available or
	// opening failed. Errors match ErrPermissionDenied or ErrDeviceUnavailable.
	Open(ctx context.Context, res Resolution) (Stream, error)
}

// Stream is a live sequence of JPEG frames.
type Stream interface {
	// Latest returns the newest frame and its sequence number (0 before the first frame).
	Latest() ([]byte, uint64)
	// Next blocks until a frame newer than after is available.
	Next(ctx context.Context, after uint64) ([]byte, uint64, error)
	// Done is closed when the stream ends for any reason.
	Done() <-chan struct{}
	// Err reports why the stream ended, nil while it is running.
	Err() error
	// Close stops the stream. It is safe to call more than once.
	Close() error
}

// FrameBuffer keeps the latest frame of a stream and wakes up waiters on
// every new one. Stream implementations embed it.
type FrameBuffer struct {
	mu     sync.Mutex
	frame  []byte
	seq    uint64
	notify chan struct{}
	done   chan struct{}
	err    error
	closed bool
}

// NewFrameBuffer creates an empty, open buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Publish stores a new frame. Publishing after Finish is ignored.
func (b *FrameBuffer) Publish(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.frame = frame
	b.seq++
	close(b.notify)
	b.notify = make(chan struct{})
}

func (b *FrameBuffer) Latest() ([]byte, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame, b.seq
}

func (b *FrameBuffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.Lock()
		if b.seq > after {
			frame, seq := b.frame, b.seq
			b.mu.Unlock()
			return frame, seq, nil
		}
		if b.closed {
			err := b.err
			b.mu.Unlock()
			if err == nil {
				err = ErrStreamClosed
			}
			return nil, 0, err
		}
		notify := b.notify
		b.mu.Unlock()

		select {
		case <-notify:
		case <-b.done:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
}

func (b *FrameBuffer) Done() <-chan struct{} {
	return b.done
}

func (b *FrameBuffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Finish marks the stream as ended with err (nil for a regular close).
// Only the first call has an effect.
func (b *FrameBuffer) Finish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	close(b.done)
}
