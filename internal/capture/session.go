package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/imagesource"
)

// StartObserver is notified of the state each Start ends in. *metrics.Metrics implements it.
type StartObserver interface {
	ObserveCameraStart(state string)
}

// Session is one camera capture lifecycle: Idle -> Requesting -> Active or
// Error. Stop takes an active session back to Idle and leaves Error as is. Failures are kept on the session instead of
// being returned, so callers render them from State, Err and Message.
type Session struct {
	device   Device
	registry *Registry
	res      Resolution
	logger   *zap.Logger
	observer StartObserver

	mu     sync.Mutex
	state  State
	err    error
	stream Stream
	gen    uint64
}

// Option customizes a Session.
type Option func(*Session)

// WithResolution sets the preferred frame size.
func WithResolution(res Resolution) Option {
	return func(s *Session) { s.res = res.orDefault() }
}

// WithRegistry shares device ownership with other sessions.
func WithRegistry(r *Registry) Option {
	return func(s *Session) { s.registry = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l.Named("capture") }
}

func WithObserver(o StartObserver) Option {
	return func(s *Session) { s.observer = o }
}

func NewSession(device Device, opts ...Option) *Session {
	s := &Session{
		device: device,
		res:    DefaultResolution,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Start requests the camera and returns the state the session ended up in.
// An Active session is restarted with a fresh stream. If the device is held
// by another session, that session is stopped first.
func (s *Session) Start(ctx context.Context) State {
	s.mu.Lock()
	old := s.stream
	s.stream = nil
	s.gen++
	gen := s.gen
	s.state = Requesting
	s.err = nil
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	id := s.device.ID()
	if prev := s.registry.claim(id, s); prev != nil {
		s.logger.Info("preempting camera holder", zap.String("device", id))
		prev.Stop()
	}

	stream, err := s.device.Open(ctx, s.res)

	s.mu.Lock()
	if gen != s.gen {
		// stopped or restarted while opening
		state := s.state
		s.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
		return state
	}
	if err != nil {
		s.state = Error
		s.err = classify(err)
		s.mu.Unlock()
		s.registry.release(id, s)
		s.logger.Warn("camera start failed", zap.String("device", id), zap.Error(err))
		s.observe(Error)
		return Error
	}
	s.state = Active
	s.stream = stream
	s.mu.Unlock()

	go s.watch(gen, stream)
	s.logger.Debug("camera active", zap.String("device", id))
	s.observe(Active)
	return Active
}

// watch moves the session to Error when its stream dies on its own.
func (s *Session) watch(gen uint64, stream Stream) {
	<-stream.Done()

	s.mu.Lock()
	if gen != s.gen || s.stream != stream {
		s.mu.Unlock()
		return
	}
	s.stream = nil
	s.state = Error
	s.err = classify(stream.Err())
	s.mu.Unlock()

	s.registry.release(s.device.ID(), s)
	s.logger.Warn("camera stream lost", zap.Error(s.Err()))
}

// Capture grabs the current frame as a JPEG blob. Outside Active it returns
// nil and no error.
func (s *Session) Capture(ctx context.Context) (*imagesource.Blob, error) {
	s.mu.Lock()
	stream := s.stream
	res := s.res
	active := s.state == Active
	s.mu.Unlock()
	if !active || stream == nil {
		return nil, nil
	}

	frame, _ := stream.Latest()
	if frame == nil {
		var err error
		if frame, _, err = stream.Next(ctx, 0); err != nil {
			return nil, fmt.Errorf("waiting for frame: %w", err)
		}
	}

	data, err := encodeStill(frame, res)
	if err != nil {
		return nil, err
	}
	return &imagesource.Blob{Data: data, MIME: "image/jpeg", Name: "capture.jpg"}, nil
}

// NextFrame returns the first raw frame newer than after, for live previews.
func (s *Session) NextFrame(ctx context.Context, after uint64) ([]byte, uint64, error) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return nil, 0, ErrNotActive
	}
	return stream.Next(ctx, after)
}

// Stop releases the stream and the device claim. It is idempotent. An
// active or requesting session goes back to Idle; a session in Error keeps
// its state and error until the next Start.
func (s *Session) Stop() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	if stream == nil && (s.state == Idle || s.state == Error) {
		s.mu.Unlock()
		s.registry.release(s.device.ID(), s)
		return
	}
	s.gen++
	s.state = Idle
	s.err = nil
	s.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	s.registry.release(s.device.ID(), s)
	s.logger.Debug("camera stopped", zap.String("device", s.device.ID()))
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the failure that put the session into Error, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Message is the operator-facing text for Err, empty when there is none.
func (s *Session) Message() string {
	return ErrorMessage(s.Err())
}

// ErrorMessage renders a capture error for display.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Não foi possível acessar a câmera. Verifique as permissões."
	case errors.Is(err, ErrDeviceUnavailable):
		return "Câmera indisponível. Verifique se o dispositivo está conectado."
	default:
		return "Não foi possível acessar a câmera."
	}
}

func (s *Session) observe(state State) {
	if s.observer != nil {
		s.observer.ObserveCameraStart(state.String())
	}
}

func classify(err error) error {
	if err == nil {
		return fmt.Errorf("%w: stream ended", ErrDeviceUnavailable)
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}

// WithSession starts s, runs fn while the camera is active and stops s on
// every exit path.
func WithSession(ctx context.Context, s *Session, fn func(*Session) error) error {
	defer s.Stop()

	if state := s.Start(ctx); state != Active {
		if err := s.Err(); err != nil {
			return err
		}
		return ErrNotActive
	}
	return fn(s)
}

// Snapshot takes a single still from a freshly started session and releases
// the camera afterwards.
func Snapshot(ctx context.Context, s *Session) (*imagesource.Blob, error) {
	var blob *imagesource.Blob
	err := WithSession(ctx, s, func(s *Session) error {
		b, err := s.Capture(ctx)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotActive
		}
		blob = b
		return nil
	})
	return blob, err
}
