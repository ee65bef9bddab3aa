package satchel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minus-twelve/satchel/metrics"
)

// DefaultNamespace is the key prefix used when none is configured.
const DefaultNamespace = "default"

// Session coordinates one request's session: it owns the Container, drives
// the Handler through the lifecycle and rotates the identifier lazily on
// Write and Stop once the rotation deadline has passed. There is no timer
// goroutine. A Session belongs to a single request and is not safe for
// concurrent use.
type Session struct {
	handler  Handler
	data     *Container
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Collector
	interval time.Duration
	deadline int64
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	namespace string
	interval  time.Duration
	clock     Clock
	logger    *slog.Logger
	metrics   *metrics.Collector
}

func WithNamespace(name string) SessionOption {
	return func(o *sessionOptions) { o.namespace = name }
}

// WithRotationInterval sets the identifier rotation cadence. A non-positive
// interval disables rotation.
func WithRotationInterval(d time.Duration) SessionOption {
	return func(o *sessionOptions) { o.interval = d }
}

func WithClock(c Clock) SessionOption {
	return func(o *sessionOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) SessionOption {
	return func(o *sessionOptions) { o.metrics = m }
}

// NewSession builds a coordinator around h and binds its Container to it.
func NewSession(h Handler, opts ...SessionOption) (*Session, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidConfig)
	}

	o := sessionOptions{
		namespace: DefaultNamespace,
		interval:  5 * time.Minute,
		clock:     SystemClock,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := NewContainer(o.namespace)
	if err != nil {
		return nil, err
	}

	s := &Session{
		handler:  h,
		data:     data,
		clock:    o.clock,
		logger:   o.logger,
		metrics:  o.metrics,
		interval: o.interval,
	}
	if s.rotationEnabled() {
		s.deadline = s.clock.Now().Add(s.interval).Unix()
	}

	h.Bind(data, s)
	return s, nil
}

// Data is the explicit accessor for the session's values.
func (s *Session) Data() *Container {
	return s.data
}

func (s *Session) SetNamespace(name string) error {
	return s.data.SetNamespace(name)
}

func (s *Session) ID() string {
	return s.handler.ID()
}

func (s *Session) Name() string {
	return s.handler.Name()
}

// Status is always read from the handler.
func (s *Session) Status() Status {
	return s.handler.Status()
}

func (s *Session) RotationInterval() time.Duration {
	return s.interval
}

// RotationDeadline returns the unix time of the next rotation, or zero when
// rotation is disabled.
func (s *Session) RotationDeadline() int64 {
	return s.deadline
}

func (s *Session) SetRotationDeadline(unix int64) {
	if !s.rotationEnabled() {
		return
	}
	s.deadline = unix
}

func (s *Session) rotationEnabled() bool {
	return s.interval > 0
}

// Create discards any data and allocates a fresh identifier.
func (s *Session) Create(ctx context.Context) error {
	s.data.Clear()
	if err := s.handler.Create(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Start resolves and loads the request's session.
func (s *Session) Start(ctx context.Context) error {
	if err := s.handler.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	s.metrics.SessionStarted()
	return nil
}

// Write rotates the identifier if due, then persists the pruned data.
func (s *Session) Write(ctx context.Context) error {
	if err := s.rotateIfDue(ctx); err != nil {
		return err
	}
	if err := s.handler.Write(ctx); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.metrics.PayloadWritten()
	return nil
}

// Stop rotates the identifier if due, then persists and closes the session.
func (s *Session) Stop(ctx context.Context) error {
	if err := s.rotateIfDue(ctx); err != nil {
		return err
	}
	if err := s.handler.Stop(ctx); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	s.metrics.PayloadWritten()
	return nil
}

// Rotate gives the session a new identifier while keeping its data, then
// moves the deadline forward. It may be called directly, e.g. after a
// privilege change, even when periodic rotation is disabled.
func (s *Session) Rotate(ctx context.Context) error {
	if err := s.handler.RegenerateID(ctx); err != nil {
		return fmt.Errorf("rotate session id: %w", err)
	}
	if s.rotationEnabled() {
		s.deadline = s.clock.Now().Add(s.interval).Unix()
	}
	s.metrics.IDRotated()
	s.logger.DebugContext(ctx, "session id rotated", slog.Int64("next_rotation", s.deadline))
	return nil
}

// Destroy discards the data and terminates the session in the handler.
func (s *Session) Destroy(ctx context.Context) error {
	s.data.Clear()
	if err := s.handler.Destroy(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	s.metrics.SessionDestroyed()
	return nil
}

// GC asks the handler to purge expired payloads.
func (s *Session) GC(ctx context.Context) error {
	return s.handler.GC(ctx)
}

func (s *Session) rotateIfDue(ctx context.Context) error {
	if !s.rotationEnabled() || s.Status() != StatusActive {
		return nil
	}
	if s.clock.Now().Unix() < s.deadline {
		return nil
	}
	return s.Rotate(ctx)
}
