package satchel

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/minus-twelve/satchel/metrics"
	"github.com/minus-twelve/satchel/storage"
)

// Manager holds what outlives a request: configuration, the Store and the
// background garbage collector. It hands out one Session per request.
type Manager struct {
	store          Store
	config         Config
	logger         *slog.Logger
	clock          Clock
	metrics        *metrics.Collector
	rateLimiter    *RateLimiter
	trustedProxies []net.IPNet

	shutdownChan chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithManagerClock(c Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithManagerMetrics(c *metrics.Collector) ManagerOption {
	return func(m *Manager) { m.metrics = c }
}

// NewManager validates cfg and starts the garbage collector when
// cfg.GCInterval is positive. A nil store falls back to an in-memory one.
func NewManager(store Store, cfg Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = storage.NewMemoryStore(cfg.Memory.MaxSessions)
	}

	m := &Manager{
		store:          store,
		config:         cfg,
		logger:         slog.Default(),
		clock:          SystemClock,
		trustedProxies: ParseTrustedProxies(cfg.TrustedProxies),
		shutdownChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.rateLimiter = NewRateLimiter(m.clock)

	if cfg.GCInterval > 0 {
		m.wg.Add(1)
		go m.cleanupSessions()
	}
	if cfg.RateLimit.Limit > 0 {
		m.wg.Add(1)
		go m.cleanupRateLimits()
	}

	return m, nil
}

func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) Config() Config {
	return m.config
}

// Open builds an unstarted Session for one request. Identifier changes are
// reported to w, which may be nil.
func (m *Manager) Open(req Request, w IDWriter) (*Session, error) {
	opts := []HandlerOption{
		WithIDWriter(w),
		WithHandlerClock(m.clock),
		WithHandlerLogger(m.logger),
		WithHandlerMetrics(m.metrics),
	}
	if limit := m.config.RateLimit; limit.Limit > 0 {
		client := req.RemoteAddr
		opts = append(opts, WithAllocationGuard(func(ctx context.Context) error {
			if !m.rateLimiter.Check(client, limit.Limit, limit.Period) {
				m.logger.WarnContext(ctx, "session allocation rate limited", slog.String("ip", client))
				return ErrRateLimited
			}
			return nil
		}))
	}

	h, err := NewStoreHandler(m.store, req, m.config.HandlerConfig(), opts...)
	if err != nil {
		return nil, err
	}

	return NewSession(h,
		WithNamespace(m.config.Namespace),
		WithRotationInterval(m.config.RotationTime.Duration()),
		WithClock(m.clock),
		WithLogger(m.logger),
		WithMetrics(m.metrics),
	)
}

func (m *Manager) cookieOptions() CookieOptions {
	return CookieOptions{
		Path:   m.config.CookiePath,
		Domain: m.config.CookieDomain,
		Secure: m.config.SecureCookie,
	}
}

// Close stops the background workers. It is safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.shutdownChan)
	})
	m.wg.Wait()
	return nil
}

func (m *Manager) cleanupSessions() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.store.Cleanup(context.Background()); err != nil {
				m.metrics.StoreFailure("gc")
				m.logger.Error("session gc failed", slog.String("error", err.Error()))
			}
		case <-m.shutdownChan:
			return
		}
	}
}

func (m *Manager) cleanupRateLimits() {
	defer m.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.rateLimiter.Prune(m.config.RateLimit.Period)
		case <-m.shutdownChan:
			return
		}
	}
}
