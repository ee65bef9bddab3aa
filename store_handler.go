package satchel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minus-twelve/satchel/metrics"
	"github.com/minus-twelve/satchel/storage"
	"github.com/minus-twelve/satchel/types"
)

// HandlerConfig configures a StoreHandler. Empty transport names fall back
// to Name.
type HandlerConfig struct {
	Name       string
	FieldName  string
	CookieName string
	QueryName  string

	MatchIP bool
	MatchUA bool

	// Expiration is the absolute payload lifetime; zero disables the check.
	Expiration time.Duration
	// CookieLifetime is the max age sent with the identifier; zero sends a
	// browser-session cookie.
	CookieLifetime time.Duration
}

// StoreHandler is the Handler shipped with the package. It keeps payloads in
// a Store, reads identifiers from a Request and reports changes through an
// IDWriter. Unknown, malformed or rejected identifiers are never adopted: the
// request gets a fresh identifier and an empty Container instead.
type StoreHandler struct {
	store   Store
	req     Request
	cfg     HandlerConfig
	out     IDWriter
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Collector
	guard   func(ctx context.Context) error

	data  *Container
	timer RotationTimer

	id     string
	active bool
	// sent is set once the current id went out through the IDWriter.
	sent bool
	// retired is the id whose payload is deleted after the next successful
	// Write under the rotated id.
	retired string
}

type HandlerOption func(*StoreHandler)

func WithIDWriter(w IDWriter) HandlerOption {
	return func(h *StoreHandler) {
		if w != nil {
			h.out = w
		}
	}
}

func WithHandlerClock(c Clock) HandlerOption {
	return func(h *StoreHandler) {
		if c != nil {
			h.clock = c
		}
	}
}

func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *StoreHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithHandlerMetrics(m *metrics.Collector) HandlerOption {
	return func(h *StoreHandler) { h.metrics = m }
}

// WithAllocationGuard installs a check that runs before a brand-new
// identifier is allocated. A non-nil error aborts Start or Create.
func WithAllocationGuard(guard func(ctx context.Context) error) HandlerOption {
	return func(h *StoreHandler) { h.guard = guard }
}

// NewStoreHandler returns a handler over store. A nil store yields a handler
// that reports StatusDisabled.
func NewStoreHandler(store Store, req Request, cfg HandlerConfig, opts ...HandlerOption) (*StoreHandler, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty handler name", ErrInvalidConfig)
	}
	if cfg.FieldName == "" {
		cfg.FieldName = cfg.Name
	}
	if cfg.CookieName == "" {
		cfg.CookieName = cfg.Name
	}
	if cfg.QueryName == "" {
		cfg.QueryName = cfg.Name
	}

	h := &StoreHandler{
		store:  store,
		req:    req,
		cfg:    cfg,
		out:    discardIDWriter{},
		clock:  SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *StoreHandler) Bind(data *Container, timer RotationTimer) {
	h.data = data
	h.timer = timer
}

func (h *StoreHandler) ID() string {
	return h.id
}

func (h *StoreHandler) SetID(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: malformed session id", ErrInvalidArgument)
	}
	h.id = id
	return nil
}

func (h *StoreHandler) Name() string {
	return h.cfg.Name
}

// SetName renames the session and every transport it is carried in.
func (h *StoreHandler) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty handler name", ErrInvalidConfig)
	}
	h.cfg.Name = name
	h.cfg.FieldName = name
	h.cfg.CookieName = name
	h.cfg.QueryName = name
	return nil
}

func (h *StoreHandler) Status() Status {
	switch {
	case h.store == nil:
		return StatusDisabled
	case h.active:
		return StatusActive
	default:
		return StatusNone
	}
}

func (h *StoreHandler) ready() error {
	if h.store == nil {
		return fmt.Errorf("%w: sessions are disabled", ErrUnsupportedOperation)
	}
	if h.data == nil {
		return fmt.Errorf("%w: handler is not bound to a session", ErrInvalidConfig)
	}
	return nil
}

func (h *StoreHandler) Create(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	h.data.Clear()
	return h.allocate(ctx)
}

func (h *StoreHandler) Start(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}

	id := h.req.lookupID(h.cfg.FieldName, h.cfg.CookieName, h.cfg.QueryName)
	if !ValidID(id) {
		h.data.Clear()
		return h.allocate(ctx)
	}

	h.id = id
	found, err := h.load(ctx)
	if err != nil {
		h.id = ""
		return err
	}
	if !found {
		return h.allocate(ctx)
	}

	h.active = true
	return nil
}

func (h *StoreHandler) Read(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	if h.id == "" {
		return ErrNotStarted
	}
	_, err := h.load(ctx)
	return err
}

// load reads the payload for the current id into the Container. It reports
// false, with an empty Container, when nothing usable was stored.
func (h *StoreHandler) load(ctx context.Context) (bool, error) {
	payload, err := h.store.Get(ctx, h.id)
	if err != nil {
		h.data.Clear()
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if errors.Is(err, storage.ErrInvalidRecord) {
			h.reject(ctx, "missing", err)
			return false, nil
		}
		h.metrics.StoreFailure("read")
		h.logger.ErrorContext(ctx, "failed to read session", slog.String("error", err.Error()))
		return false, err
	}

	if reason, err := h.validate(payload); err != nil {
		h.data.Clear()
		h.reject(ctx, reason, err)
		return false, nil
	}

	h.data.Replace(payload.Data)
	if payload.Security.RT != 0 {
		h.timer.SetRotationDeadline(payload.Security.RT)
	}
	return true, nil
}

func (h *StoreHandler) reject(ctx context.Context, reason string, err error) {
	h.metrics.PayloadRejected(reason)
	h.logger.DebugContext(ctx, "session payload rejected",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

// validate returns a metrics reason label together with the error.
func (h *StoreHandler) validate(p types.Payload) (string, error) {
	if !p.Valid() {
		return "missing", fmt.Errorf("%w: %w", ErrValidation, ErrPayloadMissing)
	}

	sec := p.Security
	if sec.EX != 0 && h.clock.Now().Unix() > sec.EX {
		return "expired", fmt.Errorf("%w: %w", ErrValidation, ErrPayloadExpired)
	}
	if sec.ID != h.id {
		return "identity", fmt.Errorf("%w: %w", ErrValidation, ErrIdentityMismatch)
	}
	if h.cfg.MatchIP && sec.IP != h.req.RemoteAddr {
		return "fingerprint", fmt.Errorf("%w: %w: ip", ErrValidation, ErrFingerprintMismatch)
	}
	if h.cfg.MatchUA && sec.UA != h.req.UserAgent {
		return "fingerprint", fmt.Errorf("%w: %w: user agent", ErrValidation, ErrFingerprintMismatch)
	}
	return "", nil
}

// allocate hands the request a brand-new identifier.
func (h *StoreHandler) allocate(ctx context.Context) error {
	if h.guard != nil {
		if err := h.guard(ctx); err != nil {
			return err
		}
	}

	id, err := generateID()
	if err != nil {
		return err
	}
	h.id = id
	h.active = true
	h.sendID()
	h.metrics.SessionCreated()
	return nil
}

func (h *StoreHandler) sendID() {
	h.out.WriteID(h.cfg.CookieName, h.id, h.cfg.CookieLifetime)
	h.sent = true
}

func (h *StoreHandler) Write(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	if !h.active || h.id == "" {
		return ErrNotStarted
	}

	now := h.clock.Now()
	sec := &types.Security{
		ID: h.id,
		IP: h.req.RemoteAddr,
		UA: h.req.UserAgent,
		RT: h.timer.RotationDeadline(),
	}
	if h.cfg.Expiration > 0 {
		sec.EX = now.Add(h.cfg.Expiration).Unix()
	}

	payload := types.Payload{Data: h.data.All(), Security: sec}
	if err := h.store.Save(ctx, h.id, payload, h.cfg.Expiration); err != nil {
		h.metrics.StoreFailure("write")
		h.logger.ErrorContext(ctx, "failed to write session", slog.String("error", err.Error()))
		return err
	}

	// A persistent cookie is re-sent so its max age slides with the payload.
	if h.cfg.CookieLifetime > 0 && !h.sent {
		h.sendID()
	}

	if h.retired != "" {
		if err := h.store.Delete(ctx, h.retired); err != nil {
			h.metrics.StoreFailure("delete")
			h.logger.ErrorContext(ctx, "failed to delete rotated session", slog.String("error", err.Error()))
			return err
		}
		h.retired = ""
	}
	return nil
}

func (h *StoreHandler) Stop(ctx context.Context) error {
	if err := h.Write(ctx); err != nil {
		return err
	}
	h.active = false
	return nil
}

// RegenerateID swaps the identifier. The bound data is persisted under the
// new id on the next Write, and only then is the old payload deleted.
func (h *StoreHandler) RegenerateID(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	if !h.active || h.id == "" {
		return ErrNotStarted
	}

	id, err := generateID()
	if err != nil {
		return err
	}

	if h.retired == "" {
		h.retired = h.id
	}
	h.id = id
	h.sendID()
	return nil
}

func (h *StoreHandler) GC(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	if err := h.store.Cleanup(ctx); err != nil {
		h.metrics.StoreFailure("gc")
		return err
	}
	return nil
}

func (h *StoreHandler) Destroy(ctx context.Context) error {
	if err := h.ready(); err != nil {
		return err
	}

	h.data.Clear()
	h.out.ClearID(h.cfg.CookieName)
	h.active = false

	ids := []string{h.id, h.retired}
	h.id = ""
	h.retired = ""
	h.sent = false
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := h.store.Delete(ctx, id); err != nil {
			h.metrics.StoreFailure("delete")
			return err
		}
	}
	return nil
}
