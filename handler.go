package satchel

import "context"

// Status is the lifecycle state reported by a Handler.
type Status int

const (
	// StatusDisabled means the handler cannot serve sessions at all.
	StatusDisabled Status = iota
	// StatusNone means no session is open for this request.
	StatusNone
	// StatusActive means a session is open and its data is bound.
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusNone:
		return "none"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// RotationTimer is the view of the coordinator a handler may use to persist
// and restore the identifier rotation deadline.
type RotationTimer interface {
	RotationDeadline() int64
	SetRotationDeadline(unix int64)
}

// Handler persists session payloads and owns identifier transport. A Session
// binds its Container and itself as RotationTimer before any other call; the
// handler must not retain either beyond the Session's lifetime.
type Handler interface {
	Bind(data *Container, timer RotationTimer)

	ID() string
	SetID(id string) error
	Name() string
	SetName(name string) error
	Status() Status

	// RegenerateID replaces the identifier while keeping the bound data.
	RegenerateID(ctx context.Context) error
	// Create allocates a fresh identifier without reading stored data.
	Create(ctx context.Context) error
	// Start resolves the request identifier and reads its payload.
	Start(ctx context.Context) error
	// Read loads the stored payload into the bound Container. Payloads that
	// fail validation leave the Container empty and are not an error.
	Read(ctx context.Context) error
	// Write persists the bound Container's pruned snapshot.
	Write(ctx context.Context) error
	// Stop writes and closes the session.
	Stop(ctx context.Context) error
	// GC removes expired payloads from storage.
	GC(ctx context.Context) error
	// Destroy clears the transported identifier and the stored payload.
	Destroy(ctx context.Context) error
}
