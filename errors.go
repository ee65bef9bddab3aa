package satchel

import "errors"

var (
	// ErrInvalidConfig is returned for unusable construction parameters such
	// as an empty namespace or handler name.
	ErrInvalidConfig = errors.New("satchel: invalid config")

	// ErrInvalidArgument is returned for an unknown expiration policy or an
	// empty key.
	ErrInvalidArgument = errors.New("satchel: invalid argument")

	// ErrUnsupportedOperation is returned when a handler cannot serve a call.
	ErrUnsupportedOperation = errors.New("satchel: unsupported operation")

	// ErrValidation wraps every reason a stored payload is rejected. It never
	// escapes Start or Read; the session proceeds empty instead.
	ErrValidation = errors.New("satchel: payload validation failed")

	ErrPayloadMissing      = errors.New("payload is missing a section")
	ErrPayloadExpired      = errors.New("payload expired")
	ErrFingerprintMismatch = errors.New("client fingerprint mismatch")
	ErrIdentityMismatch    = errors.New("stored id does not match request id")

	// ErrNotStarted is returned by handler operations that need an
	// identifier before one was allocated.
	ErrNotStarted = errors.New("satchel: session not started")
)
