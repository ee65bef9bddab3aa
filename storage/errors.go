package storage

import "errors"

var (
	ErrNotFound      = errors.New("storage: session not found")
	ErrEmptyID       = errors.New("storage: empty session id")
	ErrInvalidRecord = errors.New("storage: invalid session record")
)
