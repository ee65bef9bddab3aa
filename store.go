package satchel

import (
	"context"
	"time"

	"github.com/minus-twelve/satchel/types"
)

// Store persists payloads by session identifier. A ttl of zero leaves the
// lifetime to the driver's own default.
type Store interface {
	Save(ctx context.Context, id string, payload types.Payload, ttl time.Duration) error
	Get(ctx context.Context, id string) (types.Payload, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context) error
}
