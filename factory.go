package satchel

import (
	"context"
	"fmt"

	"github.com/minus-twelve/satchel/storage"
)

// CreateStore builds the storage driver named by cfg.StoreType.
func CreateStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.StoreType {
	case "memory":
		return storage.NewMemoryStore(cfg.Memory.MaxSessions), nil
	case "redis":
		redisCfg := cfg.Redis
		if redisCfg.TTL == 0 {
			redisCfg.TTL = cfg.Expiration()
		}
		return storage.NewRedisStore(ctx, redisCfg)
	case "badger":
		return storage.NewBadgerStore(cfg.Badger)
	default:
		return nil, fmt.Errorf("%w: invalid store type %q", ErrInvalidConfig, cfg.StoreType)
	}
}
