package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minus-twelve/satchel/types"
)

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore dials cfg.Addr and fails if the server does not answer PING.
func NewRedisStore(ctx context.Context, cfg types.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client. Only Prefix and TTL are
// read from cfg.
func NewRedisStoreWithClient(client *redis.Client, cfg types.RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "sess:"
	}
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisStore) Save(ctx context.Context, id string, payload types.Payload, ttl time.Duration) error {
	if id == "" {
		return ErrEmptyID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = r.ttl
	}
	if ttl <= 0 {
		return r.client.Set(ctx, r.key(id), data, 0).Err()
	}
	return r.client.SetEx(ctx, r.key(id), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (types.Payload, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Payload{}, ErrNotFound
		}
		return types.Payload{}, err
	}

	var payload types.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return types.Payload{}, errors.Join(ErrInvalidRecord, err)
	}

	return payload, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// Cleanup is a no-op: redis evicts keys through their TTL.
func (r *RedisStore) Cleanup(ctx context.Context) error {
	return nil
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
