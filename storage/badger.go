package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/minus-twelve/satchel/types"
)

// BadgerStore persists payloads in an embedded badger database. Expiry is
// delegated to badger entry TTLs.
type BadgerStore struct {
	db     *badgerdb.DB
	prefix string
}

func NewBadgerStore(cfg types.BadgerConfig) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, err
	}

	return NewBadgerStoreWithDB(db, cfg.Prefix), nil
}

func NewBadgerStoreWithDB(db *badgerdb.DB, prefix string) *BadgerStore {
	if prefix == "" {
		prefix = "sess:"
	}
	return &BadgerStore{db: db, prefix: prefix}
}

func (s *BadgerStore) key(id string) []byte {
	return []byte(s.prefix + id)
}

func (s *BadgerStore) Save(ctx context.Context, id string, payload types.Payload, ttl time.Duration) error {
	if id == "" {
		return ErrEmptyID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry(s.key(id), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (types.Payload, error) {
	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
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

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(s.key(id))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Cleanup reclaims value log space left by expired and deleted entries.
func (s *BadgerStore) Cleanup(ctx context.Context) error {
	if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) && !errors.Is(err, badgerdb.ErrGCInMemoryMode) {
		return err
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
