package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/minus-twelve/satchel/types"
)

type memoryEntry struct {
	data      []byte
	savedAt   time.Time
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps encoded payloads in process memory. Payloads are stored
// in their JSON form so readers never share maps with the writer.
type MemoryStore struct {
	sessions    map[string]memoryEntry
	mutex       sync.RWMutex
	maxSessions int
	now         func() time.Time
}

func NewMemoryStore(maxSessions int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]memoryEntry),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, id string, payload types.Payload, ttl time.Duration) error {
	if id == "" {
		return ErrEmptyID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	if _, exists := s.sessions[id]; !exists && s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		delete(s.sessions, s.findOldestSession())
	}

	entry := memoryEntry{data: data, savedAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.sessions[id] = entry

	return nil
}

// findOldestSession prefers an already expired entry, then the least
// recently saved one.
func (s *MemoryStore) findOldestSession() string {
	var oldestID string
	var oldestTime time.Time
	now := s.now()

	for id, entry := range s.sessions {
		if entry.expired(now) {
			return id
		}
		if oldestID == "" || entry.savedAt.Before(oldestTime) {
			oldestID = id
			oldestTime = entry.savedAt
		}
	}
	return oldestID
}

func (s *MemoryStore) Get(ctx context.Context, id string) (types.Payload, error) {
	s.mutex.RLock()
	entry, exists := s.sessions[id]
	s.mutex.RUnlock()

	if !exists || entry.expired(s.now()) {
		return types.Payload{}, ErrNotFound
	}

	var payload types.Payload
	if err := json.Unmarshal(entry.data, &payload); err != nil {
		return types.Payload{}, errors.Join(ErrInvalidRecord, err)
	}
	return payload, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for id, entry := range s.sessions {
		if entry.expired(now) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Len returns the number of stored payloads, expired ones included.
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}
