package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minus-twelve/satchel/types"
)

func testPayload(id string) types.Payload {
	return types.Payload{
		Data: map[string]interface{}{
			"default.user": "ada",
			"__EXPIRATION__": map[string]interface{}{
				"default.user": []interface{}{"on_get", "new"},
			},
		},
		Security: &types.Security{ID: id, IP: "203.0.113.7", UA: "test", EX: 1700000000, RT: 1700000300},
	}
}

func TestMemoryStore_SaveGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(0)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, "", testPayload(""), 0), ErrEmptyID)

	require.NoError(t, s.Save(ctx, "a", testPayload("a"), time.Hour))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, testPayload("a"), got)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(0)
	p := testPayload("a")
	require.NoError(t, s.Save(ctx, "a", p, 0))

	p.Data["default.user"] = "mutated"
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Data["default.user"] = "mutated again"

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ada", again.Data["default.user"])
}

func TestMemoryStore_TTLAndCleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "short", testPayload("short"), time.Minute))
	require.NoError(t, s.Save(ctx, "forever", testPayload("forever"), 0))

	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, s.Len(), "expired entries linger until cleanup")

	require.NoError(t, s.Cleanup(ctx))
	assert.Equal(t, 1, s.Len())
	_, err = s.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryStore_MaxSessionsEvictsOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(2)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "a", testPayload("a"), 0))
	now = now.Add(time.Second)
	require.NoError(t, s.Save(ctx, "b", testPayload("b"), 0))
	now = now.Add(time.Second)
	require.NoError(t, s.Save(ctx, "a", testPayload("a"), 0), "overwrite does not evict")
	assert.Equal(t, 2, s.Len())

	now = now.Add(time.Second)
	require.NoError(t, s.Save(ctx, "c", testPayload("c"), 0))
	assert.Equal(t, 2, s.Len())

	_, err := s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryStore_FullStoreAlwaysAcceptsNewSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(1)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, id, testPayload(id), time.Hour))
		assert.Equal(t, 1, s.Len())
	}
	_, err := s.Get(ctx, "c")
	assert.NoError(t, err)
}
