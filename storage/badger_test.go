package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minus-twelve/satchel/types"
)

func newBadgerStoreTest(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(types.BadgerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_SaveGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newBadgerStoreTest(t)

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

func TestBadgerStore_Overwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newBadgerStoreTest(t)

	require.NoError(t, s.Save(ctx, "a", testPayload("a"), 0))
	p := testPayload("a")
	p.Data["default.user"] = "grace"
	require.NoError(t, s.Save(ctx, "a", p, 0))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "grace", got.Data["default.user"])
}

func TestBadgerStore_CleanupInMemory(t *testing.T) {
	t.Parallel()

	s := newBadgerStoreTest(t)
	assert.NoError(t, s.Cleanup(context.Background()))
}
