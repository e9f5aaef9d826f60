package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFactory func(t *testing.T, clock *fakeClock) Store

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("CreateFetchDelete", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		id, err := s.Create(ctx, "ct1", nil)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		msg, err := s.Fetch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, "ct1", msg.EncryptedData)
		assert.Nil(t, msg.ExpiresAt)
		assert.True(t, clock.Now().Equal(msg.CreatedAt))

		require.NoError(t, s.Delete(ctx, id))

		_, err = s.Fetch(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteTwiceReportsAlreadyGone", func(t *testing.T) {
		s := newStore(t, newFakeClock())

		id, err := s.Create(ctx, "ct", nil)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, id))
		assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
	})

	t.Run("DeleteUnknown", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		assert.ErrorIs(t, s.Delete(ctx, "no-such-id"), ErrNotFound)
	})

	t.Run("FetchUnknown", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		_, err := s.Fetch(ctx, "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("RejectsEmptyCiphertext", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		_, err := s.Create(ctx, "", nil)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})

	t.Run("FetchDoesNotBurn", func(t *testing.T) {
		s := newStore(t, newFakeClock())

		id, err := s.Create(ctx, "ct", nil)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := s.Fetch(ctx, id)
			require.NoError(t, err)
		}
	})

	t.Run("ExpiredOnReadIsDeleted", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		past := clock.Now().Add(-time.Second)
		id, err := s.Create(ctx, "ct", &past)
		require.NoError(t, err)

		_, err = s.Fetch(ctx, id)
		assert.ErrorIs(t, err, ErrExpired)

		_, err = s.Fetch(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ExpiryBoundaryCountsAsExpired", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)

		exp := clock.Now().Add(time.Hour)
		id, err := s.Create(ctx, "ct", &exp)
		require.NoError(t, err)

		msg, err := s.Fetch(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, msg.ExpiresAt)
		assert.True(t, exp.Equal(*msg.ExpiresAt))

		clock.Advance(time.Hour)
		_, err = s.Fetch(ctx, id)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("IDsAreUnique", func(t *testing.T) {
		s := newStore(t, newFakeClock())

		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			id, err := s.Create(ctx, "ct", nil)
			require.NoError(t, err)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	})

	t.Run("PurgeRemovesOnlyLongExpired", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)
		p, ok := s.(purger)
		require.True(t, ok)

		old := clock.Now().Add(-48 * time.Hour)
		recent := clock.Now().Add(-time.Minute)
		future := clock.Now().Add(time.Hour)

		oldID, err := s.Create(ctx, "old", &old)
		require.NoError(t, err)
		recentID, err := s.Create(ctx, "recent", &recent)
		require.NoError(t, err)
		futureID, err := s.Create(ctx, "future", &future)
		require.NoError(t, err)
		foreverID, err := s.Create(ctx, "forever", nil)
		require.NoError(t, err)

		n, err := p.purgeExpired(ctx, clock.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.Fetch(ctx, oldID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Fetch(ctx, recentID)
		assert.ErrorIs(t, err, ErrExpired)
		_, err = s.Fetch(ctx, futureID)
		assert.NoError(t, err)
		_, err = s.Fetch(ctx, foreverID)
		assert.NoError(t, err)
	})
}
