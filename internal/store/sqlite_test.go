package store

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSQLiteStore opens a named shared in-memory database. The name is
// derived from t.Name() so tests stay isolated.
func newTestSQLiteStore(t *testing.T, clock *fakeClock) Store {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		url.PathEscape(t.Name()),
	)
	s, err := openSQLite(dsn, 4, Options{Clock: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, newTestSQLiteStore)
}

func TestSQLiteStore_FileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otm.db")
	clock := newFakeClock()
	ctx := context.Background()

	s, err := NewSQLiteStore(path, 2, Options{Clock: clock.Now})
	require.NoError(t, err)

	exp := clock.Now().Add(6 * time.Hour)
	id, err := s.Create(ctx, "persisted", &exp)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening re-runs migrations, which must be a no-op.
	s, err = NewSQLiteStore(path, 2, Options{Clock: clock.Now})
	require.NoError(t, err)
	defer s.Close()

	msg, err := s.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", msg.EncryptedData)
	require.NotNil(t, msg.ExpiresAt)
	assert.True(t, exp.Equal(*msg.ExpiresAt))
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestSQLiteStore(t, newFakeClock())
	assert.NoError(t, s.Ping(context.Background()))
}
