package flow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otm.relay/config"
	"otm.relay/internal/api"
	"otm.relay/internal/client"
	"otm.relay/internal/flow"
	"otm.relay/internal/logging"
	"otm.relay/internal/metrics"
	"otm.relay/internal/store"
)

// relay starts the real router over a memory store and returns a client for it.
func relay(t *testing.T, s store.Store) *client.Client {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	log := logging.Discard()

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(s, metrics.New(), log), cfg, log))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestEndToEnd_FragmentSecret(t *testing.T) {
	c := relay(t, store.NewMemoryStore(store.Options{}))
	ctx := context.Background()

	sent, err := flow.NewSender(c, "https://otm.example").Send(ctx, flow.SendRequest{
		Message: "hello",
		Expiry:  flow.Expiry1h,
	})
	require.NoError(t, err)
	require.False(t, sent.PasswordProtected)

	id, secret := flow.ParseLink(sent.Link)
	require.Equal(t, sent.ID, id)
	require.Equal(t, sent.Secret, secret)

	r := flow.NewReceiver(c)
	got, err := r.Receive(ctx, id, secret)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Plaintext)
	assert.NoError(t, got.BurnErr)
	assert.Equal(t, flow.BurnDeleted, r.State().BurnStatus)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *got.ExpiresAt, time.Minute)

	// Burned: the same link now reports not found.
	_, err = r.Receive(ctx, id, secret)
	assert.ErrorIs(t, err, flow.ErrNotFound)
}

func TestEndToEnd_WrongPasswordLeavesMessage(t *testing.T) {
	c := relay(t, store.NewMemoryStore(store.Options{}))
	ctx := context.Background()

	sent, err := flow.NewSender(c, "https://otm.example").Send(ctx, flow.SendRequest{
		Message:         "hello",
		Password:        "pw1",
		ConfirmPassword: "pw1",
	})
	require.NoError(t, err)
	require.True(t, sent.PasswordProtected)

	id, secret := flow.ParseLink(sent.Link)
	require.Empty(t, secret)

	r := flow.NewReceiver(c)
	_, err = r.Receive(ctx, id, "pw2")
	assert.ErrorIs(t, err, flow.ErrWrongKey)

	// No burn happened, so the right password still works.
	got, err := r.Receive(ctx, id, "pw1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Plaintext)
}

func TestEndToEnd_ExpiredLooksLikeNotFound(t *testing.T) {
	c := relay(t, store.NewMemoryStore(store.Options{}))
	ctx := context.Background()

	past := time.Now().Add(-time.Second)
	id, err := c.CreateMessage(ctx, "U2FsdGVkX1+whatever", &past)
	require.NoError(t, err)

	_, err = c.GetMessage(ctx, id)
	assert.Equal(t, http.StatusGone, client.StatusCode(err))

	_, err = flow.NewReceiver(c).Receive(ctx, id, "pw1")
	assert.ErrorIs(t, err, flow.ErrNotFound)
}

// burnFails lets reads through but refuses every delete.
type burnFails struct {
	store.Store
}

func (burnFails) Delete(context.Context, string) error {
	return assert.AnError
}

func TestEndToEnd_BurnFailure(t *testing.T) {
	c := relay(t, burnFails{store.NewMemoryStore(store.Options{})})
	ctx := context.Background()

	sent, err := flow.NewSender(c, "https://otm.example").Send(ctx, flow.SendRequest{Message: "hello"})
	require.NoError(t, err)

	r := flow.NewReceiver(c)
	got, err := r.Receive(ctx, sent.ID, sent.Secret)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Plaintext)
	assert.ErrorIs(t, got.BurnErr, flow.ErrBurnFailed)
	assert.Equal(t, http.StatusInternalServerError, client.StatusCode(got.BurnErr))
	assert.Equal(t, flow.BurnError, r.State().BurnStatus)
}
