package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otm.relay/config"
	"otm.relay/internal/api"
	"otm.relay/internal/flow"
	"otm.relay/internal/logging"
	"otm.relay/internal/metrics"
	"otm.relay/internal/store"
)

func startRelay(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	log := logging.Discard()
	h := api.NewHandler(store.NewMemoryStore(store.Options{}), metrics.New(), log)
	srv := httptest.NewServer(api.NewRouter(h, cfg, log))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := newApp(strings.NewReader(stdin), &out, &errOut).Run(append([]string{"otm"}, args...))
	return out.String(), errOut.String(), err
}

func TestSendReceive(t *testing.T) {
	server := startRelay(t)

	out, _, err := runApp(t, "", "--server", server, "--base-url", "https://otm.example", "send", "hello", "world")
	require.NoError(t, err)
	link := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(link, "https://otm.example/"))
	assert.Contains(t, link, "#")

	out, errOut, err := runApp(t, "", "--server", server, "receive", link)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
	assert.Empty(t, errOut)

	_, _, err = runApp(t, "", "--server", server, "receive", link)
	assert.ErrorIs(t, err, flow.ErrNotFound)
}

func TestSendFromStdinWithPassword(t *testing.T) {
	server := startRelay(t)

	out, errOut, err := runApp(t, "from stdin\n", "--server", server, "send", "--password", "pw1", "--expires", "1h")
	require.NoError(t, err)
	link := strings.TrimSpace(out)
	assert.NotContains(t, link, "#")
	assert.True(t, strings.HasPrefix(link, server+"/"))
	assert.Contains(t, errOut, "share the password")

	_, _, err = runApp(t, "", "--server", server, "receive", link)
	assert.ErrorIs(t, err, flow.ErrMissingSecret)

	_, _, err = runApp(t, "", "--server", server, "receive", "--password", "pw2", link)
	assert.ErrorIs(t, err, flow.ErrWrongKey)

	out, _, err = runApp(t, "", "--server", server, "receive", "-p", "pw1", link)
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", out)
}

func TestReceivePromptsForPassword(t *testing.T) {
	server := startRelay(t)

	out, _, err := runApp(t, "", "--server", server, "send", "--password", "pw1", "prompted")
	require.NoError(t, err)
	link := strings.TrimSpace(out)

	out, errOut, err := runApp(t, "pw1\r\n", "--server", server, "receive", link)
	require.NoError(t, err)
	assert.Equal(t, "prompted\n", out)
	assert.Contains(t, errOut, "Password: ")
}

func TestReceiveDoesNotPromptWithFragment(t *testing.T) {
	server := startRelay(t)

	out, _, err := runApp(t, "", "--server", server, "send", "no prompt")
	require.NoError(t, err)

	_, errOut, err := runApp(t, "ignored\n", "--server", server, "receive", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.NotContains(t, errOut, "Password")
}

func TestSendRejectsBadInput(t *testing.T) {
	server := startRelay(t)

	_, _, err := runApp(t, "", "--server", server, "send", "--expires", "2w", "hello")
	assert.ErrorContains(t, err, "unknown expiry")

	_, _, err = runApp(t, "", "--server", server, "send")
	assert.ErrorIs(t, err, flow.ErrEmptyMessage)

	_, _, err = runApp(t, "", "--server", server, "receive")
	assert.Error(t, err)
}
