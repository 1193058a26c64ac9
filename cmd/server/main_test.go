package main

import (
	"testing"
	"time"

	"today-dashboard-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_Success(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_ID", "test-client-id")
	t.Setenv("GOOGLE_OAUTH_CLIENT_SECRET", "test-client-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "http://test/callback")
	t.Setenv("API_PORT", "8181")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	logger := zap.NewNop()

	st, err := store.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)

	server, appWorker, err := run(logger, st)
	require.NoError(t, err)
	require.NotNil(t, server)
	require.NotNil(t, appWorker)

	// Give the worker goroutine a moment to come up before stopping it.
	time.Sleep(50 * time.Millisecond)
	appWorker.Stop()

	assert.Equal(t, ":8181", server.Addr)
	assert.NotNil(t, server.Handler)

	assert.NoError(t, st.Close())
}

func TestRun_MissingOAuthEnv(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_ID", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_SECRET", "")
	t.Setenv("OAUTH_REDIRECT_URL", "")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	logger := zap.NewNop()

	st, err := store.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)
	defer st.Close()

	server, appWorker, err := run(logger, st)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "google OAuth configuration missing")
	assert.Nil(t, server)
	assert.Nil(t, appWorker)
}
