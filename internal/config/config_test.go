package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REMOTE_TIMEOUT_SECONDS", "SNAPSHOT_TTL_SECONDS", "ACCESS_TOKEN_TTL_MINUTES", "REFRESH_SCHEDULE", "LOG_PRETTY", "SELLS_BACKEND_URL", "BOOKS_BACKEND_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 30*time.Second, cfg.SnapshotTTL)
	assert.Equal(t, 480, cfg.AccessTokenTTLMinutes)
	assert.Equal(t, "@every 60s", cfg.RefreshSchedule)
	assert.False(t, cfg.LogPretty)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("SNAPSHOT_TTL_SECONDS", "0")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "abc")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.SnapshotTTL)
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 480, cfg.AccessTokenTTLMinutes)
}

func TestAllowedOriginsSplitsList(t *testing.T) {
	cfg := Config{AllowedOrigin: " http://a.test , ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}

func TestRemoteEnabledNeedsBothBackends(t *testing.T) {
	assert.False(t, Config{SellsBackendURL: "http://sells"}.RemoteEnabled())
	assert.True(t, Config{SellsBackendURL: "http://sells", BooksBackendURL: "http://books"}.RemoteEnabled())
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PDF_COMPANY=Radheshyam Industries\nPORT=9090\n"), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("PDF_COMPANY", "")
	require.NoError(t, os.Unsetenv("PDF_COMPANY"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv("PDF_COMPANY") })

	cfg := Load()
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "Radheshyam Industries", cfg.PDFCompany)
}
