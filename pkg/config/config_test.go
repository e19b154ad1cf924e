package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendCSV, cfg.Ledger.Backend)
	require.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
	require.Equal(t, int64(10*1024*1024), cfg.Import.MaxFileSizeBytes)
	require.False(t, cfg.Sync.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LEDGER_BACKEND", "SQLite")
	t.Setenv("LEDGER_LOCK_TIMEOUT", "750ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, cfg.Ledger.Backend)
	require.Equal(t, 750*time.Millisecond, cfg.Ledger.LockTimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsIncompleteSyncConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("SYNC_DRIVER", "s3")

	_, err := Load()
	require.Error(t, err)
}

func TestParseDurationFallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("", time.Minute))
	require.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	require.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
