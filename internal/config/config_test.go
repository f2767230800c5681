package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.APIAddr)
	require.Equal(t, "medreport", cfg.TemporalTaskQueue)
	require.Equal(t, 10, cfg.MaxUploadMB)
	require.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	require.Equal(t, 90*time.Second, cfg.RequestTimeout())
	require.Equal(t, 12, cfg.HistoryLimit)
	require.False(t, cfg.InferenceEnabled())
	require.Equal(t, filepath.Join("data", "out", "reports"), filepath.Clean(cfg.ReportsDir()))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MEDREPORT_API_ADDR", ":9090")
	t.Setenv("MEDREPORT_ARTIFACTS_DIR", "/srv/models")
	t.Setenv("MEDREPORT_MAX_UPLOAD_MB", "25")
	t.Setenv("MEDREPORT_LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.APIAddr)
	require.True(t, cfg.InferenceEnabled())
	require.Equal(t, 25, cfg.MaxUploadMB)
	require.True(t, cfg.LogPretty)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("MEDREPORT_REQUEST_TIMEOUT_SECONDS", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateLogLevel(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.LogLevel = "chatty"
	require.Error(t, cfg.Validate())
}
