package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duelcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, 1000, cfg.MaxSteps)
	require.Equal(t, 256, cfg.CycleHistory)
	require.NotEmpty(t, cfg.ReplayDir)
	require.Empty(t, cfg.MetricsAddr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
log_format: json
max_steps: 50
replay_dir: /tmp/replays
metrics_addr: ":9090"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 50, cfg.MaxSteps)
	require.Equal(t, 256, cfg.CycleHistory, "unset fields keep defaults")
	require.Equal(t, "/tmp/replays", cfg.ReplayDir)
	require.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "max_steps: 50\nlog_level: debug\n")
	t.Setenv("DUELCORE_MAX_STEPS", "75")
	t.Setenv("DUELCORE_LOG_FORMAT", "json")
	t.Setenv("DUELCORE_METRICS_ADDR", "localhost:2112")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 75, cfg.MaxSteps)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "localhost:2112", cfg.MetricsAddr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "max_steps: [1, 2]\n"))
	require.ErrorContains(t, err, "parsing config")

	_, err = Load(writeConfig(t, "log_format: xml\n"))
	require.ErrorContains(t, err, "LogFormat")

	_, err = Load(writeConfig(t, "max_steps: 0\n"))
	require.ErrorContains(t, err, "MaxSteps")

	_, err = Load(writeConfig(t, "metrics_addr: nowhere\n"))
	require.ErrorContains(t, err, "MetricsAddr")

	t.Setenv("DUELCORE_CYCLE_HISTORY", "lots")
	_, err = Load("")
	require.ErrorContains(t, err, "DUELCORE_CYCLE_HISTORY")
}
