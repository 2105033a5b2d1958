package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadHTTPPort(t *testing.T) {
	cfg := Default()
	cfg.HTTPPort = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}

func TestLoadWithNoSourcesReturnsDefaults(t *testing.T) {
	cfg, err := Load("", nil, nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_tasks: 7\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxTasks)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().HTTPPort, cfg.HTTPPort)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_tasks: 7\n"), 0o644))

	t.Setenv("MEDIASRV_MAX_TASKS", "9")

	cfg, err := Load(path, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.MaxTasks)
}

func TestLoadFlagOverridesEnvAndYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_tasks: 7\n"), 0o644))
	t.Setenv("MEDIASRV_MAX_TASKS", "9")

	fs, v := FlagSet("test")
	require.NoError(t, fs.Parse([]string{"-max-tasks", "11"}))

	cfg, err := Load(path, fs, v)
	require.NoError(t, err)
	require.Equal(t, 11, cfg.MaxTasks)
}

func TestLoadUnsetFlagDoesNotClobberLowerLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_tasks: 7\n"), 0o644))

	fs, v := FlagSet("test")
	require.NoError(t, fs.Parse([]string{"-log-level", "debug"}))

	cfg, err := Load(path, fs, v)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxTasks)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestFlagSetBindsConfigPath(t *testing.T) {
	fs, v := FlagSet("test")
	require.NoError(t, fs.Parse([]string{"-config", "/etc/mediasrv/config.yaml"}))
	require.Equal(t, "/etc/mediasrv/config.yaml", v.ConfigPath())
}

func TestLoadRejectsInvalidResultAfterMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: nonsense\n"), 0o644))

	_, err := Load(path, nil, nil)
	require.Error(t, err)
}

func TestDefaultDurationsMatchDocumentedValues(t *testing.T) {
	d := Default()
	require.Equal(t, time.Second, d.CheckInterval)
	require.Equal(t, 3*time.Second, d.Timeout)
}
