package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/types"
)

// isolate keeps the test from picking up real config files or env vars.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, ".local", "share"))
	for _, key := range []string{
		"PARLEY_CONFIG", "PARLEY_CONFIG_CONTENT", "PARLEY_MASTER_SECRET",
		"PARLEY_DATA_DIR", "PARLEY_PORT", "PARLEY_HOSTNAME", "PARLEY_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return tmpDir
}

func writeGlobalConfig(t *testing.T, tmpDir, name, content string) string {
	t.Helper()
	path := filepath.Join(tmpDir, ".config", "parley", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4747, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Hostname)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadGlobalConfigFile(t *testing.T) {
	tmpDir := isolate(t)
	writeGlobalConfig(t, tmpDir, "parley.json", `{
		"masterSecret": "from-file",
		"port": 9090,
		"provider": {
			"ollama": {"baseURL": "http://gpu-box:11434/v1"}
		}
	}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.MasterSecret)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://gpu-box:11434/v1", cfg.Provider["ollama"].BaseURL)
}

func TestLoadJSONCComments(t *testing.T) {
	tmpDir := isolate(t)
	writeGlobalConfig(t, tmpDir, "parley.jsonc", `{
		// listen on all interfaces
		"hostname": "0.0.0.0",
		"port": 8080, // trailing comma comment
	}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Hostname)
	assert.Equal(t, 8080, cfg.Port)
}

func TestEnvInterpolation(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("TEST_PARLEY_SECRET", "interpolated-secret")
	writeGlobalConfig(t, tmpDir, "parley.json", `{
		"masterSecret": "{env:TEST_PARLEY_SECRET}"
	}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "interpolated-secret", cfg.MasterSecret)
}

func TestConfigFileOverride(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logLevel": "debug"}`), 0o644))
	t.Setenv("PARLEY_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestInlineConfigContent(t *testing.T) {
	isolate(t)
	t.Setenv("PARLEY_CONFIG_CONTENT", `{"port": 5555}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5555, cfg.Port)
}

func TestEnvOverridesWinOverFiles(t *testing.T) {
	tmpDir := isolate(t)
	writeGlobalConfig(t, tmpDir, "parley.json", `{"port": 9090, "masterSecret": "file"}`)
	t.Setenv("PARLEY_PORT", "7070")
	t.Setenv("PARLEY_MASTER_SECRET", "env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "env", cfg.MasterSecret)
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "nested", "parley.json")

	cfg := &types.Config{MasterSecret: "saved", Port: 1234}
	require.NoError(t, Save(cfg, path))

	loaded := &types.Config{}
	require.NoError(t, LoadFile(path, loaded))
	assert.Equal(t, "saved", loaded.MasterSecret)
	assert.Equal(t, 1234, loaded.Port)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "parley.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 1111}`), 0o644))

	reloaded := make(chan *types.Config, 4)
	w, err := NewWatcher(path, func(cfg *types.Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	// Give the watch loop a moment before mutating the file.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 2222}`), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 2222, cfg.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
