package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		unsetEnv(t, "BACKEND_URL")

		conf, err := Load(filepath.Join(t.TempDir(), "config.yml"))

		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000", conf.BackendURL)
		assert.Equal(t, time.Second, conf.ReconnectDelay)
		assert.Equal(t, 2500*time.Millisecond, conf.NoticeTTL)
		assert.Equal(t, 5*time.Second, conf.FallbackTimeout)
		assert.False(t, conf.Mirror.Enabled)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("Environment overrides the default address", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "https://game.example.com")

		conf, err := Load(filepath.Join(t.TempDir(), "config.yml"))

		require.NoError(t, err)
		assert.Equal(t, "https://game.example.com", conf.BackendURL)
	})

	t.Run("Values are read from the yaml file", func(t *testing.T) {
		unsetEnv(t, "BACKEND_URL")

		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte(
			"log-level: debug\n"+
				"backend-url: http://10.0.0.2:3000\n"+
				"reconnect-delay: 3s\n"+
				"trace-events: true\n"+
				"mirror:\n  enabled: true\n  ttl: 1m\n"+
				"redis:\n  host: redis\n  port: \"6380\"\n"), 0o600))

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "http://10.0.0.2:3000", conf.BackendURL)
		assert.Equal(t, 3*time.Second, conf.ReconnectDelay)
		assert.True(t, conf.TraceEvents)
		assert.True(t, conf.Mirror.Enabled)
		assert.Equal(t, time.Minute, conf.Mirror.TTL)
		assert.Equal(t, "redis:6380", conf.Redis.GetRedisAddr())
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()

	// Setenv restores the original value on cleanup
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
