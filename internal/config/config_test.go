package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, "0.0.0.0:5001", cfg.Addr())
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Second, cfg.RankTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, 16_000_000, cfg.MaxPixels)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 10*time.Minute, cfg.KeepAliveInterval)
	assert.Empty(t, cfg.KeepAliveURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("KEEPALIVE_URL", "http://self.example/")
	t.Setenv("KEEPALIVE_INTERVAL", "30s")
	t.Setenv("APP_ENV", "production")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "http://self.example/", cfg.KeepAliveURL)
	assert.Equal(t, 30*time.Second, cfg.KeepAliveInterval)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("TOP_K: 3\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	for key, value := range map[string]string{
		"PORT":                  "0",
		"TOP_K":                 "-1",
		"RATE_LIMIT_PER_MINUTE": "0",
		"MAX_UPLOAD_BYTES":      "0",
		"MAX_IMAGE_PIXELS":      "-1",
		"RATE_LIMIT_WINDOW":     "0s",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := load(viper.New())
			assert.ErrorContains(t, err, key)
		})
	}

	t.Run("missing config file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := load(viper.New())
		assert.Error(t, err)
	})
}
