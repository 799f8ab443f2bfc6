package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.RemoveDuplicates)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `remove_duplicates: true
parse_workers: 4
log_level: "DEBUG"
log_file: "/var/log/trackmap/trackmap.log"
api_port: "9090"
cache_enabled: true
cache_ttl: 2m
nats_url: "nats://127.0.0.1:4222"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.RemoveDuplicates)
	assert.Equal(t, 4, cfg.ParseWorkers)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/var/log/trackmap/trackmap.log", cfg.LogFile)
	assert.Equal(t, "9090", cfg.APIPort)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	// untouched keys keep their defaults
	assert.Equal(t, "trajectory", cfg.NATSSubject)
	assert.Equal(t, 10, cfg.RateLimitPerSecond)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "remove_duplicates: true\napi_port: \"9090\"\n")
	t.Setenv("REMOVE_DUPLICATES", "no")
	t.Setenv("API_PORT", "7000")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.RemoveDuplicates)
	assert.Equal(t, "7000", cfg.APIPort)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "Invalid boolean", env: map[string]string{"REMOVE_DUPLICATES": "maybe"}},
		{name: "Invalid integer", env: map[string]string{"PARSE_WORKERS": "many"}},
		{name: "Zero workers", env: map[string]string{"PARSE_WORKERS": "0"}},
		{name: "Invalid duration", env: map[string]string{"CACHE_TTL": "soon"}},
		{name: "Invalid log level", env: map[string]string{"LOG_LEVEL": "LOUD"}},
		{name: "Negative rate limit", env: map[string]string{"RATE_LIMIT_PER_DAY": "-1"}},
		{name: "Malformed YAML", file: "remove_duplicates: [oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
