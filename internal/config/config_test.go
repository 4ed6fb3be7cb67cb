package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/anchorsync/internal/config"
	"github.com/aretw0/anchorsync/pkg/adapters/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anchorsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
session: headset
store:
  kind: redis
  redis:
    addr: redis:6379
    db: 2
    ttl: 1h
    lock: true
runner:
  frame_interval: 16ms
provider:
  kind: simulated
  options:
    host_latency: 5
    resolve_latency: "1"
    fail_resolving: true
`)

	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "headset", cfg.Session)
	assert.Equal(t, config.StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.True(t, cfg.Store.Redis.Lock)
	assert.Equal(t, "anchorsync:session:", cfg.Store.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, 16*time.Millisecond, cfg.Runner.FrameInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	opts, err := cfg.Simulated()
	require.NoError(t, err)
	assert.Equal(t, simulated.Options{HostLatency: 5, ResolveLatency: 1, FailResolving: true}, opts)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"store kind":       "store: {kind: sqlite}",
		"provider kind":    "provider: {kind: arcore}",
		"frame interval":   "runner: {frame_interval: 0s}",
		"unknown option":   "provider: {kind: simulated, options: {host_latancy: 3}}",
		"negative latency": "provider: {kind: simulated, options: {host_latency: -1}}",
		"malformed yaml":   "store: [",
		"short key":        "store: {encryption: {key: c2hvcnQ=}}",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content), true)
			assert.Error(t, err)
		})
	}
}

func TestSimulated_Defaults(t *testing.T) {
	opts, err := config.Default().Simulated()
	require.NoError(t, err)
	assert.Equal(t, simulated.DefaultOptions(), opts)
}

func TestLoad_EncryptionKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))

	cfg, err := config.Load(writeConfig(t, "store: {encryption: {key: "+key+", fallback_keys: ["+key+"]}}"), true)
	require.NoError(t, err)
	assert.True(t, cfg.Store.Encryption.Enabled())

	mw, err := cfg.Store.Encryption.Middleware()
	require.NoError(t, err)
	assert.NotNil(t, mw)

	t.Setenv(config.EnvEncryptionKey, key)
	cfg, err = config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, key, cfg.Store.Encryption.Key)

	t.Setenv(config.EnvEncryptionKey, "bm9wZQ==")
	_, err = config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
}
