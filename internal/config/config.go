// Package config loads the anchorctl YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/anchorsync/internal/adapters/file"
	"github.com/aretw0/anchorsync/pkg/adapters/redis"
	"github.com/aretw0/anchorsync/pkg/adapters/simulated"
	"github.com/aretw0/anchorsync/pkg/persistence/middleware"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is looked up when --config is not given.
const DefaultPath = "anchorsync.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// EnvEncryptionKey overrides store.encryption.key, keeping the key out of the file.
const EnvEncryptionKey = "ANCHORSYNC_STORE_KEY"

// ProviderSimulated is the only built-in provider.
const ProviderSimulated = "simulated"

// Config is the root of anchorsync.yaml.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Session  string         `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	HTTP     HTTPConfig     `yaml:"http"`
	Runner   RunnerConfig   `yaml:"runner"`
	Provider ProviderConfig `yaml:"provider"`
}

// StoreConfig selects where sessions live.
type StoreConfig struct {
	Kind       string           `yaml:"kind"`
	Dir        string           `yaml:"dir"`
	Redis      RedisConfig      `yaml:"redis"`
	Encryption EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig seals stored sessions. Keys are base64-encoded 32-byte values.
// An empty Key disables encryption.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// Enabled reports whether sessions are sealed.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Middleware decodes the keys into a store middleware.
func (e EncryptionConfig) Middleware() (middleware.Middleware, error) {
	active, err := middleware.ParseKey(e.Key)
	if err != nil {
		return nil, fmt.Errorf("store.encryption.key: %w", err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for i, encoded := range e.FallbackKeys {
		key, err := middleware.ParseKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("store.encryption.fallback_keys[%d]: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg)
}

// RedisConfig configures the Redis store and the distributed session lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	Lock     bool          `yaml:"lock"`
}

// HTTPConfig configures `anchorctl serve`.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RunnerConfig configures the `anchorctl run` frame loop.
type RunnerConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// ProviderConfig selects the anchor provider. Options are provider specific.
type ProviderConfig struct {
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Session:  "local",
		Store: StoreConfig{
			Kind: StoreFile,
			Dir:  file.DefaultDir,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: redis.DefaultPrefix,
			},
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Runner: RunnerConfig{
			FrameInterval: 33 * time.Millisecond,
		},
		Provider: ProviderConfig{
			Kind: ProviderSimulated,
		},
	}
}

// Load reads path on top of Default. A missing file yields the defaults
// unless required is set (the user pointed at it explicitly).
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		c.Store.Encryption.Key = key
	}
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Provider.Kind != ProviderSimulated {
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	if c.Runner.FrameInterval <= 0 {
		return errors.New("runner.frame_interval must be positive")
	}
	if c.Session == "" {
		return errors.New("session must not be empty")
	}
	if c.Store.Encryption.Enabled() {
		if _, err := c.Store.Encryption.Middleware(); err != nil {
			return err
		}
	}
	if _, err := c.Simulated(); err != nil {
		return err
	}
	return nil
}

// Simulated decodes provider.options on top of simulated.DefaultOptions.
// Unknown keys are rejected so typos don't silently fall back to defaults.
func (c *Config) Simulated() (simulated.Options, error) {
	opts := simulated.DefaultOptions()
	if len(c.Provider.Options) == 0 {
		return opts, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(c.Provider.Options); err != nil {
		return opts, fmt.Errorf("invalid provider.options: %w", err)
	}
	if opts.HostLatency < 0 || opts.ResolveLatency < 0 {
		return opts, errors.New("provider latencies must not be negative")
	}
	return opts, nil
}
