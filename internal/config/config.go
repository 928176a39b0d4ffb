package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every engine variable. Underscores nest, so
// ROUTELOG_STORAGE_ROOT maps to storage.root and
// ROUTELOG_ENCRYPTION_KEYS_V2 to encryption.keys.v2.
const envPrefix = "ROUTELOG_"

type Config struct {
	Primary    Primary          `koanf:"primary"`
	Logging    LoggingConfig    `koanf:"logging"`
	Storage    StorageConfig    `koanf:"storage"`
	Slack      SlackConfig      `koanf:"slack"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Server     ServerConfig     `koanf:"server"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type LoggingConfig struct {
	Enabled bool   `koanf:"enabled"`
	Console bool   `koanf:"console"`
	Level   string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Routes  string `koanf:"routes"`
}

type StorageConfig struct {
	Root        string `koanf:"root" validate:"required"`
	Fallback    string `koanf:"fallback" validate:"required"`
	Critical    string `koanf:"critical"`
	Retries     int    `koanf:"retries" validate:"min=1,max=10"`
	RotateBytes int64  `koanf:"rotatebytes" validate:"min=1024"`
	TimeoutMS   int    `koanf:"timeoutms" validate:"min=1"`
	RateLimit   int    `koanf:"ratelimit" validate:"min=1"`
	Descriptors int    `koanf:"descriptors" validate:"min=1"`
}

type SlackConfig struct {
	Webhook   string `koanf:"webhook" validate:"omitempty,url"`
	TimeoutMS int    `koanf:"timeoutms" validate:"min=1"`
	Retries   int    `koanf:"retries" validate:"min=0,max=10"`
}

type EncryptionConfig struct {
	// Key is the unversioned default key (64-char hex, 32 bytes).
	Key string `koanf:"key"`
	// Keys maps version names (e.g. "v2") to key material. Lookups fall
	// back to Key when a version is absent.
	Keys map[string]string `koanf:"keys"`
	// Version names the key new records are encrypted under.
	Version string `koanf:"version"`
}

type ServerConfig struct {
	Port         string `koanf:"port"`
	ReadTimeout  int    `koanf:"readtimeout"`
	WriteTimeout int    `koanf:"writetimeout"`
}

// applyDefaults fills zero values after unmarshal, before validation.
func (c *Config) applyDefaults() {
	if c.Primary.Env == "" {
		c.Primary.Env = "development"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "logStorage"
	}
	if c.Storage.Fallback == "" {
		c.Storage.Fallback = "logStorage/fallback"
	}
	if c.Storage.Retries == 0 {
		c.Storage.Retries = 3
	}
	if c.Storage.RotateBytes == 0 {
		c.Storage.RotateBytes = 10 * 1024 * 1024
	}
	if c.Storage.TimeoutMS == 0 {
		c.Storage.TimeoutMS = 30_000
	}
	if c.Storage.RateLimit == 0 {
		c.Storage.RateLimit = 1000
	}
	if c.Storage.Descriptors == 0 {
		c.Storage.Descriptors = 100
	}
	if c.Slack.TimeoutMS == 0 {
		c.Slack.TimeoutMS = 5_000
	}
	if c.Slack.Retries == 0 {
		c.Slack.Retries = 3
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
}

// Ensure re-validates the config. Returns nil when the config is usable.
func (c *Config) Ensure() error {
	return validator.New().Struct(c)
}

// LoadConfig loads configuration from ROUTELOG_-prefixed environment
// variables, applies defaults, and validates the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "_", ".")
	}), nil)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	return cfg, nil
}
