package satchel

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/minus-twelve/satchel/types"
)

// Interval is a number of seconds. Zero, negative, false and non-numeric
// values all mean disabled.
type Interval int

func (i Interval) Enabled() bool {
	return i > 0
}

func (i Interval) Duration() time.Duration {
	if !i.Enabled() {
		return 0
	}
	return time.Duration(i) * time.Second
}

func (i *Interval) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: interval must be a scalar", ErrInvalidConfig)
	}
	if value.ShortTag() == "!!bool" {
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		if !b {
			*i = 0
			return nil
		}
		*i = Interval(DefaultConfig().RotationTime)
		return nil
	}
	return i.UnmarshalText([]byte(value.Value))
}

func (i *Interval) UnmarshalText(text []byte) error {
	n, err := strconv.Atoi(strings.TrimSpace(string(text)))
	if err != nil {
		*i = 0
		return nil
	}
	*i = Interval(n)
	return nil
}

type RateLimitConfig struct {
	// Limit is the number of fresh sessions one client IP may allocate per
	// Period; zero disables the limit.
	Limit  int           `yaml:"limit" env:"SESSION_RATE_LIMIT"`
	Period time.Duration `yaml:"period" env:"SESSION_RATE_PERIOD"`
}

// Config holds session configuration. Durations given as plain integers
// (expiration_time, rotation_time, cookie_lifetime) are seconds.
type Config struct {
	StoreType string `yaml:"store_type" env:"SESSION_STORE_TYPE"`
	Name      string `yaml:"name" env:"SESSION_NAME"`
	Namespace string `yaml:"namespace" env:"SESSION_NAMESPACE"`

	MatchIP        bool     `yaml:"match_ip" env:"SESSION_MATCH_IP"`
	MatchUA        bool     `yaml:"match_ua" env:"SESSION_MATCH_UA"`
	ExpirationTime int      `yaml:"expiration_time" env:"SESSION_EXPIRATION_TIME"`
	RotationTime   Interval `yaml:"rotation_time" env:"SESSION_ROTATION_TIME"`

	CookieLifetime int    `yaml:"cookie_lifetime" env:"SESSION_COOKIE_LIFETIME"`
	CookiePath     string `yaml:"cookie_path" env:"SESSION_COOKIE_PATH"`
	CookieDomain   string `yaml:"cookie_domain" env:"SESSION_COOKIE_DOMAIN"`
	SecureCookie   bool   `yaml:"secure_cookie" env:"SESSION_SECURE_COOKIE"`

	GCInterval     time.Duration   `yaml:"gc_interval" env:"SESSION_GC_INTERVAL"`
	TrustedProxies []string        `yaml:"trusted_proxies" env:"SESSION_TRUSTED_PROXIES" envSeparator:","`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`

	Memory types.MemoryConfig `yaml:"memory"`
	Redis  types.RedisConfig  `yaml:"redis"`
	Badger types.BadgerConfig `yaml:"badger"`
}

func DefaultConfig() Config {
	return Config{
		StoreType:      "memory",
		Name:           "SATCHELSESSID",
		Namespace:      DefaultNamespace,
		MatchIP:        false,
		MatchUA:        true,
		ExpirationTime: 7200,
		RotationTime:   300,
		CookiePath:     "/",
		GCInterval:     time.Hour,
		RateLimit: RateLimitConfig{
			Period: time.Minute,
		},
		Memory: types.MemoryConfig{
			MaxSessions: 10000,
		},
		Redis: types.RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "sess:",
		},
		Badger: types.BadgerConfig{
			Prefix: "sess:",
		},
	}
}

// LoadConfig layers DefaultConfig, the yaml file at path (skipped when path
// is empty) and SESSION_* environment variables, including those from a
// .env file in the working directory.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read session config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Join(ErrInvalidConfig, err)
		}
	}

	// The .env file is optional.
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: empty session name", ErrInvalidConfig)
	case c.Namespace == "":
		return fmt.Errorf("%w: empty namespace", ErrInvalidConfig)
	case c.ExpirationTime < 0:
		return fmt.Errorf("%w: negative expiration_time", ErrInvalidConfig)
	case c.RateLimit.Limit > 0 && c.RateLimit.Period <= 0:
		return fmt.Errorf("%w: rate_limit.period must be positive", ErrInvalidConfig)
	}

	switch c.StoreType {
	case "memory", "redis", "badger":
		return nil
	default:
		return fmt.Errorf("%w: invalid store type %q", ErrInvalidConfig, c.StoreType)
	}
}

// Expiration is the absolute session lifetime, zero when unenforced.
func (c Config) Expiration() time.Duration {
	if c.ExpirationTime <= 0 {
		return 0
	}
	return time.Duration(c.ExpirationTime) * time.Second
}

func (c Config) HandlerConfig() HandlerConfig {
	return HandlerConfig{
		Name:           c.Name,
		MatchIP:        c.MatchIP,
		MatchUA:        c.MatchUA,
		Expiration:     c.Expiration(),
		CookieLifetime: time.Duration(c.CookieLifetime) * time.Second,
	}
}
