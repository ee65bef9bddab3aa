package satchel_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/minus-twelve/satchel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := satchel.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.MatchIP)
	assert.True(t, cfg.MatchUA)
	assert.Equal(t, 7200, cfg.ExpirationTime)
	assert.Equal(t, 2*time.Hour, cfg.Expiration())
	assert.Equal(t, 5*time.Minute, cfg.RotationTime.Duration())
	assert.Equal(t, "memory", cfg.StoreType)

	hc := cfg.HandlerConfig()
	assert.Equal(t, cfg.Name, hc.Name)
	assert.True(t, hc.MatchUA)
	assert.Equal(t, 2*time.Hour, hc.Expiration)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, `
store_type: redis
name: APPSESS
namespace: shop
match_ip: true
match_ua: false
expiration_time: 600
rotation_time: false
gc_interval: 10m
trusted_proxies: ["10.0.0.0/8"]
rate_limit:
  limit: 20
  period: 1m
redis:
  addr: "redis:6379"
  ttl: 30m
`)

	cfg, err := satchel.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.StoreType)
	assert.Equal(t, "APPSESS", cfg.Name)
	assert.Equal(t, "shop", cfg.Namespace)
	assert.True(t, cfg.MatchIP)
	assert.False(t, cfg.MatchUA)
	assert.Equal(t, 10*time.Minute, cfg.Expiration())
	assert.False(t, cfg.RotationTime.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.GCInterval)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.TrustedProxies)
	assert.Equal(t, 20, cfg.RateLimit.Limit)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "sess:", cfg.Redis.Prefix, "defaults survive partial sections")
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "namespace: shop\nrotation_time: 120\n")
	t.Setenv("SESSION_NAMESPACE", "admin")
	t.Setenv("SESSION_MATCH_UA", "false")
	t.Setenv("SESSION_ROTATION_TIME", "off")
	t.Setenv("SESSION_TRUSTED_PROXIES", "10.0.0.1,192.168.0.0/16")

	cfg, err := satchel.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.Namespace)
	assert.False(t, cfg.MatchUA)
	assert.False(t, cfg.RotationTime.Enabled())
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.TrustedProxies)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := satchel.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = satchel.LoadConfig(writeConfig(t, "store_type: [oops"))
	assert.ErrorIs(t, err, satchel.ErrInvalidConfig)

	_, err = satchel.LoadConfig(writeConfig(t, "store_type: postgres"))
	assert.ErrorIs(t, err, satchel.ErrInvalidConfig)

	_, err = satchel.LoadConfig(writeConfig(t, `namespace: ""`))
	assert.ErrorIs(t, err, satchel.ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*satchel.Config)
	}{
		{name: "empty name", mutate: func(c *satchel.Config) { c.Name = "" }},
		{name: "empty namespace", mutate: func(c *satchel.Config) { c.Namespace = "" }},
		{name: "negative expiration", mutate: func(c *satchel.Config) { c.ExpirationTime = -1 }},
		{name: "unknown store", mutate: func(c *satchel.Config) { c.StoreType = "files" }},
		{name: "rate limit without period", mutate: func(c *satchel.Config) {
			c.RateLimit.Limit = 5
			c.RateLimit.Period = 0
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := satchel.DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), satchel.ErrInvalidConfig)
		})
	}
}

func TestInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		yaml string
		want satchel.Interval
	}{
		{yaml: "v: 300", want: 300},
		{yaml: "v: 0", want: 0},
		{yaml: "v: -10", want: -10},
		{yaml: "v: false", want: 0},
		{yaml: "v: true", want: 300},
		{yaml: "v: never", want: 0},
	}

	for _, tt := range tests {
		var out struct {
			V satchel.Interval `yaml:"v"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &out), tt.yaml)
		assert.Equal(t, tt.want, out.V, tt.yaml)
	}

	assert.Zero(t, satchel.Interval(-10).Duration())
	assert.Equal(t, 90*time.Second, satchel.Interval(90).Duration())
}
