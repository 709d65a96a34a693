package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("AGRO_AUTH_JWT_SECRET", testSecret)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, RoutePolicyState, cfg.Verification.RoutePolicy)
	assert.False(t, cfg.Verification.LocationOptional)
	assert.Equal(t, 5*time.Second, cfg.Store.QueryTimeout)
	assert.Equal(t, uint64(3), cfg.Store.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Minute, cfg.Verification.RouteRefresh)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
auth:
  jwt_secret: "` + testSecret + `"
  token_ttl: 1h
verification:
  route_policy: any
  location_optional: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, RoutePolicyAny, cfg.Verification.RoutePolicy)
	assert.True(t, cfg.Verification.LocationOptional)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Auth:         AuthConfig{JWTSecret: testSecret, TokenTTL: time.Minute},
			Store:        StoreConfig{QueryTimeout: time.Second},
			Verification: VerificationConfig{RoutePolicy: RoutePolicyAny, AuditQueueSize: 1},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"unknown policy", func(c *Config) { c.Verification.RoutePolicy = "nearest" }},
		{"zero queue", func(c *Config) { c.Verification.AuditQueueSize = 0 }},
		{"zero query timeout", func(c *Config) { c.Store.QueryTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
