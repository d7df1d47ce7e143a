package fphome

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FPHOME_ADMIN_PASSWORD", "hunter2")
	t.Setenv("FPHOME_ADMIN_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "FieldPulse", cfg.Site.Name)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Backend.Driver)
	assert.Equal(t, "data/fphome.db", cfg.Backend.SQLitePath)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 3, cfg.Blog.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Blog.RetryDelay)
	assert.Equal(t, []string{"*"}, cfg.Embed.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Feed.CacheTTL)
	assert.Equal(t, "hunter2", cfg.Admin.Password)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FPHOME_SITE_NAME", "Acme Field")
	t.Setenv("FPHOME_BACKEND_DRIVER", "rest")
	t.Setenv("FPHOME_BACKEND_URL", "https://xyz.supabase.co")
	t.Setenv("FPHOME_BACKEND_TIMEOUT", "3s")
	t.Setenv("FPHOME_EMBED_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("FPHOME_LOGGING_DEVELOPMENT", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "Acme Field", cfg.Site.Name)
	assert.Equal(t, DriverREST, cfg.Backend.Driver)
	assert.Equal(t, "https://xyz.supabase.co", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Embed.AllowedOrigins)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "fphome.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site:
  name: File Site
  url: https://fieldpulse.example.com
backend:
  driver: postgres
  dsn: postgres://localhost/fphome
blog:
  retry_attempts: 5
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "File Site", cfg.Site.Name)
	assert.Equal(t, "https://fieldpulse.example.com", cfg.Site.URL)
	assert.Equal(t, DriverPostgres, cfg.Backend.Driver)
	assert.Equal(t, 5, cfg.Blog.RetryAttempts)
}

func TestLoadConfigMissingFile(t *testing.T) {
	setRequiredEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigRequiresAdminSecrets(t *testing.T) {
	t.Setenv("FPHOME_ADMIN_PASSWORD", "")
	t.Setenv("FPHOME_ADMIN_SESSION_SECRET", "")
	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin.password")
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		c := Config{Admin: AdminConfig{Password: "p", SessionSecret: "s"}}
		c.setDefaults()
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no session secret", func(c *Config) { c.Admin.SessionSecret = "" }, "admin.session_secret"},
		{"rest without url", func(c *Config) { c.Backend.Driver = DriverREST }, "backend.url"},
		{"postgres without dsn", func(c *Config) { c.Backend.Driver = DriverPostgres }, "backend.dsn"},
		{"unknown driver", func(c *Config) { c.Backend.Driver = "mysql" }, "backend.driver"},
		{"negative timeout", func(c *Config) { c.Backend.Timeout = -time.Second }, "backend.timeout"},
	}
	for _, tt := range tests {
		c := valid()
		tt.mutate(&c)
		err := c.Validate()
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s: expected error containing %q", tt.name, tt.wantErr)
			continue
		}
		assert.Contains(t, err.Error(), tt.wantErr, tt.name)
	}
}
