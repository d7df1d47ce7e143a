package fphome

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// Backend drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the site.
type Config struct {
	Site    views.SiteConfig `mapstructure:"site"`
	Server  ServerConfig     `mapstructure:"server"`
	Backend BackendConfig    `mapstructure:"backend"`
	Admin   AdminConfig      `mapstructure:"admin"`
	Blog    BlogConfig       `mapstructure:"blog"`
	Embed   EmbedConfig      `mapstructure:"embed"`
	Logging LoggingConfig    `mapstructure:"logging"`
	Feed    FeedConfig       `mapstructure:"feed"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`       // default ":3000"
	StaticDir string `mapstructure:"static_dir"` // default "public"
}

// BackendConfig selects and configures the content backend.
type BackendConfig struct {
	Driver     string        `mapstructure:"driver"` // rest, postgres or sqlite (default)
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	DSN        string        `mapstructure:"dsn"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	Timeout    time.Duration `mapstructure:"timeout"` // per fetch, default 10s
}

// AdminConfig configures the admin console.
type AdminConfig struct {
	Password      string `mapstructure:"password"`       // required
	SessionSecret string `mapstructure:"session_secret"` // required
	CookieSecure  bool   `mapstructure:"cookie_secure"`  // set true for HTTPS
}

// BlogConfig tunes the blog render pipeline.
type BlogConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"` // fetch attempts per render, default 3
	RetryDelay    time.Duration `mapstructure:"retry_delay"`    // default 1s
}

// EmbedConfig configures the third-party widget endpoints.
type EmbedConfig struct {
	APIKey         string   `mapstructure:"api_key"` // empty disables the check
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FeedConfig configures the RSS/sitemap cache.
type FeedConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // default 5m
}

func (c *Config) setDefaults() {
	if c.Site.Name == "" {
		c.Site.Name = "FieldPulse"
	}
	if c.Site.URL == "" {
		c.Site.URL = "http://localhost:3000"
	}
	if c.Site.Description == "" {
		c.Site.Description = "Field service management software for HVAC, plumbing and electrical teams."
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "public"
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = DriverSQLite
	}
	if c.Backend.SQLitePath == "" {
		c.Backend.SQLitePath = "data/fphome.db"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Blog.RetryAttempts <= 0 {
		c.Blog.RetryAttempts = 3
	}
	if c.Blog.RetryDelay == 0 {
		c.Blog.RetryDelay = time.Second
	}
	if len(c.Embed.AllowedOrigins) == 0 {
		c.Embed.AllowedOrigins = []string{"*"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Feed.CacheTTL == 0 {
		c.Feed.CacheTTL = 5 * time.Minute
	}
}

// Validate reports the first missing or inconsistent setting.
func (c Config) Validate() error {
	if c.Admin.Password == "" {
		return fmt.Errorf("admin.password is required")
	}
	if c.Admin.SessionSecret == "" {
		return fmt.Errorf("admin.session_secret is required")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must be >= 0")
	}
	switch c.Backend.Driver {
	case DriverREST:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required for the rest driver")
		}
	case DriverPostgres:
		if c.Backend.DSN == "" {
			return fmt.Errorf("backend.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Backend.SQLitePath == "" {
			return fmt.Errorf("backend.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("backend.driver %q is not one of rest, postgres, sqlite", c.Backend.Driver)
	}
	return nil
}

// LoadConfig reads .env (if present), an optional config file at path and
// FPHOME_* environment variables, in increasing precedence.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FPHOME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper so environment overrides are
// picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	var d Config
	d.setDefaults()

	v.SetDefault("site.name", d.Site.Name)
	v.SetDefault("site.url", d.Site.URL)
	v.SetDefault("site.description", d.Site.Description)
	v.SetDefault("site.author", "")
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("backend.driver", d.Backend.Driver)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.dsn", "")
	v.SetDefault("backend.sqlite_path", d.Backend.SQLitePath)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.session_secret", "")
	v.SetDefault("admin.cookie_secure", false)
	v.SetDefault("blog.retry_attempts", d.Blog.RetryAttempts)
	v.SetDefault("blog.retry_delay", d.Blog.RetryDelay)
	v.SetDefault("embed.api_key", "")
	v.SetDefault("embed.allowed_origins", d.Embed.AllowedOrigins)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("feed.cache_ttl", d.Feed.CacheTTL)
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets and uploads.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.Server.StaticDir = dir
	}
}
