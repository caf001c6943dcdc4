package spacetraveling

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/views"
)

const (
	SourcePrismic = "prismic"
	SourceSQLite  = "sqlite"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "spacetraveling")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD
	Locale      string `yaml:"locale"`      // Date and label locale (default "pt_BR")

	Addr     string `yaml:"addr"`      // Listen address (default ":3000")
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default "info")

	PageSize     int           `yaml:"page_size"`      // Posts per listing page (default 5)
	PostCacheTTL time.Duration `yaml:"post_cache_ttl"` // Revalidation interval (default 30min)

	Source             string        `yaml:"source"`               // "prismic" (default) or "sqlite"
	PrismicEndpoint    string        `yaml:"prismic_endpoint"`     // e.g. https://repo.cdn.prismic.io/api/v2
	PrismicAccessToken string        `yaml:"prismic_access_token"` // For private repositories
	PrismicTimeout     time.Duration `yaml:"prismic_timeout"`      // Per-request timeout (default 15s)
	DatabasePath       string        `yaml:"database_path"`        // SQLite path (default "data/posts.db")

	SessionSecret  string `yaml:"session_secret"`  // Enables preview mode (prismic source only)
	CookieSecure   bool   `yaml:"cookie_secure"`   // Set true for HTTPS
	MetricsEnabled bool   `yaml:"metrics_enabled"` // Serve /metrics
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Locale == "" {
		c.Locale = "pt_BR"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 30 * time.Minute
	}
	if c.Source == "" {
		c.Source = SourcePrismic
	}
	if c.PrismicTimeout == 0 {
		c.PrismicTimeout = 15 * time.Second
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/posts.db"
	}
}

// Site returns the subset of the configuration templates see.
func (c SiteConfig) Site() views.Site {
	return views.Site{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
		Locale:      c.Locale,
	}
}

// LoadConfig reads the YAML file at path, if path is not empty, then applies
// SPACETRAVELING_* environment overrides and fills in defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("spacetraveling: reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("spacetraveling: parsing config: %w", err)
		}
	}

	cfg.Name = EnvOr("SPACETRAVELING_NAME", cfg.Name)
	cfg.URL = EnvOr("SPACETRAVELING_URL", cfg.URL)
	cfg.Description = EnvOr("SPACETRAVELING_DESCRIPTION", cfg.Description)
	cfg.Author = EnvOr("SPACETRAVELING_AUTHOR", cfg.Author)
	cfg.Locale = EnvOr("SPACETRAVELING_LOCALE", cfg.Locale)
	cfg.Addr = EnvOr("SPACETRAVELING_ADDR", cfg.Addr)
	cfg.LogLevel = EnvOr("SPACETRAVELING_LOG_LEVEL", cfg.LogLevel)
	cfg.Source = EnvOr("SPACETRAVELING_SOURCE", cfg.Source)
	cfg.PrismicEndpoint = EnvOr("PRISMIC_API_ENDPOINT", cfg.PrismicEndpoint)
	cfg.PrismicAccessToken = EnvOr("PRISMIC_ACCESS_TOKEN", cfg.PrismicAccessToken)
	cfg.DatabasePath = EnvOr("SPACETRAVELING_DATABASE", cfg.DatabasePath)
	cfg.SessionSecret = EnvOr("SPACETRAVELING_SESSION_SECRET", cfg.SessionSecret)

	if v := os.Getenv("SPACETRAVELING_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("spacetraveling: invalid SPACETRAVELING_PAGE_SIZE %q", v)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("SPACETRAVELING_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("spacetraveling: invalid SPACETRAVELING_CACHE_TTL %q: %w", v, err)
		}
		cfg.PostCacheTTL = d
	}
	if v := os.Getenv("SPACETRAVELING_COOKIE_SECURE"); v != "" {
		cfg.CookieSecure = v == "1" || v == "true"
	}
	if v := os.Getenv("SPACETRAVELING_METRICS"); v != "" {
		cfg.MetricsEnabled = v == "1" || v == "true"
	}

	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithSource sets the content source instead of opening one from the
// configuration.
func WithSource(src feed.ContentSource) Option {
	return func(a *App) {
		a.Source = src
	}
}

// WithViews replaces the default components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets a directory of user-owned static assets served under
// /public/ after the embedded ones.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
