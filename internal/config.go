package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Site    SiteConfig        `yaml:"site"`
	Watcher WatcherConfig     `yaml:"watcher"`
	Refresh RefreshConfig     `yaml:"refresh"`
	History HistoryConfig     `yaml:"history"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Watcher.Validate(); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	if err := c.Refresh.Validate(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig describes the site the crawler files are generated for.
type SiteConfig struct {
	// BaseURL is the public origin prefixed to every URL, without a trailing
	// slash.
	BaseURL string `yaml:"base_url"`
	// OutputDir is the static directory the files are written to.
	OutputDir string `yaml:"output_dir"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteHTTPURL)),
		validation.Field(&c.OutputDir, validation.Required),
	)
}

func absoluteHTTPURL(v any) error {
	s, _ := v.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http or https URL")
	}
	return nil
}

// WatcherConfig controls regeneration on source changes.
type WatcherConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Dirs       []string      `yaml:"dirs"`
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
}

// Validate validates the watcher configuration.
func (c *WatcherConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dirs, validation.Required),
		validation.Field(&c.Extensions, validation.Required),
		validation.Field(&c.Debounce, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// RefreshConfig controls the periodic regeneration.
type RefreshConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Validate validates the refresh configuration.
func (c *RefreshConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
	)
}

// HistoryConfig holds the run-history database location.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the /api routes.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with the production defaults of the
// Suntyn AI site.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5000,
			},
		},
		Site: SiteConfig{
			BaseURL:   "https://suntyn-ai.com",
			OutputDir: "client/public",
		},
		Watcher: WatcherConfig{
			Enabled:    true,
			Dirs:       []string{"client/src/pages", "client/src/pages/tool", "server"},
			Extensions: []string{".ts", ".tsx"},
			Debounce:   5 * time.Second,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: 24 * time.Hour,
		},
		History: HistoryConfig{
			Path: "./sitegen.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
