package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/jera/internal/linker"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Daily  DailyConfig       `yaml:"daily"`
	Weekly WeeklyConfig      `yaml:"weekly"`
	Watch  WatchConfig       `yaml:"watch"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Daily.Validate(); err != nil {
		return err
	}
	if err := c.Weekly.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// LinkerConfig maps the configuration onto the linker service's snapshot.
func (c *Config) LinkerConfig() linker.Config {
	return linker.Config{
		DailyFormat:      c.Daily.Format,
		FilenameRegex:    c.Daily.FilenameRegex,
		FolderTemplate:   c.Weekly.FolderTemplate,
		FilenameTemplate: c.Weekly.FilenameTemplate,
		HeadingTemplate:  c.Weekly.HeadingTemplate,
		SectionHeading:   c.Weekly.SectionHeading,
		LinkTemplate:     c.Weekly.LinkTemplate,
		StartMarker:      c.Weekly.StartMarker,
		EndMarker:        c.Weekly.EndMarker,
		EnsureHeading:    c.Weekly.EnsureHeading,
	}
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

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DailyConfig describes how daily notes are recognised.
type DailyConfig struct {
	Format        string `yaml:"format"`
	FilenameRegex string `yaml:"filename_regex"`
}

// Validate validates the daily-note configuration.
func (c *DailyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required),
	)
}

// WeeklyConfig describes where weekly notes live and how links are written.
type WeeklyConfig struct {
	FolderTemplate   string `yaml:"folder_template"`
	FilenameTemplate string `yaml:"filename_template"`
	HeadingTemplate  string `yaml:"heading_template"`
	SectionHeading   string `yaml:"section_heading"`
	LinkTemplate     string `yaml:"link_template"`
	StartMarker      string `yaml:"start_marker"`
	EndMarker        string `yaml:"end_marker"`
	EnsureHeading    bool   `yaml:"ensure_heading"`
}

// Validate validates the weekly-note configuration.
func (c *WeeklyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FilenameTemplate, validation.Required),
		validation.Field(&c.LinkTemplate, validation.Required),
		validation.Field(&c.StartMarker, validation.Required),
		validation.Field(&c.EndMarker, validation.Required),
	)
}

// WatchConfig holds filesystem watcher configuration.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

// Validate validates the watcher configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceMs, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Daily: DailyConfig{
			Format: "YYYY-MM-DD",
		},
		Weekly: WeeklyConfig{
			FolderTemplate:   "{{year}}/Weekly",
			FilenameTemplate: "{{year}}-W{{week}}.md",
			HeadingTemplate:  "# Week {{week}} of {{year}}",
			SectionHeading:   "## Daily Notes",
			LinkTemplate:     "- ![[{{basename}}]]",
			StartMarker:      "<!-- daily links start -->",
			EndMarker:        "<!-- daily links end -->",
			EnsureHeading:    true,
		},
		Watch: WatchConfig{
			DebounceMs: 1500,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
