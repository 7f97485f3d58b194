package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bootplan/internal/appconfig"
	"github.com/starford/bootplan/internal/compiler"
	"github.com/starford/bootplan/internal/naming"
	"github.com/starford/bootplan/internal/storage"
	"github.com/starford/bootplan/internal/watch"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Boot   BootConfig        `yaml:"boot"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Boot.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
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

// BootConfig describes the application layout to compile.
type BootConfig struct {
	Root          string      `yaml:"root"`
	Env           string      `yaml:"env"`
	ModelSources  []string    `yaml:"model_sources"`
	MixinDirs     []string    `yaml:"mixin_dirs"`
	MixinSources  []string    `yaml:"mixin_sources"`
	Mixins        []string    `yaml:"mixins"`
	BootDirs      []string    `yaml:"boot_dirs"`
	BootScripts   []string    `yaml:"boot_scripts"`
	Normalization string      `yaml:"normalization"`
	Extensions    []string    `yaml:"extensions"`
	SearchPaths   []string    `yaml:"search_paths"`
	ModulesDir    string      `yaml:"modules_dir"`
	Files         FilesConfig `yaml:"files"`
	Watch         WatchConfig `yaml:"watch"`
}

// Validate validates the boot configuration.
func (c *BootConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Normalization, validation.In(
			naming.PolicyNone, naming.PolicyClassify, naming.PolicyDasherize, "false")),
	); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// CompilerOptions converts the boot configuration into compile options.
// Inline configuration is left empty; it is loaded from the layout.
func (c *BootConfig) CompilerOptions(fs storage.Provider, logger *slog.Logger) compiler.Options {
	return compiler.Options{
		Root:          c.Root,
		Env:           c.Env,
		ModelSources:  c.ModelSources,
		MixinDirs:     c.MixinDirs,
		MixinSources:  c.MixinSources,
		Mixins:        c.Mixins,
		BootDirs:      c.BootDirs,
		BootScripts:   c.BootScripts,
		Normalization: c.Normalization,
		Extensions:    c.Extensions,
		SearchPaths:   c.SearchPaths,
		ModulesDir:    c.ModulesDir,
		FS:            fs,
		Logger:        logger,
	}
}

// FilesConfig overrides the stems of the layout configuration files.
type FilesConfig struct {
	App         string `yaml:"app"`
	DataSources string `yaml:"datasources"`
	ModelConfig string `yaml:"model_config"`
}

// Names returns the stems as appconfig names.
func (c FilesConfig) Names() appconfig.Names {
	return appconfig.Names{App: c.App, DataSources: c.DataSources, ModelConfig: c.ModelConfig}
}

// WatchConfig controls recompiling on layout changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("watch: debounce must not be negative, got %s", c.Debounce)
	}
	return nil
}

// SQLiteConfig holds the plan history database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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
		Boot: BootConfig{
			Root:          ".",
			Normalization: naming.PolicyClassify,
			Watch: WatchConfig{
				Enabled:  true,
				Debounce: watch.DefaultDebounce,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./bootplan.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
