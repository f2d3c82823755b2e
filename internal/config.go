package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linkmark/internal/serialize"
	"github.com/starford/linkmark/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Input  InputConfig       `yaml:"input"`
	Output OutputConfig      `yaml:"output"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Input.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
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

// InputConfig selects the Markdown sources that index, serve and mcp work on.
type InputConfig struct {
	Root     string   `yaml:"root"`
	Patterns []string `yaml:"patterns"`
	Excludes []string `yaml:"excludes"`
	// Workers bounds parallel extraction; 0 means one per CPU.
	Workers int `yaml:"workers"`
}

// Validate validates the input configuration.
func (c *InputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.Patterns, validation.By(func(any) error {
			_, err := storage.NewMatcher(c.Patterns, c.Excludes)
			return err
		})),
	)
}

// OutputConfig is the user-facing form of serialize.Format plus the
// deduplication switch.
type OutputConfig struct {
	Format      string   `yaml:"format"`
	Delimiter   string   `yaml:"delimiter"`
	QuoteFields bool     `yaml:"quote_fields"`
	FieldOrder  []string `yaml:"field_order"`
	Header      bool     `yaml:"header"`
	Deduplicate bool     `yaml:"deduplicate"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required),
		validation.Field(&c.Delimiter, validation.By(func(any) error {
			_, err := c.SerializeFormat()
			return err
		})),
	)
}

// SerializeFormat converts the configuration into a serialize.Format.
func (c *OutputConfig) SerializeFormat() (serialize.Format, error) {
	kind, err := serialize.ParseKind(c.Format)
	if err != nil {
		return serialize.Format{}, err
	}
	f := serialize.Format{Kind: kind, QuoteFields: c.QuoteFields, Header: c.Header}
	if kind == serialize.Delimited || c.Delimiter != "" {
		if f.Delimiter, err = serialize.ParseDelimiter(c.Delimiter); err != nil {
			return serialize.Format{}, err
		}
	}
	for _, name := range c.FieldOrder {
		f.FieldOrder = append(f.FieldOrder, serialize.Field(name))
	}
	if err := f.Validate(); err != nil {
		return serialize.Format{}, err
	}
	return f, nil
}

// SQLiteConfig holds SQLite database configuration.
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

// NewDefaultConfig returns a new Config with sensible default values. The
// output defaults to comma-separated text with quoting, which is what the
// extract command prints when given no flags.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Input: InputConfig{
			Root:     ".",
			Patterns: append([]string(nil), storage.DefaultPatterns...),
		},
		Output: OutputConfig{
			Format:      string(serialize.Delimited),
			Delimiter:   ",",
			QuoteFields: true,
		},
		SQLite: SQLiteConfig{
			Path: "./linkmark.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
