package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Fetch   FetchConfig       `yaml:"fetch"`
	Catalog CatalogConfig     `yaml:"catalog"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	return c.Fetch.Validate()
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

// ContentConfig says where documents come from.
//
// Root is the directory that "../<folder>/<file>" addresses resolve against.
// SiteURL is the public address the catalog is published under; when it is a
// "<owner>.github.io/<repo>" page, documents are fetched from the repository's
// raw content host instead of Root.
type ContentConfig struct {
	Root    string `yaml:"root"`
	SiteURL string `yaml:"site_url"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.SiteURL, is.URL),
	)
}

// FetchConfig tunes remote document fetching. Retries counts extra
// attempts after a transient failure.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Retries       int           `yaml:"retries"`
}

// Validate validates the fetch configuration.
func (c *FetchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(10)),
	)
}

// CatalogConfig chooses the catalog. Path wins over Discover; with neither
// set the built-in catalog is used.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// Discover builds the catalog from the SKILL.md folders under the
	// content root.
	Discover bool `yaml:"discover"`
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
		Content: ContentConfig{
			Root: ".",
		},
		Fetch: FetchConfig{
			Timeout:       15 * time.Second,
			RatePerSecond: 5,
			Retries:       2,
		},
	}
}
