// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/sitemap-writer/internal/schemas"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
	rootschemas "github.com/jonathan/sitemap-writer/schemas"
	"gopkg.in/yaml.v3"
)

// DatabaseURLEnv names the environment variable supplying the default
// database URL.
const DatabaseURLEnv = "SITEMAP_DATABASE_URL"

// Config represents the CLI configuration that can be loaded from a JSON or
// YAML file. All fields except sites are optional; missing values use
// defaults or must be provided via CLI flags.
type Config struct {
	// Output
	OutputDir  string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`                         // Directory receiving sitemap.xml and sitemap/
	IndexURL   string `json:"index_url,omitempty" yaml:"index_url,omitempty" validate:"omitempty,url"` // Base URL for index locations
	Indent     *bool  `json:"indent,omitempty" yaml:"indent,omitempty"`                                // Pretty-print XML output
	MaxURLs    int    `json:"max_urls,omitempty" yaml:"max_urls,omitempty" validate:"gte=0,lte=50000"`  // Entries per sitemap file
	BufferSize int    `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty" validate:"gte=0"`     // Records buffered between flushes

	// Behavior
	OmitDefaultPriority bool   `json:"omit_default_priority,omitempty" yaml:"omit_default_priority,omitempty"` // Skip <priority> when it equals 0.5
	Verbose             bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`                             // Print detailed debug information
	DatabaseURL         string `json:"database_url,omitempty" yaml:"database_url,omitempty"`                   // Default database for query sources

	Sites []Site `json:"sites" yaml:"sites" validate:"required,min=1,dive"`
}

// Site describes one sitemap file set and the source feeding it.
type Site struct {
	Name    string `json:"name" yaml:"name" validate:"required,excludesall=/\\"` // Base file name under sitemap/
	Website string `json:"website" yaml:"website" validate:"required,url"`       // Prefix for relative locations

	// Exactly one source
	Input   string `json:"input,omitempty" yaml:"input,omitempty"`       // CSV, JSON lines, YAML or text file
	HTMLDir string `json:"html_dir,omitempty" yaml:"html_dir,omitempty"` // Directory of static HTML pages
	Query   string `json:"query,omitempty" yaml:"query,omitempty"`       // SQL query returning a loc column

	DatabaseURL     string   `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	ChangeFrequency string   `json:"changefreq,omitempty" yaml:"changefreq,omitempty" validate:"omitempty,oneof=always hourly daily weekly monthly yearly never"`
	Priority        *float64 `json:"priority,omitempty" yaml:"priority,omitempty" validate:"omitempty,gte=0,lte=1"`
}

var validate = validator.New()

// LoadConfig loads configuration from a JSON or YAML file, chosen by
// extension, and checks it against the config schema.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (*Config, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to parse config JSON: invalid syntax")
	}
	if err := schemas.ValidateJSONString(rootschemas.Config, string(data)); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := schemas.ValidateDocument(rootschemas.Config, doc); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values. It is meant to
// run after MergeWithDefaults so flag and environment values are included.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: '%s' failed the '%s' check", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	names := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		if names[s.Name] {
			return fmt.Errorf("config error: duplicate site name %q", s.Name)
		}
		names[s.Name] = true

		sources := 0
		for _, v := range []string{s.Input, s.HTMLDir, s.Query} {
			if v != "" {
				sources++
			}
		}
		if sources != 1 {
			return fmt.Errorf("config error: site %q must set exactly one of 'input', 'html_dir' and 'query'", s.Name)
		}

		if s.Input != "" {
			if _, err := os.Stat(s.Input); os.IsNotExist(err) {
				return fmt.Errorf("config error: input file not found: %s", s.Input)
			}
		}
		if s.HTMLDir != "" {
			if info, err := os.Stat(s.HTMLDir); err != nil || !info.IsDir() {
				return fmt.Errorf("config error: html_dir is not a directory: %s", s.HTMLDir)
			}
		}
		if s.Query != "" && c.SiteDatabaseURL(i) == "" {
			return fmt.Errorf("config error: site %q has a query but no database_url (set it or %s)", s.Name, DatabaseURLEnv)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.IndexURL == "" {
		result.IndexURL = defaults.IndexURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Indent == nil {
		result.Indent = defaults.Indent
	}
	if result.MaxURLs == 0 {
		result.MaxURLs = defaults.MaxURLs
	}
	if result.BufferSize == 0 {
		result.BufferSize = defaults.BufferSize
	}
	if len(result.Sites) == 0 {
		result.Sites = defaults.Sites
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the values used when neither the file nor flags set them.
func Defaults() Config {
	indent := true
	return Config{
		OutputDir:  ".",
		Indent:     &indent,
		MaxURLs:    sitemap.DefaultMaxEntriesPerFile,
		BufferSize: sitemap.DefaultBufferSize,
	}
}

// SiteDatabaseURL returns the database URL for site i, falling back to the
// top-level one.
func (c *Config) SiteDatabaseURL(i int) string {
	if u := c.Sites[i].DatabaseURL; u != "" {
		return u
	}
	return c.DatabaseURL
}

// IndexBase returns the URL the index locations are built from.
func (c *Config) IndexBase() string {
	if c.IndexURL != "" {
		return c.IndexURL
	}
	if len(c.Sites) > 0 {
		return c.Sites[0].Website
	}
	return ""
}

// MapOptions converts the config to sitemap options.
func (c *Config) MapOptions() sitemap.Options {
	opts := sitemap.DefaultOptions()
	if c.MaxURLs > 0 {
		opts.MaxEntriesPerFile = c.MaxURLs
	}
	if c.BufferSize > 0 {
		opts.BufferSize = c.BufferSize
	}
	if c.Indent != nil {
		opts.Indent = *c.Indent
	}
	opts.OmitDefaultPriority = c.OmitDefaultPriority
	return opts
}

// IndexOptions converts the config to sitemap index options.
func (c *Config) IndexOptions() sitemap.IndexOptions {
	opts := sitemap.DefaultIndexOptions()
	if c.BufferSize > 0 {
		opts.BufferSize = c.BufferSize
	}
	if c.Indent != nil {
		opts.Indent = *c.Indent
	}
	return opts
}
