package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	return tmpFile
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"output_dir": "public",
		"index_url": "https://example.com",
		"indent": false,
		"max_urls": 100,
		"verbose": true,
		"sites": [
			{"name": "blog", "website": "https://example.com/blog", "input": "blog.csv", "changefreq": "daily", "priority": 0.7}
		]
	}`

	cfg, err := LoadConfig(writeConfig(t, "config.json", content))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "https://example.com", cfg.IndexURL)
	require.NotNil(t, cfg.Indent)
	assert.False(t, *cfg.Indent)
	assert.Equal(t, 100, cfg.MaxURLs)
	assert.True(t, cfg.Verbose)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "blog", cfg.Sites[0].Name)
	assert.Equal(t, "daily", cfg.Sites[0].ChangeFrequency)
	require.NotNil(t, cfg.Sites[0].Priority)
	assert.InDelta(t, 0.7, *cfg.Sites[0].Priority, 1e-9)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	content := `
output_dir: public
max_urls: 500
omit_default_priority: true
database_url: sqlite://pages.db
sites:
  - name: shop
    website: https://shop.example.com
    query: SELECT loc FROM products
  - name: docs
    website: https://example.com/docs
    html_dir: site/docs
`
	cfg, err := LoadConfig(writeConfig(t, "config.yaml", content))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.MaxURLs)
	assert.True(t, cfg.OmitDefaultPriority)
	assert.Nil(t, cfg.Indent)
	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "SELECT loc FROM products", cfg.Sites[0].Query)
	assert.Equal(t, "sqlite://pages.db", cfg.SiteDatabaseURL(0))
	assert.Equal(t, "site/docs", cfg.Sites[1].HTMLDir)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.json", `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.yml", "sites: [\n"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json unknown key", "config.json", `{"sites":[{"name":"a","website":"https://example.com"}],"job_url":"x"}`},
		{"json missing sites", "config.json", `{"output_dir":"out"}`},
		{"yaml bad type", "config.yaml", "max_urls: many\nsites:\n  - name: a\n    website: https://example.com\n"},
		{"yaml over limit", "config.yaml", "max_urls: 60000\nsites:\n  - name: a\n    website: https://example.com\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "config does not match schema")
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	input := writeConfig(t, "pages.csv", "loc\n/a\n")
	htmlDir := t.TempDir()

	site := func(mod func(*Site)) Site {
		s := Site{Name: "main", Website: "https://example.com", Input: input}
		if mod != nil {
			mod(&s)
		}
		return s
	}

	tests := []struct {
		name    string
		cfg     Config
		message string
	}{
		{
			name: "valid input site",
			cfg:  Config{Sites: []Site{site(nil)}},
		},
		{
			name: "valid html and query sites",
			cfg: Config{
				DatabaseURL: "sqlite://pages.db",
				Sites: []Site{
					site(func(s *Site) { s.Input = ""; s.HTMLDir = htmlDir }),
					site(func(s *Site) { s.Name = "db"; s.Input = ""; s.Query = "SELECT loc FROM pages" }),
				},
			},
		},
		{name: "no sites", cfg: Config{}, message: "Sites"},
		{name: "bad website", cfg: Config{Sites: []Site{site(func(s *Site) { s.Website = "example.com" })}}, message: "Website"},
		{name: "name with separator", cfg: Config{Sites: []Site{site(func(s *Site) { s.Name = "a/b" })}}, message: "Name"},
		{name: "bad changefreq", cfg: Config{Sites: []Site{site(func(s *Site) { s.ChangeFrequency = "often" })}}, message: "ChangeFrequency"},
		{name: "max urls over limit", cfg: Config{MaxURLs: 50001, Sites: []Site{site(nil)}}, message: "MaxURLs"},
		{name: "duplicate names", cfg: Config{Sites: []Site{site(nil), site(nil)}}, message: "duplicate site name"},
		{name: "no source", cfg: Config{Sites: []Site{site(func(s *Site) { s.Input = "" })}}, message: "exactly one"},
		{name: "two sources", cfg: Config{Sites: []Site{site(func(s *Site) { s.HTMLDir = htmlDir })}}, message: "exactly one"},
		{name: "missing input", cfg: Config{Sites: []Site{site(func(s *Site) { s.Input = "/nonexistent/pages.csv" })}}, message: "input file not found"},
		{name: "html_dir is a file", cfg: Config{Sites: []Site{site(func(s *Site) { s.Input = ""; s.HTMLDir = input })}}, message: "not a directory"},
		{name: "query without database", cfg: Config{Sites: []Site{site(func(s *Site) { s.Input = ""; s.Query = "SELECT 1" })}}, message: "no database_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults()
	defaults.DatabaseURL = "postgres://localhost/site"

	off := false
	partial := Config{
		OutputDir: "public",
		Indent:    &off,
		Sites:     []Site{{Name: "a", Website: "https://example.com"}},
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "public", merged.OutputDir)
	require.NotNil(t, merged.Indent)
	assert.False(t, *merged.Indent)
	assert.Len(t, merged.Sites, 1)

	// Default values should fill in empty fields
	assert.Equal(t, sitemap.DefaultMaxEntriesPerFile, merged.MaxURLs)
	assert.Equal(t, sitemap.DefaultBufferSize, merged.BufferSize)
	assert.Equal(t, "postgres://localhost/site", merged.DatabaseURL)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{OutputDir: "out", MaxURLs: 10}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "out", merged.OutputDir)
	assert.Equal(t, 10, merged.MaxURLs)
	assert.Nil(t, merged.Indent)
}

func TestOptionConversion(t *testing.T) {
	off := false
	cfg := Config{MaxURLs: 10, BufferSize: 3, Indent: &off, OmitDefaultPriority: true}

	opts := cfg.MapOptions()
	assert.Equal(t, 10, opts.MaxEntriesPerFile)
	assert.Equal(t, 3, opts.BufferSize)
	assert.False(t, opts.Indent)
	assert.True(t, opts.OmitDefaultPriority)

	idx := cfg.IndexOptions()
	assert.Equal(t, 3, idx.BufferSize)
	assert.False(t, idx.Indent)

	def := (&Config{}).MapOptions()
	assert.Equal(t, sitemap.DefaultOptions().MaxEntriesPerFile, def.MaxEntriesPerFile)
	assert.True(t, def.Indent)
}

func TestIndexBase(t *testing.T) {
	cfg := Config{Sites: []Site{{Website: "https://example.com/blog"}}}
	assert.Equal(t, "https://example.com/blog", cfg.IndexBase())

	cfg.IndexURL = "https://example.com"
	assert.Equal(t, "https://example.com", cfg.IndexBase())

	assert.Equal(t, "", (&Config{}).IndexBase())
}
