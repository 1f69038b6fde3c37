package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func collect(t *testing.T, s Source) []sitemap.Location {
	t.Helper()
	var out []sitemap.Location
	require.NoError(t, s.Each(context.Background(), func(l sitemap.Location) error {
		out = append(out, l)
		return nil
	}))
	return out
}

func TestFile_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "csv",
			file: "pages.csv",
			content: "loc,lastmod,changefreq,priority\n" +
				"/a,2024-01-01,Daily,0.8\n" +
				"/b,,,\n",
		},
		{
			name: "json lines",
			file: "pages.jsonl",
			content: `{"loc":"/a","lastmod":"2024-01-01","changefreq":"daily","priority":0.8}` + "\n\n" +
				`{"loc":"/b"}` + "\n",
		},
		{
			name: "yaml",
			file: "pages.yaml",
			content: "- loc: /a\n  lastmod: \"2024-01-01\"\n  changefreq: daily\n  priority: 0.8\n" +
				"- loc: /b\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locs := collect(t, File{Path: writeFile(t, tt.file, tt.content), Defaults: DefaultValues()})
			require.Len(t, locs, 2)

			assert.Equal(t, "/a", locs[0].Loc)
			assert.Equal(t, "2024-01-01", locs[0].LastModified)
			assert.Equal(t, sitemap.Daily, locs[0].ChangeFrequency)
			require.NotNil(t, locs[0].Priority)
			assert.InDelta(t, 0.8, *locs[0].Priority, 1e-9)

			assert.Equal(t, "/b", locs[1].Loc)
			assert.Equal(t, sitemap.Now, locs[1].LastModified)
			assert.Equal(t, sitemap.Weekly, locs[1].ChangeFrequency)
			require.NotNil(t, locs[1].Priority)
			assert.InDelta(t, 0.5, *locs[1].Priority, 1e-9)
		})
	}
}

func TestFile_PlainText(t *testing.T) {
	p := writeFile(t, "pages.txt", "# pages\n/a\n\n  /b  \n")
	locs := collect(t, File{Path: p, Defaults: DefaultValues()})
	require.Len(t, locs, 2)
	assert.Equal(t, "/b", locs[1].Loc)
}

func TestFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		message string
	}{
		{"unsupported", "pages.xlsx", "x", "unsupported file extension"},
		{"csv without loc", "pages.csv", "url\n/a\n", "loc column"},
		{"csv bad priority", "pages.csv", "loc,priority\n/a,high\n", "invalid priority"},
		{"bad json", "pages.jsonl", "{\"loc\":\n", "line 1"},
		{"bad yaml", "pages.yaml", "loc: [\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, tt.file, tt.content)
			err := File{Path: p}.Each(context.Background(), func(sitemap.Location) error { return nil })
			require.Error(t, err)

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, p, serr.Source)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFile_Missing(t *testing.T) {
	err := File{Path: filepath.Join(t.TempDir(), "nope.csv")}.Each(context.Background(), func(sitemap.Location) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFile_StopsOnCallbackError(t *testing.T) {
	p := writeFile(t, "pages.txt", "/a\n/b\n/c\n")
	stop := errors.New("stop")
	calls := 0
	err := File{Path: p}.Each(context.Background(), func(sitemap.Location) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestFile_CanceledContext(t *testing.T) {
	p := writeFile(t, "pages.txt", "/a\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := File{Path: p}.Each(ctx, func(sitemap.Location) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecord_FeedsMap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, sitemap.Subdirectory), 0o755))
	m, err := sitemap.New(dir, "sitemap", "https://example.com", sitemap.DefaultOptions())
	require.NoError(t, err)

	p := writeFile(t, "pages.csv", "loc,changefreq\n/a,monthly\n/a,monthly\n/b,sometimes\n/c,\n")
	var rejected []error
	err = File{Path: p, Defaults: DefaultValues()}.Each(context.Background(), func(l sitemap.Location) error {
		if err := m.AddEntry(l); err != nil {
			if errors.Is(err, sitemap.ErrInvalidFrequency) {
				rejected = append(rejected, err)
				return nil
			}
			return err
		}
		return nil
	})
	require.NoError(t, err)
	report, err := m.Finalize()
	require.NoError(t, err)

	assert.Len(t, rejected, 1)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/c"}, report.URLs)
}
