package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildIndex(t *testing.T) {
	dir := t.TempDir()
	mod := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, name := range []string{"b.xml", "a.xml", "notes.txt"} {
		p := writeFile(t, dir, filepath.Join(sitemap.Subdirectory, name), "<urlset/>")
		require.NoError(t, os.Chtimes(p, mod, mod))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, sitemap.Subdirectory, "c.xml"), 0o755))

	groups, err := RebuildIndex(dir, "https://example.com/", sitemap.DefaultIndexOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/sitemap/a.xml",
		"https://example.com/sitemap/b.xml",
	}, groups)

	idx := readIndex(t, filepath.Join(dir, "sitemap.xml"))
	require.Len(t, idx.Sitemaps, 2)
	assert.Equal(t, "2024-06-01T12:00:00+00:00", idx.Sitemaps[0].Lastmod)
}

func TestRebuildIndex_NoFiles(t *testing.T) {
	dir := t.TempDir()

	groups, err := RebuildIndex(dir, "https://example.com", sitemap.DefaultIndexOptions())
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = os.Stat(filepath.Join(dir, "sitemap.xml"))
	assert.True(t, os.IsNotExist(err))
}

func TestRebuildIndex_InvalidBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join(sitemap.Subdirectory, "a.xml"), "<urlset/>")

	_, err := RebuildIndex(dir, "not a url", sitemap.DefaultIndexOptions())
	assert.ErrorIs(t, err, sitemap.ErrInvalidLocation)
}

func TestRebuildIndex_CreationOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"blog-10.xml", "shop.xml", "blog-2.xml", "blog.xml", "blog-archive.xml"} {
		writeFile(t, dir, filepath.Join(sitemap.Subdirectory, name), "<urlset/>")
	}

	groups, err := RebuildIndex(dir, "https://example.com", sitemap.DefaultIndexOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/sitemap/blog.xml",
		"https://example.com/sitemap/blog-2.xml",
		"https://example.com/sitemap/blog-10.xml",
		"https://example.com/sitemap/blog-archive.xml",
		"https://example.com/sitemap/shop.xml",
	}, groups)
}

func TestFileNumber(t *testing.T) {
	tests := []struct {
		path string
		name string
		n    int
	}{
		{"blog.xml", "blog", 1},
		{"blog-2.xml", "blog", 2},
		{"/out/sitemap/blog-10.xml", "blog", 10},
		{"blog-archive.xml", "blog-archive", 1},
		{"blog-1.xml", "blog-1", 1},
		{"-3.xml", "-3", 1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			name, n := fileNumber(tt.path)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.n, n)
		})
	}
}
