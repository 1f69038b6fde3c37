package sitemap

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

type parsedURL struct {
	Loc        string `xml:"loc"`
	Lastmod    string `xml:"lastmod"`
	Changefreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type parsedURLSet struct {
	XMLName xml.Name    `xml:"urlset"`
	URLs    []parsedURL `xml:"url"`
}

type parsedIndex struct {
	XMLName  xml.Name    `xml:"sitemapindex"`
	Sitemaps []parsedURL `xml:"sitemap"`
}

// newOutputDir returns a temp dir containing the sitemap subdirectory.
func newOutputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, Subdirectory), 0o755))
	return dir
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = fixedNow
	return opts
}

func readURLSet(t *testing.T, path string) parsedURLSet {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var set parsedURLSet
	require.NoError(t, xml.Unmarshal(data, &set), "file should be well-formed: %s", path)
	return set
}

func readIndex(t *testing.T, path string) parsedIndex {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var idx parsedIndex
	require.NoError(t, xml.Unmarshal(data, &idx), "file should be well-formed: %s", path)
	return idx
}

func locs(set parsedURLSet) []string {
	out := make([]string, len(set.URLs))
	for i, u := range set.URLs {
		out[i] = u.Loc
	}
	return out
}
