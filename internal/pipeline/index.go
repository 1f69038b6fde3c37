package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/sitemap-writer/internal/sitemap"
)

// RebuildIndex writes <dir>/sitemap.xml from the url set files already in
// <dir>/sitemap, in creation order: by map name, then by file number, so
// blog.xml, blog-2.xml and blog-10.xml are listed in that order. Each group's lastmod is the file's
// modification time. It returns the indexed locations; when no file exists
// no index is written.
func RebuildIndex(dir, base string, opts sitemap.IndexOptions) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, sitemap.Subdirectory, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sitemap files: %w", err)
	}
	sortByFileNumber(paths)

	idx := sitemap.NewIndex(dir, opts)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		g := sitemap.Group{
			Loc:          sitemap.ResolveLocation(base, sitemap.Subdirectory+"/"+filepath.Base(p)),
			LastModified: info.ModTime().UTC().Format(time.RFC3339),
		}
		if err := idx.AddGroup(g); err != nil {
			return nil, err
		}
	}
	if err := idx.Finalize(); err != nil {
		return nil, err
	}
	return idx.WrittenURLs(), nil
}

// sortByFileNumber orders url set paths the way a Map creates them.
func sortByFileNumber(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		ni, ki := fileNumber(paths[i])
		nj, kj := fileNumber(paths[j])
		if ni != nj {
			return ni < nj
		}
		return ki < kj
	})
}

// fileNumber splits "<name>-<n>.xml" into name and n; "<name>.xml" is file 1.
func fileNumber(p string) (string, int) {
	name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	if i := strings.LastIndexByte(name, '-'); i > 0 {
		if n, err := strconv.Atoi(name[i+1:]); err == nil && n > 1 {
			return name[:i], n
		}
	}
	return name, 1
}
