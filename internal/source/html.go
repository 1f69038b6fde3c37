package source

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
)

// HTMLDir discovers pages in a directory of static HTML files. The location
// is the file's path relative to Root, with index.html collapsed to its
// directory. A root-relative or absolute canonical link replaces it. Pages
// whose robots meta tag contains noindex are skipped, as are pages whose
// canonical link points at a host other than Website's, when Website is set.
// The last modified time comes from an article:modified_time meta tag,
// falling back to the file's modification time.
type HTMLDir struct {
	Root     string
	Website  string
	Defaults Defaults
}

// Each implements Source.
func (h HTMLDir) Each(ctx context.Context, fn func(sitemap.Location) error) error {
	var site *url.URL
	if h.Website != "" {
		u, err := url.Parse(h.Website)
		if err != nil || u.Host == "" {
			return &Error{Source: h.Root, Message: fmt.Sprintf("invalid website: %s (must have scheme and host)", h.Website), Cause: err}
		}
		site = u
	}

	info, err := os.Stat(h.Root)
	if err != nil {
		return &Error{Source: h.Root, Message: "failed to stat directory", Cause: err}
	}
	if !info.IsDir() {
		return &Error{Source: h.Root, Message: "not a directory"}
	}

	return filepath.WalkDir(h.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &Error{Source: p, Message: "failed to walk directory", Cause: err}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != h.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".html" && ext != ".htm" {
			return nil
		}

		rel, err := filepath.Rel(h.Root, p)
		if err != nil {
			return &Error{Source: p, Message: "failed to resolve path", Cause: err}
		}
		rec, keep, err := page(p, rel, site)
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
		return fn(rec.Location(h.Defaults))
	})
}

func page(p, rel string, site *url.URL) (Record, bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return Record{}, false, &Error{Source: p, Message: "failed to open page", Cause: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Record{}, false, &Error{Source: p, Message: "failed to stat page", Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return Record{}, false, &Error{Source: p, Message: "failed to parse HTML", Cause: err}
	}

	if robots, ok := doc.Find(`meta[name="robots"]`).First().Attr("content"); ok {
		if strings.Contains(strings.ToLower(robots), "noindex") {
			return Record{}, false, nil
		}
	}

	rec := Record{
		Loc:          pagePath(rel),
		LastModified: info.ModTime().UTC().Format(time.RFC3339),
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		loc, canonicalHost := canonicalPath(href)
		if site != nil && canonicalHost != "" && !strings.EqualFold(canonicalHost, site.Host) {
			// the page duplicates one on another site
			return Record{}, false, nil
		}
		if loc != "" {
			rec.Loc = relativeTo(site, loc)
		}
	}
	if modified, ok := doc.Find(`meta[property="article:modified_time"]`).First().Attr("content"); ok {
		if modified = strings.TrimSpace(modified); modified != "" {
			rec.LastModified = modified
		}
	}
	return rec, true, nil
}

// pagePath converts a relative file path to a percent-encoded site path.
func pagePath(rel string) string {
	p := "/" + filepath.ToSlash(rel)
	base := path.Base(p)
	if base == "index.html" || base == "index.htm" {
		if p = path.Dir(p); p != "/" {
			p += "/"
		}
	}
	return (&url.URL{Path: p}).EscapedPath()
}

// relativeTo strips the website's path prefix from a root-relative location
// so resolving it against the website does not repeat the prefix.
func relativeTo(site *url.URL, loc string) string {
	if site == nil {
		return loc
	}
	prefix := strings.TrimRight(site.EscapedPath(), "/")
	if prefix == "" {
		return loc
	}
	if loc == prefix {
		return "/"
	}
	if rest, ok := strings.CutPrefix(loc, prefix); ok && (strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "?")) {
		if strings.HasPrefix(rest, "?") {
			return "/" + rest
		}
		return rest
	}
	return loc
}

// canonicalPath reduces a canonical href to its path and query so it can be
// resolved against the configured website. It also returns the href's host,
// empty for root-relative links.
func canonicalPath(href string) (loc, host string) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", ""
	}
	if u.Host == "" && !strings.HasPrefix(u.Path, "/") {
		return "", ""
	}
	loc = u.EscapedPath()
	if loc == "" {
		loc = "/"
	}
	if u.RawQuery != "" {
		loc += "?" + u.RawQuery
	}
	return loc, u.Host
}
