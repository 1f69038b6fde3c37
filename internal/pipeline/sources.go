package pipeline

import (
	"context"
	"database/sql"

	"github.com/jonathan/sitemap-writer/internal/config"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/jonathan/sitemap-writer/internal/source"
)

type databaseOpener func(ctx context.Context, databaseURL string) (*sql.DB, error)

func noClose() error { return nil }

// newSource builds the source configured for site i. The returned func
// releases any database handle.
func newSource(ctx context.Context, cfg *config.Config, i int, open databaseOpener) (source.Source, func() error, error) {
	site := cfg.Sites[i]
	defaults := siteDefaults(site)

	switch {
	case site.Input != "":
		return source.File{Path: site.Input, Defaults: defaults}, noClose, nil
	case site.HTMLDir != "":
		return source.HTMLDir{Root: site.HTMLDir, Website: site.Website, Defaults: defaults}, noClose, nil
	default:
		db, err := open(ctx, cfg.SiteDatabaseURL(i))
		if err != nil {
			return nil, nil, err
		}
		return source.SQL{DB: db, Query: site.Query, Defaults: defaults}, db.Close, nil
	}
}

// siteDefaults applies a site's changefreq and priority on top of the
// package defaults.
func siteDefaults(site config.Site) source.Defaults {
	d := source.DefaultValues()
	if site.ChangeFrequency != "" {
		d.ChangeFrequency = sitemap.Frequency(site.ChangeFrequency)
	}
	if site.Priority != nil {
		p := *site.Priority
		d.Priority = &p
	}
	return d
}
