// Package pipeline orchestrates sitemap generation: every configured site is
// read from its source into its own Map, then the index is written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/sitemap-writer/internal/config"
	"github.com/jonathan/sitemap-writer/internal/observability"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/jonathan/sitemap-writer/internal/source"
)

// Progress steps
const (
	StepSite  = "site"
	StepIndex = "index"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Site    string `json:"site,omitempty"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions configures a generate run.
type RunOptions struct {
	Config config.Config

	// Out receives progress lines and verbose summaries; defaults to os.Stdout.
	Out io.Writer
	// Now is the clock used for "now" timestamps; defaults to time.Now.
	Now func() time.Time
	// OnProgress, when set, is called once per finished site and for the index.
	// Calls are serialized, so the callback needs no locking of its own.
	OnProgress ProgressCallback
	// OpenDatabase opens query sources; defaults to source.OpenDatabase.
	OpenDatabase databaseOpener
}

// Result describes what a run wrote.
type Result struct {
	RunID     uuid.UUID
	Sites     []observability.SiteSummary
	IndexPath string
	Groups    []string
}

// RunPipeline generates one file set per site, in parallel, then writes the
// index referencing every file in configuration order.
func RunPipeline(ctx context.Context, opts RunOptions) (*Result, error) {
	start := time.Now()
	cfg := opts.Config
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.OpenDatabase == nil {
		opts.OpenDatabase = source.OpenDatabase
	}

	// Initialize observability printer for verbose output
	printer := observability.NewPrinter(out)

	result := &Result{RunID: uuid.New()}
	var progressMu sync.Mutex
	emit := func(step, site, message string) {
		if opts.OnProgress != nil {
			progressMu.Lock()
			defer progressMu.Unlock()
			opts.OnProgress(ProgressEvent{Step: step, Site: site, Message: message, RunID: result.RunID.String()})
		}
	}

	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, sitemap.Subdirectory), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if cfg.Verbose {
		log.Printf("[VERBOSE] Run %s: %d site(s) into %s", result.RunID, len(cfg.Sites), cfg.OutputDir)
	}

	mapOpts := cfg.MapOptions()
	mapOpts.Now = now

	_, _ = fmt.Fprintf(out, "Generating %d sitemap(s)...\n", len(cfg.Sites))

	g, gCtx := errgroup.WithContext(ctx)
	result.Sites = make([]observability.SiteSummary, len(cfg.Sites))
	for i := range cfg.Sites {
		i := i
		g.Go(func() error {
			summary, err := runSite(gCtx, &cfg, i, mapOpts, opts.OpenDatabase)
			if err != nil {
				return fmt.Errorf("site %q failed: %w", cfg.Sites[i].Name, err)
			}
			// each goroutine owns its slot
			result.Sites[i] = summary
			emit(StepSite, summary.Name, fmt.Sprintf("Wrote %d URLs to %d file(s)", len(summary.Report.URLs), len(summary.Report.FilePaths)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	indexOpts := cfg.IndexOptions()
	indexOpts.Now = now
	idx := sitemap.NewIndex(cfg.OutputDir, indexOpts)
	base := cfg.IndexBase()
	for _, s := range result.Sites {
		if err := idx.AddReport(s.Report, base, sitemap.Now); err != nil {
			return nil, fmt.Errorf("writing index failed: %w", err)
		}
	}
	if err := idx.Finalize(); err != nil {
		return nil, fmt.Errorf("writing index failed: %w", err)
	}
	result.IndexPath = idx.Path()
	result.Groups = idx.WrittenURLs()
	emit(StepIndex, "", fmt.Sprintf("Indexed %d file(s)", len(result.Groups)))

	if cfg.Verbose {
		for _, s := range result.Sites {
			printer.PrintSite(s)
		}
		printer.PrintRunSummary(observability.RunSummary{
			RunID:     result.RunID,
			Sites:     result.Sites,
			IndexPath: result.IndexPath,
			Groups:    len(result.Groups),
			Duration:  time.Since(start),
		})
	}
	return result, nil
}

// runSite streams one site's source into its own Map. Entries rejected by
// validation are counted and skipped; any other error aborts the site.
func runSite(ctx context.Context, cfg *config.Config, i int, opts sitemap.Options, open databaseOpener) (observability.SiteSummary, error) {
	site := cfg.Sites[i]
	summary := observability.SiteSummary{Name: site.Name, Website: site.Website}

	src, closeSource, err := newSource(ctx, cfg, i, open)
	if err != nil {
		return summary, err
	}
	defer func() { _ = closeSource() }()

	m, err := sitemap.New(cfg.OutputDir, site.Name, site.Website, opts)
	if err != nil {
		return summary, err
	}

	err = src.Each(ctx, func(loc sitemap.Location) error {
		err := m.AddEntry(loc)
		var verr *sitemap.ValidationError
		if errors.As(err, &verr) {
			summary.Rejected++
			if cfg.Verbose {
				log.Printf("[VERBOSE] %s: skipping %q: %v", site.Name, loc.Loc, verr)
			}
			return nil
		}
		return err
	})
	if err != nil {
		return summary, err
	}

	report, err := m.Finalize()
	if err != nil {
		return summary, err
	}
	summary.Report = report
	if cfg.Verbose {
		log.Printf("[VERBOSE] %s: %d URLs in %d file(s), %d rejected", site.Name, len(report.URLs), len(report.FilePaths), summary.Rejected)
	}
	return summary, nil
}
