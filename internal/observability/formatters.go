// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"github.com/jonathan/sitemap-writer/internal/verify"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// SiteSummary describes the output of one generated site.
type SiteSummary struct {
	Name     string
	Website  string
	Report   sitemap.Report
	Rejected int
}

// RunSummary describes one generate run.
type RunSummary struct {
	RunID     uuid.UUID
	Sites     []SiteSummary
	IndexPath string
	Groups    int
	Duration  time.Duration
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSite outputs the files and URLs written for one site.
func (p *Printer) PrintSite(site SiteSummary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Website:  %s\n", site.Website))
	sb.WriteString(fmt.Sprintf("URLs:     %d\n", len(site.Report.URLs)))
	if site.Rejected > 0 {
		sb.WriteString(fmt.Sprintf("Rejected: %d\n", site.Rejected))
	}

	if len(site.Report.FilePaths) > 0 {
		sb.WriteString("\nFiles:\n")
		count := min(len(site.Report.FilePaths), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", filepath.Base(site.Report.FilePaths[i])))
		}
		if len(site.Report.FilePaths) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(site.Report.FilePaths)-maxItemsToShow))
		}
	}

	p.printBox("SITE "+strings.ToUpper(site.Name), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs totals for a generate run.
func (p *Printer) PrintRunSummary(run RunSummary) {
	files, urls, rejected := 0, 0, 0
	for _, s := range run.Sites {
		files += len(s.Report.FilePaths)
		urls += len(s.Report.URLs)
		rejected += s.Rejected
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.RunID))
	sb.WriteString(fmt.Sprintf("Sites:    %d\n", len(run.Sites)))
	sb.WriteString(fmt.Sprintf("Files:    %d\n", files))
	sb.WriteString(fmt.Sprintf("URLs:     %d\n", urls))
	if rejected > 0 {
		sb.WriteString(fmt.Sprintf("Rejected: %d\n", rejected))
	}
	if run.Groups > 0 {
		sb.WriteString(fmt.Sprintf("Index:    %s (%d groups)\n", filepath.Base(run.IndexPath), run.Groups))
	} else {
		sb.WriteString("Index:    not written\n")
	}
	sb.WriteString(fmt.Sprintf("Duration: %s", run.Duration.Round(time.Millisecond)))

	p.printBox("SITEMAP GENERATION", sb.String())
}

// PrintVerifyResults outputs the files checked by verify.Dir.
func (p *Printer) PrintVerifyResults(results []*verify.Result) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("✓ %s\n", filepath.Base(r.Path)))
		sb.WriteString(fmt.Sprintf("  %s, %d records, %d bytes", r.Kind, r.Records, r.Size))
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SITEMAP CHECK", sb.String())
}

// PrintVerifyError outputs the issues found in one file.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintVerifyError(verr *verify.Error) {
	if verr == nil {
		return
	}
	if len(verr.Issues) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "⚠ "+verr.Message)
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %d issues\n\n", filepath.Base(verr.Path), len(verr.Issues)))

	count := min(len(verr.Issues), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", verr.Issues[i].String()))
	}
	if len(verr.Issues) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more issues", len(verr.Issues)-maxItemsToShow))
	}

	p.printBox("SITEMAP VIOLATIONS", strings.TrimSuffix(sb.String(), "\n"))
}
