// Package source reads page locations from files, databases and local HTML
// trees so they can be written to a sitemap.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/sitemap-writer/internal/sitemap"
)

// Source yields locations in a stable order. Each stops at the first error
// returned by fn.
type Source interface {
	Each(ctx context.Context, fn func(sitemap.Location) error) error
}

// Error represents a failure reading a source
type Error struct {
	Source  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source error: %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("source error: %s: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Record is the serialized form of a location shared by every source format.
type Record struct {
	Loc             string   `json:"loc" yaml:"loc"`
	LastModified    string   `json:"lastmod,omitempty" yaml:"lastmod,omitempty"`
	ChangeFrequency string   `json:"changefreq,omitempty" yaml:"changefreq,omitempty"`
	Priority        *float64 `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Defaults fill the fields a record leaves empty.
type Defaults struct {
	LastModified    string
	ChangeFrequency sitemap.Frequency
	Priority        *float64
}

// DefaultValues mirrors sitemap.NewLocation.
func DefaultValues() Defaults {
	p := sitemap.DefaultPriority
	return Defaults{
		LastModified:    sitemap.Now,
		ChangeFrequency: sitemap.DefaultFrequency,
		Priority:        &p,
	}
}

// Location converts r, taking empty fields from d. Values are not validated
// here; the Map rejects invalid ones.
func (r Record) Location(d Defaults) sitemap.Location {
	loc := sitemap.Location{
		Loc:             strings.TrimSpace(r.Loc),
		LastModified:    strings.TrimSpace(r.LastModified),
		ChangeFrequency: sitemap.Frequency(strings.ToLower(strings.TrimSpace(r.ChangeFrequency))),
		Priority:        r.Priority,
	}
	if loc.LastModified == "" {
		loc.LastModified = d.LastModified
	}
	if loc.ChangeFrequency == "" {
		loc.ChangeFrequency = d.ChangeFrequency
	}
	if loc.Priority == nil && d.Priority != nil {
		p := *d.Priority
		loc.Priority = &p
	}
	return loc
}

func parsePriority(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid priority %q: %w", s, err)
	}
	return &p, nil
}
