package sitemap

import (
	"strings"
)

// Frequency is how often the page at a location is likely to change.
type Frequency string

const (
	Always  Frequency = "always"
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Never   Frequency = "never"
)

const (
	// DefaultFrequency is applied by NewLocation
	DefaultFrequency = Weekly
	// DefaultPriority is applied by NewLocation
	DefaultPriority = 0.5
	// Now resolves to the current time when the entry is written
	Now = "now"
)

// Frequencies returns the protocol change frequencies in protocol order.
func Frequencies() []Frequency {
	return []Frequency{Always, Hourly, Daily, Weekly, Monthly, Yearly, Never}
}

// Valid reports whether f is one of the protocol values.
func (f Frequency) Valid() bool {
	for _, v := range Frequencies() {
		if f == v {
			return true
		}
	}
	return false
}

// ParseFrequency converts s (case-insensitive) to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", frequencyError(s)
	}
	return f, nil
}

func frequencyError(value string) *ValidationError {
	names := make([]string, 0, 7)
	for _, f := range Frequencies() {
		names = append(names, string(f))
	}
	return &ValidationError{
		Field:   "changefreq",
		Value:   value,
		Message: "valid values are: " + strings.Join(names, ", "),
		Kind:    ErrInvalidFrequency,
	}
}

// Location is one page destined for a url set. Loc is a path (or absolute
// URL suffix) joined onto the Map's website base.
//
// Locations are values: the With methods return modified copies.
type Location struct {
	Loc string
	// LastModified is "now", any accepted timestamp layout, or empty to omit <lastmod>.
	LastModified string
	// ChangeFrequency is empty to omit <changefreq>.
	ChangeFrequency Frequency
	// Priority is nil to omit <priority>.
	Priority *float64
}

// NewLocation returns a Location with the default last-modified time,
// change frequency and priority.
func NewLocation(loc string) Location {
	p := DefaultPriority
	return Location{
		Loc:             loc,
		LastModified:    Now,
		ChangeFrequency: DefaultFrequency,
		Priority:        &p,
	}
}

// WithLastModified returns a copy with the given last-modified value.
func (l Location) WithLastModified(lastmod string) Location {
	l.LastModified = lastmod
	return l
}

// WithFrequency returns a copy with the given change frequency.
func (l Location) WithFrequency(f Frequency) Location {
	l.ChangeFrequency = f
	return l
}

// WithPriority returns a copy with the given priority.
func (l Location) WithPriority(p float64) Location {
	l.Priority = &p
	return l
}

// WithoutPriority returns a copy that writes no <priority> element.
func (l Location) WithoutPriority() Location {
	l.Priority = nil
	return l
}

// Group is one sitemap file referenced from an index. Loc must already be
// an absolute URL.
type Group struct {
	Loc string
	// LastModified is "now", any accepted timestamp layout, or empty to omit <lastmod>.
	LastModified string
}

// NewGroup returns a Group last modified now.
func NewGroup(loc string) Group {
	return Group{Loc: loc, LastModified: Now}
}

// record is a Location or Group after resolution: every value is in its
// final textual form and empty values are not written.
type record struct {
	loc        string
	lastmod    string
	changefreq string
	priority   string
}

func (r record) fields() []Field {
	fields := []Field{{"loc", r.loc}}
	if r.lastmod != "" {
		fields = append(fields, Field{"lastmod", r.lastmod})
	}
	if r.changefreq != "" {
		fields = append(fields, Field{"changefreq", r.changefreq})
	}
	if r.priority != "" {
		fields = append(fields, Field{"priority", r.priority})
	}
	return fields
}
