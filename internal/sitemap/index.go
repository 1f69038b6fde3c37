package sitemap

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	// IndexFilename is the index file written directly under the output directory
	IndexFilename = "sitemap.xml"
	// MaxGroupsPerIndex is the protocol maximum of <sitemap> records in one index
	MaxGroupsPerIndex = 50000
)

// IndexOptions configures an Index. Zero fields take their defaults.
type IndexOptions struct {
	Indent     bool
	BufferSize int
	Now        func() time.Time
}

// DefaultIndexOptions returns indented output with the default buffer size.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{Indent: true, BufferSize: DefaultBufferSize}
}

// Index writes the single sitemap index file referencing url set files.
// The file is only created once a group has been accepted.
//
// An Index is not safe for concurrent use.
type Index struct {
	path   string
	opts   IndexOptions
	writer *StreamWriter
	seen   map[string]struct{}
	urls   []string

	err       error
	finalized bool
}

// NewIndex returns an Index targeting <dir>/sitemap.xml.
func NewIndex(dir string, opts IndexOptions) *Index {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Index{
		path: filepath.Join(dir, IndexFilename),
		opts: opts,
		seen: make(map[string]struct{}),
	}
}

// Path returns the index file path.
func (x *Index) Path() string {
	return x.path
}

// AddGroup validates g and writes it as one <sitemap> record. A location
// already written is silently ignored.
func (x *Index) AddGroup(g Group) error {
	if x.err != nil {
		return x.err
	}
	if x.finalized {
		return ErrFinalized
	}

	if err := ValidateLocation(g.Loc); err != nil {
		return err
	}
	rec := record{loc: g.Loc}
	if g.LastModified != "" {
		ts, err := NormalizeTimestamp(g.LastModified, x.opts.Now())
		if err != nil {
			return err
		}
		rec.lastmod = ts
	}

	if _, ok := x.seen[rec.loc]; ok {
		return nil
	}
	if len(x.urls) >= MaxGroupsPerIndex {
		return fmt.Errorf("%w: an index holds at most %d sitemaps", ErrLimitExceeded, MaxGroupsPerIndex)
	}

	var err error
	if x.writer == nil {
		x.writer = NewStreamWriter(x.opts.Indent)
		x.writer.Open(x.path)
		err = x.writer.StartRoot("sitemapindex", Namespace)
	} else if len(x.urls)%x.opts.BufferSize == 0 {
		err = x.writer.FlushToSink()
	}
	if err == nil {
		err = x.writer.WriteRecord("sitemap", rec.fields())
	}
	if err != nil {
		x.err = err
		return err
	}

	x.seen[rec.loc] = struct{}{}
	x.urls = append(x.urls, rec.loc)
	return nil
}

// AddReport adds one group per file written by a Map, located under
// <base>/sitemap/.
func (x *Index) AddReport(r Report, base, lastModified string) error {
	for _, g := range r.Groups(base, lastModified) {
		if err := x.AddGroup(g); err != nil {
			return err
		}
	}
	return nil
}

// Finalize closes the index file. An Index without groups creates no file.
func (x *Index) Finalize() error {
	if x.err != nil {
		return x.err
	}
	if x.finalized {
		return nil
	}
	x.finalized = true
	if x.writer == nil {
		return nil
	}
	if err := x.writer.Close(); err != nil {
		x.err = err
		return err
	}
	return nil
}

// WrittenURLs returns the accepted sitemap locations in insertion order.
func (x *Index) WrittenURLs() []string {
	return append([]string(nil), x.urls...)
}
