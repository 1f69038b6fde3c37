package sitemap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxEntriesPerFile is the number of <url> records per file before rotation
	DefaultMaxEntriesPerFile = 40000
	// MaxEntriesPerFileLimit is the protocol maximum of records in one file
	MaxEntriesPerFileLimit = 50000
	// DefaultBufferSize is the number of records kept in memory between flushes
	DefaultBufferSize = 1000
	// MaxFileSizeLimit is the protocol maximum size of an uncompressed file
	MaxFileSizeLimit = 50 * 1024 * 1024
	// MinFileSize leaves room for the largest possible record in a new file
	MinFileSize = 16 * 1024
	// Subdirectory holds every url set file under the output directory.
	// It must exist before the first flush.
	Subdirectory = "sitemap"
)

// Options configures a Map. Zero numeric fields take their defaults.
type Options struct {
	MaxEntriesPerFile int
	BufferSize        int
	// MaxFileSize rotates to a new file before one would grow past it.
	MaxFileSize int64
	// Indent pretty-prints the XML.
	Indent bool
	// OmitDefaultPriority skips <priority> when it equals DefaultPriority.
	OmitDefaultPriority bool
	// Now resolves "now" timestamps; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns indented output with the default limits.
func DefaultOptions() Options {
	return Options{
		MaxEntriesPerFile: DefaultMaxEntriesPerFile,
		BufferSize:        DefaultBufferSize,
		MaxFileSize:       MaxFileSizeLimit,
		Indent:            true,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.MaxEntriesPerFile < 0 || o.BufferSize < 0 || o.MaxFileSize < 0 {
		return o, fmt.Errorf("invalid options: max entries per file, buffer size and max file size must be non-negative")
	}
	if o.MaxEntriesPerFile == 0 {
		o.MaxEntriesPerFile = DefaultMaxEntriesPerFile
	}
	if o.MaxEntriesPerFile > MaxEntriesPerFileLimit {
		return o, fmt.Errorf("%w: at most %d entries per file, got %d", ErrLimitExceeded, MaxEntriesPerFileLimit, o.MaxEntriesPerFile)
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	switch {
	case o.MaxFileSize == 0:
		o.MaxFileSize = MaxFileSizeLimit
	case o.MaxFileSize > MaxFileSizeLimit:
		return o, fmt.Errorf("%w: at most %d bytes per file, got %d", ErrLimitExceeded, MaxFileSizeLimit, o.MaxFileSize)
	case o.MaxFileSize < MinFileSize:
		return o, fmt.Errorf("invalid options: max file size must be at least %d bytes, got %d", MinFileSize, o.MaxFileSize)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o, nil
}

// Report lists what a finalized Map wrote.
type Report struct {
	// FilePaths are the written files in creation order.
	FilePaths []string
	// URLs are the written locations in insertion order.
	URLs []string
}

// FileNames returns the base name of every written file.
func (r Report) FileNames() []string {
	names := make([]string, len(r.FilePaths))
	for i, p := range r.FilePaths {
		names[i] = filepath.Base(p)
	}
	return names
}

// Groups returns one index Group per written file, located at
// <base>/sitemap/<file name>.
func (r Report) Groups(base, lastModified string) []Group {
	groups := make([]Group, 0, len(r.FilePaths))
	for _, name := range r.FileNames() {
		groups = append(groups, Group{
			Loc:          ResolveLocation(base, Subdirectory+"/"+name),
			LastModified: lastModified,
		})
	}
	return groups
}

// Map writes one logical set of locations into one or more url set files
// named <filename>.xml, <filename>-2.xml, ... under <dir>/sitemap.
//
// A Map is not safe for concurrent use: rotation and buffering mutate its
// counters and the open file as one unit, so callers need exclusive access.
type Map struct {
	dir      string
	filename string
	website  string
	opts     Options

	count     int
	inFile    int
	files     int
	writer    *StreamWriter
	seen      map[string]struct{}
	urls      []string
	filePaths []string

	err       error
	finalized bool
}

// New returns a Map writing under dir/sitemap for the given website base.
func New(dir, filename, website string, opts Options) (*Map, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return nil, fmt.Errorf("invalid file name %q: must be non-empty and contain no path separator", filename)
	}
	website = strings.TrimRight(website, "/")
	if err := ValidateLocation(website); err != nil {
		return nil, err
	}

	return &Map{
		dir:      dir,
		filename: filename,
		website:  website,
		opts:     opts,
		seen:     make(map[string]struct{}),
	}, nil
}

// AddEntry validates loc and writes it to the current file, rotating or
// flushing first when a limit is reached. A file rotates once it holds
// MaxEntriesPerFile records or when the record would push it past
// MaxFileSize. A location already written is silently ignored.
//
// Validation errors leave the Map untouched. I/O errors are permanent: every
// later call returns the same error.
func (m *Map) AddEntry(loc Location) error {
	if m.err != nil {
		return m.err
	}
	if m.finalized {
		return ErrFinalized
	}

	rec, err := m.resolve(loc)
	if err != nil {
		return err
	}
	if _, ok := m.seen[rec.loc]; ok {
		return nil
	}

	fields := rec.fields()
	switch {
	case m.count == 0:
		err = m.openFile()
	case m.inFile == m.opts.MaxEntriesPerFile || !m.fits(fields):
		// closing flushes, so a coinciding buffer boundary needs nothing more
		if err = m.closeFile(); err == nil {
			err = m.openFile()
		}
	case m.inFile%m.opts.BufferSize == 0:
		err = m.writer.FlushToSink()
	}
	if err != nil {
		m.err = err
		return err
	}

	if err := m.writer.WriteRecord("url", fields); err != nil {
		m.err = err
		return err
	}

	m.seen[rec.loc] = struct{}{}
	m.urls = append(m.urls, rec.loc)
	m.count++
	m.inFile++
	return nil
}

// fits reports whether the open file stays within MaxFileSize after the
// record and the closing root element. Records are only measured once the
// file gets within MinFileSize of the limit.
func (m *Map) fits(fields []Field) bool {
	size := m.writer.Size() + m.writer.ClosingSize()
	if size+MinFileSize <= m.opts.MaxFileSize {
		return true
	}
	return size+m.writer.RecordSize("url", fields) <= m.opts.MaxFileSize
}

// Finalize closes the open file and reports what was written. A Map that
// never accepted an entry writes nothing. Calling Finalize again returns the
// same report.
func (m *Map) Finalize() (Report, error) {
	if m.err != nil {
		return Report{}, m.err
	}
	if !m.finalized {
		if err := m.closeFile(); err != nil {
			m.err = err
			return Report{}, err
		}
		m.finalized = true
	}
	return Report{
		FilePaths: m.WrittenFilePaths(),
		URLs:      m.WrittenURLs(),
	}, nil
}

// WrittenURLs returns the accepted locations in insertion order.
func (m *Map) WrittenURLs() []string {
	return append([]string(nil), m.urls...)
}

// WrittenFilePaths returns the files opened so far in creation order.
func (m *Map) WrittenFilePaths() []string {
	return append([]string(nil), m.filePaths...)
}

// Count returns the number of accepted locations.
func (m *Map) Count() int {
	return m.count
}

func (m *Map) resolve(loc Location) (record, error) {
	abs := ResolveLocation(m.website, loc.Loc)
	if err := ValidateEntry(abs, loc.Priority, loc.ChangeFrequency); err != nil {
		return record{}, err
	}

	rec := record{loc: abs, changefreq: string(loc.ChangeFrequency)}
	if loc.LastModified != "" {
		ts, err := NormalizeTimestamp(loc.LastModified, m.opts.Now())
		if err != nil {
			return record{}, err
		}
		rec.lastmod = ts
	}
	if p := loc.Priority; p != nil && !(m.opts.OmitDefaultPriority && *p == DefaultPriority) {
		rec.priority = strconv.FormatFloat(*p, 'f', 1, 64)
	}
	return rec, nil
}

func (m *Map) fileName(n int) string {
	if n > 1 {
		return fmt.Sprintf("%s-%d.xml", m.filename, n)
	}
	return m.filename + ".xml"
}

func (m *Map) openFile() error {
	n := m.files + 1
	path := filepath.Join(m.dir, Subdirectory, m.fileName(n))
	if err := replaceExisting(path); err != nil {
		return err
	}

	w := NewStreamWriter(m.opts.Indent)
	w.Open(path)
	if err := w.StartRoot("urlset", Namespace); err != nil {
		return err
	}

	m.files = n
	m.inFile = 0
	m.filePaths = append(m.filePaths, path)
	m.writer = w
	return nil
}

func (m *Map) closeFile() error {
	if m.writer == nil {
		return nil
	}
	w := m.writer
	m.writer = nil
	return w.Close()
}

// replaceExisting deletes a previous file at path so the new document does
// not inherit its content.
func replaceExisting(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &IOError{Path: path, Message: "unable to inspect file", Kind: ErrIOUnavailable, Cause: err}
	}
	if !info.Mode().IsRegular() {
		return &IOError{Path: path, Message: "file is not writable", Kind: ErrFileNotWritable}
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &IOError{Path: path, Message: "file is not writable", Kind: ErrFileNotWritable, Cause: err}
	}
	_ = f.Close()

	if err := os.Remove(path); err != nil {
		return &IOError{Path: path, Message: "unable to remove file", Kind: ErrFileNotWritable, Cause: err}
	}
	return nil
}
