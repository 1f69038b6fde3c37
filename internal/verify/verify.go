package verify

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
)

const (
	// MaxFileSize is the protocol limit on an uncompressed sitemap file
	MaxFileSize = 50 * 1024 * 1024
	// MaxRecords is the protocol limit on records per file
	MaxRecords = 50000
	// MaxLocLength is the schema limit on <loc>
	MaxLocLength = 2048
)

// Document kinds
const (
	KindURLSet       = "urlset"
	KindSitemapIndex = "sitemapindex"
)

// Result describes a document that passed verification.
type Result struct {
	Path      string
	Kind      string
	Records   int
	Locations []string
	Size      int64
}

var validate = newValidator()

// w3c datetime forms accepted by the schema
var w3cLayouts = []string{
	"2006",
	"2006-01",
	"2006-01-02",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("w3cdatetime", func(fl validator.FieldLevel) bool {
		return isW3CDatetime(fl.Field().String())
	})
	_ = v.RegisterValidation("absurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.Scheme != "" && u.Host != "" && sitemap.IsURLEscaped(fl.Field().String())
	})
	return v
}

func isW3CDatetime(s string) bool {
	for _, layout := range w3cLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// entry holds the raw child values of one <url> or <sitemap> record.
type entry struct {
	Loc        string   `validate:"required,absurl,max=2048"`
	Lastmod    string   `validate:"omitempty,w3cdatetime"`
	Changefreq string   `validate:"omitempty,oneof=always hourly daily weekly monthly yearly never"`
	Priority   *float64 `validate:"omitempty,gte=0,lte=1"`
}

var fieldOrder = map[string]map[string]int{
	KindURLSet:       {"loc": 0, "lastmod": 1, "changefreq": 2, "priority": 3},
	KindSitemapIndex: {"loc": 0, "lastmod": 1},
}

var recordName = map[string]string{
	KindURLSet:       "url",
	KindSitemapIndex: "sitemap",
}

// File verifies the document at path.
func File(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Message: "failed to open document", Cause: err}
	}
	defer func() { _ = f.Close() }()

	res, err := Reader(f)
	if res != nil {
		res.Path = path
	}
	var verr *Error
	if errors.As(err, &verr) {
		verr.Path = path
	}
	return res, err
}

// Dir verifies the index file <dir>/sitemap.xml, when present, and every
// url set file under <dir>/sitemap. Results are ordered index first, then by
// file name.
func Dir(dir string) ([]*Result, error) {
	var paths []string
	indexPath := filepath.Join(dir, sitemap.IndexFilename)
	if _, err := os.Stat(indexPath); err == nil {
		paths = append(paths, indexPath)
	}

	matches, err := filepath.Glob(filepath.Join(dir, sitemap.Subdirectory, "*.xml"))
	if err != nil {
		return nil, &Error{Path: dir, Message: "failed to list sitemap files", Cause: err}
	}
	sort.Strings(matches)
	paths = append(paths, matches...)
	if len(paths) == 0 {
		return nil, &Error{Path: dir, Message: "no sitemap files found", Cause: fs.ErrNotExist}
	}

	results := make([]*Result, 0, len(paths))
	for _, p := range paths {
		res, err := File(p)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Reader verifies one document streamed from r.
func Reader(r io.Reader) (*Result, error) {
	cr := &countingReader{r: r}
	dec := xml.NewDecoder(cr)

	res := &Result{}
	var issues []Issue
	seen := make(map[string]struct{})

	depth := 0
	var cur *entry
	lastField := -1
	hasDecl := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Error{Message: "malformed XML", Cause: err}
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "xml" {
				hasDecl = true
				if !strings.Contains(strings.ToLower(string(t.Inst)), `encoding="utf-8"`) {
					issues = append(issues, Issue{Message: "XML declaration must declare UTF-8 encoding"})
				}
			}

		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				res.Kind = t.Name.Local
				if _, ok := recordName[res.Kind]; !ok {
					return nil, &Error{Message: fmt.Sprintf("unexpected root element <%s>", t.Name.Local)}
				}
				if t.Name.Space != sitemap.Namespace {
					issues = append(issues, Issue{Message: fmt.Sprintf("root namespace must be %s, got %q", sitemap.Namespace, t.Name.Space)})
				}
			case 2:
				if t.Name.Local != recordName[res.Kind] || t.Name.Space != sitemap.Namespace {
					issues = append(issues, Issue{Record: res.Records + 1, Message: fmt.Sprintf("unexpected element <%s>", t.Name.Local)})
					if err := dec.Skip(); err != nil {
						return nil, &Error{Message: "malformed XML", Cause: err}
					}
					depth--
					continue
				}
				cur = &entry{}
				lastField = -1
			case 3:
				// elements from other namespaces are protocol extensions
				if t.Name.Space != sitemap.Namespace {
					if err := dec.Skip(); err != nil {
						return nil, &Error{Message: "malformed XML", Cause: err}
					}
					depth--
					continue
				}
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, &Error{Message: "malformed XML", Cause: err}
				}
				depth--
				issues = append(issues, setField(cur, res, t.Name.Local, strings.TrimSpace(text), &lastField)...)
			default:
				issues = append(issues, Issue{Record: res.Records + 1, Message: fmt.Sprintf("unexpected nested element <%s>", t.Name.Local)})
				if err := dec.Skip(); err != nil {
					return nil, &Error{Message: "malformed XML", Cause: err}
				}
				depth--
			}

		case xml.EndElement:
			if depth == 2 && cur != nil {
				res.Records++
				issues = append(issues, checkEntry(cur, res.Records)...)
				if _, dup := seen[cur.Loc]; dup && cur.Loc != "" {
					issues = append(issues, Issue{Record: res.Records, Field: "loc", Message: "duplicate location " + cur.Loc})
				}
				seen[cur.Loc] = struct{}{}
				res.Locations = append(res.Locations, cur.Loc)
				cur = nil
			}
			depth--

		case xml.CharData:
			if depth > 0 && len(strings.TrimSpace(string(t))) > 0 {
				issues = append(issues, Issue{Record: res.Records, Message: "unexpected text content"})
			}
		}
	}

	res.Size = cr.n
	if res.Kind == "" {
		return nil, &Error{Message: "document has no root element"}
	}
	if !hasDecl {
		issues = append(issues, Issue{Message: "missing XML declaration"})
	}
	if res.Records > MaxRecords {
		issues = append(issues, Issue{Message: fmt.Sprintf("%d records exceed the limit of %d", res.Records, MaxRecords)})
	}
	if res.Size > MaxFileSize {
		issues = append(issues, Issue{Message: fmt.Sprintf("%d bytes exceed the limit of %d", res.Size, MaxFileSize)})
	}

	if len(issues) > 0 {
		return res, &Error{Message: fmt.Sprintf("%d protocol violation(s)", len(issues)), Issues: issues}
	}
	return res, nil
}

func setField(cur *entry, res *Result, name, value string, lastField *int) []Issue {
	record := res.Records + 1
	order, ok := fieldOrder[res.Kind][name]
	if !ok {
		return []Issue{{Record: record, Field: name, Message: "unexpected element"}}
	}
	if order <= *lastField {
		return []Issue{{Record: record, Field: name, Message: "element out of order or repeated"}}
	}
	*lastField = order

	switch name {
	case "loc":
		cur.Loc = value
	case "lastmod":
		cur.Lastmod = value
	case "changefreq":
		cur.Changefreq = value
	case "priority":
		p, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return []Issue{{Record: record, Field: name, Message: "not a decimal: " + value}}
		}
		cur.Priority = &p
	}
	return nil
}

func checkEntry(e *entry, record int) []Issue {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Issue{{Record: record, Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{
			Record:  record,
			Field:   strings.ToLower(fe.StructField()),
			Message: fmt.Sprintf("failed %q rule (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return issues
}
