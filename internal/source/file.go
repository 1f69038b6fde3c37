package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/sitemap-writer/internal/sitemap"
	"gopkg.in/yaml.v3"
)

// File reads records from a flat file. The format follows the extension:
// .csv (header row naming loc, lastmod, changefreq, priority), .json/.jsonl
// (one object per line), .yaml/.yml (a list of objects) or .txt (one
// location per line, # starts a comment).
type File struct {
	Path     string
	Defaults Defaults
}

// Each implements Source.
func (f File) Each(ctx context.Context, fn func(sitemap.Location) error) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return &Error{Source: f.Path, Message: "failed to open file", Cause: err}
	}
	defer func() { _ = file.Close() }()

	emit := func(r Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(r.Location(f.Defaults))
	}

	switch ext := strings.ToLower(filepath.Ext(f.Path)); ext {
	case ".csv":
		err = readCSV(file, emit)
	case ".json", ".jsonl", ".ndjson":
		err = readJSONLines(file, emit)
	case ".yaml", ".yml":
		err = readYAML(file, emit)
	case ".txt", "":
		err = readLines(file, emit)
	default:
		return &Error{Source: f.Path, Message: fmt.Sprintf("unsupported file extension %q", ext)}
	}
	if err != nil {
		var serr *Error
		if errors.As(err, &serr) {
			serr.Source = f.Path
		}
		return err
	}
	return nil
}

func readCSV(r io.Reader, emit func(Record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return &Error{Message: "failed to read CSV header", Cause: err}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["loc"]; !ok {
		return &Error{Message: "CSV header must contain a loc column"}
	}

	get := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return &Error{Message: fmt.Sprintf("failed to read CSV line %d", line), Cause: err}
		}
		priority, err := parsePriority(get(row, "priority"))
		if err != nil {
			return &Error{Message: fmt.Sprintf("line %d", line), Cause: err}
		}
		rec := Record{
			Loc:             get(row, "loc"),
			LastModified:    get(row, "lastmod"),
			ChangeFrequency: get(row, "changefreq"),
			Priority:        priority,
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}

func readJSONLines(r io.Reader, emit func(Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return &Error{Message: fmt.Sprintf("failed to parse JSON on line %d", line), Cause: err}
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &Error{Message: "failed to read JSON lines", Cause: err}
	}
	return nil
}

func readYAML(r io.Reader, emit func(Record) error) error {
	var records []Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil && err != io.EOF {
		return &Error{Message: "failed to parse YAML", Cause: err}
	}
	for _, rec := range records {
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

func readLines(r io.Reader, emit func(Record) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := emit(Record{Loc: text}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &Error{Message: "failed to read lines", Cause: err}
	}
	return nil
}
