package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jonathan/sitemap-writer/internal/sitemap"
	_ "modernc.org/sqlite"
)

// DefaultQuery selects the canonical columns from a pages table.
const DefaultQuery = `SELECT loc, lastmod, changefreq, priority FROM pages ORDER BY loc`

// Driver names registered by the imported database drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// column aliases accepted in query results
var columnAliases = map[string]string{
	"loc":              "loc",
	"location":         "loc",
	"url":              "loc",
	"path":             "loc",
	"lastmod":          "lastmod",
	"last_modified":    "lastmod",
	"updated_at":       "lastmod",
	"changefreq":       "changefreq",
	"change_frequency": "changefreq",
	"priority":         "priority",
}

// SQL reads locations from the rows of a query. Column names select the
// field they populate; unknown columns are ignored and a loc column is
// required.
type SQL struct {
	DB       *sql.DB
	Query    string
	Args     []any
	Defaults Defaults
}

// OpenDatabase opens a database from a URL. postgres:// and postgresql://
// URLs use pgx; sqlite:// URLs, file: URIs and *.db / *.sqlite paths use
// SQLite.
func OpenDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	driver, dsn, err := DriverFor(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &Error{Source: redact(databaseURL), Message: "failed to open database", Cause: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &Error{Source: redact(databaseURL), Message: "failed to ping database", Cause: err}
	}
	return db, nil
}

// DriverFor maps a database URL to a registered driver name and its DSN.
func DriverFor(databaseURL string) (driver, dsn string, err error) {
	u := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, u, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return DriverSQLite, u[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "file:"), lower == ":memory:",
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return DriverSQLite, u, nil
	}
	return "", "", &Error{Source: redact(databaseURL), Message: "unsupported database URL"}
}

// Each implements Source.
func (s SQL) Each(ctx context.Context, fn func(sitemap.Location) error) error {
	query := s.Query
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}

	rows, err := s.DB.QueryContext(ctx, query, s.Args...)
	if err != nil {
		return &Error{Source: "sql", Message: "query failed", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return &Error{Source: "sql", Message: "failed to read columns", Cause: err}
	}
	fields := make([]string, len(cols))
	hasLoc := false
	for i, c := range cols {
		fields[i] = columnAliases[strings.ToLower(c)]
		if fields[i] == "loc" {
			hasLoc = true
		}
	}
	if !hasLoc {
		return &Error{Source: "sql", Message: fmt.Sprintf("query must return a loc column, got %v", cols)}
	}

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	row := 0
	for rows.Next() {
		row++
		if err := rows.Scan(dest...); err != nil {
			return &Error{Source: "sql", Message: fmt.Sprintf("failed to scan row %d", row), Cause: err}
		}
		var rec Record
		for i, f := range fields {
			switch f {
			case "loc":
				rec.Loc = stringValue(values[i])
			case "lastmod":
				rec.LastModified = stringValue(values[i])
			case "changefreq":
				rec.ChangeFrequency = stringValue(values[i])
			case "priority":
				p, err := priorityValue(values[i])
				if err != nil {
					return &Error{Source: "sql", Message: fmt.Sprintf("row %d", row), Cause: err}
				}
				rec.Priority = p
			}
		}
		if err := fn(rec.Location(s.Defaults)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &Error{Source: "sql", Message: "failed to iterate rows", Cause: err}
	}
	return nil
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func priorityValue(v any) (*float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &x, nil
	case float32:
		p := float64(x)
		return &p, nil
	case int64:
		p := float64(x)
		return &p, nil
	default:
		return parsePriority(stringValue(v))
	}
}

// redact hides the password of a database URL in error messages.
func redact(databaseURL string) string {
	at := strings.LastIndex(databaseURL, "@")
	scheme := strings.Index(databaseURL, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return databaseURL
	}
	userinfo := databaseURL[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return databaseURL[:scheme+3] + userinfo[:colon] + ":***" + databaseURL[at:]
	}
	return databaseURL
}
