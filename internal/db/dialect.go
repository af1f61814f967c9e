package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"     // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Dialect names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// storedTimeLayout is a fixed-width UTC layout, so SQLite text timestamps
// sort chronologically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB is a database handle that knows which SQL dialect it speaks.
type DB struct {
	*sql.DB
	Dialect string
	dsn     string
}

// Open connects to the database named by url.  postgres:// and
// postgresql:// URLs use lib/pq; sqlite://<path> and file: URLs use the
// pure-Go SQLite driver, creating the parent directory when needed.
func Open(ctx context.Context, url string) (*DB, error) {
	var (
		dialect, dsn string
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialect, dsn = Postgres, url
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
		path := strings.TrimPrefix(url, "sqlite://")
		if dir := filepath.Dir(strings.TrimPrefix(strings.SplitN(path, "?", 2)[0], "file:")); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dialect, dsn = SQLite, path+sep+"_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}

	sqlDB, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dialect == SQLite {
		// One writer at a time; SQLite serialises writes anyway.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: sqlDB, Dialect: dialect, dsn: dsn}, nil
}

// rebind rewrites ? placeholders to $n for Postgres.  Queries in this
// package never contain a literal question mark.
func (d *DB) rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg converts t into the value stored in a timestamp column.
func (d *DB) timeArg(t time.Time) any {
	t = t.UTC()
	if d.Dialect == Postgres {
		return t
	}
	return t.Format(storedTimeLayout)
}

// nullTime scans a timestamp stored natively (Postgres) or as text
// (SQLite).
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (nt *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	case time.Time:
		nt.Time, nt.Valid = v.UTC(), true
		return nil
	case string:
		return nt.parse(v)
	case []byte:
		return nt.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (nt *nullTime) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	nt.Time, nt.Valid = t.UTC(), true
	return nil
}

func (nt nullTime) ptr() *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
