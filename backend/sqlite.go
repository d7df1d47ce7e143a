package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a local stand-in for the hosted service, used in development and
// tests. It creates every table the site reads or writes.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed while an admin write is in progress; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT,
    hero_image TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT,
    published INTEGER NOT NULL DEFAULT 0,
    category TEXT,
    label TEXT,
    conclusion TEXT
);
CREATE TABLE IF NOT EXISTS blog_sections (
    id TEXT PRIMARY KEY,
    blog_post_id TEXT NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS section_content (
    id TEXT PRIMARY KEY,
    section_id TEXT NOT NULL REFERENCES blog_sections(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    content TEXT
);
CREATE TABLE IF NOT EXISTS blog_faqs (
    id TEXT PRIMARY KEY,
    blog_post_id TEXT NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
    question TEXT NOT NULL,
    answer TEXT,
    position INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS contact_submissions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    company TEXT,
    phone TEXT,
    message TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS product_updates (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT,
    version TEXT,
    published INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT
);
CREATE TABLE IF NOT EXISTS seo_reports (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT,
    description TEXT,
    h1_count INTEGER NOT NULL DEFAULT 0,
    images_missing_alt INTEGER NOT NULL DEFAULT 0,
    canonical TEXT,
    issues TEXT,
    score INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
`)
	return err
}

// sqliteArgs maps Go values onto the storage classes SQLite understands.
func sqliteArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case bool:
			if v {
				out[i] = 1
			} else {
				out[i] = 0
			}
		case time.Time:
			out[i] = v.UTC().Format(time.RFC3339Nano)
		default:
			out[i] = a
		}
	}
	return out
}

// Select implements Backend.
func (s *SQLite) Select(ctx context.Context, q Query) ([]Row, error) {
	query, args, err := buildSelect(q, question)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, sqliteArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert implements Backend.
func (s *SQLite) Insert(ctx context.Context, table string, row Row) error {
	query, args, err := buildInsert(table, row, question)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, sqliteArgs(args)...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Update implements Backend.
func (s *SQLite) Update(ctx context.Context, table string, filters []Filter, row Row) error {
	query, args, err := buildUpdate(table, filters, row, question)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, sqliteArgs(args)...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}
