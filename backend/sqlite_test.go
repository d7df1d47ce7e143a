package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteInsertAndSelect(t *testing.T) {
	s := setupTestSQLite(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	posts := []Row{
		{"id": "p1", "slug": "first", "title": "First", "created_at": created, "published": true},
		{"id": "p2", "slug": "second", "title": "Second", "created_at": created.Add(time.Hour), "published": true},
		{"id": "p3", "slug": "draft", "title": "Draft", "created_at": created.Add(2 * time.Hour), "published": false},
	}
	for _, p := range posts {
		if err := s.Insert(ctx, "blog_posts", p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := s.Select(ctx, Query{
		Table:   "blog_posts",
		Filters: []Filter{Eq("published", true)},
		Order:   []Order{Desc("created_at")},
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Select count = %d, want 2 (excluding unpublished)", len(got))
	}
	if got[0]["slug"] != "second" {
		t.Errorf("first row slug = %v, want second", got[0]["slug"])
	}
	if got[0]["published"] != int64(1) {
		t.Errorf("published = %#v, want int64(1)", got[0]["published"])
	}
	if got[0]["description"] != nil {
		t.Errorf("description = %#v, want nil", got[0]["description"])
	}
}

func TestSQLiteUpdate(t *testing.T) {
	s := setupTestSQLite(t)
	ctx := context.Background()

	if err := s.Insert(ctx, "blog_posts", Row{"id": "p1", "slug": "a", "title": "A", "created_at": "2024-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Update(ctx, "blog_posts", []Filter{Eq("id", "p1")}, Row{"label": "popular"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := s.Select(ctx, Query{Table: "blog_posts", Filters: []Filter{Eq("slug", "a")}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(got) != 1 || got[0]["label"] != "popular" {
		t.Errorf("label not updated: %v", got)
	}
}

func TestSQLiteLimit(t *testing.T) {
	s := setupTestSQLite(t)
	ctx := context.Background()
	for i, slug := range []string{"a", "b", "c"} {
		row := Row{"id": slug, "slug": slug, "title": slug, "created_at": time.Unix(int64(i), 0), "published": true}
		if err := s.Insert(ctx, "blog_posts", row); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	got, err := s.Select(ctx, Query{Table: "blog_posts", Limit: 2})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Select count = %d, want 2", len(got))
	}
}

func TestSQLiteRejectsUnknownTable(t *testing.T) {
	s := setupTestSQLite(t)
	if _, err := s.Select(context.Background(), Query{Table: "nope"}); err == nil {
		t.Error("expected error selecting from missing table")
	}
}
