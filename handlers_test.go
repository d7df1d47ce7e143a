package fphome

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/backend"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

func siteForTests() views.SiteConfig {
	return views.SiteConfig{
		Name:        "FieldPulse Test",
		URL:         "https://fieldpulse.test",
		Description: "Field service software.",
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Site:   siteForTests(),
		Server: ServerConfig{StaticDir: t.TempDir()},
		Admin:  AdminConfig{Password: "hunter2", SessionSecret: "0123456789abcdef0123456789abcdef"},
		Blog:   BlogConfig{RetryAttempts: 1, RetryDelay: time.Millisecond},
	}
}

func newTestApp(t *testing.T, b backend.Backend, mutate ...func(*Config)) *App {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(&cfg)
	}
	a := New(cfg, ViewFuncs{}, WithBackend(b), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newSQLiteBackend(t *testing.T) *backend.SQLite {
	t.Helper()
	db, err := backend.NewSQLite(filepath.Join(t.TempDir(), "fphome.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPosts(t *testing.T, db backend.Backend) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	rows := []struct {
		table string
		row   backend.Row
	}{
		{"blog_posts", backend.Row{
			"id": "p1", "slug": "dispatch-playbook", "title": "The Dispatch Playbook",
			"description": "How top HVAC teams plan the day", "created_at": created,
			"published": true, "category": "Field Operations", "conclusion": "Plan early.",
		}},
		{"blog_posts", backend.Row{
			"id": "p2", "slug": "draft-post", "title": "Unfinished Draft",
			"created_at": created.Add(time.Hour), "published": false,
		}},
		{"blog_sections", backend.Row{"id": "s1", "blog_post_id": "p1", "title": "Morning routing", "position": 0}},
		{"section_content", backend.Row{"id": "c1", "section_id": "s1", "type": "text", "position": 0, "content": "Start with the priority jobs."}},
		{"blog_faqs", backend.Row{"id": "f1", "blog_post_id": "p1", "question": "How long does setup take?", "answer": "About a day.", "position": 0}},
	}
	for _, r := range rows {
		require.NoError(t, db.Insert(ctx, r.table, r.row), r.table)
	}
}

// downBackend fails every read.
type downBackend struct {
	backend.Backend
}

func (downBackend) Select(context.Context, backend.Query) ([]backend.Row, error) {
	return nil, errors.New("connection refused")
}

func do(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func get(a *App, target string) *httptest.ResponseRecorder {
	return do(a, httptest.NewRequest(http.MethodGet, target, nil))
}

func TestHomePage(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	rec := get(a, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `id="latest-posts"`)
	assert.Contains(t, body, "The Dispatch Playbook")
	assert.NotContains(t, body, "Unfinished Draft")
}

func TestHomePageSurvivesBackendOutage(t *testing.T) {
	a := newTestApp(t, downBackend{})

	rec := get(a, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blog-error")
}

func TestBlogList(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	rec := get(a, "/blog/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Blog | FieldPulse Test</title>")
	assert.Contains(t, body, "The Dispatch Playbook")
	assert.Contains(t, body, `href="/blog/dispatch-playbook"`)
	assert.NotContains(t, body, "Unfinished Draft")
}

func TestBlogListEmpty(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/blog/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No blog posts yet")
}

func TestBlogListBackendDown(t *testing.T) {
	a := newTestApp(t, downBackend{})

	rec := get(a, "/blog/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "blog-error")
}

func TestBlogRedirect(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/blog")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/blog/", rec.Header().Get("Location"))
}

func TestBlogPost(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	rec := get(a, "/blog/dispatch-playbook/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<h1 class="blog-post-title">The Dispatch Playbook</h1>`)
	assert.Contains(t, body, "Morning routing")
	assert.Contains(t, body, "priority jobs")
	assert.Contains(t, body, "How long does setup take?")
	assert.Contains(t, body, `<script id="blog-posting-jsonld" type="application/ld+json">`)
	assert.Contains(t, body, `"@type":"BlogPosting"`)
	assert.Contains(t, body, `"articleSection":"Field Operations"`)
	assert.NotContains(t, body, `<aside class="blog-related">`, "no other posts share the category")
}

func TestBlogPostRelated(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	require.NoError(t, db.Insert(context.Background(), "blog_posts", backend.Row{
		"id": "p3", "slug": "crew-scheduling", "title": "Crew Scheduling", "published": true,
		"category": "Field Operations", "created_at": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}))
	a := newTestApp(t, db)

	body := get(a, "/blog/dispatch-playbook/").Body.String()
	related := body[strings.Index(body, `<div id="related-posts"`):]
	assert.Contains(t, related, `<aside class="blog-related">`)
	assert.Contains(t, related, `href="/blog/crew-scheduling"`)
	assert.NotContains(t, related, "dispatch-playbook")
}

func TestBlogPostNotFound(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	for _, slug := range []string{"missing", "draft-post"} {
		rec := get(a, "/blog/"+slug+"/")
		assert.Equal(t, http.StatusNotFound, rec.Code, slug)
		assert.Contains(t, rec.Body.String(), "Post not found", slug)
		assert.NotContains(t, rec.Body.String(), "blog-posting-jsonld", slug)
	}
}

func TestBlogPostBackendDown(t *testing.T) {
	a := newTestApp(t, downBackend{})

	rec := get(a, "/blog/dispatch-playbook/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "blog-error")
}

func TestUnknownRouteRendersNotFoundPage(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/no-such-page/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "This page could not be found.")
}

func TestEmbedFragments(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/embed/posts?limit=5&base=/news", nil)
	req.Header.Set(echo.HeaderOrigin, "https://partner.example.com")
	rec := do(a, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<div class="blog-list">`), "fragment carries markup only: %.80s", body)
	assert.NotContains(t, body, "<style")
	assert.Contains(t, body, `href="/news/dispatch-playbook"`)
	assert.NotContains(t, body, "<!DOCTYPE html>")

	rec = get(a, "/api/embed/posts/dispatch-playbook")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The Dispatch Playbook")

	rec = get(a, "/api/embed/posts/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post not found")
}

func TestEmbedPageResolvesHostURL(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	tests := []struct {
		query string
		code  int
		want  string
	}{
		{"url=" + url.QueryEscape("https://partner.example.com/blog/dispatch-playbook/"), http.StatusOK, `<h1 class="blog-post-title">The Dispatch Playbook</h1>`},
		{"url=" + url.QueryEscape("https://partner.example.com/pricing?blog_post=dispatch-playbook"), http.StatusOK, "Morning routing"},
		{"url=" + url.QueryEscape("https://partner.example.com/news/dispatch-playbook") + "&base=/news", http.StatusOK, "The Dispatch Playbook"},
		{"url=" + url.QueryEscape("https://partner.example.com/blog/"), http.StatusOK, `<div class="blog-list">`},
		{"url=" + url.QueryEscape("https://partner.example.com/blog/gone"), http.StatusNotFound, "Post not found"},
		{"", http.StatusOK, `href="/blog/dispatch-playbook"`},
	}
	for _, tt := range tests {
		rec := get(a, "/api/embed/page?"+tt.query)
		assert.Equal(t, tt.code, rec.Code, tt.query)
		assert.Contains(t, rec.Body.String(), tt.want, tt.query)
	}
}

func TestWidgetStyles(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/embed/blog-widget.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, rec.Body.String(), ".blog-list{")
}

func TestEmbedRequiresAPIKey(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db, func(c *Config) { c.Embed.APIKey = "widget-key" })

	rec := get(a, "/api/embed/posts")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/embed/posts", nil)
	req.Header.Set(embedKeyHead, "widget-key")
	assert.Equal(t, http.StatusOK, do(a, req).Code)

	rec = get(a, "/api/embed/posts?api_key=wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = get(a, "/api/embed/posts?api_key=widget-key")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWidgetScript(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/embed/blog-widget.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	body := rec.Body.String()
	assert.Contains(t, body, "window.FPBlogDefaults")
	assert.Contains(t, body, "https://fieldpulse.test")
	assert.Contains(t, body, "FPBlog")
}

func postContact(a *App, body string, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return do(a, req)
}

func TestContactSubmission(t *testing.T) {
	db := newSQLiteBackend(t)
	a := newTestApp(t, db)

	rec := postContact(a, `{"name":"Dana","email":"dana@example.com","company":"Cool Air","message":"Need a demo"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id"`)

	rows, err := db.Select(context.Background(), backend.Query{Table: "contact_submissions"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "dana@example.com", rows[0]["email"])
}

func TestContactSubmissionHTMLRedirect(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	form := url.Values{"name": {"Dana"}, "email": {"dana@example.com"}, "message": {"Hello"}}
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := do(a, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?contact=sent#contact", rec.Header().Get("Location"))
}

func TestContactSubmissionValidation(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := postContact(a, `{"name":"Dana","email":"not-an-email","message":"Hi"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Email"`)

	rec = postContact(a, `{"name":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactSubmissionRateLimited(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	payload := `{"name":"Dana","email":"dana@example.com","message":"Hello"}`
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, postContact(a, payload, "").Code, "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, postContact(a, payload, "").Code)
}

func TestFeedAndSitemap(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)

	rec := get(a, "/feed.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	feed := rec.Body.String()
	assert.Contains(t, feed, "<title>FieldPulse Test Blog</title>")
	assert.Contains(t, feed, "<link>https://fieldpulse.test/blog/dispatch-playbook/</link>")
	assert.Contains(t, feed, "<category>Field Operations</category>")
	assert.NotContains(t, feed, "Unfinished Draft")

	rec = get(a, "/sitemap.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	sitemap := rec.Body.String()
	assert.Contains(t, sitemap, "<loc>https://fieldpulse.test/blog/</loc>")
	assert.Contains(t, sitemap, "<loc>https://fieldpulse.test/blog/dispatch-playbook/</loc>")
	assert.Contains(t, sitemap, "<lastmod>2024-03-04</lastmod>")
}

func TestFeedBackendDown(t *testing.T) {
	a := newTestApp(t, downBackend{})

	rec := get(a, "/feed.xml")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestRobots(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/robots.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /admin/")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://fieldpulse.test/sitemap.xml")
}

func TestCacheHeaders(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	assert.Equal(t, "no-store", get(a, "/admin/").Header().Get("Cache-Control"))
	assert.Equal(t, "public, max-age=300", get(a, "/blog/").Header().Get("Cache-Control"))
	assert.Equal(t, "public, max-age=86400", get(a, "/robots.txt").Header().Get("Cache-Control"))
}
