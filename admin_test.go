package fphome

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/backend"
)

// adminClient carries cookies and the CSRF token between requests.
type adminClient struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
	csrf    string
}

func newAdminClient(t *testing.T, a *App) *adminClient {
	t.Helper()
	ac := &adminClient{t: t, app: a, cookies: map[string]*http.Cookie{}}
	rec := ac.do(httptest.NewRequest(http.MethodGet, "/admin/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, ac.csrf, "login page should set a CSRF cookie")
	return ac
}

func (ac *adminClient) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range ac.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ac.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(ac.cookies, c.Name)
			continue
		}
		ac.cookies[c.Name] = c
		if c.Name == "_csrf" {
			ac.csrf = c.Value
		}
	}
	return rec
}

func (ac *adminClient) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", ac.csrf)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ac.do(req)
}

func (ac *adminClient) login() {
	ac.t.Helper()
	rec := ac.post("/admin/login/", url.Values{"password": {"hunter2"}})
	require.Equal(ac.t, http.StatusSeeOther, rec.Code)
	require.Contains(ac.t, ac.cookies, sessionName)
}

func TestAdminLoginFlow(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))
	ac := newAdminClient(t, a)

	rec := ac.post("/admin/login/", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password.")

	ac.login()
	rec = ac.do(httptest.NewRequest(http.MethodGet, "/admin/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Dashboard</h1>")

	rec = ac.post("/admin/logout/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = ac.do(httptest.NewRequest(http.MethodGet, "/admin/", nil))
	assert.NotContains(t, rec.Body.String(), "<h1>Dashboard</h1>")
}

func TestAdminLoginRequiresCSRF(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))
	form := url.Values{"password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(a, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminLoginRateLimited(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))
	ac := newAdminClient(t, a)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, ac.post("/admin/login/", url.Values{"password": {"nope"}}).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, ac.post("/admin/login/", url.Values{"password": {"hunter2"}}).Code)
}

func TestAdminActionsRequireSession(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))
	ac := newAdminClient(t, a)

	rec := ac.post("/admin/updates/", url.Values{"title": {"New release"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))
}

func TestAdminSetLabel(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)
	ac := newAdminClient(t, a)
	ac.login()

	rec := ac.post("/admin/posts/p1/label/", url.Values{"label": {"popular"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "label saved")

	rows, err := db.Select(context.Background(), backend.Query{Table: "blog_posts", Filters: []backend.Filter{backend.Eq("id", "p1")}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "popular", rows[0]["label"])
}

func TestAdminProductUpdate(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))
	ac := newAdminClient(t, a)
	ac.login()

	rec := ac.post("/admin/updates/", url.Values{"title": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title:")

	rec = ac.post("/admin/updates/", url.Values{
		"title":     {"Route optimization"},
		"version":   {"4.2"},
		"body":      {"Jobs are now grouped by **zone**."},
		"published": {"on"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Route optimization")

	home := get(a, "/")
	assert.Contains(t, home.Body.String(), "Route optimization")
}

func TestAdminSEOScan(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Pricing</title></head><body><h1>Pricing</h1></body></html>`))
	}))
	defer page.Close()

	db := newSQLiteBackend(t)
	a := newTestApp(t, db)
	ac := newAdminClient(t, a)
	ac.login()

	rec := ac.post("/admin/seo/scan/", url.Values{"url": {page.URL}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scanned "+page.URL)

	rows, err := db.Select(context.Background(), backend.Query{Table: "seo_reports"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAdminImageUpload(t *testing.T) {
	db := newSQLiteBackend(t)
	seedPosts(t, db)
	a := newTestApp(t, db)
	ac := newAdminClient(t, a)
	ac.login()

	upload := func(postID string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("_csrf", ac.csrf))
		if postID != "" {
			require.NoError(t, mw.WriteField("post_id", postID))
		}
		fw, err := mw.CreateFormFile("image", "Van Fleet.png")
		require.NoError(t, err)
		_, err = fw.Write(pngBytes(t, 40, 20))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/admin/images/upload/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return ac.do(req)
	}

	rec := upload("")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uploaded /public/uploads/van-fleet.jpg (40x20)")
	rec = upload("p1")
	assert.Contains(t, rec.Body.String(), "uploaded /public/uploads/van-fleet-2.jpg (40x20) as hero of p1")

	_, err := os.Stat(filepath.Join(a.Config.Server.StaticDir, uploadsSubdir, "van-fleet.jpg"))
	assert.NoError(t, err)

	rows, err := db.Select(context.Background(), backend.Query{Table: "blog_posts", Filters: []backend.Filter{backend.Eq("id", "p1")}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "/public/uploads/van-fleet-2.jpg", rows[0]["hero_image"])
}

func TestProcessImageScalesWideImages(t *testing.T) {
	img, data, err := processImage(bytes.NewReader(pngBytes(t, 3200, 800)), "hero.png")
	require.NoError(t, err)
	assert.Equal(t, maxHeroWidth, img.Width)
	assert.Equal(t, 400, img.Height)
	assert.Equal(t, "hero.jpg", img.Filename)
	assert.Equal(t, len(data), img.Size)

	_, _, err = processImage(strings.NewReader("not an image"), "x.png")
	assert.Error(t, err)
}

func TestSlugifyFilename(t *testing.T) {
	tests := map[string]string{
		"Van Fleet.png":          "van-fleet",
		"../../etc/passwd":       "passwd",
		"???.jpg":                "image",
		"Crew Schedule 2024.gif": "crew-schedule-2024",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugifyFilename(in), in)
	}
}
