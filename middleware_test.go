package fphome

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestIsPagePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/blog", true},
		{"/admin", true},
		{"/public/uploads/a.jpg", false},
		{"/api/contact", false},
		{"/embed/blog-widget.js", false},
		{"/sitemap.xml", false},
		{"/metrics", false},
	}
	for _, tt := range tests {
		if got := isPagePath(tt.path); got != tt.want {
			t.Errorf("isPagePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestBackendOrigin(t *testing.T) {
	tests := []struct {
		cfg  BackendConfig
		want string
	}{
		{BackendConfig{Driver: DriverREST, URL: "https://xyz.supabase.co/rest"}, "https://xyz.supabase.co"},
		{BackendConfig{Driver: DriverREST, URL: "not a url"}, ""},
		{BackendConfig{Driver: DriverSQLite, URL: "https://ignored.example.com"}, ""},
	}
	for _, tt := range tests {
		if got := backendOrigin(tt.cfg); got != tt.want {
			t.Errorf("backendOrigin(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestResponseHeaders(t *testing.T) {
	a := newTestApp(t, newSQLiteBackend(t))

	rec := get(a, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentSecurityPolicy), "connect-src 'self'")
}
