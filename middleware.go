package fphome

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	sessionName  = "admin_session"
	embedKeyHead = "X-API-Key"
)

// crawlerFiles are served without trailing-slash redirects and cached for a
// day.
var crawlerFiles = map[string]bool{
	"/sitemap.xml": true,
	"/feed.xml":    true,
	"/robots.txt":  true,
}

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())
	e.Use(middleware.RequestID())
	e.Use(a.requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/public/")
		},
	}))
	e.Use(middleware.SecureWithConfig(a.securityHeaders()))
	e.Use(session.Middleware(a.newSessionStore()))
	e.Use(a.csrfProtection())
	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper:      func(c echo.Context) bool { return !isPagePath(c.Request().URL.Path) },
	}))
	e.Use(cacheControlMiddleware)
}

// isPagePath reports whether path is an HTML page that uses the trailing
// slash convention. API, widget, asset and crawler paths are left alone.
func isPagePath(path string) bool {
	for _, prefix := range []string{"/public", "/api/", "/embed/"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return !crawlerFiles[path] && path != "/metrics"
}

func (a *App) requestLogger() echo.MiddlewareFunc {
	httpLog := a.Logger.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Status >= http.StatusInternalServerError {
				httpLog.Warn("request", fields...)
				return nil
			}
			httpLog.Info("request", fields...)
			return nil
		},
	})
}

// securityHeaders allows images and API calls to the hosted content backend
// in addition to the site itself.
func (a *App) securityHeaders() middleware.SecureConfig {
	connect := "'self'"
	if origin := backendOrigin(a.Config.Backend); origin != "" {
		connect += " " + origin
	}
	csp := "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' https: data:; font-src 'self'; connect-src " + connect
	return middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: csp,
		HSTSMaxAge:            31536000,
	}
}

// backendOrigin returns scheme://host of the REST backend, or "" for the
// database drivers.
func backendOrigin(cfg BackendConfig) string {
	if cfg.Driver != DriverREST {
		return ""
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// csrfProtection guards the admin forms. The public API is called
// cross-origin by the widget and carries no session.
func (a *App) csrfProtection() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.Admin.CookieSecure,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	})
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		var value string
		switch {
		case strings.HasPrefix(path, "/public/"):
			value = "public, max-age=31536000, immutable"
		case crawlerFiles[path]:
			value = "public, max-age=86400"
		case strings.HasPrefix(path, "/admin"), strings.HasPrefix(path, "/api/"), path == "/metrics":
			value = "no-store"
		default:
			value = "public, max-age=300"
		}
		c.Response().Header().Set("Cache-Control", value)
		return next(c)
	}
}

// embedCORS lets third-party pages running the widget read the fragments.
func (a *App) embedCORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: a.Config.Embed.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, embedKeyHead},
	})
}

// requireEmbedKey checks the widget API key when one is configured. The key
// is read from the X-API-Key header or the api_key query parameter.
func (a *App) requireEmbedKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		want := a.Config.Embed.APIKey
		if want == "" || c.Request().Method == http.MethodOptions {
			return next(c)
		}
		got := c.Request().Header.Get(embedKeyHead)
		if got == "" {
			got = c.QueryParam("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return c.String(http.StatusUnauthorized, "invalid api key")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.Admin.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.Admin.CookieSecure,
	}
	return store
}

// IsAdmin checks if the current session is authenticated.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values["authenticated"].(bool)
	return ok && auth
}

func setAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["authenticated"] = true
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// requireAdmin redirects anonymous requests to the login page.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
