// Package fphome serves the FieldPulse marketing site: the landing page, the
// blog rendered from the hosted content backend, the embeddable blog widget
// and the admin console.
//
// Pages are assembled server-side into a dom.Document. Blog containers are
// filled by a blog.Service created per request, the same pipeline the widget
// endpoints use for third-party sites.
package fphome

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/backend"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/blog"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/blogembed"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/logging"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/scheduler"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/seo"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// ViewFuncs holds the page components the handlers render. Zero fields fall
// back to the views package.
type ViewFuncs struct {
	Home           func(cfg views.SiteConfig, updates []content.ProductUpdate) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(d views.AdminDashboardData) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.Home == nil {
		v.Home = views.Home
	}
	if v.AdminLogin == nil {
		v.AdminLogin = views.AdminLogin
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = views.AdminDashboard
	}
	if v.NotFound == nil {
		v.NotFound = views.NotFoundPage
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerErrorPage
	}
}

// App wires together the backend, the blog pipeline, handlers and
// middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Backend backend.Backend
	Fetcher *content.Fetcher
	Admin   *content.Admin
	Feed    *FeedCache
	Scanner *seo.Scanner
	Views   ViewFuncs
	Logger  *zap.Logger

	loop           *scheduler.Loop
	loginLimiter   *RateLimiter
	contactLimiter *RateLimiter
	customRoutes   []func(*App)
	ownBackend     bool
	initialized    bool
}

// WithLogger sets the logger. Without it Init builds one from
// Config.Logging.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithBackend uses b instead of opening one from Config.Backend. The App
// does not close it.
func WithBackend(b backend.Backend) Option {
	return func(a *App) { a.Backend = b }
}

// WithScanner replaces the SEO scanner.
func WithScanner(s *seo.Scanner) Option {
	return func(a *App) { a.Scanner = s }
}

// New creates an App with the given configuration and view functions.
func New(cfg Config, vf ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	vf.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  vf,
	}
	a.Echo.HideBanner = true
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the backend and registers middleware and routes. Start calls
// it; tests call it directly and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("fphome: %w", err)
	}

	if a.Logger == nil {
		logger, err := logging.New(a.Config.Logging.Development, a.Config.Logging.Level)
		if err != nil {
			return fmt.Errorf("fphome: %w", err)
		}
		a.Logger = logger
	}
	metrics.Init()

	if a.Backend == nil {
		b, err := openBackend(ctx, a.Config.Backend)
		if err != nil {
			return fmt.Errorf("fphome: open backend: %w", err)
		}
		a.Backend = b
		a.ownBackend = true
	}

	a.Fetcher = content.NewFetcher(a.Backend,
		content.WithTimeout(a.Config.Backend.Timeout),
		content.WithLogger(logging.Component(a.Logger, "fetcher")),
	)
	a.Admin = content.NewAdmin(a.Backend)
	a.Feed = NewFeedCache(a.Fetcher, a.Config.Feed.CacheTTL)
	if a.Scanner == nil {
		a.Scanner = seo.NewScanner(seo.WithLogger(logging.Component(a.Logger, "seo")))
	}
	a.loop = scheduler.NewLoop()
	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.contactLimiter = NewRateLimiter(5, 10*time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the App and starts the server.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Logger.Info("listening", zap.String("addr", a.Config.Server.Addr), zap.String("backend", a.Config.Backend.Driver))
	if err := a.Echo.Start(a.Config.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func openBackend(ctx context.Context, cfg BackendConfig) (backend.Backend, error) {
	switch cfg.Driver {
	case DriverREST:
		return backend.NewREST(backend.RESTConfig{URL: cfg.URL, APIKey: cfg.APIKey})
	case DriverPostgres:
		return backend.NewPostgres(ctx, backend.PostgresConfig{DSN: cfg.DSN})
	case DriverSQLite:
		return backend.NewSQLite(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.Server.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/blog/", a.handleBlogList)
	e.GET("/blog/:slug/", a.handlePost)

	// Widget
	e.GET("/embed/blog-widget.js", a.handleWidgetScript)
	e.GET("/embed/blog-widget.css", handleWidgetStyles)
	api := e.Group("/api")
	embed := api.Group("/embed", a.embedCORS(), a.requireEmbedKey)
	embed.GET("/page", a.handleEmbedPage)
	embed.GET("/posts", a.handleEmbedList)
	embed.GET("/posts/:slug", a.handleEmbedPost)
	api.POST("/contact", a.handleContact)

	// Admin
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/posts/:id/label/", a.handleAdminLabel, requireAdmin)
	e.POST("/admin/updates/", a.handleAdminUpdate, requireAdmin)
	e.POST("/admin/seo/scan/", a.handleAdminScan, requireAdmin)
	e.POST("/admin/images/upload/", a.handleImageUpload, requireAdmin)
}

// newBlogService returns a Service rendering posts from src into doc on the
// App's loop. Callers must Close it.
func (a *App) newBlogService(doc dom.Target, src blogembed.Source) *blog.Service {
	logger := logging.Component(a.Logger, "blog")
	return blog.New(doc,
		blog.EnhancedFactory(src, a.loop, logger),
		blog.WithScheduler(a.loop),
		blog.WithLogger(logger),
	)
}

// Close releases the backend and background workers. Call it when the app
// is shutting down.
func (a *App) Close() error {
	var err error
	if a.loop != nil {
		a.loop.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.contactLimiter != nil {
		a.contactLimiter.Close()
	}
	if a.ownBackend && a.Backend != nil {
		err = a.Backend.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}
