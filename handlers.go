package fphome

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/a-h/templ"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/blog"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/blogembed"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/widget"
)

// Container ids of the server-rendered pages.
const (
	headerContainer   = "site-header"
	footerContainer   = "site-footer"
	homeContainer     = "home"
	latestContainer   = "latest-posts"
	blogContainer     = "blog"
	postContainer     = "blog-post"
	relatedContainer  = "related-posts"
	fragmentContainer = "fp-blog-fragment"

	homeLatestLimit = 3
	relatedLimit    = 3
	maxEmbedLimit   = 50
)

// newPage returns a document with the site chrome around the given blog
// containers.
func (a *App) newPage(ctx context.Context, meta views.PageMeta, containers ...string) *dom.Document {
	cfg := a.Config.Site
	doc := dom.New()
	doc.AddContainer(headerContainer, "")
	for _, id := range containers {
		doc.AddContainer(id, "page-section")
	}
	doc.AddContainer(footerContainer, "")

	views.ApplyPageMeta(doc, cfg, meta)
	a.fill(ctx, doc, headerContainer, views.SiteHeader(cfg))
	a.fill(ctx, doc, footerContainer, views.SiteFooter(cfg))
	return doc
}

// fill writes static markup into a container the blog pipeline does not own.
func (a *App) fill(ctx context.Context, doc *dom.Document, id string, cmp templ.Component) {
	markup, err := views.String(ctx, cmp)
	if err != nil {
		a.Logger.Error("render section", zap.String("container", id), zap.Error(err))
		return
	}
	doc.SetHTML(id, markup)
}

// renderBlog runs render against a fresh blog.Service reading from src,
// then stops all DOM work so the document can be serialized.
func (a *App) renderBlog(doc *dom.Document, src blogembed.Source, render func(*blog.Service) error) error {
	svc := a.newBlogService(doc, src)
	defer svc.Close()
	err := render(svc)
	svc.PrepareForUnmount()
	return err
}

// blogOptions applies the configured retry policy to o.
func (a *App) blogOptions(o blogembed.Options) blogembed.Options {
	o.RetryOnFailure = blogembed.Bool(a.Config.Blog.RetryAttempts > 1)
	o.RetryAttempts = a.Config.Blog.RetryAttempts
	o.RetryDelay = a.Config.Blog.RetryDelay
	return o
}

// statusFor maps a render error to the response status. The page body
// already carries the matching fallback markup.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case content.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	cfg := a.Config.Site

	updates, err := a.Admin.ListProductUpdates(ctx, true)
	if err != nil {
		a.Logger.Warn("list product updates", zap.Error(err))
		updates = nil
	}

	doc := a.newPage(ctx, views.PageMeta{
		Title:       cfg.Name,
		Description: cfg.Description,
		URL:         views.BuildURL(cfg.URL),
	}, homeContainer, latestContainer)
	a.fill(ctx, doc, homeContainer, a.Views.Home(cfg, updates))

	err = a.renderBlog(doc, a.Fetcher, func(svc *blog.Service) error {
		return svc.RenderBlogList(ctx, latestContainer, a.blogOptions(blogembed.Options{
			Limit:       homeLatestLimit,
			Title:       cfg.Name,
			Description: cfg.Description,
		}))
	})
	if err != nil {
		// The landing page stays up when the blog is down.
		a.Logger.Warn("latest posts unavailable", zap.Error(err))
	}
	return renderDocument(c, http.StatusOK, doc)
}

func (a *App) handleBlogList(c echo.Context) error {
	ctx := c.Request().Context()
	cfg := a.Config.Site
	title := "Blog | " + cfg.Name

	doc := a.newPage(ctx, views.PageMeta{Title: title, URL: views.BuildURL(cfg.URL, "blog")}, blogContainer)
	err := a.renderBlog(doc, a.Fetcher, func(svc *blog.Service) error {
		return svc.RenderBlogList(ctx, blogContainer, a.blogOptions(blogembed.Options{Title: title, Description: cfg.Description}))
	})
	if err != nil {
		a.Logger.Warn("blog list unavailable", zap.Error(err))
	}
	return renderDocument(c, statusFor(err), doc)
}

// postCapture keeps the post a render fetched, for the parts of the page
// the embed client does not write.
type postCapture struct {
	blogembed.Source

	mu    sync.Mutex
	post  content.Post
	found bool
}

func (p *postCapture) FetchPost(ctx context.Context, slug string) (content.Post, error) {
	post, err := p.Source.FetchPost(ctx, slug)
	if err == nil {
		p.mu.Lock()
		p.post, p.found = post, true
		p.mu.Unlock()
	}
	return post, err
}

func (p *postCapture) fetched() (content.Post, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.post, p.found
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	cfg := a.Config.Site
	slug := c.Param("slug")

	doc := a.newPage(ctx, views.PageMeta{
		OGType: "article",
		URL:    views.BuildURL(cfg.URL, "blog", slug),
	}, postContainer, relatedContainer)
	src := &postCapture{Source: a.Fetcher}
	err := a.renderBlog(doc, src, func(svc *blog.Service) error {
		return svc.RenderBlogPost(ctx, postContainer, slug, a.blogOptions(blogembed.Options{}))
	})
	switch {
	case content.IsNotFound(err):
		a.Logger.Info("blog post not found", zap.String("slug", slug))
	case err != nil:
		a.Logger.Warn("blog post unavailable", zap.String("slug", slug), zap.Error(err))
	}
	if post, ok := src.fetched(); ok && err == nil {
		doc.UpsertScript(views.PostingScriptID, "application/ld+json", views.BlogPostingJsonLD(cfg, post))
		a.fillRelated(ctx, doc, post.PostSummary)
	}
	return renderDocument(c, statusFor(err), doc)
}

// fillRelated lists other posts from the post's category. The post page
// does not depend on it, so a feed error only logs.
func (a *App) fillRelated(ctx context.Context, doc *dom.Document, current content.PostSummary) {
	if current.Category == content.CategoryNone {
		return
	}
	posts, err := a.Feed.ListPosts(ctx)
	if err != nil {
		a.Logger.Warn("related posts unavailable", zap.String("slug", current.Slug), zap.Error(err))
		return
	}
	related := views.FilterRelatedPosts(current, posts, relatedLimit)
	a.fill(ctx, doc, relatedContainer, views.RelatedPosts(related, "/blog"))
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/blog/")
}

func (a *App) handleWidgetScript(c echo.Context) error {
	b, err := widget.Script(widget.Config{APIURL: a.Config.Site.URL})
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Blob(http.StatusOK, "application/javascript; charset=utf-8", b)
}

// handleWidgetStyles serves the stylesheet the widget links once into the
// host page head.
func handleWidgetStyles(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(views.Styles))
}

// renderFragment renders one blog container for the widget and returns its
// markup. Styles are served separately by handleWidgetStyles.
func (a *App) renderFragment(c echo.Context, render func(*blog.Service) error) error {
	doc := dom.New()
	doc.AddContainer(fragmentContainer, "")
	err := a.renderBlog(doc, a.Fetcher, render)
	if err != nil && !content.IsNotFound(err) {
		a.Logger.Warn("embed fragment unavailable", zap.Error(err))
	}
	markup, _ := doc.HTML(fragmentContainer)
	return c.HTML(statusFor(err), markup)
}

func (a *App) embedOptions(c echo.Context) blogembed.Options {
	return a.blogOptions(blogembed.Options{BaseRoute: c.QueryParam("base")})
}

func (a *App) handleEmbedList(c echo.Context) error {
	ctx := c.Request().Context()
	opts := a.embedOptions(c)
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		opts.Limit = min(n, maxEmbedLimit)
	}
	return a.renderFragment(c, func(svc *blog.Service) error {
		return svc.RenderBlogList(ctx, fragmentContainer, opts)
	})
}

func (a *App) handleEmbedPost(c echo.Context) error {
	return a.embedPost(c, c.Param("slug"))
}

func (a *App) embedPost(c echo.Context, slug string) error {
	ctx := c.Request().Context()
	opts := a.embedOptions(c)
	return a.renderFragment(c, func(svc *blog.Service) error {
		return svc.RenderBlogPost(ctx, fragmentContainer, slug, opts)
	})
}

// handleEmbedPage renders what the host page URL asks for: one post for
// <base>/<slug> or ?blog_post=<slug>, the list otherwise.
func (a *App) handleEmbedPage(c echo.Context) error {
	pageURL := c.QueryParam("url")
	var (
		mode widget.Mode
		slug string
	)
	if base := c.QueryParam("base"); base != "" {
		mode, slug = widget.ResolveWithBase(pageURL, base)
	} else {
		mode, slug = widget.Resolve(pageURL)
	}
	a.Logger.Debug("embed page resolved", zap.String("url", pageURL), zap.Stringer("mode", mode), zap.String("slug", slug))
	if mode == widget.ModePost {
		return a.embedPost(c, slug)
	}
	return a.handleEmbedList(c)
}

type contactRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Company string `json:"company" form:"company"`
	Phone   string `json:"phone" form:"phone"`
	Message string `json:"message" form:"message"`
}

func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

func (a *App) handleContact(c echo.Context) error {
	if !a.contactLimiter.Allow(c.RealIP()) {
		metrics.RecordContact("rate_limited")
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many submissions. Try again later."})
	}
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		metrics.RecordContact("invalid")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Malformed request."})
	}

	sub, err := a.Admin.CreateContact(c.Request().Context(), content.ContactSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Phone:   req.Phone,
		Message: req.Message,
	})
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		metrics.RecordContact("invalid")
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": verrs})
	case err != nil:
		metrics.RecordContact("error")
		a.Logger.Error("store contact submission", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "We could not save your message. Please try again."})
	}

	metrics.RecordContact("ok")
	a.Logger.Info("contact submission stored", zap.String("id", sub.ID))
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/?contact=sent#contact")
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": sub.ID})
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Feed.ListPosts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable).SetInternal(err)
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Feed.ListPosts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable).SetInternal(err)
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: " +
		strings.TrimRight(a.Config.Site.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = a.renderLayout(c, http.StatusNotFound, "Not found", a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", zap.Int("status", code), zap.String("uri", c.Request().RequestURI), zap.Error(err))
		_ = a.renderLayout(c, code, "Error", a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
