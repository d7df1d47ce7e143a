package blogembed

import (
	"context"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/scheduler"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// Client fetches from a Source and renders into a dom.Target.
type Client struct {
	target dom.Target
	source Source
	logger *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a Client writing to target.
func NewClient(target dom.Target, source Source, opts ...ClientOption) *Client {
	c := &Client{target: target, source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// write renders cmp into the container. It returns false when the container
// is gone or rendering failed, in which case nothing was changed.
func (c *Client) write(ctx context.Context, id string, cmp templ.Component) bool {
	markup, err := views.String(ctx, cmp)
	if err != nil {
		c.logger.Error("render markup", zap.String("container", id), zap.Error(err))
		return false
	}
	if !c.target.SetHTML(id, markup) {
		c.logger.Debug("container detached, discarding markup", zap.String("container", id))
		metrics.RecordDropped("detached")
		return false
	}
	return true
}

func (c *Client) prepare(ctx context.Context, id string) bool {
	if !c.target.Exists(id) {
		c.logger.Warn("container not found", zap.String("container", id))
		metrics.RecordDropped("missing_container")
		return false
	}
	c.target.EnsureStyle(views.StyleID, views.Styles)
	return c.write(ctx, id, views.Loading())
}

// retry runs fn until it succeeds, returns not-found, or runs out of
// attempts. Not-found is never retried.
func (c *Client) retry(ctx context.Context, op string, opts Options, fn func() error) error {
	attempts := opts.attempts()
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.logger.Info("retrying fetch", zap.String("op", op), zap.Int("attempt", i+1), zap.Duration("delay", opts.RetryDelay))
			if serr := scheduler.Sleep(ctx, opts.RetryDelay); serr != nil {
				return err
			}
		}
		err = fn()
		if err == nil || content.IsNotFound(err) {
			return err
		}
	}
	return err
}

// RenderBlogList implements Embedder. A missing container is a no-op.
func (c *Client) RenderBlogList(ctx context.Context, id string, opts Options) error {
	if !c.prepare(ctx, id) {
		return nil
	}
	opts = opts.Merge(Options{Title: defaultTitle, Description: defaultDescription})

	var posts []content.PostSummary
	err := c.retry(ctx, "list", opts, func() error {
		var ferr error
		posts, ferr = c.source.FetchPosts(ctx, opts.limit())
		return ferr
	})
	if err != nil {
		c.logger.Error("fetch blog posts", zap.String("container", id), zap.Error(err))
		c.write(ctx, id, views.ErrorState(""))
		return err
	}
	if c.write(ctx, id, views.List(posts, opts.listOptions())) {
		views.InjectSEOMetadata(c.target, opts.Title, opts.Description, "")
	}
	return nil
}

// RenderBlogPost implements Embedder. Not found leaves the not-found state
// in the container and returns an error matching content.ErrNotFound.
func (c *Client) RenderBlogPost(ctx context.Context, id, slug string, opts Options) error {
	if !c.prepare(ctx, id) {
		return nil
	}

	var post content.Post
	err := c.retry(ctx, "post", opts, func() error {
		var ferr error
		post, ferr = c.source.FetchPost(ctx, slug)
		return ferr
	})
	switch {
	case content.IsNotFound(err):
		c.logger.Info("blog post not found", zap.String("container", id), zap.String("slug", slug))
		c.write(ctx, id, views.NotFound())
		return err
	case err != nil:
		c.logger.Error("fetch blog post", zap.String("container", id), zap.String("slug", slug), zap.Error(err))
		c.write(ctx, id, views.ErrorState(""))
		return err
	}
	if c.write(ctx, id, views.Post(post)) {
		views.InjectSEOMetadata(c.target, post.Title, post.Description, post.HeroImage)
	}
	return nil
}
