// Package blogembed renders blog content into document containers.
//
// Client is the base fetch-and-render client. Enhanced wraps any Embedder
// with per-container render locks, default resilience options, slug
// normalization and deferred cleanup.
package blogembed

import (
	"context"
	"time"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// Embedder renders the blog list or a single post into a container.
type Embedder interface {
	RenderBlogList(ctx context.Context, containerID string, opts Options) error
	RenderBlogPost(ctx context.Context, containerID, slug string, opts Options) error
}

// Cleaner releases the state an Embedder keeps for containers.
type Cleaner interface {
	CleanupContainer(containerID string)
	CleanupAllContainers()
}

// Embed is an Embedder that can also clean up after itself.
type Embed interface {
	Embedder
	Cleaner
}

// Source is what the client reads posts from. *content.Fetcher implements it.
type Source interface {
	FetchPosts(ctx context.Context, limit int) ([]content.PostSummary, error)
	FetchPost(ctx context.Context, slug string) (content.Post, error)
}

// Options tune a single render call.
type Options struct {
	Limit           int
	ShowDescription *bool
	ShowImage       *bool
	BaseRoute       string

	// Title and Description feed the list page metadata.
	Title       string
	Description string

	RetryOnFailure  *bool
	RetryAttempts   int
	RetryDelay      time.Duration
	FallbackContent string
}

// Bool returns a pointer to b, for the optional flags in Options.
func Bool(b bool) *bool { return &b }

const (
	defaultTitle       = "Blog"
	defaultDescription = "Articles and guides for field service teams."
	defaultLimit       = 10
)

// Merge fills every field of o that the caller left unset from defaults.
// Values set on o always win.
func (o Options) Merge(defaults Options) Options {
	out := o
	if out.Limit == 0 {
		out.Limit = defaults.Limit
	}
	if out.ShowDescription == nil {
		out.ShowDescription = defaults.ShowDescription
	}
	if out.ShowImage == nil {
		out.ShowImage = defaults.ShowImage
	}
	if out.BaseRoute == "" {
		out.BaseRoute = defaults.BaseRoute
	}
	if out.Title == "" {
		out.Title = defaults.Title
	}
	if out.Description == "" {
		out.Description = defaults.Description
	}
	if out.RetryOnFailure == nil {
		out.RetryOnFailure = defaults.RetryOnFailure
	}
	if out.RetryAttempts == 0 {
		out.RetryAttempts = defaults.RetryAttempts
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = defaults.RetryDelay
	}
	if out.FallbackContent == "" {
		out.FallbackContent = defaults.FallbackContent
	}
	return out
}

func (o Options) listOptions() views.ListOptions {
	return views.ListOptions{
		Limit:           o.Limit,
		ShowDescription: o.ShowDescription,
		ShowImage:       o.ShowImage,
		BaseRoute:       o.BaseRoute,
	}
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return defaultLimit
	}
	return o.Limit
}

// attempts is how many times a failing fetch runs in total.
func (o Options) attempts() int {
	if o.RetryOnFailure == nil || !*o.RetryOnFailure || o.RetryAttempts < 1 {
		return 1
	}
	return o.RetryAttempts
}
