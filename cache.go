package fphome

import (
	"context"
	"sync"
	"time"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
)

// feedLimit caps the posts listed in the feed and sitemap.
const feedLimit = 100

// PostLister is the part of content.Fetcher the feed cache reads from.
type PostLister interface {
	FetchPosts(ctx context.Context, limit int) ([]content.PostSummary, error)
}

// FeedCache is an in-memory cache of published post summaries with TTL. The
// feed and sitemap read from it so crawlers do not hit the backend on every
// request.
type FeedCache struct {
	mu      sync.RWMutex
	posts   []content.PostSummary
	fetched time.Time
	ttl     time.Duration
	source  PostLister
}

// NewFeedCache creates a FeedCache backed by source.
func NewFeedCache(source PostLister, ttl time.Duration) *FeedCache {
	return &FeedCache{source: source, ttl: ttl}
}

func (c *FeedCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ListPosts returns the cached posts, reloading them when stale. It tries a
// read lock first and only takes the write lock if a reload is needed.
func (c *FeedCache) ListPosts(ctx context.Context) ([]content.PostSummary, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := c.source.FetchPosts(ctx, feedLimit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []content.PostSummary{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return c.posts, nil
}
