package blogembed

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/scheduler"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// Fallback messages shown when a fetch fails and the caller gave none.
const (
	ListFallback = "We couldn't load the latest articles right now. Please try again in a moment."
	PostFallback = "We couldn't load this article right now. Please try again in a moment."
)

// DefaultOptions are the resilience defaults Enhanced merges under every
// call.
func DefaultOptions() Options {
	return Options{
		RetryOnFailure: Bool(true),
		RetryAttempts:  3,
		RetryDelay:     time.Second,
	}
}

// NormalizeSlug strips one trailing slash and one leading "/blog/" prefix,
// so "foo/", "/blog/foo" and "foo" name the same post.
func NormalizeSlug(slug string) string {
	slug = strings.TrimSuffix(slug, "/")
	slug = strings.TrimPrefix(slug, "/blog/")
	return slug
}

// Enhanced decorates an Embedder. At most one render runs per container;
// a second request while one is in flight is dropped.
type Enhanced struct {
	inner  Embedder
	target dom.Target
	sched  scheduler.Scheduler
	logger *zap.Logger

	mu       sync.Mutex
	nextLock uint64
	locks    map[string]uint64 // container -> token of the render holding it
	active   map[string]struct{}
	teardown map[string]*scheduler.Handle
}

// EnhancedOption configures an Enhanced.
type EnhancedOption func(*Enhanced)

// WithEnhancedLogger sets the logger.
func WithEnhancedLogger(l *zap.Logger) EnhancedOption {
	return func(e *Enhanced) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEnhanced wraps inner. target is used for existence checks and
// cleanup; sched runs deferred teardown.
func NewEnhanced(inner Embedder, target dom.Target, sched scheduler.Scheduler, opts ...EnhancedOption) *Enhanced {
	e := &Enhanced{
		inner:    inner,
		target:   target,
		sched:    sched,
		logger:   zap.NewNop(),
		locks:    make(map[string]uint64),
		active:   make(map[string]struct{}),
		teardown: make(map[string]*scheduler.Handle),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// acquire takes the render lock for id. The returned release is a no-op
// when the lock was cleared and retaken in the meantime.
func (e *Enhanced) acquire(id string) (release func(), ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, held := e.locks[id]; held {
		return nil, false
	}
	e.nextLock++
	token := e.nextLock
	e.locks[id] = token
	e.active[id] = struct{}{}
	if h := e.teardown[id]; h != nil {
		h.Cancel()
		delete(e.teardown, id)
	}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.locks[id] == token {
			delete(e.locks, id)
		}
	}, true
}

func (e *Enhanced) render(ctx context.Context, kind, id string, opts Options, fn func(Options) error) error {
	if !e.target.Exists(id) {
		e.logger.Warn("container not found", zap.String("container", id), zap.String("kind", kind))
		metrics.RecordDropped("missing_container")
		return nil
	}
	release, ok := e.acquire(id)
	if !ok {
		e.logger.Warn("render already in progress, dropping request", zap.String("container", id), zap.String("kind", kind))
		metrics.RecordDropped("locked")
		return nil
	}
	defer release()

	err := fn(opts)
	switch {
	case err == nil:
		metrics.RecordRender(kind, "ok")
	case content.IsNotFound(err):
		metrics.RecordRender(kind, "not_found")
	default:
		metrics.RecordRender(kind, "error")
		if e.target.Exists(id) {
			markup, rerr := views.String(ctx, views.ErrorState(opts.FallbackContent))
			if rerr == nil {
				e.target.SetHTML(id, markup)
			}
		}
	}
	return err
}

// RenderBlogList implements Embedder.
func (e *Enhanced) RenderBlogList(ctx context.Context, id string, opts Options) error {
	defaults := DefaultOptions()
	defaults.FallbackContent = ListFallback
	opts = opts.Merge(defaults)
	return e.render(ctx, "list", id, opts, func(o Options) error {
		return e.inner.RenderBlogList(ctx, id, o)
	})
}

// RenderBlogPost implements Embedder. The slug is normalized first.
func (e *Enhanced) RenderBlogPost(ctx context.Context, id, slug string, opts Options) error {
	defaults := DefaultOptions()
	defaults.FallbackContent = PostFallback
	opts = opts.Merge(defaults)
	slug = NormalizeSlug(slug)
	return e.render(ctx, "post", id, opts, func(o Options) error {
		return e.inner.RenderBlogPost(ctx, id, slug, o)
	})
}

// CleanupContainer clears the container now and releases its tracking
// state on the scheduler. A render still in flight keeps its lock until it
// returns.
func (e *Enhanced) CleanupContainer(id string) {
	e.target.SetHTML(id, "")

	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleTeardownLocked([]string{id})
}

// CleanupAllContainers clears every tracked container and all locks, then
// defers the rest of the teardown.
func (e *Enhanced) CleanupAllContainers() {
	ids := e.Active()
	for _, id := range ids {
		e.target.SetHTML(id, "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.locks = make(map[string]uint64)
	e.scheduleTeardownLocked(ids)
}

func (e *Enhanced) scheduleTeardownLocked(ids []string) {
	for _, id := range ids {
		if h := e.teardown[id]; h != nil {
			h.Cancel()
		}
		var h *scheduler.Handle
		h = e.sched.Defer(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.teardown[id] != h {
				return
			}
			delete(e.teardown, id)
			delete(e.active, id)
			e.logger.Debug("container torn down", zap.String("container", id))
		})
		e.teardown[id] = h
	}
}

// Active returns the tracked container ids in sorted order.
func (e *Enhanced) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Locked reports whether a render currently holds the lock for id.
func (e *Enhanced) Locked(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.locks[id]
	return ok
}
