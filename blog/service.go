// Package blog is the page-facing entry point to the blog embed. A Service
// is created per page (or per request), owns the lifecycle of its embed
// client and serializes the DOM work it schedules for each container.
package blog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/blogembed"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/scheduler"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// ErrEmbedUnavailable is returned when the embed client could not be built.
var ErrEmbedUnavailable = errors.New("blog: embed client unavailable")

// Factory builds the embed client. The target it receives is the Service's
// gated view of the document and must be the only one the client writes to.
type Factory func(target dom.Target) (blogembed.Embed, error)

// EnhancedFactory builds the standard client stack: a base client reading
// from source, wrapped by the enhanced decorator.
func EnhancedFactory(source blogembed.Source, sched scheduler.Scheduler, logger *zap.Logger) Factory {
	return func(target dom.Target) (blogembed.Embed, error) {
		if source == nil {
			return nil, errors.New("blog: nil content source")
		}
		client := blogembed.NewClient(target, source, blogembed.WithClientLogger(logger))
		return blogembed.NewEnhanced(client, target, sched, blogembed.WithEnhancedLogger(logger)), nil
	}
}

const (
	defaultInitAttempts = 3
	defaultInitDelay    = time.Second
)

// Service coordinates renders into containers of one document.
type Service struct {
	target       dom.Target
	factory      Factory
	sched        scheduler.Scheduler
	ownLoop      *scheduler.Loop
	logger       *zap.Logger
	initAttempts int
	initDelay    time.Duration

	mu         sync.Mutex
	embed      blogembed.Embed
	unmounting bool
	closed     bool
	active     map[string]struct{}
	pending    map[string]*scheduler.Handle
	nextRender uint64
	inflight   map[string]uint64 // container -> token of the render running in it
}

// locker is implemented by embeds that hold a per-container render lock.
type locker interface {
	Locked(id string) bool
}

// Option configures a Service.
type Option func(*Service)

// WithScheduler sets the scheduler for deferred DOM work. Without it the
// Service starts its own loop and stops it on Close.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(svc *Service) { svc.sched = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithInitRetry sets how many times embed construction is attempted and the
// fixed delay between attempts.
func WithInitRetry(attempts int, delay time.Duration) Option {
	return func(svc *Service) {
		if attempts > 0 {
			svc.initAttempts = attempts
		}
		if delay >= 0 {
			svc.initDelay = delay
		}
	}
}

// New returns a Service rendering into target. The embed client is built
// on first use.
func New(target dom.Target, factory Factory, opts ...Option) *Service {
	s := &Service{
		target:       target,
		factory:      factory,
		logger:       zap.NewNop(),
		initAttempts: defaultInitAttempts,
		initDelay:    defaultInitDelay,
		active:       make(map[string]struct{}),
		pending:      make(map[string]*scheduler.Handle),
		inflight:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.ownLoop = scheduler.NewLoop()
		s.sched = s.ownLoop
	}
	return s
}

// ensureEmbed returns the embed client, building it if needed.
func (s *Service) ensureEmbed(ctx context.Context) (blogembed.Embed, error) {
	s.mu.Lock()
	if s.embed != nil {
		e := s.embed
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= s.initAttempts; attempt++ {
		if attempt > 1 {
			if err := scheduler.Sleep(ctx, s.initDelay); err != nil {
				lastErr = err
				break
			}
		}
		e, err := s.build()
		if err == nil {
			metrics.RecordEmbedInit("ok")
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.embed == nil {
				s.embed = e
			}
			return s.embed, nil
		}
		lastErr = err
		metrics.RecordEmbedInit("error")
		s.logger.Warn("embed client init failed", zap.Int("attempt", attempt), zap.Int("max_attempts", s.initAttempts), zap.Error(err))
	}
	return nil, fmt.Errorf("%w: %v", ErrEmbedUnavailable, lastErr)
}

func (s *Service) build() (e blogembed.Embed, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("embed factory panicked: %v", r)
		}
	}()
	if s.factory == nil {
		return nil, errors.New("no embed factory")
	}
	e, err = s.factory(gate{s})
	if err == nil && e == nil {
		err = errors.New("embed factory returned nil")
	}
	return e, err
}

// queueLocked schedules fn for id, replacing any op already pending for it.
// fn runs with s.mu held and only if it is still the latest op for id.
func (s *Service) queueLocked(id string, fn func()) {
	if h := s.pending[id]; h != nil {
		h.Cancel()
	}
	var h *scheduler.Handle
	h = s.sched.Defer(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pending[id] != h {
			return
		}
		delete(s.pending, id)
		if s.unmounting {
			return
		}
		fn()
	})
	s.pending[id] = h
}

func (s *Service) cancelPendingLocked(id string) {
	if h := s.pending[id]; h != nil {
		h.Cancel()
		delete(s.pending, id)
	}
}

// RenderBlogList renders the post list into the container id.
func (s *Service) RenderBlogList(ctx context.Context, id string, opts blogembed.Options) error {
	return s.render(ctx, "list", id, opts, func(e blogembed.Embed) error {
		return e.RenderBlogList(ctx, id, opts)
	})
}

// RenderBlogPost renders the post with slug into the container id. A
// missing post returns an error matching content.ErrNotFound.
func (s *Service) RenderBlogPost(ctx context.Context, id, slug string, opts blogembed.Options) error {
	return s.render(ctx, "post", id, opts, func(e blogembed.Embed) error {
		return e.RenderBlogPost(ctx, id, slug, opts)
	})
}

func (s *Service) render(ctx context.Context, kind, id string, opts blogembed.Options, fn func(blogembed.Embed) error) error {
	s.mu.Lock()
	if s.unmounting || s.closed {
		s.mu.Unlock()
		s.logger.Debug("render ignored while unmounting", zap.String("container", id), zap.String("kind", kind))
		metrics.RecordDropped("unmounting")
		return nil
	}
	if !s.target.Exists(id) {
		s.mu.Unlock()
		s.logger.Warn("container not found", zap.String("container", id), zap.String("kind", kind))
		metrics.RecordDropped("missing_container")
		return nil
	}
	if s.busyLocked(id) {
		s.mu.Unlock()
		s.logger.Debug("render already in progress, keeping current markup", zap.String("container", id), zap.String("kind", kind))
		metrics.RecordDropped("locked")
		return nil
	}
	s.nextRender++
	token := s.nextRender
	s.inflight[id] = token
	_, wasActive := s.active[id]
	s.mu.Unlock()
	defer s.finishRender(id, token)

	if wasActive {
		s.CleanupContainer(id)
	}

	s.mu.Lock()
	if s.unmounting || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.active[id] = struct{}{}
	s.queueLocked(id, func() {
		if markup, err := views.String(ctx, views.Loading()); err == nil {
			s.target.SetHTML(id, markup)
		}
	})
	s.mu.Unlock()

	embed, err := s.ensureEmbed(ctx)
	if err == nil {
		err = fn(embed)
	}
	if err != nil {
		s.fail(ctx, kind, id, opts, err)
		return err
	}
	return nil
}

// busyLocked reports whether a render for id is still running, either in
// this Service or behind the embed's own lock.
func (s *Service) busyLocked(id string) bool {
	if _, ok := s.inflight[id]; ok {
		return true
	}
	l, ok := s.embed.(locker)
	return ok && l.Locked(id)
}

func (s *Service) finishRender(id string, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] == token {
		delete(s.inflight, id)
	}
}

// fail writes fallback content and untracks id. Not-found keeps the
// not-found markup the client already wrote.
func (s *Service) fail(ctx context.Context, kind, id string, opts blogembed.Options, err error) {
	s.logger.Warn("blog render failed", zap.String("container", id), zap.String("kind", kind), zap.Error(err))
	s.mu.Lock()
	defer s.mu.Unlock()
	_, tracked := s.active[id]
	if tracked && !s.unmounting && !content.IsNotFound(err) {
		s.cancelPendingLocked(id)
		msg := opts.FallbackContent
		if msg == "" {
			msg = blogembed.ListFallback
			if kind == "post" {
				msg = blogembed.PostFallback
			}
		}
		if markup, rerr := views.String(ctx, views.ErrorState(msg)); rerr == nil {
			s.target.SetHTML(id, markup)
		}
	}
	delete(s.active, id)
}

// CleanupContainer untracks id, cancels its pending op, clears its markup
// and lets the embed client release its own state. It never panics.
func (s *Service) CleanupContainer(id string) {
	defer s.recoverCleanup("cleanup container", id)

	s.mu.Lock()
	if s.unmounting {
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	s.cancelPendingLocked(id)
	embed := s.embed
	s.mu.Unlock()

	s.target.SetHTML(id, "")
	if embed != nil {
		embed.CleanupContainer(id)
	}
}

// CleanupAllContainers cleans up every tracked container and forgets the
// renders still running, so new requests are accepted. It never panics.
func (s *Service) CleanupAllContainers() {
	defer s.recoverCleanup("cleanup all containers", "")

	s.mu.Lock()
	if s.unmounting {
		s.mu.Unlock()
		return
	}
	ids := s.activeLocked()
	s.active = make(map[string]struct{})
	s.inflight = make(map[string]uint64)
	for id := range s.pending {
		s.cancelPendingLocked(id)
	}
	embed := s.embed
	s.mu.Unlock()

	for _, id := range ids {
		s.target.SetHTML(id, "")
	}
	if embed != nil {
		embed.CleanupAllContainers()
	}
}

func (s *Service) recoverCleanup(op, id string) {
	if r := recover(); r != nil {
		s.logger.Error("blog cleanup panicked", zap.String("op", op), zap.String("container", id), zap.Any("panic", r))
	}
}

// PrepareForUnmount stops all further DOM work. Call it before the page
// removes its containers. Writes from fetches still in flight are dropped.
func (s *Service) PrepareForUnmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmounting = true
	for id := range s.pending {
		s.cancelPendingLocked(id)
	}
}

// Reinitialize clears the unmounting flag, tears down all state and
// rebuilds the embed client.
func (s *Service) Reinitialize(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("blog: service closed")
	}
	s.unmounting = false
	for id := range s.pending {
		s.cancelPendingLocked(id)
	}
	ids := s.activeLocked()
	s.active = make(map[string]struct{})
	s.inflight = make(map[string]uint64)
	old := s.embed
	s.embed = nil
	s.mu.Unlock()

	for _, id := range ids {
		s.target.SetHTML(id, "")
	}
	if old != nil {
		func() {
			defer s.recoverCleanup("reinitialize", "")
			old.CleanupAllContainers()
		}()
	}
	_, err := s.ensureEmbed(ctx)
	return err
}

// Close disposes of the Service. It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.unmounting = true
	for id := range s.pending {
		s.cancelPendingLocked(id)
	}
	s.active = make(map[string]struct{})
	s.embed = nil
	loop := s.ownLoop
	s.mu.Unlock()

	if loop != nil {
		loop.Close()
	}
	return nil
}

// Active returns the tracked container ids in sorted order.
func (s *Service) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Service) activeLocked() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pending reports whether a deferred op is queued for id.
func (s *Service) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id].Pending()
}

// Unmounting reports whether PrepareForUnmount has been called since the
// last Reinitialize.
func (s *Service) Unmounting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmounting
}
