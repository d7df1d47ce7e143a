package blogembed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/scheduler"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

type fakeSource struct {
	mu        sync.Mutex
	posts     []content.PostSummary
	bySlug    map[string]content.Post
	listErrs  []error // consumed one per call, nil once exhausted
	postErr   error
	listCalls int
	postCalls int
	slugs     []string

	started chan struct{} // closed on the first FetchPosts call when set
	release chan struct{} // FetchPosts waits on it when set
}

func (f *fakeSource) FetchPosts(ctx context.Context, limit int) ([]content.PostSummary, error) {
	f.mu.Lock()
	f.listCalls++
	first := f.listCalls == 1
	var err error
	if len(f.listErrs) > 0 {
		err, f.listErrs = f.listErrs[0], f.listErrs[1:]
	}
	started, release := f.started, f.release
	f.mu.Unlock()

	if first && started != nil {
		close(started)
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return f.posts, nil
}

func (f *fakeSource) FetchPost(ctx context.Context, slug string) (content.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postCalls++
	f.slugs = append(f.slugs, slug)
	if f.postErr != nil {
		return content.Post{}, f.postErr
	}
	p, ok := f.bySlug[slug]
	if !ok {
		return content.Post{}, content.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.postCalls
}

var errBackend = &content.FetchError{Op: "posts", Err: errors.New("connection reset")}

func samplePost() content.Post {
	return content.Post{
		PostSummary: content.PostSummary{ID: "p1", Slug: "foo", Title: "Foo", Description: "About foo", HeroImage: "/foo.jpg"},
		Sections: []content.Section{
			{Title: "One", Blocks: []content.Block{{Type: content.BlockText, Text: "first"}}},
		},
	}
}

func newDoc(ids ...string) *dom.Document {
	doc := dom.New()
	for _, id := range ids {
		doc.AddContainer(id, "")
	}
	return doc
}

func html(t *testing.T, doc *dom.Document, id string) string {
	t.Helper()
	s, ok := doc.HTML(id)
	require.True(t, ok, "container %s missing", id)
	return s
}

func noRetry() Options { return Options{RetryOnFailure: Bool(false)} }

func TestClientRenderBlogList(t *testing.T) {
	doc := newDoc("blog")
	src := &fakeSource{posts: []content.PostSummary{{Slug: "a", Title: "Alpha"}}}
	c := NewClient(doc, src)

	require.NoError(t, c.RenderBlogList(context.Background(), "blog", Options{}))
	got := html(t, doc, "blog")
	assert.Contains(t, got, "Alpha")
	assert.Contains(t, got, `href="/blog/a"`)

	styles := doc.Styles()
	require.Len(t, styles, 1)
	assert.Equal(t, views.StyleID, styles[0].ID)
	assert.Equal(t, "Blog", doc.Title())
	assert.Len(t, doc.Scripts(), 1)

	require.NoError(t, c.RenderBlogList(context.Background(), "blog", Options{}))
	assert.Len(t, doc.Styles(), 1, "style injected once")
}

func TestClientEmptyList(t *testing.T) {
	doc := newDoc("blog")
	c := NewClient(doc, &fakeSource{})
	require.NoError(t, c.RenderBlogList(context.Background(), "blog", Options{}))
	got := html(t, doc, "blog")
	assert.Contains(t, got, "No blog posts yet")
}

func TestClientListFailure(t *testing.T) {
	doc := newDoc("blog")
	c := NewClient(doc, &fakeSource{listErrs: []error{errBackend}})
	err := c.RenderBlogList(context.Background(), "blog", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, content.ErrFetchFailed)
	assert.Contains(t, html(t, doc, "blog"), "blog-error")
	assert.Empty(t, doc.Scripts(), "no metadata on failure")
}

func TestClientRetriesFetchFailures(t *testing.T) {
	doc := newDoc("blog")
	src := &fakeSource{listErrs: []error{errBackend, errBackend}, posts: []content.PostSummary{{Slug: "a", Title: "Alpha"}}}
	c := NewClient(doc, src)

	err := c.RenderBlogList(context.Background(), "blog", Options{
		RetryOnFailure: Bool(true), RetryAttempts: 3, RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	list, _ := src.calls()
	assert.Equal(t, 3, list)
	assert.Contains(t, html(t, doc, "blog"), "Alpha")
}

func TestClientDoesNotRetryNotFound(t *testing.T) {
	doc := newDoc("post")
	src := &fakeSource{}
	c := NewClient(doc, src)

	err := c.RenderBlogPost(context.Background(), "post", "nope", Options{
		RetryOnFailure: Bool(true), RetryAttempts: 3, RetryDelay: time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, content.IsNotFound(err))
	_, posts := src.calls()
	assert.Equal(t, 1, posts)
	assert.Contains(t, html(t, doc, "post"), "Post not found")
}

func TestClientRenderBlogPost(t *testing.T) {
	doc := newDoc("post")
	src := &fakeSource{bySlug: map[string]content.Post{"foo": samplePost()}}
	c := NewClient(doc, src)

	require.NoError(t, c.RenderBlogPost(context.Background(), "post", "foo", Options{}))
	got := html(t, doc, "post")
	assert.Contains(t, got, "<h1 class=\"blog-post-title\">Foo</h1>")
	assert.Equal(t, "Foo", doc.Title())
	img, ok := doc.MetaContent("property", "og:image")
	require.True(t, ok)
	assert.Equal(t, "/foo.jpg", img)
}

func TestMissingContainerSafety(t *testing.T) {
	doc := newDoc("other")
	src := &fakeSource{bySlug: map[string]content.Post{"foo": samplePost()}}
	client := NewClient(doc, src)
	enhanced := NewEnhanced(client, doc, scheduler.NewManual())
	before := doc.Mutations()

	for _, e := range []Embedder{client, enhanced} {
		assert.NotPanics(t, func() {
			assert.NoError(t, e.RenderBlogList(context.Background(), "missing", Options{}))
			assert.NoError(t, e.RenderBlogPost(context.Background(), "missing", "foo", Options{}))
		})
	}
	assert.Equal(t, before, doc.Mutations())
	assert.Empty(t, doc.Styles())
	list, posts := src.calls()
	assert.Zero(t, list)
	assert.Zero(t, posts)
}

func TestNormalizeSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"foo", "foo"},
		{"foo/", "foo"},
		{"/blog/foo", "foo"},
		{"/blog/foo/", "foo"},
		{"foo//", "foo/"},
		{"/blog/blog/foo", "blog/foo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSlug(tt.in), tt.in)
	}
}

func TestSlugNormalizationIdempotence(t *testing.T) {
	var outputs []string
	for _, slug := range []string{"foo/", "/blog/foo", "foo"} {
		doc := newDoc("post")
		src := &fakeSource{bySlug: map[string]content.Post{"foo": samplePost()}}
		e := NewEnhanced(NewClient(doc, src), doc, scheduler.NewManual())
		require.NoError(t, e.RenderBlogPost(context.Background(), "post", slug, Options{}))
		assert.Equal(t, []string{"foo"}, src.slugs)
		outputs = append(outputs, html(t, doc, "post"))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func TestLockMutualExclusion(t *testing.T) {
	doc := newDoc("blog")
	src := &fakeSource{
		posts:   []content.PostSummary{{Slug: "a", Title: "Alpha"}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := NewEnhanced(NewClient(doc, src), doc, scheduler.NewManual())

	done := make(chan error, 1)
	go func() { done <- e.RenderBlogList(context.Background(), "blog", Options{}) }()
	<-src.started
	assert.True(t, e.Locked("blog"))

	// The second request arrives while the first is still fetching.
	require.NoError(t, e.RenderBlogList(context.Background(), "blog", Options{}))

	close(src.release)
	require.NoError(t, <-done)

	list, _ := src.calls()
	assert.Equal(t, 1, list)
	assert.False(t, e.Locked("blog"))
	assert.Contains(t, html(t, doc, "blog"), "Alpha")

	// Once released, the container can render again.
	require.NoError(t, e.RenderBlogList(context.Background(), "blog", Options{}))
	list, _ = src.calls()
	assert.Equal(t, 2, list)
}

func TestEnhancedFallbackOnFailure(t *testing.T) {
	doc := newDoc("blog", "post")
	src := &fakeSource{listErrs: []error{errBackend}, postErr: errBackend}
	e := NewEnhanced(NewClient(doc, src), doc, scheduler.NewManual())

	err := e.RenderBlogList(context.Background(), "blog", noRetry())
	assert.ErrorIs(t, err, content.ErrFetchFailed)
	assert.Contains(t, html(t, doc, "blog"), "latest articles")

	err = e.RenderBlogPost(context.Background(), "post", "foo", Options{
		RetryOnFailure: Bool(false), FallbackContent: "Custom message",
	})
	assert.ErrorIs(t, err, content.ErrFetchFailed)
	assert.Contains(t, html(t, doc, "post"), "Custom message")
	assert.False(t, e.Locked("blog"))
	assert.False(t, e.Locked("post"))
}

func TestEnhancedMergesDefaultsUnderCaller(t *testing.T) {
	rec := &recordingEmbedder{}
	doc := newDoc("blog")
	e := NewEnhanced(rec, doc, scheduler.NewManual())

	require.NoError(t, e.RenderBlogList(context.Background(), "blog", Options{RetryAttempts: 5}))
	got := rec.last
	require.NotNil(t, got.RetryOnFailure)
	assert.True(t, *got.RetryOnFailure)
	assert.Equal(t, 5, got.RetryAttempts)
	assert.Equal(t, time.Second, got.RetryDelay)
	assert.Equal(t, ListFallback, got.FallbackContent)

	require.NoError(t, e.RenderBlogPost(context.Background(), "blog", "x", Options{RetryOnFailure: Bool(false)}))
	assert.False(t, *rec.last.RetryOnFailure)
	assert.Equal(t, 3, rec.last.RetryAttempts)
	assert.Equal(t, PostFallback, rec.last.FallbackContent)
}

type recordingEmbedder struct{ last Options }

func (r *recordingEmbedder) RenderBlogList(ctx context.Context, id string, opts Options) error {
	r.last = opts
	return nil
}

func (r *recordingEmbedder) RenderBlogPost(ctx context.Context, id, slug string, opts Options) error {
	r.last = opts
	return nil
}

func TestCleanupContainerDefersTeardown(t *testing.T) {
	doc := newDoc("blog")
	sched := scheduler.NewManual()
	e := NewEnhanced(NewClient(doc, &fakeSource{posts: []content.PostSummary{{Slug: "a", Title: "A"}}}), doc, sched)
	require.NoError(t, e.RenderBlogList(context.Background(), "blog", Options{}))
	assert.Equal(t, []string{"blog"}, e.Active())

	e.CleanupContainer("blog")
	assert.Equal(t, "", html(t, doc, "blog"), "markup cleared synchronously")
	assert.Equal(t, []string{"blog"}, e.Active(), "tracking released later")

	sched.RunPending()
	assert.Empty(t, e.Active())
}

func TestRenderCancelsPendingTeardown(t *testing.T) {
	doc := newDoc("blog")
	sched := scheduler.NewManual()
	e := NewEnhanced(NewClient(doc, &fakeSource{}), doc, sched)
	require.NoError(t, e.RenderBlogList(context.Background(), "blog", Options{}))

	e.CleanupContainer("blog")
	require.NoError(t, e.RenderBlogList(context.Background(), "blog", Options{}))
	sched.RunPending()
	assert.Equal(t, []string{"blog"}, e.Active())
}

func TestCleanupAllContainers(t *testing.T) {
	doc := newDoc("a", "b")
	sched := scheduler.NewManual()
	src := &fakeSource{posts: []content.PostSummary{{Slug: "x", Title: "X"}}}
	e := NewEnhanced(NewClient(doc, src), doc, sched)
	require.NoError(t, e.RenderBlogList(context.Background(), "a", Options{}))
	require.NoError(t, e.RenderBlogList(context.Background(), "b", Options{}))

	e.CleanupAllContainers()
	assert.Equal(t, "", html(t, doc, "a"))
	assert.Equal(t, "", html(t, doc, "b"))
	sched.RunPending()
	assert.Empty(t, e.Active())
}

func TestOptionsMerge(t *testing.T) {
	defaults := Options{Limit: 10, ShowImage: Bool(true), RetryAttempts: 3, FallbackContent: "d"}
	got := Options{Limit: 2, ShowImage: Bool(false)}.Merge(defaults)
	assert.Equal(t, 2, got.Limit)
	assert.False(t, *got.ShowImage)
	assert.Equal(t, 3, got.RetryAttempts)
	assert.Equal(t, "d", got.FallbackContent)
	assert.Nil(t, got.ShowDescription)
}
