package fphome

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
)

type countingLister struct {
	mu    sync.Mutex
	calls int
	limit int
	posts []content.PostSummary
	err   error
}

func (l *countingLister) FetchPosts(_ context.Context, limit int) ([]content.PostSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.limit = limit
	return l.posts, l.err
}

func (l *countingLister) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestFeedCacheServesFromCache(t *testing.T) {
	src := &countingLister{posts: []content.PostSummary{{Slug: "a"}, {Slug: "b"}}}
	c := NewFeedCache(src, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		posts, err := c.ListPosts(ctx)
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	}
	assert.Equal(t, 1, src.count())
	assert.Equal(t, feedLimit, src.limit)
}

func TestFeedCacheExpires(t *testing.T) {
	src := &countingLister{}
	c := NewFeedCache(src, time.Millisecond)
	ctx := context.Background()

	posts, err := c.ListPosts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, posts, "an empty result is cached as an empty slice")

	time.Sleep(5 * time.Millisecond)
	_, err = c.ListPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.count())
}

func TestFeedCacheInvalidate(t *testing.T) {
	src := &countingLister{posts: []content.PostSummary{{Slug: "a"}}}
	c := NewFeedCache(src, time.Hour)
	ctx := context.Background()

	_, err := c.ListPosts(ctx)
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.ListPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.count())
}

func TestFeedCacheDoesNotCacheErrors(t *testing.T) {
	src := &countingLister{err: errors.New("backend down")}
	c := NewFeedCache(src, time.Hour)
	ctx := context.Background()

	_, err := c.ListPosts(ctx)
	require.Error(t, err)

	src.mu.Lock()
	src.err = nil
	src.posts = []content.PostSummary{{Slug: "a"}}
	src.mu.Unlock()

	posts, err := c.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 2, src.count())
}

func TestFeedCacheConcurrentReaders(t *testing.T) {
	src := &countingLister{posts: []content.PostSummary{{Slug: "a"}}}
	c := NewFeedCache(src, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.ListPosts(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.count())
}
