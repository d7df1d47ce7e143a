package content

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/backend"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
)

const (
	tablePosts    = "blog_posts"
	tableSections = "blog_sections"
	tableContent  = "section_content"
	tableFAQs     = "blog_faqs"

	// DefaultTimeout bounds each backend query.
	DefaultTimeout = 10 * time.Second
)

// Fetcher reads published posts from a backend. It keeps no cache: every
// call goes to the backend.
type Fetcher struct {
	backend backend.Backend
	timeout time.Duration
	logger  *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-query timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher returns a Fetcher over b.
func NewFetcher(b backend.Backend, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{backend: b, timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) query(ctx context.Context, op string, q backend.Query) ([]backend.Row, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	start := time.Now()
	rows, err := f.backend.Select(ctx, q)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveFetch(op, "error", elapsed)
		f.logger.Warn("backend query failed", zap.String("op", op), zap.String("table", q.Table), zap.Error(err))
		return nil, &FetchError{Op: op, Err: err}
	}
	metrics.ObserveFetch(op, "ok", elapsed)
	f.logger.Debug("backend query", zap.String("op", op), zap.Int("rows", len(rows)), zap.Duration("elapsed", elapsed))
	return rows, nil
}

// FetchPosts returns up to limit published posts, newest first.
func (f *Fetcher) FetchPosts(ctx context.Context, limit int) ([]PostSummary, error) {
	rows, err := f.query(ctx, "posts", backend.Query{
		Table:   tablePosts,
		Filters: []backend.Filter{backend.Eq("published", true)},
		Order:   []backend.Order{backend.Desc("created_at")},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	posts := make([]PostSummary, 0, len(rows))
	for _, r := range rows {
		p := normalizeSummary(r)
		if !p.Published {
			continue
		}
		posts = append(posts, p)
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (f *Fetcher) findPublished(ctx context.Context, slug string) (backend.Row, bool, error) {
	rows, err := f.query(ctx, "post", backend.Query{
		Table: tablePosts,
		Filters: []backend.Filter{
			backend.Eq("slug", slug),
			backend.Eq("published", true),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, false, err
	}
	for _, r := range rows {
		if asBool(r["published"]) {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// FetchPost returns the published post with slug, with sections, content
// blocks and FAQs in ascending position order. It returns ErrNotFound when
// neither slug nor its trailing-slash alternate matches.
func (f *Fetcher) FetchPost(ctx context.Context, slug string) (Post, error) {
	row, ok, err := f.findPublished(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	if !ok {
		alt := AlternateSlug(slug)
		f.logger.Debug("slug not found, trying alternate", zap.String("slug", slug), zap.String("alternate", alt))
		row, ok, err = f.findPublished(ctx, alt)
		if err != nil {
			return Post{}, err
		}
		if !ok {
			return Post{}, ErrNotFound
		}
		// Stored slugs should not carry a trailing slash.
		f.logger.Warn("post matched alternate slug", zap.String("slug", slug), zap.String("stored", alt))
	}

	post := normalizePost(row)

	sectionRows, err := f.query(ctx, "sections", backend.Query{
		Table:   tableSections,
		Filters: []backend.Filter{backend.Eq("blog_post_id", post.ID)},
		Order:   []backend.Order{backend.Asc("position")},
	})
	if err != nil {
		return Post{}, err
	}
	faqRows, err := f.query(ctx, "faqs", backend.Query{
		Table:   tableFAQs,
		Filters: []backend.Filter{backend.Eq("blog_post_id", post.ID)},
		Order:   []backend.Order{backend.Asc("position")},
	})
	if err != nil {
		return Post{}, err
	}

	for _, r := range sectionRows {
		post.Sections = append(post.Sections, normalizeSection(r))
	}
	sortSections(post.Sections)

	for i := range post.Sections {
		blocks, err := f.fetchBlocks(ctx, post.Sections[i].ID)
		if err != nil {
			return Post{}, err
		}
		post.Sections[i].Blocks = blocks
	}

	for _, r := range faqRows {
		post.FAQs = append(post.FAQs, normalizeFAQ(r))
	}
	sortFAQs(post.FAQs)

	return post, nil
}

func (f *Fetcher) fetchBlocks(ctx context.Context, sectionID string) ([]Block, error) {
	rows, err := f.query(ctx, "content", backend.Query{
		Table:   tableContent,
		Filters: []backend.Filter{backend.Eq("section_id", sectionID)},
		Order:   []backend.Order{backend.Asc("position")},
	})
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(rows))
	for _, r := range rows {
		b, ok := normalizeBlock(r)
		if !ok {
			f.logger.Debug("dropping content block of unknown type",
				zap.String("section_id", sectionID), zap.Any("type", r["type"]))
			continue
		}
		blocks = append(blocks, b)
	}
	sortBlocks(blocks)
	return blocks, nil
}
