// Package seo runs the admin SEO check: it fetches one page, extracts the
// tags that matter for search listings and scores what is missing.
package seo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "fphome-seo-scanner/1.0"

	maxTitleLen       = 60
	maxDescriptionLen = 160
)

// Scanner fetches pages with colly.
type Scanner struct {
	base    *colly.Collector
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Scanner) { s.base.WithTransport(rt) }
}

// NewScanner returns a Scanner. Scans ignore robots.txt; the scanner only
// checks pages of the site it belongs to.
func NewScanner(opts ...Option) *Scanner {
	c := colly.NewCollector(colly.Async(false), colly.UserAgent(defaultUserAgent))
	c.IgnoreRobotsTxt = true
	s := &Scanner{base: c, timeout: defaultTimeout, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan fetches pageURL and returns a scored report. The report is not
// persisted.
func (s *Scanner) Scan(ctx context.Context, pageURL string) (content.SEOReport, error) {
	report := content.SEOReport{URL: pageURL}
	var (
		fetchErr error
		parsed   bool
	)

	c := s.base.Clone()
	c.SetRequestTimeout(s.timeout)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		parsed = true
		report.Title = strings.TrimSpace(e.ChildText("head > title"))
		report.Description = strings.TrimSpace(e.ChildAttr(`meta[name="description"]`, "content"))
		report.Canonical = strings.TrimSpace(e.ChildAttr(`link[rel="canonical"]`, "href"))
		e.ForEach("h1", func(int, *colly.HTMLElement) { report.H1Count++ })
		e.ForEach("img", func(_ int, img *colly.HTMLElement) {
			if strings.TrimSpace(img.Attr("alt")) == "" {
				report.ImagesMissingAlt++
			}
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() { done <- c.Visit(pageURL) }()

	select {
	case <-ctx.Done():
		return content.SEOReport{}, fmt.Errorf("seo scan canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return content.SEOReport{}, fmt.Errorf("seo scan %s: %w", pageURL, err)
		}
	}
	if fetchErr != nil {
		return content.SEOReport{}, fmt.Errorf("seo scan %s: %w", pageURL, fetchErr)
	}
	if !parsed {
		return content.SEOReport{}, fmt.Errorf("seo scan %s: response is not HTML", pageURL)
	}

	Score(&report)
	report.CreatedAt = s.now().UTC()
	s.logger.Info("seo scan complete", zap.String("url", pageURL), zap.Int("score", report.Score), zap.Int("issues", len(report.Issues)))
	return report, nil
}

// Score fills r.Issues and r.Score from the extracted fields. A page with
// nothing to fix scores 100.
func Score(r *content.SEOReport) {
	score := 100
	var issues []string
	add := func(penalty int, msg string) {
		score -= penalty
		issues = append(issues, msg)
	}

	switch n := len([]rune(r.Title)); {
	case n == 0:
		add(20, "missing <title>")
	case n > maxTitleLen:
		add(5, fmt.Sprintf("title longer than %d characters", maxTitleLen))
	}
	switch n := len([]rune(r.Description)); {
	case n == 0:
		add(15, "missing meta description")
	case n > maxDescriptionLen:
		add(5, fmt.Sprintf("meta description longer than %d characters", maxDescriptionLen))
	}
	switch {
	case r.H1Count == 0:
		add(15, "missing <h1>")
	case r.H1Count > 1:
		add(5, fmt.Sprintf("%d <h1> elements, expected one", r.H1Count))
	}
	if r.ImagesMissingAlt > 0 {
		add(min(20, 5*r.ImagesMissingAlt), fmt.Sprintf("%d image(s) without alt text", r.ImagesMissingAlt))
	}
	if r.Canonical == "" {
		add(10, "missing canonical link")
	}

	r.Score = max(score, 0)
	r.Issues = issues
}
