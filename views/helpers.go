package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterRelatedPosts returns up to n posts in the same category as current.
func FilterRelatedPosts(current content.PostSummary, posts []content.PostSummary, n int) []content.PostSummary {
	var related []content.PostSummary
	for _, p := range posts {
		if p.Slug == current.Slug || p.Category != current.Category {
			continue
		}
		related = append(related, p)
		if len(related) == n {
			break
		}
	}
	return related
}

// PathEscape wraps url.PathEscape for use in templ expressions.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// LabelClass returns CSS classes for a highlight pill, with active variant.
func LabelClass(active bool) string {
	base := "label-pill"
	if active {
		base += " label-pill-active"
	}
	return base
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// PostingScriptID locates the BlogPosting JSON-LD script of a post page.
const PostingScriptID = "blog-posting-jsonld"

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a
// server-rendered post page.
func BlogPostingJsonLD(cfg SiteConfig, post content.Post) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Description,
		"datePublished": post.CreatedAt.UTC().Format("2006-01-02"),
		"url":           postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !post.UpdatedAt.IsZero() {
		data["dateModified"] = post.UpdatedAt.UTC().Format("2006-01-02")
	}
	if post.HeroImage != "" {
		data["image"] = post.HeroImage
	}
	if post.Category != content.CategoryNone {
		data["articleSection"] = string(post.Category)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
