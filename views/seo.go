package views

import (
	"encoding/json"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
)

// ArticleScriptID locates the single JSON-LD Article script in the head.
const ArticleScriptID = "blog-article-jsonld"

// MetadataTarget is the head-mutation subset of dom.Target.
type MetadataTarget interface {
	SetTitle(title string)
	UpsertMeta(attr, key, content string)
	UpsertScript(id, typ, body string)
}

var _ MetadataTarget = (dom.Target)(nil)

// InjectSEOMetadata creates or updates the Article JSON-LD script, the
// title/description meta tags and their OpenGraph counterparts. og:image is
// only written when image is set. Repeated calls overwrite in place.
func InjectSEOMetadata(t MetadataTarget, title, description, image string) {
	t.SetTitle(title)
	t.UpsertMeta("name", "title", title)
	t.UpsertMeta("name", "description", description)
	t.UpsertMeta("property", "og:title", title)
	t.UpsertMeta("property", "og:description", description)
	if image != "" {
		t.UpsertMeta("property", "og:image", image)
	}
	t.UpsertScript(ArticleScriptID, "application/ld+json", ArticleJsonLD(title, description, image))
}

// ArticleJsonLD produces a Schema.org Article JSON-LD block.
func ArticleJsonLD(title, description, image string) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "Article",
		"headline":    title,
		"description": description,
	}
	if image != "" {
		data["image"] = image
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ApplyPageMeta writes per-page metadata for non-article pages.
func ApplyPageMeta(t MetadataTarget, cfg SiteConfig, meta PageMeta) {
	title := meta.Title
	if title == "" {
		title = cfg.Name
	}
	desc := meta.Description
	if desc == "" {
		desc = cfg.Description
	}
	ogType := meta.OGType
	if ogType == "" {
		ogType = "website"
	}
	t.SetTitle(title)
	t.UpsertMeta("name", "description", desc)
	t.UpsertMeta("property", "og:title", title)
	t.UpsertMeta("property", "og:description", desc)
	t.UpsertMeta("property", "og:type", ogType)
	t.UpsertMeta("property", "og:site_name", cfg.Name)
	if meta.URL != "" {
		t.UpsertMeta("property", "og:url", meta.URL)
	}
	if meta.Image != "" {
		t.UpsertMeta("property", "og:image", meta.Image)
	}
	t.UpsertScript("site-jsonld", "application/ld+json", WebsiteJsonLD(cfg))
}
