package fphome

import (
	"encoding/xml"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// absoluteURL resolves a site-relative path such as an upload against base.
func absoluteURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

func (a *App) buildSitemap(posts []content.PostSummary) sitemapURLSet {
	base := a.Config.Site.URL
	set := sitemapURLSet{
		XMLNS: sitemapNS,
		URLs: []sitemapURL{
			{Loc: views.BuildURL(base), ChangeFreq: "weekly", Priority: "1.0"},
			{Loc: views.BuildURL(base, "blog"), ChangeFreq: "daily", Priority: "0.8"},
		},
	}
	for _, p := range posts {
		u := sitemapURL{Loc: views.BuildURL(base, "blog", p.Slug), Priority: "0.6"}
		mod := p.UpdatedAt
		if mod.IsZero() {
			mod = p.CreatedAt
		}
		if !mod.IsZero() {
			u.LastMod = mod.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	return set
}

func (a *App) renderSitemap(c echo.Context, posts []content.PostSummary) error {
	return writeXML(c, "application/xml; charset=utf-8", a.buildSitemap(posts))
}
