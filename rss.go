package fphome

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	Category    string        `xml:"category,omitempty"`
	PubDate     string        `xml:"pubDate,omitempty"`
	GUID        string        `xml:"guid"`
	Enclosure   *rssEnclosure `xml:"enclosure"`
}

// rssEnclosure carries the post hero image.
type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

func rssDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC1123Z)
}

func (a *App) buildFeed(posts []content.PostSummary) rssFeed {
	site := a.Config.Site
	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       site.Name + " Blog",
			Link:        views.BuildURL(site.URL, "blog"),
			Description: site.Description,
			Language:    "en-us",
			Items:       make([]rssItem, 0, len(posts)),
		},
	}
	var newest time.Time
	for _, p := range posts {
		link := views.BuildURL(site.URL, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			Description: p.Description,
			PubDate:     rssDate(p.CreatedAt),
			GUID:        link,
		}
		if p.Category != content.CategoryNone {
			item.Category = p.Category.DisplayName()
		}
		if p.HeroImage != "" {
			item.Enclosure = &rssEnclosure{URL: absoluteURL(site.URL, p.HeroImage), Type: "image/jpeg"}
		}
		if p.CreatedAt.After(newest) {
			newest = p.CreatedAt
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}
	feed.Channel.LastBuildDate = rssDate(newest)
	return feed
}

func (a *App) renderRSS(c echo.Context, posts []content.PostSummary) error {
	return writeXML(c, "application/rss+xml; charset=utf-8", a.buildFeed(posts))
}

// writeXML encodes v as an XML document with the standard header.
func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(v)
}
