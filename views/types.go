package views

// SiteConfig holds the site-wide settings every page template reads.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the document head.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// ListOptions controls the blog list markup. Zero values select the
// defaults; use the Show* pointers to turn a section off.
type ListOptions struct {
	Limit           int    // default 10
	ShowDescription *bool  // default true
	ShowImage       *bool  // default true
	BaseRoute       string // default "/blog"
}

const (
	defaultListLimit = 10
	defaultBaseRoute = "/blog"
)

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return defaultListLimit
	}
	return o.Limit
}

func (o ListOptions) baseRoute() string {
	if o.BaseRoute == "" {
		return defaultBaseRoute
	}
	return o.BaseRoute
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
