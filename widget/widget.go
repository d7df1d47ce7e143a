// Package widget backs the embeddable blog script served to third-party
// sites: its configuration, the list-or-post decision made on page load,
// and the script asset itself.
package widget

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/blogembed"
)

//go:embed assets/blog-widget.js
var script []byte

// Defaults for fields left empty in Config.
const (
	DefaultContainerID = "fp-blog"
	DefaultBaseRoute   = "/blog"

	// SlugParam is the query parameter that selects a single post.
	SlugParam = "blog_post"
)

// Config mirrors the object accepted by FPBlog.configure.
type Config struct {
	APIURL      string `json:"apiUrl,omitempty"`
	APIKey      string `json:"apiKey,omitempty"`
	ContainerID string `json:"containerId,omitempty"`
	BaseRoute   string `json:"baseRoute,omitempty"`
}

// Merge returns c with every empty field taken from other.
func (c Config) Merge(other Config) Config {
	if c.APIURL == "" {
		c.APIURL = other.APIURL
	}
	if c.APIKey == "" {
		c.APIKey = other.APIKey
	}
	if c.ContainerID == "" {
		c.ContainerID = other.ContainerID
	}
	if c.BaseRoute == "" {
		c.BaseRoute = other.BaseRoute
	}
	return c
}

// WithDefaults fills the container id and base route.
func (c Config) WithDefaults() Config {
	return c.Merge(Config{ContainerID: DefaultContainerID, BaseRoute: DefaultBaseRoute})
}

// Mode is what the widget renders on page load.
type Mode int

const (
	ModeList Mode = iota
	ModePost
)

func (m Mode) String() string {
	if m == ModePost {
		return "post"
	}
	return "list"
}

// Resolve decides between the list and a single post for a page URL. The
// blog_post query parameter wins over a /blog/<slug> path. Unparseable
// URLs resolve to the list.
func Resolve(rawURL string) (Mode, string) {
	return ResolveWithBase(rawURL, DefaultBaseRoute)
}

// ResolveWithBase is Resolve with a custom base route.
func ResolveWithBase(rawURL, base string) (Mode, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ModeList, ""
	}
	if slug := strings.TrimSpace(u.Query().Get(SlugParam)); slug != "" {
		return ModePost, blogembed.NormalizeSlug(slug)
	}
	base = "/" + strings.Trim(base, "/") + "/"
	if base == "//" {
		base = "/"
	}
	if !strings.HasPrefix(u.Path, base) {
		return ModeList, ""
	}
	rest := strings.Trim(strings.TrimPrefix(u.Path, base), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ModeList, ""
	}
	return ModePost, rest
}

// Script returns the widget script. Non-empty fields of defaults are
// applied before any FPBlog.configure call made by the host page.
func Script(defaults Config) ([]byte, error) {
	if defaults == (Config{}) {
		return script, nil
	}
	b, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("encode widget defaults: %w", err)
	}
	out := make([]byte, 0, len(b)+len(script)+32)
	out = append(out, "window.FPBlogDefaults = "...)
	out = append(out, b...)
	out = append(out, ";\n"...)
	out = append(out, script...)
	return out, nil
}
