// Package markdown renders post bodies, conclusions and FAQ answers to
// sanitized HTML, as strings or templ components.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	engine goldmark.Markdown
	policy *bluemonday.Policy
	once   sync.Once
)

func setup() {
	once.Do(func() {
		engine = goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		)
		policy = bluemonday.UGCPolicy()
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "div", "span")
	})
}

// ToHTML converts md to sanitized HTML. Raw HTML in the input is dropped by
// the parser and whatever survives goes through a UGC policy.
func ToHTML(md string) string {
	setup()
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := engine.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return policy.Sanitize(buf.String())
}

// Markdown renders content as sanitized HTML inside a templ component.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, ToHTML(content))
		return err
	})
}

// SafeURL returns raw when it is a rooted path, a fragment or an http(s),
// mailto or tel URL, and "" otherwise. The result is not HTML-escaped;
// templ escapes it where it is rendered.
func SafeURL(raw string) templ.SafeURL {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return templ.SafeURL(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return templ.SafeURL(val)
	default:
		return ""
	}
}
