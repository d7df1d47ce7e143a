// Package dom models the small slice of a browser document the blog pipeline
// mutates: containers addressed by id and the tags of <head>.
//
// A Document is safe for concurrent use. Every mutation locates its node
// under the document lock, so a write aimed at a container that has been
// removed is reported as a miss instead of resurrecting the node.
package dom

import (
	"context"
	"html"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Target is the mutation surface renderers are given. Implementations may
// narrow what is allowed (see blog.Service) but must keep the miss semantics:
// SetHTML returns false and changes nothing when the container is absent.
type Target interface {
	Exists(id string) bool
	SetHTML(id, markup string) bool
	SetTitle(title string)
	UpsertMeta(attr, key, content string)
	UpsertScript(id, typ, body string)
	EnsureStyle(id, css string) bool
}

// Meta is a <meta> tag keyed by attribute ("name" or "property") and key.
type Meta struct {
	Attr    string
	Key     string
	Content string
}

// Script is a <script> tag located by id.
type Script struct {
	ID   string
	Type string
	Body string
}

// Style is a <style> block located by id.
type Style struct {
	ID  string
	CSS string
}

type container struct {
	id     string
	class  string
	markup string
}

// Document is an in-memory page.
type Document struct {
	mu         sync.RWMutex
	lang       string
	title      string
	meta       []Meta
	scripts    []Script
	styles     []Style
	containers []*container
	byID       map[string]*container

	mutations atomic.Uint64
}

// New returns an empty document.
func New() *Document {
	return &Document{lang: "en", byID: make(map[string]*container)}
}

// AddContainer appends an empty container to the body. It returns false when
// the id is already present.
func (d *Document) AddContainer(id, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[id]; ok {
		return false
	}
	c := &container{id: id, class: class}
	d.containers = append(d.containers, c)
	d.byID[id] = c
	return true
}

// RemoveContainer detaches a container, the way a UI framework unmounts a view.
func (d *Document) RemoveContainer(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[id]; !ok {
		return false
	}
	delete(d.byID, id)
	for i, c := range d.containers {
		if c.id == id {
			d.containers = append(d.containers[:i], d.containers[i+1:]...)
			break
		}
	}
	return true
}

// Exists reports whether a container with id is attached.
func (d *Document) Exists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byID[id]
	return ok
}

// SetHTML replaces the inner markup of a container.
func (d *Document) SetHTML(id, markup string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.byID[id]
	if !ok {
		return false
	}
	c.markup = markup
	d.mutations.Add(1)
	return true
}

// HTML returns the inner markup of a container.
func (d *Document) HTML(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byID[id]
	if !ok {
		return "", false
	}
	return c.markup, true
}

// SetTitle sets the document <title>.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
	d.mutations.Add(1)
}

// Title returns the document <title>.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

// UpsertMeta updates the meta tag matching attr and key, creating it when
// no such tag exists yet.
func (d *Document) UpsertMeta(attr, key, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutations.Add(1)
	for i := range d.meta {
		if d.meta[i].Attr == attr && d.meta[i].Key == key {
			d.meta[i].Content = content
			return
		}
	}
	d.meta = append(d.meta, Meta{Attr: attr, Key: key, Content: content})
}

// UpsertScript updates the script with id, creating it when missing.
func (d *Document) UpsertScript(id, typ, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutations.Add(1)
	for i := range d.scripts {
		if d.scripts[i].ID == id {
			d.scripts[i].Type = typ
			d.scripts[i].Body = body
			return
		}
	}
	d.scripts = append(d.scripts, Script{ID: id, Type: typ, Body: body})
}

// EnsureStyle adds a style block once. It returns true when the block was added.
func (d *Document) EnsureStyle(id, css string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.styles {
		if s.ID == id {
			return false
		}
	}
	d.styles = append(d.styles, Style{ID: id, CSS: css})
	d.mutations.Add(1)
	return true
}

// Meta returns a copy of the meta tags in insertion order.
func (d *Document) Meta() []Meta {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Meta(nil), d.meta...)
}

// MetaContent returns the content of the tag matching attr and key.
func (d *Document) MetaContent(attr, key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.meta {
		if m.Attr == attr && m.Key == key {
			return m.Content, true
		}
	}
	return "", false
}

// Scripts returns a copy of the scripts in insertion order.
func (d *Document) Scripts() []Script {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Script(nil), d.scripts...)
}

// Styles returns a copy of the style blocks in insertion order.
func (d *Document) Styles() []Style {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Style(nil), d.styles...)
}

// Mutations counts every write applied to the document.
func (d *Document) Mutations() uint64 {
	return d.mutations.Load()
}

// Render writes the document as a complete HTML page. Document satisfies
// templ.Component so handlers can pass it to the same render helpers as any
// other component.
func (d *Document) Render(_ context.Context, w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html lang=\"")
	b.WriteString(html.EscapeString(d.lang))
	b.WriteString("\"><head><meta charset=\"utf-8\"/>")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(d.title))
	b.WriteString("</title>")
	for _, m := range d.meta {
		b.WriteString("<meta ")
		b.WriteString(html.EscapeString(m.Attr))
		b.WriteString("=\"")
		b.WriteString(html.EscapeString(m.Key))
		b.WriteString("\" content=\"")
		b.WriteString(html.EscapeString(m.Content))
		b.WriteString("\"/>")
	}
	for _, s := range d.styles {
		b.WriteString("<style id=\"")
		b.WriteString(html.EscapeString(s.ID))
		b.WriteString("\">")
		b.WriteString(s.CSS)
		b.WriteString("</style>")
	}
	for _, s := range d.scripts {
		b.WriteString("<script id=\"")
		b.WriteString(html.EscapeString(s.ID))
		b.WriteString("\" type=\"")
		b.WriteString(html.EscapeString(s.Type))
		b.WriteString("\">")
		b.WriteString(escapeScriptBody(s.Body))
		b.WriteString("</script>")
	}
	b.WriteString("</head><body>")
	for _, c := range d.containers {
		b.WriteString("<div id=\"")
		b.WriteString(html.EscapeString(c.id))
		b.WriteString("\"")
		if c.class != "" {
			b.WriteString(" class=\"")
			b.WriteString(html.EscapeString(c.class))
			b.WriteString("\"")
		}
		b.WriteString(">")
		b.WriteString(c.markup)
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")

	_, err := io.WriteString(w, b.String())
	return err
}

// escapeScriptBody keeps a script body from closing its own tag.
func escapeScriptBody(body string) string {
	return strings.ReplaceAll(body, "</", "<\\/")
}
