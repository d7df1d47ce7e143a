package blog

import (
	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/metrics"
)

// gate is the dom.Target handed to the embed client. Container writes pass
// only while the Service is mounted and the container is tracked; a write
// that passes also supersedes the op queued for that container. Head writes
// pass while mounted.
type gate struct{ s *Service }

var _ dom.Target = gate{}

func (g gate) Exists(id string) bool {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if g.s.unmounting {
		return false
	}
	return g.s.target.Exists(id)
}

func (g gate) SetHTML(id, markup string) bool {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if g.s.unmounting {
		metrics.RecordDropped("unmounting")
		return false
	}
	if _, ok := g.s.active[id]; !ok {
		metrics.RecordDropped("inactive")
		return false
	}
	g.s.cancelPendingLocked(id)
	return g.s.target.SetHTML(id, markup)
}

func (g gate) mounted() bool {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	return !g.s.unmounting
}

func (g gate) SetTitle(title string) {
	if g.mounted() {
		g.s.target.SetTitle(title)
	}
}

func (g gate) UpsertMeta(attr, key, content string) {
	if g.mounted() {
		g.s.target.UpsertMeta(attr, key, content)
	}
}

func (g gate) UpsertScript(id, typ, body string) {
	if g.mounted() {
		g.s.target.UpsertScript(id, typ, body)
	}
}

func (g gate) EnsureStyle(id, css string) bool {
	if !g.mounted() {
		return false
	}
	return g.s.target.EnsureStyle(id, css)
}
