package fphome

import (
	"sort"
	"strings"

	"github.com/a-h/templ"
	"github.com/goliatone/go-slug"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

// Slugify converts a title to a URL-safe slug. Input with nothing usable,
// or that the normalizer rejects, yields "".
func Slugify(s string) string {
	normalized, err := slug.Normalize(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return normalized
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *App) layout(title string, body templ.Component) templ.Component {
	return views.Layout(a.Config.Site, title, body)
}
