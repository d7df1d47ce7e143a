package content

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/backend"
)

// Backends return loosely typed rows: REST decodes JSON numbers, SQLite
// stores booleans as integers, pgx hands back UUIDs as byte arrays. The
// helpers below coerce them and fall back to zero values, so optional
// columns never surface as nil.

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		return int(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return 0
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case float64:
		return x != 0
	case json.Number:
		return x.String() != "0"
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func normalizeSummary(r backend.Row) PostSummary {
	return PostSummary{
		ID:          asString(r["id"]),
		Slug:        asString(r["slug"]),
		Title:       asString(r["title"]),
		Description: asString(r["description"]),
		HeroImage:   asString(r["hero_image"]),
		CreatedAt:   asTime(r["created_at"]),
		UpdatedAt:   asTime(r["updated_at"]),
		Published:   asBool(r["published"]),
		Category:    ParseCategory(asString(r["category"])),
		Label:       ParseLabel(asString(r["label"])),
	}
}

func normalizePost(r backend.Row) Post {
	return Post{
		PostSummary: normalizeSummary(r),
		Conclusion:  asString(r["conclusion"]),
		Sections:    []Section{},
		FAQs:        []FAQ{},
	}
}

func normalizeSection(r backend.Row) Section {
	return Section{
		ID:       asString(r["id"]),
		PostID:   asString(r["blog_post_id"]),
		Title:    asString(r["title"]),
		Position: asInt(r["position"]),
		Blocks:   []Block{},
	}
}

func normalizeFAQ(r backend.Row) FAQ {
	return FAQ{
		ID:       asString(r["id"]),
		Question: asString(r["question"]),
		Answer:   asString(r["answer"]),
		Position: asInt(r["position"]),
	}
}

// blockPayload returns the fields of a section_content row. The content
// column may hold a JSON object, a JSON-encoded object string or plain text;
// columns on the row itself fill any field the payload lacks.
func blockPayload(r backend.Row) map[string]any {
	payload := map[string]any{}
	switch c := r["content"].(type) {
	case map[string]any:
		payload = c
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(c), &m); err == nil && m != nil {
			payload = m
		} else if c != "" {
			payload["text"] = c
		}
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(c, &m); err == nil && m != nil {
			payload = m
		}
	}
	for _, k := range []string{"text", "src", "url", "alt", "caption"} {
		if _, ok := payload[k]; !ok {
			if v, ok := r[k]; ok && v != nil {
				payload[k] = v
			}
		}
	}
	return payload
}

// normalizeBlock returns false for block types the renderer does not know.
func normalizeBlock(r backend.Row) (Block, bool) {
	typ := BlockType(strings.ToLower(strings.TrimSpace(asString(r["type"]))))
	p := blockPayload(r)
	b := Block{
		ID:       asString(r["id"]),
		Type:     typ,
		Position: asInt(r["position"]),
	}
	switch typ {
	case BlockText:
		b.Text = asString(p["text"])
	case BlockImage:
		b.Src = asString(p["src"])
		if b.Src == "" {
			b.Src = asString(p["url"])
		}
		b.Alt = asString(p["alt"])
		b.Caption = asString(p["caption"])
	default:
		return Block{}, false
	}
	return b, true
}

func sortSections(s []Section) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Position < s[j].Position })
}

func sortBlocks(b []Block) {
	sort.SliceStable(b, func(i, j int) bool { return b[i].Position < b[j].Position })
}

func sortFAQs(f []FAQ) {
	sort.SliceStable(f, func(i, j int) bool { return f[i].Position < f[j].Position })
}

// AlternateSlug toggles the trailing slash of slug.
//
// Stored slugs are inconsistent about trailing slashes; lookups try both forms.
func AlternateSlug(slug string) string {
	if strings.HasSuffix(slug, "/") {
		return strings.TrimSuffix(slug, "/")
	}
	return slug + "/"
}
