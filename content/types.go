// Package content fetches blog posts from the backend and normalizes rows
// into posts, sections, content blocks and FAQs.
package content

import "time"

// Category groups posts on the blog index.
type Category string

const (
	CategoryIndustryInsights  Category = "Industry Insights"
	CategoryFieldOperations   Category = "Field Operations"
	CategoryTechnologyTrends  Category = "Technology Trends"
	CategoryGrowth            Category = "Growth"
	CategoryNone              Category = ""
	defaultCategoryLabel               = "Uncategorized"
)

// ParseCategory maps a stored value onto a known category.
func ParseCategory(s string) Category {
	switch c := Category(s); c {
	case CategoryIndustryInsights, CategoryFieldOperations, CategoryTechnologyTrends, CategoryGrowth:
		return c
	}
	return CategoryNone
}

// DisplayName is the category label shown to readers.
func (c Category) DisplayName() string {
	if c == CategoryNone {
		return defaultCategoryLabel
	}
	return string(c)
}

// Label is an editorial highlight set from the admin dashboard.
type Label string

const (
	LabelLatest   Label = "latest"
	LabelPopular  Label = "popular"
	LabelTrending Label = "trending"
	LabelNone     Label = ""
)

// ParseLabel maps a stored value onto a known label.
func ParseLabel(s string) Label {
	switch l := Label(s); l {
	case LabelLatest, LabelPopular, LabelTrending:
		return l
	}
	return LabelNone
}

// Labels lists every label in display order.
func Labels() []Label {
	return []Label{LabelLatest, LabelPopular, LabelTrending}
}

// BlockType discriminates Block.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// Block is one ordered piece of a section.
type Block struct {
	ID       string
	Type     BlockType
	Position int
	Text     string // markdown, text blocks only
	Src      string // image blocks only
	Alt      string
	Caption  string
}

// Section is a titled, ordered part of a post.
type Section struct {
	ID       string
	PostID   string
	Title    string
	Position int
	Blocks   []Block
}

// FAQ is a question shown in the accordion at the end of a post.
type FAQ struct {
	ID       string
	Question string
	Answer   string // markdown
	Position int
}

// PostSummary is the list projection of a post.
type PostSummary struct {
	ID          string
	Slug        string
	Title       string
	Description string
	HeroImage   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Published   bool
	Category    Category
	Label       Label
}

// Post is a fully assembled post.
type Post struct {
	PostSummary
	Conclusion string
	Sections   []Section
	FAQs       []FAQ
}

// Path returns the canonical path of the post under base, e.g. /blog/slug.
func (p PostSummary) Path(base string) string {
	if base == "" {
		base = "/blog"
	}
	return trimRightSlash(base) + "/" + p.Slug
}

func trimRightSlash(s string) string {
	for len(s) > 1 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
