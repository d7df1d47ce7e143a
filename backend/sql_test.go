package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name  string
		q     Query
		ph    placeholder
		want  string
		nargs int
	}{
		{
			name: "published posts",
			q: Query{
				Table:   "blog_posts",
				Filters: []Filter{Eq("published", true)},
				Order:   []Order{Desc("created_at")},
				Limit:   10,
			},
			ph:    dollar,
			want:  "SELECT * FROM blog_posts WHERE published = $1 ORDER BY created_at DESC LIMIT $2",
			nargs: 2,
		},
		{
			name: "slug lookup",
			q: Query{
				Table:   "blog_posts",
				Filters: []Filter{Eq("slug", "a"), Eq("published", true)},
			},
			ph:    question,
			want:  "SELECT * FROM blog_posts WHERE slug = ? AND published = ?",
			nargs: 2,
		},
		{
			name:  "bare table",
			q:     Query{Table: "blog_faqs", Order: []Order{Asc("position")}},
			ph:    question,
			want:  "SELECT * FROM blog_faqs ORDER BY position ASC",
			nargs: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := buildSelect(tt.q, tt.ph)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, args, tt.nargs)
		})
	}
}

func TestBuildRejectsBadIdentifiers(t *testing.T) {
	_, _, err := buildSelect(Query{Table: "posts; DROP TABLE x"}, question)
	require.Error(t, err)

	_, _, err = buildSelect(Query{Table: "blog_posts", Filters: []Filter{Eq("slug = 1 OR 1", 1)}}, question)
	require.Error(t, err)

	_, _, err = buildInsert("blog_posts", Row{"bad col": 1}, question)
	require.Error(t, err)
}

func TestBuildUpdateRequiresFilters(t *testing.T) {
	_, _, err := buildUpdate("blog_posts", nil, Row{"label": "popular"}, dollar)
	require.Error(t, err)

	q, args, err := buildUpdate("blog_posts", []Filter{Eq("id", "p1")}, Row{"label": "popular", "updated_at": "now"}, dollar)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE blog_posts SET label = $1, updated_at = $2 WHERE id = $3", q)
	assert.Equal(t, []any{"popular", "now", "p1"}, args)
}

func TestBuildInsertSortsColumns(t *testing.T) {
	q, args, err := buildInsert("contact_submissions", Row{"name": "Ada", "email": "a@b.co", "id": "1"}, dollar)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO contact_submissions (email, id, name) VALUES ($1, $2, $3)", q)
	assert.Equal(t, []any{"a@b.co", "1", "Ada"}, args)
}
