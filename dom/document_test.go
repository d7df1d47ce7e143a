package dom

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetHTMLMissingContainer(t *testing.T) {
	d := New()
	require.False(t, d.SetHTML("nope", "<p>x</p>"))
	assert.Zero(t, d.Mutations())
}

func TestRemovedContainerStaysRemoved(t *testing.T) {
	d := New()
	require.True(t, d.AddContainer("blog", ""))
	require.False(t, d.AddContainer("blog", ""))
	require.True(t, d.SetHTML("blog", "<p>one</p>"))
	require.True(t, d.RemoveContainer("blog"))

	assert.False(t, d.Exists("blog"))
	assert.False(t, d.SetHTML("blog", "<p>two</p>"))
	_, ok := d.HTML("blog")
	assert.False(t, ok)
}

func TestUpsertMetaNeverDuplicates(t *testing.T) {
	d := New()
	d.UpsertMeta("name", "description", "first")
	d.UpsertMeta("property", "og:title", "first")
	d.UpsertMeta("name", "description", "second")

	meta := d.Meta()
	require.Len(t, meta, 2)
	got, ok := d.MetaContent("name", "description")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestUpsertScriptAndEnsureStyle(t *testing.T) {
	d := New()
	d.UpsertScript("ld", "application/ld+json", "{}")
	d.UpsertScript("ld", "application/ld+json", `{"a":1}`)
	require.Len(t, d.Scripts(), 1)
	assert.Equal(t, `{"a":1}`, d.Scripts()[0].Body)

	assert.True(t, d.EnsureStyle("s", "p{}"))
	assert.False(t, d.EnsureStyle("s", "div{}"))
	require.Len(t, d.Styles(), 1)
	assert.Equal(t, "p{}", d.Styles()[0].CSS)
}

func TestRenderEscapesHead(t *testing.T) {
	d := New()
	d.SetTitle(`Tips & "Tricks"`)
	d.UpsertMeta("name", "description", `<script>`)
	d.UpsertScript("ld", "application/ld+json", `{"x":"</script>"}`)
	d.AddContainer("blog", "blog-embed")
	d.SetHTML("blog", "<p>hi</p>")

	var buf bytes.Buffer
	require.NoError(t, d.Render(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "<title>Tips &amp; &#34;Tricks&#34;</title>")
	assert.Contains(t, out, `content="&lt;script&gt;"`)
	assert.NotContains(t, out, `"</script>"}`)
	assert.Contains(t, out, `<div id="blog" class="blog-embed"><p>hi</p></div>`)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
}
