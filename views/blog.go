package views

import (
	"bytes"
	"context"
	"time"

	"github.com/a-h/templ"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
)

//go:generate templ generate

const dateLayout = "January 2, 2006"

const defaultErrorText = "Something went wrong while loading this content."

// FormatDate renders t the way post bylines show it. The zero time renders
// as an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// String renders c into a string.
func String(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstN(posts []content.PostSummary, n int) []content.PostSummary {
	if len(posts) > n {
		return posts[:n]
	}
	return posts
}

func errorText(message string) string {
	if message == "" {
		return defaultErrorText
	}
	return message
}
