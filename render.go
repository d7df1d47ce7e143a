package fphome

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/dom"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// renderLayout wraps body in the standalone layout used by admin and error
// pages.
func (a *App) renderLayout(c echo.Context, code int, title string, body templ.Component) error {
	return RenderStatus(c, code, a.layout(title, body))
}

// renderDocument writes a fully assembled page. The document must not be
// written to afterwards.
func renderDocument(c echo.Context, code int, doc *dom.Document) error {
	return RenderStatus(c, code, doc)
}
