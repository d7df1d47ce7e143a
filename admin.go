package fphome

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/content"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/views"
)

const (
	dashboardContacts = 50
	dashboardReports  = 20
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return a.renderLayout(c, http.StatusOK, "Admin", a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.Admin.Password)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Logger.Warn("admin login failed", zap.String("ip", ip))
	return a.renderLayout(c, http.StatusUnauthorized, "Admin", a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminLabel(c echo.Context) error {
	id := c.Param("id")
	label := content.ParseLabel(strings.TrimSpace(c.FormValue("label")))
	if err := a.Admin.SetLabel(c.Request().Context(), id, label); err != nil {
		return err
	}
	a.Feed.Invalidate()
	return a.renderAdminDashboard(c, "label saved")
}

func (a *App) handleAdminUpdate(c echo.Context) error {
	u, err := a.Admin.SaveProductUpdate(c.Request().Context(), content.ProductUpdate{
		ID:        strings.TrimSpace(c.FormValue("id")),
		Title:     c.FormValue("title"),
		Body:      c.FormValue("body"),
		Version:   strings.TrimSpace(c.FormValue("version")),
		Published: c.FormValue("published") != "",
	})
	if msg, ok := validationMessage(err); ok {
		return a.renderAdminDashboard(c, msg)
	}
	if err != nil {
		return err
	}
	return a.renderAdminDashboard(c, fmt.Sprintf("saved %q", u.Title))
}

func (a *App) handleAdminScan(c echo.Context) error {
	ctx := c.Request().Context()
	target := strings.TrimSpace(c.FormValue("url"))
	if target == "" {
		target = a.Config.Site.URL
	}
	report, err := a.Scanner.Scan(ctx, target)
	if err != nil {
		a.Logger.Warn("seo scan failed", zap.String("url", target), zap.Error(err))
		return a.renderAdminDashboard(c, "scan failed: "+err.Error())
	}
	if _, err := a.Admin.SaveSEOReport(ctx, report); err != nil {
		return err
	}
	return a.renderAdminDashboard(c, fmt.Sprintf("scanned %s: score %d", report.URL, report.Score))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	posts, err := a.Admin.ListAllPosts(ctx)
	if err != nil {
		return err
	}
	contacts, err := a.Admin.ListContacts(ctx, dashboardContacts)
	if err != nil {
		return err
	}
	updates, err := a.Admin.ListProductUpdates(ctx, false)
	if err != nil {
		return err
	}
	reports, err := a.Admin.ListSEOReports(ctx, dashboardReports)
	if err != nil {
		return err
	}
	return a.renderLayout(c, http.StatusOK, "Dashboard", a.Views.AdminDashboard(views.AdminDashboardData{
		Posts:     posts,
		Contacts:  contacts,
		Updates:   updates,
		Reports:   reports,
		Message:   msg,
		CSRFToken: CsrfToken(c),
	}))
}

// validationMessage flattens ozzo validation errors into one line.
func validationMessage(err error) (string, bool) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return "", false
	}
	parts := make([]string, 0, len(verrs))
	for _, field := range sortedKeys(verrs) {
		parts = append(parts, field+": "+verrs[field].Error())
	}
	return strings.Join(parts, "; "), true
}
