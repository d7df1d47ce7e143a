package views

import "github.com/makemysite/FP-HOME-DRAFT-sub000/content"

// AdminDashboardData is everything the dashboard shows.
type AdminDashboardData struct {
	Posts     []content.PostSummary
	Contacts  []content.ContactSubmission
	Updates   []content.ProductUpdate
	Reports   []content.SEOReport
	Message   string
	CSRFToken string
}

func pageTitle(cfg SiteConfig, title string) string {
	if title == "" {
		return cfg.Name
	}
	return title + " | " + cfg.Name
}

func publishState(published bool) string {
	if published {
		return "published"
	}
	return "draft"
}
