package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/makemysite/FP-HOME-DRAFT-sub000/backend"
)

const (
	tableContacts = "contact_submissions"
	tableUpdates  = "product_updates"
	tableReports  = "seo_reports"
)

// ContactSubmission is a message sent from the public contact form.
type ContactSubmission struct {
	ID        string
	Name      string
	Email     string
	Company   string
	Phone     string
	Message   string
	CreatedAt time.Time
}

// Validate checks the form fields.
func (c ContactSubmission) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Email, validation.Required, is.EmailFormat.Error("must be a valid email address")),
		validation.Field(&c.Company, validation.Length(0, 200)),
		validation.Field(&c.Phone, validation.Length(0, 50)),
		validation.Field(&c.Message, validation.Required, validation.Length(1, 5000)),
	)
}

// ProductUpdate is a changelog entry managed from the admin dashboard.
type ProductUpdate struct {
	ID        string
	Title     string
	Body      string
	Version   string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the editable fields.
func (u ProductUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&u.Version, validation.Length(0, 50)),
	)
}

// SEOReport is the result of scanning one page.
type SEOReport struct {
	ID               string
	URL              string
	Title            string
	Description      string
	H1Count          int
	ImagesMissingAlt int
	Canonical        string
	Issues           []string
	Score            int
	CreatedAt        time.Time
}

// Admin reads and writes the admin-side tables. Unlike Fetcher it sees
// unpublished posts.
type Admin struct {
	backend backend.Backend
	now     func() time.Time
}

// NewAdmin returns an Admin over b.
func NewAdmin(b backend.Backend) *Admin {
	return &Admin{backend: b, now: time.Now}
}

// ListAllPosts returns every post, drafts included, newest first.
func (a *Admin) ListAllPosts(ctx context.Context) ([]PostSummary, error) {
	rows, err := a.backend.Select(ctx, backend.Query{
		Table: tablePosts,
		Order: []backend.Order{backend.Desc("created_at")},
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := make([]PostSummary, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, normalizeSummary(r))
	}
	return posts, nil
}

// SetLabel sets or clears the highlight label of a post.
func (a *Admin) SetLabel(ctx context.Context, postID string, label Label) error {
	if postID == "" {
		return fmt.Errorf("set label: empty post id")
	}
	var v any
	if label != LabelNone {
		v = string(label)
	}
	err := a.backend.Update(ctx, tablePosts,
		[]backend.Filter{backend.Eq("id", postID)},
		backend.Row{"label": v, "updated_at": a.now().UTC()},
	)
	if err != nil {
		return fmt.Errorf("set label: %w", err)
	}
	return nil
}

// SetHeroImage points a post's hero image at src.
func (a *Admin) SetHeroImage(ctx context.Context, postID, src string) error {
	if postID == "" {
		return fmt.Errorf("set hero image: empty post id")
	}
	err := a.backend.Update(ctx, tablePosts,
		[]backend.Filter{backend.Eq("id", postID)},
		backend.Row{"hero_image": src, "updated_at": a.now().UTC()},
	)
	if err != nil {
		return fmt.Errorf("set hero image: %w", err)
	}
	return nil
}

// CreateContact validates and stores c, assigning its id and timestamp.
func (a *Admin) CreateContact(ctx context.Context, c ContactSubmission) (ContactSubmission, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if err := c.Validate(); err != nil {
		return ContactSubmission{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = a.now().UTC()
	err := a.backend.Insert(ctx, tableContacts, backend.Row{
		"id":         c.ID,
		"name":       c.Name,
		"email":      c.Email,
		"company":    c.Company,
		"phone":      c.Phone,
		"message":    c.Message,
		"created_at": c.CreatedAt,
	})
	if err != nil {
		return ContactSubmission{}, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// ListContacts returns contact submissions, newest first.
func (a *Admin) ListContacts(ctx context.Context, limit int) ([]ContactSubmission, error) {
	rows, err := a.backend.Select(ctx, backend.Query{
		Table: tableContacts,
		Order: []backend.Order{backend.Desc("created_at")},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	out := make([]ContactSubmission, 0, len(rows))
	for _, r := range rows {
		out = append(out, ContactSubmission{
			ID:        asString(r["id"]),
			Name:      asString(r["name"]),
			Email:     asString(r["email"]),
			Company:   asString(r["company"]),
			Phone:     asString(r["phone"]),
			Message:   asString(r["message"]),
			CreatedAt: asTime(r["created_at"]),
		})
	}
	return out, nil
}

// SaveProductUpdate inserts u when it has no id and updates it otherwise.
func (a *Admin) SaveProductUpdate(ctx context.Context, u ProductUpdate) (ProductUpdate, error) {
	u.Title = strings.TrimSpace(u.Title)
	if err := u.Validate(); err != nil {
		return ProductUpdate{}, err
	}
	now := a.now().UTC()
	u.UpdatedAt = now
	row := backend.Row{
		"title":      u.Title,
		"body":       u.Body,
		"version":    u.Version,
		"published":  u.Published,
		"updated_at": now,
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
		u.CreatedAt = now
		row["id"] = u.ID
		row["created_at"] = now
		if err := a.backend.Insert(ctx, tableUpdates, row); err != nil {
			return ProductUpdate{}, fmt.Errorf("create product update: %w", err)
		}
		return u, nil
	}
	if err := a.backend.Update(ctx, tableUpdates, []backend.Filter{backend.Eq("id", u.ID)}, row); err != nil {
		return ProductUpdate{}, fmt.Errorf("update product update: %w", err)
	}
	return u, nil
}

// ListProductUpdates returns product updates, newest first. When
// publishedOnly is set, drafts are filtered by the backend.
func (a *Admin) ListProductUpdates(ctx context.Context, publishedOnly bool) ([]ProductUpdate, error) {
	q := backend.Query{
		Table: tableUpdates,
		Order: []backend.Order{backend.Desc("created_at")},
	}
	if publishedOnly {
		q.Filters = []backend.Filter{backend.Eq("published", true)}
	}
	rows, err := a.backend.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list product updates: %w", err)
	}
	out := make([]ProductUpdate, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProductUpdate{
			ID:        asString(r["id"]),
			Title:     asString(r["title"]),
			Body:      asString(r["body"]),
			Version:   asString(r["version"]),
			Published: asBool(r["published"]),
			CreatedAt: asTime(r["created_at"]),
			UpdatedAt: asTime(r["updated_at"]),
		})
	}
	return out, nil
}

// SaveSEOReport stores r, assigning its id and timestamp.
func (a *Admin) SaveSEOReport(ctx context.Context, r SEOReport) (SEOReport, error) {
	if r.URL == "" {
		return SEOReport{}, fmt.Errorf("save seo report: empty url")
	}
	r.ID = uuid.NewString()
	r.CreatedAt = a.now().UTC()
	err := a.backend.Insert(ctx, tableReports, backend.Row{
		"id":                 r.ID,
		"url":                r.URL,
		"title":              r.Title,
		"description":        r.Description,
		"h1_count":           r.H1Count,
		"images_missing_alt": r.ImagesMissingAlt,
		"canonical":          r.Canonical,
		"issues":             strings.Join(r.Issues, "\n"),
		"score":              r.Score,
		"created_at":         r.CreatedAt,
	})
	if err != nil {
		return SEOReport{}, fmt.Errorf("save seo report: %w", err)
	}
	return r, nil
}

// ListSEOReports returns stored reports, newest first.
func (a *Admin) ListSEOReports(ctx context.Context, limit int) ([]SEOReport, error) {
	rows, err := a.backend.Select(ctx, backend.Query{
		Table: tableReports,
		Order: []backend.Order{backend.Desc("created_at")},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list seo reports: %w", err)
	}
	out := make([]SEOReport, 0, len(rows))
	for _, r := range rows {
		var issues []string
		if s := asString(r["issues"]); s != "" {
			issues = strings.Split(s, "\n")
		}
		out = append(out, SEOReport{
			ID:               asString(r["id"]),
			URL:              asString(r["url"]),
			Title:            asString(r["title"]),
			Description:      asString(r["description"]),
			H1Count:          asInt(r["h1_count"]),
			ImagesMissingAlt: asInt(r["images_missing_alt"]),
			Canonical:        asString(r["canonical"]),
			Issues:           issues,
			Score:            asInt(r["score"]),
			CreatedAt:        asTime(r["created_at"]),
		})
	}
	return out, nil
}
