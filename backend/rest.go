package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RESTConfig points REST at a hosted PostgREST-style endpoint.
type RESTConfig struct {
	URL        string // project URL, e.g. https://xyz.supabase.co
	APIKey     string
	HTTPClient *http.Client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Table      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Table, e.StatusCode, e.Body)
}

// REST talks to the hosted data service over HTTP.
type REST struct {
	base   *url.URL
	apiKey string
	client *http.Client
}

// NewREST validates cfg and returns a client.
func NewREST(cfg RESTConfig) (*REST, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", cfg.URL)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &REST{base: u, apiKey: cfg.APIKey, client: client}, nil
}

func (r *REST) endpoint(table string, params url.Values) string {
	u := *r.base
	u.Path = u.Path + "/rest/v1/" + table
	u.RawQuery = params.Encode()
	return u.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func filterParams(params url.Values, filters []Filter) {
	for _, f := range filters {
		if f.Value == nil {
			params.Add(f.Column, "is.null")
			continue
		}
		params.Add(f.Column, "eq."+formatValue(f.Value))
	}
}

// Select implements Backend.
func (r *REST) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("select", "*")
	filterParams(params, q.Filters)
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(q.Table, params), nil)
	if err != nil {
		return nil, err
	}
	body, err := r.do(req, q.Table)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", q.Table, err)
	}
	return rows, nil
}

// Insert implements Backend.
func (r *REST) Insert(ctx context.Context, table string, row Row) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	return r.write(ctx, http.MethodPost, table, url.Values{}, row)
}

// Update implements Backend.
func (r *REST) Update(ctx context.Context, table string, filters []Filter, row Row) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	if len(filters) == 0 {
		return fmt.Errorf("update %s: refusing to update without filters", table)
	}
	params := url.Values{}
	filterParams(params, filters)
	return r.write(ctx, http.MethodPatch, table, params, row)
}

func (r *REST) write(ctx context.Context, method, table string, params url.Values, row Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal %s row: %w", table, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.endpoint(table, params), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	body, err := r.do(req, table)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func (r *REST) do(req *http.Request, table string) (io.ReadCloser, error) {
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			Method:     req.Method,
			Table:      table,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	return resp.Body, nil
}

// Close implements Backend.
func (r *REST) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
