package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTSelectBuildsPostgRESTQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/blog_posts", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.true", q.Get("published"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"p1","slug":"hello","position":3}]`)
	}))
	defer srv.Close()

	r, err := NewREST(RESTConfig{URL: srv.URL + "/", APIKey: "key"})
	require.NoError(t, err)

	rows, err := r.Select(context.Background(), Query{
		Table:   "blog_posts",
		Filters: []Filter{Eq("published", true)},
		Order:   []Order{Desc("created_at")},
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0]["slug"])
	assert.Equal(t, json.Number("3"), rows[0]["position"])
}

func TestRESTStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewREST(RESTConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = r.Select(context.Background(), Query{Table: "blog_posts"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Contains(t, se.Body, "boom")
}

func TestRESTInsertAndUpdate(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "Ada", body["name"])
			w.WriteHeader(http.StatusCreated)
		case http.MethodPatch:
			assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
			assert.Equal(t, true, body["published"])
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	r, err := NewREST(RESTConfig{URL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, "contact_submissions", Row{"name": "Ada"}))
	require.NoError(t, r.Update(ctx, "product_updates", []Filter{Eq("id", "u1")}, Row{"published": true}))
	require.Error(t, r.Update(ctx, "product_updates", nil, Row{"published": true}))
	assert.Equal(t, []string{http.MethodPost, http.MethodPatch}, methods)
}

func TestNewRESTValidatesURL(t *testing.T) {
	_, err := NewREST(RESTConfig{})
	require.Error(t, err)
	_, err = NewREST(RESTConfig{URL: "ftp://example.com"})
	require.Error(t, err)
}
