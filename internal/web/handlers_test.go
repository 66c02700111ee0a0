package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/quire/internal/manifest"
	"github.com/hpungsan/quire/internal/post"
)

func setupTest(t *testing.T, base string, entries ...post.Entry) (*Handlers, http.Handler) {
	t.Helper()
	m, err := manifest.New(entries, time.Now())
	require.NoError(t, err)

	h, err := NewHandlers(m, base, "test")
	require.NoError(t, err)
	return h, Routes(h)
}

func samplePosts() []post.Entry {
	return []post.Entry{
		{Slug: "a", Metadata: map[string]any{"date": "2024-01-01", "title": "A"}, Body: "# Alpha\n\nFirst *post*."},
		{Slug: "b", Metadata: map[string]any{"date": "2024-06-01", "title": "B", "tags": []any{"go", "web"}}, Body: "Second post."},
	}
}

func get(t *testing.T, handler http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// --- HandleListing ---

func TestHandleListing_SortedJSON(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	rec := get(t, handler, "/api/posts")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `[
		{"slug":"b","date":"2024-06-01","title":"B","tags":["go","web"]},
		{"slug":"a","date":"2024-01-01","title":"A"}
	]`, rec.Body.String())
}

func TestHandleListing_EmptyIsArray(t *testing.T) {
	_, handler := setupTest(t, "")

	rec := get(t, handler, "/api/posts")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleListing_IgnoresQuery(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	plain := get(t, handler, "/api/posts")
	withQuery := get(t, handler, "/api/posts?limit=1&tag=go")

	require.Equal(t, http.StatusOK, withQuery.Code)
	require.Equal(t, plain.Body.String(), withQuery.Body.String())
}

func TestHandleListing_StableAcrossRequests(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	first := get(t, handler, "/api/posts")
	second := get(t, handler, "/api/posts")

	require.True(t, bytes.Equal(first.Body.Bytes(), second.Body.Bytes()))
	require.NotEmpty(t, first.Header().Get("X-Quire-Build"))
}

func TestHandleListing_OnlyGET(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	req := httptest.NewRequest("POST", "/api/posts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleListing_BasePath(t *testing.T) {
	_, handler := setupTest(t, "/blog", samplePosts()...)

	rec := get(t, handler, "/blog/api/posts")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 2)

	rec = get(t, handler, "/api/posts")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// --- HandleIndex ---

func TestHandleIndex(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	rec := get(t, handler, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<!DOCTYPE html>")
	require.Contains(t, body, `href="/posts/a"`)
	require.Contains(t, body, "June 1, 2024")
	require.Contains(t, body, "go, web")
	// Newest first
	require.Less(t, strings.Index(body, `href="/posts/b"`), strings.Index(body, `href="/posts/a"`))
}

func TestHandleIndex_Empty(t *testing.T) {
	_, handler := setupTest(t, "")

	rec := get(t, handler, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No posts yet.")
}

func TestHandleIndex_BasePathRedirect(t *testing.T) {
	_, handler := setupTest(t, "/blog", samplePosts()...)

	rec := get(t, handler, "/")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/blog/", rec.Header().Get("Location"))

	rec = get(t, handler, "/blog/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `href="/blog/posts/b"`)
	require.Contains(t, rec.Body.String(), `href="/blog/static/style.css"`)
}

// --- HandlePost ---

func TestHandlePost(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	rec := get(t, handler, "/posts/a")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<title>A</title>")
	require.Contains(t, body, `<h1 id="alpha">Alpha</h1>`)
	require.Contains(t, body, "<em>post</em>")
}

func TestHandlePost_RawHTMLOmitted(t *testing.T) {
	_, handler := setupTest(t, "", post.Entry{
		Slug:     "x",
		Metadata: map[string]any{"title": "X"},
		Body:     "<script>alert(1)</script>\n\ntext",
	})

	rec := get(t, handler, "/posts/x")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}

func TestHandlePost_NotFound(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	rec := get(t, handler, "/posts/missing")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "post not found: missing")
}

func TestHandlePost_NotFoundJSON(t *testing.T) {
	_, handler := setupTest(t, "", samplePosts()...)

	rec := get(t, handler, "/posts/missing", "Accept", "application/json")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "NOT_FOUND", resp["error"]["code"])
	require.Equal(t, float64(404), resp["error"]["status"])
}

func TestHandlePost_TitleFallsBackToSlug(t *testing.T) {
	_, handler := setupTest(t, "", post.Entry{Slug: "untitled", Metadata: map[string]any{}})

	rec := get(t, handler, "/posts/untitled")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<title>untitled</title>")
}

// --- Static & headers ---

func TestStaticAndSecurityHeaders(t *testing.T) {
	_, handler := setupTest(t, "")

	rec := get(t, handler, "/static/style.css")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "--accent")
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

// --- Renderer ---

func TestCardFor(t *testing.T) {
	c := cardFor(post.Summary{
		"slug":    "p",
		"title":   "  Title ",
		"summary": "short",
		"tags":    "a, b,,c",
		"date":    "2024-02-29",
	})

	require.Equal(t, "p", c.Slug)
	require.Equal(t, "Title", c.Title)
	require.Equal(t, "short", c.Description)
	require.Equal(t, []string{"a", "b", "c"}, c.Tags)
	require.Equal(t, "February 29, 2024", c.Date)
	require.Equal(t, "2024-02-29", c.ISODate)
}

func TestCardFor_Undated(t *testing.T) {
	c := cardFor(post.Summary{"slug": "p", "date": "soon"})
	require.Empty(t, c.Date)
	require.Empty(t, c.ISODate)
}

func TestRendererExecute_UnknownPage(t *testing.T) {
	r := NewRenderer(Templates(), "test", "")
	var buf bytes.Buffer
	require.Error(t, r.Execute(&buf, "nope", nil))
}
