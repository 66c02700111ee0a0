package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/hpungsan/quire/internal/errors"
	"github.com/hpungsan/quire/internal/post"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Base    string // base path prefix for links, "" at the root
}

// Card is the display form of one post summary.
type Card struct {
	Slug        string
	Title       string
	Date        string // human readable, "" when undated
	ISODate     string // YYYY-MM-DD, "" when undated
	Description string
	Tags        []string
}

// IndexPageData is the template data for the post index.
type IndexPageData struct {
	PageData
	Posts []Card
}

// PostPageData is the template data for a single post.
type PostPageData struct {
	PageData
	Post         Card
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	base      string
	markdown  goldmark.Markdown
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version, base string) *Renderer {
	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"index": "index.html",
		"post":  "post.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		base:      base,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// pageData fills the common fields for a page titled title.
func (r *Renderer) pageData(title string) PageData {
	return PageData{Title: title, Version: r.version, Base: r.base}
}

// IndexPage builds the index page data for a listing.
func (r *Renderer) IndexPage(posts []post.Summary) IndexPageData {
	cards := make([]Card, 0, len(posts))
	for _, s := range posts {
		cards = append(cards, cardFor(s))
	}
	return IndexPageData{PageData: r.pageData("Posts"), Posts: cards}
}

// Execute renders the full layout of page name into w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := r.Execute(&buf, name, data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var qErr *errors.QuireError
	if !stderrors.As(err, &qErr) {
		qErr = errors.NewInternal(err)
	}

	status := qErr.Status
	message := qErr.Message
	if qErr.Code == errors.ErrInternal {
		log.Printf("internal error on %s: %v", req.URL.Path, err)
		message = "internal error"
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(qErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData:   r.pageData(fmt.Sprintf("Error %d", status)),
		StatusCode: status,
		Message:    message,
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// cardFor extracts the display fields the templates use from a summary.
func cardFor(s post.Summary) Card {
	c := Card{
		Slug:        s.Slug(),
		Title:       stringField(s, "title"),
		Description: stringField(s, "description"),
		Tags:        stringsField(s, "tags"),
	}
	if c.Title == "" {
		c.Title = c.Slug
	}
	if c.Description == "" {
		c.Description = stringField(s, "summary")
	}
	if t, ok := s.Date(); ok {
		c.Date = t.Format("January 2, 2006")
		c.ISODate = t.Format("2006-01-02")
	}
	return c
}

func stringField(s post.Summary, key string) string {
	v, _ := s[key].(string)
	return strings.TrimSpace(v)
}

// stringsField accepts either a list or a comma-separated string.
func stringsField(s post.Summary, key string) []string {
	var out []string
	switch v := s[key].(type) {
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
	case []string:
		for _, str := range v {
			if strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
	case string:
		for _, str := range strings.Split(v, ",") {
			if strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
	}
	return out
}
