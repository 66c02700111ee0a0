package web

import (
	"net/http"
	"strings"

	"github.com/hpungsan/quire/internal/errors"
	"github.com/hpungsan/quire/internal/manifest"
	"github.com/hpungsan/quire/internal/post"
)

// Handlers contains HTTP route handlers. Everything they hold is computed
// at construction and never modified, so requests share it freely.
type Handlers struct {
	manifest *manifest.Manifest
	listing  []post.Summary
	body     []byte // pre-rendered listing JSON
	base     string
	renderer *Renderer
}

// NewHandlers pre-renders the listing for m and prepares the page renderer.
func NewHandlers(m *manifest.Manifest, base, version string) (*Handlers, error) {
	listing := m.Listing()
	body, err := manifest.EncodeListing(listing)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		manifest: m,
		listing:  listing,
		body:     body,
		base:     base,
		renderer: NewRenderer(Templates(), version, base),
	}, nil
}

// HandleListing handles GET {base}/api/posts, the post listing as JSON.
func (h *Handlers) HandleListing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Quire-Build", h.manifest.BuildID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.body)
}

// HandleIndex handles GET {base}/, the post index page.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "index", h.renderer.IndexPage(h.listing))
}

// HandlePost handles GET {base}/posts/{slug}, a single rendered post.
func (h *Handlers) HandlePost(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	if slug == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("slug is required"))
		return
	}

	entry, ok := h.manifest.Find(slug)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(slug))
		return
	}

	card := cardFor(entry.Summary())
	h.renderer.renderPage(w, "post", PostPageData{
		PageData:     h.renderer.pageData(card.Title),
		Post:         card,
		RenderedHTML: h.renderer.renderMarkdown(entry.Body),
	})
}
