// Package loader fetches the post listing the way a page does on load.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hpungsan/quire/internal/config"
	"github.com/hpungsan/quire/internal/post"
)

// ListingPath is the listing endpoint, relative to the base path.
const ListingPath = "/api/posts"

// maxBody bounds how much of a listing response is read.
const maxBody = 32 << 20

// PageData is what the index page renders.
type PageData struct {
	Posts []post.Summary `json:"posts"`
}

// Loader fetches the listing from a running server.
type Loader struct {
	client *http.Client
	url    string
}

// New creates a Loader for the server at origin (scheme and host) serving
// under base. A nil client uses http.DefaultClient.
func New(client *http.Client, origin, base string) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client: client,
		url:    strings.TrimRight(origin, "/") + config.NormalizeBasePath(base) + ListingPath,
	}
}

// URL returns the listing URL the loader requests.
func (l *Loader) URL() string {
	return l.url
}

// Load requests the listing and decodes it. Transport failures, non-200
// responses and bodies that are not a JSON array are returned as errors.
func (l *Loader) Load(ctx context.Context) (*PageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", l.url, resp.Status)
	}

	var posts []post.Summary
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.url, err)
	}
	if posts == nil {
		posts = []post.Summary{}
	}

	return &PageData{Posts: posts}, nil
}
