package post

import (
	"path"
	"path/filepath"
	"strings"
	"time"
)

// SlugKey and DateKey are the summary fields quire itself interprets.
// Every other front matter field is passed through untouched.
const (
	SlugKey = "slug"
	DateKey = "date"
)

// Entry is one discovered post as recorded in the build manifest.
type Entry struct {
	// Slug is the filename without directory and extension
	Slug string `json:"slug"`

	// Metadata is the front matter object, copied verbatim
	Metadata map[string]any `json:"metadata"`

	// Body is the markdown text following the front matter block
	Body string `json:"body,omitempty"`
}

// Summary is the listing form of a post: its front matter fields plus slug.
type Summary map[string]any

// Summary builds the listing record for e. The derived slug always replaces
// a front matter field of the same name.
func (e Entry) Summary() Summary {
	s := make(Summary, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		s[k] = v
	}
	s[SlugKey] = e.Slug
	return s
}

// Slug returns the summary's slug, or "" when absent.
func (s Summary) Slug() string {
	v, _ := s[SlugKey].(string)
	return v
}

// Date returns the parsed date field and whether it was usable.
func (s Summary) Date() (time.Time, bool) {
	return ParseDate(s[DateKey])
}

// SlugFromPath derives a slug from a file path: the final segment with its
// extension removed. "/src/posts/my-post.md" yields "my-post".
// Only the last extension goes: "v1.2-release.md" yields "v1.2-release", not "v1".
func SlugFromPath(p string) string {
	base := path.Base(filepath.ToSlash(p))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
