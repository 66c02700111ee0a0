// Package manifest records the result of a post scan so the server can
// start from it without touching the posts directory again.
package manifest

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/quire/internal/errors"
	"github.com/hpungsan/quire/internal/post"
)

// SchemaVersion is written into every manifest. Read rejects other versions.
const SchemaVersion = "1"

// Manifest is the build-time record of every discovered post.
type Manifest struct {
	SchemaVersion string       `json:"schema_version"`
	BuildID       string       `json:"build_id"`
	GeneratedAt   int64        `json:"generated_at"`
	Posts         []post.Entry `json:"posts"`
}

// New wraps entries in a manifest stamped with a fresh build ID.
func New(entries []post.Entry, now time.Time) (*Manifest, error) {
	id, err := generateULID(now)
	if err != nil {
		return nil, fmt.Errorf("generate build id: %w", err)
	}
	if entries == nil {
		entries = []post.Entry{}
	}
	return &Manifest{
		SchemaVersion: SchemaVersion,
		BuildID:       id,
		GeneratedAt:   now.Unix(),
		Posts:         entries,
	}, nil
}

// Listing returns the sorted post summaries. Each call builds new summaries.
func (m *Manifest) Listing() []post.Summary {
	return post.Listing(m.Posts)
}

// Find returns the entry with the given slug.
func (m *Manifest) Find(slug string) (post.Entry, bool) {
	for _, e := range m.Posts {
		if e.Slug == slug {
			return e, true
		}
	}
	return post.Entry{}, false
}

// Read loads and validates the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("read manifest: %w", err))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewInvalidManifest(path, err.Error())
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, errors.NewInvalidManifest(path, fmt.Sprintf("unsupported schema_version %q", m.SchemaVersion))
	}
	if m.BuildID == "" {
		return nil, errors.NewInvalidManifest(path, "missing build_id")
	}

	seen := make(map[string]bool, len(m.Posts))
	for i, e := range m.Posts {
		if e.Slug == "" {
			return nil, errors.NewInvalidManifest(path, fmt.Sprintf("post %d has no slug", i))
		}
		if seen[e.Slug] {
			return nil, errors.NewInvalidManifest(path, fmt.Sprintf("duplicate slug %q", e.Slug))
		}
		seen[e.Slug] = true
	}
	if m.Posts == nil {
		m.Posts = []post.Entry{}
	}

	return &m, nil
}

// Write stores m at path, replacing any existing file only once the new
// content is fully written.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// EncodeListing renders summaries as the JSON array served by the listing
// endpoint. An empty listing encodes as [].
func EncodeListing(summaries []post.Summary) ([]byte, error) {
	if summaries == nil {
		summaries = []post.Summary{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(summaries); err != nil {
		return nil, fmt.Errorf("encode listing: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data to a temp file beside path, then renames it.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// generateULID generates a new ULID for the given time.
func generateULID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
