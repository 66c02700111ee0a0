package manifest

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/hpungsan/quire/internal/collector"
	"github.com/hpungsan/quire/internal/errors"
)

// File names written into the output directory.
const (
	ManifestFile = "manifest.json"
	ListingFile  = "api/posts"
)

// Skip describes a matched file that was left out of the build.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	PostsDir string // required
	Pattern  string // default: "*.md"
	OutDir   string // required
	Now      time.Time
}

// BuildOutput contains the result of the Build operation.
type BuildOutput struct {
	BuildID  string `json:"build_id"`
	Posts    int    `json:"posts"`
	Skipped  []Skip `json:"skipped,omitempty"`
	Manifest string `json:"manifest"`
	Listing  string `json:"listing"`
}

// Build scans the posts directory once and writes the manifest plus the
// pre-rendered listing into OutDir.
func Build(ctx context.Context, input BuildInput) (*BuildOutput, error) {
	if input.PostsDir == "" {
		return nil, errors.NewInvalidRequest("posts directory is required")
	}
	if input.OutDir == "" {
		return nil, errors.NewInvalidRequest("output directory is required")
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	var skipped []Skip
	entries, err := collector.CollectDir(ctx, input.PostsDir, collector.Options{
		Pattern: input.Pattern,
		OnSkip: func(path string, reason error) {
			skipped = append(skipped, Skip{Path: path, Reason: reason.Error()})
		},
	})
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("collect posts: %w", err))
	}

	m, err := New(entries, now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	listing, err := EncodeListing(m.Listing())
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	manifestPath := filepath.Join(input.OutDir, ManifestFile)
	listingPath := filepath.Join(input.OutDir, filepath.FromSlash(ListingFile))

	if err := Write(manifestPath, m); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := writeFileAtomic(listingPath, listing); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &BuildOutput{
		BuildID:  m.BuildID,
		Posts:    len(m.Posts),
		Skipped:  skipped,
		Manifest: manifestPath,
		Listing:  listingPath,
	}, nil
}

// LoadInput contains parameters for the Load operation.
type LoadInput struct {
	ManifestPath string
	PostsDir     string
	Pattern      string
}

// Load returns the manifest at ManifestPath. When that file does not exist
// the posts directory is scanned once instead and an in-memory manifest is
// returned; fromScan reports which path was taken.
func Load(ctx context.Context, input LoadInput) (m *Manifest, fromScan bool, err error) {
	if input.ManifestPath != "" {
		found, readErr := Read(input.ManifestPath)
		if readErr == nil {
			return found, false, nil
		}
		if !stderrors.Is(readErr, fs.ErrNotExist) {
			return nil, false, readErr
		}
	}

	if input.PostsDir == "" {
		return nil, false, errors.NewInvalidRequest("no manifest found and no posts directory configured")
	}

	entries, err := collector.CollectDir(ctx, input.PostsDir, collector.Options{Pattern: input.Pattern})
	if err != nil {
		return nil, false, errors.NewInternal(fmt.Errorf("collect posts: %w", err))
	}
	m, err = New(entries, time.Now())
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return m, true, nil
}
