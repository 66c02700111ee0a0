// Package collector discovers markdown posts and extracts their front matter.
package collector

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/hpungsan/quire/internal/post"
)

// DefaultPattern matches every markdown file directly inside the posts directory.
const DefaultPattern = "*.md"

// ErrNoFrontMatter reports a post file that exposes no metadata object.
var ErrNoFrontMatter = stderrors.New("no front matter")

// formats restricts front matter to YAML between "---" lines.
var formats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", unmarshalYAML),
}

// Options controls discovery.
type Options struct {
	// Pattern is the glob matched against names in the posts directory.
	// Defaults to DefaultPattern.
	Pattern string

	// OnSkip, when set, is told about every matched file left out of the
	// result and why. Skips are otherwise silent.
	OnSkip func(path string, reason error)
}

// CollectDir runs Collect over the directory dir on the local filesystem.
// A directory that does not exist holds no posts.
func CollectDir(ctx context.Context, dir string, opts Options) ([]post.Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []post.Entry{}, nil
		}
		return nil, fmt.Errorf("stat posts directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("posts path %s is not a directory", dir)
	}
	return Collect(ctx, os.DirFS(dir), opts)
}

// Collect resolves the post file set in fsys and extracts one entry per file
// that carries front matter. Entries come back in lexical path order.
// Read failures are returned; files without usable front matter are skipped,
// as is any file whose slug an earlier path already produced.
func Collect(ctx context.Context, fsys fs.FS, opts Options) ([]post.Entry, error) {
	pattern := opts.Pattern
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}

	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	entries := make([]post.Entry, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := fs.Stat(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			continue
		}

		slug := post.SlugFromPath(p)
		if slug == "" {
			skip(opts, p, fmt.Errorf("empty slug"))
			continue
		}

		if first, dup := seen[slug]; dup {
			skip(opts, p, fmt.Errorf("duplicate slug %q, already taken by %s", slug, first))
			continue
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		meta, body, err := ParseFrontMatter(data)
		if err != nil {
			skip(opts, p, err)
			continue
		}

		seen[slug] = p
		entries = append(entries, post.Entry{
			Slug:     slug,
			Metadata: meta,
			Body:     string(body),
		})
	}

	return entries, nil
}

// ParseFrontMatter splits src into its front matter object and markdown body.
// It returns ErrNoFrontMatter when src has no block or the block is empty.
func ParseFrontMatter(src []byte) (map[string]any, []byte, error) {
	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta, formats...)
	if err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}
	if meta == nil {
		return nil, nil, ErrNoFrontMatter
	}
	return meta, body, nil
}

func skip(opts Options, path string, reason error) {
	if opts.OnSkip != nil {
		opts.OnSkip(path, reason)
	}
}
