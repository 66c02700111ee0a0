package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the config file looked up when no explicit path is given.
const FileName = "quire.json"

// Config holds application configuration.
type Config struct {
	// PostsDir is the directory scanned for markdown posts.
	PostsDir string `json:"posts_dir,omitempty"`

	// PostsPattern is the glob, relative to PostsDir, that selects post files.
	// Matching is not recursive.
	PostsPattern string `json:"posts_pattern,omitempty"`

	// OutDir receives the build manifest and the pre-rendered listing.
	OutDir string `json:"out_dir,omitempty"`

	// BasePath prefixes every route, e.g. "/blog". Empty serves from the root.
	BasePath string `json:"base_path,omitempty"`

	// Bind is the interface the HTTP server listens on.
	Bind string `json:"bind,omitempty"`

	// Port is the HTTP server port.
	Port int `json:"port,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PostsDir:     filepath.Join("src", "posts"),
		PostsPattern: "*.md",
		OutDir:       "build",
		Bind:         "127.0.0.1",
		Port:         5173,
	}
}

// Load loads configuration from configPath.
// Returns default config if the file doesn't exist.
func Load(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// FindSiteConfig walks upward from startDir to find the nearest quire.json.
// Returns the path if found, or empty string if not found.
func FindSiteConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays QUIRE_* environment variables on cfg.
// getenv is usually os.Getenv; tests pass a map lookup.
func ApplyEnv(cfg *Config, getenv func(string) string) (*Config, error) {
	overlay := &Config{
		PostsDir: getenv("QUIRE_POSTS_DIR"),
		BasePath: getenv("QUIRE_BASE_PATH"),
	}
	if port := getenv("QUIRE_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid QUIRE_PORT %q", port)
		}
		overlay.Port = p
	}
	return Merge(cfg, overlay), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.PostsDir = firstNonEmpty(overlay.PostsDir, base.PostsDir)
	result.PostsPattern = firstNonEmpty(overlay.PostsPattern, base.PostsPattern)
	result.OutDir = firstNonEmpty(overlay.OutDir, base.OutDir)
	result.BasePath = NormalizeBasePath(firstNonEmpty(overlay.BasePath, base.BasePath))
	result.Bind = firstNonEmpty(overlay.Bind, base.Bind)

	result.Port = overlay.Port
	if result.Port == 0 {
		result.Port = base.Port
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// NormalizeBasePath returns p with a single leading slash and no trailing
// slash. The root ("" or "/") normalizes to "".
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
