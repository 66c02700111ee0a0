package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/quire/internal/config"
	"github.com/hpungsan/quire/internal/manifest"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var listToolDef = mcp.NewTool("posts_list",
	mcp.WithDescription("List every post's front matter and slug, newest first."),
)

var getToolDef = mcp.NewTool("posts_get",
	mcp.WithDescription("Fetch one post's front matter and markdown body by slug."),
	mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug (file name without extension)")),
)

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"posts_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"posts_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the post tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(m *manifest.Manifest, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"quire",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(m)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(m *manifest.Manifest, cfg *config.Config, version string) error {
	s := NewServer(m, cfg, version)
	return server.ServeStdio(s)
}

