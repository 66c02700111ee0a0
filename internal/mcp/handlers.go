package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/quire/internal/errors"
	"github.com/hpungsan/quire/internal/manifest"
	"github.com/hpungsan/quire/internal/post"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	manifest *manifest.Manifest
	listing  []post.Summary
}

// NewHandlers creates a new Handlers instance. The listing is built once.
func NewHandlers(m *manifest.Manifest) *Handlers {
	return &Handlers{manifest: m, listing: m.Listing()}
}

// GetRequest represents the arguments for posts_get.
type GetRequest struct {
	Slug string `json:"slug"`
}

// ListOutput is the posts_list result. Structured tool output must be an
// object, so the listing array is wrapped.
type ListOutput struct {
	Posts   []post.Summary `json:"posts"`
	BuildID string         `json:"build_id"`
}

// HandleList handles the posts_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ListOutput{Posts: h.listing, BuildID: h.manifest.BuildID})
}

// HandleGet handles the posts_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		return errorResult(errors.NewInvalidRequest("slug is required")), nil
	}

	entry, ok := h.manifest.Find(slug)
	if !ok {
		return errorResult(errors.NewNotFound(slug)), nil
	}

	return successResult(entry)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if qErr, ok := err.(*errors.QuireError); ok {
		errorObj := map[string]any{
			"code":    qErr.Code,
			"message": qErr.Message,
			"status":  qErr.Status,
		}
		if qErr.Code != errors.ErrInternal && qErr.Details != nil {
			errorObj["details"] = qErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
