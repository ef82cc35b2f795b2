package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/probelabs/socratic/internal/engine"
)

// ResolveTool handles the resolve_contradiction MCP tool.
type ResolveTool struct {
	engine *engine.Engine
}

// NewResolveTool creates a ResolveTool.
func NewResolveTool(eng *engine.Engine) *ResolveTool {
	return &ResolveTool{engine: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *ResolveTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_contradiction",
		mcp.WithDescription(
			"Resolve a detected contradiction by recording which side wins and "+
				"why. Contradiction ids appear in the Blockers section of "+
				"interrogation results. Every contradiction, whatever its "+
				"severity, blocks spec readiness until resolved. Resolving an "+
				"already-resolved contradiction is a no-op.",
		),
		mcp.WithString("session_id",
			mcp.Description("The interrogation session id."),
			mcp.Required(),
		),
		mcp.WithString("contradiction_id",
			mcp.Description("Id of the contradiction to resolve."),
			mcp.Required(),
		),
		mcp.WithString("resolution",
			mcp.Description("Free-text rationale: which side wins and why."),
			mcp.Required(),
		),
	)
}

// Handle processes the resolve_contradiction tool call.
func (t *ResolveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(req.GetString("session_id", ""))
	contradictionID := strings.TrimSpace(req.GetString("contradiction_id", ""))
	resolution := strings.TrimSpace(req.GetString("resolution", ""))

	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	if contradictionID == "" {
		return mcp.NewToolResultError("'contradiction_id' is required"), nil
	}
	if resolution == "" {
		return mcp.NewToolResultError("'resolution' is required — state which side wins and why"), nil
	}

	result, err := t.engine.ResolveContradiction(ctx, sessionID, contradictionID, resolution)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if errors.Is(err, engine.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("resolving contradiction: %w", err)
	}

	return mcp.NewToolResultText(renderResult("Contradiction Resolved", result)), nil
}
