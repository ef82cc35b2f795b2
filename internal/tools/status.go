package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/probelabs/socratic/internal/engine"
)

// StatusTool handles the interrogation_status MCP tool. It reads and
// recomputes; with abandon=true it instead terminates the session.
type StatusTool struct {
	engine *engine.Engine
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(eng *engine.Engine) *StatusTool {
	return &StatusTool{engine: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("interrogation_status",
		mcp.WithDescription(
			"Report the current state of an interrogation session: round, "+
				"scores, open questions, blockers, and spec readiness. Scores "+
				"and readiness are recomputed on every call, never served "+
				"stale. Does not advance the session. Set 'abandon' to "+
				"terminate the session without reaching readiness.",
		),
		mcp.WithString("session_id",
			mcp.Description("The interrogation session id."),
			mcp.Required(),
		),
		mcp.WithBoolean("abandon",
			mcp.Description("Terminate the session instead of reporting on it."),
		),
	)
}

// Handle processes the interrogation_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(req.GetString("session_id", ""))
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	if req.GetBool("abandon", false) {
		if err := t.engine.AbandonSession(ctx, sessionID); err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := t.engine.Status(ctx, sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
		}
		return nil, fmt.Errorf("reading session status: %w", err)
	}

	title := "Interrogation Status"
	if result.Status == "abandoned" {
		title = "Interrogation Abandoned"
	}
	return mcp.NewToolResultText(renderResult(title, result)), nil
}
