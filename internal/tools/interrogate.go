package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/probelabs/socratic/internal/engine"
)

// InterrogateTool handles the interrogate_epic MCP tool. Called with
// epic_text it ingests a new epic and opens the first round; called with
// epic_id it resumes (idempotently re-issuing the current round's open
// questions).
type InterrogateTool struct {
	engine *engine.Engine
}

// NewInterrogateTool creates an InterrogateTool.
func NewInterrogateTool(eng *engine.Engine) *InterrogateTool {
	return &InterrogateTool{engine: eng}
}

// Definition returns the MCP tool definition for registration.
func (t *InterrogateTool) Definition() mcp.Tool {
	return mcp.NewTool("interrogate_epic",
		mcp.WithDescription(
			"Start or resume the interrogation of an epic (a raw requirement "+
				"document). Scores the text structurally, then returns scored "+
				"clarifying questions for the upcoming round. Provide 'epic_text' "+
				"to ingest a new epic, or 'epic_id' to resume an existing one. "+
				"The extracted goals/constraints/acceptance_criteria/stakeholders "+
				"should be supplied by the caller — the engine reacts to their "+
				"presence, it does not re-derive them. Set 'force_ready' to "+
				"request early termination; it is honored only once clarity has "+
				"reached the escape threshold.",
		),
		mcp.WithString("epic_id",
			mcp.Description("Id of an already ingested epic. Mutually exclusive with epic_text."),
		),
		mcp.WithString("epic_text",
			mcp.Description("Raw text of a new epic to ingest and interrogate."),
		),
		mcp.WithString("title",
			mcp.Description("Short title for a new epic."),
		),
		mcp.WithString("goals",
			mcp.Description("Pre-extracted goals, one per line (new epics only)."),
		),
		mcp.WithString("constraints",
			mcp.Description("Pre-extracted constraints, one per line (new epics only)."),
		),
		mcp.WithString("acceptance_criteria",
			mcp.Description("Pre-extracted acceptance criteria, one per line (new epics only)."),
		),
		mcp.WithString("stakeholders",
			mcp.Description("Pre-extracted stakeholders, one per line or comma-separated (new epics only)."),
		),
		mcp.WithBoolean("force_ready",
			mcp.Description("Request early termination of the interrogation."),
		),
	)
}

// Handle processes the interrogate_epic tool call.
func (t *InterrogateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	epicID := strings.TrimSpace(req.GetString("epic_id", ""))
	epicText := req.GetString("epic_text", "")
	forceReady := req.GetBool("force_ready", false)

	switch {
	case epicID == "" && strings.TrimSpace(epicText) == "":
		return mcp.NewToolResultError("provide 'epic_text' to ingest a new epic or 'epic_id' to resume one"), nil
	case epicID != "" && strings.TrimSpace(epicText) != "":
		return mcp.NewToolResultError("'epic_id' and 'epic_text' are mutually exclusive"), nil
	}

	if epicID == "" {
		ep, err := t.engine.IngestEpic(ctx, engine.EpicInput{
			Title:              strings.TrimSpace(req.GetString("title", "")),
			RawText:            epicText,
			Goals:              splitList(req.GetString("goals", "")),
			Constraints:        splitList(req.GetString("constraints", "")),
			AcceptanceCriteria: splitList(req.GetString("acceptance_criteria", "")),
			Stakeholders:       splitList(req.GetString("stakeholders", "")),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		epicID = ep.ID
	}

	result, err := t.engine.Interrogate(ctx, epicID, engine.InterrogateOptions{ForceReady: forceReady})
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("epic %q not found", epicID)), nil
		}
		return nil, fmt.Errorf("interrogating epic: %w", err)
	}

	return mcp.NewToolResultText(renderResult("Interrogation", result)), nil
}
