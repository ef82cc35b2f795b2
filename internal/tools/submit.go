package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/probelabs/socratic/internal/engine"
)

// SubmitTool handles the submit_answers MCP tool: one answer batch per
// call, advancing the session exactly one round.
type SubmitTool struct {
	engine *engine.Engine
}

// NewSubmitTool creates a SubmitTool.
func NewSubmitTool(eng *engine.Engine) *SubmitTool {
	return &SubmitTool{engine: eng}
}

// answerArg is the wire shape of one answer in the batch parameter.
type answerArg struct {
	QuestionID  string `json:"question_id"`
	Answer      string `json:"answer"`
	UsedDefault bool   `json:"used_default,omitempty"`
}

// Definition returns the MCP tool definition for registration.
func (t *SubmitTool) Definition() mcp.Tool {
	return mcp.NewTool("submit_answers",
		mcp.WithDescription(
			"Submit a batch of answers for the current interrogation round. "+
				"Each answer references a question id from a previous "+
				"interrogate_epic or submit_answers result. A batch that "+
				"references an unknown question is rejected whole — no partial "+
				"acceptance. Vague or evasive answers trigger follow-up "+
				"questions instead of raising the clarity score; contradictory "+
				"answers are recorded as blockers. Re-answering a question "+
				"replaces the earlier answer.",
		),
		mcp.WithString("session_id",
			mcp.Description("The interrogation session id."),
			mcp.Required(),
		),
		mcp.WithString("answers",
			mcp.Description(
				"JSON array of answers: "+
					`[{"question_id": "...", "answer": "...", "used_default": false}, ...]. `+
					"used_default marks that the suggested answer was accepted as-is.",
			),
			mcp.Required(),
		),
	)
}

// Handle processes the submit_answers tool call.
func (t *SubmitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := strings.TrimSpace(req.GetString("session_id", ""))
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	raw := req.GetString("answers", "")
	var args []answerArg
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'answers' must be a JSON array of {question_id, answer} objects: %v", err)), nil
	}
	if len(args) == 0 {
		return mcp.NewToolResultError("'answers' is empty — submit at least one answer"), nil
	}

	inputs := make([]engine.AnswerInput, 0, len(args))
	for _, a := range args {
		if strings.TrimSpace(a.QuestionID) == "" {
			return mcp.NewToolResultError("every answer needs a non-empty 'question_id'"), nil
		}
		inputs = append(inputs, engine.AnswerInput{
			QuestionID:  strings.TrimSpace(a.QuestionID),
			Text:        a.Answer,
			UsedDefault: a.UsedDefault,
		})
	}

	result, err := t.engine.SubmitAnswers(ctx, sessionID, inputs)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
		}
		if errors.Is(err, engine.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("submitting answers: %w", err)
	}

	return mcp.NewToolResultText(renderResult("Round Scored", result)), nil
}
