package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the interrogation-status MCP prompt.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("interrogation-status",
		mcp.WithPromptDescription(
			"Check where an interrogation session stands: round, clarity and "+
				"completeness scores, open questions, blockers, and whether the "+
				"epic is ready for spec generation.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("The session to report on"),
		),
	)
}

// Handle processes the interrogation-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sessionID := ""
	if args := req.Params.Arguments; args != nil {
		sessionID = args["session_id"]
	}

	text := "Please run `interrogation_status` for my interrogation session"
	if sessionID != "" {
		text += " '" + sessionID + "'"
	}
	text += ".\n\n" +
		"Then:\n" +
		"1. Show the round, clarity, and completeness in a compact summary\n" +
		"2. List any unresolved blockers and what deciding each one means\n" +
		"3. List the open questions in priority order\n" +
		"4. Tell me the single most useful thing to answer next"

	return &mcp.GetPromptResult{
		Description: "Interrogation session status",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
