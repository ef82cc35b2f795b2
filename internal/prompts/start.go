// Package prompts implements the MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI client how to drive the interrogation loop. Unlike tools
// (which the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the interrogate MCP prompt. It guides the AI client
// through ingesting an epic and running the question rounds to readiness.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("interrogate",
		mcp.WithPromptDescription(
			"Interrogate an epic: turn a vague requirement document into an "+
				"implementation-ready state through rounds of scored clarifying "+
				"questions. Paste the epic text and answer the questions until "+
				"the session reports ready_for_spec.",
		),
		mcp.WithArgument("epic",
			mcp.ArgumentDescription("The epic text (or a short description of where to find it)"),
		),
	)
}

// Handle processes the interrogate prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	epicHint := "the epic I provide next"
	if args := req.Params.Arguments; args != nil {
		if e, ok := args["epic"]; ok && e != "" {
			epicHint = fmt.Sprintf("this epic:\n\n%s", e)
		}
	}

	return &mcp.GetPromptResult{
		Description: "Interrogate an epic until it is ready for spec generation",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to interrogate %s\n\n"+
						"Please:\n"+
						"1. Extract the goals, constraints, acceptance criteria, and stakeholders you can find in the text\n"+
						"2. Run `interrogate_epic` with the raw text plus whatever you extracted — leave missing sections empty, the engine turns each gap into questions\n"+
						"3. Relay each question to me; collect my answers and submit them with `submit_answers` (one batch per round)\n"+
						"4. When blockers appear, discuss them with me and record decisions with `resolve_contradiction`\n"+
						"5. Keep going until the result reports ready_for_spec, then summarize everything we pinned down\n\n"+
						"Do not invent answers on my behalf. If one of my answers is marked vague, press me for specifics.",
					epicHint,
				)),
			},
		},
	}, nil
}
