// Package server wires the interrogation components and creates the MCP
// server instance.
//
// This is the composition root: it creates the concrete store, augmenter,
// lexicon, and engine, and injects them into the tools and prompts. No
// business logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/config"
	"github.com/probelabs/socratic/internal/engine"
	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/prompts"
	"github.com/probelabs/socratic/internal/store"
	"github.com/probelabs/socratic/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and prompts
// registered. The returned cleanup function closes the store's database
// connection and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	lex, err := loadLexicon(cfg)
	if err != nil {
		return nil, noop, err
	}

	st, err := store.New(store.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Printf("WARNING: store close: %v", err)
		}
	}

	// Semantic augmentation is an independent subsystem: when the API key
	// is missing or client creation fails, the engine runs on structural
	// analysis alone. The null augmenter makes the two cases identical
	// downstream.
	aug := buildAugmenter(cfg)

	eng, err := engine.New(st, aug, lex, engine.Config{MaxRounds: cfg.MaxRounds})
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating engine: %w", err)
	}

	s := server.NewMCPServer(
		"socratic",
		Version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	interrogateTool := tools.NewInterrogateTool(eng)
	s.AddTool(interrogateTool.Definition(), interrogateTool.Handle)

	submitTool := tools.NewSubmitTool(eng)
	s.AddTool(submitTool.Definition(), submitTool.Handle)

	resolveTool := tools.NewResolveTool(eng)
	s.AddTool(resolveTool.Definition(), resolveTool.Handle)

	statusTool := tools.NewStatusTool(eng)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	return s, cleanup, nil
}

func loadLexicon(cfg config.Config) (*lexicon.Lexicon, error) {
	if cfg.LexiconPath == "" {
		return lexicon.Default(), nil
	}
	lex, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon %s: %w", cfg.LexiconPath, err)
	}
	return lex, nil
}

func buildAugmenter(cfg config.Config) augment.Augmenter {
	if cfg.GeminiAPIKey == "" {
		log.Printf("WARNING: semantic augmentation disabled: GEMINI_API_KEY not set")
		return augment.Null{}
	}
	g, err := augment.NewGemini(context.Background(), cfg.Model, cfg.AugmentTimeout)
	if err != nil {
		log.Printf("WARNING: semantic augmentation disabled: %v", err)
		return augment.Null{}
	}
	return g
}

// noop is the default cleanup when initialization fails early.
func noop() {}

func serverInstructions() string {
	return `Socratic is an interrogation engine: it turns vague requirement
documents (epics) into implementation-ready state through rounds of scored
clarifying questions.

Workflow:
1. interrogate_epic — ingest the epic text (plus any goals, constraints,
   acceptance criteria, and stakeholders you extracted) and receive the
   first round of prioritized questions.
2. submit_answers — submit the user's answers as one batch per round.
   Vague answers spawn follow-ups; contradictory answers become blockers.
3. resolve_contradiction — record which side of a blocker wins and why.
4. interrogation_status — check scores and readiness at any time.

The session ends when clarity reaches the escape threshold, or after the
round cap. ready_for_spec requires clarity and completeness both at
threshold with every contradiction resolved. Relay questions to the user
verbatim and never answer on their behalf.`
}
