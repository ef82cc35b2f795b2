package augment

import (
	"context"
	"encoding/json"
	"log"
	"time"

	genai "google.golang.org/genai"
)

// DefaultTimeout bounds the remote call. The engine is synchronous, so a
// slow augmenter must not hold an interrogation round hostage.
const DefaultTimeout = 20 * time.Second

const defaultModel = "gemini-2.0-flash"

// directive is the fixed instruction sent with every request. The model is
// asked for signals of exactly four kinds so the response parses into a
// fixed shape regardless of the epic's content.
const directive = `You analyze software requirement documents ("epics").
Given the epic text, a structural quality report, and the question/answer
history so far, surface signals the structural pass cannot see.

Return ONLY a JSON object of this exact shape:
{
  "signals": [
    {"kind": "claim|gap|tension|assumption",
     "severity": "critical|high|medium|low",
     "text": "one-sentence description",
     "quote": "optional supporting quote from the epic"}
  ],
  "summary": "one paragraph"
}

Rules:
- "claim": a concrete assertion the epic commits to.
- "gap": something a complete spec needs that the epic never addresses.
- "tension": two statements that pull in opposite directions.
- "assumption": something treated as true without being stated.
- Severity reflects how badly the signal would hurt an implementation.
- No prose outside the JSON object.`

// Gemini is the remote augmenter, a thin wrapper over the official genai
// client. Construction requires GEMINI_API_KEY in the environment (read by
// the client itself).
type Gemini struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates the remote augmenter. An empty model selects the
// default; a zero timeout selects DefaultTimeout.
func NewGemini(ctx context.Context, model string, timeout time.Duration) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gemini{cli: cli, model: model, timeout: timeout}, nil
}

// Detect asks the model for signals. Every failure mode — transport error,
// timeout, empty candidates, malformed JSON, missing required fields —
// collapses to nil so callers fall back to structural-only operation.
func (g *Gemini) Detect(ctx context.Context, req Request) *Result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil
	}
	full := directive + "\n\n[INPUT JSON]\n" + string(payload)

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
			MaxOutputTokens:  2048,
		},
	)
	if err != nil {
		log.Printf("WARNING: semantic augmenter unavailable: %v", err)
		return nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil
	}

	var result Result
	if err := json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &result); err != nil {
		log.Printf("WARNING: semantic augmenter returned malformed output: %v", err)
		return nil
	}
	return validate(&result)
}
