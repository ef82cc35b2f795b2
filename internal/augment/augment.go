// Package augment is the optional semantic layer over the structural
// analyzer. It models the two-layer fallback as a capability interface with
// a single "maybe produce signals" operation and two interchangeable
// implementations — a null augmenter and a remote one — selected by
// configuration, never by runtime type inspection.
//
// The contract is deliberately lossy: an Augmenter returns either a
// well-formed signal set or nil. Absence of configuration and runtime
// failure are indistinguishable to callers, so the engine degrades to
// structural-only operation without ever surfacing an error.
package augment

import (
	"context"

	"github.com/probelabs/socratic/internal/analysis"
	"github.com/probelabs/socratic/internal/session"
)

// Kind is the category of a semantic signal.
type Kind string

const (
	KindClaim      Kind = "claim"
	KindGap        Kind = "gap"
	KindTension    Kind = "tension"
	KindAssumption Kind = "assumption"
)

var validKinds = map[Kind]bool{
	KindClaim:      true,
	KindGap:        true,
	KindTension:    true,
	KindAssumption: true,
}

var validSeverities = map[session.Severity]bool{
	session.SeverityCritical: true,
	session.SeverityHigh:     true,
	session.SeverityMedium:   true,
	session.SeverityLow:      true,
}

// Signal is one semantically detected claim, gap, tension, or assumption.
type Signal struct {
	Kind     Kind             `json:"kind"`
	Severity session.Severity `json:"severity"`
	Text     string           `json:"text"`
	Quote    string           `json:"quote,omitempty"` // supporting quote from the epic
}

// Result is a well-formed signal set plus a one-paragraph summary.
type Result struct {
	Signals []Signal `json:"signals"`
	Summary string   `json:"summary,omitempty"`
}

// Request carries everything the remote service needs: the raw text, the
// structural report, and the prior Q&A history.
type Request struct {
	EpicText  string             `json:"epic_text"`
	Report    *analysis.Report   `json:"report,omitempty"`
	Questions []session.Question `json:"questions,omitempty"`
	Answers   []session.Answer   `json:"answers,omitempty"`
}

// Augmenter is the capability interface. Detect returns nil for "no
// signals available" — whether because no service is configured, the
// service failed, timed out, or returned malformed output. Partial output
// is discarded, never merged.
type Augmenter interface {
	Detect(ctx context.Context, req Request) *Result
}

// Null is the always-absent implementation used when no semantic service
// is configured.
type Null struct{}

// Detect always reports absence.
func (Null) Detect(context.Context, Request) *Result { return nil }

// validate rejects results with missing or unknown required fields.
// Strictness here is what lets the rest of the engine trust non-nil
// results completely.
func validate(r *Result) *Result {
	if r == nil || len(r.Signals) == 0 {
		return nil
	}
	for _, s := range r.Signals {
		if !validKinds[s.Kind] || !validSeverities[s.Severity] || s.Text == "" {
			return nil
		}
	}
	return r
}
