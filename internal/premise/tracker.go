// Package premise extracts typed claims from answers and tracks the
// contradiction ledger that gates spec readiness.
//
// Premises and contradictions are append-only; the only mutation ever
// applied is attaching a resolution, and that mutation is monotonic —
// a resolved contradiction stays resolved even if the underlying premises
// still textually conflict on re-evaluation.
package premise

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/probelabs/socratic/internal/analysis"
	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/session"
)

// ErrNotFound is returned when a resolution targets an unknown
// contradiction id. Resolving an unknown id is rejected, never silently
// ignored.
var ErrNotFound = errors.New("contradiction not found")

// --- Premise classification cues ---

var constraintMarkers = []string{
	"must", "must not", "cannot", "can't", "only", "require", "required",
	"limit", "no more than", "at most", "never", "always", "within",
}

var goalMarkers = []string{
	"want", "need", "should", "goal", "improve", "increase", "reduce",
	"enable", "allow", "deliver",
}

var assumptionMarkers = []string{
	"assume", "assuming", "probably", "likely", "presumably", "expect",
	"maybe", "perhaps",
}

// --- Tracker ---

// Tracker is the stateless extraction and detection logic. The ledger
// itself lives in storage; the tracker operates on slices the orchestrator
// loads and persists.
type Tracker struct {
	lex *lexicon.Lexicon
}

// New creates a tracker over the given vocabulary.
func New(lex *lexicon.Lexicon) *Tracker {
	return &Tracker{lex: lex}
}

// Extract derives one typed premise per substantive sentence of an answer.
// Confidence tracks specificity: concrete numbers and thresholds score
// high, hedged statements low.
func (t *Tracker) Extract(a session.Answer) []session.Premise {
	sentences := analysis.SplitSentences(a.Text)
	premises := make([]session.Premise, 0, len(sentences))
	for _, sentence := range sentences {
		if analysis.WordCount(sentence) < 3 {
			continue
		}
		premises = append(premises, session.Premise{
			ID:             uuid.NewString(),
			Statement:      sentence,
			Type:           t.classify(sentence),
			Confidence:     t.confidence(sentence),
			SourceAnswerID: a.QuestionID,
			CreatedAt:      session.Now(),
		})
	}
	return premises
}

// classify picks the premise type. Constraints win over goals when both
// cues appear: "must" language is the stronger commitment.
func (t *Tracker) classify(sentence string) session.PremiseType {
	if matchesAny(sentence, assumptionMarkers) {
		return session.PremiseAssumption
	}
	if matchesAny(sentence, constraintMarkers) {
		return session.PremiseConstraint
	}
	if matchesAny(sentence, goalMarkers) {
		return session.PremiseGoal
	}
	return session.PremiseFact
}

func (t *Tracker) confidence(sentence string) float64 {
	if len(lexicon.MatchTerms(sentence, t.lex.Hedges)) > 0 {
		return 0.4
	}
	specific := strings.ContainsAny(sentence, "0123456789") ||
		len(lexicon.MatchTerms(sentence, t.lex.Units)) > 0 ||
		len(lexicon.MatchTerms(sentence, t.lex.Thresholds)) > 0
	if specific {
		return 0.9
	}
	return 0.6
}

func matchesAny(text string, terms []string) bool {
	for _, term := range terms {
		if lexicon.ContainsTerm(text, term) {
			return true
		}
	}
	return false
}

// --- Contradiction detection ---

// DetectConflicts scans premises pairwise against the opposing-concept
// catalogue, and folds in tension signals from the semantic layer when
// available. Ids are deterministic so re-detection is idempotent.
//
// A conflict between premises from two different answers is the same
// conflict the answer validator finds over the full answer texts, so it is
// keyed by (pair, source answer ids) — the validator's id scheme — with
// potential severity. The ledger merge then collapses the two detections
// into one record, premise ids attached. Premise-id keying and catalogue
// severity apply only to conflicts within a single answer, which the
// validator cannot see.
func (t *Tracker) DetectConflicts(premises []session.Premise, signals []augment.Signal) []session.Contradiction {
	seen := make(map[string]bool)
	var conflicts []session.Contradiction

	for i := range premises {
		for j := range premises {
			if i == j {
				continue
			}
			for _, pair := range t.lex.Opposing {
				if !lexicon.ContainsTerm(premises[i].Statement, pair.A) ||
					!lexicon.ContainsTerm(premises[j].Statement, pair.B) {
					continue
				}
				ids := []string{premises[i].ID, premises[j].ID}
				sort.Strings(ids)
				c := session.Contradiction{
					PremiseIDs: ids,
					Description: fmt.Sprintf("premises state opposing concepts %q vs %q: %q / %q",
						pair.A, pair.B, premises[i].Statement, premises[j].Statement),
					CreatedAt: session.Now(),
				}
				if premises[i].SourceAnswerID != premises[j].SourceAnswerID {
					answerIDs := []string{premises[i].SourceAnswerID, premises[j].SourceAnswerID}
					sort.Strings(answerIDs)
					c.ID = fmt.Sprintf("conflict-%s-%s-%s", pair.A, pair.B, strings.Join(answerIDs, "-"))
					c.AnswerIDs = answerIDs
					c.Severity = session.SeverityPotential
				} else {
					c.ID = fmt.Sprintf("conflict-%s-%s-%s", pair.A, pair.B, strings.Join(ids, "-"))
					c.Severity = pairSeverity(pair)
				}
				if seen[c.ID] {
					continue
				}
				seen[c.ID] = true
				conflicts = append(conflicts, c)
			}
		}
	}

	for _, sig := range signals {
		if sig.Kind != augment.KindTension {
			continue
		}
		id := "tension-" + shortHash(sig.Text)
		if seen[id] {
			continue
		}
		seen[id] = true
		conflicts = append(conflicts, session.Contradiction{
			ID:          id,
			Description: sig.Text,
			Severity:    sig.Severity,
			CreatedAt:   session.Now(),
		})
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].ID < conflicts[j].ID })
	return conflicts
}

func pairSeverity(pair lexicon.Pair) session.Severity {
	switch session.Severity(pair.Severity) {
	case session.SeverityCritical, session.SeverityHigh, session.SeverityMedium, session.SeverityLow:
		return session.Severity(pair.Severity)
	}
	return session.SeverityMedium
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:6])
}

// Merge appends newly detected contradictions whose id is not already in
// the ledger. Existing entries are never replaced — in particular, a
// resolved entry keeps its resolution even when re-detection would flag
// the same premises again.
func Merge(existing, detected []session.Contradiction) []session.Contradiction {
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}
	out := existing
	for _, c := range detected {
		if known[c.ID] {
			continue
		}
		known[c.ID] = true
		out = append(out, c)
	}
	return out
}

// --- Resolution protocol ---

// Resolve attaches a resolution record to the contradiction with the given
// id. Resolution is monotonic: resolving an already resolved contradiction
// is a no-op (safe to retry), and nothing ever un-resolves one. An unknown
// id returns ErrNotFound.
func Resolve(contradictions []session.Contradiction, id, rationale string) error {
	for i := range contradictions {
		if contradictions[i].ID != id {
			continue
		}
		if contradictions[i].Resolved {
			return nil
		}
		contradictions[i].Resolved = true
		contradictions[i].Resolution = rationale
		contradictions[i].ResolvedAt = session.Now()
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

// --- Gating ---

// UnresolvedCritical counts the contradictions that block readiness
// unconditionally, independent of any score.
func UnresolvedCritical(contradictions []session.Contradiction) int {
	n := 0
	for _, c := range contradictions {
		if !c.Resolved && c.Severity == session.SeverityCritical {
			n++
		}
	}
	return n
}

// Blockers lists every unresolved contradiction as a human-readable
// blocker, id included so the caller can target a resolution. Resolved
// contradictions are permanently excluded, whatever their severity.
func Blockers(contradictions []session.Contradiction) []string {
	var blockers []string
	for _, c := range contradictions {
		if c.Resolved {
			continue
		}
		blockers = append(blockers, fmt.Sprintf("[%s] %s: %s", c.Severity, c.ID, c.Description))
	}
	return blockers
}
