// Package answer implements the answer validator: per-answer vagueness,
// completeness, and coherence scoring, plus the pairwise cross-answer
// contradiction scan over the opposing-concept catalogue.
//
// Everything here is lexicon-driven and total — no answer, however bad,
// produces an error, only a low score. The clarity-impact function bounds
// how much a single bad answer can depress the session's clarity.
package answer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/session"
)

// --- Tuning constants ---

const (
	// MinAnswerLength is the shortest answer (in characters, trimmed)
	// considered complete.
	MinAnswerLength = 20

	// vagueThreshold marks an answer vague; vagueHighThreshold escalates
	// the issue to high severity.
	vagueThreshold     = 0.3
	vagueHighThreshold = 0.6

	// Match weights for the vagueness score.
	hedgeWeight    = 1.0
	genericWeight  = 0.75
	deferralWeight = 1.5
)

// --- Validation result ---

// Issue is one concrete problem found in an answer.
type Issue struct {
	Kind     string           `json:"kind"` // vague | incomplete | incoherent
	Severity session.Severity `json:"severity"`
	Message  string           `json:"message"`
}

// Validation is the full scoring of one answer.
type Validation struct {
	QuestionID     string  `json:"question_id"`
	VaguenessScore float64 `json:"vagueness_score"` // 0..1
	IsVague        bool    `json:"is_vague"`
	IsComplete     bool    `json:"is_complete"`
	IsCoherent     bool    `json:"is_coherent"`
	Issues         []Issue `json:"issues,omitempty"`
}

// --- Validator ---

// Validator scores answers against a lexicon. Stateless, safe for reuse.
type Validator struct {
	lex *lexicon.Lexicon
}

// New creates a validator over the given vocabulary.
func New(lex *lexicon.Lexicon) *Validator {
	return &Validator{lex: lex}
}

// Validate scores a single answer.
func (v *Validator) Validate(a session.Answer) Validation {
	result := Validation{
		QuestionID: a.QuestionID,
		IsComplete: true,
		IsCoherent: true,
	}

	result.VaguenessScore = v.VaguenessScore(a.Text)
	if result.VaguenessScore > vagueThreshold {
		result.IsVague = true
		severity := session.SeverityMedium
		if result.VaguenessScore > vagueHighThreshold {
			severity = session.SeverityHigh
		}
		result.Issues = append(result.Issues, Issue{
			Kind:     "vague",
			Severity: severity,
			Message:  fmt.Sprintf("answer is vague (score %.2f)", result.VaguenessScore),
		})
	}

	if v.incomplete(a.Text) {
		result.IsComplete = false
		result.Issues = append(result.Issues, Issue{
			Kind:     "incomplete",
			Severity: session.SeverityMedium,
			Message:  "answer is too short or explicitly uncertain",
		})
	}

	if v.incoherent(a.Text) {
		result.IsCoherent = false
		result.Issues = append(result.Issues, Issue{
			Kind:     "incoherent",
			Severity: session.SeverityHigh,
			Message:  "answer negates itself (opposing absolutes in one statement)",
		})
	}

	return result
}

// VaguenessScore computes the weighted hedge/generic/deferral match count
// normalized by word count, clamped to [0,1]. Monotonic in hedge density:
// adding hedge words never lowers the score.
func (v *Validator) VaguenessScore(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}

	weighted := 0.0
	for _, t := range v.lex.Hedges {
		weighted += hedgeWeight * float64(countTerm(text, t))
	}
	for _, t := range v.lex.Generic {
		weighted += genericWeight * float64(countTerm(text, t))
	}
	weighted += deferralWeight * float64(v.lex.CountDeferrals(text))

	score := weighted / float64(words)
	return math.Min(1, score)
}

// incomplete reports short answers and explicit uncertainty.
func (v *Validator) incomplete(text string) bool {
	if len(strings.TrimSpace(text)) < MinAnswerLength {
		return true
	}
	return len(lexicon.MatchTerms(text, v.lex.Uncertainty)) > 0
}

// incoherent reports answers where a negation marker and an explicit
// polarity-flip pair (e.g. "always … never") co-occur.
func (v *Validator) incoherent(text string) bool {
	if len(lexicon.MatchTerms(text, v.lex.Negations)) == 0 {
		return false
	}
	for _, pair := range v.lex.Polarity {
		if lexicon.ContainsTerm(text, pair.A) && lexicon.ContainsTerm(text, pair.B) {
			return true
		}
	}
	return false
}

// countTerm counts whole-word occurrences of term in text.
func countTerm(text, term string) int {
	lower := strings.ToLower(text)
	term = strings.ToLower(term)
	count, idx := 0, 0
	for {
		i := strings.Index(lower[idx:], term)
		if i < 0 {
			return count
		}
		start := idx + i
		end := start + len(term)
		if isBoundary(lower, start-1) && isBoundary(lower, end) {
			count++
		}
		idx = start + 1
	}
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9')
}

// --- Cross-answer contradiction detection ---

// DetectContradictions runs the pairwise scan over all answers against the
// opposing-concept catalogue. Any pair with one term in each of two distinct
// answers yields a potential-severity contradiction referencing both answer
// question ids.
//
// Detection is order-independent: submitting the answers in any order yields
// the same set, with deterministic ids and sorted answer references.
func (v *Validator) DetectContradictions(answers []session.Answer) []session.Contradiction {
	seen := make(map[string]bool)
	var conflicts []session.Contradiction

	for i := 0; i < len(answers); i++ {
		for j := 0; j < len(answers); j++ {
			if i == j || answers[i].QuestionID == answers[j].QuestionID {
				continue
			}
			for _, pair := range v.lex.Opposing {
				if !lexicon.ContainsTerm(answers[i].Text, pair.A) ||
					!lexicon.ContainsTerm(answers[j].Text, pair.B) {
					continue
				}
				ids := []string{answers[i].QuestionID, answers[j].QuestionID}
				sort.Strings(ids)
				id := conflictID(pair, ids)
				if seen[id] {
					continue
				}
				seen[id] = true
				conflicts = append(conflicts, session.Contradiction{
					ID:        id,
					AnswerIDs: ids,
					Description: fmt.Sprintf("answers %q and %q use opposing concepts %q vs %q",
						ids[0], ids[1], pair.A, pair.B),
					Severity:  session.SeverityPotential,
					CreatedAt: session.Now(),
				})
			}
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].ID < conflicts[j].ID })
	return conflicts
}

// conflictID derives a deterministic id so repeated detection of the same
// conflict is idempotent.
func conflictID(pair lexicon.Pair, ids []string) string {
	return fmt.Sprintf("conflict-%s-%s-%s", pair.A, pair.B, strings.Join(ids, "-"))
}

// --- Clarity impact ---

// clarityImpactFloor bounds how much a single answer can depress clarity.
const clarityImpactFloor = -30

// ClarityImpact converts a validation into a clarity penalty: up to −15 for
// vagueness, −10 for incompleteness, −5 for incoherence, −5 per additional
// high-severity issue, floored at −30.
func ClarityImpact(v Validation) int {
	impact := 0
	if v.IsVague {
		impact -= int(math.Round(15 * v.VaguenessScore))
	}
	if !v.IsComplete {
		impact -= 10
	}
	if !v.IsCoherent {
		impact -= 5
	}

	high := 0
	for _, issue := range v.Issues {
		if issue.Severity == session.SeverityHigh {
			high++
		}
	}
	if high > 1 {
		impact -= 5 * (high - 1)
	}

	if impact < clarityImpactFloor {
		return clarityImpactFloor
	}
	return impact
}
