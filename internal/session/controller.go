package session

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// --- Round controller ---
//
// Two distinct thresholds exist on purpose and must stay independently
// named: the 70-point readiness gate decides whether a spec can be
// generated, while the 80-point escape hatch decides whether interrogation
// may stop early. Unifying them is a product decision, not a refactor.
const (
	// EscapeThreshold is the clarity score at which interrogation may stop
	// early (the escape hatch).
	EscapeThreshold = 80

	// ReadinessThreshold is the clarity AND completeness score both must
	// reach before the session is ready for spec generation.
	ReadinessThreshold = 70

	// DefaultMaxRounds hard-caps interrogation length. The question
	// generator is not guaranteed to converge, so the cap bounds the
	// worst case.
	DefaultMaxRounds = 10

	// clarityWarningFloor separates error-severity termination warnings
	// from warning-severity ones.
	clarityWarningFloor = 50
)

// Decision is the controller's verdict on whether interrogation continues.
type Decision struct {
	Continue     bool   `json:"continue"`
	Reason       string `json:"reason"`
	EscapeDenied bool   `json:"escape_denied"`
}

// ShouldContinue decides whether another round should run.
//
// A forceReady request below the escape threshold is denied, not silently
// honored: the session continues and the denial is reported through the
// Decision so the caller can surface it as a non-fatal notice.
func ShouldContinue(s *Session, forceReady bool) Decision {
	if s.Round >= s.MaxRounds {
		return Decision{
			Continue: false,
			Reason:   fmt.Sprintf("max rounds reached (%d)", s.MaxRounds),
		}
	}
	if s.ClarityScore >= EscapeThreshold {
		return Decision{
			Continue: false,
			Reason:   fmt.Sprintf("clarity %d reached escape threshold %d", s.ClarityScore, EscapeThreshold),
		}
	}
	if forceReady {
		return Decision{
			Continue:     true,
			EscapeDenied: true,
			Reason: fmt.Sprintf("escape denied: clarity %d below threshold %d",
				s.ClarityScore, EscapeThreshold),
		}
	}
	return Decision{Continue: true, Reason: "clarity below escape threshold"}
}

// RoundEval summarizes one round. The previous clarity score is threaded
// explicitly (passed in, new value returned in Clarity) so a controller
// shared across sessions carries no hidden per-instance state.
type RoundEval struct {
	Round             int  `json:"round"`
	QuestionsAsked    int  `json:"questions_asked"`
	QuestionsAnswered int  `json:"questions_answered"`
	Clarity           int  `json:"clarity"`
	ClarityDelta      int  `json:"clarity_delta"`
	CanEscape         bool `json:"can_escape"`
}

// EvaluateRound computes per-round counts and the clarity delta against
// prevClarity. Callers persist eval.Clarity and pass it back next round.
//
// Before any batch is accepted the round counter is still 0 while the
// issued questions belong to round 1, so the counts cover round 1 then.
func EvaluateRound(s *Session, prevClarity int) RoundEval {
	round := s.Round
	if round == 0 {
		round = 1
	}
	asked, answered := 0, 0
	for _, q := range s.Questions {
		if q.Round != round {
			continue
		}
		asked++
		if s.Answered(q.ID) {
			answered++
		}
	}

	clarity := ClarityScore(s)
	return RoundEval{
		Round:             round,
		QuestionsAsked:    asked,
		QuestionsAnswered: answered,
		Clarity:           clarity,
		ClarityDelta:      clarity - prevClarity,
		CanEscape:         clarity >= EscapeThreshold,
	}
}

// --- Scoring formulas ---
//
// Both formulas are total: zero questions yields the defined baseline, never
// a division fault.

// ClarityScore computes the session clarity from answered-question ratios:
// 30 + 40·(answered critical / total critical) + 30·(answered important /
// total important), each ratio defaulting to 1 when no such questions
// exist, rounded and capped at 100.
func ClarityScore(s *Session) int {
	critTotal, critAnswered := 0, 0
	impTotal, impAnswered := 0, 0
	for _, q := range s.Questions {
		switch q.Priority {
		case PriorityCritical:
			critTotal++
			if s.Answered(q.ID) {
				critAnswered++
			}
		case PriorityImportant:
			impTotal++
			if s.Answered(q.ID) {
				impAnswered++
			}
		}
	}

	score := 30 + 40*answeredRatio(critAnswered, critTotal) + 30*answeredRatio(impAnswered, impTotal)
	return capScore(int(math.Round(score)))
}

// coverageAreas are the question types whose answers count toward
// completeness.
var coverageAreas = []QuestionType{TypeScope, TypeSuccess, TypeConstraint}

// CompletenessScore computes 40 + 60·(covered areas / 3), where an area is
// covered once it has at least one answered question, capped at 100.
func CompletenessScore(s *Session) int {
	covered := 0
	for _, area := range coverageAreas {
		for _, q := range s.Questions {
			if q.Type == area && s.Answered(q.ID) {
				covered++
				break
			}
		}
	}
	score := 40 + 60*float64(covered)/float64(len(coverageAreas))
	return capScore(int(math.Round(score)))
}

// ComputeReadiness recomputes readyForSpec from scratch: both scores at the
// readiness threshold and zero unresolved critical contradictions. An
// unresolved critical contradiction blocks unconditionally, independent of
// scores.
func ComputeReadiness(clarity, completeness, unresolvedCritical int) bool {
	if unresolvedCritical > 0 {
		return false
	}
	return clarity >= ReadinessThreshold && completeness >= ReadinessThreshold
}

func answeredRatio(answered, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(answered) / float64(total)
}

func capScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// --- Warnings ---

// WarningSeverity grades a controller warning.
type WarningSeverity string

const (
	WarnError   WarningSeverity = "error"
	WarnWarning WarningSeverity = "warning"
	WarnInfo    WarningSeverity = "info"
)

// Warning is a structured notice about the interrogation state.
type Warning struct {
	Code     string          `json:"code"`
	Severity WarningSeverity `json:"severity"`
	Message  string          `json:"message"`
	Details  []string        `json:"details,omitempty"`
}

// WarnMaxRoundsReached is the code emitted at hard termination.
const WarnMaxRoundsReached = "max-rounds-reached"

// WarnBelowThreshold is the code for non-terminal low-clarity notices.
const WarnBelowThreshold = "below-threshold"

// GenerateWarning builds the warning for the current state, or nil when
// there is nothing to say.
//
// At hard termination it enumerates unanswered critical/important questions
// by type plus the unresolved blockers, with error severity below the
// clarity floor. A below-threshold but non-terminal state yields an info
// warning only when concrete gaps exist.
func GenerateWarning(s *Session, blockers []string) *Warning {
	gaps := unansweredGaps(s)
	details := append(gaps, blockers...)

	if s.Round >= s.MaxRounds {
		severity := WarnWarning
		if s.ClarityScore < clarityWarningFloor {
			severity = WarnError
		}
		return &Warning{
			Code:     WarnMaxRoundsReached,
			Severity: severity,
			Message: fmt.Sprintf("interrogation terminated after %d rounds with clarity %d",
				s.Round, s.ClarityScore),
			Details: details,
		}
	}

	if s.ClarityScore < EscapeThreshold && len(details) > 0 {
		return &Warning{
			Code:     WarnBelowThreshold,
			Severity: WarnInfo,
			Message: fmt.Sprintf("clarity %d below escape threshold %d",
				s.ClarityScore, EscapeThreshold),
			Details: details,
		}
	}

	return nil
}

// unansweredGaps enumerates unanswered critical and important questions,
// grouped by question type.
func unansweredGaps(s *Session) []string {
	byType := make(map[QuestionType][]string)
	for _, q := range s.Questions {
		if q.Priority == PriorityNiceToHave || s.Answered(q.ID) {
			continue
		}
		byType[q.Type] = append(byType[q.Type], string(q.Priority))
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	gaps := make([]string, 0, len(types))
	for _, t := range types {
		priorities := byType[QuestionType(t)]
		gaps = append(gaps, fmt.Sprintf("%d unanswered %s question(s): %s",
			len(priorities), t, strings.Join(priorities, ", ")))
	}
	return gaps
}
