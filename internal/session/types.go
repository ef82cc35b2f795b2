// Package session holds the interrogation session: the stateful multi-round
// questioning process for one epic, plus the round controller that drives it.
//
// Following the same design split as the rest of the engine:
// - types.go: domain types and enum validation
// - state.go: the session status state machine
// - controller.go: round progression, scoring formulas, warnings
package session

import (
	"fmt"
	"strings"
)

// --- Question type enum ---

// QuestionType categorizes what a question probes for.
type QuestionType string

const (
	TypeScope         QuestionType = "scope"
	TypeSuccess       QuestionType = "success"
	TypeConstraint    QuestionType = "constraint"
	TypeRisk          QuestionType = "risk"
	TypeTechnical     QuestionType = "technical"
	TypeStakeholder   QuestionType = "stakeholder"
	TypeTimeline      QuestionType = "timeline"
	TypeClarification QuestionType = "clarification"
)

var validQuestionTypes = map[QuestionType]bool{
	TypeScope:         true,
	TypeSuccess:       true,
	TypeConstraint:    true,
	TypeRisk:          true,
	TypeTechnical:     true,
	TypeStakeholder:   true,
	TypeTimeline:      true,
	TypeClarification: true,
}

// ValidateQuestionType returns an error if the type is not recognized.
func ValidateQuestionType(t QuestionType) error {
	if !validQuestionTypes[t] {
		return fmt.Errorf("invalid question type %q", t)
	}
	return nil
}

// --- Priority enum ---

// Priority orders questions within a round.
type Priority string

const (
	PriorityCritical   Priority = "critical"
	PriorityImportant  Priority = "important"
	PriorityNiceToHave Priority = "nice-to-have"
)

// Rank returns the sort rank of a priority, critical first. Unknown
// priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityImportant:
		return 1
	case PriorityNiceToHave:
		return 2
	}
	return 3
}

// --- Provenance enum ---

// Provenance records which generation layer produced a question.
type Provenance string

const (
	ProvenanceTemplate Provenance = "template"
	ProvenanceAdaptive Provenance = "adaptive"
	ProvenanceFollowUp Provenance = "follow-up"
)

// --- Premise type enum ---

// PremiseType classifies an extracted claim.
type PremiseType string

const (
	PremiseGoal       PremiseType = "goal"
	PremiseConstraint PremiseType = "constraint"
	PremiseFact       PremiseType = "fact"
	PremiseAssumption PremiseType = "assumption"
)

// --- Severity enum ---

// Severity grades a contradiction. Potential marks pairwise answer-level
// detections that have not been confirmed against premises.
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityHigh      Severity = "high"
	SeverityMedium    Severity = "medium"
	SeverityLow       Severity = "low"
	SeverityPotential Severity = "potential"
)

// --- Session status enum ---

// Status tracks the session lifecycle. Complete and abandoned are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusWaiting    Status = "waiting"
	StatusComplete   Status = "complete"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusAbandoned
}

// --- Core data structures ---

// Question is one question issued to the caller. IDs are unique within a
// session; Round is recorded at creation time rather than reconstructed
// positionally later.
type Question struct {
	ID               string       `json:"id"`
	Type             QuestionType `json:"type"`
	Priority         Priority     `json:"priority"`
	Text             string       `json:"text"`
	Rationale        string       `json:"rationale,omitempty"`
	SuggestedAnswers []string     `json:"suggested_answers,omitempty"`
	Provenance       Provenance   `json:"provenance"`
	Round            int          `json:"round"`
}

// Answer is the caller's response to one question.
type Answer struct {
	QuestionID  string `json:"question_id"`
	Text        string `json:"text"`
	Timestamp   string `json:"timestamp"`
	UsedDefault bool   `json:"used_default,omitempty"`
	Round       int    `json:"round"`
}

// Premise is an atomic typed claim extracted from an answer.
type Premise struct {
	ID             string      `json:"id"`
	Statement      string      `json:"statement"`
	Type           PremiseType `json:"type"`
	Confidence     float64     `json:"confidence"` // 0..1
	SourceAnswerID string      `json:"source_answer_id"`
	CreatedAt      string      `json:"created_at"`
}

// Contradiction is a detected conflict. Premise-level conflicts carry
// PremiseIDs; pairwise answer-level detections carry AnswerIDs. Resolution
// is monotonic: once resolved, never un-resolved.
type Contradiction struct {
	ID          string   `json:"id"`
	PremiseIDs  []string `json:"premise_ids,omitempty"`
	AnswerIDs   []string `json:"answer_ids,omitempty"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Resolved    bool     `json:"resolved"`
	Resolution  string   `json:"resolution,omitempty"`
	ResolvedAt  string   `json:"resolved_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// Session is the root aggregate for one interrogation.
//
// Invariants: Round is monotonically non-decreasing and never exceeds
// MaxRounds; scores stay in [0,100]; question IDs are unique; ReadyForSpec
// is recomputed on every engine call, never trusted from storage.
type Session struct {
	ID                string     `json:"id"`
	EpicID            string     `json:"epic_id"`
	Status            Status     `json:"status"`
	Round             int        `json:"round"`
	MaxRounds         int        `json:"max_rounds"`
	ClarityScore      int        `json:"clarity_score"`
	CompletenessScore int        `json:"completeness_score"`
	ReadyForSpec      bool       `json:"ready_for_spec"`
	Questions         []Question `json:"questions"`
	Answers           []Answer   `json:"answers"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
}

// FindQuestion returns the question with the given id, or nil.
func (s *Session) FindQuestion(id string) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// HasQuestionText reports whether a question with the same text (ignoring
// case and surrounding space) was already asked at any point in the session.
func (s *Session) HasQuestionText(text string) bool {
	needle := normalizeText(text)
	for _, q := range s.Questions {
		if normalizeText(q.Text) == needle {
			return true
		}
	}
	return false
}

// Answered reports whether the question has at least one answer.
func (s *Session) Answered(questionID string) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// AddQuestions appends questions, skipping any whose id already exists.
// This makes template re-generation within a round idempotent.
func (s *Session) AddQuestions(questions []Question) int {
	existing := make(map[string]bool, len(s.Questions))
	for _, q := range s.Questions {
		existing[q.ID] = true
	}
	added := 0
	for _, q := range questions {
		if existing[q.ID] {
			continue
		}
		existing[q.ID] = true
		s.Questions = append(s.Questions, q)
		added++
	}
	return added
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
