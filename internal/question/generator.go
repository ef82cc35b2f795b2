// Package question generates each round's questions from three composed
// layers: deterministic templates driven by extraction gaps, an adaptive
// layer available only when the semantic augmenter produced signals, and
// follow-ups synthesized for vague answers.
//
// Template ids derive from (template key, round), so re-running generation
// within the same round inserts nothing new. The adaptive layer never
// re-asks a question whose text appeared anywhere in the session history.
package question

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/probelabs/socratic/internal/analysis"
	"github.com/probelabs/socratic/internal/answer"
	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/epic"
	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/session"
)

// Generator composes the three question layers.
type Generator struct {
	lex       *lexicon.Lexicon
	validator *answer.Validator
}

// New creates a generator over the given vocabulary.
func New(lex *lexicon.Lexicon) *Generator {
	return &Generator{lex: lex, validator: answer.New(lex)}
}

// Input is everything one round of generation needs.
type Input struct {
	Session    *session.Session
	Gaps       epic.Gaps
	Report     *analysis.Report
	Signals    *augment.Result  // nil when the semantic layer is absent
	NewAnswers []session.Answer // answers accepted this round, for follow-ups
	Round      int              // the round the generated questions belong to
}

// Generate runs all three layers and returns the round's questions sorted
// by priority (critical, important, nice-to-have), stable otherwise.
func (g *Generator) Generate(in Input) []session.Question {
	var questions []session.Question
	questions = append(questions, g.Templates(in.Gaps, in.Round)...)
	questions = append(questions, g.Adaptive(in)...)
	questions = append(questions, g.FollowUps(in.Session, in.NewAnswers, in.Round)...)

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Priority.Rank() < questions[j].Priority.Rank()
	})
	return questions
}

// --- Template layer ---

// template is one deterministic question rule.
type template struct {
	key       string
	qType     session.QuestionType
	priority  session.Priority
	text      string
	rationale string
	suggested []string
}

var gapTemplates = map[string]template{
	"goal": {
		key:       "goal",
		qType:     session.TypeScope,
		priority:  session.PriorityCritical,
		text:      "What is the primary goal of this epic? What problem does it solve, and for whom?",
		rationale: "no goals were extracted from the epic",
	},
	"success": {
		key:       "success",
		qType:     session.TypeSuccess,
		priority:  session.PriorityCritical,
		text:      "How will you know this epic is done? Name at least one measurable acceptance criterion.",
		rationale: "no acceptance criteria were extracted from the epic",
		suggested: []string{
			"A concrete metric with a target value",
			"A user-visible behavior that must work end to end",
		},
	},
	"constraint": {
		key:       "constraint",
		qType:     session.TypeConstraint,
		priority:  session.PriorityImportant,
		text:      "What constraints apply — budget, deadline, compliance, required technology, or hard limits?",
		rationale: "no constraints were extracted from the epic",
	},
	"stakeholder": {
		key:       "stakeholder",
		qType:     session.TypeStakeholder,
		priority:  session.PriorityImportant,
		text:      "Who are the stakeholders? Who uses the result, who approves it, and who operates it?",
		rationale: "no stakeholders were extracted from the epic",
	},
}

var alwaysTemplates = []template{
	{
		key:       "boundary",
		qType:     session.TypeScope,
		priority:  session.PriorityImportant,
		text:      "What is explicitly out of scope for this epic?",
		rationale: "scope boundaries prevent silent scope growth",
	},
	{
		key:       "timeline",
		qType:     session.TypeTimeline,
		priority:  session.PriorityImportant,
		text:      "What is the expected timeline? Are there fixed dates or external events to hit?",
		rationale: "timeline expectations shape every technical tradeoff",
	},
	{
		key:       "risk",
		qType:     session.TypeRisk,
		priority:  session.PriorityImportant,
		text:      "What is the biggest risk to this epic, and what happens if it materializes?",
		rationale: "unstated risks surface as production incidents",
	},
}

// Templates produces the gap-driven questions plus the three always-asked
// ones. Ids derive from (key, round): idempotent within a round.
func (g *Generator) Templates(gaps epic.Gaps, round int) []session.Question {
	var out []session.Question
	add := func(t template) {
		out = append(out, session.Question{
			ID:               fmt.Sprintf("tmpl-%s-r%d", t.key, round),
			Type:             t.qType,
			Priority:         t.priority,
			Text:             t.text,
			Rationale:        t.rationale,
			SuggestedAnswers: t.suggested,
			Provenance:       session.ProvenanceTemplate,
			Round:            round,
		})
	}

	if gaps.Goals {
		add(gapTemplates["goal"])
	}
	if gaps.AcceptanceCriteria {
		add(gapTemplates["success"])
	}
	if gaps.Constraints {
		add(gapTemplates["constraint"])
	}
	if gaps.Stakeholders {
		add(gapTemplates["stakeholder"])
	}
	for _, t := range alwaysTemplates {
		add(t)
	}
	return out
}

// --- Adaptive layer ---

// Adaptive turns semantic signals into context-referencing questions. It
// runs only when signals are available, respects the strategy's recommended
// question count, and never reissues a question asked anywhere in the
// session history.
func (g *Generator) Adaptive(in Input) []session.Question {
	if in.Signals == nil || in.Report == nil {
		return nil
	}
	limit := in.Report.Strategy.RecommendedQuestions()

	var out []session.Question
	asked := func(text string) bool {
		if in.Session != nil && in.Session.HasQuestionText(text) {
			return true
		}
		for _, q := range out {
			if strings.EqualFold(strings.TrimSpace(q.Text), strings.TrimSpace(text)) {
				return true
			}
		}
		return false
	}

	for i, sig := range in.Signals.Signals {
		if len(out) >= limit {
			break
		}
		text := adaptiveText(sig)
		if text == "" || asked(text) {
			continue
		}
		out = append(out, session.Question{
			ID:         fmt.Sprintf("adapt-%s-%d-r%d", sig.Kind, i, in.Round),
			Type:       g.adaptiveType(sig),
			Priority:   priorityFor(sig.Severity),
			Text:       text,
			Rationale:  fmt.Sprintf("semantic %s signal (%s severity)", sig.Kind, sig.Severity),
			Provenance: session.ProvenanceAdaptive,
			Round:      in.Round,
		})
	}
	return out
}

func adaptiveText(sig augment.Signal) string {
	switch sig.Kind {
	case augment.KindGap:
		return fmt.Sprintf("The epic doesn't address this: %s. How should it be handled?", sig.Text)
	case augment.KindTension:
		return fmt.Sprintf("These pull in opposite directions: %s. Which takes precedence?", sig.Text)
	case augment.KindAssumption:
		return fmt.Sprintf("This assumes: %s. Is that actually true?", sig.Text)
	case augment.KindClaim:
		return fmt.Sprintf("The epic commits to this: %s. Is that confirmed and binding?", sig.Text)
	}
	return ""
}

// adaptiveType maps a signal onto a question type by matching its text
// against the area keyword sets; signals matching no area become
// clarification questions.
func (g *Generator) adaptiveType(sig augment.Signal) session.QuestionType {
	best, bestCount := "", 0
	for _, area := range lexicon.RequiredAreas {
		n := len(lexicon.MatchTerms(sig.Text, g.lex.Areas[area]))
		if n > bestCount {
			best, bestCount = area, n
		}
	}
	switch best {
	case "scope":
		return session.TypeScope
	case "success":
		return session.TypeSuccess
	case "constraint":
		return session.TypeConstraint
	case "risk":
		return session.TypeRisk
	case "technical":
		return session.TypeTechnical
	}
	return session.TypeClarification
}

func priorityFor(sev session.Severity) session.Priority {
	switch sev {
	case session.SeverityCritical:
		return session.PriorityCritical
	case session.SeverityHigh:
		return session.PriorityImportant
	}
	return session.PriorityNiceToHave
}

// --- Follow-up layer ---

// maxQuotedAnswer bounds how much of a vague answer gets quoted back.
const maxQuotedAnswer = 80

// FollowUps synthesizes a clarifying question for every new answer that
// trips the vagueness triggers (hedge words, generic terms, very short
// text), quoting the original question and the vague answer.
func (g *Generator) FollowUps(s *session.Session, newAnswers []session.Answer, round int) []session.Question {
	if s == nil {
		return nil
	}
	var out []session.Question
	for _, a := range newAnswers {
		q := s.FindQuestion(a.QuestionID)
		if q == nil {
			continue
		}
		val := g.validator.Validate(a)
		if !val.IsVague && val.IsComplete {
			continue
		}

		text := fmt.Sprintf("You answered %q to %q. Can you make that concrete — specific names, numbers, or thresholds?",
			truncate(a.Text, maxQuotedAnswer), q.Text)
		if s.HasQuestionText(text) {
			continue
		}
		out = append(out, session.Question{
			ID:         fmt.Sprintf("followup-%s-r%d", a.QuestionID, round),
			Type:       session.TypeClarification,
			Priority:   session.PriorityImportant,
			Text:       text,
			Rationale:  "previous answer was vague or incomplete",
			Provenance: session.ProvenanceFollowUp,
			Round:      round,
		})
	}
	return out
}

// truncate cuts on a rune boundary so a multi-byte character is never
// split mid-sequence.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
