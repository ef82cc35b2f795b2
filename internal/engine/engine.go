// Package engine is the session orchestrator: it composes the analyzer,
// augmenter, question generator, answer validator, and premise tracker into
// the per-call read-compute-write cycle.
//
// Every public operation is a synchronous transformer over one session:
// load full state, derive new state, persist, return. The engine holds no
// per-session state between calls — the only caches are keyed by immutable
// epic text — so operations are safely retryable. Serializing concurrent
// writers per session id is the storage collaborator's job.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/probelabs/socratic/internal/analysis"
	"github.com/probelabs/socratic/internal/answer"
	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/epic"
	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/premise"
	"github.com/probelabs/socratic/internal/question"
	"github.com/probelabs/socratic/internal/session"
)

// ErrNotFound marks lookups of unknown epics, sessions, or contradictions.
// Store implementations wrap it so callers can test with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput marks caller mistakes — empty batches, unknown question
// references, writes to terminal sessions. The MCP layer reports these as
// tool results rather than transport errors.
var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence collaborator the engine consumes. SaveSession
// must be an atomic upsert of the session including its question and answer
// lists; premises are append-only; contradictions upsert by id.
type Store interface {
	SaveEpic(ctx context.Context, e *epic.Epic) error
	GetEpic(ctx context.Context, id string) (*epic.Epic, error)

	GetSession(ctx context.Context, id string) (*session.Session, error)
	// GetSessionByEpic returns (nil, nil) when no session exists yet.
	GetSessionByEpic(ctx context.Context, epicID string) (*session.Session, error)
	SaveSession(ctx context.Context, s *session.Session) error

	AddPremises(ctx context.Context, sessionID string, premises []session.Premise) error
	ListPremises(ctx context.Context, sessionID string) ([]session.Premise, error)

	SaveContradictions(ctx context.Context, sessionID string, contradictions []session.Contradiction) error
	ListContradictions(ctx context.Context, sessionID string) ([]session.Contradiction, error)
}

// Result is the caller-facing payload of every engine operation: next
// questions, updated scores, readiness, blockers, warnings, and
// recommendations. No wire format is mandated here.
type Result struct {
	SessionID         string             `json:"session_id"`
	EpicID            string             `json:"epic_id"`
	Status            session.Status     `json:"status"`
	Round             int                `json:"round"`
	MaxRounds         int                `json:"max_rounds"`
	Tier              int                `json:"tier"`
	Strategy          analysis.Strategy  `json:"strategy"`
	Questions         []session.Question `json:"questions"`
	QuestionsAsked    int                `json:"questions_asked"`
	QuestionsAnswered int                `json:"questions_answered"`
	ClarityScore      int                `json:"clarity_score"`
	CompletenessScore int                `json:"completeness_score"`
	ClarityDelta      int                `json:"clarity_delta"`
	ReadyForSpec      bool               `json:"ready_for_spec"`
	Blockers          []string           `json:"blockers,omitempty"`
	Warnings          []session.Warning  `json:"warnings,omitempty"`
	Recommendations   []string           `json:"recommendations,omitempty"`
	// EscapeDenied reports a refused forceReady request. It is a notice,
	// not an error: the caller keeps iterating.
	EscapeDenied bool `json:"escape_denied,omitempty"`
}

// Config tunes the engine.
type Config struct {
	MaxRounds int // 0 → session.DefaultMaxRounds
	CacheSize int // structural analysis LRU entries, 0 → 128
}

// Engine composes the interrogation components.
type Engine struct {
	store     Store
	augmenter augment.Augmenter
	analyzer  *analysis.Analyzer
	generator *question.Generator
	validator *answer.Validator
	tracker   *premise.Tracker
	reports   *lru.Cache[string, *analysis.Report]
	maxRounds int
}

// New wires an engine. The augmenter is mandatory as a value but may be
// the null implementation; the engine never distinguishes the two.
func New(st Store, aug augment.Augmenter, lex *lexicon.Lexicon, cfg Config) (*Engine, error) {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = session.DefaultMaxRounds
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	reports, err := lru.New[string, *analysis.Report](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating analysis cache: %w", err)
	}
	return &Engine{
		store:     st,
		augmenter: aug,
		analyzer:  analysis.New(lex),
		generator: question.New(lex),
		validator: answer.New(lex),
		tracker:   premise.New(lex),
		reports:   reports,
		maxRounds: cfg.MaxRounds,
	}, nil
}

// --- Epic ingestion ---

// EpicInput is the pre-extracted epic supplied by the ingestion
// collaborator.
type EpicInput struct {
	Title              string
	RawText            string
	Goals              []string
	Constraints        []string
	AcceptanceCriteria []string
	Stakeholders       []string
}

// IngestEpic persists a new epic and returns it. The engine only reacts to
// the presence or absence of the pre-extracted sections.
func (e *Engine) IngestEpic(ctx context.Context, in EpicInput) (*epic.Epic, error) {
	if in.RawText == "" {
		return nil, fmt.Errorf("%w: epic raw text is required", ErrInvalidInput)
	}
	now := session.Now()
	ep := &epic.Epic{
		ID:                 uuid.NewString(),
		Title:              in.Title,
		RawText:            in.RawText,
		Goals:              in.Goals,
		Constraints:        in.Constraints,
		AcceptanceCriteria: in.AcceptanceCriteria,
		Stakeholders:       in.Stakeholders,
		Status:             epic.StatusDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.store.SaveEpic(ctx, ep); err != nil {
		return nil, fmt.Errorf("saving epic: %w", err)
	}
	return ep, nil
}

// --- Interrogate ---

// InterrogateOptions tunes one interrogation call.
type InterrogateOptions struct {
	// ForceReady asks for early termination. It is honored only when
	// clarity has reached the escape threshold; otherwise it is denied
	// and the denial reported in the result.
	ForceReady bool
}

// Interrogate loads (or creates) the session for an epic, scores the epic,
// generates the upcoming round's questions, and returns the open questions
// plus updated scores. Re-invoking it within the same round is idempotent:
// no duplicate question ids are ever inserted.
func (e *Engine) Interrogate(ctx context.Context, epicID string, opts InterrogateOptions) (*Result, error) {
	ep, err := e.store.GetEpic(ctx, epicID)
	if err != nil {
		return nil, err
	}

	s, err := e.store.GetSessionByEpic(ctx, epicID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = e.newSession(ep)
		ep.Status = epic.StatusInterrogating
		ep.UpdatedAt = session.Now()
		if err := e.store.SaveEpic(ctx, ep); err != nil {
			return nil, fmt.Errorf("updating epic status: %w", err)
		}
	}
	// A terminated session reports its final state instead of erroring.
	if s.Status.Terminal() {
		return e.finish(ctx, s, ep, e.analyze(ep.RawText), s.ClarityScore)
	}
	if err := session.Start(s); err != nil {
		return nil, err
	}

	report := e.analyze(ep.RawText)
	signals := e.augmenter.Detect(ctx, augment.Request{
		EpicText:  ep.RawText,
		Report:    report,
		Questions: s.Questions,
		Answers:   s.Answers,
	})

	prevClarity := s.ClarityScore
	decision := session.ShouldContinue(s, opts.ForceReady)
	if decision.Continue {
		e.generate(s, ep, report, signals, nil)
		if err := session.MarkWaiting(s); err != nil {
			return nil, err
		}
	} else {
		if err := session.Complete(s); err != nil {
			return nil, err
		}
	}

	result, err := e.finish(ctx, s, ep, report, prevClarity)
	if err != nil {
		return nil, err
	}
	result.EscapeDenied = decision.EscapeDenied
	return result, nil
}

// --- Submit answers ---

// AnswerInput is one answer in a batch.
type AnswerInput struct {
	QuestionID  string
	Text        string
	UsedDefault bool
}

// SubmitAnswers accepts one answer batch, advancing the round counter by
// exactly one. Unknown question references reject the whole batch before
// any state changes. After acceptance it validates the answers, updates the
// premise and contradiction ledgers, generates the next round's questions
// (follow-ups included), and recomputes all scores.
func (e *Engine) SubmitAnswers(ctx context.Context, sessionID string, inputs []AnswerInput) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: answer batch is empty", ErrInvalidInput)
	}

	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %q is %s and no longer accepts answers", ErrInvalidInput, s.ID, s.Status)
	}

	// Validate every reference before mutating anything.
	for _, in := range inputs {
		if s.FindQuestion(in.QuestionID) == nil {
			return nil, fmt.Errorf("%w: unknown question %q in session %q", ErrInvalidInput, in.QuestionID, s.ID)
		}
	}

	ep, err := e.store.GetEpic(ctx, s.EpicID)
	if err != nil {
		return nil, err
	}

	if err := session.Resume(s); err != nil {
		return nil, err
	}
	if err := session.AdvanceRound(s); err != nil {
		return nil, err
	}

	now := session.Now()
	newAnswers := make([]session.Answer, 0, len(inputs))
	for _, in := range inputs {
		a := session.Answer{
			QuestionID:  in.QuestionID,
			Text:        in.Text,
			Timestamp:   now,
			UsedDefault: in.UsedDefault,
			Round:       s.Round,
		}
		newAnswers = append(newAnswers, a)
		upsertAnswer(s, a)
	}

	report := e.analyze(ep.RawText)
	signals := e.augmenter.Detect(ctx, augment.Request{
		EpicText:  ep.RawText,
		Report:    report,
		Questions: s.Questions,
		Answers:   s.Answers,
	})

	// Ledger updates: new premises from this batch, then conflict
	// detection over the full state.
	var newPremises []session.Premise
	for _, a := range newAnswers {
		newPremises = append(newPremises, e.tracker.Extract(a)...)
	}
	if len(newPremises) > 0 {
		if err := e.store.AddPremises(ctx, s.ID, newPremises); err != nil {
			return nil, fmt.Errorf("saving premises: %w", err)
		}
	}

	premises, err := e.store.ListPremises(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	ledger, err := e.store.ListContradictions(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	var sigs []augment.Signal
	if signals != nil {
		sigs = signals.Signals
	}
	detected := e.tracker.DetectConflicts(premises, sigs)
	detected = append(detected, e.validator.DetectContradictions(s.Answers)...)
	ledger = premise.Merge(ledger, detected)
	if err := e.store.SaveContradictions(ctx, s.ID, ledger); err != nil {
		return nil, fmt.Errorf("saving contradictions: %w", err)
	}

	prevClarity := s.ClarityScore
	s.ClarityScore = e.clarity(s)
	decision := session.ShouldContinue(s, false)
	if decision.Continue {
		e.generate(s, ep, report, signals, newAnswers)
		if err := session.MarkWaiting(s); err != nil {
			return nil, err
		}
	} else {
		if err := session.Complete(s); err != nil {
			return nil, err
		}
	}

	return e.finish(ctx, s, ep, report, prevClarity)
}

// upsertAnswer replaces a prior answer to the same question or appends.
// Re-answering refines; it never duplicates.
func upsertAnswer(s *session.Session, a session.Answer) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == a.QuestionID {
			s.Answers[i] = a
			return
		}
	}
	s.Answers = append(s.Answers, a)
}

// --- Contradiction resolution ---

// ResolveContradiction attaches a free-text resolution to a contradiction.
// Unknown ids are rejected as not-found; re-resolving is a no-op.
func (e *Engine) ResolveContradiction(ctx context.Context, sessionID, contradictionID, rationale string) (*Result, error) {
	if rationale == "" {
		return nil, fmt.Errorf("%w: resolution rationale is required", ErrInvalidInput)
	}
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ledger, err := e.store.ListContradictions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := premise.Resolve(ledger, contradictionID, rationale); err != nil {
		if errors.Is(err, premise.ErrNotFound) {
			return nil, fmt.Errorf("%w: contradiction %q", ErrNotFound, contradictionID)
		}
		return nil, err
	}
	if err := e.store.SaveContradictions(ctx, sessionID, ledger); err != nil {
		return nil, fmt.Errorf("saving contradictions: %w", err)
	}

	ep, err := e.store.GetEpic(ctx, s.EpicID)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, s, ep, e.analyze(ep.RawText), s.ClarityScore)
}

// --- Status / abandon ---

// Status recomputes and returns the current state without advancing
// anything. ReadyForSpec is always derived fresh, never served stale.
func (e *Engine) Status(ctx context.Context, sessionID string) (*Result, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ep, err := e.store.GetEpic(ctx, s.EpicID)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, s, ep, e.analyze(ep.RawText), s.ClarityScore)
}

// AbandonSession terminates a session without readiness.
func (e *Engine) AbandonSession(ctx context.Context, sessionID string) error {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := session.Abandon(s); err != nil {
		return err
	}
	return e.store.SaveSession(ctx, s)
}

// --- Internals ---

func (e *Engine) newSession(ep *epic.Epic) *session.Session {
	now := session.Now()
	return &session.Session{
		ID:        uuid.NewString(),
		EpicID:    ep.ID,
		Status:    session.StatusPending,
		Round:     0,
		MaxRounds: e.maxRounds,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// analyze scores epic text through the LRU: epics are immutable, so the
// text hash fully identifies the report.
func (e *Engine) analyze(text string) *analysis.Report {
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])
	if report, ok := e.reports.Get(key); ok {
		return report
	}
	report := e.analyzer.Analyze(text)
	e.reports.Add(key, report)
	return report
}

// generate produces the upcoming round's questions. Gap templates are
// text-deduplicated against the whole session history, so a question asked
// in round 1 is never re-issued verbatim in round 2.
func (e *Engine) generate(s *session.Session, ep *epic.Epic, report *analysis.Report, signals *augment.Result, newAnswers []session.Answer) {
	generated := e.generator.Generate(question.Input{
		Session:    s,
		Gaps:       ep.ExtractGaps(),
		Report:     report,
		Signals:    signals,
		NewAnswers: newAnswers,
		Round:      s.Round + 1,
	})

	fresh := generated[:0]
	for _, q := range generated {
		if q.Round == s.Round+1 && s.HasQuestionText(q.Text) {
			continue
		}
		fresh = append(fresh, q)
	}
	s.AddQuestions(fresh)
}

// clarity combines the ratio formula with the per-answer clarity impacts,
// each answer's penalty individually floored so one bad answer cannot sink
// the session.
func (e *Engine) clarity(s *session.Session) int {
	score := session.ClarityScore(s)
	for _, a := range s.Answers {
		score += answer.ClarityImpact(e.validator.Validate(a))
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// finish recomputes scores, readiness, warnings, and recommendations,
// persists the session, and builds the result payload.
func (e *Engine) finish(ctx context.Context, s *session.Session, ep *epic.Epic, report *analysis.Report, prevClarity int) (*Result, error) {
	ledger, err := e.store.ListContradictions(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	s.ClarityScore = e.clarity(s)
	s.CompletenessScore = session.CompletenessScore(s)
	blockers := premise.Blockers(ledger)
	s.ReadyForSpec = session.ComputeReadiness(
		s.ClarityScore, s.CompletenessScore, premise.UnresolvedCritical(ledger))

	if s.ReadyForSpec && s.Status == session.StatusComplete && ep.Status != epic.StatusSpecified {
		ep.Status = epic.StatusSpecified
		ep.UpdatedAt = session.Now()
		if err := e.store.SaveEpic(ctx, ep); err != nil {
			return nil, fmt.Errorf("updating epic status: %w", err)
		}
	}

	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	eval := session.EvaluateRound(s, prevClarity)

	result := &Result{
		SessionID:         s.ID,
		EpicID:            s.EpicID,
		Status:            s.Status,
		Round:             s.Round,
		MaxRounds:         s.MaxRounds,
		Tier:              report.Tier,
		Strategy:          report.Strategy,
		Questions:         openQuestions(s),
		QuestionsAsked:    eval.QuestionsAsked,
		QuestionsAnswered: eval.QuestionsAnswered,
		ClarityScore:      s.ClarityScore,
		CompletenessScore: s.CompletenessScore,
		ClarityDelta:      s.ClarityScore - prevClarity,
		ReadyForSpec:      s.ReadyForSpec,
		Blockers:          blockers,
		Recommendations:   recommendations(report, blockers, s),
	}

	if w := session.GenerateWarning(s, blockers); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result, nil
}

// openQuestions returns every unanswered question, priority-ordered.
func openQuestions(s *session.Session) []session.Question {
	var open []session.Question
	for _, q := range s.Questions {
		if !s.Answered(q.ID) {
			open = append(open, q)
		}
	}
	sortQuestions(open)
	return open
}

func sortQuestions(qs []session.Question) {
	for i := 1; i < len(qs); i++ {
		for j := i; j > 0 && less(qs[j], qs[j-1]); j-- {
			qs[j], qs[j-1] = qs[j-1], qs[j]
		}
	}
}

func less(a, b session.Question) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	return a.Round < b.Round
}

// recommendations derives caller guidance from the structural report and
// the current blockers.
func recommendations(report *analysis.Report, blockers []string, s *session.Session) []string {
	var recs []string
	for _, area := range report.SuggestedFocus {
		recs = append(recs, fmt.Sprintf("epic coverage of %s is weak; prioritize %s questions", area, area))
	}
	if len(blockers) > 0 {
		recs = append(recs, fmt.Sprintf("resolve %d open contradiction(s) before generating the spec", len(blockers)))
	}
	if s.ClarityScore < session.ReadinessThreshold {
		recs = append(recs, "answer the remaining critical and important questions to raise clarity")
	}
	return recs
}
