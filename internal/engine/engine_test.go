package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/epic"
	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/session"
)

// --- In-memory store fake ---

type fakeStore struct {
	epics          map[string]*epic.Epic
	sessions       map[string]*session.Session
	premises       map[string][]session.Premise
	contradictions map[string][]session.Contradiction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		epics:          make(map[string]*epic.Epic),
		sessions:       make(map[string]*session.Session),
		premises:       make(map[string][]session.Premise),
		contradictions: make(map[string][]session.Contradiction),
	}
}

func (f *fakeStore) SaveEpic(_ context.Context, e *epic.Epic) error {
	cp := *e
	f.epics[e.ID] = &cp
	return nil
}

func (f *fakeStore) GetEpic(_ context.Context, id string) (*epic.Epic, error) {
	e, ok := f.epics[id]
	if !ok {
		return nil, fmt.Errorf("epic %q: %w", id, ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) SaveSession(_ context.Context, s *session.Session) error {
	cp := *s
	cp.Questions = append([]session.Question(nil), s.Questions...)
	cp.Answers = append([]session.Answer(nil), s.Answers...)
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	cp := *s
	cp.Questions = append([]session.Question(nil), s.Questions...)
	cp.Answers = append([]session.Answer(nil), s.Answers...)
	return &cp, nil
}

func (f *fakeStore) GetSessionByEpic(ctx context.Context, epicID string) (*session.Session, error) {
	for id, s := range f.sessions {
		if s.EpicID == epicID {
			return f.GetSession(ctx, id)
		}
	}
	return nil, nil
}

func (f *fakeStore) AddPremises(_ context.Context, sessionID string, premises []session.Premise) error {
	f.premises[sessionID] = append(f.premises[sessionID], premises...)
	return nil
}

func (f *fakeStore) ListPremises(_ context.Context, sessionID string) ([]session.Premise, error) {
	return append([]session.Premise(nil), f.premises[sessionID]...), nil
}

func (f *fakeStore) SaveContradictions(_ context.Context, sessionID string, c []session.Contradiction) error {
	f.contradictions[sessionID] = append([]session.Contradiction(nil), c...)
	return nil
}

func (f *fakeStore) ListContradictions(_ context.Context, sessionID string) ([]session.Contradiction, error) {
	return append([]session.Contradiction(nil), f.contradictions[sessionID]...), nil
}

// --- Fixtures ---

func newTestEngine(t *testing.T) (*Engine, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	eng, err := New(st, augment.Null{}, lexicon.Default(), Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, st
}

func ingest(t *testing.T, eng *Engine, text string) *epic.Epic {
	t.Helper()
	ep, err := eng.IngestEpic(context.Background(), EpicInput{Title: "test epic", RawText: text})
	if err != nil {
		t.Fatalf("IngestEpic: %v", err)
	}
	return ep
}

func answersFor(r *Result, text string) []AnswerInput {
	inputs := make([]AnswerInput, 0, len(r.Questions))
	for _, q := range r.Questions {
		inputs = append(inputs, AnswerInput{QuestionID: q.ID, Text: text})
	}
	return inputs
}

// --- IngestEpic ---

func TestIngestEpic_RequiresText(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.IngestEpic(context.Background(), EpicInput{Title: "empty"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

// --- Interrogate ---

func TestInterrogate_FirstRound(t *testing.T) {
	eng, st := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	if r.Round != 0 {
		t.Errorf("Round = %d, want 0 before any answers", r.Round)
	}
	if r.Tier != 1 || r.Strategy != "comprehensive" {
		t.Errorf("tier/strategy = %d/%s, want 1/comprehensive", r.Tier, r.Strategy)
	}
	if len(r.Questions) != 7 {
		t.Errorf("questions = %d, want 7 (all gaps open)", len(r.Questions))
	}
	if r.QuestionsAsked != 7 {
		t.Errorf("QuestionsAsked = %d, want 7 for the just-issued round", r.QuestionsAsked)
	}
	if r.QuestionsAnswered != 0 {
		t.Errorf("QuestionsAnswered = %d, want 0", r.QuestionsAnswered)
	}
	if r.ClarityScore != 30 {
		t.Errorf("ClarityScore = %d, want 30 with nothing answered", r.ClarityScore)
	}
	if r.Status != session.StatusWaiting {
		t.Errorf("Status = %s, want waiting", r.Status)
	}
	if r.ReadyForSpec {
		t.Error("ReadyForSpec should be false")
	}
	if st.epics[ep.ID].Status != epic.StatusInterrogating {
		t.Errorf("epic status = %s, want interrogating", st.epics[ep.ID].Status)
	}
}

func TestInterrogate_Idempotent(t *testing.T) {
	eng, _ := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	first, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}
	second, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate again: %v", err)
	}

	if len(second.Questions) != len(first.Questions) {
		t.Errorf("questions = %d after retry, want %d", len(second.Questions), len(first.Questions))
	}
	if second.SessionID != first.SessionID {
		t.Errorf("retry created a new session: %s vs %s", second.SessionID, first.SessionID)
	}
}

func TestInterrogate_UnknownEpic(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Interrogate(context.Background(), "ghost", InterrogateOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInterrogate_ForceReadyDenied(t *testing.T) {
	eng, _ := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{ForceReady: true})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}
	if !r.EscapeDenied {
		t.Error("EscapeDenied should be true below the escape threshold")
	}
	if r.Status.Terminal() {
		t.Errorf("Status = %s, denial must not terminate the session", r.Status)
	}
}

// --- SubmitAnswers ---

const specificAnswer = "The reporting scope covers invoices only; success means render latency stays within 2 seconds for 500 concurrent users; the constraint is a fixed 2025 deadline on postgres."

func TestSubmitAnswers_AdvancesOneRound(t *testing.T) {
	eng, _ := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	got, err := eng.SubmitAnswers(context.Background(), r.SessionID, answersFor(r, specificAnswer))
	if err != nil {
		t.Fatalf("SubmitAnswers: %v", err)
	}
	if got.Round != 1 {
		t.Errorf("Round = %d, want 1 after one batch", got.Round)
	}
	if got.ClarityScore <= 30 {
		t.Errorf("ClarityScore = %d, want a rise after specific answers", got.ClarityScore)
	}
	if got.ClarityDelta <= 0 {
		t.Errorf("ClarityDelta = %d, want positive", got.ClarityDelta)
	}
}

func TestSubmitAnswers_FullBatchCompletes(t *testing.T) {
	eng, st := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	got, err := eng.SubmitAnswers(context.Background(), r.SessionID, answersFor(r, specificAnswer))
	if err != nil {
		t.Fatalf("SubmitAnswers: %v", err)
	}

	// All criticals and importants answered with specific text: clarity hits
	// the escape threshold, the session completes, scope/success/constraint
	// coverage makes completeness full, so the epic is ready and specified.
	if got.Status != session.StatusComplete {
		t.Errorf("Status = %s, want complete", got.Status)
	}
	if !got.ReadyForSpec {
		t.Errorf("ReadyForSpec = false (clarity %d, completeness %d)",
			got.ClarityScore, got.CompletenessScore)
	}
	if got.CompletenessScore != 100 {
		t.Errorf("CompletenessScore = %d, want 100", got.CompletenessScore)
	}
	if st.epics[ep.ID].Status != epic.StatusSpecified {
		t.Errorf("epic status = %s, want specified", st.epics[ep.ID].Status)
	}
}

func TestSubmitAnswers_RejectsUnknownQuestionWholly(t *testing.T) {
	eng, st := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	inputs := answersFor(r, specificAnswer)
	inputs = append(inputs, AnswerInput{QuestionID: "ghost", Text: "stray"})

	_, err = eng.SubmitAnswers(context.Background(), r.SessionID, inputs)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	// Nothing was accepted.
	saved := st.sessions[r.SessionID]
	if len(saved.Answers) != 0 {
		t.Errorf("answers persisted = %d, want 0 after rejected batch", len(saved.Answers))
	}
	if saved.Round != 0 {
		t.Errorf("Round = %d, want 0 after rejected batch", saved.Round)
	}
}

func TestSubmitAnswers_EmptyBatch(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.SubmitAnswers(context.Background(), "any", nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSubmitAnswers_VagueAnswersSpawnFollowUps(t *testing.T) {
	eng, _ := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	vague := "maybe it should be sort of fast, probably, whatever seems reasonable somehow"
	got, err := eng.SubmitAnswers(context.Background(), r.SessionID, answersFor(r, vague))
	if err != nil {
		t.Fatalf("SubmitAnswers: %v", err)
	}

	followUps := 0
	for _, q := range got.Questions {
		if strings.HasPrefix(q.ID, "followup-") {
			followUps++
		}
	}
	if followUps == 0 {
		t.Error("vague answers should spawn follow-up questions")
	}
	if got.Status.Terminal() {
		t.Errorf("Status = %s, vague answers must not complete the session", got.Status)
	}
}

func TestSubmitAnswers_ReAnswerReplaces(t *testing.T) {
	eng, st := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	qid := r.Questions[0].ID
	if _, err := eng.SubmitAnswers(context.Background(), r.SessionID,
		[]AnswerInput{{QuestionID: qid, Text: "first attempt at an answer with detail"}}); err != nil {
		t.Fatalf("SubmitAnswers: %v", err)
	}
	if _, err := eng.SubmitAnswers(context.Background(), r.SessionID,
		[]AnswerInput{{QuestionID: qid, Text: "second refined answer with more detail"}}); err != nil {
		t.Fatalf("SubmitAnswers again: %v", err)
	}

	saved := st.sessions[r.SessionID]
	count := 0
	for _, a := range saved.Answers {
		if a.QuestionID == qid {
			count++
			if !strings.Contains(a.Text, "second") {
				t.Errorf("answer text = %q, want the replacement", a.Text)
			}
		}
	}
	if count != 1 {
		t.Errorf("answers for %s = %d, want exactly 1", qid, count)
	}
}

// --- Contradictions ---

func TestContradictionLifecycle(t *testing.T) {
	eng, st := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	inputs := []AnswerInput{
		{QuestionID: r.Questions[0].ID, Text: "Data must arrive real-time, streamed as events happen."},
		{QuestionID: r.Questions[1].ID, Text: "Aggregation runs as one nightly batch job over the warehouse."},
	}
	got, err := eng.SubmitAnswers(context.Background(), r.SessionID, inputs)
	if err != nil {
		t.Fatalf("SubmitAnswers: %v", err)
	}

	// The premise-level and answer-level scans both see this pair; the
	// ledger must hold exactly one record for it, potential severity,
	// referencing both answers.
	ledger := st.contradictions[r.SessionID]
	if len(ledger) != 1 {
		t.Fatalf("ledger = %d records, want exactly 1: %+v", len(ledger), ledger)
	}
	c := ledger[0]
	if c.Severity != session.SeverityPotential {
		t.Errorf("Severity = %s, want potential", c.Severity)
	}
	if len(c.AnswerIDs) != 2 {
		t.Errorf("AnswerIDs = %v, want both answers referenced", c.AnswerIDs)
	}
	if len(got.Blockers) != 1 {
		t.Fatalf("blockers = %v, want exactly one", got.Blockers)
	}
	if !strings.Contains(got.Blockers[0], c.ID) {
		t.Errorf("blocker %q does not carry the contradiction id %s", got.Blockers[0], c.ID)
	}

	resolved, err := eng.ResolveContradiction(context.Background(), r.SessionID, c.ID, "batch wins; dashboards tolerate a day of lag")
	if err != nil {
		t.Fatalf("ResolveContradiction: %v", err)
	}
	if len(resolved.Blockers) != 0 {
		t.Errorf("blockers = %v, want none after the single resolution", resolved.Blockers)
	}

	// Re-listing after another engine pass must not resurrect the pair.
	status, err := eng.Status(context.Background(), r.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Blockers) != 0 {
		t.Errorf("blockers = %v, resolved pair re-listed", status.Blockers)
	}
}

func TestResolveContradiction_Errors(t *testing.T) {
	eng, _ := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	if _, err := eng.ResolveContradiction(context.Background(), r.SessionID, "ghost", "rationale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
	if _, err := eng.ResolveContradiction(context.Background(), r.SessionID, "any", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty rationale err = %v, want ErrInvalidInput", err)
	}
}

// --- Status / abandon ---

func TestStatus_DoesNotAdvance(t *testing.T) {
	eng, _ := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	st1, err := eng.Status(context.Background(), r.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	st2, err := eng.Status(context.Background(), r.SessionID)
	if err != nil {
		t.Fatalf("Status again: %v", err)
	}

	if st1.Round != r.Round || st2.Round != r.Round {
		t.Errorf("Status changed the round: %d/%d, want %d", st1.Round, st2.Round, r.Round)
	}
	if len(st2.Questions) != len(r.Questions) {
		t.Errorf("Status changed the question set: %d, want %d", len(st2.Questions), len(r.Questions))
	}
}

func TestAbandonSession(t *testing.T) {
	eng, st := newTestEngine(t)
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	if err := eng.AbandonSession(context.Background(), r.SessionID); err != nil {
		t.Fatalf("AbandonSession: %v", err)
	}
	if st.sessions[r.SessionID].Status != session.StatusAbandoned {
		t.Errorf("Status = %s, want abandoned", st.sessions[r.SessionID].Status)
	}

	if _, err := eng.SubmitAnswers(context.Background(), r.SessionID,
		[]AnswerInput{{QuestionID: r.Questions[0].ID, Text: "too late to matter now"}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("submit after abandon err = %v, want ErrInvalidInput", err)
	}
}

// --- Round cap ---

func TestRoundCap_TerminatesWithWarning(t *testing.T) {
	st := newFakeStore()
	eng, err := New(st, augment.Null{}, lexicon.Default(), Config{MaxRounds: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ep := ingest(t, eng, "Build a dashboard")

	r, err := eng.Interrogate(context.Background(), ep.ID, InterrogateOptions{})
	if err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	// Two rounds of answers vague enough to keep clarity short of escape.
	vague := "probably something reasonable, maybe stuff happens, whatever seems roughly appropriate somehow"
	for round := 1; round <= 2; round++ {
		open := make([]AnswerInput, 0, len(r.Questions))
		for _, q := range r.Questions {
			open = append(open, AnswerInput{QuestionID: q.ID, Text: vague})
		}
		r, err = eng.SubmitAnswers(context.Background(), r.SessionID, open)
		if err != nil {
			t.Fatalf("SubmitAnswers round %d: %v", round, err)
		}
	}

	if r.Round != 2 {
		t.Errorf("Round = %d, want 2", r.Round)
	}
	if r.Status != session.StatusComplete {
		t.Errorf("Status = %s, want complete at the cap", r.Status)
	}
	if r.ReadyForSpec {
		t.Error("ReadyForSpec should be false at a low-clarity termination")
	}
	if len(r.Warnings) == 0 {
		t.Fatal("hard termination should carry a warning")
	}
	if r.Warnings[0].Code != session.WarnMaxRoundsReached {
		t.Errorf("warning code = %s, want %s", r.Warnings[0].Code, session.WarnMaxRoundsReached)
	}
}
