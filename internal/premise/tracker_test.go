package premise

import (
	"strings"
	"testing"

	"github.com/probelabs/socratic/internal/augment"
	"github.com/probelabs/socratic/internal/lexicon"
	"github.com/probelabs/socratic/internal/session"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	return New(lexicon.Default())
}

// --- Extract ---

func TestExtract(t *testing.T) {
	tr := newTracker(t)

	a := session.Answer{
		QuestionID: "q1",
		Text: "The importer must process 10000 records per day. " +
			"We want to reduce manual work. " +
			"Assuming the vendor api stays stable. " +
			"The current system runs on postgres. " +
			"ok",
	}

	premises := tr.Extract(a)
	if len(premises) != 4 {
		t.Fatalf("premises = %d, want 4 (short sentence skipped): %+v", len(premises), premises)
	}

	wantTypes := []session.PremiseType{
		session.PremiseConstraint,
		session.PremiseGoal,
		session.PremiseAssumption,
		session.PremiseFact,
	}
	for i, want := range wantTypes {
		if premises[i].Type != want {
			t.Errorf("premise %d type = %s, want %s (%q)", i, premises[i].Type, want, premises[i].Statement)
		}
		if premises[i].SourceAnswerID != "q1" {
			t.Errorf("premise %d SourceAnswerID = %s, want q1", i, premises[i].SourceAnswerID)
		}
		if premises[i].ID == "" {
			t.Errorf("premise %d has no id", i)
		}
	}
}

func TestExtract_Confidence(t *testing.T) {
	tr := newTracker(t)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"hedged is low", "we could be done around next quarter sometime", 0.4},
		{"numeric is high", "the cache holds 512 mb of session data", 0.9},
		{"plain is medium", "the export job writes files to object storage", 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			premises := tr.Extract(session.Answer{QuestionID: "q1", Text: tt.text})
			if len(premises) != 1 {
				t.Fatalf("premises = %d, want 1", len(premises))
			}
			if premises[0].Confidence != tt.want {
				t.Errorf("Confidence = %v, want %v", premises[0].Confidence, tt.want)
			}
		})
	}
}

// --- DetectConflicts ---

func TestDetectConflicts_WithinOneAnswer(t *testing.T) {
	tr := newTracker(t)

	premises := []session.Premise{
		{ID: "p1", Statement: "ingestion happens in real-time as events arrive", SourceAnswerID: "q1"},
		{ID: "p2", Statement: "ingestion runs as a nightly batch job", SourceAnswerID: "q1"},
	}

	got := tr.DetectConflicts(premises, nil)
	if len(got) != 1 {
		t.Fatalf("conflicts = %d, want 1: %+v", len(got), got)
	}
	c := got[0]
	if c.Severity != session.SeverityHigh {
		t.Errorf("Severity = %s, want high (catalogue severity)", c.Severity)
	}
	if len(c.PremiseIDs) != 2 || c.PremiseIDs[0] != "p1" || c.PremiseIDs[1] != "p2" {
		t.Errorf("PremiseIDs = %v, want [p1 p2]", c.PremiseIDs)
	}
	if len(c.AnswerIDs) != 0 {
		t.Errorf("AnswerIDs = %v, want none for a single-answer conflict", c.AnswerIDs)
	}
}

func TestDetectConflicts_CrossAnswerUsesAnswerKey(t *testing.T) {
	tr := newTracker(t)

	// Two sentences per answer mentioning the opposing terms: all premise
	// pairs must collapse to the one conflict between the two answers,
	// under the same id the answer-level scan derives.
	premises := []session.Premise{
		{ID: "p1", Statement: "ingestion happens in real-time as events arrive", SourceAnswerID: "q2"},
		{ID: "p2", Statement: "dashboards need real-time freshness too", SourceAnswerID: "q2"},
		{ID: "p3", Statement: "aggregation runs as a nightly batch job", SourceAnswerID: "q1"},
	}

	got := tr.DetectConflicts(premises, nil)
	if len(got) != 1 {
		t.Fatalf("conflicts = %d, want 1: %+v", len(got), got)
	}
	c := got[0]
	if c.ID != "conflict-real-time-batch-q1-q2" {
		t.Errorf("ID = %s, want the answer-keyed id", c.ID)
	}
	if c.Severity != session.SeverityPotential {
		t.Errorf("Severity = %s, want potential for a cross-answer conflict", c.Severity)
	}
	if len(c.AnswerIDs) != 2 || c.AnswerIDs[0] != "q1" || c.AnswerIDs[1] != "q2" {
		t.Errorf("AnswerIDs = %v, want [q1 q2]", c.AnswerIDs)
	}
	if len(c.PremiseIDs) != 2 {
		t.Errorf("PremiseIDs = %v, want the implicated pair attached", c.PremiseIDs)
	}
}

func TestDetectConflicts_DeterministicIDs(t *testing.T) {
	tr := newTracker(t)

	premises := []session.Premise{
		{ID: "p1", Statement: "everything is stateful by design"},
		{ID: "p2", Statement: "the workers are stateless replicas"},
	}

	first := tr.DetectConflicts(premises, nil)
	second := tr.DetectConflicts([]session.Premise{premises[1], premises[0]}, nil)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("conflicts = %d/%d, want 1/1", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Errorf("ids differ: %s vs %s", first[0].ID, second[0].ID)
	}
}

func TestDetectConflicts_TensionSignals(t *testing.T) {
	tr := newTracker(t)

	signals := []augment.Signal{
		{Kind: augment.KindTension, Text: "sub-second freshness vs a nightly budget window", Severity: session.SeverityCritical},
		{Kind: augment.KindGap, Text: "no rollout plan", Severity: session.SeverityHigh},
	}

	got := tr.DetectConflicts(nil, signals)
	if len(got) != 1 {
		t.Fatalf("conflicts = %d, want only the tension signal: %+v", len(got), got)
	}
	if got[0].Severity != session.SeverityCritical {
		t.Errorf("Severity = %s, want critical", got[0].Severity)
	}
	if !strings.HasPrefix(got[0].ID, "tension-") {
		t.Errorf("ID = %s, want tension- prefix", got[0].ID)
	}

	// Same signal text again yields the same id.
	again := tr.DetectConflicts(nil, signals)
	if again[0].ID != got[0].ID {
		t.Errorf("tension id not stable: %s vs %s", again[0].ID, got[0].ID)
	}
}

// --- Merge ---

func TestMerge_PreservesResolved(t *testing.T) {
	existing := []session.Contradiction{
		{ID: "c1", Resolved: true, Resolution: "batch wins"},
	}
	detected := []session.Contradiction{
		{ID: "c1"}, // re-detected, unresolved
		{ID: "c2"},
	}

	got := Merge(existing, detected)
	if len(got) != 2 {
		t.Fatalf("merged = %d, want 2", len(got))
	}
	if !got[0].Resolved || got[0].Resolution != "batch wins" {
		t.Errorf("resolved entry was replaced: %+v", got[0])
	}
	if got[1].ID != "c2" {
		t.Errorf("new entry = %s, want c2", got[1].ID)
	}
}

// --- Resolve ---

func TestResolve(t *testing.T) {
	ledger := []session.Contradiction{{ID: "c1"}, {ID: "c2"}}

	if err := Resolve(ledger, "c1", "real-time wins, budget approved"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ledger[0].Resolved || ledger[0].Resolution == "" || ledger[0].ResolvedAt == "" {
		t.Errorf("resolution not recorded: %+v", ledger[0])
	}
	if ledger[1].Resolved {
		t.Error("unrelated contradiction was resolved")
	}
}

func TestResolve_IdempotentAndNotFound(t *testing.T) {
	ledger := []session.Contradiction{{ID: "c1", Resolved: true, Resolution: "original"}}

	if err := Resolve(ledger, "c1", "overwrite attempt"); err != nil {
		t.Fatalf("re-resolving should be a no-op, got %v", err)
	}
	if ledger[0].Resolution != "original" {
		t.Errorf("Resolution = %s, want original kept", ledger[0].Resolution)
	}

	err := Resolve(ledger, "missing", "rationale")
	if err == nil {
		t.Fatal("Resolve of unknown id should fail")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the id: %v", err)
	}
}

// --- Gating ---

func TestUnresolvedCritical(t *testing.T) {
	ledger := []session.Contradiction{
		{ID: "c1", Severity: session.SeverityCritical},
		{ID: "c2", Severity: session.SeverityCritical, Resolved: true},
		{ID: "c3", Severity: session.SeverityHigh},
	}

	if got := UnresolvedCritical(ledger); got != 1 {
		t.Errorf("UnresolvedCritical = %d, want 1", got)
	}
}

func TestBlockers(t *testing.T) {
	ledger := []session.Contradiction{
		{ID: "c1", Severity: session.SeverityLow, Description: "push vs pull"},
		{ID: "c2", Severity: session.SeverityCritical, Description: "sync vs async", Resolved: true},
	}

	got := Blockers(ledger)
	if len(got) != 1 {
		t.Fatalf("blockers = %v, want one entry", got)
	}
	if !strings.Contains(got[0], "c1") || !strings.Contains(got[0], "low") {
		t.Errorf("blocker should carry id and severity: %s", got[0])
	}
}
