package session

import (
	"strings"
	"testing"
)

// --- ShouldContinue ---

func TestShouldContinue(t *testing.T) {
	tests := []struct {
		name         string
		round        int
		clarity      int
		forceReady   bool
		wantContinue bool
		wantDenied   bool
	}{
		{"fresh session continues", 0, 30, false, true, false},
		{"max rounds stops", 10, 30, false, false, false},
		{"escape threshold stops", 3, 80, false, false, false},
		{"above escape stops", 3, 95, false, false, false},
		{"just below escape continues", 3, 79, false, true, false},
		{"force below threshold denied", 3, 60, true, true, true},
		{"force above threshold honored", 3, 85, true, false, false},
		{"max rounds beats force", 10, 60, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{Round: tt.round, MaxRounds: DefaultMaxRounds, ClarityScore: tt.clarity}

			d := ShouldContinue(s, tt.forceReady)
			if d.Continue != tt.wantContinue {
				t.Errorf("Continue = %v, want %v (%s)", d.Continue, tt.wantContinue, d.Reason)
			}
			if d.EscapeDenied != tt.wantDenied {
				t.Errorf("EscapeDenied = %v, want %v", d.EscapeDenied, tt.wantDenied)
			}
			if d.Reason == "" {
				t.Error("Reason should always be set")
			}
		})
	}
}

// --- ClarityScore ---

func questionSet(critical, important int) []Question {
	var qs []Question
	for i := 0; i < critical; i++ {
		qs = append(qs, Question{ID: "c" + string(rune('0'+i)), Priority: PriorityCritical})
	}
	for i := 0; i < important; i++ {
		qs = append(qs, Question{ID: "i" + string(rune('0'+i)), Priority: PriorityImportant})
	}
	return qs
}

func answerAll(s *Session, ids ...string) {
	for _, id := range ids {
		s.Answers = append(s.Answers, Answer{QuestionID: id, Text: "answered"})
	}
}

func TestClarityScore(t *testing.T) {
	t.Run("no questions yields full ratios", func(t *testing.T) {
		s := &Session{}
		if got := ClarityScore(s); got != 100 {
			t.Errorf("ClarityScore = %d, want 100", got)
		}
	})

	t.Run("nothing answered yields baseline", func(t *testing.T) {
		s := &Session{Questions: questionSet(2, 5)}
		if got := ClarityScore(s); got != 30 {
			t.Errorf("ClarityScore = %d, want 30", got)
		}
	})

	t.Run("half of each bucket", func(t *testing.T) {
		s := &Session{Questions: questionSet(2, 2)}
		answerAll(s, "c0", "i0")
		// 30 + 40*(1/2) + 30*(1/2) = 65
		if got := ClarityScore(s); got != 65 {
			t.Errorf("ClarityScore = %d, want 65", got)
		}
	})

	t.Run("everything answered", func(t *testing.T) {
		s := &Session{Questions: questionSet(2, 3)}
		answerAll(s, "c0", "c1", "i0", "i1", "i2")
		if got := ClarityScore(s); got != 100 {
			t.Errorf("ClarityScore = %d, want 100", got)
		}
	})

	t.Run("nice-to-have does not count", func(t *testing.T) {
		s := &Session{Questions: []Question{{ID: "n1", Priority: PriorityNiceToHave}}}
		if got := ClarityScore(s); got != 100 {
			t.Errorf("ClarityScore = %d, want 100", got)
		}
	})
}

// --- CompletenessScore ---

func TestCompletenessScore(t *testing.T) {
	t.Run("baseline with nothing covered", func(t *testing.T) {
		s := &Session{Questions: []Question{{ID: "q1", Type: TypeScope}}}
		if got := CompletenessScore(s); got != 40 {
			t.Errorf("CompletenessScore = %d, want 40", got)
		}
	})

	t.Run("one area covered", func(t *testing.T) {
		s := &Session{Questions: []Question{{ID: "q1", Type: TypeScope}}}
		answerAll(s, "q1")
		if got := CompletenessScore(s); got != 60 {
			t.Errorf("CompletenessScore = %d, want 60", got)
		}
	})

	t.Run("all areas covered", func(t *testing.T) {
		s := &Session{Questions: []Question{
			{ID: "q1", Type: TypeScope},
			{ID: "q2", Type: TypeSuccess},
			{ID: "q3", Type: TypeConstraint},
		}}
		answerAll(s, "q1", "q2", "q3")
		if got := CompletenessScore(s); got != 100 {
			t.Errorf("CompletenessScore = %d, want 100", got)
		}
	})

	t.Run("risk answers do not move coverage", func(t *testing.T) {
		s := &Session{Questions: []Question{{ID: "q1", Type: TypeRisk}}}
		answerAll(s, "q1")
		if got := CompletenessScore(s); got != 40 {
			t.Errorf("CompletenessScore = %d, want 40", got)
		}
	})
}

// --- ComputeReadiness ---

func TestComputeReadiness(t *testing.T) {
	tests := []struct {
		name               string
		clarity            int
		completeness       int
		unresolvedCritical int
		want               bool
	}{
		{"both at threshold", 70, 70, 0, true},
		{"clarity short", 69, 100, 0, false},
		{"completeness short", 100, 69, 0, false},
		{"critical contradiction blocks", 100, 100, 1, false},
		{"zero scores", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReadiness(tt.clarity, tt.completeness, tt.unresolvedCritical)
			if got != tt.want {
				t.Errorf("ComputeReadiness = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- EvaluateRound ---

func TestEvaluateRound(t *testing.T) {
	s := &Session{
		Round: 2,
		Questions: []Question{
			{ID: "q1", Round: 2, Priority: PriorityCritical},
			{ID: "q2", Round: 2, Priority: PriorityImportant},
			{ID: "q3", Round: 1, Priority: PriorityCritical}, // other round
		},
	}
	answerAll(s, "q1", "q3")

	eval := EvaluateRound(s, 30)
	if eval.Round != 2 {
		t.Errorf("Round = %d, want 2", eval.Round)
	}
	if eval.QuestionsAsked != 2 {
		t.Errorf("QuestionsAsked = %d, want 2", eval.QuestionsAsked)
	}
	if eval.QuestionsAnswered != 1 {
		t.Errorf("QuestionsAnswered = %d, want 1", eval.QuestionsAnswered)
	}
	if eval.ClarityDelta != eval.Clarity-30 {
		t.Errorf("ClarityDelta = %d, want %d", eval.ClarityDelta, eval.Clarity-30)
	}
}

func TestEvaluateRound_BeforeFirstBatch(t *testing.T) {
	// Until the first batch is accepted the round counter is still 0,
	// but the issued questions already belong to round 1.
	s := &Session{
		Round: 0,
		Questions: []Question{
			{ID: "q1", Round: 1, Priority: PriorityCritical},
			{ID: "q2", Round: 1, Priority: PriorityImportant},
			{ID: "q3", Round: 1, Priority: PriorityImportant},
		},
	}

	eval := EvaluateRound(s, 30)
	if eval.Round != 1 {
		t.Errorf("Round = %d, want 1", eval.Round)
	}
	if eval.QuestionsAsked != 3 {
		t.Errorf("QuestionsAsked = %d, want 3", eval.QuestionsAsked)
	}
	if eval.QuestionsAnswered != 0 {
		t.Errorf("QuestionsAnswered = %d, want 0", eval.QuestionsAnswered)
	}
}

// --- GenerateWarning ---

func TestGenerateWarning_MaxRounds(t *testing.T) {
	s := &Session{
		Round:        10,
		MaxRounds:    10,
		ClarityScore: 44,
		Questions: []Question{
			{ID: "q1", Type: TypeScope, Priority: PriorityCritical},
			{ID: "q2", Type: TypeScope, Priority: PriorityImportant},
		},
	}

	w := GenerateWarning(s, []string{"[high] c1: unresolved"})
	if w == nil {
		t.Fatal("warning expected at hard termination")
	}
	if w.Code != WarnMaxRoundsReached {
		t.Errorf("Code = %s, want %s", w.Code, WarnMaxRoundsReached)
	}
	if w.Severity != WarnError {
		t.Errorf("Severity = %s, want error below the clarity floor", w.Severity)
	}
	joined := strings.Join(w.Details, "; ")
	if !strings.Contains(joined, "scope") {
		t.Errorf("Details should name the unanswered question type, got %v", w.Details)
	}
	if !strings.Contains(joined, "unresolved") {
		t.Errorf("Details should carry the blockers, got %v", w.Details)
	}
}

func TestGenerateWarning_MaxRoundsWarningSeverity(t *testing.T) {
	s := &Session{Round: 10, MaxRounds: 10, ClarityScore: 63}

	w := GenerateWarning(s, nil)
	if w == nil {
		t.Fatal("warning expected at hard termination")
	}
	if w.Severity != WarnWarning {
		t.Errorf("Severity = %s, want warning at clarity >= 50", w.Severity)
	}
}

func TestGenerateWarning_BelowThreshold(t *testing.T) {
	s := &Session{
		Round:        2,
		MaxRounds:    10,
		ClarityScore: 55,
		Questions:    []Question{{ID: "q1", Type: TypeRisk, Priority: PriorityCritical}},
	}

	w := GenerateWarning(s, nil)
	if w == nil {
		t.Fatal("info warning expected with concrete gaps")
	}
	if w.Code != WarnBelowThreshold || w.Severity != WarnInfo {
		t.Errorf("warning = (%s, %s), want (%s, info)", w.Code, w.Severity, WarnBelowThreshold)
	}
}

func TestGenerateWarning_NilWhenClean(t *testing.T) {
	s := &Session{Round: 2, MaxRounds: 10, ClarityScore: 85}

	if w := GenerateWarning(s, nil); w != nil {
		t.Errorf("warning = %+v, want nil above threshold with no gaps", w)
	}
}
