package session

import "fmt"

// --- Session status state machine ---
//
// pending → in-progress ⇄ waiting → complete | abandoned
//
// Terminal states are final: a completed or abandoned session rejects every
// further transition.

// Start moves a pending session to in-progress. Starting an in-progress or
// waiting session is a no-op so the operation is safely retryable.
func Start(s *Session) error {
	switch s.Status {
	case StatusPending:
		s.Status = StatusInProgress
		s.UpdatedAt = Now()
		return nil
	case StatusInProgress, StatusWaiting:
		return nil
	default:
		return fmt.Errorf("session %q is %s and cannot be started", s.ID, s.Status)
	}
}

// MarkWaiting records that questions were issued and the engine is waiting
// for answers.
func MarkWaiting(s *Session) error {
	if s.Status.Terminal() {
		return fmt.Errorf("session %q is %s and cannot wait for answers", s.ID, s.Status)
	}
	s.Status = StatusWaiting
	s.UpdatedAt = Now()
	return nil
}

// Resume moves a waiting session back to in-progress when answers arrive.
func Resume(s *Session) error {
	if s.Status.Terminal() {
		return fmt.Errorf("session %q is %s and cannot accept answers", s.ID, s.Status)
	}
	s.Status = StatusInProgress
	s.UpdatedAt = Now()
	return nil
}

// Complete terminates the session successfully. Idempotent on an already
// complete session.
func Complete(s *Session) error {
	if s.Status == StatusComplete {
		return nil
	}
	if s.Status == StatusAbandoned {
		return fmt.Errorf("session %q is abandoned and cannot be completed", s.ID)
	}
	s.Status = StatusComplete
	s.UpdatedAt = Now()
	return nil
}

// Abandon terminates the session without readiness. Idempotent on an
// already abandoned session.
func Abandon(s *Session) error {
	if s.Status == StatusAbandoned {
		return nil
	}
	if s.Status == StatusComplete {
		return fmt.Errorf("session %q is complete and cannot be abandoned", s.ID)
	}
	s.Status = StatusAbandoned
	s.UpdatedAt = Now()
	return nil
}

// AdvanceRound increments the round counter by exactly one. The counter is
// monotone and hard-capped at MaxRounds.
func AdvanceRound(s *Session) error {
	if s.Status.Terminal() {
		return fmt.Errorf("session %q is %s and cannot advance", s.ID, s.Status)
	}
	if s.Round >= s.MaxRounds {
		return fmt.Errorf("session %q already at max rounds (%d)", s.ID, s.MaxRounds)
	}
	s.Round++
	s.UpdatedAt = Now()
	return nil
}
