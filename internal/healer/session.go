// File: internal/healer/session.go
package healer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// Session is the process-wide state of one repair invocation: the bounded
// attempt history and the running outcome. It lives exactly as long as the
// invocation and is never persisted.
type Session struct {
	ID          string
	MaxAttempts int

	outcome  schemas.Outcome
	attempts []schemas.Attempt
}

// NewSession creates a fresh in-progress session.
func NewSession(maxAttempts int) *Session {
	return &Session{
		ID:          uuid.NewString(),
		MaxAttempts: maxAttempts,
		outcome:     schemas.OutcomeInProgress,
	}
}

// Outcome returns the session's current outcome.
func (s *Session) Outcome() schemas.Outcome {
	return s.outcome
}

// Attempts returns the ordered attempt history.
func (s *Session) Attempts() []schemas.Attempt {
	return s.attempts
}

// AttemptCount returns the number of attempts started so far.
func (s *Session) AttemptCount() int {
	return len(s.attempts)
}

// Budget reports whether another attempt may start. The bound is checked
// here, before a new test-runner invocation, never after a patch has been
// applied.
func (s *Session) Budget() bool {
	return len(s.attempts) < s.MaxAttempts
}

// BeginAttempt appends a new attempt record and returns a pointer into the
// history so the control loop can fill it in as the attempt unfolds.
func (s *Session) BeginAttempt() (*schemas.Attempt, error) {
	if s.outcome.Terminal() {
		return nil, fmt.Errorf("session %s is already finished (%s)", s.ID, s.outcome)
	}
	s.attempts = append(s.attempts, schemas.Attempt{Number: len(s.attempts) + 1})
	return &s.attempts[len(s.attempts)-1], nil
}

// Finish moves the session to a terminal outcome. A finished session is
// final; finishing twice is a programming error surfaced loudly.
func (s *Session) Finish(outcome schemas.Outcome) error {
	if s.outcome.Terminal() {
		return fmt.Errorf("session %s already finished as %s, cannot finish as %s", s.ID, s.outcome, outcome)
	}
	if !outcome.Terminal() {
		return fmt.Errorf("cannot finish session %s with non-terminal outcome %s", s.ID, outcome)
	}
	s.outcome = outcome
	return nil
}
