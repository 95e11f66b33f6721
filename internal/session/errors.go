package session

import (
	"errors"
	"fmt"

	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
)

var (
	// ErrSessionNotFound is matched by every *NotFoundError.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = flow.ErrInvalidTransition

	// ErrInvalidSubmission is returned for answer sets that do not match
	// the presented questions.
	ErrInvalidSubmission = evaluator.ErrInvalidSubmission

	// ErrContentUnavailable is returned when no content source, placeholders
	// included, could fill a bundle slot or a remediation round.
	ErrContentUnavailable = problemgen.ErrContentUnavailable
)

// NotFoundError reports an unknown session id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrSessionNotFound }

// TransitionError reports an operation the session's state does not accept.
// The session is left untouched.
type TransitionError struct {
	SessionID string
	State     flow.State
	Op        string
	Reason    string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("session %s: %s not accepted in %s", e.SessionID, e.Op, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func rejectf(s *Session, op, format string, args ...any) error {
	return &TransitionError{SessionID: s.ID, State: s.State, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func reject(s *Session, op string) error {
	return &TransitionError{SessionID: s.ID, State: s.State, Op: op}
}
