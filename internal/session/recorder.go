package session

import (
	"context"
	"time"

	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
)

// TransitionEvent describes one committed operation.
type TransitionEvent struct {
	SessionID string
	Op        string
	From      flow.State
	To        flow.State
	Version   int
	At        time.Time

	// Session is the committed snapshot. It is shared and must not be
	// mutated.
	Session *Session
}

// Recorder persists what the engine commits. Recording is best effort:
// failures are logged and never undo a transition.
type Recorder interface {
	RecordTransition(ctx context.Context, ev TransitionEvent) error
	RecordAnswers(ctx context.Context, sessionID string, answers []evaluator.Answer) error
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(context.Context, TransitionEvent) error { return nil }

func (nopRecorder) RecordAnswers(context.Context, string, []evaluator.Answer) error { return nil }
