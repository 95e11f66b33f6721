package play

import (
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/session"
)

// outcomeMsg carries the result of a state-changing engine call.
type outcomeMsg struct {
	Outcome session.Outcome
	Err     error
}

// reviewMsg carries a composed review.
type reviewMsg struct {
	Review review.Review
	Err    error
}

// reportMsg carries the terminal report.
type reportMsg struct {
	Report session.Report
	Err    error
}
