package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/session"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

func (o QueryOpts) apply(s *entsql.Selector) *entsql.Selector {
	if o.After > 0 {
		s.Where(entsql.GT("sequence", o.After))
	}
	if o.Before > 0 {
		s.Where(entsql.LT("sequence", o.Before))
	}
	if !o.From.IsZero() {
		s.Where(entsql.GTE("at_ms", o.From.UnixMilli()))
	}
	if !o.To.IsZero() {
		s.Where(entsql.LTE("at_ms", o.To.UnixMilli()))
	}
	if o.Limit > 0 {
		s.Limit(o.Limit)
	}
	return s
}

// Transition is a stored state transition.
type Transition struct {
	Sequence  int64
	SessionID string
	Op        string
	From      string
	To        string
	Version   int
	At        time.Time
}

// Answer is a stored answer-log entry.
type Answer struct {
	Sequence   int64
	SessionID  string
	QuestionID string
	LessonID   string
	Tier       string
	Round      int
	Choice     int
	Correct    bool
	Elapsed    time.Duration
	At         time.Time
}

// LLMCall is a stored LLM request.
type LLMCall struct {
	Sequence     int64
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	At           time.Time
}

// EventRepo appends and queries events. It implements session.Recorder and
// llm.Recorder.
type EventRepo struct {
	drv       *entsql.Driver
	seq       *sequenceCounter
	snapshots *SnapshotRepo
	keep      int
}

var (
	_ session.Recorder = (*EventRepo)(nil)
	_ llm.Recorder     = (*EventRepo)(nil)
)

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *EventRepo) exec(ctx context.Context, q interface{ Query() (string, []any) }) error {
	query, args := q.Query()
	return r.drv.Exec(ctx, query, args, nil)
}

// RecordTransition stores a committed transition and, when the event
// carries one, the session snapshot it produced.
func (r *EventRepo) RecordTransition(ctx context.Context, ev session.TransitionEvent) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	ins := builder().Insert(tableTransitions).
		Columns("sequence", "session_id", "op", "from_state", "to_state", "version", "at_ms").
		Values(seqNum, ev.SessionID, ev.Op, ev.From.String(), ev.To.String(), ev.Version, ev.At.UnixMilli())
	if err := r.exec(ctx, ins); err != nil {
		return fmt.Errorf("save transition: %w", err)
	}

	if ev.Session == nil {
		return nil
	}
	snapSeq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	snap, err := NewSnapshot(snapSeq, ev.Session)
	if err != nil {
		return err
	}
	if err := r.snapshots.Save(ctx, snap); err != nil {
		return err
	}
	return r.snapshots.Prune(ctx, ev.SessionID, r.keep)
}

// RecordAnswers stores answers appended to a session's log, in order.
func (r *EventRepo) RecordAnswers(ctx context.Context, sessionID string, answers []evaluator.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	first, err := r.seq.Reserve(ctx, len(answers))
	if err != nil {
		return err
	}
	ins := builder().Insert(tableAnswers).
		Columns("sequence", "session_id", "question_id", "lesson_id", "tier", "round", "choice", "correct", "elapsed_ms", "at_ms")
	for i, a := range answers {
		ins.Values(first+int64(i), sessionID, a.QuestionID, a.LessonID, a.Tier.String(), a.Round, a.Choice,
			a.Correct, a.Elapsed.Milliseconds(), a.SubmittedAt.UnixMilli())
	}
	if err := r.exec(ctx, ins); err != nil {
		return fmt.Errorf("save %d answers: %w", len(answers), err)
	}
	return nil
}

// RecordLLMCall stores one LLM request.
func (r *EventRepo) RecordLLMCall(ctx context.Context, rec llm.CallRecord) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	ins := builder().Insert(tableLLMCalls).
		Columns("sequence", "session_id", "provider", "model", "purpose", "input_tokens", "output_tokens",
			"latency_ms", "success", "error_message", "at_ms").
		Values(seqNum, rec.SessionID, rec.Provider, rec.Model, rec.Purpose, rec.InputTokens, rec.OutputTokens,
			rec.LatencyMs, rec.Success, rec.ErrorMessage, time.Now().UnixMilli())
	if err := r.exec(ctx, ins); err != nil {
		return fmt.Errorf("save LLM call: %w", err)
	}
	return nil
}

// Transitions returns a session's transitions in commit order.
func (r *EventRepo) Transitions(ctx context.Context, sessionID string, opts QueryOpts) ([]Transition, error) {
	b := builder()
	sel := b.Select("sequence", "session_id", "op", "from_state", "to_state", "version", "at_ms").
		From(b.Table(tableTransitions)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
	return r.queryTransitions(ctx, opts.apply(sel))
}

// Sessions returns the creation event of every recorded session, newest
// first.
func (r *EventRepo) Sessions(ctx context.Context, opts QueryOpts) ([]Transition, error) {
	b := builder()
	sel := b.Select("sequence", "session_id", "op", "from_state", "to_state", "version", "at_ms").
		From(b.Table(tableTransitions)).
		Where(entsql.EQ("op", session.OpCreate)).
		OrderBy(entsql.Desc("sequence"))
	return r.queryTransitions(ctx, opts.apply(sel))
}

func (r *EventRepo) queryTransitions(ctx context.Context, sel *entsql.Selector) ([]Transition, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var atMs int64
		if err := rows.Scan(&t.Sequence, &t.SessionID, &t.Op, &t.From, &t.To, &t.Version, &atMs); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.At = time.UnixMilli(atMs)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Answers returns a session's logged answers in order.
func (r *EventRepo) Answers(ctx context.Context, sessionID string, opts QueryOpts) ([]Answer, error) {
	b := builder()
	sel := b.Select("sequence", "session_id", "question_id", "lesson_id", "tier", "round", "choice", "correct", "elapsed_ms", "at_ms").
		From(b.Table(tableAnswers)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
	query, args := opts.apply(sel).Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		var elapsedMs, atMs int64
		if err := rows.Scan(&a.Sequence, &a.SessionID, &a.QuestionID, &a.LessonID, &a.Tier, &a.Round,
			&a.Choice, &a.Correct, &elapsedMs, &atMs); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		a.At = time.UnixMilli(atMs)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LLMCalls returns recorded LLM requests, newest first.
func (r *EventRepo) LLMCalls(ctx context.Context, opts QueryOpts) ([]LLMCall, error) {
	b := builder()
	sel := b.Select("sequence", "session_id", "provider", "model", "purpose", "input_tokens", "output_tokens",
		"latency_ms", "success", "error_message", "at_ms").
		From(b.Table(tableLLMCalls)).
		OrderBy(entsql.Desc("sequence"))
	query, args := opts.apply(sel).Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM calls: %w", err)
	}
	defer rows.Close()

	var out []LLMCall
	for rows.Next() {
		var c LLMCall
		var atMs int64
		if err := rows.Scan(&c.Sequence, &c.SessionID, &c.Provider, &c.Model, &c.Purpose, &c.InputTokens,
			&c.OutputTokens, &c.LatencyMs, &c.Success, &c.ErrorMessage, &atMs); err != nil {
			return nil, fmt.Errorf("scan LLM call: %w", err)
		}
		c.At = time.UnixMilli(atMs)
		out = append(out, c)
	}
	return out, rows.Err()
}
