package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/tierloop/internal/session"
)

// Snapshot is a stored copy of a session after one of its transitions.
type Snapshot struct {
	Sequence  int64
	SessionID string
	Version   int
	State     string
	Timestamp time.Time
	Data      json.RawMessage
}

// NewSnapshot encodes sess for storage.
func NewSnapshot(seq int64, sess *session.Session) (*Snapshot, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	return &Snapshot{
		Sequence:  seq,
		SessionID: sess.ID,
		Version:   sess.Version,
		State:     sess.State.String(),
		Timestamp: sess.UpdatedAt,
		Data:      data,
	}, nil
}

// Session decodes the stored session.
func (s *Snapshot) Session() (*session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal(s.Data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %d: %w", s.Sequence, err)
	}
	return &sess, nil
}

// SnapshotRepo manages session snapshots.
type SnapshotRepo struct {
	drv *entsql.Driver
}

// Save stores a new snapshot.
func (r *SnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	query, args := builder().Insert(tableSnapshots).
		Columns("sequence", "session_id", "version", "state", "at_ms", "data").
		Values(snap.Sequence, snap.SessionID, snap.Version, snap.State, snap.Timestamp.UnixMilli(), string(snap.Data)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot of a session, or nil if none
// exist.
func (r *SnapshotRepo) Latest(ctx context.Context, sessionID string) (*Snapshot, error) {
	b := builder()
	query, args := b.Select("sequence", "session_id", "version", "state", "at_ms", "data").
		From(b.Table(tableSnapshots)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Desc("version"), entsql.Desc("sequence")).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var s Snapshot
	var atMs int64
	var data string
	if err := rows.Scan(&s.Sequence, &s.SessionID, &s.Version, &s.State, &atMs, &data); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	s.Timestamp = time.UnixMilli(atMs)
	s.Data = json.RawMessage(data)
	return &s, nil
}

// Prune deletes all but the keep most recent snapshots of a session.
func (r *SnapshotRepo) Prune(ctx context.Context, sessionID string, keep int) error {
	if keep <= 0 {
		return nil
	}
	b := builder()
	query, args := b.Select("sequence").
		From(b.Table(tableSnapshots)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Desc("sequence")).
		Offset(keep).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}
	var threshold int64
	found := rows.Next()
	if found {
		if err := rows.Scan(&threshold); err != nil {
			rows.Close()
			return fmt.Errorf("scan prune threshold: %w", err)
		}
	}
	rows.Close()
	if !found {
		return nil // fewer than keep snapshots exist
	}

	query, args = b.Delete(tableSnapshots).
		Where(entsql.And(entsql.EQ("session_id", sessionID), entsql.LTE("sequence", threshold))).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Count returns how many snapshots a session has.
func (r *SnapshotRepo) Count(ctx context.Context, sessionID string) (int, error) {
	b := builder()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(tableSnapshots)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scan snapshot count: %w", err)
		}
	}
	return n, rows.Err()
}
