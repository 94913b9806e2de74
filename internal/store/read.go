package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
)

// Workbook is a stored snapshot.
type Workbook struct {
	SessionID string
	Snapshot  *engine.Snapshot
	StateHash string
}

// SessionSummary describes one session in the journal.
type SessionSummary struct {
	ID            string `json:"id"`
	Batches       int    `json:"batches"`
	Failed        int    `json:"failed"`
	FirstRevision int64  `json:"first_revision"`
	LastRevision  int64  `json:"last_revision"`
}

// LoadWorkbook returns the latest snapshot of a session.
// Returns sql.ErrNoRows if the session has none.
func (s *Store) LoadWorkbook(ctx context.Context, sessionID string) (Workbook, error) {
	return s.loadWorkbook(ctx, sessionID, "DESC")
}

// FirstWorkbook returns the earliest snapshot of a session.
// Returns sql.ErrNoRows if the session has none.
func (s *Store) FirstWorkbook(ctx context.Context, sessionID string) (Workbook, error) {
	return s.loadWorkbook(ctx, sessionID, "ASC")
}

func (s *Store) loadWorkbook(ctx context.Context, sessionID, order string) (Workbook, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot, state_hash
		FROM workbooks
		WHERE session_id = ?
		ORDER BY revision `+order+`
		LIMIT 1
	`, sessionID)

	var data, hash string
	if err := row.Scan(&data, &hash); err != nil {
		return Workbook{}, err
	}
	snap, err := unmarshalSnapshot(data)
	if err != nil {
		return Workbook{}, err
	}
	return Workbook{SessionID: sessionID, Snapshot: snap, StateHash: hash}, nil
}

// ListBatches returns the batches of a session with their events, in
// append order. Returns an empty slice (not nil) for an unknown session.
func (s *Store) ListBatches(ctx context.Context, sessionID string) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, session_id, atomic, ops, revision, applied, total,
		       error_code, error_message, error_op, changed
		FROM batches
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}

	for i := range batches {
		events, err := s.readEvents(ctx, batches[i].ID)
		if err != nil {
			return nil, err
		}
		batches[i].Events = events
	}
	return batches, nil
}

// ReadBatch retrieves a single batch with its events.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadBatch(ctx context.Context, id string) (Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, session_id, atomic, ops, revision, applied, total,
		       error_code, error_message, error_op, changed
		FROM batches
		WHERE id = ?
	`, id)
	b, err := scanBatch(row)
	if err != nil {
		return Batch{}, err
	}
	b.Events, err = s.readEvents(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (s *Store) readEvents(ctx context.Context, batchID string) ([]harness.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM batch_events
		WHERE batch_id = ?
		ORDER BY ordinal ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []harness.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := unmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ListSessions summarizes every session that has a snapshot or a batch,
// ordered by session id.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ids.session_id,
		       (SELECT COUNT(*) FROM batches b WHERE b.session_id = ids.session_id),
		       (SELECT COUNT(*) FROM batches b WHERE b.session_id = ids.session_id AND b.error_code IS NOT NULL),
		       COALESCE((SELECT MIN(revision) FROM workbooks w WHERE w.session_id = ids.session_id), 0),
		       COALESCE((SELECT MAX(revision) FROM batches b WHERE b.session_id = ids.session_id),
		                (SELECT MAX(revision) FROM workbooks w WHERE w.session_id = ids.session_id), 0)
		FROM (
			SELECT session_id FROM workbooks
			UNION
			SELECT session_id FROM batches
		) ids
		ORDER BY ids.session_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.ID, &ss.Batches, &ss.Failed, &ss.FirstRevision, &ss.LastRevision); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// EventCounts counts the events of a session by kind.
func (s *Store) EventCounts(ctx context.Context, sessionID string) (map[harness.EventKind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.kind, COUNT(*)
		FROM batch_events e
		JOIN batches b ON b.id = e.batch_id
		WHERE b.session_id = ?
		GROUP BY e.kind
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[harness.EventKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[harness.EventKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return counts, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (Batch, error) {
	var b Batch
	var opsJSON, changedJSON string
	var code, message sql.NullString
	var opIndex sql.NullInt64

	err := row.Scan(
		&b.Seq,
		&b.ID,
		&b.SessionID,
		&b.Atomic,
		&opsJSON,
		&b.Revision,
		&b.Applied,
		&b.Total,
		&code,
		&message,
		&opIndex,
		&changedJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Batch{}, err
		}
		return Batch{}, fmt.Errorf("scan batch: %w", err)
	}

	if b.Ops, err = unmarshalOps(opsJSON); err != nil {
		return Batch{}, err
	}
	if b.Changed, err = unmarshalChanged(changedJSON); err != nil {
		return Batch{}, err
	}
	if code.Valid {
		b.Error = &harness.BatchError{Code: code.String, Message: message.String, OpIndex: int(opIndex.Int64)}
	}
	return b, nil
}
