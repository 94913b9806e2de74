package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/ir"
)

// Batch is one journaled batch: what was asked for and what happened.
type Batch struct {
	// Seq is assigned by the store on append.
	Seq       int64
	ID        string
	SessionID string
	Atomic    bool
	Ops       []harness.Op
	Revision  int64
	Applied   int
	Total     int
	Error     *harness.BatchError
	Changed   []ir.CellID
	Events    []harness.Event
}

// NewBatch builds the journal record of a batch applied by a session.
func NewBatch(sessionID string, ops []harness.Op, atomic bool, res harness.ApplyResult, events []harness.Event) Batch {
	return Batch{
		ID:        res.BatchID,
		SessionID: sessionID,
		Atomic:    atomic,
		Ops:       ops,
		Revision:  res.Revision,
		Applied:   res.Applied,
		Total:     res.Total,
		Error:     res.Error,
		Changed:   res.Changed,
		Events:    events,
	}
}

// SaveWorkbook stores a snapshot of the workbook at its revision.
// Uses ON CONFLICT DO NOTHING: a session has one snapshot per revision and
// the first one written wins.
func (s *Store) SaveWorkbook(ctx context.Context, sessionID string, snap *engine.Snapshot, stateHash string) error {
	data, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workbooks (session_id, revision, snapshot, state_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, revision) DO NOTHING
	`, sessionID, snap.Revision, data, stateHash)
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// AppendBatch writes a batch and its events in one transaction.
// Appending a batch id that already exists is an error.
func (s *Store) AppendBatch(ctx context.Context, b Batch) (seq int64, err error) {
	opsJSON, err := marshalOps(b.Ops)
	if err != nil {
		return 0, fmt.Errorf("append batch: %w", err)
	}
	changedJSON, err := marshalChanged(b.Changed)
	if err != nil {
		return 0, fmt.Errorf("append batch: %w", err)
	}

	var code, message sql.NullString
	var opIndex sql.NullInt64
	if b.Error != nil {
		code = sql.NullString{String: b.Error.Code, Valid: true}
		message = sql.NullString{String: b.Error.Message, Valid: true}
		opIndex = sql.NullInt64{Int64: int64(b.Error.OpIndex), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO batches
		(id, session_id, atomic, ops, revision, applied, total, error_code, error_message, error_op, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.SessionID,
		b.Atomic,
		opsJSON,
		b.Revision,
		b.Applied,
		b.Total,
		code,
		message,
		opIndex,
		changedJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("append batch: %w", err)
	}
	seq, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append batch: last insert id: %w", err)
	}

	for i, ev := range b.Events {
		payload, err := marshalEvent(ev)
		if err != nil {
			return 0, fmt.Errorf("append batch: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO batch_events (batch_id, ordinal, kind, revision, payload)
			VALUES (?, ?, ?, ?, ?)
		`, b.ID, i, string(ev.Kind), ev.Revision, payload); err != nil {
			return 0, fmt.Errorf("append batch: event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append batch: commit: %w", err)
	}
	return seq, nil
}
