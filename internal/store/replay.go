package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
)

// ReplayResult is the outcome of re-executing a journaled session.
type ReplayResult struct {
	SessionID string
	Batches   int

	// Mismatches describes every batch whose replayed outcome differs
	// from the recorded one, plus a final state mismatch.
	Mismatches []string

	// StateHash fingerprints the replayed workbook.
	StateHash string

	// Engine holds the replayed workbook.
	Engine *engine.Engine
}

// Deterministic reports whether the replay matched the journal.
func (r *ReplayResult) Deterministic() bool { return len(r.Mismatches) == 0 }

// Replay rebuilds a session from its first snapshot and re-applies every
// recorded batch in seq order. Each replayed batch must end at the same
// revision with the same applied count, error code and changed cells.
// When the latest snapshot is at the final revision, its state hash must
// match too.
//
// opts configure the replay engine. Sessions whose formulas read the
// clock or RAND need the same sources they ran with.
func (s *Store) Replay(ctx context.Context, sessionID string, opts ...engine.Option) (*ReplayResult, error) {
	first, err := s.FirstWorkbook(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("replay %s: no workbook snapshot", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	eng, err := engine.FromSnapshot(first.Snapshot, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	batches, err := s.ListBatches(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	ids := &replayIDs{batches: batches, session: sessionID}
	sess := harness.NewSession(eng, harness.WithIDGenerator(ids))
	result := &ReplayResult{SessionID: sessionID, Batches: len(batches), Engine: eng}

	for _, b := range batches {
		got := sess.ApplyOps(b.Ops, b.Atomic)
		result.Mismatches = append(result.Mismatches, compareBatch(b, got)...)
	}

	result.StateHash, err = eng.StateHash()
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	last, err := s.LoadWorkbook(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	if last.Snapshot.Revision == eng.Revision() && last.StateHash != result.StateHash {
		result.Mismatches = append(result.Mismatches,
			fmt.Sprintf("final state at revision %d: hash %s, recorded %s",
				eng.Revision(), result.StateHash, last.StateHash))
	}
	return result, nil
}

func compareBatch(want Batch, got harness.ApplyResult) []string {
	var out []string
	if got.Revision != want.Revision {
		out = append(out, fmt.Sprintf("batch %s: revision %d, recorded %d", want.ID, got.Revision, want.Revision))
	}
	if got.Applied != want.Applied {
		out = append(out, fmt.Sprintf("batch %s: applied %d, recorded %d", want.ID, got.Applied, want.Applied))
	}
	if errorCode(got.Error) != errorCode(want.Error) {
		out = append(out, fmt.Sprintf("batch %s: error %q, recorded %q", want.ID, errorCode(got.Error), errorCode(want.Error)))
	}
	if !slices.Equal(got.Changed, want.Changed) {
		out = append(out, fmt.Sprintf("batch %s: changed %v, recorded %v", want.ID, got.Changed, want.Changed))
	}
	return out
}

func errorCode(e *harness.BatchError) string {
	if e == nil {
		return ""
	}
	return e.Code
}

// replayIDs hands the session the recorded ids so that replayed results
// carry the original batch ids.
type replayIDs struct {
	batches []Batch
	session string
	n       int
}

func (g *replayIDs) Generate() string {
	if g.n == 0 {
		g.n++
		return g.session
	}
	id := g.batches[g.n-1].ID
	g.n++
	return id
}
