package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func engineOptions() []engine.Option {
	return []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithRandom(func() float64 { return 0.5 }),
	}
}

// journaled runs batches through a session and journals each one along
// with the opening and closing snapshots.
type journaled struct {
	t     *testing.T
	store *Store
	sess  *harness.Session
}

func startSession(t *testing.T, s *Store) *journaled {
	t.Helper()
	e := engine.New(engineOptions()...)
	sess := harness.NewSession(e, harness.WithIDGenerator(&harness.SequenceGenerator{Prefix: "s"}))
	j := &journaled{t: t, store: s, sess: sess}
	j.snapshot()
	return j
}

func (j *journaled) snapshot() {
	j.t.Helper()
	hash, err := j.sess.Engine().StateHash()
	if err != nil {
		j.t.Fatalf("state hash: %v", err)
	}
	if err := j.store.SaveWorkbook(context.Background(), j.sess.ID(), j.sess.Engine().Snapshot(), hash); err != nil {
		j.t.Fatalf("SaveWorkbook() failed: %v", err)
	}
}

func (j *journaled) apply(atomic bool, ops ...harness.Op) harness.ApplyResult {
	j.t.Helper()
	before := len(j.sess.Events())
	res := j.sess.ApplyOps(ops, atomic)
	b := NewBatch(j.sess.ID(), ops, atomic, res, j.sess.Events()[before:])
	if _, err := j.store.AppendBatch(context.Background(), b); err != nil {
		j.t.Fatalf("AppendBatch() failed: %v", err)
	}
	return res
}
