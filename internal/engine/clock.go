package engine

import (
	"sync/atomic"
	"time"
)

// Revisions is the workbook revision counter.
//
// The revision moves forward exactly once per committed batch that
// changed something. It never moves backwards, so a revision identifies
// one workbook state.
//
// Thread-safety: Revisions is safe for concurrent reads; the engine is
// its only writer.
type Revisions struct {
	rev atomic.Int64
}

// NewRevisions creates a counter at revision 0.
func NewRevisions() *Revisions {
	return &Revisions{}
}

// NewRevisionsAt creates a counter at a given revision.
// Used when a workbook is restored from a journal snapshot.
func NewRevisionsAt(start int64) *Revisions {
	r := &Revisions{}
	r.rev.Store(start)
	return r
}

// Next advances the revision and returns the new value.
func (r *Revisions) Next() int64 {
	return r.rev.Add(1)
}

// Current returns the revision without advancing it.
func (r *Revisions) Current() int64 {
	return r.rev.Load()
}

// Clock is the wall-clock source for TODAY, NOW and report timings.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }
