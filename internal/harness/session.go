package harness

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
)

// IDGenerator produces batch and session identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-ordered UUIDv7 strings.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator produces prefix-1, prefix-2, ... for tests.
type SequenceGenerator struct {
	Prefix string
	n      int
}

// Generate returns the next id in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.Prefix, g.n)
}

// Session applies batches of ops to one engine and tracks events and
// undo groups. Like the engine it wraps, a Session has a single writer.
type Session struct {
	id     string
	engine *engine.Engine
	events *EventCollector
	undo   *UndoTracker
	ids    IDGenerator
	logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIDGenerator sets the source of session and batch ids.
func WithIDGenerator(g IDGenerator) SessionOption {
	return func(s *Session) { s.ids = g }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession wraps e.
func NewSession(e *engine.Engine, opts ...SessionOption) *Session {
	s := &Session{
		engine: e,
		events: NewEventCollector(),
		undo:   NewUndoTracker(),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = s.ids.Generate()
	return s
}

// ID identifies the session.
func (s *Session) ID() string { return s.id }

// Engine returns the wrapped engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Revision returns the workbook revision.
func (s *Session) Revision() int64 { return s.engine.Revision() }

// Events returns the events emitted so far.
func (s *Session) Events() []Event { return s.events.Events() }

// ClearEvents drops the recorded events.
func (s *Session) ClearEvents() { s.events.Clear() }

// Listen registers fn for every future event.
func (s *Session) Listen(fn func(Event)) { s.events.Listen(fn) }

// UndoGroupCount returns the number of committed batches that can be undone.
func (s *Session) UndoGroupCount() int { return s.undo.GroupCount() }

// ApplyOps runs ops as one batch. With atomic set, a failure restores
// every cell and emits only BatchApplied; otherwise the ops before the
// failure stay applied. ApplyOps must not be called while the engine has
// a batch open.
func (s *Session) ApplyOps(ops []Op, atomic bool) ApplyResult {
	return s.apply(ops, atomic, true)
}

// Undo reverts the most recent committed batch by writing back the
// before-text of each edit as a new atomic batch. The revert produces
// the usual events and a new revision. ok is false when there is
// nothing to undo.
func (s *Session) Undo() (res ApplyResult, ok bool) {
	g, ok := s.undo.Pop()
	if !ok {
		return ApplyResult{}, false
	}
	ops := make([]Op, 0, len(g.Edits))
	for i := len(g.Edits) - 1; i >= 0; i-- {
		ed := g.Edits[i]
		idx, found := s.engine.SheetIndex(ed.Cell.Sheet)
		if !found {
			continue
		}
		ops = append(ops, Op{Kind: OpSetCellValue, Sheet: idx, Row: ed.Cell.Row, Col: ed.Cell.Col, Text: ed.Before})
	}
	res = s.apply(ops, true, false)
	s.logger.Debug("undo", "group_revision", g.Revision, "revision", res.Revision, "edits", len(ops))
	return res, true
}

func (s *Session) apply(ops []Op, atomic, track bool) ApplyResult {
	e := s.engine
	res := ApplyResult{BatchID: s.ids.Generate(), Total: len(ops), Revision: e.Revision()}
	if e.InBatch() {
		res.Error = &BatchError{Code: CodeBatchOpen, Message: "engine has an open batch", OpIndex: 0}
		return res
	}
	prev := e.Revision()

	if track {
		s.undo.BeginGroup()
	}
	e.BeginBatch()
	for i, op := range ops {
		if berr := s.applyOne(op, i, track); berr != nil {
			res.Error = berr
			break
		}
		res.Applied++
	}

	if res.Error != nil && atomic {
		if err := e.Rollback(); err != nil {
			s.logger.Error("rollback failed", "batch", res.BatchID, "error", err)
		}
		if track {
			s.undo.AbortGroup()
		}
		res.Applied = 0
		s.events.Emit(Event{Kind: EventBatchApplied, Revision: prev, Total: res.Total, Error: res.Error})
		s.logger.Info("batch rolled back",
			"batch", res.BatchID,
			"op", res.Error.OpIndex,
			"code", res.Error.Code)
		return res
	}

	commit, err := e.EndBatch()
	if err != nil || commit == nil {
		s.logger.Error("end batch failed", "batch", res.BatchID, "error", err)
		commit = &engine.Commit{Revision: e.Revision(), Previous: prev}
	}
	if track {
		s.undo.EndGroup(commit.Revision)
	}
	res.Revision = commit.Revision
	res.Edited = commit.Edited
	res.Changed = commit.Changed
	res.Report = commit.Report

	if commit.Bumped() {
		s.events.Emit(Event{Kind: EventRevisionChanged, Revision: commit.Revision, Previous: prev})
		if len(commit.Edited) > 0 {
			s.events.Emit(Event{Kind: EventCellsChanged, Revision: commit.Revision, Cells: commit.Edited})
		}
	}
	s.events.Emit(Event{
		Kind:     EventBatchApplied,
		Revision: commit.Revision,
		Applied:  res.Applied,
		Total:    res.Total,
		Error:    res.Error,
	})
	s.logger.Debug("batch applied",
		"batch", res.BatchID,
		"applied", res.Applied,
		"total", res.Total,
		"revision", res.Revision)
	return res
}

func (s *Session) applyOne(op Op, index int, track bool) *BatchError {
	fail := func(code, format string, args ...any) *BatchError {
		return &BatchError{Code: code, Message: fmt.Sprintf(format, args...), OpIndex: index}
	}
	if op.Kind == OpSimulateError {
		return fail(CodeSimulatedError, "%s", op.Message)
	}

	e := s.engine
	sheet, ok := e.SheetIDAt(op.Sheet)
	if !ok {
		return fail(string(engine.ErrCodeInvalidSheet), "Sheet index %d not found", op.Sheet)
	}
	row, col := op.Row, op.Col
	if op.Cell != "" {
		a, err := ir.ParseA1(op.Cell)
		if err != nil {
			return fail(string(engine.ErrCodeInvalidCell), "%v", err)
		}
		row, col = a.Row, a.Col
	}
	id := ir.NewCellID(sheet, row, col)
	before := e.Raw(id)

	var err error
	switch op.Kind {
	case OpSetCellValue:
		err = e.SetCellValue(sheet, row, col, op.Text)
	case OpSetCellFormula:
		err = e.SetCellFormula(sheet, row, col, op.Text)
	case OpClearCell:
		err = e.ClearCell(sheet, row, col)
	default:
		return fail(CodeUnknownOp, "unknown op %q", op.Kind)
	}
	if err != nil {
		code := string(engine.ErrorCode(err))
		if code == "" {
			code = CodeUnknownOp
		}
		return fail(code, "%v", err)
	}
	if track {
		s.undo.Record(CellEdit{Cell: id, Before: before, After: e.Raw(id)})
	}
	return nil
}
