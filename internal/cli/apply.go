package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/compiler"
	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Atomic  bool   // roll back every op if one fails
	Journal string // sqlite journal; empty uses the config value
	Out     string // write the resulting workbook here
}

// ApplyOutput is the output of the apply command.
type ApplyOutput struct {
	Session  string              `json:"session"`
	Batch    string              `json:"batch"`
	Atomic   bool                `json:"atomic"`
	Applied  int                 `json:"applied"`
	Total    int                 `json:"total"`
	Revision int64               `json:"revision"`
	Error    *harness.BatchError `json:"error,omitempty"`
	Changed  []string            `json:"changed"`
	Events   []harness.Event     `json:"events"`
	Values   []CellValue         `json:"values"`
	Journal  string              `json:"journal,omitempty"`
	Written  string              `json:"written,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <workbook> <ops.yaml>",
		Short: "Apply a batch of edits to a workbook",
		Long: `Apply the ops in an ops file to a workbook as one batch and print the
outcome, the events it emitted and the resulting values.

A non-atomic batch stops at the first failing op and keeps the ops
before it. An atomic batch (--atomic, or atomic: true in the ops file)
rolls back every edit when an op fails.

With a journal (--journal or journal_path in the config) the session's
snapshots, the batch and its events are stored in sqlite.

Exit codes:
  0 - Every op applied
  1 - An op failed
  2 - Command error (workbook or ops file not found, journal error)

Examples:
  gridcalc apply ./budget.yaml ./edits.yaml
  gridcalc apply ./budget.yaml ./edits.yaml --atomic --journal ./gridcalc.db
  gridcalc apply ./budget.yaml ./edits.yaml --out ./budget-next.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Atomic, "atomic", false, "roll back the whole batch if an op fails")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the resulting workbook (.yaml, .yml or .json)")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, workbookPath, opsPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	eng, err := opts.openWorkbook(formatter, workbookPath)
	if err != nil {
		return err
	}
	batch, err := LoadOps(opsPath)
	if err != nil {
		code, msg := splitLoadError(err)
		_ = formatter.Error(code, msg, nil)
		return WrapExitError(ExitCommandError, "failed to load ops", err)
	}
	atomic := opts.Atomic || batch.Atomic

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = opts.settings().JournalPath
	}
	var journal *store.Store
	if journalPath != "" {
		journal, err = store.Open(journalPath)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer journal.Close()
	}

	sess := harness.NewSession(eng, harness.WithLogger(logger))
	if journal != nil {
		if err := saveSnapshot(ctx, journal, sess.ID(), eng); err != nil {
			return WrapExitError(ExitCommandError, "failed to journal workbook", err)
		}
	}

	res := sess.ApplyOps(batch.Ops, atomic)
	events := sess.Events()
	logger.Info("batch applied", "session", sess.ID(), "batch", res.BatchID, "applied", res.Applied, "total", res.Total, "revision", res.Revision)

	out := &ApplyOutput{
		Session:  sess.ID(),
		Batch:    res.BatchID,
		Atomic:   atomic,
		Applied:  res.Applied,
		Total:    res.Total,
		Revision: res.Revision,
		Error:    res.Error,
		Changed:  []string{},
		Events:   events,
		Values:   cellValues(eng),
	}
	for _, c := range res.Changed {
		out.Changed = append(out.Changed, compiler.CellLabel(eng, c))
	}

	if journal != nil {
		if _, err := journal.AppendBatch(ctx, store.NewBatch(sess.ID(), batch.Ops, atomic, res, events)); err != nil {
			return WrapExitError(ExitCommandError, "failed to journal batch", err)
		}
		if err := saveSnapshot(ctx, journal, sess.ID(), eng); err != nil {
			return WrapExitError(ExitCommandError, "failed to journal workbook", err)
		}
		out.Journal = journalPath
		formatter.VerboseLog("Journaled session %s to %s", sess.ID(), journalPath)
	}

	if opts.Out != "" {
		if err := WriteWorkbook(opts.Out, eng.Snapshot()); err != nil {
			code, msg := splitLoadError(err)
			_ = formatter.Error(code, msg, nil)
			return WrapExitError(ExitCommandError, "failed to write workbook", err)
		}
		out.Written = opts.Out
	}

	if res.Error != nil {
		msg := fmt.Sprintf("batch stopped at op %d: %s", res.Error.OpIndex, res.Error.Message)
		if err := formatter.Failure(out, ErrCodeBatchFailed, msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.Success(out)
}

func saveSnapshot(ctx context.Context, journal *store.Store, sessionID string, eng *engine.Engine) error {
	hash, err := eng.StateHash()
	if err != nil {
		return err
	}
	return journal.SaveWorkbook(ctx, sessionID, eng.Snapshot(), hash)
}

// WriteText renders the result for the terminal.
func (o *ApplyOutput) WriteText(w io.Writer) error {
	mode := "partial"
	if o.Atomic {
		mode = "atomic"
	}
	fmt.Fprintf(w, "Batch %s (%s): applied %d of %d, revision %d\n", o.Batch, mode, o.Applied, o.Total, o.Revision)
	if o.Error != nil {
		fmt.Fprintf(w, "✗ op %d failed: %s: %s\n", o.Error.OpIndex, o.Error.Code, o.Error.Message)
	}
	if len(o.Events) > 0 {
		fmt.Fprintln(w, "Events:")
		for _, ev := range o.Events {
			fmt.Fprintf(w, "  %s\n", ev)
		}
	}
	if len(o.Values) > 0 {
		fmt.Fprintln(w, "Values:")
		for _, v := range o.Values {
			fmt.Fprintf(w, "  %s = %s\n", v.Cell, v.Value)
		}
	}
	if o.Journal != "" {
		fmt.Fprintf(w, "Journaled session %s to %s\n", o.Session, o.Journal)
	}
	if o.Written != "" {
		fmt.Fprintf(w, "Wrote %s\n", o.Written)
	}
	return nil
}
