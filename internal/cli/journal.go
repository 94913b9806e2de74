package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Session string // show one session's batches
	Replay  bool   // re-execute sessions and verify determinism
}

// JournalListing is the output of the journal command without --replay.
type JournalListing struct {
	Journal  string                 `json:"journal"`
	Sessions []store.SessionSummary `json:"sessions,omitempty"`

	// Set when a single session is shown.
	Session string                    `json:"session,omitempty"`
	Batches []BatchView               `json:"batches,omitempty"`
	Events  map[harness.EventKind]int `json:"events,omitempty"`
}

// BatchView is one journaled batch.
type BatchView struct {
	Seq      int64               `json:"seq"`
	ID       string              `json:"id"`
	Atomic   bool                `json:"atomic"`
	Applied  int                 `json:"applied"`
	Total    int                 `json:"total"`
	Revision int64               `json:"revision"`
	Error    *harness.BatchError `json:"error,omitempty"`
	Changed  int                 `json:"changed"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string   `json:"session"`
	Batches       int      `json:"batches"`
	StateHash     string   `json:"state_hash"`
	Deterministic bool     `json:"deterministic"`
	Mismatches    []string `json:"mismatches,omitempty"`
}

// JournalReplay holds the overall replay result.
type JournalReplay struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal <db>",
		Short: "List or replay the sessions in a journal",
		Long: `Read a sqlite journal written by apply.

Without flags, list every session with its batch counts and revision
range. With --session, list that session's batches and event counts.
With --replay, rebuild each session (or just --session) from its first
snapshot, re-apply every batch and verify the outcome matches.

Exit codes:
  0 - Listed, or every replayed session is deterministic
  1 - Replay diverged from the journal
  2 - Command error (journal not found, unknown session)

Examples:
  gridcalc journal ./gridcalc.db
  gridcalc journal ./gridcalc.db --session 0192f0c4-...
  gridcalc journal ./gridcalc.db --replay --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "show or replay a single session")
	cmd.Flags().BoolVar(&opts.Replay, "replay", false, "replay sessions and verify determinism")

	return cmd
}

func runJournal(ctx context.Context, opts *JournalOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	// Open would create an empty journal.
	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if opts.Session != "" {
		var found bool
		for _, s := range sessions {
			if s.ID == opts.Session {
				sessions = []store.SessionSummary{s}
				found = true
				break
			}
		}
		if !found {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
		}
	}

	if opts.Replay {
		return replaySessions(ctx, opts, st, sessions, formatter)
	}

	listing := &JournalListing{Journal: path, Sessions: sessions}
	if opts.Session != "" {
		batches, err := st.ListBatches(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list batches", err)
		}
		counts, err := st.EventCounts(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count events", err)
		}
		listing.Session = opts.Session
		listing.Events = counts
		for _, b := range batches {
			listing.Batches = append(listing.Batches, BatchView{
				Seq:      b.Seq,
				ID:       b.ID,
				Atomic:   b.Atomic,
				Applied:  b.Applied,
				Total:    b.Total,
				Revision: b.Revision,
				Error:    b.Error,
				Changed:  len(b.Changed),
			})
		}
	}
	return formatter.Success(listing)
}

func replaySessions(ctx context.Context, opts *JournalOptions, st *store.Store, sessions []store.SessionSummary, formatter *OutputFormatter) error {
	result := &JournalReplay{Sessions: []ReplaySessionResult{}, AllDeterministic: true}
	for _, s := range sessions {
		formatter.VerboseLog("Replaying session %s (%d batches)", s.ID, s.Batches)
		rr, err := st.Replay(ctx, s.ID, opts.engineOptions()...)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", s.ID), err)
		}
		result.Sessions = append(result.Sessions, ReplaySessionResult{
			Session:       s.ID,
			Batches:       rr.Batches,
			StateHash:     rr.StateHash,
			Deterministic: rr.Deterministic(),
			Mismatches:    rr.Mismatches,
		})
		if !rr.Deterministic() {
			result.AllDeterministic = false
		}
	}

	if !result.AllDeterministic {
		msg := "replay diverged from the journal"
		if err := formatter.Failure(result, ErrCodeNotDeterministic, msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.Success(result)
}

// WriteText renders the listing for the terminal.
func (l *JournalListing) WriteText(w io.Writer) error {
	if l.Session == "" {
		if len(l.Sessions) == 0 {
			fmt.Fprintf(w, "No sessions in %s.\n", l.Journal)
			return nil
		}
		fmt.Fprintf(w, "%-40s %8s %7s %s\n", "SESSION", "BATCHES", "FAILED", "REVISIONS")
		for _, s := range l.Sessions {
			fmt.Fprintf(w, "%-40s %8d %7d %d..%d\n", s.ID, s.Batches, s.Failed, s.FirstRevision, s.LastRevision)
		}
		return nil
	}

	fmt.Fprintf(w, "Session %s\n", l.Session)
	if len(l.Batches) == 0 {
		fmt.Fprintln(w, "  no batches")
	}
	for _, b := range l.Batches {
		mode := "partial"
		if b.Atomic {
			mode = "atomic"
		}
		fmt.Fprintf(w, "  #%d %s %s applied=%d/%d revision=%d changed=%d", b.Seq, b.ID, mode, b.Applied, b.Total, b.Revision, b.Changed)
		if b.Error != nil {
			fmt.Fprintf(w, " error=%s@%d", b.Error.Code, b.Error.OpIndex)
		}
		fmt.Fprintln(w)
	}
	if len(l.Events) > 0 {
		kinds := []harness.EventKind{harness.EventRevisionChanged, harness.EventCellsChanged, harness.EventBatchApplied}
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", k, l.Events[k]))
		}
		fmt.Fprintf(w, "  events: %s\n", strings.Join(parts, " "))
	}
	return nil
}

// WriteText renders the replay result for the terminal.
func (r *JournalReplay) WriteText(w io.Writer) error {
	if len(r.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions found in journal.")
		return nil
	}
	for _, s := range r.Sessions {
		if s.Deterministic {
			fmt.Fprintf(w, "✓ %s: %d batch(es) replayed, state %s\n", s.Session, s.Batches, shortHash(s.StateHash))
			continue
		}
		fmt.Fprintf(w, "✗ %s: %d mismatch(es)\n", s.Session, len(s.Mismatches))
		for _, m := range s.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	if r.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions deterministic")
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
