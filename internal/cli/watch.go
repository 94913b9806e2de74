package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration // quiet period before a change is picked up
	Values   bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <workbook>",
		Short: "Recompute a workbook whenever it changes",
		Long: `Recompute a workbook, then watch the file and recompute it again after
every change until interrupted. A change that leaves the file unreadable
is reported and the previous result is kept.

Examples:
  gridcalc watch ./budget.yaml
  gridcalc watch ./budget.cue --debounce 500ms --values=false`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before recomputing")
	cmd.Flags().BoolVar(&opts.Values, "values", true, "print cell values after each pass")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	target, err := filepath.Abs(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve workbook path", err)
	}

	// The first pass must succeed; later ones only report.
	if err := opts.watchPass(formatter, path, 1); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch workbook directory", err)
	}
	logger.Info("watching workbook", "path", target, "debounce", opts.Debounce)

	var timer *time.Timer
	var fire <-chan time.Time
	pass := 1
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch stopped", "path", target, "passes", pass)
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWorkbookChange(ev, target) {
				continue
			}
			logger.Debug("workbook changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
			} else {
				timer.Reset(opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			pass++
			if err := opts.watchPass(formatter, path, pass); err != nil {
				logger.Warn("recalc failed", "path", target, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func isWorkbookChange(ev fsnotify.Event, target string) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// watchPass loads and recomputes the workbook and prints the result.
func (o *WatchOptions) watchPass(formatter *OutputFormatter, path string, pass int) error {
	eng, err := o.openWorkbook(formatter, path)
	if err != nil {
		return err
	}
	result := buildRecalcResult(eng, path, eng.LastReport(), o.settings().HotspotTop, o.Values)
	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "[pass %d] ", pass)
	}
	return formatter.Success(result)
}
