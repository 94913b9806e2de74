package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/compiler"
	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Formula string // candidate formula to check for cycles
}

// InspectResult describes one cell and its neighbourhood in the
// dependency graph.
type InspectResult struct {
	Cell        string   `json:"cell"`
	Raw         string   `json:"raw"`
	Value       string   `json:"value"`
	ParseError  string   `json:"parse_error,omitempty"`
	UnknownDeps bool     `json:"unknown_deps,omitempty"`
	Depth       int      `json:"depth,omitempty"`
	EvalOrder   *int     `json:"eval_order,omitempty"`
	Precedents  []string `json:"precedents"`
	Dependents  []string `json:"dependents"`
	Cycle       []string `json:"cycle,omitempty"`
	CycleText   string   `json:"cycle_message,omitempty"`

	// Candidate and WouldCycle report the --formula check.
	Candidate  string `json:"candidate,omitempty"`
	WouldCycle string `json:"would_cycle,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <workbook> <cell>",
		Short: "Show a cell's precedents, dependents and cycles",
		Long: `Load a workbook and describe one cell: its text and value, the cells
it reads (precedents), the cells that read it (dependents) and the
circular reference it belongs to, if any.

A cell is "B3" on the first sheet or "Name!B3". With --formula, also
report whether storing that formula in the cell would close a cycle.

Exit codes:
  0 - Cell inspected
  2 - Command error (workbook not found, bad cell reference)

Examples:
  gridcalc inspect ./budget.yaml B3
  gridcalc inspect ./budget.yaml 'Totals!C1' --formula "=SUM(Sheet1!C1:C9)"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Formula, "formula", "", "check whether this formula would create a cycle")

	return cmd
}

func runInspect(opts *InspectOptions, path, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	eng, err := opts.openWorkbook(formatter, path)
	if err != nil {
		return err
	}
	id, err := resolveCell(eng, ref)
	if err != nil {
		_ = formatter.Error(ErrCodeBadCell, fmt.Sprintf("cell %q: %v", ref, err), nil)
		return WrapExitError(ExitCommandError, "failed to resolve cell", err)
	}

	result, err := inspectCell(eng, id, opts.Formula)
	if err != nil {
		_ = formatter.Error(ErrCodeBadCell, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to check formula", err)
	}
	return formatter.Success(result)
}

func inspectCell(eng *engine.Engine, id ir.CellID, candidate string) (*InspectResult, error) {
	g := eng.Graph()
	result := &InspectResult{
		Cell:        compiler.CellLabel(eng, id),
		Raw:         eng.Raw(id),
		Value:       ir.ToText(eng.Value(id)),
		UnknownDeps: eng.HasUnknownDeps(id),
		Precedents:  labels(eng, g.Precedents(id)),
		Dependents:  labels(eng, g.Dependents(id)),
	}
	if err := eng.ParseError(id); err != nil {
		result.ParseError = err.Error()
	}
	if r := eng.LastReport(); r != nil {
		if info, ok := r.Info(id); ok {
			result.Depth = info.Depth
			order := info.EvalOrder
			result.EvalOrder = &order
		}
	}

	for _, scc := range g.FindCycleSCCs() {
		if slices.Contains(scc, id) {
			report := g.ReportSCC(scc)
			result.Cycle = labels(eng, report.Cells)
			result.CycleText = report.Message
			break
		}
	}

	if candidate != "" {
		result.Candidate = candidate
		report, err := eng.WouldCreateCycle(id.Sheet, id.Row, id.Col, candidate)
		if err != nil {
			return nil, err
		}
		if report != nil {
			result.WouldCycle = report.Message
		}
	}
	return result, nil
}

func labels(eng *engine.Engine, cells []ir.CellID) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = compiler.CellLabel(eng, c)
	}
	return out
}

// WriteText renders the result for the terminal.
func (r *InspectResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s\n", r.Cell)
	fmt.Fprintf(w, "  raw:        %s\n", r.Raw)
	fmt.Fprintf(w, "  value:      %s\n", r.Value)
	if r.ParseError != "" {
		fmt.Fprintf(w, "  parse:      %s\n", r.ParseError)
	}
	if r.EvalOrder != nil {
		fmt.Fprintf(w, "  depth:      %d (eval order %d)\n", r.Depth, *r.EvalOrder)
	}
	if r.UnknownDeps {
		fmt.Fprintln(w, "  dynamic:    reads cells chosen at evaluation time")
	}
	fmt.Fprintf(w, "  precedents: %s\n", listOrNone(r.Precedents))
	fmt.Fprintf(w, "  dependents: %s\n", listOrNone(r.Dependents))
	if r.CycleText != "" {
		fmt.Fprintf(w, "  cycle:      %s\n", r.CycleText)
	}
	if r.Candidate != "" {
		if r.WouldCycle != "" {
			fmt.Fprintf(w, "✗ %s would create a cycle: %s\n", r.Candidate, r.WouldCycle)
		} else {
			fmt.Fprintf(w, "✓ %s creates no cycle\n", r.Candidate)
		}
	}
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
