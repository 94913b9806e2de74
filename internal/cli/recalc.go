package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/compiler"
	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/recalc"
)

// RecalcOptions holds flags for the recalc command.
type RecalcOptions struct {
	*RootOptions
	Top     int  // hotspots to print; negative uses the config value
	Values  bool // print every cell value
	Metrics bool // print the recalc metrics in Prometheus text format
}

// RecalcResult is the output of the recalc command.
type RecalcResult struct {
	Workbook        string        `json:"workbook"`
	Revision        int64         `json:"revision"`
	Summary         string        `json:"summary"`
	CellsRecomputed int           `json:"cells_recomputed"`
	MaxDepth        int           `json:"max_depth"`
	SCCCount        int           `json:"scc_count"`
	Converged       bool          `json:"converged"`
	Errors          []CellMessage `json:"errors,omitempty"`
	Cycles          []string      `json:"cycles,omitempty"`
	Hotspots        []HotspotView `json:"hotspots"`
	Values          []CellValue   `json:"values,omitempty"`
	Metrics         string        `json:"metrics,omitempty"`
}

// CellMessage pairs a cell label with a message.
type CellMessage struct {
	Cell    string `json:"cell"`
	Message string `json:"message"`
}

// HotspotView is a recalc.Hotspot labelled with its sheet name.
type HotspotView struct {
	Cell           string  `json:"cell"`
	Score          float64 `json:"score"`
	FanIn          int     `json:"fan_in"`
	FanOut         int     `json:"fan_out"`
	Depth          int     `json:"depth"`
	HasUnknownDeps bool    `json:"has_unknown_deps,omitempty"`
}

// CellValue is one non-empty cell: its entered text and computed value.
type CellValue struct {
	Cell  string `json:"cell"`
	Raw   string `json:"raw"`
	Value string `json:"value"`
}

// NewRecalcCommand creates the recalc command.
func NewRecalcCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecalcOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recalc <workbook>",
		Short: "Recompute a workbook and report the pass",
		Long: `Load a workbook (.yaml, .yml, .json or .cue), recompute every formula in
dependency order and print the recalc report, the hotspots and the
resulting cell values.

Exit codes:
  0 - Recomputed
  2 - Command error (workbook not found, invalid workbook)

Examples:
  gridcalc recalc ./budget.yaml
  gridcalc recalc ./budget.cue --top 5 --metrics
  gridcalc recalc ./budget.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecalc(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Top, "top", -1, "hotspots to print (default from config)")
	cmd.Flags().BoolVar(&opts.Values, "values", true, "print cell values")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print recalc metrics")

	return cmd
}

func runRecalc(opts *RecalcOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var reg *prometheus.Registry
	var extra []engine.Option
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		extra = append(extra, engine.WithMetrics(recalc.NewMetrics(reg)))
	}

	// Loading recomputes the whole workbook; its report is the pass.
	eng, err := opts.openWorkbook(formatter, path, extra...)
	if err != nil {
		return err
	}

	top := opts.Top
	if top < 0 {
		top = opts.settings().HotspotTop
	}
	result := buildRecalcResult(eng, path, eng.LastReport(), top, opts.Values)

	if reg != nil {
		text, err := metricsText(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
		result.Metrics = text
	}

	opts.logger().Info("recalc complete", "workbook", path, "cells", result.CellsRecomputed, "errors", len(result.Errors))
	return formatter.Success(result)
}

func buildRecalcResult(eng *engine.Engine, path string, r *recalc.Report, top int, values bool) *RecalcResult {
	result := &RecalcResult{
		Workbook:        path,
		Revision:        eng.Revision(),
		Summary:         r.Summary(),
		CellsRecomputed: r.CellsRecomputed,
		MaxDepth:        r.MaxDepth,
		SCCCount:        r.SCCCount,
		Converged:       r.Converged,
		Hotspots:        []HotspotView{},
	}
	for _, e := range r.Errors {
		result.Errors = append(result.Errors, CellMessage{Cell: compiler.CellLabel(eng, e.Cell), Message: e.Message})
	}
	for _, c := range r.Cycles {
		result.Cycles = append(result.Cycles, c.Message)
	}
	for _, h := range r.Hotspots(eng.Graph(), top) {
		result.Hotspots = append(result.Hotspots, HotspotView{
			Cell:           compiler.CellLabel(eng, h.Cell),
			Score:          h.Score,
			FanIn:          h.FanIn,
			FanOut:         h.FanOut,
			Depth:          h.Depth,
			HasUnknownDeps: h.HasUnknownDeps,
		})
	}
	if values {
		result.Values = cellValues(eng)
	}
	return result
}

// cellValues lists the non-empty cells of every sheet in sheet, row,
// column order.
func cellValues(eng *engine.Engine) []CellValue {
	out := []CellValue{}
	for _, sh := range eng.Sheets() {
		for _, id := range eng.Cells(sh.ID) {
			out = append(out, CellValue{
				Cell:  compiler.CellLabel(eng, id),
				Raw:   eng.Raw(id),
				Value: ir.ToText(eng.Value(id)),
			})
		}
	}
	return out
}

func metricsText(reg *prometheus.Registry) (string, error) {
	families, err := reg.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// WriteText renders the result for the terminal.
func (r *RecalcResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Recalculated %s at revision %d\n", r.Workbook, r.Revision)
	fmt.Fprintf(w, "  %s\n", r.Summary)
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.Cell, e.Message)
		}
	}
	if len(r.Cycles) > 0 {
		fmt.Fprintln(w, "Cycles:")
		for _, c := range r.Cycles {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	if len(r.Hotspots) > 0 {
		fmt.Fprintln(w, "Hotspots:")
		for _, h := range r.Hotspots {
			fmt.Fprintf(w, "  %-14s score=%-6g fan_in=%d fan_out=%d depth=%d\n", h.Cell, h.Score, h.FanIn, h.FanOut, h.Depth)
		}
	}
	if len(r.Values) > 0 {
		fmt.Fprintln(w, "Values:")
		for _, v := range r.Values {
			fmt.Fprintf(w, "  %s = %s\n", v.Cell, v.Value)
		}
	}
	if r.Metrics != "" {
		fmt.Fprintln(w, "Metrics:")
		_, err := io.WriteString(w, r.Metrics)
		return err
	}
	return nil
}
