package engine

import (
	"log/slog"

	"github.com/roach88/gridcalc/internal/config"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/recalc"
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxIterations caps the rounds spent resolving one circular reference.
func WithMaxIterations(n int) Option {
	return func(e *Engine) { e.maxIterations = n }
}

// WithTolerance sets the convergence tolerance for circular references.
func WithTolerance(tol float64) Option {
	return func(e *Engine) { e.tolerance = tol }
}

// WithMaxReportErrors caps the errors kept in each recalc report.
func WithMaxReportErrors(n int) Option {
	return func(e *Engine) { e.maxErrors = n }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source for TODAY, NOW and report timings.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMetrics records every recalc pass in m.
func WithMetrics(m *recalc.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithParseCache shares a parse cache across formula edits.
func WithParseCache(pc *formula.ParseCache) Option {
	return func(e *Engine) { e.parseCache = pc }
}

// WithRandom sets the source for RAND and RANDBETWEEN. fn must return
// numbers in [0,1).
func WithRandom(fn func() float64) Option {
	return func(e *Engine) { e.random = fn }
}

// FromConfig applies the engine settings of cfg. A zero ParseCacheSize
// leaves formulas uncached.
func FromConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.maxIterations = cfg.MaxIterations
		e.tolerance = cfg.Tolerance
		e.maxErrors = cfg.MaxReportErrors
		if cfg.ParseCacheSize > 0 {
			if pc, err := formula.NewParseCache(cfg.ParseCacheSize); err == nil {
				e.parseCache = pc
			}
		}
	}
}
