package engine

import (
	"log/slog"

	"github.com/panbanda/javaperf/internal/cache"
	"github.com/panbanda/javaperf/pkg/config"
	"github.com/panbanda/javaperf/pkg/rules"
)

// Progress receives scan progress. Start opens a phase of total items, Tick
// is called once per item from any goroutine, Done closes the last phase.
type Progress interface {
	Start(phase string, total int)
	Tick()
	Done()
}

type nopProgress struct{}

func (nopProgress) Start(string, int) {}
func (nopProgress) Tick()             {}
func (nopProgress) Done()             {}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the configuration. Rule selection, severity overrides,
// exclusions and scan limits are taken from it.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithLogger sets the logger for per-file failures and diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkers bounds parallelism. Zero uses the config value, then
// 2x NumCPU.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithTraceDepth bounds call-graph tracing.
func WithTraceDepth(n int) Option {
	return func(e *Engine) { e.traceDepth = n }
}

// WithCache enables the phase-one index cache.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithProgress reports scan progress.
func WithProgress(p Progress) Option {
	return func(e *Engine) {
		if p != nil {
			e.progress = p
		}
	}
}

// WithRules replaces the rule set. Config rule selection and severity
// overrides are not applied to it.
func WithRules(r *rules.Registry) Option {
	return func(e *Engine) { e.registry = r }
}
