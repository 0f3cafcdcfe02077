package rules

import (
	"log/slog"

	"github.com/panbanda/javaperf/internal/logging"
	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/parser"
)

type compiledRule struct {
	rule  *Rule
	query *parser.Query
}

// Engine runs a compiled rule set. It is safe for concurrent use: compiled
// queries are shared and each execution uses its own cursor.
type Engine struct {
	structural []compiledRule
	content    []*Rule
}

// Compile prepares rules for execution. A rule whose query is missing or
// fails to compile is logged and skipped; the rest still run.
func Compile(rules []*Rule, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}

	e := &Engine{}
	for _, r := range rules {
		if r.IsContent() {
			e.content = append(e.content, r)
			continue
		}
		if r.Query == "" {
			logger.Warn("rule has no query, skipping", "rule", r.ID)
			continue
		}
		q, err := parser.CompileQuery(r.Query)
		if err != nil {
			logger.Warn("rule query failed to compile, skipping", "rule", r.ID, "error", err)
			continue
		}
		e.structural = append(e.structural, compiledRule{rule: r, query: q})
	}
	return e
}

// Rules returns the rules that compiled, structural first.
func (e *Engine) Rules() []*Rule {
	out := make([]*Rule, 0, len(e.structural)+len(e.content))
	for _, c := range e.structural {
		out = append(out, c.rule)
	}
	return append(out, e.content...)
}

// Analyze runs every rule over one file and returns deduplicated issues.
// Suppressions are not applied here.
func (e *Engine) Analyze(ctx *RuleContext) []models.Issue {
	var issues []models.Issue

	if root := ctx.Root(); root != nil {
		for _, c := range e.structural {
			r := c.rule
			if r.Guard != nil && !r.Guard(ctx.Source) {
				continue
			}
			handler := r.Handler
			if handler == nil {
				handler = Fallback{}
			}
			for _, m := range c.query.Matches(root, ctx.Source) {
				if r.Typed != nil && !r.Typed.accepts(m.Capture(r.Typed.Capture), ctx) {
					continue
				}
				if issue := handler.Handle(m, r, ctx); issue != nil {
					issues = append(issues, *issue)
				}
			}
		}
	}

	issues = append(issues, analyzeContent(e.content, ctx)...)
	return models.Dedupe(issues)
}

// Close releases compiled queries.
func (e *Engine) Close() {
	for _, c := range e.structural {
		c.query.Close()
	}
	e.structural = nil
}
