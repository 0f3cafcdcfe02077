// Package engine orchestrates a project scan: discovery, per-file symbol
// indexing, global symbol merge, call-graph linking, rule analysis and
// suppression, then report building.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/panbanda/javaperf/internal/cache"
	"github.com/panbanda/javaperf/internal/fileproc"
	"github.com/panbanda/javaperf/internal/logging"
	"github.com/panbanda/javaperf/internal/scanner"
	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/config"
	"github.com/panbanda/javaperf/pkg/index"
	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/parser"
	"github.com/panbanda/javaperf/pkg/rules"
	"github.com/panbanda/javaperf/pkg/suppression"
	"github.com/panbanda/javaperf/pkg/symbols"
)

// ErrNoRules is returned by New when no rule survives selection and
// compilation.
var ErrNoRules = errors.New("no rules enabled")

// Engine scans Java projects. It is safe for concurrent use once built.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	workers    int
	traceDepth int
	cache      *cache.Cache
	progress   Progress
	registry   *rules.Registry
	rules      *rules.Engine
}

// New builds an engine and compiles its rules once.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      config.DefaultConfig(),
		logger:   logging.Discard(),
		progress: nopProgress{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.workers <= 0 {
		e.workers = e.cfg.Scan.Workers
	}
	if e.traceDepth <= 0 {
		e.traceDepth = e.cfg.Scan.TraceDepth
	}
	if e.traceDepth <= 0 {
		e.traceDepth = callgraph.DefaultTraceDepth
	}
	if e.registry == nil {
		reg, err := registryFromConfig(e.cfg, e.logger)
		if err != nil {
			return nil, err
		}
		e.registry = reg
	}

	e.rules = rules.Compile(e.registry.All(), e.logger)
	if len(e.rules.Rules()) == 0 {
		return nil, ErrNoRules
	}
	return e, nil
}

func registryFromConfig(cfg *config.Config, logger *slog.Logger) (*rules.Registry, error) {
	all := rules.Default()
	for _, id := range append(append([]string{}, cfg.Rules.Enabled...), cfg.Rules.Disabled...) {
		if !knownRule(all, id) {
			logger.Warn("unknown rule in config", "rule", id)
		}
	}

	overrides := make(map[string]models.Severity, len(cfg.Rules.Severity))
	for id, s := range cfg.Rules.Severity {
		sev, ok := models.ParseSeverity(s)
		if !ok {
			return nil, fmt.Errorf("%w: rules.severity.%s: %q", config.ErrInvalid, id, s)
		}
		overrides[id] = sev
	}
	return all.Filter(cfg.Rules.Enabled, cfg.Rules.Disabled).WithSeverity(overrides), nil
}

func knownRule(reg *rules.Registry, id string) bool {
	if _, ok := reg.Get(id); ok {
		return true
	}
	want := strings.ToUpper(strings.TrimSpace(id))
	for _, r := range reg.All() {
		if r.IssueID() == want {
			return true
		}
	}
	return false
}

// Rules returns the compiled rules.
func (e *Engine) Rules() []*rules.Rule { return e.rules.Rules() }

// Close releases compiled queries.
func (e *Engine) Close() { e.rules.Close() }

// Scan analyzes every Java file under root. Per-file failures are logged,
// listed in the report and contribute no issues; only an unusable root or
// cancellation fails the scan.
func (e *Engine) Scan(ctx context.Context, root string, compact bool, maxSecondary int) (*models.Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %s: %w", root, err)
	}
	// Discovered paths are under the resolved root.
	if absRoot, err = filepath.EvalSymlinks(absRoot); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	files, err := scanner.NewScanner(e.cfg).ScanDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	files, skipped := scanner.FilterBySize(files, e.cfg.Scan.MaxFileSize)
	if skipped > 0 {
		e.logger.Info("skipped oversized files", "count", skipped, "max_bytes", e.cfg.Scan.MaxFileSize)
	}
	e.logger.Debug("discovered files", "root", absRoot, "files", len(files))

	failed := newFailures(absRoot)

	// Phase 1: per-file symbol extraction.
	e.progress.Start("Indexing", len(files))
	indexes, errs := fileproc.MapFiles(ctx, files, e.workers, func(p *parser.Parser, path string) (*index.FileIndex, error) {
		return e.indexFile(ctx, p, absRoot, path)
	}, e.progress.Tick)
	failed.add(errs, e.logger)
	if err := ctx.Err(); err != nil {
		e.progress.Done()
		return nil, err
	}

	// Reduce: one global symbol table.
	table := symbols.NewSymbolTable()
	for _, fi := range indexes {
		table.Merge(fi.SymbolTable())
	}

	// Link: resolve call sites against the frozen table.
	e.progress.Start("Linking", len(indexes))
	partials, _ := fileproc.Map(ctx, indexes, e.workers, func(fi *index.FileIndex) (*callgraph.CallGraph, error) {
		return fi.Link(table), nil
	}, func(fi *index.FileIndex) string { return fi.Path }, e.progress.Tick)
	graph := callgraph.New()
	for _, g := range partials {
		graph.Merge(g)
	}
	if err := ctx.Err(); err != nil {
		e.progress.Done()
		return nil, err
	}

	// Phase 2: rules with full context.
	byPath := make(map[string]*index.FileIndex, len(indexes))
	paths := make([]string, 0, len(indexes))
	for _, fi := range indexes {
		abs := filepath.Join(absRoot, filepath.FromSlash(fi.Path))
		byPath[abs] = fi
		paths = append(paths, abs)
	}

	var (
		mu     sync.Mutex
		issues []models.Issue
	)
	e.progress.Start("Analyzing", len(paths))
	_, errs = fileproc.MapFiles(ctx, paths, e.workers, func(p *parser.Parser, path string) (struct{}, error) {
		found, err := e.analyzeFile(ctx, p, path, byPath[path], table, graph)
		if err != nil {
			return struct{}{}, err
		}
		mu.Lock()
		issues = append(issues, found...)
		mu.Unlock()
		return struct{}{}, nil
	}, e.progress.Tick)
	failed.add(errs, e.logger)
	e.progress.Done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := models.NewReport(absRoot, len(files), issues, compact, maxSecondary)
	report.Chains = graph.NPlusOneChains(e.traceDepth)
	stats := graph.Stats()
	report.Graph = &stats
	report.Failed = failed.list()
	report.Summary.FailedFiles = len(report.Failed)

	classes, fields, methods := table.Stats()
	e.logger.Debug("scan complete",
		"files", len(files), "failed", len(report.Failed), "issues", len(issues),
		"classes", classes, "fields", fields, "methods", methods, "call_sites", stats.CallSites)
	return report, nil
}

// indexFile runs phase one for one file, consulting the cache first.
func (e *Engine) indexFile(ctx context.Context, p *parser.Parser, root, path string) (*index.FileIndex, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	rel := relPath(root, path)

	hash := cache.HashBytes(src)
	if fi, ok := cache.Load[*index.FileIndex](e.cache, path, hash); ok && fi != nil && fi.Path == rel {
		return fi, nil
	}

	res, err := p.ParseCtx(ctx, src, rel)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	fi := index.Build(res)
	if err := cache.Store(e.cache, path, hash, fi); err != nil {
		e.logger.Debug("cache write failed", "path", rel, "error", err)
	}
	return fi, nil
}

// analyzeFile runs phase two for one file.
func (e *Engine) analyzeFile(
	ctx context.Context,
	p *parser.Parser,
	path string,
	fi *index.FileIndex,
	table *symbols.SymbolTable,
	graph *callgraph.CallGraph,
) ([]models.Issue, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	res, err := p.ParseCtx(ctx, src, fi.Path)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	rc := &rules.RuleContext{
		Tree:       res.Tree,
		Source:     res.Source,
		Path:       fi.Path,
		Imports:    fi.Imports,
		Table:      table,
		Graph:      graph,
		TraceDepth: e.traceDepth,
	}
	if t := fi.Primary(); t != nil {
		rc.Class = t.Type.Name
		rc.ClassFQN = t.Type.FQN
	}
	return e.finish(rc), nil
}

// finish runs the rules, then drops suppressed and path-ignored issues.
func (e *Engine) finish(rc *rules.RuleContext) []models.Issue {
	issues := e.rules.Analyze(rc)
	if len(issues) == 0 {
		return nil
	}
	issues = suppression.Parse(string(rc.Source)).Filter(issues)
	out := issues[:0]
	for _, i := range issues {
		if !e.cfg.RuleIgnored(i.RuleID, rc.Path) {
			out = append(out, i)
		}
	}
	return out
}

// ScanOne analyzes a single source without project context: no symbol
// table and no call graph, so N+1 findings are heuristic only.
func (e *Engine) ScanOne(source []byte, path string) ([]models.Issue, error) {
	p := parser.New()
	defer p.Close()

	res, err := p.Parse(source, path)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	rc := &rules.RuleContext{
		Tree:       res.Tree,
		Source:     res.Source,
		Path:       filepath.ToSlash(path),
		TraceDepth: e.traceDepth,
	}
	issues := e.finish(rc)
	models.SortIssues(issues)
	return issues, nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// failures collects per-file errors across phases, first error per file.
type failures struct {
	root  string
	byRel map[string]string
}

func newFailures(root string) *failures {
	return &failures{root: root, byRel: make(map[string]string)}
}

func (f *failures) add(errs *fileproc.ProcessingErrors, logger *slog.Logger) {
	if !errs.HasErrors() {
		return
	}
	for _, pe := range errs.Errors {
		if errors.Is(pe.Err, context.Canceled) || errors.Is(pe.Err, context.DeadlineExceeded) {
			continue
		}
		rel := relPath(f.root, pe.Path)
		if _, seen := f.byRel[rel]; seen {
			continue
		}
		f.byRel[rel] = pe.Err.Error()
		logger.Warn("file analysis failed", "path", rel, "error", pe.Err)
	}
}

func (f *failures) list() []models.FailedFile {
	if len(f.byRel) == 0 {
		return nil
	}
	out := make([]models.FailedFile, 0, len(f.byRel))
	for path, msg := range f.byRel {
		out = append(out, models.FailedFile{Path: path, Error: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
