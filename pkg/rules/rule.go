// Package rules holds the detection catalog and the engine that runs it over
// parsed Java files.
package rules

import (
	"embed"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/parser"
	"github.com/panbanda/javaperf/pkg/symbols"
)

//go:embed queries/*.scm
var queryFiles embed.FS

// Category groups rules for listing and filtering.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryConcurrency Category = "concurrency"
	CategoryMemory      Category = "memory"
	CategorySpring      Category = "spring"
	CategoryReactive    Category = "reactive"
	CategoryResource    Category = "resource"
	CategoryException   Category = "exception"
	CategoryDatabase    Category = "database"
	CategoryGraalVM     Category = "graalvm"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPerformance, CategoryConcurrency, CategoryMemory, CategorySpring,
	CategoryReactive, CategoryResource, CategoryException, CategoryDatabase,
	CategoryGraalVM,
}

// Rule describes one detection. Structural rules carry a tree-sitter query
// and a handler; content rules carry a regular expression instead.
type Rule struct {
	ID          string          `json:"id"`
	ReportID    string          `json:"report_id,omitempty"`
	Severity    models.Severity `json:"severity"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Rationale   string          `json:"rationale,omitempty"`
	Fix         string          `json:"fix,omitempty"`
	Query       string          `json:"-"`
	Handler     Handler         `json:"-"`

	// Content is matched against comment-blanked source.
	Content *regexp.Regexp `json:"-"`

	// Guard, when set, must accept the file source before the rule runs.
	Guard func(source []byte) bool `json:"-"`

	// Typed restricts a capture to receivers of a given declared type.
	Typed *TypeFilter `json:"-"`
}

// IssueID is the id issues are reported under. Variant rules share the id
// of their family.
func (r *Rule) IssueID() string {
	if r.ReportID != "" {
		return r.ReportID
	}
	return r.ID
}

// IsContent reports whether the rule is a source-text rule.
func (r *Rule) IsContent() bool {
	return r.Content != nil
}

// RuleContext is everything a handler may consult for one file.
type RuleContext struct {
	Tree       *sitter.Tree
	Source     []byte
	Path       string
	Class      string
	ClassFQN   string
	Imports    *symbols.ImportIndex
	Table      *symbols.SymbolTable
	Graph      *callgraph.CallGraph
	TraceDepth int
}

// Root returns the tree's root node, or nil.
func (c *RuleContext) Root() *sitter.Node {
	if c == nil || c.Tree == nil {
		return nil
	}
	return c.Tree.RootNode()
}

// OwnerFQN returns the FQN of the innermost named type declaring n. Types
// share the package of ClassFQN and are keyed by simple name, the way the
// symbol table keys nested types. Without project context it returns "".
func (c *RuleContext) OwnerFQN(n *sitter.Node) string {
	if c.ClassFQN == "" {
		return ""
	}
	name, _ := parser.EnclosingType(n, c.Source)
	if name == "" {
		return c.ClassFQN
	}
	pkg := ""
	if i := strings.LastIndexByte(c.ClassFQN, '.'); i >= 0 {
		pkg = c.ClassFQN[:i]
	}
	return symbols.QualifiedName(pkg, name)
}

func (c *RuleContext) traceDepth() int {
	if c.TraceDepth > 0 {
		return c.TraceDepth
	}
	return callgraph.DefaultTraceDepth
}

// loadQuery reads the embedded query for a rule id. Missing files yield "".
func loadQuery(id string) string {
	b, err := queryFiles.ReadFile("queries/" + strings.ToLower(id) + ".scm")
	if err != nil {
		return ""
	}
	return string(b)
}

// Registry is an ordered, filterable set of rules.
type Registry struct {
	rules []*Rule
	byID  map[string]*Rule
}

// NewRegistry indexes rules by id. Later duplicates replace earlier ones.
func NewRegistry(rules []*Rule) *Registry {
	r := &Registry{byID: make(map[string]*Rule, len(rules))}
	for _, rule := range rules {
		if _, dup := r.byID[rule.ID]; !dup {
			r.rules = append(r.rules, rule)
		} else {
			for i, existing := range r.rules {
				if existing.ID == rule.ID {
					r.rules[i] = rule
				}
			}
		}
		r.byID[rule.ID] = rule
	}
	return r
}

// Default returns a registry over the built-in catalog.
func Default() *Registry {
	return NewRegistry(Catalog())
}

// All returns the rules in catalog order.
func (r *Registry) All() []*Rule {
	return r.rules
}

// Get returns the rule with id.
func (r *Registry) Get(id string) (*Rule, bool) {
	rule, ok := r.byID[strings.ToUpper(strings.TrimSpace(id))]
	return rule, ok
}

// ByCategory groups rules by category, each group sorted by id.
func (r *Registry) ByCategory() map[Category][]*Rule {
	out := make(map[Category][]*Rule)
	for _, rule := range r.rules {
		out[rule.Category] = append(out[rule.Category], rule)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
	}
	return out
}

// Filter keeps the rules named in enabled (all when empty) minus those in
// disabled. Ids match either a rule id or its reported id, so disabling
// N_PLUS_ONE also disables its loop variants.
func (r *Registry) Filter(enabled, disabled []string) *Registry {
	in := idSet(enabled)
	out := idSet(disabled)

	var kept []*Rule
	for _, rule := range r.rules {
		if len(in) > 0 && !in[rule.ID] && !in[rule.IssueID()] {
			continue
		}
		if out[rule.ID] || out[rule.IssueID()] {
			continue
		}
		kept = append(kept, rule)
	}
	return NewRegistry(kept)
}

// WithSeverity returns a registry where the named rules use the given
// severities. Rules are copied; the receiver is unchanged.
func (r *Registry) WithSeverity(overrides map[string]models.Severity) *Registry {
	if len(overrides) == 0 {
		return r
	}
	norm := make(map[string]models.Severity, len(overrides))
	for id, sev := range overrides {
		norm[strings.ToUpper(id)] = sev
	}

	out := make([]*Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		sev, ok := norm[rule.ID]
		if !ok {
			sev, ok = norm[rule.IssueID()]
		}
		if ok {
			cp := *rule
			cp.Severity = sev
			rule = &cp
		}
		out = append(out, rule)
	}
	return NewRegistry(out)
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			set[id] = true
		}
	}
	return set
}
