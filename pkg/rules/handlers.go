package rules

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/parser"
	"github.com/panbanda/javaperf/pkg/symbols"
)

// Handler turns one query match into at most one issue.
type Handler interface {
	Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue
}

func newIssue(r *Rule, node *sitter.Node, ctx *RuleContext) *models.Issue {
	return &models.Issue{
		RuleID:      r.IssueID(),
		Severity:    r.Severity,
		File:        ctx.Path,
		Line:        parser.Line(node),
		Description: r.Description,
	}
}

func text(m parser.Match, capture string, ctx *RuleContext) string {
	return parser.GetNodeText(m.Capture(capture), ctx.Source)
}

// SimpleMatch reports at the capture's line whenever the query matches.
type SimpleMatch struct {
	Capture string
}

func (h SimpleMatch) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	node := m.Capture(h.Capture)
	if node == nil {
		return nil
	}
	return newIssue(r, node, ctx)
}

// StringContent reports a string literal, quoting at most Max characters.
type StringContent struct {
	Capture string
	Max     int
}

func (h StringContent) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	node := m.Capture(h.Capture)
	if node == nil {
		return nil
	}
	issue := newIssue(r, node, ctx)
	issue.Evidence = truncate(parser.GetNodeText(node, ctx.Source), h.Max)
	return issue
}

// ModifierCheck reports when the captured modifier list contains Modifier.
// The issue sits on the keyword itself.
type ModifierCheck struct {
	Mods     string
	Modifier string
}

func (h ModifierCheck) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	mods := m.Capture(h.Mods)
	if mods == nil {
		return nil
	}
	for i := range int(mods.ChildCount()) {
		if kw := mods.Child(i); kw.Type() == h.Modifier {
			return newIssue(r, kw, ctx)
		}
	}
	return nil
}

// NPlusOne reports data access inside a loop body. Confidence reflects how
// the receiver was identified as a data-access object.
type NPlusOne struct{}

func (NPlusOne) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	call := m.Capture("call")
	method := text(m, "method_name", ctx)
	if call == nil || method == "" {
		return nil
	}
	receiver := strings.TrimPrefix(parser.FieldText(call, "object", ctx.Source), "this.")

	conf := nPlusOneConfidence(call, receiver, method, ctx)
	if conf == models.ConfidenceNone {
		return nil
	}

	evidence := method + "()"
	if receiver != "" {
		evidence = compact(receiver, 40) + "." + evidence
	}
	if chain, ok := repositoryChain(call, ctx); ok {
		evidence += " via " + chain
		if conf == models.ConfidenceMedium {
			conf = models.ConfidenceHigh
		}
	}

	issue := newIssue(r, call, ctx)
	issue.Confidence = conf
	issue.Evidence = evidence
	return issue
}

func nPlusOneConfidence(call *sitter.Node, receiver, method string, ctx *RuleContext) models.Confidence {
	if ctx.Table == nil {
		if symbols.IsDAOVerb(method) || looksLikeDAOReceiver(receiver) {
			return models.ConfidenceLow
		}
		return models.ConfidenceNone
	}

	if receiver == "" {
		if symbols.IsDAOVerb(method) {
			return models.ConfidenceLow
		}
		return models.ConfidenceNone
	}

	// Chained receivers only count when the chain starts at a DAO field.
	if strings.ContainsAny(receiver, "()") {
		root := receiver
		if i := strings.IndexAny(root, ".("); i >= 0 {
			root = root[:i]
		}
		if ctx.Table.IsDAOVar(ctx.OwnerFQN(call), root) && symbols.IsDAOVerb(method) {
			return models.ConfidenceMedium
		}
		return models.ConfidenceNone
	}

	owner := ctx.OwnerFQN(call)
	if !ctx.Table.IsDAOCall(owner, receiver, method) {
		return models.ConfidenceNone
	}
	if t, ok := ctx.Table.LookupVarType(owner, receiver); ok && t.Package != "" &&
		(t.Layer == symbols.LayerRepository || t.IsDAO()) {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

func looksLikeDAOReceiver(receiver string) bool {
	lower := strings.ToLower(receiver)
	for _, frag := range []string{"repo", "dao", "mapper", "service"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// repositoryChain traces from the enclosing method to the repository layer
// and, when possible, back to a controller entry point.
func repositoryChain(call *sitter.Node, ctx *RuleContext) (string, bool) {
	if ctx.Graph == nil || ctx.ClassFQN == "" {
		return "", false
	}
	method, _ := parser.EnclosingMethod(call, ctx.Source)
	if method == "" {
		return "", false
	}

	start := callgraph.ResolvedSig(ctx.OwnerFQN(call), method)
	depth := ctx.traceDepth()
	paths := ctx.Graph.TraceToLayer(start, symbols.LayerRepository, depth)
	if len(paths) == 0 {
		return "", false
	}

	path := paths[0]
	if entries := ctx.Graph.TraceCallersToLayer(start, symbols.LayerController, depth); len(entries) > 0 {
		entry := entries[0]
		path = append(slices.Clone(entry[:len(entry)-1]), path...)
	}
	return callgraph.FormatPath(path), true
}

// NestedLoop reports the inner loop of a nested loop pair.
type NestedLoop struct{}

func (NestedLoop) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	inner := m.Capture("inner_loop")
	if inner == nil {
		return nil
	}
	return newIssue(r, inner, ctx)
}

// ThreadLocalCleanup grades whether remove() covers a ThreadLocal set().
type ThreadLocalCleanup struct{}

func (ThreadLocalCleanup) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	set := m.Capture("set_call")
	v := text(m, "var_name", ctx)
	if set == nil || v == "" {
		return nil
	}
	_, method := parser.EnclosingMethod(set, ctx.Source)
	if method == nil {
		return nil
	}
	return graded(r, set, ctx, v, gradeCleanup(set, method, v, "remove", ctx.Source), "remove()")
}

// LockRelease grades whether unlock() covers a lock() acquisition.
type LockRelease struct{}

func (LockRelease) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	call := m.Capture("lock_call")
	v := text(m, "lock_var", ctx)
	if call == nil || v == "" {
		return nil
	}
	if args := m.Capture("args"); args != nil && args.NamedChildCount() > 0 {
		return nil
	}
	_, method := parser.EnclosingMethod(call, ctx.Source)
	if method == nil {
		return nil
	}
	return graded(r, call, ctx, v, gradeCleanup(call, method, v, "unlock", ctx.Source), "unlock()")
}

func graded(r *Rule, at *sitter.Node, ctx *RuleContext, v string, state cleanupState, release string) *models.Issue {
	var sev models.Severity
	var note string
	switch state {
	case cleanupCovered:
		return nil
	case cleanupMisplaced:
		sev, note = models.SeverityP1, release+" not in a finally block"
	default:
		sev, note = models.SeverityP0, "no "+release+" call"
	}

	issue := newIssue(r, at, ctx)
	issue.Severity = sev
	issue.Confidence = models.ConfidenceHigh
	issue.Description = fmt.Sprintf("%s (%s: %s)", r.Description, v, note)
	issue.Evidence = v
	return issue
}

// StreamResourceLeak reports closeable resources created inside a plain
// try block that its finally clause never closes.
type StreamResourceLeak struct{}

var (
	resourceFragments = []string{"Stream", "Reader", "Writer", "Connection", "Socket", "Channel"}
	inMemoryResources = []string{"ByteArray", "String", "CharArray"}
)

func (StreamResourceLeak) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	try := m.Capture("try_block")
	varNode := m.Capture("var_name")
	if try == nil || varNode == nil {
		return nil
	}
	v := parser.GetNodeText(varNode, ctx.Source)
	typ := symbols.SimpleTypeName(text(m, "type_name", ctx))
	if typ == "var" {
		typ = symbols.SimpleTypeName(parser.FieldText(m.Capture("creation"), "type", ctx.Source))
	}
	if !isResourceType(typ) || closedInFinally(try, v, ctx.Source) {
		return nil
	}

	issue := newIssue(r, varNode, ctx)
	issue.Description = fmt.Sprintf("%s (type %s, variable %s)", r.Description, typ, v)
	issue.Evidence = v
	return issue
}

func isResourceType(typ string) bool {
	for _, p := range inMemoryResources {
		if strings.HasPrefix(typ, p) {
			return false
		}
	}
	for _, f := range resourceFragments {
		if strings.Contains(typ, f) {
			return true
		}
	}
	return false
}

func closedInFinally(try *sitter.Node, v string, src []byte) bool {
	for i := range int(try.NamedChildCount()) {
		fin := try.NamedChild(i)
		if fin.Type() != "finally_clause" {
			continue
		}
		closed := false
		parser.WalkTyped(fin, src, func(n *sitter.Node, nodeType string, src []byte) bool {
			if closed || nodeType != "method_invocation" {
				return !closed
			}
			name := parser.FieldText(n, "name", src)
			obj := strings.TrimPrefix(parser.FieldText(n, "object", src), "this.")
			if name == "close" && obj == v {
				closed = true
			} else if strings.Contains(strings.ToLower(name), "close") && passes(n, v, src) {
				closed = true
			}
			return !closed
		})
		if closed {
			return true
		}
	}
	return false
}

// passes reports whether v is a direct argument of call.
func passes(call *sitter.Node, v string, src []byte) bool {
	for _, arg := range parser.NamedChildren(call.ChildByFieldName("arguments")) {
		if parser.GetNodeText(arg, src) == v {
			return true
		}
	}
	return false
}

// EmptyArgs reports calls whose argument list is empty. A query without
// the Args capture yields nothing.
type EmptyArgs struct {
	Call string
	Args string
}

func (h EmptyArgs) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	args := m.Capture(h.Args)
	call := m.Capture(h.Call)
	if args == nil || call == nil || args.NamedChildCount() > 0 {
		return nil
	}
	return newIssue(r, call, ctx)
}

// MethodCallWithContext reports a call with "receiver.method()" evidence.
// When Unless is set, a later call of that name in the same fluent chain
// clears the report.
type MethodCallWithContext struct {
	Call   string
	Unless string
}

func (h MethodCallWithContext) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	call := m.Capture(h.Call)
	if call == nil {
		return nil
	}
	if h.Unless != "" && chainedCall(call, h.Unless, ctx.Source) {
		return nil
	}
	issue := newIssue(r, call, ctx)
	issue.Evidence = callSummary(call, ctx.Source)
	return issue
}

// chainedCall reports whether name is invoked later in call's fluent chain.
func chainedCall(call *sitter.Node, name string, src []byte) bool {
	cur := call
	for p := cur.Parent(); p != nil && p.Type() == "method_invocation"; p = p.Parent() {
		if !parser.SameNode(p.ChildByFieldName("object"), cur) {
			return false
		}
		if parser.FieldText(p, "name", src) == name {
			return true
		}
		cur = p
	}
	return false
}

func callSummary(call *sitter.Node, src []byte) string {
	name := parser.FieldText(call, "name", src) + "()"
	if obj := parser.FieldText(call, "object", src); obj != "" {
		return compact(obj, 40) + "." + name
	}
	return name
}

// MinArgs reports calls with fewer than N arguments.
type MinArgs struct {
	Call string
	Args string
	N    int
}

func (h MinArgs) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	call := m.Capture(h.Call)
	if call == nil {
		return nil
	}
	args := m.Capture(h.Args)
	if args == nil {
		args = call.ChildByFieldName("arguments")
	}
	n := 0
	for _, a := range parser.NamedChildren(args) {
		if !isComment(a) {
			n++
		}
	}
	if n >= h.N {
		return nil
	}
	issue := newIssue(r, call, ctx)
	issue.Description = fmt.Sprintf("%s (%d argument(s))", r.Description, n)
	issue.Evidence = callSummary(call, ctx.Source)
	return issue
}

// EmptyCatch reports catch blocks that are empty, hold only comments, or
// only print.
type EmptyCatch struct{}

func (EmptyCatch) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	catch := m.Capture("catch")
	body := m.Capture("body")
	if catch == nil || body == nil {
		return nil
	}

	empty := true
	for _, stmt := range parser.NamedChildren(body) {
		if !isComment(stmt) {
			empty = false
			break
		}
	}
	if !empty && !strings.Contains(parser.GetNodeText(body, ctx.Source), ".print") {
		return nil
	}
	return newIssue(r, catch, ctx)
}

func isComment(n *sitter.Node) bool {
	t := n.Type()
	return t == "line_comment" || t == "block_comment" || t == "comment"
}

// LargeArray reports array allocations whose literal size reaches Threshold.
type LargeArray struct {
	Threshold int64
}

func (h LargeArray) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	creation := m.Capture("creation")
	raw := text(m, "size", ctx)
	if creation == nil || raw == "" {
		return nil
	}
	raw = strings.TrimRight(strings.ReplaceAll(raw, "_", ""), "lL")
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size < h.Threshold {
		return nil
	}
	issue := newIssue(r, creation, ctx)
	issue.Description = fmt.Sprintf("%s (size %d)", r.Description, size)
	return issue
}

// fallbackCaptures are tried in order by Fallback.
var fallbackCaptures = []string{"call", "method", "field", "creation", "sync", "outer_if", "assign"}

// Fallback reports at the first conventional capture present. Rules with
// no handler use it.
type Fallback struct{}

func (Fallback) Handle(m parser.Match, r *Rule, ctx *RuleContext) *models.Issue {
	for _, name := range fallbackCaptures {
		if node := m.Capture(name); node != nil {
			return newIssue(r, node, ctx)
		}
	}
	return nil
}

// truncate shortens s to limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// compact folds whitespace and truncates.
func compact(s string, limit int) string {
	return truncate(strings.Join(strings.Fields(s), " "), limit)
}
