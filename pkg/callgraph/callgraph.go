// Package callgraph records which methods call which and traces call chains
// across architectural layers.
package callgraph

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/panbanda/javaperf/pkg/symbols"
)

// MethodSig identifies a method by owning class and name. The owner is either
// a resolved fully qualified class name or an unresolved simple name; the two
// states never compare equal.
type MethodSig struct {
	Class    string `json:"class" yaml:"class"`
	Method   string `json:"method" yaml:"method"`
	Resolved bool   `json:"resolved" yaml:"resolved"`
}

// ResolvedSig builds a reference to a method on a known FQN.
func ResolvedSig(classFQN, method string) MethodSig {
	return MethodSig{Class: classFQN, Method: method, Resolved: true}
}

// UnresolvedSig builds a reference whose owner could not be resolved.
func UnresolvedSig(simpleClass, method string) MethodSig {
	return MethodSig{Class: simpleClass, Method: method}
}

// IsResolved reports whether the owner is a resolved FQN.
func (m MethodSig) IsResolved() bool { return m.Resolved }

// IsUnresolved reports whether the owner is only a simple name.
func (m MethodSig) IsUnresolved() bool { return !m.Resolved }

// HasQualifiedOwner reports whether the owner resolved to a name inside a
// package rather than the default package.
func (m MethodSig) HasQualifiedOwner() bool {
	return m.Resolved && strings.Contains(m.Class, ".")
}

// SimpleClassName returns the last segment of the owner.
func (m MethodSig) SimpleClassName() string {
	if i := strings.LastIndexByte(m.Class, '.'); i >= 0 {
		return m.Class[i+1:]
	}
	return m.Class
}

func (m MethodSig) String() string {
	if m.Resolved {
		return m.Class + "." + m.Method
	}
	return "?" + m.Class + "." + m.Method
}

// Resolve turns a receiver type name into a MethodSig. Names containing a dot
// are treated as already qualified; simple names go through the file's
// import index against the classes known to table.
func Resolve(receiverType, method string, idx *symbols.ImportIndex, table *symbols.SymbolTable) MethodSig {
	if strings.Contains(receiverType, ".") {
		return ResolvedSig(receiverType, method)
	}
	var known symbols.KnownClasses
	if table != nil {
		known = table.KnownClasses()
	}
	if fqn, ok := idx.Resolve(receiverType, known); ok {
		return ResolvedSig(fqn, method)
	}
	return UnresolvedSig(receiverType, method)
}

// CallSite is one invocation in source.
type CallSite struct {
	File   string    `json:"file" yaml:"file"`
	Line   int       `json:"line" yaml:"line"`
	Caller MethodSig `json:"caller" yaml:"caller"`
	Callee MethodSig `json:"callee" yaml:"callee"`
}

func (c CallSite) key() string {
	return fmt.Sprintf("%s:%d:%s->%s", c.File, c.Line, c.Caller, c.Callee)
}

// CallGraph is a directed multigraph of call sites.
type CallGraph struct {
	Outgoing    map[MethodSig][]CallSite
	Incoming    map[MethodSig][]CallSite
	ClassFiles  map[string]string
	ClassLayers map[string]symbols.Layer
}

// New returns an empty call graph.
func New() *CallGraph {
	return &CallGraph{
		Outgoing:    make(map[MethodSig][]CallSite),
		Incoming:    make(map[MethodSig][]CallSite),
		ClassFiles:  make(map[string]string),
		ClassLayers: make(map[string]symbols.Layer),
	}
}

// AddCall records caller -> callee at file:line in both directions.
func (g *CallGraph) AddCall(caller, callee MethodSig, file string, line int) {
	site := CallSite{File: file, Line: line, Caller: caller, Callee: callee}
	g.Outgoing[caller] = append(g.Outgoing[caller], site)
	g.Incoming[callee] = append(g.Incoming[callee], site)
}

// RegisterClass records where a class lives and its layer.
func (g *CallGraph) RegisterClass(fqn, file string, layer symbols.Layer) {
	g.ClassFiles[fqn] = file
	g.ClassLayers[fqn] = layer
}

// LayerOf returns the layer of a method's owner, looked up by FQN first and
// by simple name second. A simple name that maps to classes on different
// layers is ambiguous and yields LayerUnknown.
func (g *CallGraph) LayerOf(sig MethodSig) symbols.Layer {
	if l, ok := g.ClassLayers[sig.Class]; ok {
		return l
	}
	simple := sig.SimpleClassName()
	found := symbols.LayerUnknown
	for fqn, l := range g.ClassLayers {
		if fqn != simple && !strings.HasSuffix(fqn, "."+simple) {
			continue
		}
		if found != symbols.LayerUnknown && found != l {
			return symbols.LayerUnknown
		}
		found = l
	}
	return found
}

// Methods returns every method that appears in the graph, sorted.
func (g *CallGraph) Methods() []MethodSig {
	seen := make(map[MethodSig]struct{})
	for m := range g.Outgoing {
		seen[m] = struct{}{}
	}
	for m := range g.Incoming {
		seen[m] = struct{}{}
	}
	out := make([]MethodSig, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sortSigs(out)
	return out
}

// EdgeCount returns the number of recorded call sites.
func (g *CallGraph) EdgeCount() int {
	n := 0
	for _, sites := range g.Outgoing {
		n += len(sites)
	}
	return n
}

// Merge folds other into g. Edge lists are deduplicated and sorted so the
// result does not depend on merge order; class maps are last-write-wins.
func (g *CallGraph) Merge(other *CallGraph) {
	if other == nil {
		return
	}
	for sig, sites := range other.Outgoing {
		g.Outgoing[sig] = mergeSites(g.Outgoing[sig], sites)
	}
	for sig, sites := range other.Incoming {
		g.Incoming[sig] = mergeSites(g.Incoming[sig], sites)
	}
	for fqn, file := range other.ClassFiles {
		g.ClassFiles[fqn] = file
	}
	for fqn, layer := range other.ClassLayers {
		g.ClassLayers[fqn] = layer
	}
}

func mergeSites(dst, src []CallSite) []CallSite {
	seen := make(map[string]struct{}, len(dst)+len(src))
	out := make([]CallSite, 0, len(dst)+len(src))
	for _, list := range [][]CallSite{dst, src} {
		for _, s := range list {
			k := s.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

func sortSigs(sigs []MethodSig) {
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].String() < sigs[j].String() })
}

// RawCall is an unresolved invocation extracted from one method body.
type RawCall struct {
	Caller   string `json:"caller" yaml:"caller"`
	Receiver string `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	Method   string `json:"method" yaml:"method"`
	Line     int    `json:"line" yaml:"line"`
}

// ResolveCall determines the callee of a raw call made from ownerFQN.
// An empty receiver is a call on the owner itself, a field receiver uses the
// field's declared type, and a capitalised receiver is a static call on a
// type. Anything else is a local whose type is unknown.
func ResolveCall(ownerFQN string, call RawCall, idx *symbols.ImportIndex, table *symbols.SymbolTable) MethodSig {
	recv := call.Receiver
	switch {
	case recv == "":
		return ResolvedSig(ownerFQN, call.Method)
	case table != nil:
		if b, ok := table.LookupField(ownerFQN, recv); ok {
			return Resolve(b.TypeName, call.Method, idx, table)
		}
	}
	if strings.Contains(recv, ".") || startsUpper(recv) {
		return Resolve(recv, call.Method, idx, table)
	}
	return UnresolvedSig(recv, call.Method)
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
