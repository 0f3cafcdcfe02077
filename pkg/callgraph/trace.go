package callgraph

import (
	"slices"
	"strings"

	"github.com/panbanda/javaperf/pkg/symbols"
)

// DefaultTraceDepth bounds the number of methods on a traced path.
const DefaultTraceDepth = 5

// Chain is a controller-to-repository path ending at a data-access call.
type Chain struct {
	Path []MethodSig `json:"path" yaml:"path"`
	File string      `json:"file" yaml:"file"`
	Line int         `json:"line" yaml:"line"`
}

// String renders the chain as "A.m -> B.n -> C.o".
func (c Chain) String() string {
	return FormatPath(c.Path)
}

// FormatPath joins method signatures with arrows.
func FormatPath(path []MethodSig) string {
	parts := make([]string, len(path))
	for i, m := range path {
		parts[i] = m.SimpleClassName() + "." + m.Method
	}
	return strings.Join(parts, " -> ")
}

// TraceToLayer follows outgoing calls from start and returns every path of at
// most maxDepth methods that ends at a method on the target layer. The start
// method alone never counts as a path, and no method repeats within a path.
func (g *CallGraph) TraceToLayer(start MethodSig, target symbols.Layer, maxDepth int) [][]MethodSig {
	return g.trace(start, target, maxDepth, g.Outgoing, func(s CallSite) MethodSig { return s.Callee })
}

// TraceCallersToLayer walks incoming calls from start until it reaches a
// method on the target layer. Paths are returned entry point first.
func (g *CallGraph) TraceCallersToLayer(start MethodSig, target symbols.Layer, maxDepth int) [][]MethodSig {
	paths := g.trace(start, target, maxDepth, g.Incoming, func(s CallSite) MethodSig { return s.Caller })
	for _, p := range paths {
		slices.Reverse(p)
	}
	return paths
}

func (g *CallGraph) trace(
	start MethodSig,
	target symbols.Layer,
	maxDepth int,
	edges map[MethodSig][]CallSite,
	next func(CallSite) MethodSig,
) [][]MethodSig {
	var results [][]MethodSig
	visited := make(map[MethodSig]struct{})
	var path []MethodSig

	var dfs func(cur MethodSig, remaining int)
	dfs = func(cur MethodSig, remaining int) {
		if remaining <= 0 {
			return
		}
		path = append(path, cur)
		defer func() { path = path[:len(path)-1] }()

		if len(path) > 1 && g.LayerOf(cur) == target {
			results = append(results, slices.Clone(path))
			return
		}

		for _, site := range edges[cur] {
			n := next(site)
			if _, seen := visited[n]; seen || n == cur {
				continue
			}
			visited[n] = struct{}{}
			dfs(n, remaining-1)
			delete(visited, n)
		}
	}

	visited[start] = struct{}{}
	dfs(start, maxDepth)
	return results
}

// NPlusOneChains finds, for every call into a repository-layer method, the
// controller entry points that reach it. Each chain runs from the controller
// method to the repository method.
func (g *CallGraph) NPlusOneChains(maxDepth int) []Chain {
	if maxDepth <= 0 {
		maxDepth = DefaultTraceDepth
	}

	var callees []MethodSig
	for callee := range g.Incoming {
		if g.LayerOf(callee) == symbols.LayerRepository {
			callees = append(callees, callee)
		}
	}
	sortSigs(callees)

	var chains []Chain
	seen := make(map[string]struct{})
	for _, callee := range callees {
		for _, site := range g.Incoming[callee] {
			for _, p := range g.TraceCallersToLayer(site.Caller, symbols.LayerController, maxDepth-1) {
				full := append(p, callee)
				key := FormatPath(full)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				chains = append(chains, Chain{Path: full, File: site.File, Line: site.Line})
			}
		}
	}
	return chains
}
