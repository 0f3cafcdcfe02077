package callgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// GraphStats summarizes the project call graph.
type GraphStats struct {
	Methods   int        `json:"methods" yaml:"methods"`
	CallSites int        `json:"call_sites" yaml:"call_sites"`
	Resolved  int        `json:"resolved_callees" yaml:"resolved_callees"`
	Cycles    [][]string `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Hubs      []string   `json:"hubs,omitempty" yaml:"hubs,omitempty"`
}

// maxHubs caps the number of central methods reported.
const maxHubs = 5

// Stats computes size metrics, mutual-recursion cycles (strongly connected
// components with more than one method) and the most central methods by
// PageRank.
func (g *CallGraph) Stats() GraphStats {
	methods := g.Methods()
	stats := GraphStats{
		Methods:   len(methods),
		CallSites: g.EdgeCount(),
	}
	if len(methods) == 0 {
		return stats
	}

	ids := make(map[MethodSig]int64, len(methods))
	names := make(map[int64]string, len(methods))
	dg := simple.NewDirectedGraph()
	for i, m := range methods {
		id := int64(i)
		ids[m] = id
		names[id] = m.String()
		dg.AddNode(simple.Node(id))
	}

	for caller, sites := range g.Outgoing {
		for _, s := range sites {
			if s.Callee.IsResolved() {
				stats.Resolved++
			}
			from, to := ids[caller], ids[s.Callee]
			// simple graphs reject self-loops
			if from == to {
				continue
			}
			dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		cycle := make([]string, 0, len(scc))
		for _, n := range scc {
			cycle = append(cycle, names[n.ID()])
		}
		sort.Strings(cycle)
		stats.Cycles = append(stats.Cycles, cycle)
	}
	sort.Slice(stats.Cycles, func(i, j int) bool { return stats.Cycles[i][0] < stats.Cycles[j][0] })

	rank := network.PageRankSparse(dg, 0.85, 1e-6)
	type scored struct {
		name  string
		score float64
	}
	ranked := make([]scored, 0, len(rank))
	for id, score := range rank {
		ranked = append(ranked, scored{names[id], score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})
	for i := 0; i < len(ranked) && i < maxHubs; i++ {
		stats.Hubs = append(stats.Hubs, ranked[i].name)
	}

	return stats
}
