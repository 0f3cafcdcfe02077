package index

import (
	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/symbols"
)

// SymbolTable returns a partial table holding only this file's symbols.
// Files without a declared type contribute an empty table.
func (fi *FileIndex) SymbolTable() *symbols.SymbolTable {
	table := symbols.NewSymbolTable()
	for _, t := range fi.Types {
		owner := t.Type.FQN
		table.RegisterClass(t.Type)
		table.RegisterImports(owner, fi.Imports)
		for _, f := range t.Fields {
			table.RegisterField(owner, f)
		}
		for _, m := range t.Methods {
			table.RegisterMethod(m)
		}
	}
	return table
}

// Link resolves this file's raw calls against the merged table and returns
// a partial call graph. The table must not be modified while linking runs.
func (fi *FileIndex) Link(table *symbols.SymbolTable) *callgraph.CallGraph {
	g := callgraph.New()
	for _, t := range fi.Types {
		owner := t.Type.FQN
		g.RegisterClass(owner, fi.Path, t.Type.Layer)
		for _, call := range t.Calls {
			caller := callgraph.ResolvedSig(owner, call.Caller)
			callee := callgraph.ResolveCall(owner, call, fi.Imports, table)
			g.AddCall(caller, callee, fi.Path, call.Line)
		}
	}
	return g
}
