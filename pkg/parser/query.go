package parser

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Query is a compiled tree-sitter pattern. It is immutable after compilation
// and may be shared across goroutines; each execution uses its own cursor.
type Query struct {
	query   *sitter.Query
	pattern string
}

// Match is one query match with captures grouped by name.
type Match struct {
	PatternIndex uint16
	Captures     map[string][]*sitter.Node
}

// Capture returns the first node captured under name, or nil.
func (m Match) Capture(name string) *sitter.Node {
	if nodes := m.Captures[name]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// Has reports whether the match bound the capture name.
func (m Match) Has(name string) bool {
	return len(m.Captures[name]) > 0
}

// CompileQuery compiles a query pattern against the Java grammar.
func CompileQuery(pattern string) (*Query, error) {
	q, err := sitter.NewQuery([]byte(pattern), Grammar())
	if err != nil {
		return nil, fmt.Errorf("compiling query: %w", err)
	}
	return &Query{query: q, pattern: pattern}, nil
}

// Pattern returns the original query text.
func (q *Query) Pattern() string {
	return q.pattern
}

// Matches executes the query over root and returns every match whose
// #eq? and #match? predicates hold.
func (q *Query) Matches(root *sitter.Node, source []byte) []Match {
	if q == nil || root == nil {
		return nil
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	cursor.Exec(q.query, root)

	var matches []Match
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}

		match = cursor.FilterPredicates(match, source)
		if match == nil || len(match.Captures) == 0 {
			continue
		}

		m := Match{
			PatternIndex: match.PatternIndex,
			Captures:     make(map[string][]*sitter.Node, len(match.Captures)),
		}
		for _, c := range match.Captures {
			name := q.query.CaptureNameForId(c.Index)
			m.Captures[name] = append(m.Captures[name], c.Node)
		}
		matches = append(matches, m)
	}

	return matches
}

// Close releases the compiled query.
func (q *Query) Close() {
	if q != nil && q.query != nil {
		q.query.Close()
	}
}
