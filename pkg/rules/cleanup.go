package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/javaperf/pkg/parser"
)

type cleanupState int

const (
	cleanupCovered   cleanupState = iota // release in a finally that covers the acquisition
	cleanupMisplaced                     // release exists elsewhere in scope
	cleanupMissing                       // no release at all
)

// gradeCleanup locates v.release() calls within scope and decides whether
// one of them is guaranteed to run after acquire. A finally clause covers
// acquire when its try body contains acquire, or when the try statement
// follows acquire inside a block that also holds acquire. Nested try
// statements are checked outward from the release call.
func gradeCleanup(acquire, scope *sitter.Node, v, release string, src []byte) cleanupState {
	calls := releaseCalls(scope, v, release, src)
	if len(calls) == 0 {
		return cleanupMissing
	}
	for _, call := range calls {
		for fin := parser.EnclosingAncestor(call, "finally_clause"); fin != nil; fin = parser.EnclosingAncestor(fin, "finally_clause") {
			if covers(fin.Parent(), acquire) {
				return cleanupCovered
			}
		}
	}
	return cleanupMisplaced
}

func covers(try, acquire *sitter.Node) bool {
	if try == nil {
		return false
	}
	if parser.Contains(try.ChildByFieldName("body"), acquire) {
		return true
	}
	if res := try.ChildByFieldName("resources"); parser.Contains(res, acquire) {
		return true
	}
	return try.StartByte() >= acquire.EndByte() && parser.Contains(try.Parent(), acquire)
}

func releaseCalls(scope *sitter.Node, v, release string, src []byte) []*sitter.Node {
	var calls []*sitter.Node
	parser.WalkTyped(scope, src, func(n *sitter.Node, nodeType string, src []byte) bool {
		if nodeType == "method_invocation" &&
			parser.FieldText(n, "name", src) == release &&
			strings.TrimPrefix(parser.FieldText(n, "object", src), "this.") == v {
			calls = append(calls, n)
		}
		return true
	})
	return calls
}
