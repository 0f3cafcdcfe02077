package rules

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/javaperf/pkg/parser"
	"github.com/panbanda/javaperf/pkg/symbols"
)

// TypeFilter narrows a rule to variables of a given type. The variable is
// taken from Capture. When its declaration is visible (a local, parameter,
// field, or symbol-table field) the simple type name must match Types.
// Otherwise the variable text must match Names; a nil Names accepts.
type TypeFilter struct {
	Capture string
	Types   *regexp.Regexp
	Names   *regexp.Regexp
}

func (f *TypeFilter) accepts(node *sitter.Node, ctx *RuleContext) bool {
	if f == nil || node == nil {
		return true
	}
	text := parser.GetNodeText(node, ctx.Source)
	if typ, ok := declaredType(node, text, ctx); ok {
		return f.Types != nil && f.Types.MatchString(typ)
	}
	return f.Names == nil || f.Names.MatchString(text)
}

// declarations that bind a name to a type via a "type" field.
var declKinds = map[string]bool{
	"local_variable_declaration": true,
	"field_declaration":          true,
	"formal_parameter":           true,
	"enhanced_for_statement":     true,
	"resource":                   true,
}

// declaredType finds the declared simple type of the variable named by text,
// searching the enclosing method first, then the file, then the symbol
// table. Types written as "var" count as not found.
func declaredType(at *sitter.Node, text string, ctx *RuleContext) (string, bool) {
	name := strings.TrimPrefix(text, "this.")
	if name == "" || strings.ContainsAny(name, ".()[] ") {
		return "", false
	}

	scopes := make([]*sitter.Node, 0, 2)
	if _, m := parser.EnclosingMethod(at, ctx.Source); m != nil {
		scopes = append(scopes, m)
	}
	if root := ctx.Root(); root != nil {
		scopes = append(scopes, root)
	}

	for _, scope := range scopes {
		if typ, ok := findDeclaration(scope, name, ctx.Source); ok {
			return typ, typ != "var"
		}
	}

	if ctx.Table != nil && ctx.ClassFQN != "" {
		if b, ok := ctx.Table.LookupField(ctx.OwnerFQN(at), name); ok {
			return b.TypeName, true
		}
	}
	return "", false
}

func findDeclaration(scope *sitter.Node, name string, src []byte) (string, bool) {
	var typ string
	found := false
	parser.WalkTyped(scope, src, func(n *sitter.Node, nodeType string, src []byte) bool {
		if found {
			return false
		}
		if !declKinds[nodeType] {
			return true
		}
		if declares(n, name, src) {
			typ = symbols.SimpleTypeName(parser.FieldText(n, "type", src))
			found = true
			return false
		}
		return true
	})
	return typ, found
}

func declares(decl *sitter.Node, name string, src []byte) bool {
	if parser.FieldText(decl, "name", src) == name {
		return true
	}
	for _, child := range parser.NamedChildren(decl) {
		if child.Type() == "variable_declarator" && parser.FieldText(child, "name", src) == name {
			return true
		}
	}
	return false
}
