// Package index extracts the symbols of a single Java file: its package,
// imports, declared types with their fields and methods, and raw call sites.
package index

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/parser"
	"github.com/panbanda/javaperf/pkg/symbols"
)

// TypeIndex holds the members declared directly in one type.
type TypeIndex struct {
	Type    *symbols.TypeInfo    `json:"type"`
	Fields  []symbols.VarBinding `json:"fields,omitempty"`
	Methods []symbols.MethodInfo `json:"methods,omitempty"`
	Calls   []callgraph.RawCall  `json:"calls,omitempty"`
}

// FileIndex is everything phase one learns about one file. Types lists
// every named type in declaration order, nested ones included; nested types
// are keyed by package and simple name, the way local classes resolve.
type FileIndex struct {
	Path    string               `json:"path"`
	Package string               `json:"package,omitempty"`
	Types   []*TypeIndex         `json:"types,omitempty"`
	Imports *symbols.ImportIndex `json:"imports"`
}

// Primary returns the first top-level type, or nil when the file declares
// none.
func (fi *FileIndex) Primary() *TypeIndex {
	if len(fi.Types) == 0 {
		return nil
	}
	return fi.Types[0]
}

// Build indexes a parsed file.
func Build(result *parser.ParseResult) *FileIndex {
	root := result.Root()
	src := result.Source
	fi := &FileIndex{Path: result.Path}

	var imports []string
	for _, child := range parser.NamedChildren(root) {
		switch child.Type() {
		case "package_declaration":
			fi.Package = packageName(child, src)
		case "import_declaration":
			if imp := importPath(child, src); imp != "" {
				imports = append(imports, imp)
			}
		}
	}

	fi.Imports = symbols.NewImportIndex(imports, fi.Package)

	// Pre-order, so the first top-level type comes first.
	parser.WalkTyped(root, src, func(n *sitter.Node, t string, src []byte) bool {
		if !parser.IsTypeDeclaration(t) {
			return true
		}
		name := parser.FieldText(n, "name", src)
		if name == "" {
			return true
		}
		fi.Imports.AddLocalClass(name)
		fi.Types = append(fi.Types, buildType(n, name, fi.Package, result.Path, src))
		return true
	})

	return fi
}

func buildType(decl *sitter.Node, name, pkg, path string, src []byte) *TypeIndex {
	ti := symbols.NewTypeInfo(name, pkg)
	ti.File = path
	ti.Line = parser.Line(decl)
	for _, a := range annotations(decl, src) {
		ti.AddAnnotation(a)
	}

	idx := &TypeIndex{Type: ti}
	for _, member := range members(decl) {
		switch member.Type() {
		case "field_declaration":
			idx.Fields = append(idx.Fields, fieldBindings(member, src)...)
		case "method_declaration":
			idx.Methods = append(idx.Methods, methodInfo(ti.FQN, member, src))
			idx.Calls = append(idx.Calls, rawCalls(member, src)...)
		case "constructor_declaration":
			idx.Calls = append(idx.Calls, rawCalls(member, src)...)
		}
	}
	return idx
}

func packageName(n *sitter.Node, src []byte) string {
	for _, c := range parser.NamedChildren(n) {
		if t := c.Type(); t == "scoped_identifier" || t == "identifier" {
			return parser.GetNodeText(c, src)
		}
	}
	return ""
}

// importPath normalizes an import declaration. Static imports map to the
// class that owns the imported member.
func importPath(n *sitter.Node, src []byte) string {
	text := parser.GetNodeText(n, src)
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	text = strings.TrimSpace(strings.TrimPrefix(text, "import"))
	static := false
	if rest, ok := strings.CutPrefix(text, "static "); ok {
		static = true
		text = strings.TrimSpace(rest)
	}
	text = strings.Join(strings.Fields(text), "")
	if static {
		text = strings.TrimSuffix(text, ".*")
		if i := strings.LastIndexByte(text, '.'); i >= 0 {
			text = text[:i]
		}
	}
	return text
}

// annotations returns the names of annotations attached to a declaration.
func annotations(decl *sitter.Node, src []byte) []string {
	var out []string
	for _, c := range parser.NamedChildren(decl) {
		if c.Type() != "modifiers" {
			continue
		}
		for _, m := range parser.NamedChildren(c) {
			if t := m.Type(); t == "marker_annotation" || t == "annotation" {
				out = append(out, parser.FieldText(m, "name", src))
			}
		}
	}
	return out
}

// members returns the body declarations of a type, flattening enum bodies.
func members(decl *sitter.Node) []*sitter.Node {
	body := decl.ChildByFieldName("body")
	var out []*sitter.Node
	for _, c := range parser.NamedChildren(body) {
		if c.Type() == "enum_body_declarations" {
			out = append(out, parser.NamedChildren(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func fieldBindings(field *sitter.Node, src []byte) []symbols.VarBinding {
	typeName := symbols.SimpleTypeName(parser.FieldText(field, "type", src))
	anns := annotations(field, src)

	var out []symbols.VarBinding
	for _, c := range parser.NamedChildren(field) {
		if c.Type() != "variable_declarator" {
			continue
		}
		out = append(out, symbols.VarBinding{
			Name:        parser.FieldText(c, "name", src),
			TypeName:    typeName,
			IsField:     true,
			Annotations: anns,
		})
	}
	return out
}

func methodInfo(owner string, m *sitter.Node, src []byte) symbols.MethodInfo {
	info := symbols.MethodInfo{
		Class:      owner,
		Name:       parser.FieldText(m, "name", src),
		ReturnType: symbols.SimpleTypeName(parser.FieldText(m, "type", src)),
		Line:       parser.Line(m),
	}
	for _, p := range parser.NamedChildren(m.ChildByFieldName("parameters")) {
		switch p.Type() {
		case "formal_parameter":
			info.ParamTypes = append(info.ParamTypes, symbols.SimpleTypeName(parser.FieldText(p, "type", src)))
		case "spread_parameter":
			for _, c := range parser.NamedChildren(p) {
				if c.Type() != "modifiers" && c.Type() != "variable_declarator" {
					info.ParamTypes = append(info.ParamTypes, symbols.SimpleTypeName(parser.GetNodeText(c, src))+"...")
					break
				}
			}
		}
	}
	return info
}

// rawCalls collects every invocation inside a method or constructor body.
// Calls on arbitrary expressions (chained calls, array elements) are skipped:
// their receiver type cannot be known without type inference. Local class
// declarations are indexed as types of their own and skipped here.
func rawCalls(m *sitter.Node, src []byte) []callgraph.RawCall {
	caller := parser.FieldText(m, "name", src)
	var calls []callgraph.RawCall
	parser.WalkTyped(m.ChildByFieldName("body"), src, func(n *sitter.Node, t string, src []byte) bool {
		if parser.IsTypeDeclaration(t) {
			return false
		}
		if t != "method_invocation" {
			return true
		}
		recv, ok := Receiver(n, src)
		if ok {
			calls = append(calls, callgraph.RawCall{
				Caller:   caller,
				Receiver: recv,
				Method:   parser.FieldText(n, "name", src),
				Line:     parser.Line(n),
			})
		}
		return true
	})
	return calls
}

// Receiver returns the normalized receiver of a method invocation: "" for an
// implicit or explicit this, the field name for this.x, and the source text
// for identifiers and qualified names. ok is false for receivers whose type
// cannot be determined syntactically.
func Receiver(call *sitter.Node, src []byte) (string, bool) {
	obj := call.ChildByFieldName("object")
	if obj == nil {
		return "", true
	}
	switch obj.Type() {
	case "this":
		return "", true
	case "identifier":
		return parser.GetNodeText(obj, src), true
	case "field_access":
		inner := obj.ChildByFieldName("object")
		field := parser.FieldText(obj, "field", src)
		if inner != nil && inner.Type() == "this" {
			return field, true
		}
		text := parser.GetNodeText(obj, src)
		if isQualifiedName(text) {
			return text, true
		}
	case "scoped_identifier":
		return parser.GetNodeText(obj, src), true
	}
	return "", false
}

// isQualifiedName accepts dotted names whose last segment names a type.
func isQualifiedName(s string) bool {
	parts := strings.Split(s, ".")
	last := parts[len(parts)-1]
	if last == "" || last[0] < 'A' || last[0] > 'Z' {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, r := range part {
			if !(r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
