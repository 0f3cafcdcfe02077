package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Language represents a supported source language.
type Language string

const (
	LangJava    Language = "java"
	LangUnknown Language = "unknown"
)

var (
	// ErrInvalidUTF8 is returned when a source file is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("source is not valid UTF-8")
	// ErrParse is returned when tree-sitter produces no usable tree.
	ErrParse = errors.New("parse failed")
	// ErrUnsupported is returned for files that are not Java sources.
	ErrUnsupported = errors.New("unsupported language")
)

// Parser wraps a tree-sitter parser configured for Java.
// A Parser is not safe for concurrent use; give each worker its own.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree   *sitter.Tree
	Source []byte
	Path   string
}

// Root returns the root node of the parsed tree.
func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.Tree == nil {
		return nil
	}
	return r.Tree.RootNode()
}

// Close releases the underlying tree.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{parser: p}
}

// Grammar returns the tree-sitter Java grammar.
func Grammar() *sitter.Language {
	return java.GetLanguage()
}

// ParseFile reads and parses a Java source file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	if DetectLanguage(path) != LangJava {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.Parse(source, path)
}

// Parse parses Java source code. Syntax errors inside the file still yield a
// tree; only an unusable result is reported as ErrParse.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	return p.ParseCtx(context.Background(), source, path)
}

// ParseCtx is Parse with a caller-supplied context.
func (p *Parser) ParseCtx(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidUTF8)
	}

	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrParse, err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrParse)
	}

	return &ParseResult{
		Tree:   tree,
		Source: source,
		Path:   path,
	}, nil
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	if strings.ToLower(filepath.Ext(path)) == ".java" {
		return LangJava
	}
	return LangUnknown
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodes returns all nodes matching a predicate.
func FindNodes(root *sitter.Node, source []byte, predicate func(*sitter.Node) bool) []*sitter.Node {
	var results []*sitter.Node
	Walk(root, source, func(node *sitter.Node, source []byte) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindNodesByType returns all nodes of a specific type.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	return FindNodes(root, source, func(n *sitter.Node) bool {
		return n.Type() == nodeType
	})
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// FieldText returns the text of the named field child, or "".
func FieldText(node *sitter.Node, field string, source []byte) string {
	if node == nil {
		return ""
	}
	return GetNodeText(node.ChildByFieldName(field), source)
}

// Line returns the 1-based start line of a node.
func Line(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPoint().Row) + 1
}

// SameNode reports whether two handles refer to the same syntax node.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// Contains reports whether inner lies within outer's byte range.
func Contains(outer, inner *sitter.Node) bool {
	if outer == nil || inner == nil {
		return false
	}
	return inner.StartByte() >= outer.StartByte() && inner.EndByte() <= outer.EndByte()
}

// EnclosingAncestor returns the nearest strict ancestor whose type is one of types.
func EnclosingAncestor(node *sitter.Node, types ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for p := node.Parent(); p != nil; p = p.Parent() {
		t := p.Type()
		for _, want := range types {
			if t == want {
				return p
			}
		}
	}
	return nil
}

// MethodNodeTypes are the declarations that own executable bodies.
var MethodNodeTypes = []string{"method_declaration", "constructor_declaration"}

// EnclosingMethod returns the name and node of the method or constructor
// containing node. Lambdas are transparent. Field initializers and static
// blocks have no enclosing method and return ("", nil).
func EnclosingMethod(node *sitter.Node, source []byte) (string, *sitter.Node) {
	m := EnclosingAncestor(node, MethodNodeTypes...)
	if m == nil {
		return "", nil
	}
	return FieldText(m, "name", source), m
}

// TypeNodeTypes are the declarations that introduce a named Java type.
var TypeNodeTypes = []string{
	"class_declaration",
	"interface_declaration",
	"enum_declaration",
	"record_declaration",
	"annotation_type_declaration",
}

// IsTypeDeclaration reports whether nodeType declares a named type.
func IsTypeDeclaration(nodeType string) bool {
	return slices.Contains(TypeNodeTypes, nodeType)
}

// EnclosingType returns the name and node of the innermost named type
// declaring node. Anonymous class bodies are transparent.
func EnclosingType(node *sitter.Node, source []byte) (string, *sitter.Node) {
	t := EnclosingAncestor(node, TypeNodeTypes...)
	if t == nil {
		return "", nil
	}
	return FieldText(t, "name", source), t
}

// NamedChildren returns a node's named children.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := range n {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// FunctionNode represents a parsed method or constructor.
type FunctionNode struct {
	Name      string
	StartLine uint32
	EndLine   uint32
	Node      *sitter.Node
	Body      *sitter.Node
}

// GetFunctions extracts all method and constructor declarations.
func GetFunctions(result *ParseResult) []FunctionNode {
	var functions []FunctionNode
	WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if nodeType == "method_declaration" || nodeType == "constructor_declaration" {
			functions = append(functions, FunctionNode{
				Name:      FieldText(node, "name", source),
				StartLine: node.StartPoint().Row + 1,
				EndLine:   node.EndPoint().Row + 1,
				Node:      node,
				Body:      node.ChildByFieldName("body"),
			})
		}
		return true
	})
	return functions
}
