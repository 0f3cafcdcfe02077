// Package symbols holds the per-file import index and the project-wide symbol
// table used to resolve Java type names to fully qualified names.
package symbols

import (
	"fmt"
	"strings"
)

// Layer is the architectural role of a class, derived from its annotations.
type Layer string

const (
	LayerController Layer = "controller"
	LayerService    Layer = "service"
	LayerRepository Layer = "repository"
	LayerComponent  Layer = "component"
	LayerUnknown    Layer = "unknown"
)

func (l Layer) String() string { return string(l) }

// LayerFromAnnotation maps an annotation name to a layer. A leading '@' and
// any package qualifier are ignored.
func LayerFromAnnotation(annotation string) Layer {
	switch simpleAnnotation(annotation) {
	case "Controller", "RestController":
		return LayerController
	case "Service":
		return LayerService
	case "Repository", "Mapper":
		return LayerRepository
	case "Component":
		return LayerComponent
	default:
		return LayerUnknown
	}
}

func simpleAnnotation(a string) string {
	a = strings.TrimPrefix(strings.TrimSpace(a), "@")
	if i := strings.IndexByte(a, '('); i >= 0 {
		a = a[:i]
	}
	if i := strings.LastIndexByte(a, '.'); i >= 0 {
		a = a[i+1:]
	}
	return a
}

// TypeInfo describes a declared class, interface, enum or record.
type TypeInfo struct {
	Name        string   `json:"name"`
	FQN         string   `json:"fqn"`
	Package     string   `json:"package,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Layer       Layer    `json:"layer"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line,omitempty"`
}

// NewTypeInfo builds a TypeInfo whose FQN is derived from pkg and name.
func NewTypeInfo(name, pkg string) *TypeInfo {
	return &TypeInfo{
		Name:    name,
		FQN:     QualifiedName(pkg, name),
		Package: pkg,
		Layer:   LayerUnknown,
	}
}

// QualifiedName joins a package and simple name. The default package yields
// the bare name.
func QualifiedName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// AddAnnotation records an annotation. A layer-bearing annotation replaces
// the current layer; any other annotation leaves it alone.
func (t *TypeInfo) AddAnnotation(annotation string) {
	a := simpleAnnotation(annotation)
	t.Annotations = append(t.Annotations, a)
	if l := LayerFromAnnotation(a); l != LayerUnknown {
		t.Layer = l
	}
}

// IsDAO reports whether the type looks like a data-access object.
func (t *TypeInfo) IsDAO() bool {
	if t == nil {
		return false
	}
	if t.Layer == LayerRepository {
		return true
	}
	for _, a := range t.Annotations {
		if a == "Repository" || a == "Mapper" ||
			strings.HasSuffix(a, "Repository") || strings.HasSuffix(a, "Dao") {
			return true
		}
	}
	return hasDAOSuffix(t.Name)
}

func hasDAOSuffix(name string) bool {
	return strings.HasSuffix(name, "Repository") ||
		strings.HasSuffix(name, "Dao") ||
		strings.HasSuffix(name, "DAO") ||
		strings.HasSuffix(name, "Mapper")
}

// VarBinding is a field declared on a class.
type VarBinding struct {
	Name        string   `json:"name"`
	TypeName    string   `json:"type_name"`
	IsField     bool     `json:"is_field"`
	Annotations []string `json:"annotations,omitempty"`
}

// MethodInfo is a method declared on a class.
type MethodInfo struct {
	Class      string   `json:"class"`
	Name       string   `json:"name"`
	ParamTypes []string `json:"param_types,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
	Line       int      `json:"line,omitempty"`
}

// Signature returns name(T1,T2), which distinguishes overloads.
func (m MethodInfo) Signature() string {
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(m.ParamTypes, ","))
}

// SimpleTypeName strips generic arguments, array brackets and any package
// qualifier from a declared type.
//
//	"List<Order>"        -> "List"
//	"com.x.OrderRepo[]"  -> "OrderRepo"
func SimpleTypeName(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(strings.TrimRight(t, "[] "))
	t = strings.TrimSuffix(t, "...")
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return t
}
