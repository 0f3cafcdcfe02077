package symbols

import (
	"slices"
	"strings"
)

// KnownClasses is a read-only set of fully qualified class names.
type KnownClasses map[string]struct{}

// Has reports whether fqn is known.
func (k KnownClasses) Has(fqn string) bool {
	_, ok := k[fqn]
	return ok
}

// javaLang lists the java.lang types resolvable without an import.
var javaLang = map[string]struct{}{
	"String": {}, "Object": {}, "Integer": {}, "Long": {}, "Double": {},
	"Float": {}, "Boolean": {}, "Byte": {}, "Short": {}, "Character": {},
	"Number": {}, "Class": {}, "System": {}, "Thread": {}, "Runnable": {},
	"Exception": {}, "RuntimeException": {}, "Error": {}, "Throwable": {},
	"StringBuilder": {}, "StringBuffer": {}, "Math": {}, "Comparable": {},
	"Iterable": {}, "Enum": {}, "Override": {}, "Deprecated": {},
	"SuppressWarnings": {}, "FunctionalInterface": {},
}

// ImportIndex is the resolution context of one source file. It is never
// shared between files.
type ImportIndex struct {
	Explicit     map[string]string `json:"explicit"`
	Wildcards    []string          `json:"wildcards,omitempty"`
	Package      string            `json:"package,omitempty"`
	LocalClasses []string          `json:"local_classes,omitempty"`
}

// NewImportIndex classifies import paths. Paths ending in ".*" become
// wildcard packages; everything else maps its last segment to the full path.
func NewImportIndex(imports []string, pkg string) *ImportIndex {
	idx := &ImportIndex{
		Explicit: make(map[string]string, len(imports)),
		Package:  pkg,
	}
	for _, imp := range imports {
		imp = strings.TrimSpace(imp)
		if imp == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(imp, ".*"); ok {
			if !slices.Contains(idx.Wildcards, prefix) {
				idx.Wildcards = append(idx.Wildcards, prefix)
			}
			continue
		}
		simple := imp
		if i := strings.LastIndexByte(imp, '.'); i >= 0 {
			simple = imp[i+1:]
		}
		idx.Explicit[simple] = imp
	}
	return idx
}

// AddLocalClass registers a class declared in this file.
func (idx *ImportIndex) AddLocalClass(name string) {
	if !slices.Contains(idx.LocalClasses, name) {
		idx.LocalClasses = append(idx.LocalClasses, name)
	}
}

// Resolve maps a simple name to an FQN. Candidates are tried in order:
// explicit import, wildcard import of a known class, same package, java.lang.
func (idx *ImportIndex) Resolve(simple string, known KnownClasses) (string, bool) {
	if idx == nil || simple == "" {
		return "", false
	}

	if fqn, ok := idx.Explicit[simple]; ok {
		return fqn, true
	}

	for _, w := range idx.Wildcards {
		candidate := w + "." + simple
		if known.Has(candidate) {
			return candidate, true
		}
	}

	if slices.Contains(idx.LocalClasses, simple) {
		return QualifiedName(idx.Package, simple), true
	}
	if idx.Package != "" {
		if candidate := idx.Package + "." + simple; known.Has(candidate) {
			return candidate, true
		}
	}

	if _, ok := javaLang[simple]; ok || known.Has("java.lang."+simple) {
		return "java.lang." + simple, true
	}

	return "", false
}
