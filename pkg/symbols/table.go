package symbols

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// daoVerbs are method-name fragments typical of data-access calls.
var daoVerbs = []string{
	"find", "save", "delete", "update", "insert", "select", "query", "count",
	"execute", "getById", "findById", "findAll", "findOne", "saveAll",
	"deleteById", "deleteAll",
}

// SymbolTable is the project-wide registry of types, fields and methods.
// It is built by merging per-file tables and is read-only once merged.
type SymbolTable struct {
	Classes     map[string]*TypeInfo             `json:"classes"`
	SimpleNames map[string][]string              `json:"simple_names"`
	Fields      map[string]map[string]VarBinding `json:"fields"`
	Methods     map[string]map[string]MethodInfo `json:"methods"`
	Imports     map[string]*ImportIndex          `json:"-"`

	mu    sync.Mutex
	known KnownClasses
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Classes:     make(map[string]*TypeInfo),
		SimpleNames: make(map[string][]string),
		Fields:      make(map[string]map[string]VarBinding),
		Methods:     make(map[string]map[string]MethodInfo),
		Imports:     make(map[string]*ImportIndex),
	}
}

// RegisterClass inserts or replaces a type keyed by its FQN.
func (s *SymbolTable) RegisterClass(info *TypeInfo) {
	if info == nil || info.FQN == "" {
		return
	}
	s.Classes[info.FQN] = info
	s.addSimpleName(info.Name, info.FQN)
	s.invalidate()
}

func (s *SymbolTable) invalidate() {
	s.mu.Lock()
	s.known = nil
	s.mu.Unlock()
}

func (s *SymbolTable) addSimpleName(simple, fqn string) {
	list := s.SimpleNames[simple]
	if slices.Contains(list, fqn) {
		return
	}
	list = append(list, fqn)
	sort.Strings(list)
	s.SimpleNames[simple] = list
}

// RegisterField records a field binding on its owning class.
func (s *SymbolTable) RegisterField(ownerFQN string, binding VarBinding) {
	fields := s.Fields[ownerFQN]
	if fields == nil {
		fields = make(map[string]VarBinding)
		s.Fields[ownerFQN] = fields
	}
	fields[binding.Name] = binding
}

// RegisterMethod records a method keyed by owner and signature.
func (s *SymbolTable) RegisterMethod(info MethodInfo) {
	methods := s.Methods[info.Class]
	if methods == nil {
		methods = make(map[string]MethodInfo)
		s.Methods[info.Class] = methods
	}
	methods[info.Signature()] = info
}

// RegisterImports attaches the declaring file's import context to a class.
func (s *SymbolTable) RegisterImports(ownerFQN string, idx *ImportIndex) {
	if idx != nil {
		s.Imports[ownerFQN] = idx
	}
}

// LookupFQN returns the type registered under fqn.
func (s *SymbolTable) LookupFQN(fqn string) (*TypeInfo, bool) {
	t, ok := s.Classes[fqn]
	return t, ok
}

// LookupSimple returns every type sharing a simple name, ordered by FQN.
func (s *SymbolTable) LookupSimple(simple string) []*TypeInfo {
	fqns := s.SimpleNames[simple]
	out := make([]*TypeInfo, 0, len(fqns))
	for _, fqn := range fqns {
		if t, ok := s.Classes[fqn]; ok {
			out = append(out, t)
		}
	}
	return out
}

// LookupField returns a field binding of a class.
func (s *SymbolTable) LookupField(ownerFQN, name string) (VarBinding, bool) {
	b, ok := s.Fields[ownerFQN][name]
	return b, ok
}

// LookupMethods returns all overloads of name on a class, ordered by signature.
func (s *SymbolTable) LookupMethods(ownerFQN, name string) []MethodInfo {
	var out []MethodInfo
	for _, m := range s.Methods[ownerFQN] {
		if m.Name == name {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature() < out[j].Signature() })
	return out
}

// LookupMethodBySig returns the method with an exact signature.
func (s *SymbolTable) LookupMethodBySig(ownerFQN, sig string) (MethodInfo, bool) {
	m, ok := s.Methods[ownerFQN][sig]
	return m, ok
}

// KnownClasses returns the set of registered FQNs. The snapshot is built
// once and shared until the table changes; callers must not modify it.
func (s *SymbolTable) KnownClasses() KnownClasses {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known == nil {
		s.known = make(KnownClasses, len(s.Classes))
		for fqn := range s.Classes {
			s.known[fqn] = struct{}{}
		}
	}
	return s.known
}

// ResolveTypeName resolves a simple type name as seen from ownerFQN's file.
// Without an import context a unique simple-name match is accepted.
func (s *SymbolTable) ResolveTypeName(ownerFQN, typeName string) (*TypeInfo, bool) {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return nil, false
	}
	if strings.Contains(typeName, ".") {
		return s.LookupFQN(typeName)
	}
	if idx := s.Imports[ownerFQN]; idx != nil {
		if fqn, ok := idx.Resolve(typeName, s.KnownClasses()); ok {
			if t, ok := s.Classes[fqn]; ok {
				return t, true
			}
		}
	}
	if matches := s.LookupSimple(typeName); len(matches) == 1 {
		return matches[0], true
	}
	return nil, false
}

// LookupVarType resolves the declared type of a field on ownerFQN.
func (s *SymbolTable) LookupVarType(ownerFQN, varName string) (*TypeInfo, bool) {
	b, ok := s.LookupField(ownerFQN, varName)
	if !ok {
		return nil, false
	}
	return s.ResolveTypeName(ownerFQN, b.TypeName)
}

// IsDAOVar reports whether a field of ownerFQN refers to a data-access
// object, using the resolved type first and naming conventions second.
func (s *SymbolTable) IsDAOVar(ownerFQN, varName string) bool {
	if t, ok := s.LookupVarType(ownerFQN, varName); ok {
		return t.IsDAO()
	}
	if b, ok := s.LookupField(ownerFQN, varName); ok && hasDAOSuffix(b.TypeName) {
		return true
	}
	return IsDAOName(varName)
}

// IsDAOCall reports whether varName.method(...) looks like a data access.
func (s *SymbolTable) IsDAOCall(ownerFQN, varName, method string) bool {
	return s.IsDAOVar(ownerFQN, varName) || IsDAOVerb(method)
}

// IsDAOName applies naming conventions to a variable name.
func IsDAOName(varName string) bool {
	if varName == "" {
		return false
	}
	upper := strings.ToUpper(varName[:1]) + varName[1:]
	if hasDAOSuffix(upper) {
		return true
	}
	lower := strings.ToLower(varName)
	return strings.Contains(lower, "repository") || strings.Contains(lower, "dao")
}

// IsDAOVerb reports whether a method name starts with or contains a
// data-access verb. Matching is case-sensitive.
func IsDAOVerb(method string) bool {
	for _, v := range daoVerbs {
		if strings.Contains(method, v) {
			return true
		}
	}
	return false
}

// Merge folds other into s. Map entries are last-write-wins; simple-name
// lists are union-deduplicated and sorted so merge order does not matter.
func (s *SymbolTable) Merge(other *SymbolTable) {
	if other == nil {
		return
	}
	for fqn, t := range other.Classes {
		s.Classes[fqn] = t
	}
	s.invalidate()
	for simple, fqns := range other.SimpleNames {
		for _, fqn := range fqns {
			s.addSimpleName(simple, fqn)
		}
	}
	for owner, fields := range other.Fields {
		for _, b := range fields {
			s.RegisterField(owner, b)
		}
	}
	for _, methods := range other.Methods {
		for _, m := range methods {
			s.RegisterMethod(m)
		}
	}
	for owner, idx := range other.Imports {
		s.Imports[owner] = idx
	}
}

// Stats summarizes table contents.
func (s *SymbolTable) Stats() (classes, fields, methods int) {
	classes = len(s.Classes)
	for _, f := range s.Fields {
		fields += len(f)
	}
	for _, m := range s.Methods {
		methods += len(m)
	}
	return classes, fields, methods
}
