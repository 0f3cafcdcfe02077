package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func known(fqns ...string) KnownClasses {
	k := make(KnownClasses, len(fqns))
	for _, f := range fqns {
		k[f] = struct{}{}
	}
	return k
}

func TestLayerFromAnnotation(t *testing.T) {
	tests := []struct {
		annotation string
		want       Layer
	}{
		{"Controller", LayerController},
		{"@RestController", LayerController},
		{"Service", LayerService},
		{"org.springframework.stereotype.Service", LayerService},
		{"Repository", LayerRepository},
		{"Mapper", LayerRepository},
		{"Component", LayerComponent},
		{"Transactional", LayerUnknown},
		{"", LayerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.annotation, func(t *testing.T) {
			assert.Equal(t, tt.want, LayerFromAnnotation(tt.annotation))
		})
	}
}

func TestTypeInfo_FQN(t *testing.T) {
	assert.Equal(t, "com.x.Foo", NewTypeInfo("Foo", "com.x").FQN)
	assert.Equal(t, "Foo", NewTypeInfo("Foo", "").FQN)
}

func TestTypeInfo_AddAnnotationKeepsLayer(t *testing.T) {
	ti := NewTypeInfo("OrderService", "com.x")
	ti.AddAnnotation("Service")
	ti.AddAnnotation("Transactional")

	assert.Equal(t, LayerService, ti.Layer)
	assert.Equal(t, []string{"Service", "Transactional"}, ti.Annotations)
}

func TestTypeInfo_IsDAO(t *testing.T) {
	tests := []struct {
		name        string
		typeName    string
		annotations []string
		want        bool
	}{
		{"repository layer", "Orders", []string{"Repository"}, true},
		{"mapper annotation", "Orders", []string{"Mapper"}, true},
		{"dao suffix annotation", "Orders", []string{"CustomDao"}, true},
		{"repository suffix", "OrderRepository", nil, true},
		{"dao suffix", "OrderDao", nil, true},
		{"mapper suffix", "OrderMapper", nil, true},
		{"service", "OrderService", []string{"Service"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := NewTypeInfo(tt.typeName, "com.x")
			for _, a := range tt.annotations {
				ti.AddAnnotation(a)
			}
			assert.Equal(t, tt.want, ti.IsDAO())
		})
	}
}

func TestSimpleTypeName(t *testing.T) {
	assert.Equal(t, "List", SimpleTypeName("List<Order>"))
	assert.Equal(t, "Map", SimpleTypeName("Map<String, List<Order>>"))
	assert.Equal(t, "OrderRepo", SimpleTypeName("com.x.OrderRepo[]"))
	assert.Equal(t, "String", SimpleTypeName("String..."))
}

func TestImportIndex_ResolvePriority(t *testing.T) {
	tests := []struct {
		name    string
		imports []string
		pkg     string
		local   []string
		known   KnownClasses
		simple  string
		want    string
		ok      bool
	}{
		{
			name:    "explicit import",
			imports: []string{"com.a.Foo"},
			pkg:     "com.b",
			simple:  "Foo",
			want:    "com.a.Foo",
			ok:      true,
		},
		{
			name:    "explicit beats wildcard",
			imports: []string{"com.a.Foo", "com.c.*"},
			known:   known("com.c.Foo"),
			simple:  "Foo",
			want:    "com.a.Foo",
			ok:      true,
		},
		{
			name:    "wildcard with known class",
			imports: []string{"com.a.*", "com.c.*"},
			known:   known("com.c.Foo"),
			simple:  "Foo",
			want:    "com.c.Foo",
			ok:      true,
		},
		{
			name:    "wildcard beats same package",
			imports: []string{"com.a.*"},
			pkg:     "com.b",
			known:   known("com.a.Foo", "com.b.Foo"),
			simple:  "Foo",
			want:    "com.a.Foo",
			ok:      true,
		},
		{
			name:   "same package known",
			pkg:    "com.b",
			known:  known("com.b.Foo"),
			simple: "Foo",
			want:   "com.b.Foo",
			ok:     true,
		},
		{
			name:   "local class",
			pkg:    "com.b",
			local:  []string{"Inner"},
			simple: "Inner",
			want:   "com.b.Inner",
			ok:     true,
		},
		{
			name:   "local class default package",
			local:  []string{"Inner"},
			simple: "Inner",
			want:   "Inner",
			ok:     true,
		},
		{
			name:   "java.lang allow-list",
			pkg:    "com.b",
			simple: "String",
			want:   "java.lang.String",
			ok:     true,
		},
		{
			name:   "same package beats java.lang",
			pkg:    "com.b",
			known:  known("com.b.String"),
			simple: "String",
			want:   "com.b.String",
			ok:     true,
		},
		{
			name:   "unknown",
			pkg:    "com.b",
			simple: "Nope",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := NewImportIndex(tt.imports, tt.pkg)
			for _, l := range tt.local {
				idx.AddLocalClass(l)
			}
			got, ok := idx.Resolve(tt.simple, tt.known)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImportIndex_Isolation(t *testing.T) {
	a := NewImportIndex([]string{"com.a.Foo"}, "com.a")
	b := NewImportIndex(nil, "com.b")
	a.AddLocalClass("Local")

	_, ok := b.Resolve("Foo", nil)
	assert.False(t, ok, "import from file A leaked into file B")
	_, ok = b.Resolve("Local", nil)
	assert.False(t, ok)
}

func TestImportIndex_AddLocalClassDedups(t *testing.T) {
	idx := NewImportIndex(nil, "p")
	idx.AddLocalClass("A")
	idx.AddLocalClass("A")
	assert.Len(t, idx.LocalClasses, 1)
}

func TestSymbolTable_FQNUniqueness(t *testing.T) {
	table := NewSymbolTable()
	table.RegisterClass(NewTypeInfo("User", "com.a"))
	table.RegisterClass(NewTypeInfo("User", "com.b"))
	table.RegisterClass(NewTypeInfo("User", "com.a"))

	assert.Len(t, table.Classes, 2)
	users := table.LookupSimple("User")
	require.Len(t, users, 2)
	assert.Equal(t, "com.a.User", users[0].FQN)
	assert.Equal(t, "com.b.User", users[1].FQN)

	for fqn, ti := range table.Classes {
		assert.Equal(t, fqn, ti.FQN)
	}
}

func TestSymbolTable_LookupVarTypeThroughImports(t *testing.T) {
	table := NewSymbolTable()
	repoA := NewTypeInfo("UserRepository", "com.a")
	repoA.AddAnnotation("Repository")
	table.RegisterClass(repoA)
	table.RegisterClass(NewTypeInfo("UserRepository", "com.b"))

	owner := "com.svc.UserService"
	table.RegisterField(owner, VarBinding{Name: "repo", TypeName: "UserRepository", IsField: true})
	table.RegisterImports(owner, NewImportIndex([]string{"com.a.UserRepository"}, "com.svc"))

	ti, ok := table.LookupVarType(owner, "repo")
	require.True(t, ok)
	assert.Equal(t, "com.a.UserRepository", ti.FQN)
	assert.True(t, table.IsDAOVar(owner, "repo"))
}

func TestSymbolTable_IsDAOVarFallsBackToNames(t *testing.T) {
	table := NewSymbolTable()
	assert.True(t, table.IsDAOVar("X", "orderRepository"))
	assert.True(t, table.IsDAOVar("X", "userDao"))
	assert.True(t, table.IsDAOVar("X", "orderMapper"))
	assert.False(t, table.IsDAOVar("X", "helper"))
}

func TestSymbolTable_IsDAOCall(t *testing.T) {
	table := NewSymbolTable()
	assert.True(t, table.IsDAOCall("X", "helper", "findByName"))
	assert.True(t, table.IsDAOCall("X", "orderDao", "load"))
	assert.False(t, table.IsDAOCall("X", "helper", "format"))
}

func TestSymbolTable_Methods(t *testing.T) {
	table := NewSymbolTable()
	table.RegisterMethod(MethodInfo{Class: "com.x.A", Name: "run", ParamTypes: []string{"int"}})
	table.RegisterMethod(MethodInfo{Class: "com.x.A", Name: "run"})
	table.RegisterMethod(MethodInfo{Class: "com.x.A", Name: "stop"})

	overloads := table.LookupMethods("com.x.A", "run")
	require.Len(t, overloads, 2)
	assert.Equal(t, "run()", overloads[0].Signature())
	assert.Equal(t, "run(int)", overloads[1].Signature())

	_, ok := table.LookupMethodBySig("com.x.A", "run(int)")
	assert.True(t, ok)
}

func TestSymbolTable_MergeOrderIndependent(t *testing.T) {
	build := func(pkg string) *SymbolTable {
		s := NewSymbolTable()
		s.RegisterClass(NewTypeInfo("User", pkg))
		s.RegisterField(pkg+".User", VarBinding{Name: "id", TypeName: "Long", IsField: true})
		return s
	}
	a, b := build("com.a"), build("com.b")

	ab := NewSymbolTable()
	ab.Merge(a)
	ab.Merge(b)

	ba := NewSymbolTable()
	ba.Merge(b)
	ba.Merge(a)

	assert.Equal(t, ab.SimpleNames, ba.SimpleNames)
	assert.ElementsMatch(t, keys(ab.Classes), keys(ba.Classes))
	assert.Equal(t, ab.Fields, ba.Fields)
}

func keys(m map[string]*TypeInfo) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestIsDAOVerb(t *testing.T) {
	assert.True(t, IsDAOVerb("findByCustomer"))
	assert.True(t, IsDAOVerb("getById"))
	assert.True(t, IsDAOVerb("countByStatus"))
	assert.False(t, IsDAOVerb("setCount"))
	assert.False(t, IsDAOVerb("getName"))
	assert.False(t, IsDAOVerb("add"))
	assert.True(t, IsDAOVerb("refindAll"))
	assert.True(t, IsDAOVerb("bulkDeleteById"))
	assert.False(t, IsDAOVerb("loadItems"))
	assert.False(t, IsDAOVerb("fetchAll"))
}
