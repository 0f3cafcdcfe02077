package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

const sampleJava = `package com.example;

public class Greeter {
    private final String name;

    public Greeter(String name) {
        this.name = name;
    }

    public String greet() {
        Runnable r = () -> helper();
        return "hi " + name;
    }

    private void helper() {}
}
`

func TestNew(t *testing.T) {
	p := New()
	if p == nil {
		t.Fatal("New() returned nil")
	}
	if p.parser == nil {
		t.Error("parser field is nil")
	}
	p.Close()
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"Main.java", LangJava},
		{"src/main/java/com/x/Foo.JAVA", LangJava},
		{"Main.kt", LangUnknown},
		{"build.gradle", LangUnknown},
		{"file", LangUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectLanguage(tt.path); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte(sampleJava), "Greeter.java")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer result.Close()

	if result.Root() == nil {
		t.Fatal("Root() returned nil")
	}
	if result.Root().Type() != "program" {
		t.Errorf("root type = %q, want program", result.Root().Type())
	}
	if result.Path != "Greeter.java" {
		t.Errorf("Path = %q", result.Path)
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse([]byte{0xff, 0xfe, 'c', 'l', 'a', 's', 's'}, "Bad.java")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestParseSyntaxErrorStillYieldsTree(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("class Broken { void m( { }"), "Broken.java")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer result.Close()
	if !result.Root().HasError() {
		t.Error("expected error nodes in tree")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Greeter.java")
	if err := os.WriteFile(path, []byte(sampleJava), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New()
	defer p.Close()

	result, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	defer result.Close()
	if len(result.Source) != len(sampleJava) {
		t.Errorf("source length = %d", len(result.Source))
	}
}

func TestParseFileErrors(t *testing.T) {
	p := New()
	defer p.Close()

	if _, err := p.ParseFile("/nonexistent/Foo.java"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := p.ParseFile("notes.txt"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestWalkNil(t *testing.T) {
	called := false
	Walk(nil, nil, func(*sitter.Node, []byte) bool {
		called = true
		return true
	})
	if called {
		t.Error("visitor called for nil node")
	}
}

func TestFindNodesByType(t *testing.T) {
	p := New()
	defer p.Close()
	result, err := p.Parse([]byte(sampleJava), "Greeter.java")
	if err != nil {
		t.Fatal(err)
	}
	defer result.Close()

	methods := FindNodesByType(result.Root(), result.Source, "method_declaration")
	if len(methods) != 2 {
		t.Fatalf("found %d methods, want 2", len(methods))
	}
	if got := FieldText(methods[0], "name", result.Source); got != "greet" {
		t.Errorf("first method = %q, want greet", got)
	}
	if Line(methods[0]) != 10 {
		t.Errorf("greet line = %d, want 10", Line(methods[0]))
	}
}

func TestEnclosingMethod(t *testing.T) {
	p := New()
	defer p.Close()
	result, err := p.Parse([]byte(sampleJava), "Greeter.java")
	if err != nil {
		t.Fatal(err)
	}
	defer result.Close()

	calls := FindNodesByType(result.Root(), result.Source, "method_invocation")
	if len(calls) != 1 {
		t.Fatalf("found %d invocations, want 1", len(calls))
	}
	name, node := EnclosingMethod(calls[0], result.Source)
	if name != "greet" || node == nil {
		t.Errorf("EnclosingMethod = %q, want greet", name)
	}

	fields := FindNodesByType(result.Root(), result.Source, "field_declaration")
	if name, _ := EnclosingMethod(fields[0], result.Source); name != "" {
		t.Errorf("field has enclosing method %q", name)
	}
}

func TestGetFunctions(t *testing.T) {
	p := New()
	defer p.Close()
	result, err := p.Parse([]byte(sampleJava), "Greeter.java")
	if err != nil {
		t.Fatal(err)
	}
	defer result.Close()

	fns := GetFunctions(result)
	want := []string{"Greeter", "greet", "helper"}
	if len(fns) != len(want) {
		t.Fatalf("got %d functions, want %d", len(fns), len(want))
	}
	for i, fn := range fns {
		if fn.Name != want[i] {
			t.Errorf("fn[%d] = %q, want %q", i, fn.Name, want[i])
		}
		if fn.Body == nil {
			t.Errorf("fn %q has no body", fn.Name)
		}
	}
}

func TestGetNodeText(t *testing.T) {
	if GetNodeText(nil, []byte("x")) != "" {
		t.Error("nil node should yield empty text")
	}
}

func TestQueryMatchesWithPredicates(t *testing.T) {
	q, err := CompileQuery(`(method_invocation
  object: (identifier) @obj (#eq? @obj "Thread")
  name: (identifier) @name (#match? @name "^sl")) @call`)
	if err != nil {
		t.Fatalf("CompileQuery() error = %v", err)
	}
	defer q.Close()

	src := `class A { void m() throws Exception { Thread.sleep(1); Thread.yield(); other.sleep(2); } }`
	p := New()
	defer p.Close()
	result, err := p.Parse([]byte(src), "A.java")
	if err != nil {
		t.Fatal(err)
	}
	defer result.Close()

	matches := q.Matches(result.Root(), result.Source)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if got := GetNodeText(matches[0].Capture("call"), result.Source); got != "Thread.sleep(1)" {
		t.Errorf("call capture = %q", got)
	}
	if matches[0].Has("missing") {
		t.Error("unexpected capture")
	}
}

func TestCompileQueryError(t *testing.T) {
	if _, err := CompileQuery(`(not_a_real_node) @x`); err == nil {
		t.Error("expected compile error for unknown node type")
	}
}
