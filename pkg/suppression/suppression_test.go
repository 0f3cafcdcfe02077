package suppression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panbanda/javaperf/pkg/models"
)

func TestSameLine(t *testing.T) {
	c := Parse("a\nsynchronized void m() {} // java-perf-ignore: SYNC_METHOD\nc")

	assert.True(t, c.IsSuppressed("SYNC_METHOD", 2))
	assert.False(t, c.IsSuppressed("SYNC_METHOD", 1))
	assert.False(t, c.IsSuppressed("SYNC_METHOD", 3))
	assert.False(t, c.IsSuppressed("N_PLUS_ONE", 2))
}

func TestNextLine(t *testing.T) {
	c := Parse("// java-perf-ignore-next-line: N_PLUS_ONE, SYNC_BLOCK\nrepo.findById(id);\nother();")

	assert.False(t, c.IsSuppressed("N_PLUS_ONE", 1))
	assert.True(t, c.IsSuppressed("N_PLUS_ONE", 2))
	assert.True(t, c.IsSuppressed("SYNC_BLOCK", 2))
	assert.False(t, c.IsSuppressed("N_PLUS_ONE", 3))
}

func TestOmittedListSuppressesAll(t *testing.T) {
	c := Parse("x(); // java-perf-ignore\n/* java-perf-ignore-next-line */\ny();")

	assert.True(t, c.IsSuppressed("ANYTHING", 1))
	assert.False(t, c.IsSuppressed("ANYTHING", 2))
	assert.True(t, c.IsSuppressed("ANYTHING", 3))
}

func TestFileWide(t *testing.T) {
	c := Parse("// java-perf-ignore-file: N_PLUS_ONE\nclass A {}")

	assert.True(t, c.IsSuppressed("N_PLUS_ONE", 1))
	assert.True(t, c.IsSuppressed("N_PLUS_ONE", 500))
	assert.False(t, c.IsSuppressed("SYNC_METHOD", 2))
	assert.False(t, c.FileSuppressed())

	all := Parse("/*\n * java-perf-ignore-file\n */\nclass A {}")
	assert.True(t, all.FileSuppressed())
	assert.True(t, all.IsSuppressed("SYNC_METHOD", 4))
}

func TestMalformedIgnored(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"lowercase ids", "x(); // java-perf-ignore: sync_method"},
		{"empty list", "x(); // java-perf-ignore:"},
		{"unknown marker", "x(); // java-perf-ignore-everything"},
		{"not in comment", `String s = "java-perf-ignore";`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Parse(tt.src)
			assert.True(t, c.Empty())
			assert.False(t, c.IsSuppressed("SYNC_METHOD", 1))
		})
	}
}

func TestDirectiveInStringLiteral(t *testing.T) {
	src := `class A {
    String s = "// java-perf-ignore-file";
    void m() { repo.findById(id); }
    String t = "/* java-perf-ignore */"; // java-perf-ignore: SYNC_BLOCK
}`
	c := Parse(src)

	assert.False(t, c.FileSuppressed())
	assert.False(t, c.IsSuppressed("N_PLUS_ONE", 3))
	assert.False(t, c.IsSuppressed("N_PLUS_ONE", 4))
	assert.True(t, c.IsSuppressed("SYNC_BLOCK", 4))
}

func TestAnnotationInCommentIgnored(t *testing.T) {
	c := Parse("// @SuppressWarnings(\"java-perf:SYNC_METHOD\")\nsynchronized void m() {}")
	assert.True(t, c.Empty())
}

func TestAnnotation(t *testing.T) {
	src := `class A {
    @SuppressWarnings("java-perf:SYNC_METHOD")
    @Override
    public synchronized void run() {}

    public synchronized void other() {}
}`
	c := Parse(src)

	assert.True(t, c.IsSuppressed("SYNC_METHOD", 2))
	assert.True(t, c.IsSuppressed("SYNC_METHOD", 4))
	assert.False(t, c.IsSuppressed("SYNC_METHOD", 6))
	assert.False(t, c.IsSuppressed("N_PLUS_ONE", 4))
}

func TestAnnotationMultiLine(t *testing.T) {
	src := `@SuppressWarnings({
    "unchecked",
    "java-perf:STATIC_COLLECTION", "java-perf:UNBOUNDED_CACHE_MAP"
})
private static Map<String, Object> CACHE = new HashMap<>();`
	c := Parse(src)

	assert.True(t, c.IsSuppressed("STATIC_COLLECTION", 5))
	assert.True(t, c.IsSuppressed("UNBOUNDED_CACHE_MAP", 5))
	assert.False(t, c.IsSuppressed("SYNC_METHOD", 5))
}

func TestAnnotationWithoutNamespaceIgnored(t *testing.T) {
	c := Parse("@SuppressWarnings(\"unchecked\")\nvoid m() {}")
	assert.True(t, c.Empty())
}

func TestFilter(t *testing.T) {
	c := Parse("a(); // java-perf-ignore: X\nb();")
	issues := []models.Issue{
		{RuleID: "X", Line: 1},
		{RuleID: "Y", Line: 1},
		{RuleID: "X", Line: 2},
	}

	out := c.Filter(issues)
	assert.Equal(t, []models.Issue{{RuleID: "Y", Line: 1}, {RuleID: "X", Line: 2}}, out)
}
