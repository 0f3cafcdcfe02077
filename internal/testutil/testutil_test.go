package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyTree(t *testing.T) {
	src := JavaProject(t, map[string]string{
		"a/A.java":   "class A {}",
		"a/b/B.java": "class B {}",
	})
	dst := CopyTree(t, src)

	assert.NotEqual(t, src, dst)
	assert.Equal(t, []string{"a/A.java", "a/b/B.java"}, ListFiles(t, dst))
	assert.Equal(t, "class B {}", ReadFile(t, filepath.Join(dst, "a", "b", "B.java")))
}
