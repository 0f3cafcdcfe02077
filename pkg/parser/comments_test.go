package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlankComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "a // b\nc", "a     \nc"},
		{"block comment keeps newlines", "a /* b\nc */ d", "a     \n     d"},
		{"string untouched", `s = "// not a comment";`, `s = "// not a comment";`},
		{"escaped quote", `s = "\" // x"; // y`, `s = "\" // x";     `},
		{"char literal", `c = '/'; // z`, `c = '/';     `},
		{"text block", "s = \"\"\"\n// kept\n\"\"\"; // gone", "s = \"\"\"\n// kept\n\"\"\";        "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(BlankComments([]byte(tt.in)))
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.in))
		})
	}
}

func TestCommentsOnly(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "a // b\nc", "  // b\n "},
		{"block comment keeps newlines", "a /* b\nc */ d", "  /* b\nc */  "},
		{"string blanked", `s = "// not a comment";`, strings.Repeat(" ", 23)},
		{"comment after string", `s = "/* x"; // y`, `            // y`},
		{"text block", "s = \"\"\"\n// kept\n\"\"\"; // gone", "       \n       \n     // gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(CommentsOnly([]byte(tt.in)))
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.in))
		})
	}
}
