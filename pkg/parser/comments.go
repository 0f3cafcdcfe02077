package parser

import "bytes"

// BlankComments replaces the contents of Java comments with spaces, keeping
// newlines so byte offsets and line numbers survive. String, text-block and
// character literals are left intact.
func BlankComments(src []byte) []byte {
	return maskComments(src, false)
}

// CommentsOnly is the complement of BlankComments: everything outside a
// comment becomes a space, newlines excepted. Comment text inside string
// literals is blanked with the rest of the code.
func CommentsOnly(src []byte) []byte {
	return maskComments(src, true)
}

// maskComments walks src with a small lexer and blanks either the comment
// bytes or the code bytes, depending on keep.
func maskComments(src []byte, keep bool) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	const (
		code = iota
		lineComment
		blockComment
		str
		textBlock
		char
	)
	// mark blanks out[from:to] when that region is not the kept kind.
	mark := func(from, to int, comment bool) {
		if comment == keep {
			return
		}
		for j := from; j < to && j < len(out); j++ {
			if out[j] != '\n' {
				out[j] = ' '
			}
		}
	}

	state := code
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = lineComment
				mark(i, i+2, true)
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = blockComment
				mark(i, i+2, true)
				i++
			case c == '"' && bytes.HasPrefix(src[i:], []byte(`"""`)):
				state = textBlock
				mark(i, i+3, false)
				i += 2
			case c == '"':
				state = str
				mark(i, i+1, false)
			case c == '\'':
				state = char
				mark(i, i+1, false)
			default:
				mark(i, i+1, false)
			}
		case lineComment:
			if c == '\n' {
				state = code
			} else {
				mark(i, i+1, true)
			}
		case blockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				mark(i, i+2, true)
				i++
				state = code
			} else {
				mark(i, i+1, true)
			}
		case str, char:
			quote := byte('"')
			if state == char {
				quote = '\''
			}
			switch c {
			case '\\':
				mark(i, i+2, false)
				i++
			case quote, '\n':
				mark(i, i+1, false)
				state = code
			default:
				mark(i, i+1, false)
			}
		case textBlock:
			switch {
			case c == '\\':
				mark(i, i+2, false)
				i++
			case bytes.HasPrefix(src[i:], []byte(`"""`)):
				mark(i, i+3, false)
				i += 2
				state = code
			default:
				mark(i, i+1, false)
			}
		}
	}
	return out
}
