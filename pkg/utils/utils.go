// Package utils provides string helpers shared by the parsers and the CLI
package utils

import "strings"

// SplitNonEmpty splits text on sep, trims every part and drops empty parts
func SplitNonEmpty(text, sep string) []string {
	var out []string
	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BraceDepth returns the number of unclosed '{' in text, ignoring braces
// inside double-quoted strings. Negative when closers outnumber openers.
func BraceDepth(text string) int {
	depth := 0
	inQuote := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case c == '{' && !inQuote:
			depth++
		case c == '}' && !inQuote:
			depth--
		}
	}
	return depth
}

// Indent returns depth*size spaces
func Indent(depth, size int) string {
	if depth <= 0 || size <= 0 {
		return ""
	}
	return strings.Repeat(" ", depth*size)
}
