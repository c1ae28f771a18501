package parser

import "strings"

const warningPrefix = "warning:"

// StripWarningLines drops every line starting with "warning:". Kept lines
// stay in order with their newlines.
func StripWarningLines(input string) string {
	if !strings.Contains(input, warningPrefix) {
		return input
	}

	var result strings.Builder
	rest := input
	for {
		i := strings.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		if line := rest[:i]; !strings.HasPrefix(line, warningPrefix) {
			result.WriteString(line)
			result.WriteByte('\n')
		}
		rest = rest[i+1:]
	}

	if !strings.HasPrefix(rest, warningPrefix) {
		result.WriteString(rest)
	}
	return result.String()
}
