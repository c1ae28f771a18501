package parser

import (
	"regexp"
	"strings"

	"watchparse/pkg/utils"
	"watchparse/pkg/watch"
)

// CDB prints values as a header line with the type, optionally followed by
// one line per member:
//
//	struct tagWNDCLASSEXA
//	   +0x000 cbSize           : 0x7c8021b5
//	   +0x004 style            : 0x7c802011
//
//	char * 0x0040aa30
//	 "CodeBlocksWindowsApp"
var (
	unexpectedTokenLine = regexp.MustCompile(`^Unexpected token '.+'$`)
	resolveErrorLine    = regexp.MustCompile(`^Couldn't resolve error at '.+'$`)
	memberLine          = regexp.MustCompile(`[ \t]*\+(0x[0-9a-f]+)[ \t]([a-zA-Z0-9_]+)[ \t]+:[ \t]+(.+)`)
)

const noPointerLine = "No pointer for operator* '<EOL>'"

func init() {
	m := memberLine.FindStringSubmatch("   +0x000 a                : 10")
	if m == nil || m[2] != "a" || m[3] != "10" {
		panic("parser: cdb member line pattern failed its self-check")
	}
}

// isErrorLine reports whether CDB printed a diagnostic instead of a value
func isErrorLine(line string) bool {
	return unexpectedTokenLine.MatchString(line) ||
		resolveErrorLine.MatchString(line) ||
		line == noPointerLine
}

// ParseCDBValue parses CDB "dt"/"??" output into w. A recognised CDB
// diagnostic is not a failure: it becomes w's value.
func ParseCDBValue(w *watch.Watch, text string) error {
	lines := utils.SplitNonEmpty(text, "\n")
	w.SetDebugValue(text)
	w.MarkChildrenRemoved()

	if len(lines) == 0 {
		return &ParseError{Op: "cdb", Offset: -1, Err: ErrNoLines}
	}

	for _, line := range lines {
		if isErrorLine(line) {
			w.SetValue(line)
			w.RemoveMarkedChildren()
			return nil
		}
	}

	if len(lines) == 1 {
		return parseCDBSingleLine(w, lines[0])
	}
	return parseCDBMultiLine(w, lines)
}

// parseCDBSingleLine handles "<type> [*] <value>", optionally led by "class"
func parseCDBSingleLine(w *watch.Watch, line string) error {
	tokens := utils.SplitNonEmpty(line, " ")
	if len(tokens) < 2 {
		return notEnoughTokens()
	}

	typeToken := 0
	if tokens[0] == "class" {
		typeToken = 1
	}
	if len(tokens) < typeToken+2 {
		return notEnoughTokens()
	}

	valueStart := typeToken + 1
	if tokens[typeToken+1] == "*" {
		w.SetType(tokens[typeToken] + tokens[typeToken+1])
		valueStart++
	} else {
		w.SetType(tokens[typeToken])
	}

	if valueStart >= len(tokens) {
		return notEnoughTokens()
	}

	w.SetValue(tokens[valueStart])
	w.RemoveMarkedChildren()
	return nil
}

func parseCDBMultiLine(w *watch.Watch, lines []string) error {
	tokens := utils.SplitNonEmpty(lines[0], " ")
	if len(tokens) < 2 {
		return notEnoughTokens()
	}

	setType := true
	if len(tokens) > 2 {
		if tokens[0] == "struct" || tokens[0] == "class" {
			if isPointerOrArray(tokens[2]) {
				w.SetType(tokens[1] + tokens[2])
				setType = false
			}
		} else if isPointerOrArray(tokens[1]) {
			// The second line holds the pointee or first element.
			w.SetType(tokens[0] + tokens[1])
			w.SetValue(lines[1])
			w.RemoveMarkedChildren()
			return nil
		}
	}

	if setType {
		w.SetType(tokens[1])
	}

	for _, line := range lines[1:] {
		m := memberLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		child := addChild(w, m[2])
		child.SetValue(m[3])
		child.SetDebugValue(line)
	}

	w.RemoveMarkedChildren()
	return nil
}

func isPointerOrArray(token string) bool {
	return token == "*" || strings.HasPrefix(token, "[")
}

func notEnoughTokens() error {
	return &ParseError{Op: "cdb", Offset: -1, Err: ErrNotEnoughTokens}
}
