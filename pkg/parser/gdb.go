package parser

import (
	"strings"

	"watchparse/pkg/watch"
)

// DefaultMaxDepth caps brace nesting for the GDB grammar
const DefaultMaxDepth = 256

const membersHeader = "members of "

// Option configures a parse
type Option func(*options)

type options struct {
	maxDepth int
}

// WithMaxDepth sets the brace nesting limit. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// gdbParser holds the text being parsed by the brace grammar
type gdbParser struct {
	text     string
	maxDepth int
}

// pending is a name or value slot. raw keeps the untrimmed span.
type pending struct {
	tok Token
	raw Token
}

func (p pending) set() bool {
	return p.tok.Kind != TokenUndefined
}

// ParseGDBValue parses GDB "print" output into w.
//
// Text ending in a brace group is parsed as a structure; anything before
// the first brace is a reference value and becomes w's value. Any other
// text is a scalar and replaces all of w's children.
//
// A structure without a reference prefix leaves w's value untouched, so a
// node that held a scalar keeps that value once it turns into a structure.
// Callers that show structure values should clear it first.
func ParseGDBValue(w *watch.Watch, text string, opts ...Option) error {
	if text == "" {
		w.SetValue(text)
		return nil
	}

	value := StripWarningLines(text)

	start := strings.IndexByte(value, '{')
	if start >= 0 && strings.HasSuffix(value, "}") {
		p := &gdbParser{text: value, maxDepth: buildOptions(opts).maxDepth}
		if _, err := p.parseStructure(w, start+1, len(value)-2, 0); err != nil {
			return err
		}
		if start > 0 {
			w.SetValue(strings.TrimSpace(value[:start]))
		}
		w.SetDebugValue(value)
		w.RemoveMarkedChildren()
		return nil
	}

	w.SetValue(value)
	w.SetDebugValue(value)
	w.RemoveChildren()
	return nil
}

// ParseStructure parses the brace body of text beginning at start into w and
// returns the offset where it stopped. With length > 0 the scan also stops
// once it reaches start+length. Children missing from the text stay marked
// as removed; the caller sweeps them with RemoveMarkedChildren.
func ParseStructure(w *watch.Watch, text string, start, length int, opts ...Option) (int, error) {
	if start < 0 || start > len(text) {
		return start, &ParseError{Op: "gdb", Offset: start, Err: ErrBadOffset}
	}
	p := &gdbParser{text: text, maxDepth: buildOptions(opts).maxDepth}
	return p.parseStructure(w, start, length, 0)
}

func (p *gdbParser) parseStructure(w *watch.Watch, start, length, depth int) (int, error) {
	if depth >= p.maxDepth {
		return start, p.fail(ErrTooDeep, start)
	}

	w.MarkChildrenRemoved()

	var name, value pending
	position := start
	realEnd := start
	skipComma := false
	lastWasClosingBrace := false
	added := 0

	for {
		raw, ok, err := NextToken(p.text, position)
		if err != nil {
			return position, err
		}
		if !ok {
			break
		}
		realEnd = raw.End

		tok := raw.Trim(p.text)
		if str := tok.Text(p.text); strings.HasPrefix(str, membersHeader) {
			nl := strings.IndexByte(str, '\n')
			if nl < 0 || strings.LastIndexByte(str[:nl], ':') < 0 {
				return position, p.fail(ErrBadHeader, tok.Start)
			}
			tok.Start += nl + 1
			tok = tok.Trim(p.text)
			raw.Start = tok.Start
		}

		switch tok.Kind {
		case TokenString:
			switch {
			case !name.set():
				name = pending{tok: tok, raw: raw}
			case !value.set():
				value = pending{tok: tok, raw: raw}
			default:
				return position, p.fail(ErrUnexpectedToken, tok.Start)
			}
			lastWasClosingBrace = false

		case TokenEqual:
			lastWasClosingBrace = false

		case TokenComma:
			lastWasClosingBrace = false
			if skipComma {
				skipComma = false
				break
			}
			if !name.set() {
				return position, p.fail(ErrUnexpectedToken, tok.Start)
			}
			p.flush(w, name, value, added)
			name, value = pending{}, pending{}
			added++

		case TokenOpenBrace:
			var child *watch.Watch
			if name.set() {
				child = addChild(w, name.tok.Text(p.text))
			} else {
				child = addChild(w, watch.ElementName(arrayStart(w)+added))
			}
			added++

			next, err := p.parseStructure(child, realEnd, 0, depth+1)
			if err != nil {
				return next, err
			}
			realEnd = next
			name, value = pending{}, pending{}
			skipComma = true
			lastWasClosingBrace = true

		case TokenCloseBrace:
			if !lastWasClosingBrace {
				if name.set() {
					p.flush(w, name, value, added)
				} else {
					w.SetValue("")
				}
			}
			w.SetDebugValue(p.text[start:raw.Start])
			return realEnd, nil

		default:
			return position, p.fail(ErrUnexpectedToken, tok.Start)
		}

		position = realEnd
		if length > 0 && position >= start+length {
			break
		}
	}

	if name.set() {
		p.flush(w, name, value, added)
	}
	w.SetDebugValue(p.text[start:min(position, len(p.text))])
	return position, nil
}

// flush stores a pending entry as a child of w. A name without a value is
// an unnamed array element.
func (p *gdbParser) flush(w *watch.Watch, name, value pending, added int) {
	var child *watch.Watch
	var source pending
	if value.set() {
		child = addChild(w, name.tok.Text(p.text))
		source = value
	} else {
		child = addChild(w, watch.ElementName(arrayStart(w)+added))
		source = name
	}
	child.SetValue(source.tok.Text(p.text))
	child.SetDebugValue(source.raw.Text(p.text))
	child.RemoveChildren()
}

func (p *gdbParser) fail(err error, offset int) error {
	return &ParseError{Op: "gdb", Offset: offset, Err: err}
}

// addChild returns the named child of parent, creating it when missing,
// and clears its removal mark.
func addChild(parent *watch.Watch, name string) *watch.Watch {
	child := parent.FindChild(name)
	if child == nil {
		child = watch.New(name)
		parent.AddChild(child)
	}
	child.MarkAsRemoved(false)
	return child
}

func arrayStart(w *watch.Watch) int {
	if w.IsArray() {
		return w.ArrayStart()
	}
	return 0
}
