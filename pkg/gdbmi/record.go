// Package gdbmi reads GDB/MI output far enough to recover the console text
// of a "print" command, which is what the value parsers consume.
//
// Format details: https://sourceware.org/gdb/onlinedocs/gdb/GDB_002fMI-Output-Syntax.html
package gdbmi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record natures, the first character after the optional token
const (
	NatureResult  = '^'
	NatureExec    = '*'
	NatureStatus  = '+'
	NatureNotify  = '='
	NatureConsole = '~'
	NatureTarget  = '@'
	NatureLog     = '&'
)

const prompt = "(gdb)"

// NamedValue is a name/value pair inside a list, e.g. [frame={...}]
type NamedValue struct {
	Name  string
	Value interface{}
}

// Record is one parsed line of MI output
type Record struct {
	Token      string
	Nature     byte
	Class      string
	Results    map[string]interface{}
	Stream     string // unescaped payload of stream records
	ParseError string
	Raw        string
}

// ResultError is a ^error result record
type ResultError struct {
	Msg  string
	Code string
}

func (e *ResultError) Error() string {
	if e.Code != "" {
		return "gdb: " + e.Msg + " (" + e.Code + ")"
	}
	return "gdb: " + e.Msg
}

// ParseOutput parses every non-empty line of s, skipping "(gdb)" prompts.
// A line that fails to parse still yields a record with ParseError set.
func ParseOutput(s string) []*Record {
	lines := strings.Split(s, "\n")
	records := make([]*Record, 0, len(lines))

	for _, raw := range lines {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, prompt) {
			continue
		}

		r, err := ParseRecord(raw)
		if err != nil {
			r.ParseError = err.Error()
		}
		records = append(records, r)
	}

	return records
}

// ParseRecord parses a single line of MI output. The returned record is
// never nil; on error it holds what was parsed before the failure.
func ParseRecord(s string) (*Record, error) {
	p := &parser{s: s}
	rec := &Record{Raw: s}
	rec.Token = p.parseDigits()

	if p.eof() {
		return rec, p.errEOF("record", "record nature character")
	}

	switch c := p.s[p.i]; c {
	case NatureResult, NatureExec, NatureStatus, NatureNotify:
		rec.Nature = c
		p.i++
		rec.Class = p.parseWord()
		if rec.Class == "" {
			return rec, p.err("result or async record", "class")
		}
		if p.eof() {
			return rec, nil
		}
		if !p.consume(',') {
			return rec, p.err("result or async record", "','")
		}
		results, err := p.parseResults()
		rec.Results = results
		return rec, err

	case NatureConsole, NatureTarget, NatureLog:
		rec.Nature = c
		p.i++
		str, err := p.parseString()
		if err != nil {
			return rec, err
		}
		rec.Stream = str
		if !p.eof() {
			return rec, p.err("stream", "end of line")
		}
		return rec, nil

	default:
		return rec, p.err("record", "record nature character")
	}
}

// ConsoleText joins the console stream payloads of records. A ^error
// result record turns into a *ResultError.
func ConsoleText(records []*Record) (string, error) {
	var b strings.Builder
	for _, r := range records {
		switch {
		case r.Nature == NatureResult && r.Class == "error":
			msg, _ := r.Results["msg"].(string)
			code, _ := r.Results["code"].(string)
			return b.String(), &ResultError{Msg: msg, Code: code}
		case r.Nature == NatureConsole:
			b.WriteString(r.Stream)
		}
	}
	return b.String(), nil
}

var historyPrefix = regexp.MustCompile(`^\$\d+ = `)

// StripHistoryPrefix removes the "$N = " label gdb puts in front of printed values
func StripHistoryPrefix(s string) string {
	return historyPrefix.ReplaceAllString(s, "")
}

// parser holds state for parsing one line
type parser struct {
	s string
	i int
}

func (p *parser) eof() bool { return p.i >= len(p.s) }

// result ( "," result )*
func (p *parser) parseResults() (map[string]interface{}, error) {
	data := make(map[string]interface{})
	for {
		name, v, err := p.parseResult()
		if err != nil {
			return data, err
		}
		data[name] = v
		if p.eof() {
			return data, nil
		}
		if !p.consume(',') {
			return data, p.err("results", "','")
		}
	}
}

// result ==> variable "=" value
func (p *parser) parseResult() (string, interface{}, error) {
	name := p.parseWord()
	if name == "" {
		return "", nil, p.err("result", "name")
	}
	if !p.consume('=') {
		return "", nil, p.err("result", "'='")
	}
	v, err := p.parseValue()
	return name, v, err
}

// value ==> const | tuple | list
func (p *parser) parseValue() (interface{}, error) {
	if p.eof() {
		return nil, p.errEOF("value", `'"', '{' or '['`)
	}
	switch p.s[p.i] {
	case '"':
		return p.parseString()
	case '{':
		return p.parseTuple()
	case '[':
		return p.parseList()
	}
	return nil, p.err("value", `'"', '{' or '['`)
}

// parseString reads a c-string and returns it unescaped
func (p *parser) parseString() (string, error) {
	if p.eof() {
		return "", p.errEOF("string", `'"'`)
	}
	if p.s[p.i] != '"' {
		return "", p.err("string", `'"'`)
	}

	start := p.i
	for i := start + 1; i < len(p.s); i++ {
		switch p.s[i] {
		case '\\':
			i++
		case '"':
			p.i = i + 1
			return unescape(p.s[start+1 : i]), nil
		}
	}
	return "", p.errEOF("string", `a character or terminating '"'`)
}

// tuple ==> "{}" | "{" result ( "," result )* "}"
func (p *parser) parseTuple() (map[string]interface{}, error) {
	p.i++
	tuple := make(map[string]interface{})
	if p.consume('}') {
		return tuple, nil
	}

	for {
		name, v, err := p.parseResult()
		if err != nil {
			return tuple, err
		}
		tuple[name] = v
		if p.eof() {
			return tuple, p.errEOF("tuple", "',' or '}'")
		}
		if !p.consume(',') {
			break
		}
	}

	if !p.consume('}') {
		return tuple, p.err("tuple", "'}'")
	}
	return tuple, nil
}

// list ==> "[]" | "[" value ( "," value )* "]" | "[" result ( "," result )* "]"
func (p *parser) parseList() ([]interface{}, error) {
	p.i++
	list := make([]interface{}, 0)
	if p.consume(']') {
		return list, nil
	}
	if p.eof() {
		return list, p.errEOF("list", "value or ']'")
	}

	named := isWordChar(p.s[p.i])
	for {
		if named {
			name, v, err := p.parseResult()
			if err != nil {
				return list, err
			}
			list = append(list, NamedValue{Name: name, Value: v})
		} else {
			v, err := p.parseValue()
			if err != nil {
				return list, err
			}
			list = append(list, v)
		}
		if p.eof() {
			return list, p.errEOF("list", "',' or ']'")
		}
		if !p.consume(',') {
			break
		}
	}

	if !p.consume(']') {
		return list, p.err("list", "']'")
	}
	return list, nil
}

func isWordChar(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '-' || c == '_'
}

// parseWord returns the run of letters, '-' and '_' at the current position
func (p *parser) parseWord() string {
	start := p.i
	for p.i < len(p.s) && isWordChar(p.s[p.i]) {
		p.i++
	}
	return p.s[start:p.i]
}

// parseDigits returns the run of digits at the current position
func (p *parser) parseDigits() string {
	start := p.i
	for p.i < len(p.s) && '0' <= p.s[p.i] && p.s[p.i] <= '9' {
		p.i++
	}
	return p.s[start:p.i]
}

// consume advances past c when it is the current character
func (p *parser) consume(c byte) bool {
	if p.i < len(p.s) && p.s[p.i] == c {
		p.i++
		return true
	}
	return false
}

func (p *parser) err(elmType, expected string) error {
	if p.eof() {
		return p.errEOF(elmType, expected)
	}
	return fmt.Errorf("malformed %s, expected %s, found %q at %d", elmType, expected, p.s[p.i], p.i)
}

func (p *parser) errEOF(elmType, expected string) error {
	return fmt.Errorf("malformed %s, expected %s, found EOF", elmType, expected)
}

// unescape decodes the C escapes gdb uses in c-strings. Text that Go's
// quoting rules reject is returned as is.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	if out, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return out
	}
	return s
}
