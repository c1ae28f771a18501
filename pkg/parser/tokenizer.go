// Package parser - tokenizer for debugger value text
package parser

import "fmt"

// TokenKind represents the kind of a token
type TokenKind int

const (
	TokenUndefined  TokenKind = iota // zero value, marks an unset slot
	TokenOpenBrace                   // {
	TokenCloseBrace                  // }
	TokenEqual                       // =
	TokenComma                       // ,
	TokenString                      // names, values, quoted strings, <...> fragments
)

// tokenKindNames maps token kinds to their names for debugging
var tokenKindNames = map[TokenKind]string{
	TokenUndefined:  "UNDEFINED",
	TokenOpenBrace:  "OPEN_BRACE",
	TokenCloseBrace: "CLOSE_BRACE",
	TokenEqual:      "EQUAL",
	TokenComma:      "COMMA",
	TokenString:     "STRING",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a half-open span [Start, End) over the scanned text
type Token struct {
	Start int
	End   int
	Kind  TokenKind
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s[%d:%d]", t.Kind, t.Start, t.End)
}

// Text returns the part of s covered by the token
func (t Token) Text(s string) string {
	return s[t.Start:t.End]
}

// Trim shrinks the span past leading and trailing blanks. The text is not touched.
func (t Token) Trim(s string) Token {
	for t.Start < t.End && isBlank(s[t.Start]) {
		t.Start++
	}
	for t.End > t.Start && isBlank(s[t.End-1]) {
		t.End--
	}
	return t
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

func isDelimiter(c byte) bool {
	return c == ',' || c == '=' || c == '{' || c == '}'
}

// NextToken scans the token starting at or after pos. ok is false once only
// blanks remain. A quoted string that never closes is an error.
func NextToken(s string, pos int) (tok Token, ok bool, err error) {
	for pos < len(s) && isBlank(s[pos]) {
		pos++
	}
	if pos >= len(s) {
		return Token{}, false, nil
	}

	switch s[pos] {
	case '=':
		return Token{Start: pos, End: pos + 1, Kind: TokenEqual}, true, nil
	case ',':
		return Token{Start: pos, End: pos + 1, Kind: TokenComma}, true, nil
	case '{':
		return Token{Start: pos, End: pos + 1, Kind: TokenOpenBrace}, true, nil
	case '}':
		return Token{Start: pos, End: pos + 1, Kind: TokenCloseBrace}, true, nil
	}

	tok = Token{Start: pos, Kind: TokenString}
	inQuote := s[pos] == '"'
	angles := 0
	if s[pos] == '<' {
		angles = 1
	}
	pos++

	escapeNext := false
	for ; pos < len(s); pos++ {
		c := s[pos]
		if angles > 0 {
			switch c {
			case '<':
				angles++
			case '>':
				angles--
			}
			continue
		}

		if inQuote {
			switch {
			case escapeNext:
				escapeNext = false
			case c == '\\':
				escapeNext = true
			case c == '"':
				tok.End = pos + 1
				return tok, true, nil
			}
			continue
		}

		if isDelimiter(c) {
			tok.End = pos
			return tok, true, nil
		}
		if c == '<' {
			angles++
		}
	}

	if inQuote {
		return Token{}, false, &ParseError{Op: "tokenize", Offset: tok.Start, Err: ErrUnterminatedString}
	}
	tok.End = pos
	return tok, true, nil
}

// Tokenize scans the whole text. It is used for diagnostics; the parsers
// pull tokens one at a time with NextToken.
func Tokenize(s string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for {
		tok, ok, err := NextToken(s, pos)
		if err != nil {
			return tokens, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
		pos = tok.End
	}
}
