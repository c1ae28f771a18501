package parser

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by this package wraps one of them.
var (
	ErrUnterminatedString = errors.New("unterminated string literal")
	ErrUnexpectedToken    = errors.New("unexpected token")
	ErrBadHeader          = errors.New("malformed members header")
	ErrTooDeep            = errors.New("nesting too deep")
	ErrBadOffset          = errors.New("start offset out of range")
	ErrNoLines            = errors.New("no lines to parse")
	ErrNotEnoughTokens    = errors.New("not enough tokens in header line")
	ErrUnknownBackend     = errors.New("unknown backend")
)

// ParseError reports where a parse failed
type ParseError struct {
	Op     string // "tokenize", "gdb" or "cdb"
	Offset int    // byte offset into the text, -1 when not meaningful
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset < 0 {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %v at offset %d", e.Op, e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
