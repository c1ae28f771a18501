package parser

import (
	"fmt"
	"strings"

	"watchparse/pkg/watch"
)

// Backend selects which debugger grammar a value is parsed with
type Backend int

const (
	BackendGDB Backend = iota
	BackendCDB
)

func (b Backend) String() string {
	switch b {
	case BackendGDB:
		return "gdb"
	case BackendCDB:
		return "cdb"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend parses a backend name; the empty string means gdb
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gdb", "":
		return BackendGDB, nil
	case "cdb":
		return BackendCDB, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

// Parse parses text into w with the grammar of backend. The tree may be
// partially updated when an error is returned.
func Parse(w *watch.Watch, text string, backend Backend, opts ...Option) error {
	switch backend {
	case BackendGDB:
		return ParseGDBValue(w, text, opts...)
	case BackendCDB:
		return ParseCDBValue(w, text)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
