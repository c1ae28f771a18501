// Package watchlist keeps the live watch trees of a debugging session so
// repeated polls of the same expression re-parse into the same nodes.
package watchlist

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"watchparse/pkg/parser"
	"watchparse/pkg/watch"
)

// DefaultSize is the number of expressions kept when no size is given
const DefaultSize = 128

// Registry maps watched expressions to their trees. It is not safe for
// concurrent use; callers serialize access like they do for the trees.
type Registry struct {
	cache   *lru.Cache[string, *watch.Watch]
	backend parser.Backend
	opts    []parser.Option
}

// New creates a registry holding at most size expressions
func New(size int, backend parser.Backend, opts ...parser.Option) (*Registry, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, *watch.Watch](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create watch cache: %w", err)
	}
	return &Registry{cache: cache, backend: backend, opts: opts}, nil
}

func (r *Registry) Backend() parser.Backend           { return r.backend }
func (r *Registry) SetBackend(backend parser.Backend) { r.backend = backend }

// Update parses raw into the tree for expr, creating it on first use.
//
// When the text does not parse, the tree falls back to a scalar holding
// the raw text and the parse error is returned alongside it.
func (r *Registry) Update(expr, raw string) (*watch.Watch, error) {
	w, ok := r.cache.Get(expr)
	if !ok {
		w = watch.New(expr)
		r.cache.Add(expr, w)
	}

	w.ResetChanged()
	if err := parser.Parse(w, raw, r.backend, r.opts...); err != nil {
		w.SetValue(raw)
		w.SetDebugValue(raw)
		w.RemoveChildren()
		return w, err
	}
	return w, nil
}

// Get returns the tree for expr
func (r *Registry) Get(expr string) (*watch.Watch, bool) {
	return r.cache.Get(expr)
}

// Remove drops expr and reports whether it was present
func (r *Registry) Remove(expr string) bool {
	return r.cache.Remove(expr)
}

// Keys returns the watched expressions in sorted order
func (r *Registry) Keys() []string {
	keys := r.cache.Keys()
	sort.Strings(keys)
	return keys
}

func (r *Registry) Len() int { return r.cache.Len() }
