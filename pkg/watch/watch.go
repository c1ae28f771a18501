// Package watch defines the watch tree that debugger values are parsed into
package watch

import (
	"fmt"
	"strings"
)

// Watch represents one inspected variable or member
type Watch struct {
	name       string   // Unique among siblings; "[n]" for array elements
	value      string   // Display value
	debugValue string   // Raw text the node was derived from
	typ        string   // Type string, if known
	children   []*Watch // Child nodes in insertion order
	parent     *Watch   // Parent node, nil for roots
	removed    bool     // Transient mark used while re-parsing
	changed    bool     // Value differs from the previous parse
	expanded   bool     // Consumer state, survives re-parses
	isArray    bool     // Children are indexed elements
	arrayStart int      // Base index for synthesized element names
	arrayCount int      // Number of elements the debugger reported
}

// New creates a detached watch with the given name
func New(name string) *Watch {
	return &Watch{name: name}
}

// ElementName returns the synthesized child name for array element index
func ElementName(index int) string {
	return fmt.Sprintf("[%d]", index)
}

func (w *Watch) Name() string       { return w.name }
func (w *Watch) Value() string      { return w.value }
func (w *Watch) DebugValue() string { return w.debugValue }
func (w *Watch) Type() string       { return w.typ }
func (w *Watch) Parent() *Watch     { return w.parent }

// SetValue sets the display value and flags the node as changed when it differs
func (w *Watch) SetValue(value string) {
	if w.value != value {
		w.value = value
		w.changed = true
	}
}

func (w *Watch) SetDebugValue(value string) { w.debugValue = value }
func (w *Watch) SetType(typ string)         { w.typ = typ }

// Changed reports whether the value changed since the last ResetChanged
func (w *Watch) Changed() bool { return w.changed }

// ResetChanged clears the changed flag on w and all of its descendants
func (w *Watch) ResetChanged() {
	w.changed = false
	for _, child := range w.children {
		child.ResetChanged()
	}
}

func (w *Watch) Expanded() bool          { return w.expanded }
func (w *Watch) SetExpanded(expand bool) { w.expanded = expand }

// IsArray reports whether children are indexed elements
func (w *Watch) IsArray() bool { return w.isArray }

// ArrayStart returns the base index used to name unnamed elements
func (w *Watch) ArrayStart() int { return w.arrayStart }

// ArrayCount returns the element count the debugger was asked for
func (w *Watch) ArrayCount() int { return w.arrayCount }

// SetArray flags the watch as an array starting at start
func (w *Watch) SetArray(start, count int) {
	w.isArray = true
	w.arrayStart = start
	w.arrayCount = count
}

// ClearArray drops the array flag
func (w *Watch) ClearArray() {
	w.isArray = false
	w.arrayStart = 0
	w.arrayCount = 0
}

// AddChild appends a child. Callers look the name up first; names stay unique.
func (w *Watch) AddChild(child *Watch) {
	child.parent = w
	w.children = append(w.children, child)
}

// FindChild finds a direct child by name
func (w *Watch) FindChild(name string) *Watch {
	if i := w.FindChildIndex(name); i >= 0 {
		return w.children[i]
	}
	return nil
}

// FindChildIndex returns the index of the named child or -1
func (w *Watch) FindChildIndex(name string) int {
	for i, child := range w.children {
		if child.name == name {
			return i
		}
	}
	return -1
}

// Child returns the child at index i, or nil when out of range
func (w *Watch) Child(i int) *Watch {
	if i < 0 || i >= len(w.children) {
		return nil
	}
	return w.children[i]
}

func (w *Watch) ChildCount() int { return len(w.children) }

// Children returns a copy of the child list
func (w *Watch) Children() []*Watch {
	out := make([]*Watch, len(w.children))
	copy(out, w.children)
	return out
}

// MarkAsRemoved sets or clears the removal mark
func (w *Watch) MarkAsRemoved(flag bool) { w.removed = flag }

// IsRemoved reports the removal mark
func (w *Watch) IsRemoved() bool { return w.removed }

// MarkChildrenRemoved marks every direct child for removal
func (w *Watch) MarkChildrenRemoved() {
	for _, child := range w.children {
		child.removed = true
	}
}

// RemoveMarkedChildren deletes marked children and recurses into the survivors
func (w *Watch) RemoveMarkedChildren() {
	kept := w.children[:0]
	for _, child := range w.children {
		if child.removed {
			child.parent = nil
			continue
		}
		child.RemoveMarkedChildren()
		kept = append(kept, child)
	}
	for i := len(kept); i < len(w.children); i++ {
		w.children[i] = nil
	}
	w.children = kept
}

// RemoveChildren deletes every child
func (w *Watch) RemoveChildren() {
	for _, child := range w.children {
		child.parent = nil
	}
	w.children = nil
}

// Path returns the names from the root down to w
func (w *Watch) Path() []string {
	var path []string
	for current := w; current != nil; current = current.parent {
		path = append([]string{current.name}, path...)
	}
	return path
}

// FullPath joins Path with "." separators, attaching element names directly
func (w *Watch) FullPath() string {
	var b strings.Builder
	for i, part := range w.Path() {
		if i > 0 && !strings.HasPrefix(part, "[") {
			b.WriteString(".")
		}
		b.WriteString(part)
	}
	return b.String()
}

// FindByPath walks child names starting below w
func (w *Watch) FindByPath(path []string) *Watch {
	if len(path) == 0 {
		return w
	}

	child := w.FindChild(path[0])
	if child == nil {
		return nil
	}

	return child.FindByPath(path[1:])
}

// Walk visits w and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func (w *Watch) Walk(fn func(node *Watch, depth int) bool) {
	w.walk(fn, 0)
}

func (w *Watch) walk(fn func(*Watch, int) bool, depth int) {
	if !fn(w, depth) {
		return
	}
	for _, child := range w.children {
		child.walk(fn, depth+1)
	}
}

// Count returns the number of nodes in the subtree rooted at w
func (w *Watch) Count() int {
	n := 0
	w.Walk(func(*Watch, int) bool {
		n++
		return true
	})
	return n
}
