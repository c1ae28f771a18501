// Package formatter renders watch trees for humans and tools
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v2"

	"watchparse/pkg/utils"
	"watchparse/pkg/watch"
)

// Formatter renders watch trees
type Formatter struct {
	indentSize  int
	markChanged bool
	collapse    bool
}

// New creates a new formatter
func New() *Formatter {
	return &Formatter{
		indentSize: 2,
	}
}

// WithChangeMarkers prefixes nodes whose value changed in the last parse with "*"
func (f *Formatter) WithChangeMarkers(mark bool) *Formatter {
	f.markChanged = mark
	return f
}

// WithCollapse hides the children of nodes below the root that are not expanded
func (f *Formatter) WithCollapse(collapse bool) *Formatter {
	f.collapse = collapse
	return f
}

// Node is a serializable snapshot of a watch
type Node struct {
	Name     string `json:"name" yaml:"name"`
	Value    string `json:"value" yaml:"value"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Changed  bool   `json:"changed,omitempty" yaml:"changed,omitempty"`
	Children []Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Snapshot copies the tree rooted at w
func Snapshot(w *watch.Watch) Node {
	n := Node{
		Name:    w.Name(),
		Value:   w.Value(),
		Type:    w.Type(),
		Changed: w.Changed(),
	}
	for _, child := range w.Children() {
		n.Children = append(n.Children, Snapshot(child))
	}
	return n
}

// Render returns the tree as indented "name = value" lines
func (f *Formatter) Render(w *watch.Watch) string {
	var result strings.Builder
	w.Walk(func(node *watch.Watch, depth int) bool {
		f.renderLine(&result, node, depth)
		return !f.collapse || depth == 0 || node.Expanded()
	})
	return result.String()
}

func (f *Formatter) renderLine(b *strings.Builder, w *watch.Watch, depth int) {
	if f.markChanged {
		if w.Changed() {
			b.WriteString("* ")
		} else {
			b.WriteString("  ")
		}
	}
	b.WriteString(utils.Indent(depth, f.indentSize))
	b.WriteString(w.Name())

	if w.Type() != "" {
		fmt.Fprintf(b, " (%s)", w.Type())
	}
	if w.Value() != "" || w.ChildCount() == 0 {
		b.WriteString(" = ")
		b.WriteString(oneLine(w.Value()))
	}
	if w.IsArray() {
		fmt.Fprintf(b, " [array from %d]", w.ArrayStart())
	}
	if f.collapse && depth > 0 && !w.Expanded() && w.ChildCount() > 0 {
		fmt.Fprintf(b, " {...%d}", w.ChildCount())
	}
	b.WriteString("\n")
}

// oneLine keeps multi-line values on a single output line
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(s)
}

// JSON returns an indented JSON snapshot of the tree
func (f *Formatter) JSON(w *watch.Watch) (string, error) {
	var result strings.Builder
	encoder := json.NewEncoder(&result)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Snapshot(w)); err != nil {
		return "", fmt.Errorf("failed to encode tree: %w", err)
	}
	return result.String(), nil
}

// YAML returns a YAML snapshot of the tree
func (f *Formatter) YAML(w *watch.Watch) (string, error) {
	data, err := yaml.Marshal(Snapshot(w))
	if err != nil {
		return "", fmt.Errorf("failed to encode tree: %w", err)
	}
	return string(data), nil
}

// Write renders w to out in the named format: human, json or yaml
func (f *Formatter) Write(out io.Writer, w *watch.Watch, format string) error {
	var (
		text string
		err  error
	)
	switch format {
	case "json":
		text, err = f.JSON(w)
	case "yaml":
		text, err = f.YAML(w)
	case "human", "":
		text = f.Render(w)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}
