package parser

import (
	"errors"
	"strings"
	"testing"

	"watchparse/pkg/watch"
)

func childValues(w *watch.Watch) map[string]string {
	values := make(map[string]string)
	for _, child := range w.Children() {
		values[child.Name()] = child.Value()
	}
	return values
}

func childNames(w *watch.Watch) []string {
	var names []string
	for _, child := range w.Children() {
		names = append(names, child.Name())
	}
	return names
}

func mustParseGDB(t *testing.T, w *watch.Watch, text string, opts ...Option) {
	t.Helper()
	if err := ParseGDBValue(w, text, opts...); err != nil {
		t.Fatalf("ParseGDBValue(%q) failed: %v", text, err)
	}
}

func TestParseGDBScalar(t *testing.T) {
	w := watch.New("x")
	mustParseGDB(t, w, "42")

	if w.Value() != "42" {
		t.Errorf("Expected value 42, got %q", w.Value())
	}
	if w.DebugValue() != "42" {
		t.Errorf("Expected debug value 42, got %q", w.DebugValue())
	}
	if w.ChildCount() != 0 {
		t.Errorf("Expected no children, got %d", w.ChildCount())
	}
}

func TestParseGDBEmpty(t *testing.T) {
	w := watch.New("x")
	w.SetValue("old")
	mustParseGDB(t, w, "")

	if w.Value() != "" {
		t.Errorf("Expected empty value, got %q", w.Value())
	}
}

func TestParseGDBStructure(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "{a = 1, b = 2}")

	if names := childNames(w); strings.Join(names, ",") != "a,b" {
		t.Fatalf("Expected children a,b, got %v", names)
	}
	values := childValues(w)
	if values["a"] != "1" || values["b"] != "2" {
		t.Errorf("Unexpected values: %v", values)
	}
	if w.Value() != "" {
		t.Errorf("Expected no value for a plain structure, got %q", w.Value())
	}
	if w.DebugValue() != "{a = 1, b = 2}" {
		t.Errorf("Unexpected debug value %q", w.DebugValue())
	}
}

func TestParseGDBNested(t *testing.T) {
	w := watch.New("s")
	mustParseGDB(t, w, "{a = {x = 1, y = 2}, b = 3}")

	a := w.FindChild("a")
	if a == nil {
		t.Fatal("Expected child a")
	}
	if values := childValues(a); values["x"] != "1" || values["y"] != "2" {
		t.Errorf("Unexpected nested values: %v", values)
	}
	if a.DebugValue() != "x = 1, y = 2" {
		t.Errorf("Unexpected nested debug value %q", a.DebugValue())
	}
	if b := w.FindChild("b"); b == nil || b.Value() != "3" {
		t.Errorf("Expected b = 3 after nested structure, got %v", b)
	}
	if w.Count() != 5 {
		t.Errorf("Expected 5 nodes, got %d", w.Count())
	}
}

func TestParseGDBArray(t *testing.T) {
	w := watch.New("arr")
	mustParseGDB(t, w, "{10, 20, 30}")

	if names := childNames(w); strings.Join(names, ",") != "[0],[1],[2]" {
		t.Fatalf("Expected [0],[1],[2], got %v", names)
	}
	if v := w.FindChild("[2]").Value(); v != "30" {
		t.Errorf("Expected [2] = 30, got %q", v)
	}
}

func TestParseGDBArrayStart(t *testing.T) {
	w := watch.New("arr")
	w.SetArray(5, 3)
	mustParseGDB(t, w, "{10, 20, 30}")

	if names := childNames(w); strings.Join(names, ",") != "[5],[6],[7]" {
		t.Fatalf("Expected [5],[6],[7], got %v", names)
	}
}

func TestParseGDBArrayOfStructures(t *testing.T) {
	w := watch.New("pts")
	mustParseGDB(t, w, "{{x = 1, y = 2}, {x = 3, y = 4}}")

	if names := childNames(w); strings.Join(names, ",") != "[0],[1]" {
		t.Fatalf("Expected [0],[1], got %v", names)
	}
	second := w.FindByPath([]string{"[1]", "y"})
	if second == nil || second.Value() != "4" {
		t.Errorf("Expected [1].y = 4, got %v", second)
	}
}

func TestParseGDBEmptyStructure(t *testing.T) {
	w := watch.New("e")
	mustParseGDB(t, w, "{}")

	if w.ChildCount() != 0 {
		t.Errorf("Expected no children, got %d", w.ChildCount())
	}
}

func TestParseGDBReferencePrefix(t *testing.T) {
	w := watch.New("ref")
	mustParseGDB(t, w, "@0x7ffe4b2c: {a = 1}")

	if w.Value() != "@0x7ffe4b2c:" {
		t.Errorf("Expected reference address as value, got %q", w.Value())
	}
	if a := w.FindChild("a"); a == nil || a.Value() != "1" {
		t.Errorf("Expected child a = 1, got %v", a)
	}
}

func TestParseGDBQuotedAndTemplateValues(t *testing.T) {
	w := watch.New("v")
	mustParseGDB(t, w, `{name = "a, b", items = std::vector<int,int> of length 0, capacity 0}`)

	values := childValues(w)
	if values["name"] != `"a, b"` {
		t.Errorf("Expected quoted value, got %q", values["name"])
	}
	if values["items"] != "std::vector<int,int> of length 0" {
		t.Errorf("Expected template value, got %q", values["items"])
	}
	if len(values) != 3 {
		t.Errorf("Expected 3 children, got %v", values)
	}
}

func TestParseGDBMembersHeader(t *testing.T) {
	w := watch.New("obj")
	mustParseGDB(t, w, "{members of Foo:\n  a = 1, b = 2}")

	values := childValues(w)
	if values["a"] != "1" || values["b"] != "2" {
		t.Errorf("Expected header to be skipped, got %v", values)
	}
}

func TestParseGDBBadMembersHeader(t *testing.T) {
	w := watch.New("obj")
	err := ParseGDBValue(w, "{members of Foo a = 1}")
	if !errors.Is(err, ErrBadHeader) {
		t.Errorf("Expected ErrBadHeader, got %v", err)
	}
}

func TestParseGDBUnexpectedToken(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
	}{
		{"stray comma", "{, a = 1}", 1},
		{"third consecutive value", `{a = "x" "y"}`, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseGDBValue(watch.New("bad"), tt.input)
			if !errors.Is(err, ErrUnexpectedToken) {
				t.Fatalf("Expected ErrUnexpectedToken, got %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) || perr.Offset != tt.offset {
				t.Errorf("Expected offset %d, got %v", tt.offset, err)
			}
		})
	}
}

func TestParseGDBMixedNamedAndUnnamed(t *testing.T) {
	w := watch.New("m")
	mustParseGDB(t, w, "{a = 1, 2, b = {x = 1}, 3}")

	// Element indices count every entry, named ones included.
	if names := childNames(w); strings.Join(names, ",") != "a,[1],b,[3]" {
		t.Fatalf("Expected a,[1],b,[3], got %v", names)
	}
	if v := w.FindChild("[1]").Value(); v != "2" {
		t.Errorf("Expected [1] = 2, got %q", v)
	}
	if v := w.FindChild("[3]").Value(); v != "3" {
		t.Errorf("Expected [3] = 3, got %q", v)
	}
}

func TestParseGDBScalarToStructureKeepsValue(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "42")
	mustParseGDB(t, w, "{a = 1}")

	if w.Value() != "42" {
		t.Errorf("Expected structure without prefix to keep value 42, got %q", w.Value())
	}
	if a := w.FindChild("a"); a == nil || a.Value() != "1" {
		t.Errorf("Expected child a = 1, got %v", a)
	}

	mustParseGDB(t, w, "@0x10: {a = 1}")
	if w.Value() != "@0x10:" {
		t.Errorf("Expected reference prefix to replace the value, got %q", w.Value())
	}
}

func TestParseGDBTooDeep(t *testing.T) {
	text := strings.Repeat("{", 10) + "1" + strings.Repeat("}", 10)
	w := watch.New("deep")

	err := ParseGDBValue(w, text, WithMaxDepth(4))
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("Expected ErrTooDeep, got %v", err)
	}

	if err := ParseGDBValue(watch.New("deep"), text); err != nil {
		t.Errorf("Expected default depth to accept 10 levels, got %v", err)
	}
}

func TestParseGDBStripsWarnings(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "warning: RTTI symbol not found for class 'Foo'\n{a = 1}")

	if a := w.FindChild("a"); a == nil || a.Value() != "1" {
		t.Errorf("Expected child a = 1, got %v", a)
	}
	if strings.Contains(w.DebugValue(), "warning:") {
		t.Errorf("Warning leaked into debug value: %q", w.DebugValue())
	}
}

func TestParseGDBReparseKeepsIdentity(t *testing.T) {
	w := watch.New("p")
	text := "{a = 1, b = {c = 2}}"
	mustParseGDB(t, w, text)

	a := w.FindChild("a")
	c := w.FindByPath([]string{"b", "c"})
	w.FindChild("b").SetExpanded(true)
	w.ResetChanged()

	mustParseGDB(t, w, text)

	if w.FindChild("a") != a || w.FindByPath([]string{"b", "c"}) != c {
		t.Error("Expected re-parse to reuse existing nodes")
	}
	if !w.FindChild("b").Expanded() {
		t.Error("Expected expanded state to survive a re-parse")
	}
	w.Walk(func(node *watch.Watch, depth int) bool {
		if node.Changed() {
			t.Errorf("Node %s changed after identical re-parse", node.FullPath())
		}
		if node.IsRemoved() {
			t.Errorf("Node %s still marked removed", node.FullPath())
		}
		return true
	})
}

func TestParseGDBReparseChangesValue(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "{a = 1, b = 2}")
	w.ResetChanged()

	mustParseGDB(t, w, "{a = 1, b = 5}")

	if w.FindChild("a").Changed() {
		t.Error("Expected a to be unchanged")
	}
	if b := w.FindChild("b"); !b.Changed() || b.Value() != "5" {
		t.Errorf("Expected b changed to 5, got %q (changed=%v)", b.Value(), b.Changed())
	}
}

func TestParseGDBShrinkAndGrow(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "{a = 1, b = 2, c = 3}")
	a := w.FindChild("a")

	mustParseGDB(t, w, "{a = 1}")
	if names := childNames(w); strings.Join(names, ",") != "a" {
		t.Fatalf("Expected only a after shrink, got %v", names)
	}
	if w.FindChild("a") != a {
		t.Error("Expected a to keep its identity")
	}

	mustParseGDB(t, w, "{a = 1, d = 4}")
	if names := childNames(w); strings.Join(names, ",") != "a,d" {
		t.Errorf("Expected a,d after grow, got %v", names)
	}
}

func TestParseGDBStructureToScalar(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "{a = {b = 1}}")
	mustParseGDB(t, w, "0x0")

	if w.ChildCount() != 0 || w.Value() != "0x0" {
		t.Errorf("Expected scalar 0x0 with no children, got %q with %d children", w.Value(), w.ChildCount())
	}
}

func TestParseGDBMemberBecomesScalar(t *testing.T) {
	w := watch.New("p")
	mustParseGDB(t, w, "{a = {b = 1}}")
	mustParseGDB(t, w, "{a = 0x0}")

	a := w.FindChild("a")
	if a == nil || a.Value() != "0x0" {
		t.Fatalf("Expected a = 0x0, got %v", a)
	}
	if a.ChildCount() != 0 {
		t.Errorf("Expected a to drop its old members, got %d", a.ChildCount())
	}
}

func TestParseStructureStopsAtLength(t *testing.T) {
	text := "a = 1, b = 2, c = 3"
	w := watch.New("p")

	end, err := ParseStructure(w, text, 0, 6)
	if err != nil {
		t.Fatalf("ParseStructure failed: %v", err)
	}
	w.RemoveMarkedChildren()

	if names := childNames(w); strings.Join(names, ",") != "a" {
		t.Errorf("Expected to stop after a, got %v", names)
	}
	if end != 6 {
		t.Errorf("Expected end offset 6, got %d", end)
	}
}

func TestParseStructureBadOffset(t *testing.T) {
	for _, start := range []int{-1, 10} {
		end, err := ParseStructure(watch.New("x"), "abc", start, 0)
		if !errors.Is(err, ErrBadOffset) {
			t.Errorf("start %d: expected ErrBadOffset, got %v", start, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Offset != start {
			t.Errorf("start %d: expected *ParseError at offset %d, got %v", start, start, err)
		}
		if end != start {
			t.Errorf("start %d: expected end %d, got %d", start, start, end)
		}
	}

	if _, err := ParseStructure(watch.New("x"), "abc", 3, 0); err != nil {
		t.Errorf("Expected start at end of text to succeed, got %v", err)
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Op: "gdb", Offset: 3, Err: ErrUnexpectedToken}
	if err.Error() != "gdb: unexpected token at offset 3" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	err = &ParseError{Op: "cdb", Offset: -1, Err: ErrNoLines}
	if err.Error() != "cdb: no lines to parse" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
