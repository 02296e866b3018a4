package weft

import (
	"errors"
	"testing"
)

func containerFixture(t *testing.T, mutate ...func(panel, leaf *Spec)) (*TestPage, *Spec) {
	t.Helper()
	leaf := &Spec{Name: "leaf"}
	panel := &Spec{
		Name: "panel",
		Children: []*Def{
			leaf.Declare(Values{"cid": "one"}),
			leaf.Declare(Values{"cid": "two"}),
		},
	}
	for _, fn := range mutate {
		fn(panel, leaf)
	}
	reg := NewRegistry()
	reg.Add(leaf, panel)
	tp := NewTestPage(panel.Declare(nil), reg)
	if _, err := tp.Full(); err != nil {
		t.Fatal(err)
	}
	return tp, leaf
}

func childCIDs(t *testing.T, tp *TestPage) []string {
	t.Helper()
	root, err := tp.Page().Root()
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, c := range root.Children() {
		out = append(out, c.CID())
	}
	return out
}

func assertCIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("children = %v, want %v", got, want)
		}
	}
}

func TestAddChildPositioned(t *testing.T) {
	tp, leaf := containerFixture(t)
	root, _ := tp.Page().Root()

	if _, err := root.AddChild(leaf.Declare(Values{"cid": "zero"}), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := root.AddChild(leaf.Declare(Values{"cid": "last"}), -1); err != nil {
		t.Fatal(err)
	}
	assertCIDs(t, childCIDs(t, tp), []string{"zero", "one", "two", "last"})
}

func TestAddChildOnLeaf(t *testing.T) {
	tp, leaf := containerFixture(t)
	one, _ := tp.Page().Component("one")
	if _, err := one.AddChild(leaf.Declare(nil), -1); !errors.Is(err, ErrNotContainer) {
		t.Fatalf("AddChild on leaf: got %v", err)
	}
}

func TestAddChildSlot(t *testing.T) {
	tp, leaf := containerFixture(t)
	root, _ := tp.Page().Root()
	c, err := root.AddChild(leaf.Declare(Values{"cid": "side", "slot": "sidebar"}), -1)
	if err != nil {
		t.Fatal(err)
	}
	if c.Slot() != "sidebar" {
		t.Fatalf("Slot() = %q", c.Slot())
	}
}

func TestReplaceChildKeepsIDAndPosition(t *testing.T) {
	alt := &Spec{Name: "alt"}
	tp, _ := containerFixture(t, func(panel, leaf *Spec) {})
	// Register the replacement spec on the page's registry.
	tp.Page().registry.Add(alt)

	root, _ := tp.Page().Root()
	one, _ := tp.Page().Component("one")

	replaced, err := root.ReplaceChild(one, alt.Declare(nil))
	if err != nil {
		t.Fatal(err)
	}
	if replaced.CID() != "one" {
		t.Fatalf("replacement cid = %q", replaced.CID())
	}
	if replaced.Position() != 0 {
		t.Fatalf("replacement position = %d", replaced.Position())
	}
	if replaced.Spec().Name != "alt" {
		t.Fatalf("replacement spec = %q", replaced.Spec().Name)
	}
}

func TestMoveChildEmitsFragment(t *testing.T) {
	tp, _ := containerFixture(t, func(panel, leaf *Spec) {
		panel.Handlers = map[string]HandlerFunc{
			"swap": func(c *Component, _ Values) error {
				c.MoveChild("two", 0)
				return nil
			},
		}
	})
	resp, err := tp.Partial(ComponentEvent("root", "swap", nil))
	if err != nil {
		t.Fatal(err)
	}
	assertCIDs(t, childCIDs(t, tp), []string{"two", "one"})

	found := false
	for _, f := range resp.Fragments {
		if f.Kind == FragmentMove && f.CID == "two" && f.Target == "root" && f.Position == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("no move fragment: %+v", resp.Fragments)
	}

	// The new order is stored and survives the next request.
	if _, err := tp.Partial(); err != nil {
		t.Fatal(err)
	}
	assertCIDs(t, childCIDs(t, tp), []string{"two", "one"})
}

func TestInitStructOverridesChildren(t *testing.T) {
	leaf := &Spec{Name: "leaf"}
	panel := &Spec{
		Name:     "panel",
		Children: []*Def{leaf.Declare(Values{"cid": "static"})},
		InitStruct: func(c *Component) []*Def {
			return []*Def{
				leaf.Declare(Values{"cid": "dyn1"}),
				leaf.Declare(Values{"cid": "dyn2"}),
			}
		},
	}
	reg := NewRegistry()
	reg.Add(leaf, panel)
	tp := NewTestPage(panel.Declare(nil), reg)
	if _, err := tp.Full(); err != nil {
		t.Fatal(err)
	}
	assertCIDs(t, childCIDs(t, tp), []string{"dyn1", "dyn2"})
}

func TestRowWindowDefaults(t *testing.T) {
	tp, _ := containerFixture(t)
	root, _ := tp.Page().Root()

	if root.RowLimit() != 30 {
		t.Fatalf("default RowLimit = %d", root.RowLimit())
	}
	root.SetRowWindow(10, 5, Values{"q": "x"})
	if root.RowOffset() != 10 || root.RowLimit() != 5 {
		t.Fatalf("window = %d/%d", root.RowOffset(), root.RowLimit())
	}
	if root.RowData().GetString("q") != "x" {
		t.Fatalf("row data = %v", root.RowData())
	}
	root.SetRowCount(42)
	if root.RowCount() != 42 {
		t.Fatalf("row count = %d", root.RowCount())
	}
}
