package weft

import (
	"errors"
	"testing"
)

// listFixture wires a smart container over a mutable data slice. Tests
// swap the slice between requests and let the per-request reconciliation
// pick up the difference.
type listFixture struct {
	tp   *TestPage
	data []Values
	item *Spec
	list *Spec
}

var dataIDAttr = Attr[int]{Name: "id"}

func rows(ids ...int) []Values {
	out := make([]Values, len(ids))
	for i, id := range ids {
		out[i] = Values{"id": id, "label": "item"}
	}
	return out
}

func newListFixture(t *testing.T, initial []Values, mutate ...func(item, list *Spec, reg *Registry)) *listFixture {
	t.Helper()
	f := &listFixture{data: initial}
	reg := NewRegistry()
	f.item = &Spec{
		Name:  "item",
		State: []string{"note"},
		Handlers: map[string]HandlerFunc{
			"mark": func(c *Component, params Values) error {
				c.SetField("note", params.GetString("note"))
				return nil
			},
		},
	}
	f.list = &Spec{
		Name:          "item_list",
		DataInterface: []string{"id", "label"},
		GetData: func(offset, limit int, _ Values) ([]Values, error) {
			end := offset + limit
			if end > len(f.data) {
				end = len(f.data)
			}
			if offset > len(f.data) {
				offset = len(f.data)
			}
			return f.data[offset:end], nil
		},
	}
	f.list.DefaultChild = f.item.Declare(nil)
	for _, fn := range mutate {
		fn(f.item, f.list, reg)
	}
	reg.Add(f.item, f.list)
	f.tp = NewTestPage(f.list.Declare(nil), reg)
	if _, err := f.tp.Full(); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *listFixture) childIDs(t *testing.T) []int {
	t.Helper()
	root, err := f.tp.Page().Root()
	if err != nil {
		t.Fatal(err)
	}
	var out []int
	for _, child := range root.Children() {
		if !child.HasField("id") {
			continue
		}
		out = append(out, dataIDAttr.Get(child))
	}
	return out
}

func (f *listFixture) childByID(t *testing.T, id int) *Component {
	t.Helper()
	root, err := f.tp.Page().Root()
	if err != nil {
		t.Fatal(err)
	}
	for _, child := range root.Children() {
		if dataIDAttr.Get(child) == id {
			return child
		}
	}
	t.Fatalf("no child with id %d", id)
	return nil
}

func assertIDs(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("child ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("child ids = %v, want %v", got, want)
		}
	}
}

func TestReconcileCreatesFromData(t *testing.T) {
	f := newListFixture(t, rows(1, 2, 3))
	assertIDs(t, f.childIDs(t), []int{1, 2, 3})
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newListFixture(t, rows(1, 2, 3))
	if _, err := f.tp.Partial(); err != nil {
		t.Fatal(err)
	}
	resp, err := f.tp.Partial()
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Fragments) != 0 {
		t.Fatalf("unchanged data produced fragments: %+v", resp.Fragments)
	}
	assertIDs(t, f.childIDs(t), []int{1, 2, 3})
}

func TestReconcileReactivation(t *testing.T) {
	f := newListFixture(t, rows(1, 2, 3))
	secondCID := f.childByID(t, 2).CID()
	if _, err := f.tp.Partial(ComponentEvent(secondCID, "mark", Values{"note": "kept"})); err != nil {
		t.Fatal(err)
	}

	// The id vanishes: its component hibernates instead of dying.
	f.data = rows(1, 3)
	if _, err := f.tp.Partial(); err != nil {
		t.Fatal(err)
	}
	assertIDs(t, f.childIDs(t), []int{1, 3})
	root, _ := f.tp.Page().Root()
	if len(f.tp.Page().Store().SleepingIDs(root.CID())) != 1 {
		t.Fatal("vanished child not hibernated")
	}

	// The id returns: same component, same id, state intact, data order.
	f.data = rows(1, 2, 3)
	if _, err := f.tp.Partial(); err != nil {
		t.Fatal(err)
	}
	assertIDs(t, f.childIDs(t), []int{1, 2, 3})
	woken := f.childByID(t, 2)
	if woken.CID() != secondCID {
		t.Fatalf("reactivated under new cid %q, want %q", woken.CID(), secondCID)
	}
	if woken.Field("note") != "kept" {
		t.Fatalf("state after reactivation = %v", woken.Field("note"))
	}
}

func TestReconcileReorder(t *testing.T) {
	f := newListFixture(t, rows(1, 2, 3))
	f.data = rows(3, 1, 2)
	if _, err := f.tp.Partial(); err != nil {
		t.Fatal(err)
	}
	assertIDs(t, f.childIDs(t), []int{3, 1, 2})
}

func TestReconcileUpdatesChangedFieldsOnly(t *testing.T) {
	f := newListFixture(t, rows(1, 2))
	f.data = []Values{
		{"id": 1, "label": "item"},
		{"id": 2, "label": "changed"},
	}
	resp, err := f.tp.Partial()
	if err != nil {
		t.Fatal(err)
	}

	first := f.childByID(t, 1)
	second := f.childByID(t, 2)
	if second.Field("label") != "changed" {
		t.Fatalf("label = %v", second.Field("label"))
	}
	if resp.Replaced(first.CID()) {
		t.Fatal("unchanged child redrawn")
	}
	if !resp.Replaced(second.CID()) {
		t.Fatal("changed child not redrawn")
	}
}

func TestReconcileStaticChildrenKeepPosition(t *testing.T) {
	f := newListFixture(t, rows(1, 2), func(item, list *Spec, reg *Registry) {
		header := &Spec{Name: "header"}
		reg.Add(header)
		list.Children = []*Def{header.Declare(Values{"cid": "head"})}
	})
	root, _ := f.tp.Page().Root()
	children := root.Children()
	if children[0].CID() != "head" {
		t.Fatalf("first child = %q, want the static header", children[0].CID())
	}
	assertIDs(t, f.childIDs(t), []int{1, 2})

	f.data = rows(2, 1)
	if _, err := f.tp.Partial(); err != nil {
		t.Fatal(err)
	}
	root, _ = f.tp.Page().Root()
	if root.Children()[0].CID() != "head" {
		t.Fatal("reorder touched the static child")
	}
	assertIDs(t, f.childIDs(t), []int{2, 1})
}

func TestReconcileDisableAutoUpdate(t *testing.T) {
	f := newListFixture(t, rows(1), func(item, list *Spec, _ *Registry) {
		item.DisableAutoUpdate = true
	})
	oldCID := f.childByID(t, 1).CID()

	f.data = []Values{{"id": 1, "label": "item"}}
	if _, err := f.tp.Partial(); err != nil {
		t.Fatal(err)
	}
	// Matched but un-updatable: rebuilt from scratch under a new cid.
	if f.childByID(t, 1).CID() == oldCID {
		t.Fatal("auto-update-disabled child kept its instance")
	}
}

func TestReconcileDuplicateDataID(t *testing.T) {
	f := newListFixture(t, rows(1, 2))
	f.data = []Values{{"id": 1}, {"id": 1}}
	_, err := f.tp.Partial()
	if !errors.Is(err, ErrDuplicateDataID) {
		t.Fatalf("duplicate ids: got %v", err)
	}
}

func TestReconcileMissingDataID(t *testing.T) {
	f := newListFixture(t, rows(1))
	f.data = []Values{{"label": "no id"}}
	if _, err := f.tp.Partial(); err == nil {
		t.Fatal("record without id accepted")
	}
}

func TestReconcileRowWindow(t *testing.T) {
	f := newListFixture(t, rows(1, 2, 3, 4, 5), func(item, list *Spec, _ *Registry) {
		list.RowLimit = 2
	})
	assertIDs(t, f.childIDs(t), []int{1, 2})

	root, _ := f.tp.Page().Root()
	if _, err := f.tp.Partial(ComponentEvent(root.CID(), "set_row", Values{
		"row_offset": 2, "row_limit": 2,
	})); err != nil {
		t.Fatal(err)
	}
	assertIDs(t, f.childIDs(t), []int{3, 4})
}

func TestUpdateChildrenGuards(t *testing.T) {
	f := newListFixture(t, rows(1))
	root, _ := f.tp.Page().Root()

	// The per-request barrier already ran; a plain second call is misuse.
	if err := root.UpdateChildren(false); !errors.Is(err, ErrReconcileMisuse) {
		t.Fatalf("double reconcile: got %v", err)
	}
	if err := root.UpdateChildren(true); err != nil {
		t.Fatalf("forced reconcile: %v", err)
	}

	leaf := &Spec{Name: "plain_leaf"}
	c := &Component{spec: leaf}
	if err := c.UpdateChildren(true); !errors.Is(err, ErrNotContainer) {
		t.Fatalf("leaf reconcile: got %v", err)
	}
}
