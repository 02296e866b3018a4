package weft

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tracedFixture wires lifecycle hooks that record their invocations.
func tracedFixture(t *testing.T, calls *[]string) *TestPage {
	t.Helper()
	hook := func(phase string) HookFunc {
		return func(c *Component) error {
			*calls = append(*calls, phase+":"+c.CID())
			return nil
		}
	}
	leaf := &Spec{
		Name:            "leaf",
		InitTransaction: hook("init"),
		Setup:           hook("setup"),
		AfterEvents:     hook("after"),
		Finalize:        hook("final"),
	}
	panel := &Spec{
		Name:            "panel",
		Children:        []*Def{leaf.Declare(Values{"cid": "kid"})},
		InitTransaction: hook("init"),
		Setup:           hook("setup"),
		AfterEvents:     hook("after"),
		Finalize:        hook("final"),
	}
	reg := NewRegistry()
	reg.Add(leaf, panel)
	return NewTestPage(panel.Declare(nil), reg)
}

func TestLifecyclePhaseOrder(t *testing.T) {
	var calls []string
	tp := tracedFixture(t, &calls)
	_, err := tp.Full()
	require.NoError(t, err)

	want := []string{
		"init:root", "init:kid",
		"setup:root", "setup:kid",
		"after:root", "after:kid",
		"final:root", "final:kid",
	}
	assert.Equal(t, want, calls)
}

func TestInitTransactionRunsOnce(t *testing.T) {
	var calls []string
	tp := tracedFixture(t, &calls)
	_, err := tp.Full()
	require.NoError(t, err)

	calls = calls[:0]
	_, err = tp.Partial()
	require.NoError(t, err)

	// Init never repeats within a transaction; the per-request phases do.
	want := []string{
		"setup:root", "setup:kid",
		"after:root", "after:kid",
		"final:root", "final:kid",
	}
	assert.Equal(t, want, calls)
}

func TestUnknownTransactionStartsFresh(t *testing.T) {
	var calls []string
	tp := tracedFixture(t, &calls)

	resp, err := tp.Page().Handle(context.Background(), &Request{TID: "gone"})
	require.NoError(t, err)
	assert.NotEqual(t, "gone", resp.TID, "stale tid must not be reused")
	assert.Contains(t, calls, "init:root")
}

func TestPageEvents(t *testing.T) {
	var got Values
	leaf := &Spec{Name: "leaf", Container: true}
	reg := NewRegistry()
	reg.Add(leaf)
	tp := NewTestPage(leaf.Declare(nil), reg,
		WithPageHandler("refresh", func(p *Page, params Values) error {
			got = params
			return nil
		}),
	)
	_, err := tp.Full()
	require.NoError(t, err)

	_, err = tp.Partial(PageEvent("refresh", Values{"scope": "all"}))
	require.NoError(t, err)
	assert.Equal(t, "all", got.GetString("scope"))

	_, err = tp.Partial(PageEvent("ghost", nil))
	require.True(t, IsMissingHandler(err), "unknown page event must fail: %v", err)
}

func TestPageMessages(t *testing.T) {
	leaf := &Spec{
		Name:      "leaf",
		Container: true,
		Handlers: map[string]HandlerFunc{
			"save": func(c *Component, _ Values) error {
				c.ShowMessage(MessageOK, "saved")
				c.ShowFadingMessage(MessageInfo, "bye")
				return nil
			},
		},
	}
	reg := NewRegistry()
	reg.Add(leaf)
	tp := NewTestPage(leaf.Declare(nil), reg)
	_, err := tp.Full()
	require.NoError(t, err)

	resp, err := tp.Partial(ComponentEvent("root", "save", nil))
	require.NoError(t, err)
	assert.True(t, resp.HasMessage(MessageOK, "saved"))
	assert.True(t, resp.HasMessage(MessageInfo, "bye"))
}

func TestPartialTopmostFragmentOnly(t *testing.T) {
	tp, _ := formFixture(func(panel, leaf *Spec) {
		panel.Handlers = map[string]HandlerFunc{
			"touch_both": func(c *Component, _ Values) error {
				c.Redraw()
				child, err := c.page.Component("title")
				if err != nil {
					return err
				}
				child.Redraw()
				return nil
			},
		}
	})
	_, err := tp.Full()
	require.NoError(t, err)

	resp, err := tp.Partial(ComponentEvent("root", "touch_both", nil))
	require.NoError(t, err)

	// The container fragment covers the child; one replace, not two.
	assert.True(t, resp.Replaced("root"))
	_, found := resp.FragmentFor("title")
	assert.False(t, found, "covered child emitted its own fragment")
}

func TestAddChildDuringEventIsSetUp(t *testing.T) {
	var setups []string
	leaf := &Spec{
		Name:  "leaf",
		Setup: func(c *Component) error { setups = append(setups, c.CID()); return nil },
	}
	panel := &Spec{
		Name:      "panel",
		Container: true,
		Handlers: map[string]HandlerFunc{
			"spawn": func(c *Component, _ Values) error {
				_, err := c.AddChild(leaf.Declare(Values{"cid": "late"}), -1)
				return err
			},
		},
	}
	reg := NewRegistry()
	reg.Add(leaf, panel)
	tp := NewTestPage(panel.Declare(nil), reg)
	_, err := tp.Full()
	require.NoError(t, err)

	setups = setups[:0]
	_, err = tp.Partial(ComponentEvent("root", "spawn", nil))
	require.NoError(t, err)

	assert.Contains(t, setups, "late", "component added mid-request missed setup")
	assert.True(t, tp.Page().Store().Has("late"))

	// And it is part of the transaction from now on.
	_, err = tp.Partial()
	require.NoError(t, err)
	assert.True(t, tp.Page().Store().Has("late"))
}

func TestErrorAbortsPersistence(t *testing.T) {
	boom := errors.New("boom")
	leaf := &Spec{
		Name:      "leaf",
		Container: true,
		State:     []string{"n"},
		Handlers: map[string]HandlerFunc{
			"bump": func(c *Component, _ Values) error {
				c.SetField("n", Attr[int]{Name: "n"}.Get(c)+1)
				return nil
			},
			"fail": func(c *Component, _ Values) error {
				c.SetField("n", 999)
				return boom
			},
		},
	}
	reg := NewRegistry()
	reg.Add(leaf)
	tp := NewTestPage(leaf.Declare(nil), reg)
	_, err := tp.Full()
	require.NoError(t, err)
	_, err = tp.Partial(ComponentEvent("root", "bump", nil))
	require.NoError(t, err)

	_, err = tp.Partial(ComponentEvent("root", "fail", nil))
	require.ErrorIs(t, err, boom)

	// The failed request left no trace in the stored transaction.
	_, err = tp.Partial()
	require.NoError(t, err)
	root, err := tp.Page().Root()
	require.NoError(t, err)
	assert.Equal(t, 1, Attr[int]{Name: "n"}.Get(root))
}

func TestFinalizeRunsAfterError(t *testing.T) {
	boom := errors.New("boom")
	finalized := 0
	leaf := &Spec{
		Name:      "leaf",
		Container: true,
		Handlers: map[string]HandlerFunc{
			"fail": func(c *Component, _ Values) error { return boom },
		},
		Finalize: func(c *Component) error { finalized++; return nil },
	}
	reg := NewRegistry()
	reg.Add(leaf)
	tp := NewTestPage(leaf.Declare(nil), reg)
	_, err := tp.Full()
	require.NoError(t, err)
	require.Equal(t, 1, finalized)

	// A failing event phase still aborts the request, but the cleanup
	// sweep runs regardless.
	_, err = tp.Partial(ComponentEvent("root", "fail", nil))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, finalized)
}

func TestDuplicateDeclaredIDConflicts(t *testing.T) {
	leaf := &Spec{Name: "leaf"}
	a := &Spec{Name: "a", Children: []*Def{leaf.Declare(Values{"cid": "dup"})}}
	b := &Spec{Name: "b", Children: []*Def{leaf.Declare(Values{"cid": "dup"})}}
	panel := &Spec{Name: "panel", Children: []*Def{
		a.Declare(Values{"cid": "left"}),
		b.Declare(Values{"cid": "right"}),
	}}
	reg := NewRegistry()
	reg.Add(leaf, a, b, panel)
	tp := NewTestPage(panel.Declare(nil), reg)

	_, err := tp.Full()
	require.True(t, IsIDConflict(err), "duplicate declared id must conflict: %v", err)
}
