package weft

import (
	"context"
	"strings"

	"github.com/weftkit/weft/lib/txstore"
)

// TestPage drives a page through full and partial requests against an
// in-memory transaction store, with deterministic sequential ids so
// assertions can name components directly.
//
//	tp := weft.NewTestPage(List.Declare(nil), registry)
//	resp, err := tp.Full()
//	resp, err = tp.Partial(weft.ComponentEvent("c2", "change", weft.Values{"value": "x"}))
type TestPage struct {
	page *Page
	tid  string
}

// NewTestPage builds a test harness around root. Extra options are
// applied after the deterministic defaults, so they may override the id
// generator or transaction store.
func NewTestPage(root *Def, reg *Registry, opts ...PageOption) *TestPage {
	base := []PageOption{
		WithIDGen(NewSeqIDGen("c")),
		WithTxStore(txstore.NewMemory()),
	}
	return &TestPage{page: NewPage(root, reg, append(base, opts...)...)}
}

// Page returns the page under test.
func (tp *TestPage) Page() *Page { return tp.page }

// TID returns the current transaction id.
func (tp *TestPage) TID() string { return tp.tid }

// Full runs a full-page request, resuming the harness transaction.
func (tp *TestPage) Full() (*Response, error) {
	resp, err := tp.page.Handle(context.Background(), &Request{TID: tp.tid})
	if err != nil {
		return nil, err
	}
	tp.tid = resp.TID
	return resp, nil
}

// Partial runs a partial request carrying the given event queue.
func (tp *TestPage) Partial(events ...EventDescriptor) (*Response, error) {
	resp, err := tp.page.Handle(context.Background(), &Request{
		TID:     tp.tid,
		Partial: true,
		Events:  events,
	})
	if err != nil {
		return nil, err
	}
	tp.tid = resp.TID
	return resp, nil
}

// ComponentEvent builds an event descriptor addressed to a component.
func ComponentEvent(cid, name string, params Values) EventDescriptor {
	return EventDescriptor{Type: EventComponent, CID: cid, Name: name, Params: params}
}

// PageEvent builds an event descriptor addressed to the page.
func PageEvent(name string, params Values) EventDescriptor {
	return EventDescriptor{Type: EventPage, Name: name, Params: params}
}

// HTMLContains reports whether the full-page HTML contains substr.
func (r *Response) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// Replaced reports whether a replace fragment for cid was emitted.
func (r *Response) Replaced(cid string) bool {
	f, ok := r.FragmentFor(cid)
	return ok && f.Kind == FragmentReplace
}

// Hidden reports whether a hide fragment for cid was emitted.
func (r *Response) Hidden(cid string) bool {
	f, ok := r.FragmentFor(cid)
	return ok && f.Kind == FragmentHide
}

// Destroyed reports whether a destroy fragment for cid was emitted.
func (r *Response) Destroyed(cid string) bool {
	for _, f := range r.Fragments {
		if f.Kind == FragmentDestroy && f.CID == cid {
			return true
		}
	}
	return false
}

// HasMessage reports whether a page message with the given level and
// text was emitted.
func (r *Response) HasMessage(level, text string) bool {
	for _, f := range r.Fragments {
		if f.Kind == FragmentMessage && f.Level == level && f.Text == text {
			return true
		}
	}
	return false
}
