package weft

// FragmentKind enumerates the incremental update instructions a partial
// response can carry. The transport delivers them to the client runtime
// in order; full responses carry rendered HTML instead and only keep the
// init and message fragments.
type FragmentKind string

const (
	// FragmentReplace swaps a component's markup in place.
	FragmentReplace FragmentKind = "replace"
	// FragmentHide clears a component down to its placeholder.
	FragmentHide FragmentKind = "hide"
	// FragmentDestroy removes a deleted component from the client.
	FragmentDestroy FragmentKind = "destroy"
	// FragmentMove repositions a component inside a target container.
	FragmentMove FragmentKind = "move"
	// FragmentInit announces a freshly rendered component instance.
	FragmentInit FragmentKind = "init"
	// FragmentMessage shows a user-visible page message.
	FragmentMessage FragmentKind = "message"
)

// Fragment is one update instruction addressed to the client.
type Fragment struct {
	Kind     FragmentKind `json:"kind"`
	CID      string       `json:"cid,omitempty"`
	HTML     string       `json:"html,omitempty"`
	Target   string       `json:"target,omitempty"`
	Position int          `json:"position,omitempty"`
	Level    string       `json:"level,omitempty"`
	Text     string       `json:"text,omitempty"`
	Spec     string       `json:"spec,omitempty"`
	Fading   bool         `json:"fading,omitempty"`
}

// Response accumulates the output of one request: either the full page
// HTML or an ordered fragment set for components with pending redraws,
// plus the side-effect fragments (destroy, move, messages) collected
// while handlers ran.
type Response struct {
	TID       string
	Partial   bool
	HTML      string
	Fragments []Fragment
}

// NewResponse creates an empty response for one request.
func NewResponse(partial bool) *Response {
	return &Response{Partial: partial}
}

// Replace queues replacement markup for a component.
func (r *Response) Replace(cid, html string) {
	r.Fragments = append(r.Fragments, Fragment{Kind: FragmentReplace, CID: cid, HTML: html})
}

// Hide queues a hide instruction for a component that became invisible.
func (r *Response) Hide(cid string) {
	r.Fragments = append(r.Fragments, Fragment{Kind: FragmentHide, CID: cid})
}

// Destroy queues client-side removal of a deleted component.
func (r *Response) Destroy(cid string) {
	if !r.Partial {
		return
	}
	r.Fragments = append(r.Fragments, Fragment{Kind: FragmentDestroy, CID: cid})
}

// Move queues a structural move of cid into target at position.
func (r *Response) Move(cid, target string, position int) {
	if !r.Partial {
		return
	}
	r.Fragments = append(r.Fragments, Fragment{Kind: FragmentMove, CID: cid, Target: target, Position: position})
}

// Init announces a rendered component instance to the client runtime.
func (r *Response) Init(cid, spec string) {
	r.Fragments = append(r.Fragments, Fragment{Kind: FragmentInit, CID: cid, Spec: spec})
}

// Message queues a user-visible page message.
func (r *Response) Message(level, text string, fading bool) {
	r.Fragments = append(r.Fragments, Fragment{
		Kind: FragmentMessage, Level: level, Text: text, Fading: fading,
	})
}

// FragmentFor returns the first replace/hide fragment addressed to cid,
// mostly useful in tests.
func (r *Response) FragmentFor(cid string) (Fragment, bool) {
	for _, f := range r.Fragments {
		if f.CID == cid && (f.Kind == FragmentReplace || f.Kind == FragmentHide) {
			return f, true
		}
	}
	return Fragment{}, false
}
