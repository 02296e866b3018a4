package weft

import (
	"fmt"

	"github.com/a-h/templ"
)

// HookFunc is a lifecycle hook invoked on a live component.
type HookFunc func(c *Component) error

// HandlerFunc handles a named event dispatched directly to a component.
type HandlerFunc func(c *Component, params Values) error

// ListenerFunc is a bound listener notified through the trigger/broadcast
// mechanism, distinct from direct handlers.
type ListenerFunc func(c *Component, e *Event) error

// DataFunc fetches one window of records for a smart container. Each
// record must carry an "id" value plus the fields the container's data
// interface declares. Calling it twice with identical arguments within
// one request must yield identical results.
type DataFunc func(offset, limit int, query Values) ([]Values, error)

// TemplateFunc produces the markup for a component. Container templates
// receive the render environment through the component.
type TemplateFunc func(c *Component) templ.Component

// Validator checks a component's value. A non-nil error is the
// user-visible failure message; it is recorded on the component and does
// not abort the request.
type Validator interface {
	Validate(c *Component) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(c *Component) error

func (f ValidatorFunc) Validate(c *Component) error { return f(c) }

// Spec describes a component type: its persisted state attributes,
// configuration defaults, event handlers, lifecycle hooks and, for
// containers, how children are declared or generated. Specs are immutable
// after registration; Derive produces parameterized variants.
//
// A minimal leaf type:
//
//	var TextLeaf = &weft.Spec{
//	    Name:     "text_leaf",
//	    State:    []string{"text"},
//	    Template: textTemplate,
//	}
//
// A smart container generating children from a data source:
//
//	var ItemList = &weft.Spec{
//	    Name:          "item_list",
//	    DefaultChild:  TextLeaf.Declare(nil),
//	    DataInterface: []string{"id", "text"},
//	    GetData:       fetchItems,
//	}
type Spec struct {
	// Name uniquely identifies the spec within a Registry.
	Name string

	// Template renders the component. Containers fall back to the default
	// container template when nil; leaves render empty.
	Template TemplateFunc

	// ThemePath is the ordered template-location override list used to
	// resolve container render parts. Entries may be prefixed with '<'
	// (wrap the result of the next find) or '>' (feed the result of the
	// next find as inner content). See theme.go.
	ThemePath []string

	// State lists the attribute names persisted into the store across
	// requests. Base attributes (visible, name, value, mandatory,
	// validation_error and the container row window) are always included.
	State []string

	// Config holds type-level defaults for non-persisted attributes.
	// Copied per instance at materialization, never shared.
	Config Values

	// EventSink stops event bubbling here: unhandled events are silently
	// discarded instead of escalating to the container.
	EventSink bool

	// DisableAutoUpdate marks components whose per-instance setup is too
	// expensive or unsafe to hide and restore. Reconciliation deletes
	// them outright instead of updating or hibernating them.
	DisableAutoUpdate bool

	// Handlers maps event names to direct handlers, the equivalent of a
	// handle_<name> method.
	Handlers map[string]HandlerFunc

	// Listeners maps event names to bound listeners notified by trigger
	// and broadcast.
	Listeners map[string][]ListenerFunc

	// Lifecycle hooks, in per-request order. InitTransaction runs once
	// per (component, transaction); the rest run every request.
	InitTransaction HookFunc
	Setup           HookFunc
	AfterEvents     HookFunc
	Finalize        HookFunc
	Destruct        HookFunc

	// Container declares container semantics without children. Containers
	// are also inferred from Children, DefaultChild, GetData or InitStruct.
	Container bool

	// Children are the statically declared child blueprints.
	Children []*Def

	// InitStruct lazily produces child blueprints at transaction init,
	// replacing Children when it returns a non-nil slice.
	InitStruct func(c *Component) []*Def

	// DefaultChild is the blueprint instantiated per data record by the
	// reconciliation engine. Setting it makes the container "smart".
	DefaultChild *Def

	// DataInterface names the record fields the data source provides.
	DataInterface []string

	// GetData fetches the records reconciliation synchronizes against.
	GetData DataFunc

	// RowLimit is the initial fetch window size; 0 means 30.
	RowLimit int

	// SkipAutoInitialize suppresses the initial reconciliation during
	// transaction init.
	SkipAutoInitialize bool

	// SkipAutoUpdate suppresses the per-request reconciliation after
	// event handling.
	SkipAutoUpdate bool

	// AcceptFields makes this container the registration target for
	// named descendant fields (the form pattern).
	AcceptFields bool

	// Validators run against the component's value during Validate.
	Validators []Validator

	base  *Spec  // non-nil on derived specs
	baked Values // config baked in by Derive
}

// baseStateAttrs are persisted for every component.
var baseStateAttrs = []string{"visible", "name", "value", "mandatory", "validation_error"}

// containerStateAttrs are additionally persisted for containers.
var containerStateAttrs = []string{"row_offset", "row_limit", "row_count", "row_data"}

// IsContainer reports whether the spec carries container semantics.
func (s *Spec) IsContainer() bool {
	return s.Container || len(s.Children) > 0 || s.DefaultChild != nil ||
		s.GetData != nil || s.InitStruct != nil
}

// IsSmart reports whether children are generated from a data source.
func (s *Spec) IsSmart() bool { return s.DefaultChild != nil }

// stateAttrs returns the combined set of persisted attribute names.
func (s *Spec) stateAttrs() map[string]bool {
	out := make(map[string]bool, len(baseStateAttrs)+len(s.State))
	for _, n := range baseStateAttrs {
		out[n] = true
	}
	if s.IsContainer() {
		for _, n := range containerStateAttrs {
			out[n] = true
		}
	}
	for _, n := range s.State {
		out[n] = true
	}
	return out
}

// Derive returns a variant of s with config baked in as type-level
// defaults. This is how one spec serves as a template for many
// parameterized instances without per-instance branching. Derived specs
// are recognized as equivalent across requests by structural equality of
// (base name, baked config).
func (s *Spec) Derive(config Values) *Spec {
	if len(config) == 0 {
		return s
	}
	base := s
	baked := config.Clone()
	if s.base != nil {
		base = s.base
		baked = s.baked.Merged(config)
	}
	derived := *base
	derived.Config = base.Config.Merged(baked)
	derived.base = base
	derived.baked = baked
	return &derived
}

// classState returns the serializable descriptor for records created from
// this spec.
func (s *Spec) classState() ClassState {
	if s.base != nil {
		return ClassState{Spec: s.base.Name, Config: s.baked.Clone()}
	}
	return ClassState{Spec: s.Name}
}

// Declare returns a blueprint (UnboundComponent) for this spec. The
// config may carry "cid" and "slot" keys, which position the component;
// any further keys derive a parameterized spec at resolve time.
//
// Declare never touches live resources; the blueprint is a pure recipe
// consumed by AddChild or by listing it in a container's Children.
func (s *Spec) Declare(config Values) *Def {
	d := &Def{spec: s, config: config.Clone()}
	if cid, ok := d.config["cid"].(string); ok {
		d.cid = cid
	}
	if slot, ok := d.config["slot"].(string); ok {
		d.slot = slot
	}
	delete(d.config, "cid")
	delete(d.config, "slot")
	return d
}

// Def is a lazy, serializable component blueprint: a spec reference, a
// configuration mapping and a position (id, slot). Blueprints resolve
// into live components exactly once per declared node per transaction;
// resolving an id that already exists rehydrates the stored component
// instead of re-running constructor side effects.
type Def struct {
	spec    *Spec
	config  Values
	cid     string
	slot    string
	derived *Spec // cached dynamic spec
}

// With returns a new blueprint with overrides merged into the
// configuration. The receiver is never mutated, so one blueprint can be
// the template for many instances.
func (d *Def) With(overrides Values) *Def {
	merged := d.config.Merged(overrides)
	if d.cid != "" {
		merged["cid"] = d.cid
	}
	if d.slot != "" {
		merged["slot"] = d.slot
	}
	return d.spec.Declare(merged)
}

// CID returns the declared id, or "" when one is generated at resolve.
func (d *Def) CID() string { return d.cid }

// Slot returns the declared slot name.
func (d *Def) Slot() string { return d.slot }

// Spec returns the underlying spec the blueprint was declared from.
func (d *Def) Spec() *Spec { return d.spec }

// Config returns a copy of the blueprint's configuration.
func (d *Def) Config() Values { return d.config.Clone() }

// Equal reports structural equality: same spec identity and same
// configuration, independent of position.
func (d *Def) Equal(other *Def) bool {
	if other == nil {
		return false
	}
	return d.spec.classState().Equal(other.spec.classState()) &&
		d.spec.Name == other.spec.Name &&
		d.config.Equal(other.config)
}

// effectiveSpec returns the spec this blueprint resolves to, deriving a
// parameterized variant when the configuration carries extra keys.
func (d *Def) effectiveSpec() *Spec {
	if len(d.config) == 0 {
		return d.spec
	}
	if d.derived == nil {
		d.derived = d.spec.Derive(d.config)
	}
	return d.derived
}

// resolve registers the blueprint in the container's store and returns
// the materialized component. When the id already exists in this
// transaction the stored record wins: state is loaded from it rather than
// re-running initialization.
func (d *Def) resolve(container *Component, position int) (*Component, error) {
	page := container.page
	cid := d.cid
	if cid == "" {
		cid = page.ids.NewID()
	}
	spec := d.effectiveSpec()
	rec := &Record{
		CID:    cid,
		Class:  spec.classState(),
		Config: d.config.Clone(),
		CCID:   container.cid,
		Slot:   d.slot,
	}
	if err := page.store.Set(rec, position); err != nil {
		// A generated id collided; retry once with a fresh one. Declared
		// ids are the caller's responsibility and conflict hard.
		if d.cid == "" {
			rec.CID = page.ids.NewID()
			if err2 := page.store.Set(rec, position); err2 != nil {
				return nil, err2
			}
			cid = rec.CID
		} else if !page.store.Has(cid) || page.store.Get(cid).CCID != container.cid {
			return nil, err
		}
	}
	return page.materialize(cid, spec)
}

func (d *Def) String() string {
	return fmt.Sprintf("<Def %s cid=%q slot=%q config=%v>", d.spec.Name, d.cid, d.slot, d.config)
}
