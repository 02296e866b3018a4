package weft

import "strings"

// Component is one instantiated, request-bound node in the UI tree. Live
// objects are recreated every request; everything that must survive lives
// in the Store, reached through the component's state attributes. All
// cross-component references are id lookups through the Page, never live
// pointers, which keeps the tree cycle-free and trivially serializable.
type Component struct {
	page   *Page
	cid    string
	spec   *Spec
	config Values // instance configuration, copied at materialization

	stateAttrs map[string]bool

	// EventTrace lists the ids an event bubbled through before reaching
	// this component, origin first. Only set while a handler runs.
	EventTrace []string

	redrawRequested bool
	isRendered      bool
	deleted         bool

	accessCache  *bool
	visibleCache [2]*bool // [0] without parents, [1] with parents
	renderCache  *renderResult
	themeCache   map[string]themeChain

	listeners map[string][]ListenerFunc
	fields    []*Component

	reconcileDone bool
}

// CID returns the component's unique id.
func (c *Component) CID() string { return c.cid }

// Page returns the owning page.
func (c *Component) Page() *Page { return c.page }

// Spec returns the component's resolved type descriptor.
func (c *Component) Spec() *Spec { return c.spec }

// Slot returns the slot this component occupies in its container.
func (c *Component) Slot() string {
	if rec := c.record(); rec != nil {
		return rec.Slot
	}
	return ""
}

func (c *Component) record() *Record {
	return c.page.store.Get(c.cid)
}

// Container returns the owning container component, or nil for the root.
// Resolution goes through the store's id reference, not a kept pointer.
func (c *Component) Container() *Component {
	rec := c.record()
	if rec == nil || rec.CCID == "" {
		return nil
	}
	parent, _ := c.page.Component(rec.CCID)
	return parent
}

// Children returns the live child components in structural order.
func (c *Component) Children() []*Component {
	rec := c.record()
	if rec == nil {
		return nil
	}
	out := make([]*Component, 0, len(rec.Children))
	for _, cid := range rec.Children {
		if child, err := c.page.Component(cid); err == nil {
			out = append(out, child)
		}
	}
	return out
}

// Position returns this component's index in its container's structural
// order, or -1 for the root.
func (c *Component) Position() int {
	rec := c.record()
	if rec == nil || rec.CCID == "" {
		return -1
	}
	parent := c.page.store.Get(rec.CCID)
	if parent == nil {
		return -1
	}
	for i, cid := range parent.Children {
		if cid == c.cid {
			return i
		}
	}
	return -1
}

// Field returns the named attribute: persisted state if the name is a
// declared state attribute with a stored value, the instance
// configuration otherwise. Missing fields are nil.
func (c *Component) Field(name string) any {
	if c.stateAttrs[name] {
		if rec := c.record(); rec != nil {
			if v, ok := rec.State[name]; ok {
				return v
			}
		}
	}
	return c.config[name]
}

// HasField reports whether the component carries the named attribute in
// state or configuration. Reconciliation uses this to find the children
// that participate in data matching.
func (c *Component) HasField(name string) bool {
	if c.stateAttrs[name] {
		if rec := c.record(); rec != nil {
			if _, ok := rec.State[name]; ok {
				return true
			}
		}
	}
	_, ok := c.config[name]
	return ok
}

// SetField writes the named attribute: into the store for declared state
// attributes, into the instance configuration otherwise. Non-state writes
// do not survive the request.
func (c *Component) SetField(name string, value any) {
	if c.stateAttrs[name] {
		if rec := c.record(); rec != nil {
			rec.State[name] = value
			return
		}
	}
	c.config[name] = value
}

// setStoredField writes through to the record so the value survives the
// request even for attributes outside the declared state set.
// Reconciliation uses this to keep matched children aligned with their
// data records.
func (c *Component) setStoredField(name string, value any) {
	rec := c.record()
	if rec == nil {
		c.SetField(name, value)
		return
	}
	if c.stateAttrs[name] {
		rec.State[name] = value
		return
	}
	if rec.Config == nil {
		rec.Config = Values{}
	}
	rec.Config[name] = value
	c.config[name] = value
}

// Redraw flags this component for replacement output in the next partial
// response. Redraw cost stays proportional to what actually changed: the
// flag is per component, never per tree.
func (c *Component) Redraw() {
	c.redrawRequested = true
}

// RedrawRequested reports whether a redraw is pending.
func (c *Component) RedrawRequested() bool { return c.redrawRequested }

// Deleted reports whether this component was deleted during this request.
func (c *Component) Deleted() bool { return c.deleted }

// Visible returns the explicit visibility flag.
func (c *Component) Visible() bool {
	if v, ok := c.Field("visible").(bool); ok {
		return v
	}
	return true
}

// SetVisible shows the component and returns the previous flag. The
// component still needs a redraw to appear.
func (c *Component) SetVisible() bool {
	prev := c.Visible()
	c.visibleCache = [2]*bool{}
	c.SetField("visible", true)
	return prev
}

// SetHidden hides the component and returns the previous flag.
func (c *Component) SetHidden() bool {
	prev := c.Visible()
	c.visibleCache = [2]*bool{}
	c.SetField("visible", false)
	return prev
}

// HasAccess checks the page's permission predicate for this component,
// cached per request.
func (c *Component) HasAccess() bool {
	if c.accessCache == nil {
		ok := true
		if c.page.permission != nil && !c.config.GetBool("skip_access", false) {
			ok = c.page.permission(c.page.principal, c)
		}
		c.accessCache = &ok
	}
	return *c.accessCache
}

// IsVisible combines the explicit flag, the permission check and, when
// checkParents is true, recursive container visibility. Computed lazily
// and cached per component per request.
func (c *Component) IsVisible(checkParents bool) bool {
	idx := 0
	if checkParents {
		idx = 1
	}
	if c.visibleCache[idx] != nil {
		return *c.visibleCache[idx]
	}
	var visible bool
	switch {
	case !c.Visible():
		visible = false
	case !c.HasAccess():
		visible = false
	case checkParents && c.Container() != nil:
		visible = c.Container().IsVisible(true)
	default:
		visible = true
	}
	c.visibleCache[idx] = &visible
	return visible
}

// Bind attaches a listener for a named event on this live component, in
// addition to any listeners the spec declares. Instance bindings last for
// the current request only.
func (c *Component) Bind(event string, fn ListenerFunc) {
	if c.listeners == nil {
		c.listeners = make(map[string][]ListenerFunc)
	}
	c.listeners[event] = append(c.listeners[event], fn)
}

// HandleEvent dispatches a named event with parameters to this component.
// A direct handler is looked up on the spec; on success any bound
// listeners for the same name run afterward. With no handler found the
// event either stops at an event sink, bubbles to the container with this
// component's id appended to the trace, or, with neither available,
// returns the missing-handler error to the caller.
func (c *Component) HandleEvent(name string, params Values) error {
	return c.dispatchEvent(name, params, nil)
}

func (c *Component) dispatchEvent(name string, params Values, trace []string) error {
	err := c.invokeHandler(name, params, trace)
	if err == nil || !IsMissingHandler(err) {
		return err
	}
	if c.spec.EventSink {
		c.page.log.Debug().Str("cid", c.cid).Str("event", name).
			Msg("event discarded at sink")
		return nil
	}
	if parent := c.Container(); parent != nil {
		return parent.dispatchEvent(name, params, append(trace, c.cid))
	}
	return err
}

func (c *Component) invokeHandler(name string, params Values, trace []string) error {
	handler := c.spec.Handlers[name]
	if handler == nil {
		if builtin, ok := builtinHandlers[name]; ok {
			handler = builtin
		}
	}
	if handler == nil {
		return &MissingHandlerError{CID: c.cid, Event: name, Trace: trace}
	}
	c.EventTrace = trace
	err := handler(c, params)
	c.EventTrace = nil
	if err != nil {
		return err
	}
	if c.boundListeners(name) != nil {
		e := newEvent(c, name, params)
		if err := e.runListenersAt(c); err != nil {
			return err
		}
	}
	return nil
}

// builtinHandlers back the handler conventions every component supports
// without declaring them.
var builtinHandlers = map[string]HandlerFunc{
	"change": func(c *Component, params Values) error {
		return c.HandleChange(params["value"])
	},
	"set_row": func(c *Component, params Values) error {
		query, _ := toValues(params["row_data"])
		c.SetRowWindow(params.GetInt("row_offset"), params.GetInt("row_limit"), query)
		return nil
	},
	"reinitialize": func(c *Component, params Values) error {
		return c.Reinitialize()
	},
}

func (c *Component) boundListeners(event string) []ListenerFunc {
	var out []ListenerFunc
	out = append(out, c.spec.Listeners[event]...)
	out = append(out, c.listeners[event]...)
	return out
}

// Delete removes this component from the tree: children first
// (post-order), then the store record, then the client-side removal
// fragment. The root has no container and cannot be deleted this way.
func (c *Component) Delete() error {
	if c.Container() == nil {
		return &InvalidDeletionError{CID: c.cid}
	}
	if c.Name() != "" {
		c.UnregisterField(c)
	}
	for _, child := range c.Children() {
		if err := child.Delete(); err != nil {
			return err
		}
	}
	if c.spec.Destruct != nil {
		if err := c.spec.Destruct(c); err != nil {
			return err
		}
	}
	c.page.store.Delete(c.cid)
	c.page.forget(c.cid)
	c.page.response.Destroy(c.cid)
	c.deleted = true
	return nil
}

// Reinitialize deletes the component and recreates it from its blueprint
// at the same position with the same id.
func (c *Component) Reinitialize() error {
	container := c.Container()
	if container == nil {
		return &InvalidDeletionError{CID: c.cid}
	}
	position, cid, slot := c.Position(), c.cid, c.Slot()
	rec := c.record()
	def := c.spec.Declare(rec.Config.Merged(Values{"cid": cid, "slot": slot}))
	if err := c.Delete(); err != nil {
		return err
	}
	if _, err := container.AddChild(def, position); err != nil {
		return err
	}
	container.Redraw()
	return nil
}

// lifecycle runners; the page drives these in strict phase order.

func (c *Component) initTransaction() error {
	if c.Name() != "" && c.Field("value") == nil && c.Field("default") != nil {
		c.SetField("value", c.Field("default"))
	}
	if c.spec.InitTransaction != nil {
		if err := c.spec.InitTransaction(c); err != nil {
			return err
		}
	}
	if c.spec.IsContainer() {
		return c.initContainerTransaction()
	}
	return nil
}

func (c *Component) setupComponent() error {
	// Live objects are rebuilt per request, so field registration has to
	// happen here, not at transaction init.
	if c.Name() != "" {
		c.RegisterField(c)
	}
	if c.spec.Setup != nil {
		return c.spec.Setup(c)
	}
	return nil
}

func (c *Component) afterEventHandling() error {
	if c.spec.AfterEvents != nil {
		if err := c.spec.AfterEvents(c); err != nil {
			return err
		}
	}
	if c.spec.IsContainer() && !c.spec.SkipAutoUpdate {
		return c.UpdateChildren(true)
	}
	return nil
}

func (c *Component) finalize() error {
	if c.spec.Finalize != nil {
		return c.spec.Finalize(c)
	}
	return nil
}

// value and field handling

// Name returns the component's form-field name; a component without a
// name cannot carry a value.
func (c *Component) Name() string {
	s, _ := c.Field("name").(string)
	return s
}

// Value returns the component's current value.
func (c *Component) Value() any { return c.Field("value") }

// SetValue sets the component's value.
func (c *Component) SetValue(v any) { c.SetField("value", v) }

// HandleChange updates the value from a client change event. Components
// without a name are not valid value carriers; the event re-bubbles.
func (c *Component) HandleChange(value any) error {
	if c.Name() == "" {
		return &MissingHandlerError{CID: c.cid, Event: "change"}
	}
	c.SetValue(value)
	return nil
}

// SetToDefault resets the value to the declared default and clears any
// validation error.
func (c *Component) SetToDefault() {
	c.SetValue(c.Field("default"))
	c.SetField("validation_error", "")
}

// RegisterField walks up the container chain until a component that
// accepts field registrations takes the field.
func (c *Component) RegisterField(field *Component) {
	if c.spec.AcceptFields && c != field {
		for _, f := range c.fields {
			if f.cid == field.cid {
				return
			}
		}
		c.fields = append(c.fields, field)
		return
	}
	if parent := c.Container(); parent != nil {
		parent.RegisterField(field)
	}
}

// UnregisterField removes the field from the accepting ancestor.
func (c *Component) UnregisterField(field *Component) {
	if c.spec.AcceptFields && c != field {
		for i, f := range c.fields {
			if f.cid == field.cid {
				c.fields = append(c.fields[:i], c.fields[i+1:]...)
				break
			}
		}
		return
	}
	if parent := c.Container(); parent != nil {
		parent.UnregisterField(field)
	}
}

// Fields returns the fields registered with this component, in
// registration order. Only meaningful on field-accepting containers.
func (c *Component) Fields() []*Component {
	return append([]*Component(nil), c.fields...)
}

// ParentForm returns the nearest ancestor that accepts fields, or nil.
func (c *Component) ParentForm() *Component {
	if parent := c.Container(); parent != nil {
		if parent.spec.AcceptFields {
			return parent
		}
		return parent.ParentForm()
	}
	return nil
}

// NamedValues collects name→value pairs from this component and all
// descendants.
func (c *Component) NamedValues() Values {
	out := Values{}
	for _, child := range c.Children() {
		for k, v := range child.NamedValues() {
			out[k] = v
		}
	}
	if name := c.Name(); name != "" {
		out[name] = c.Value()
	}
	return out
}

// SetNamedValue assigns a value to every descendant carrying the name.
func (c *Component) SetNamedValue(name string, value any) {
	if c.Name() == name {
		// Ignore the rebubble error: assignment by name targets carriers only.
		_ = c.HandleChange(value)
	}
	for _, child := range c.Children() {
		child.SetNamedValue(name, value)
	}
}

// ValidationError returns the recorded user-visible validation message.
func (c *Component) ValidationError() string {
	s, _ := c.Field("validation_error").(string)
	return s
}

// Validate runs the validation protocol: visible children first, then
// this component's own validators if it carries a name. Failures are
// recorded as the component's validation error and flag a redraw of just
// that component; they never abort the request.
func (c *Component) Validate() bool {
	ok := true
	for _, child := range c.Children() {
		if !child.IsVisible(false) {
			continue
		}
		if !child.Validate() {
			ok = false
		}
	}
	if c.Name() != "" && c.IsVisible(true) {
		if !c.validateSelf() {
			ok = false
		}
	}
	return ok
}

func (c *Component) validateSelf() bool {
	var messages []string
	for _, v := range c.spec.Validators {
		if err := v.Validate(c); err != nil {
			messages = append(messages, err.Error())
		}
	}
	if c.config.GetBool("mandatory", false) || c.Field("mandatory") == true {
		if c.Value() == nil || c.Value() == "" {
			messages = append(messages, "a value is required")
		}
	}
	if len(messages) > 0 {
		c.SetField("validation_error", strings.Join(messages, "\n"))
		c.Redraw()
		return false
	}
	// A previously recorded error must be cleared from both the rendered
	// output and the state.
	if c.ValidationError() != "" {
		c.SetField("validation_error", "")
		c.Redraw()
	}
	return true
}
