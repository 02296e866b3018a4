package weft

// Event is one in-flight notification travelling through the bound
// listener mechanism. Events are constructed at dispatch and consumed
// synchronously within one request; they are never persisted.
//
// Two directions exist: Trigger bubbles upward through the container
// chain, Broadcast fans out downward through all descendants. Both notify
// bound listeners only, never direct handlers.
type Event struct {
	Target *Component
	Name   string
	Data   Values

	propagationStopped          bool
	immediatePropagationStopped bool
	acceptedAsync               bool
	original                    *Event
}

func newEvent(target *Component, name string, data Values) *Event {
	return &Event{Target: target, Name: name, Data: data}
}

// StopPropagation halts further escalation after the current level's
// listeners finish.
func (e *Event) StopPropagation() { e.propagationStopped = true }

// StopImmediatePropagation additionally skips the remaining listeners at
// the current level.
func (e *Event) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediatePropagationStopped = true
}

// AcceptAsync declares that the listener intentionally defers completion.
// Requests flagged as requiring synchronous completion fail hard when no
// listener acknowledges async handling.
func (e *Event) AcceptAsync() { e.acceptedAsync = true }

// Original returns the event as first dispatched, before any clone
// crossed a component boundary. Nil on the original itself.
func (e *Event) Original() *Event { return e.original }

// Trigger notifies this component's bound listeners for the event and,
// unless propagation was stopped, escalates up the container chain to
// the root.
func (c *Component) Trigger(name string, data Values) error {
	return newEvent(c, name, data).trigger()
}

// Broadcast notifies this component and all descendants, fanning out
// downward through bound listeners.
func (c *Component) Broadcast(name string, data Values) error {
	return newEvent(c, name, data).broadcast()
}

func (e *Event) trigger() error {
	if err := e.runListenersAt(e.Target); err != nil {
		return err
	}
	if e.propagationStopped {
		return nil
	}
	if parent := e.Target.Container(); parent != nil {
		return e.clone(parent).trigger()
	}
	return nil
}

func (e *Event) broadcast() error {
	if err := e.runListenersAt(e.Target); err != nil {
		return err
	}
	if e.propagationStopped {
		return nil
	}
	for _, child := range e.Target.Children() {
		if err := e.clone(child).broadcast(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Event) runListenersAt(c *Component) error {
	requireSync := c.page.req != nil && c.page.req.RequireSync
	for _, listener := range c.boundListeners(e.Name) {
		if e.immediatePropagationStopped {
			break
		}
		e.acceptedAsync = false
		if err := listener(c, e); err != nil {
			return err
		}
		if requireSync && !e.acceptedAsync {
			return ErrAsyncNotAccepted
		}
		e.acceptedAsync = false
	}
	return nil
}

func (e *Event) clone(target *Component) *Event {
	c := newEvent(target, e.Name, e.Data)
	if e.original != nil {
		c.original = e.original
	} else {
		c.original = e
	}
	return c
}
