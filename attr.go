package weft

// Attr is a typed descriptor for a state field, bound at type-definition
// time and read through the component's store handle. It gives component
// code typed access without attribute-interception magic:
//
//	var text = weft.Attr[string]{Name: "text"}
//
//	func onClick(c *weft.Component, params weft.Values) error {
//	    text.Set(c, text.Get(c)+"!")
//	    c.Redraw()
//	    return nil
//	}
//
// The Name must appear in the spec's State list for the value to persist
// across requests.
type Attr[T any] struct {
	Name    string
	Default T
}

// Get returns the field value, or the declared default when the field is
// unset or carries an incompatible type. Integer widths produced by
// snapshot round-trips are normalized for integer-typed attrs.
func (a Attr[T]) Get(c *Component) T {
	v := c.Field(a.Name)
	if v == nil {
		return a.Default
	}
	if t, ok := v.(T); ok {
		return t
	}
	if _, isInt := any(a.Default).(int); isInt {
		if n, ok := asInt64(v); ok {
			if t, ok := any(int(n)).(T); ok {
				return t
			}
		}
	}
	return a.Default
}

// Set writes the field value through the store handle.
func (a Attr[T]) Set(c *Component, value T) {
	c.SetField(a.Name, value)
}
