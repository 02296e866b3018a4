package weft

// Container behavior for components whose spec declares it: child
// management, slots, the row window for smart containers, and the
// transaction-init path that materializes declared children.

func (c *Component) initContainerTransaction() error {
	nodes := c.spec.Children
	if c.spec.InitStruct != nil {
		if dynamic := c.spec.InitStruct(c); dynamic != nil {
			nodes = dynamic
		}
	}
	for _, def := range nodes {
		if _, err := c.AddChild(def, -1); err != nil {
			return err
		}
	}
	if !c.spec.SkipAutoInitialize {
		return c.UpdateChildren(true)
	}
	return nil
}

// AddChild consumes a blueprint: registers it in the store under this
// container, materializes the component and runs its transaction init if
// it has not run for this (component, transaction) pair yet. Outside the
// page's init phase the setup hook runs immediately as well, so a
// component added from an event handler is fully usable in the same
// request. position inserts into structural order; -1 appends.
func (c *Component) AddChild(def *Def, position int) (*Component, error) {
	if !c.spec.IsContainer() {
		return nil, ErrNotContainer
	}
	child, err := def.resolve(c, position)
	if err != nil {
		return nil, err
	}
	rec := child.record()
	if !rec.Initialized {
		rec.Initialized = true
		if err := child.initTransaction(); err != nil {
			return nil, err
		}
	}
	if c.page.phase > phaseInit {
		if err := child.setupComponent(); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// RemoveChild deletes the child under cid outright, record included.
func (c *Component) RemoveChild(cid string) error {
	child, err := c.page.Component(cid)
	if err != nil {
		return err
	}
	return child.Delete()
}

// ReplaceChild swaps a child for a new blueprint, keeping id and
// position.
func (c *Component) ReplaceChild(old *Component, def *Def) (*Component, error) {
	cid, position := old.cid, old.Position()
	if err := old.Delete(); err != nil {
		return nil, err
	}
	return c.AddChild(def.With(Values{"cid": cid}), position)
}

// MoveChild moves a component (from wherever it currently lives) into
// this container's structural order at position, and emits the
// client-side move instruction on partial requests.
func (c *Component) MoveChild(cid string, position int) {
	c.page.store.Move(cid, c.cid, position)
	c.page.response.Move(cid, c.cid, position)
}

// IsSmart reports whether this container generates children from a data
// source.
func (c *Component) IsSmart() bool { return c.spec.IsSmart() }

// Row window state for smart containers.

var (
	rowOffsetAttr = Attr[int]{Name: "row_offset"}
	rowLimitAttr  = Attr[int]{Name: "row_limit"}
	rowCountAttr  = Attr[int]{Name: "row_count"}
)

// RowOffset returns the current data window offset.
func (c *Component) RowOffset() int { return rowOffsetAttr.Get(c) }

// RowLimit returns the current data window size.
func (c *Component) RowLimit() int {
	if c.HasField("row_limit") {
		if n := rowLimitAttr.Get(c); n > 0 {
			return n
		}
	}
	if c.spec.RowLimit > 0 {
		return c.spec.RowLimit
	}
	return 30
}

// RowCount returns the total count reported by the data source, when the
// source maintains it.
func (c *Component) RowCount() int { return rowCountAttr.Get(c) }

// SetRowCount records the total count of the backing data set.
func (c *Component) SetRowCount(n int) { rowCountAttr.Set(c, n) }

// RowData returns the free-form query parameters passed to the data
// source.
func (c *Component) RowData() Values {
	if v, ok := toValues(c.Field("row_data")); ok {
		return v
	}
	return nil
}

// SetRowWindow updates offset, limit and query parameters in one step,
// the common pagination handler.
func (c *Component) SetRowWindow(offset, limit int, query Values) {
	c.SetField("row_offset", offset)
	c.SetField("row_limit", limit)
	c.SetField("row_data", query)
}
