package weft

import "fmt"

// UpdateChildren synchronizes a smart container's children against the
// current result of its data source. The algorithm produces minimal
// operations: hibernate what vanished, wake what came back, update only
// changed fields, create what is new, then rewrite structural order to
// match the data. Each changed child is flagged for redraw individually;
// the container itself is only redrawn on structural change.
//
// The operation runs at most once per request; a second invocation
// without force is a ReconcileMisuseError. Given identical data and
// identical starting state it is idempotent.
func (c *Component) UpdateChildren(force bool) error {
	if !c.spec.IsContainer() {
		return ErrNotContainer
	}
	if c.reconcileDone && !force {
		return &ReconcileMisuseError{CID: c.cid}
	}
	c.reconcileDone = true

	if !c.spec.IsSmart() {
		return nil
	}

	data, err := c.spec.GetData(c.RowOffset(), c.RowLimit(), c.RowData())
	if err != nil {
		return err
	}

	// Children declared without an id never participate in matching and
	// stay at the front; reconciliation never touches structural order
	// below this index.
	tippingPoint := 0
	for _, child := range c.Children() {
		if !child.HasField("id") {
			tippingPoint++
		}
	}

	newOrder := make([]string, 0, len(data))
	dataByID := make(map[string]Values, len(data))
	orderIdx := make(map[string]int, len(data))
	for i, record := range data {
		id, ok := record["id"]
		if !ok {
			return fmt.Errorf("weft: data record %d for container %q has no id", i, c.cid)
		}
		key := dataKey(id)
		if _, dup := dataByID[key]; dup {
			return &DuplicateDataIDError{CID: c.cid, DataID: id}
		}
		newOrder = append(newOrder, key)
		dataByID[key] = record
		orderIdx[key] = i
	}

	// Reactivation: ids sleeping in this container that reappear in the
	// data are woken rather than recreated, preserving their state.
	sleeping := c.page.store.SleepingIDs(c.cid)
	for _, key := range newOrder {
		if _, asleep := sleeping[key]; asleep {
			if _, ok := c.page.store.Wake(c.cid, key); ok {
				c.Redraw()
			}
		}
	}

	currentOrder := make([]string, 0, len(c.Children()))
	currentSet := make(map[string]bool)
	cidByID := make(map[string]string)
	for _, child := range c.Children() {
		if !child.HasField("id") {
			continue
		}
		key := dataKey(child.Field("id"))
		currentOrder = append(currentOrder, key)
		currentSet[key] = true
		cidByID[key] = child.cid
	}

	// Deletion: children whose id fell out of the data are hibernated.
	// Their record stays so a later reappearance wakes the same state.
	for _, key := range currentOrder {
		if _, present := dataByID[key]; present {
			continue
		}
		c.page.store.Hibernate(c.cid, cidByID[key], key)
		c.page.forget(cidByID[key])
		delete(cidByID, key)
		delete(currentSet, key)
		c.Redraw()
	}

	// Update: matched children get each differing field overwritten from
	// the fresh record and are flagged for redraw individually.
	for _, key := range newOrder {
		if !currentSet[key] {
			continue
		}
		child, err := c.page.Component(cidByID[key])
		if err != nil {
			return err
		}
		// A component may declare that it cannot be updated in place.
		// It is deleted outright, never hibernated, and excluded from
		// further matching so the creation step rebuilds it.
		if child.spec.DisableAutoUpdate {
			if err := c.RemoveChild(child.cid); err != nil {
				return err
			}
			delete(cidByID, key)
			delete(currentSet, key)
			c.Redraw()
			continue
		}
		for k, v := range dataByID[key] {
			if !valueEqual(child.Field(k), v) {
				child.setStoredField(k, v)
				child.Redraw()
			}
		}
	}

	// Creation: unmatched ids are instantiated from the default child
	// blueprint with the full data record as configuration, inserted at
	// the data-implied position below the tipping point, clamped to
	// append.
	childCount := len(c.Children())
	for _, key := range newOrder {
		if currentSet[key] {
			continue
		}
		position := orderIdx[key] + tippingPoint
		if position > childCount {
			position = -1
		}
		record := dataByID[key]
		if c.config.GetBool("skip_child_access", false) {
			record = record.Merged(Values{"skip_access": true})
		}
		child, err := c.AddChild(c.spec.DefaultChild.With(record), position)
		if err != nil {
			return err
		}
		childCount++
		cidByID[key] = child.cid
		c.Redraw()
	}

	// Reorder: structural order below the tipping point is rewritten to
	// match the data exactly; every mismatch is an explicit move.
	rec := c.record()
	for i, key := range newOrder {
		idx := i + tippingPoint
		if idx < len(rec.Children) && rec.Children[idx] == cidByID[key] {
			continue
		}
		c.MoveChild(cidByID[key], idx)
		c.Redraw()
	}
	return nil
}
