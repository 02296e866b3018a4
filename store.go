package weft

import "sort"

// ClassState is the serializable descriptor of a component's resolved
// type: the registered spec name plus any configuration baked in by a
// derived blueprint. Two ClassStates are equal iff name and baked config
// are structurally equal, which is what lets derived blueprints be
// recognized as equivalent across requests.
type ClassState struct {
	Spec   string `msgpack:"spec"`
	Config Values `msgpack:"config,omitempty"`
}

// Equal reports structural equality.
func (cs ClassState) Equal(other ClassState) bool {
	return cs.Spec == other.Spec && cs.Config.Equal(other.Config)
}

// Record is one component's entry in the Store: resolved type, constructor
// configuration, structural links and the persisted state attributes.
//
// Children is the authoritative structural order of the component's live
// children. Sleeping maps data ids to hibernated child ids whose records
// are retained but removed from structural order.
type Record struct {
	CID         string            `msgpack:"cid"`
	Class       ClassState        `msgpack:"class"`
	Config      Values            `msgpack:"config,omitempty"`
	CCID        string            `msgpack:"ccid,omitempty"`
	Slot        string            `msgpack:"slot,omitempty"`
	Children    []string          `msgpack:"children,omitempty"`
	Sleeping    map[string]string `msgpack:"sleeping,omitempty"`
	State       Values            `msgpack:"state,omitempty"`
	Asleep      bool              `msgpack:"asleep,omitempty"`
	Initialized bool              `msgpack:"initialized,omitempty"`
}

// StoreSnapshot is the wire form of a Store, produced by Snapshot and
// consumed by RestoreStore. Records are listed in structural
// (parent-before-child) order so restore is deterministic.
type StoreSnapshot struct {
	Root    string    `msgpack:"root"`
	Records []*Record `msgpack:"records"`
}

// Store is the transaction-scoped state store: a flat arena of component
// records indexed by id, with structural order kept on each record's
// child list. One Store instance belongs to exactly one page activation
// per request; it provides no locking of its own.
type Store struct {
	records map[string]*Record
	root    string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// RootCID returns the id of the root record, or "" for an empty store.
func (s *Store) RootCID() string { return s.root }

// Len returns the number of records, live and sleeping.
func (s *Store) Len() int { return len(s.records) }

// Has reports whether a record exists under cid. O(1).
func (s *Store) Has(cid string) bool {
	_, ok := s.records[cid]
	return ok
}

// Get returns the record under cid, or nil.
func (s *Store) Get(cid string) *Record {
	return s.records[cid]
}

// Set inserts or updates a record. A record with an empty CCID becomes the
// root. For new child records the id is inserted into the container's
// structural list, at position if 0 <= position < len, appended otherwise.
//
// Updating an existing live record under the same container refreshes its
// class, config and slot while keeping children, state and the initialized
// flag; this is the rehydration path. Claiming an existing id for a
// different container, or claiming a hibernated id, is an IDConflictError.
func (s *Store) Set(rec *Record, position int) error {
	if existing, ok := s.records[rec.CID]; ok {
		if existing.Asleep || existing.CCID != rec.CCID {
			return &IDConflictError{CID: rec.CID, ExistingCCID: existing.CCID, ClaimedCCID: rec.CCID}
		}
		existing.Class = rec.Class
		existing.Config = rec.Config
		existing.Slot = rec.Slot
		return nil
	}

	if rec.State == nil {
		rec.State = Values{}
	}
	s.records[rec.CID] = rec

	if rec.CCID == "" {
		s.root = rec.CID
		return nil
	}
	parent := s.records[rec.CCID]
	if parent == nil {
		// Container records are always set parent-first; a missing parent
		// is a programming error surfaced as a conflict on the container.
		delete(s.records, rec.CID)
		return &IDConflictError{CID: rec.CID, ClaimedCCID: rec.CCID}
	}
	if position >= 0 && position < len(parent.Children) {
		parent.Children = append(parent.Children, "")
		copy(parent.Children[position+1:], parent.Children[position:])
		parent.Children[position] = rec.CID
	} else {
		parent.Children = append(parent.Children, rec.CID)
	}
	return nil
}

// Delete removes the record under cid and, post-order, all of its
// descendants, sleeping ones included. Deleting an absent id is a no-op.
func (s *Store) Delete(cid string) {
	rec, ok := s.records[cid]
	if !ok {
		return
	}
	for _, child := range append([]string(nil), rec.Children...) {
		s.Delete(child)
	}
	for _, child := range rec.Sleeping {
		s.Delete(child)
	}
	if parent := s.records[rec.CCID]; parent != nil {
		parent.Children = removeCID(parent.Children, cid)
		for k, v := range parent.Sleeping {
			if v == cid {
				delete(parent.Sleeping, k)
			}
		}
	}
	delete(s.records, cid)
	if s.root == cid {
		s.root = ""
	}
}

// Hibernate moves the child out of the container's structural order into
// its sleeping registry under dataID. The record and its subtree are
// retained.
func (s *Store) Hibernate(containerCID, childCID, dataID string) {
	parent := s.records[containerCID]
	child := s.records[childCID]
	if parent == nil || child == nil {
		return
	}
	parent.Children = removeCID(parent.Children, childCID)
	if parent.Sleeping == nil {
		parent.Sleeping = make(map[string]string)
	}
	parent.Sleeping[dataID] = childCID
	child.Asleep = true
}

// Wake moves a hibernated child back into the container's structural
// order, appended at the end; reconciliation's reorder step puts it where
// the data says. Returns the woken child's id, or false if dataID is not
// sleeping in this container.
func (s *Store) Wake(containerCID, dataID string) (string, bool) {
	parent := s.records[containerCID]
	if parent == nil {
		return "", false
	}
	cid, ok := parent.Sleeping[dataID]
	if !ok {
		return "", false
	}
	delete(parent.Sleeping, dataID)
	parent.Children = append(parent.Children, cid)
	if child := s.records[cid]; child != nil {
		child.Asleep = false
	}
	return cid, true
}

// SleepingIDs returns the data ids currently hibernated in a container.
func (s *Store) SleepingIDs(containerCID string) map[string]string {
	rec := s.records[containerCID]
	if rec == nil {
		return nil
	}
	return rec.Sleeping
}

// Move detaches cid from its current container's structural order and
// inserts it into targetCCID's order at position (clamped to append).
func (s *Store) Move(cid, targetCCID string, position int) {
	rec := s.records[cid]
	target := s.records[targetCCID]
	if rec == nil || target == nil {
		return
	}
	if parent := s.records[rec.CCID]; parent != nil {
		parent.Children = removeCID(parent.Children, cid)
	}
	rec.CCID = targetCCID
	if position >= 0 && position < len(target.Children) {
		target.Children = append(target.Children, "")
		copy(target.Children[position+1:], target.Children[position:])
		target.Children[position] = cid
	} else {
		target.Children = append(target.Children, cid)
	}
}

// OrderedCIDs returns all live record ids in structural order, parent
// before child, starting at the root. Sleeping subtrees are excluded.
func (s *Store) OrderedCIDs() []string {
	var out []string
	var walk func(cid string)
	walk = func(cid string) {
		rec := s.records[cid]
		if rec == nil {
			return
		}
		out = append(out, cid)
		for _, child := range rec.Children {
			walk(child)
		}
	}
	if s.root != "" {
		walk(s.root)
	}
	return out
}

// Snapshot serializes the store into its wire form.
func (s *Store) Snapshot() *StoreSnapshot {
	snap := &StoreSnapshot{Root: s.root}
	seen := make(map[string]bool, len(s.records))
	var walk func(cid string)
	walk = func(cid string) {
		rec := s.records[cid]
		if rec == nil || seen[cid] {
			return
		}
		seen[cid] = true
		snap.Records = append(snap.Records, rec)
		for _, child := range rec.Children {
			walk(child)
		}
		// Sleeping is keyed by data id; walk in key order so that two
		// snapshots of the same store encode identically.
		keys := make([]string, 0, len(rec.Sleeping))
		for key := range rec.Sleeping {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			walk(rec.Sleeping[key])
		}
	}
	if s.root != "" {
		walk(s.root)
	}
	return snap
}

// RestoreStore rebuilds a store from a snapshot.
func RestoreStore(snap *StoreSnapshot) *Store {
	s := NewStore()
	if snap == nil {
		return s
	}
	s.root = snap.Root
	for _, rec := range snap.Records {
		if rec.State == nil {
			rec.State = Values{}
		}
		s.records[rec.CID] = rec
	}
	return s
}

func removeCID(list []string, cid string) []string {
	for i, c := range list {
		if c == cid {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
