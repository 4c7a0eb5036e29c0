package dxvm

import "github.com/dnxscript/dxvm/value"

// LocalStore holds one call frame's positional variable slots plus the
// flag-name aliasing §4.4 step 4 establishes: a local index populated by
// a scene/function's flag initializers also has a name, and reads/writes
// through that name must observe the same slot.
//
// §9's Open Question 5 rejected a map-sized count (deletions produce
// gaps that misalign later index-based accesses) in favor of a dense
// slice with an explicit length; free_local tombstones the slot to
// Undefined rather than compacting, so no later index shifts.
type LocalStore struct {
	slots    []value.Value
	flagName []string // parallel to slots; "" when the slot has no flag alias
}

// newLocalStore returns an empty store ready for a fresh call frame.
func newLocalStore() LocalStore {
	return LocalStore{}
}

// Count reports the number of slots currently allocated.
func (s *LocalStore) Count() int {
	return len(s.slots)
}

// Get returns the value at i, or Undefined if i is out of range (as
// happens when push_var_local reads a slot that no set_var_local has
// grown the store to yet).
func (s *LocalStore) Get(i int) value.Value {
	if i < 0 || i >= len(s.slots) {
		return value.NewUndefined()
	}
	return s.slots[i]
}

// Set assigns slot i, growing the store with Undefined slots as needed
// per §4.3's set_var_local semantics ("if i < count then set; else
// extend up to i-1 then append").
func (s *LocalStore) Set(i int, v value.Value) {
	if i < 0 {
		return
	}
	for len(s.slots) <= i {
		s.slots = append(s.slots, value.NewUndefined())
		s.flagName = append(s.flagName, "")
	}
	s.slots[i] = v
}

// BindFlag records that slot i carries the flag named name, set up by a
// scene/function's flag-initializer pass (§4.4 step 4).
func (s *LocalStore) BindFlag(i int, name string) {
	s.Set(i, s.Get(i))
	s.flagName[i] = name
}

// FlagNameAt returns the flag name bound to slot i, or "" if i carries
// no flag alias. VM.getLocal/setLocal consult this to decide whether a
// local access should route through the VM-level flags map instead of
// this store's own slots — see the doc comment on call.go's getLocal
// for the "cyclic ownership" resolution.
func (s *LocalStore) FlagNameAt(i int) string {
	if i < 0 || i >= len(s.flagName) {
		return ""
	}
	return s.flagName[i]
}

// FlagIndex returns the slot index bound to flag name, or -1.
func (s *LocalStore) FlagIndex(name string) int {
	for i, n := range s.flagName {
		if n == name {
			return i
		}
	}
	return -1
}

// Free tombstones slot i: its value resets to Undefined but the index
// itself, and any flag name bound to it, stays in place so later
// accesses by index never misalign.
func (s *LocalStore) Free(i int) {
	if i < 0 || i >= len(s.slots) {
		return
	}
	s.slots[i] = value.NewUndefined()
}
