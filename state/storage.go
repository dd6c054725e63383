// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
)

// Storage is the key value state of one contract during an invocation.
// All keys share one type and no stored value is nil. It is exclusive to a
// single invocation and not safe for concurrent use.
type Storage struct {
	addr    thor.Address
	entries map[vm.Value]vm.Value
	keyType string
	version uint64
}

// New creates a storage seeded with entries.
func New(addr thor.Address, entries map[vm.Value]vm.Value) (*Storage, error) {
	s := &Storage{
		addr:    addr,
		entries: make(map[vm.Value]vm.Value, len(entries)),
	}
	for k, v := range entries {
		if err := s.Set(k, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Address returns the owner contract address.
func (s *Storage) Address() thor.Address { return s.addr }

// Version returns the number of non-empty diffs merged so far.
func (s *Storage) Version() uint64 { return s.version }

// Len returns the number of entries.
func (s *Storage) Len() int { return len(s.entries) }

// Get returns the value of key.
func (s *Storage) Get(key vm.Value) (vm.Value, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Storage) Has(key vm.Value) bool {
	_, ok := s.entries[key]
	return ok
}

// checkKey validates key against the key type of the storage. keyType is
// fixed by the first key and released when the storage becomes empty.
func (s *Storage) checkKey(key vm.Value) error {
	if !vm.Hashable(key) {
		return invariantErrorf(s.addr, "unhashable key type '%s'", vm.TypeName(key))
	}
	if t := vm.TypeName(key); s.keyType != "" && len(s.entries) > 0 && t != s.keyType {
		return invariantErrorf(s.addr, "key %s of type '%s' mixed with keys of type '%s'", vm.Repr(key), t, s.keyType)
	}
	return nil
}

// Set stores value under key.
func (s *Storage) Set(key, value vm.Value) error {
	if value == nil {
		return invariantErrorf(s.addr, "nil value for key %s", vm.Repr(key))
	}
	if err := s.checkKey(key); err != nil {
		return err
	}
	s.keyType = vm.TypeName(key)
	s.entries[key] = value
	return nil
}

// Delete removes key and reports whether it was present.
func (s *Storage) Delete(key vm.Value) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Keys returns the keys in sorted order.
func (s *Storage) Keys() []vm.Value {
	keys := make([]vm.Value, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	vm.SortValues(keys)
	return keys
}

// Entries returns a deep copy of the entries.
func (s *Storage) Entries() map[vm.Value]vm.Value {
	out := make(map[vm.Value]vm.Value, len(s.entries))
	for k, v := range s.entries {
		out[k] = clone(v)
	}
	return out
}

// Copy returns a deep copy sharing nothing with s.
func (s *Storage) Copy() *Storage {
	return &Storage{
		addr:    s.addr,
		entries: s.Entries(),
		keyType: s.keyType,
		version: s.version,
	}
}

// MergeDiff applies diff: nil values delete, others upsert. An empty diff
// leaves the storage and its version untouched.
func (s *Storage) MergeDiff(diff Diff) error {
	if len(diff) == 0 {
		return nil
	}
	// validate first so a failed merge changes nothing
	keyType := s.keyType
	if len(s.entries) == 0 {
		keyType = ""
	}
	for _, k := range diff.SortedKeys() {
		if !vm.Hashable(k) {
			return invariantErrorf(s.addr, "unhashable key type '%s'", vm.TypeName(k))
		}
		if keyType == "" {
			keyType = vm.TypeName(k)
		} else if t := vm.TypeName(k); t != keyType {
			return invariantErrorf(s.addr, "key %s of type '%s' mixed with keys of type '%s'", vm.Repr(k), t, keyType)
		}
	}
	for k, v := range diff {
		if v == nil {
			delete(s.entries, k)
		} else {
			s.entries[k] = clone(v)
		}
	}
	s.keyType = keyType
	s.version++
	return nil
}

// ExportDiff computes the changes that turn baseline into s: changed and
// inserted keys map to their new values, deleted keys map to nil.
func (s *Storage) ExportDiff(baseline *Storage) (Diff, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := baseline.validate(); err != nil {
		return nil, err
	}
	if len(s.entries) > 0 && len(baseline.entries) > 0 && s.keyType != baseline.keyType {
		return nil, invariantErrorf(s.addr, "key type '%s' differs from baseline key type '%s'", s.keyType, baseline.keyType)
	}

	diff := make(Diff)
	for k, v := range s.entries {
		if old, ok := baseline.entries[k]; !ok || !vm.Equal(old, v) {
			diff[k] = clone(v)
		}
	}
	for k := range baseline.entries {
		if _, ok := s.entries[k]; !ok {
			diff[k] = nil
		}
	}
	return diff, nil
}

// validate re-checks the invariants over all entries.
func (s *Storage) validate() error {
	keyType := ""
	for _, k := range sortedKeys(s.entries) {
		if s.entries[k] == nil {
			return invariantErrorf(s.addr, "nil value for key %s", vm.Repr(k))
		}
		t := vm.TypeName(k)
		if keyType == "" {
			keyType = t
		} else if t != keyType {
			return invariantErrorf(s.addr, "key %s of type '%s' mixed with keys of type '%s'", vm.Repr(k), t, keyType)
		}
	}
	return nil
}

func sortedKeys(m map[vm.Value]vm.Value) []vm.Value {
	keys := make([]vm.Value, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	vm.SortValues(keys)
	return keys
}

// clone deep copies mutable containers.
func clone(v vm.Value) vm.Value {
	switch v := v.(type) {
	case *vm.List:
		items := make([]vm.Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = clone(item)
		}
		return vm.NewList(items...)
	case *vm.Map:
		m := vm.NewMap()
		v.Range(func(k, val vm.Value) bool {
			m.Set(k, clone(val))
			return true
		})
		return m
	}
	return v
}
