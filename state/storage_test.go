// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state_test

import (
	"errors"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
)

var addr = thor.BytesToAddress([]byte("contract"))

func isInvariant(err error) bool {
	var ierr *state.InvariantError
	return errors.As(err, &ierr)
}

func TestNew(t *testing.T) {
	_, err := state.New(addr, map[vm.Value]vm.Value{"a": nil})
	assert.True(t, isInvariant(err))

	_, err = state.New(addr, map[vm.Value]vm.Value{"a": int64(1), int64(2): int64(2)})
	assert.True(t, isInvariant(err))

	s, err := state.New(addr, map[vm.Value]vm.Value{"b": int64(1), "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, addr, s.Address())
	assert.Equal(t, []vm.Value{"a", "b"}, s.Keys())
	assert.Equal(t, uint64(0), s.Version())

	assert.True(t, isInvariant(s.Set(int64(1), int64(1))))
	assert.True(t, isInvariant(s.Set("c", nil)))
	assert.True(t, isInvariant(s.Set(vm.NewList(), int64(1))))
	assert.Equal(t, 2, s.Len())

	// the key type is released once the storage is empty
	assert.True(t, s.Delete("a"))
	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.NoError(t, s.Set(int64(1), "one"))
}

func TestMergeDiff(t *testing.T) {
	s, err := state.New(addr, map[vm.Value]vm.Value{"a": int64(1), "b": int64(2)})
	require.NoError(t, err)

	require.NoError(t, s.MergeDiff(nil))
	require.NoError(t, s.MergeDiff(state.Diff{}))
	assert.Equal(t, uint64(0), s.Version())

	require.NoError(t, s.MergeDiff(state.Diff{"a": nil, "c": int64(3), "b": int64(20)}))
	assert.Equal(t, uint64(1), s.Version())
	assert.False(t, s.Has("a"))
	v, _ := s.Get("b")
	assert.Equal(t, int64(20), v)
	v, _ = s.Get("c")
	assert.Equal(t, int64(3), v)

	err = s.MergeDiff(state.Diff{int64(1): int64(1)})
	assert.True(t, isInvariant(err))
	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, 2, s.Len())
}

func TestExportDiff(t *testing.T) {
	base, err := state.New(addr, map[vm.Value]vm.Value{
		"keep":   int64(1),
		"change": vm.NewList(int64(1)),
		"drop":   "x",
	})
	require.NoError(t, err)

	diff, err := base.ExportDiff(base)
	require.NoError(t, err)
	assert.Empty(t, diff)

	cur := base.Copy()
	v, _ := cur.Get("change")
	v.(*vm.List).Items = append(v.(*vm.List).Items, int64(2))
	cur.Delete("drop")
	require.NoError(t, cur.Set("new", true))

	// the copy shares nothing with the baseline
	v, _ = base.Get("change")
	assert.Len(t, v.(*vm.List).Items, 1)

	diff, err = cur.ExportDiff(base)
	require.NoError(t, err)
	assert.Equal(t, []vm.Value{"change", "drop", "new"}, diff.SortedKeys())
	assert.Nil(t, diff["drop"])
	assert.Equal(t, true, diff["new"])

	other, err := state.New(addr, map[vm.Value]vm.Value{int64(1): int64(1)})
	require.NoError(t, err)
	_, err = other.ExportDiff(base)
	assert.True(t, isInvariant(err))

	require.NoError(t, base.MergeDiff(diff))
	assert.Equal(t, vm.Repr(toMap(cur)), vm.Repr(toMap(base)))
}

func toMap(s *state.Storage) *vm.Map {
	m := vm.NewMap()
	entries := s.Entries()
	for _, k := range s.Keys() {
		m.Set(k, entries[k])
	}
	return m
}

func TestDiffMergeDuality(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 16)
	for i := 0; i < 50; i++ {
		var before, after map[string]int64
		f.Fuzz(&before)
		f.Fuzz(&after)
		// overlap the key sets so updates and deletions both occur
		for k, v := range before {
			if v%2 == 0 {
				after[k] = v + 1
			}
		}

		base, err := state.New(addr, entriesOf(before))
		require.NoError(t, err)
		cur, err := state.New(addr, entriesOf(after))
		require.NoError(t, err)

		diff, err := cur.ExportDiff(base)
		require.NoError(t, err)

		merged := base.Copy()
		require.NoError(t, merged.MergeDiff(diff))
		assert.Equal(t, vm.Repr(toMap(cur)), vm.Repr(toMap(merged)))
		if len(diff) == 0 {
			assert.Equal(t, uint64(0), merged.Version())
		} else {
			assert.Equal(t, uint64(1), merged.Version())
		}

		data, err := state.EncodeDiff(diff)
		require.NoError(t, err)
		decoded, err := state.DecodeDiff(data)
		require.NoError(t, err)
		assert.Equal(t, len(diff), len(decoded))
		for k, v := range diff {
			assert.True(t, vm.Equal(v, decoded[k]))
		}
	}
}

func entriesOf(m map[string]int64) map[vm.Value]vm.Value {
	out := make(map[vm.Value]vm.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func TestEntriesCodec(t *testing.T) {
	entries := map[vm.Value]vm.Value{
		vm.Bytes("k1"): vm.NewList("a", int64(1)),
		vm.Bytes("k2"): vm.Bytes("\x00"),
	}
	data, err := state.EncodeEntries(entries)
	require.NoError(t, err)
	again, err := state.EncodeEntries(entries)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := state.DecodeEntries(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.True(t, vm.Equal(entries[vm.Bytes("k1")], decoded[vm.Bytes("k1")]))

	_, err = state.EncodeEntries(map[vm.Value]vm.Value{"f": &vm.Native{Name: "len"}})
	assert.Error(t, err)
}
