// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/vm"
)

func TestMapOrder(t *testing.T) {
	m := vm.NewMap()
	require.NoError(t, m.Set("b", int64(1)))
	require.NoError(t, m.Set("a", int64(2)))
	require.NoError(t, m.Set(vm.Bytes("a"), int64(3)))
	require.NoError(t, m.Set("b", int64(4)))
	assert.Equal(t, `{"b": 4, "a": 2, 0x61: 3}`, vm.Repr(m))

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	v, ok := m.Get(vm.Bytes("a"))
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	assert.Error(t, m.Set(vm.NewList(), int64(1)))
}

func TestEqualAndSort(t *testing.T) {
	a := vm.NewList(int64(1), "x", vm.NewList(vm.Bytes("z")))
	b := vm.NewList(int64(1), "x", vm.NewList(vm.Bytes("z")))
	assert.True(t, vm.Equal(a, b))
	b.Items[2].(*vm.List).Items[0] = "z"
	assert.False(t, vm.Equal(a, b))

	vals := []vm.Value{"b", int64(3), "a", int64(-1), true}
	vm.SortValues(vals)
	assert.Equal(t, []vm.Value{true, int64(-1), int64(3), "a", "b"}, vals)

	_, err := vm.Compare(int64(1), "1")
	assert.Error(t, err)
}

func TestValueCodec(t *testing.T) {
	m := vm.NewMap()
	m.Set("owner", vm.Bytes("\x01\x02"))
	m.Set(int64(-5), vm.NewList(nil, true, false, int64(1<<40), "s"))

	data, err := vm.EncodeValue(m)
	require.NoError(t, err)
	decoded, err := vm.DecodeValue(data)
	require.NoError(t, err)
	assert.True(t, vm.Equal(m, decoded))
	assert.Equal(t, vm.Repr(m), vm.Repr(decoded))

	_, err = vm.EncodeValue(&vm.Native{Name: "len"})
	assert.Error(t, err)

	_, err = vm.DecodeValue([]byte{0xff})
	assert.Error(t, err)

	args, err := vm.EncodeValues([]vm.Value{int64(1), "two"})
	require.NoError(t, err)
	vals, err := vm.DecodeValues(args)
	require.NoError(t, err)
	assert.Equal(t, []vm.Value{int64(1), "two"}, vals)
}

func TestJSON(t *testing.T) {
	v, err := vm.UnmarshalJSON([]byte(`{"z": [1, "a", null], "a": {"ok": true}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"ok": true}, "z": [1, "a", nil]}`, vm.Repr(v))

	data, err := vm.MarshalJSON(vm.NewList(vm.Bytes("\xab"), int64(7)))
	require.NoError(t, err)
	assert.Equal(t, `["0xab",7]`, string(data))

	_, err = vm.UnmarshalJSON([]byte(`1.5`))
	assert.True(t, vm.IsKind(err, vm.KindValueError))

	v, err = vm.UnmarshalJSON([]byte(" [1] \n"))
	require.NoError(t, err)
	assert.Equal(t, `[1]`, vm.Repr(v))
	for _, text := range []string{`0xzz`, `1 2`, `{"a": 1}}`, `[1] x`} {
		_, err = vm.UnmarshalJSON([]byte(text))
		assert.True(t, vm.IsKind(err, vm.KindValueError), text)
	}

	bad := vm.NewMap()
	bad.Set(int64(1), int64(1))
	_, err = vm.MarshalJSON(bad)
	assert.True(t, vm.IsKind(err, vm.KindTypeError))
}
