// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

func concat(env *xenv.Environment, args []vm.Value) vm.Value {
	a := env.ArgBytes(args, 0)
	s := env.ArgString(args, 1)
	env.Require(len(a) > 0, "empty prefix")
	return s + string(a)
}

func TestCall(t *testing.T) {
	addr := thor.BytesToAddress([]byte("c"))
	env := xenv.New(addr, "mint", thor.Address{}, nil, nil)
	assert.Equal(t, "mint", env.Method())
	assert.NotNil(t, env.TransactionContext())

	ret, err := env.Call("concat", 2, concat, []vm.Value{vm.Bytes("b"), "a"})
	require.NoError(t, err)
	assert.Equal(t, "ab", ret)

	tests := []struct {
		name string
		args []vm.Value
		kind string
	}{
		{"arity", []vm.Value{vm.Bytes("b")}, vm.KindTypeError},
		{"bytes", []vm.Value{"b", "a"}, vm.KindTypeError},
		{"string", []vm.Value{vm.Bytes("b"), int64(1)}, vm.KindTypeError},
		{"require", []vm.Value{vm.Bytes(""), "a"}, vm.KindValueError},
	}
	for _, tt := range tests {
		_, err := env.Call("concat", 2, concat, tt.args)
		var vmErr *vm.Error
		require.True(t, errors.As(err, &vmErr), tt.name)
		assert.Equal(t, tt.kind, vmErr.Kind, tt.name)
	}
}

func TestStop(t *testing.T) {
	env := xenv.New(thor.Address{}, "f", thor.Address{}, nil, nil)
	stop := errors.New("stopped")
	_, err := env.Call("f", 0, func(env *xenv.Environment, _ []vm.Value) vm.Value {
		env.Stop(stop)
		return nil
	}, nil)
	assert.Equal(t, stop, err)

	// other panics are not swallowed
	assert.Panics(t, func() {
		env.Call("f", 0, func(*xenv.Environment, []vm.Value) vm.Value { panic("boom") }, nil)
	})
}
