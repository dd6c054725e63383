// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"fmt"

	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
)

// TransactionContext transaction context.
type TransactionContext struct {
	ID      thor.Bytes32
	Message vm.Value
}

// argError aborts a capability call with a contract level error.
type argError struct {
	cause error
}

// Environment an env to execute capability functions.
type Environment struct {
	address thor.Address
	method  string
	redeem  thor.Address
	txCtx   *TransactionContext
	storage *state.Storage
}

// New create a new env.
func New(
	address thor.Address,
	method string,
	redeem thor.Address,
	txCtx *TransactionContext,
	storage *state.Storage,
) *Environment {
	if txCtx == nil {
		txCtx = &TransactionContext{}
	}
	return &Environment{
		address: address,
		method:  method,
		redeem:  redeem,
		txCtx:   txCtx,
		storage: storage,
	}
}

func (env *Environment) Address() thor.Address                   { return env.address }
func (env *Environment) Method() string                          { return env.method }
func (env *Environment) Redeem() thor.Address                    { return env.redeem }
func (env *Environment) TransactionContext() *TransactionContext { return env.txCtx }
func (env *Environment) Storage() *state.Storage                 { return env.storage }

// Require aborts the call with a ValueError when cond does not hold.
func (env *Environment) Require(cond bool, format string, args ...any) {
	if !cond {
		panic(&argError{vm.Errorf(vm.KindValueError, format, args...)})
	}
}

// Stop aborts the call with err.
func (env *Environment) Stop(err error) {
	panic(&argError{err})
}

// ArgBytes returns the i-th argument as bytes.
func (env *Environment) ArgBytes(args []vm.Value, i int) []byte {
	b, ok := args[i].(vm.Bytes)
	if !ok {
		panic(&argError{vm.Errorf(vm.KindTypeError, "argument %d must be bytes, not '%s'", i+1, vm.TypeName(args[i]))})
	}
	return []byte(b)
}

// ArgString returns the i-th argument as a string.
func (env *Environment) ArgString(args []vm.Value, i int) string {
	s, ok := args[i].(string)
	if !ok {
		panic(&argError{vm.Errorf(vm.KindTypeError, "argument %d must be str, not '%s'", i+1, vm.TypeName(args[i]))})
	}
	return s
}

// Call runs proc with args, converting aborts raised through the env into
// errors. nparams is the exact number of arguments proc expects.
func (env *Environment) Call(name string, nparams int, proc func(env *Environment, args []vm.Value) vm.Value, args []vm.Value) (ret vm.Value, err error) {
	if len(args) != nparams {
		return nil, vm.Errorf(vm.KindTypeError, "%s() takes %d arguments but %d were given", name, nparams, len(args))
	}
	defer func() {
		if e := recover(); e != nil {
			if rec, ok := e.(*argError); ok {
				err = rec.cause
			} else {
				panic(e)
			}
		}
	}()
	return proc(env, args), nil
}

// String implements fmt.Stringer.
func (env *Environment) String() string {
	return fmt.Sprintf("env(%v.%s)", env.address, env.method)
}
