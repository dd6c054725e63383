// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

// Statement gives contracts access to their storage and invocation context.
var Statement = &Library{
	Name: "statement",
	File: "builtin/statement",
	Funcs: []*Func{
		method("storage_get", []string{"key"}, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			v, _ := storage(env).Get(args[0])
			return v
		}),
		method("storage_set", []string{"key", "value"}, 200, func(env *xenv.Environment, args []vm.Value) vm.Value {
			if err := storage(env).Set(args[0], args[1]); err != nil {
				env.Stop(vm.Errorf(vm.KindValueError, "%v", err))
			}
			return nil
		}),
		method("storage_del", []string{"key"}, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return storage(env).Delete(args[0])
		}),
		method("storage_has", []string{"key"}, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return storage(env).Has(args[0])
		}),
		method("storage_keys", nil, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return vm.NewList(storage(env).Keys()...)
		}),
		method("get_tx_message_data", nil, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return env.TransactionContext().Message
		}),
		method("contract_address", nil, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return env.Address().String()
		}),
		method("redeem_address", nil, 100, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return env.Redeem().String()
		}),
	},
}

func storage(env *xenv.Environment) *state.Storage {
	s := env.Storage()
	env.Require(s != nil, "contract storage is not available")
	return s
}
