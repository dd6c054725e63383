// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

const hashPrice = 200

// Hashing digests bytes or str.
var Hashing = &Library{
	Name: "hashing",
	File: "builtin/hashing",
	Funcs: []*Func{
		method("sha256", []string{"data"}, hashPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return vm.Bytes(thor.Sha256(data(env, args, 0)).Bytes())
		}),
		method("sha3_256", []string{"data"}, hashPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return vm.Bytes(thor.Sha3256(data(env, args, 0)).Bytes())
		}),
		method("keccak_256", []string{"data"}, hashPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return vm.Bytes(crypto.Keccak256(data(env, args, 0)))
		}),
	},
}
