// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

const convertPrice = 10

// Convert translates between values and their hex, json and rlp forms.
var Convert = &Library{
	Name: "convert",
	File: "builtin/convert",
	Funcs: []*Func{
		method("binary2hexstr", []string{"data"}, convertPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			return hexutil.Encode(env.ArgBytes(args, 0))
		}),
		method("hexstr2binary", []string{"hexstr"}, convertPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			s := env.ArgString(args, 0)
			if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
				s = "0x" + s
			}
			b, err := hexutil.Decode(s)
			if err != nil {
				env.Stop(vm.Errorf(vm.KindValueError, "invalid hex string: %v", err))
			}
			return vm.Bytes(b)
		}),
		method("obj2json", []string{"obj"}, convertPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			b, err := vm.MarshalJSON(args[0])
			if err != nil {
				env.Stop(err)
			}
			return string(b)
		}),
		method("json2obj", []string{"text"}, convertPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			v, err := vm.UnmarshalJSON(data(env, args, 0))
			if err != nil {
				env.Stop(err)
			}
			return v
		}),
		method("obj2rlp", []string{"obj"}, convertPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			b, err := vm.EncodeValue(args[0])
			if err != nil {
				env.Stop(vm.Errorf(vm.KindTypeError, "%v", err))
			}
			return vm.Bytes(b)
		}),
		method("rlp2obj", []string{"data"}, convertPrice, func(env *xenv.Environment, args []vm.Value) vm.Value {
			v, err := vm.DecodeValue(env.ArgBytes(args, 0))
			if err != nil {
				env.Stop(vm.Errorf(vm.KindValueError, "%v", err))
			}
			return v
		}),
	},
}
