// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

// Signature checks secp256k1 signatures and derives addresses.
var Signature = &Library{
	Name: "signature",
	File: "builtin/signature",
	Funcs: []*Func{
		method("verify", []string{"hash", "sig", "pubkey"}, 10000, func(env *xenv.Environment, args []vm.Value) vm.Value {
			hash := env.ArgBytes(args, 0)
			env.Require(len(hash) == 32, "hash must be 32 bytes, got %d", len(hash))
			pub, err := secp256k1.ParsePubKey(env.ArgBytes(args, 2))
			if err != nil {
				env.Stop(vm.Errorf(vm.KindValueError, "invalid public key: %v", err))
			}
			sig, err := parseSignature(env.ArgBytes(args, 1))
			if err != nil {
				return false
			}
			return sig.Verify(hash, pub)
		}),
		method("pk2ck", []string{"pubkey"}, 500, func(env *xenv.Environment, args []vm.Value) vm.Value {
			pub, err := secp256k1.ParsePubKey(env.ArgBytes(args, 0))
			if err != nil {
				env.Stop(vm.Errorf(vm.KindValueError, "invalid public key: %v", err))
			}
			return pubkeyToAddress(pub).String()
		}),
	},
}

// parseSignature accepts the 65 byte [R || S || V] form produced by
// go-ethereum, its 64 byte prefix, or DER.
func parseSignature(b []byte) (*ecdsa.Signature, error) {
	if len(b) != 64 && len(b) != 65 {
		return ecdsa.ParseDERSignature(b)
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(b[:32]); overflow || r.IsZero() {
		return nil, errInvalidSig
	}
	if overflow := s.SetByteSlice(b[32:64]); overflow || s.IsZero() {
		return nil, errInvalidSig
	}
	return ecdsa.NewSignature(&r, &s), nil
}

var errInvalidSig = vm.Errorf(vm.KindValueError, "invalid signature")

func pubkeyToAddress(pub *secp256k1.PublicKey) thor.Address {
	raw := pub.SerializeUncompressed()
	return thor.BytesToAddress(crypto.Keccak256(raw[1:])[12:])
}
