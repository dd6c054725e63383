// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"crypto/sha256"
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

// keccakState wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state.
type keccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

type keccak256 struct {
	state keccakState
	b32   Bytes32
}

var keccak256Pool = sync.Pool{
	New: func() any {
		return &keccak256{
			state: sha3.NewLegacyKeccak256().(keccakState),
		}
	},
}

// Keccak256 computes legacy keccak-256 checksum for given data.
func Keccak256(data ...[]byte) (h Bytes32) {
	hasher := keccak256Pool.Get().(*keccak256)

	for _, b := range data {
		hasher.state.Write(b)
	}
	hasher.state.Read(hasher.b32[:])
	h = hasher.b32

	hasher.state.Reset()
	keccak256Pool.Put(hasher)
	return
}

// Sha3256 computes FIPS-202 sha3-256 checksum for given data.
func Sha3256(data ...[]byte) Bytes32 {
	hasher := sha3.New256()
	for _, b := range data {
		hasher.Write(b)
	}
	var h Bytes32
	hasher.Sum(h[:0])
	return h
}

// Sha256 computes sha-256 checksum for given data.
func Sha256(data ...[]byte) Bytes32 {
	hasher := sha256.New()
	for _, b := range data {
		hasher.Write(b)
	}
	var h Bytes32
	hasher.Sum(h[:0])
	return h
}
