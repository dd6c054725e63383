// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv is the ordered key-value abstraction contract histories are
// persisted to.
package kv

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Getter reads keys. Get fails with an error matching IsNotFound for
// absent keys.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter writes keys.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Bulk batches writes. Nothing is visible until Write.
type Bulk interface {
	Putter
	Write() error
}

// Iterator walks pairs in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range selects the keys in [Start, Limit).
type Range struct {
	Start []byte
	Limit []byte // empty means unbounded
}

// PrefixRange returns the range of all keys starting with prefix.
func PrefixRange(prefix []byte) Range {
	r := util.BytesPrefix(prefix)
	return Range{Start: r.Start, Limit: r.Limit}
}

// Store is a readable, writable and iterable kv store.
type Store interface {
	Getter
	Putter

	Bulk() Bulk
	Iterate(r Range) Iterator
}

// PutRLP stores the rlp encoding of val at key.
func PutRLP(w Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, data)
}

// GetRLP decodes the value at key into val.
func GetRLP(r Getter, key []byte, val any) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, val)
}
