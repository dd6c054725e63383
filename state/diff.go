// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/vm"
)

// Diff maps keys to new values. A nil value marks a deletion.
type Diff map[vm.Value]vm.Value

// SortedKeys returns the keys in deterministic order.
func (d Diff) SortedKeys() []vm.Value {
	return sortedKeys(d)
}

type entry struct {
	Key   vm.WireValue
	Value vm.WireValue
}

func encodeMap(m map[vm.Value]vm.Value) ([]byte, error) {
	entries := make([]entry, 0, len(m))
	for _, k := range sortedKeys(m) {
		wk, err := vm.ToWire(k)
		if err != nil {
			return nil, err
		}
		wv, err := vm.ToWire(m[k])
		if err != nil {
			return nil, errors.WithMessagef(err, "value of key %s", vm.Repr(k))
		}
		entries = append(entries, entry{wk, wv})
	}
	return rlp.EncodeToBytes(entries)
}

func decodeMap(data []byte) (map[vm.Value]vm.Value, error) {
	var entries []entry
	if err := rlp.DecodeBytes(data, &entries); err != nil {
		return nil, err
	}
	m := make(map[vm.Value]vm.Value, len(entries))
	for _, e := range entries {
		k, err := vm.FromWire(e.Key)
		if err != nil {
			return nil, err
		}
		if !vm.Hashable(k) {
			return nil, errors.Errorf("unhashable key type '%s'", vm.TypeName(k))
		}
		v, err := vm.FromWire(e.Value)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// EncodeDiff rlp encodes d in key order, so equal diffs encode equally.
func EncodeDiff(d Diff) ([]byte, error) {
	data, err := encodeMap(d)
	return data, errors.Wrap(err, "encode diff")
}

// DecodeDiff decodes a diff produced by EncodeDiff.
func DecodeDiff(data []byte) (Diff, error) {
	m, err := decodeMap(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode diff")
	}
	return Diff(m), nil
}

// EncodeEntries rlp encodes a storage snapshot.
func EncodeEntries(entries map[vm.Value]vm.Value) ([]byte, error) {
	data, err := encodeMap(entries)
	return data, errors.Wrap(err, "encode storage")
}

// DecodeEntries decodes a snapshot produced by EncodeEntries.
func DecodeEntries(data []byte) (map[vm.Value]vm.Value, error) {
	m, err := decodeMap(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode storage")
	}
	return m, nil
}
