// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/cvm/kv"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
)

const (
	recordStoreName = "ledger.record"
	headStoreName   = "ledger.head"
)

// RecordKind is the kind of a history record.
type RecordKind uint8

// Record kinds.
const (
	RecordInit RecordKind = iota + 1
	RecordUpdate
	RecordConclude
)

func (k RecordKind) String() string {
	switch k {
	case RecordInit:
		return "init"
	case RecordUpdate:
		return "update"
	case RecordConclude:
		return "conclude"
	}
	return "unknown"
}

// Record is one applied entry in the history of a contract.
type Record struct {
	Kind       RecordKind
	StartHash  thor.Bytes32
	FinishHash thor.Bytes32
	Binary     []byte      // init and update
	Settings   tx.Settings // init and update
	Storage    []byte      // snapshot on init, diff on conclude
}

// the key of a record.
// it consists of: ( address | index )
type recordKey [thor.AddressLength + 8]byte

func makeRecordKey(addr thor.Address, index uint64) (k recordKey) {
	copy(k[:], addr[:])
	binary.BigEndian.PutUint64(k[thor.AddressLength:], index)
	return
}

// loadRecords reads the history of addr in order. At most limit records are
// read when limit > 0.
func loadRecords(store kv.Store, addr thor.Address, limit uint64) ([]*Record, error) {
	it := store.Iterate(kv.PrefixRange(addr[:]))
	defer it.Release()

	var records []*Record
	for it.Next() {
		if limit > 0 && uint64(len(records)) >= limit {
			break
		}
		var r Record
		if err := rlp.DecodeBytes(it.Value(), &r); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, it.Error()
}
