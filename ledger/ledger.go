// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger is the contract registry of a node. Every contract keeps an
// append-only history of init, update and conclude records; the current
// binary and storage are obtained by replaying it.
package ledger

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/cache"
	"github.com/vechain/cvm/kv"
	"github.com/vechain/cvm/log"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
)

var logger = log.WithContext("pkg", "ledger")

// Errors of registry updates.
var (
	ErrDeployed     = errors.New("contract already deployed")
	ErrNotDeployed  = errors.New("contract not deployed")
	ErrUpdateLocked = errors.New("contract binary is locked")
)

const defaultCacheSize = 256

// Ledger stores contract histories in a kv store.
type Ledger struct {
	db      kv.Store
	records kv.Store
	heads   kv.Store
	cache   *cache.LRU // address => *Contract at head
	mu      sync.Mutex // serializes writes
}

// New creates a ledger over db. cacheSize <= 0 selects the default.
func New(db kv.Store, cacheSize int) (*Ledger, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := cache.NewLRU(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		db:      db,
		records: kv.Bucket(recordStoreName).NewStore(db),
		heads:   kv.Bucket(headStoreName).NewStore(db),
		cache:   c,
	}, nil
}

// CacheStats returns the hit and miss counts of the contract cache.
func (l *Ledger) CacheStats() (hit, miss int64) {
	_, hit, miss = l.cache.Stats().Stats()
	return
}

func (l *Ledger) length(addr thor.Address) (uint64, error) {
	data, err := l.heads.Get(addr[:])
	if err != nil {
		if l.heads.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Errorf("corrupted head of %v", addr)
	}
	return binary.BigEndian.Uint64(data), nil
}

// replay materializes addr from at most limit records (0 for all), stopping
// before the record finished by stopHash.
func (l *Ledger) replay(addr thor.Address, limit uint64, stopHash thor.Bytes32) (*Contract, error) {
	records, err := loadRecords(l.records, addr, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "load history of %v", addr)
	}
	c := newContract(addr)
	for _, r := range records {
		if !stopHash.IsZero() && r.FinishHash == stopHash {
			break
		}
		if err := c.apply(r); err != nil {
			return nil, errors.WithMessagef(err, "replay %v record %d", addr, c.Index+1)
		}
	}
	return c, nil
}

func (l *Ledger) head(addr thor.Address) (*Contract, error) {
	v, err := l.cache.GetOrLoad(addr, func(any) (any, error) {
		return l.replay(addr, 0, thor.Bytes32{})
	})
	if err != nil {
		return nil, err
	}
	return v.(*Contract), nil
}

// Contract returns a copy of the contract at the head of its history. A
// contract never deployed has Index -1.
func (l *Ledger) Contract(addr thor.Address) (*Contract, error) {
	c, err := l.head(addr)
	if err != nil {
		return nil, err
	}
	return c.Copy(), nil
}

// ReadContractStorage returns the storage of addr after replaying at most
// cursor records (0 for the whole history), stopping before the record
// finished by stopHash.
func (l *Ledger) ReadContractStorage(addr thor.Address, cursor uint64, stopHash thor.Bytes32) (*state.Storage, error) {
	var (
		c   *Contract
		err error
	)
	if cursor == 0 && stopHash.IsZero() {
		c, err = l.head(addr)
	} else {
		c, err = l.replay(addr, cursor, stopHash)
	}
	if err != nil {
		return nil, err
	}
	if !c.Deployed() {
		return nil, errors.Wrapf(ErrNotDeployed, "contract %v", addr)
	}
	return c.Storage.Copy(), nil
}

// ReadContractBinary returns the current binary of addr.
func (l *Ledger) ReadContractBinary(addr thor.Address) ([]byte, error) {
	c, err := l.head(addr)
	if err != nil {
		return nil, err
	}
	if !c.Deployed() {
		return nil, errors.Wrapf(ErrNotDeployed, "contract %v", addr)
	}
	return append([]byte(nil), c.Binary...), nil
}

// append validates r against the head of addr, then persists it.
func (l *Ledger) append(addr thor.Address, r *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	head, err := l.head(addr)
	if err != nil {
		return err
	}
	next := head.Copy()
	if err := next.apply(r); err != nil {
		return err
	}

	n, err := l.length(addr)
	if err != nil {
		return err
	}
	key := makeRecordKey(addr, n)
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], n+1)

	// record and head land in one batch
	bulk := l.db.Bulk()
	if err := kv.PutRLP(kv.Bucket(recordStoreName).NewBulk(bulk), key[:], r); err != nil {
		return err
	}
	if err := kv.Bucket(headStoreName).NewBulk(bulk).Put(addr[:], length[:]); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return err
	}
	l.cache.Add(addr, next)
	logger.Debug("record appended", "contract", addr, "kind", r.Kind, "index", next.Index)
	return nil
}

// Deploy initializes a contract from a deploy tx.
func (l *Ledger) Deploy(txID thor.Bytes32, m *tx.DeployMessage) error {
	storage, err := state.EncodeEntries(m.Storage)
	if err != nil {
		return err
	}
	return l.append(m.Address, &Record{
		Kind:       RecordInit,
		StartHash:  txID,
		FinishHash: txID,
		Binary:     m.Binary,
		Settings:   m.Settings,
		Storage:    storage,
	})
}

// Update replaces the binary of a contract, unless an earlier update locked
// it.
func (l *Ledger) Update(txID thor.Bytes32, m *tx.UpdateMessage) error {
	return l.append(m.Address, &Record{
		Kind:       RecordUpdate,
		StartHash:  txID,
		FinishHash: txID,
		Binary:     m.Binary,
		Settings:   m.Settings,
	})
}

// Conclude merges the storage diff produced by the start tx startID. The
// record is finished by finishID.
func (l *Ledger) Conclude(startID, finishID thor.Bytes32, addr thor.Address, diff state.Diff) error {
	data, err := state.EncodeDiff(diff)
	if err != nil {
		return err
	}
	return l.append(addr, &Record{
		Kind:       RecordConclude,
		StartHash:  startID,
		FinishHash: finishID,
		Storage:    data,
	})
}
