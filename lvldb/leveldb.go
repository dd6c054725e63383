// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lvldb backs kv.Store with goleveldb.
package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vechain/cvm/kv"
)

var _ kv.Store = (*LevelDB)(nil)

// Options of a level db instance. Sizes are in MiB.
type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
	// ReadOnly opens an existing database without write access.
	ReadOnly bool
	// Sync flushes every write to disk before returning.
	Sync bool
}

const minCapacity = 16

// LevelDB is a kv.Store on a level db.
type LevelDB struct {
	db  *leveldb.DB
	stg storage.Storage
	wo  *opt.WriteOptions
}

// New opens the database at path, creating it unless opts.ReadOnly is set.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, opts.ReadOnly)
	if err != nil {
		return nil, errors.Wrapf(err, "open level db storage %v", path)
	}
	return open(stg, opts)
}

// NewMem creates a database in memory.
func NewMem() (*LevelDB, error) {
	return open(storage.NewMemStorage(), Options{})
}

func open(stg storage.Storage, opts Options) (*LevelDB, error) {
	opts.CacheSize = max(opts.CacheSize, minCapacity)
	opts.OpenFilesCacheCapacity = max(opts.OpenFilesCacheCapacity, minCapacity)

	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: opts.OpenFilesCacheCapacity,
		BlockCacheCapacity:     opts.CacheSize / 2 * opt.MiB,
		WriteBuffer:            opts.CacheSize / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
		ReadOnly:               opts.ReadOnly,
	})
	if err != nil {
		stg.Close()
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{db: db, stg: stg, wo: &opt.WriteOptions{Sync: opts.Sync}}, nil
}

// IsNotFound reports whether err is the missing key error of Get.
func (ldb *LevelDB) IsNotFound(err error) bool {
	return errors.Cause(err) == leveldb.ErrNotFound
}

func (ldb *LevelDB) Get(key []byte) ([]byte, error) { return ldb.db.Get(key, nil) }
func (ldb *LevelDB) Has(key []byte) (bool, error)   { return ldb.db.Has(key, nil) }
func (ldb *LevelDB) Put(key, val []byte) error      { return ldb.db.Put(key, val, ldb.wo) }
func (ldb *LevelDB) Delete(key []byte) error        { return ldb.db.Delete(key, ldb.wo) }

// Close closes the database and releases its storage lock. Later calls
// fail.
func (ldb *LevelDB) Close() error {
	if err := ldb.db.Close(); err != nil {
		return err
	}
	return ldb.stg.Close()
}

// Bulk starts an atomic batch.
func (ldb *LevelDB) Bulk() kv.Bulk {
	return &batch{ldb, new(leveldb.Batch)}
}

// Iterate walks the keys in r.
func (ldb *LevelDB) Iterate(r kv.Range) kv.Iterator {
	rng := &util.Range{Start: r.Start}
	if len(r.Limit) > 0 {
		rng.Limit = r.Limit
	}
	return ldb.db.NewIterator(rng, nil)
}

type batch struct {
	ldb *LevelDB
	b   *leveldb.Batch
}

func (b *batch) Put(key, val []byte) error {
	b.b.Put(key, val)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Write() error {
	return b.ldb.db.Write(b.b, b.ldb.wo)
}
