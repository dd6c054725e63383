// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket is a key prefix that carves a logical store out of a shared one.
type Bucket string

func (b Bucket) key(key []byte) []byte {
	return append(append(make([]byte, 0, len(b)+len(key)), b...), key...)
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b, src}
}

// NewBulk scopes the writes of bulk to the bucket, so several buckets can
// share one atomic batch.
func (b Bucket) NewBulk(bulk Bulk) Bulk {
	return &bucketBulk{b, bulk}
}

type bucketStore struct {
	b   Bucket
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.b.key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.src.Has(s.b.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, val []byte) error      { return s.src.Put(s.b.key(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.src.Delete(s.b.key(key)) }

func (s *bucketStore) Bulk() Bulk {
	return &bucketBulk{s.b, s.src.Bulk()}
}

func (s *bucketStore) Iterate(r Range) Iterator {
	r.Start = s.b.key(r.Start)
	if len(r.Limit) == 0 {
		r.Limit = PrefixRange([]byte(s.b)).Limit
	} else {
		r.Limit = s.b.key(r.Limit)
	}
	return &bucketIterator{s.src.Iterate(r), len(s.b)}
}

type bucketBulk struct {
	b    Bucket
	bulk Bulk
}

func (bb *bucketBulk) Put(key, val []byte) error { return bb.bulk.Put(bb.b.key(key), val) }
func (bb *bucketBulk) Delete(key []byte) error   { return bb.bulk.Delete(bb.b.key(key)) }
func (bb *bucketBulk) Write() error              { return bb.bulk.Write() }

type bucketIterator struct {
	Iterator
	strip int
}

// Key strips the bucket prefix.
func (it *bucketIterator) Key() []byte { return it.Iterator.Key()[it.strip:] }
