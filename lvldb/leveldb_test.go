// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/kv"
	"github.com/vechain/cvm/lvldb"
)

func TestLevelDB(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("missing"))
	assert.True(t, db.IsNotFound(err))

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	bulk := db.Bulk()
	require.NoError(t, bulk.Put([]byte("a"), []byte("1")))
	require.NoError(t, bulk.Delete([]byte("k")))
	// nothing visible before write
	has, _ = db.Has([]byte("a"))
	assert.False(t, has)
	require.NoError(t, bulk.Write())

	v, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	has, _ = db.Has([]byte("k"))
	assert.False(t, has)
}

func TestBucketIterate(t *testing.T) {
	db, err := lvldb.New(filepath.Join(t.TempDir(), "db"), lvldb.Options{})
	require.NoError(t, err)
	defer db.Close()

	b1 := kv.Bucket("x").NewStore(db)
	b2 := kv.Bucket("y").NewStore(db)
	for _, k := range []string{"3", "1", "2"} {
		require.NoError(t, b1.Put([]byte(k), []byte("b1"+k)))
	}
	require.NoError(t, b2.Put([]byte("0"), []byte("b2")))

	it := b1.Iterate(kv.Range{})
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		assert.Equal(t, "b1"+string(it.Key()), string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"1", "2", "3"}, keys)

	it2 := b1.Iterate(kv.Range{Start: []byte("2"), Limit: []byte("3")})
	defer it2.Release()
	require.True(t, it2.Next())
	assert.Equal(t, "2", string(it2.Key()))
	assert.False(t, it2.Next())
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	for i := 0; i < 3; i++ {
		db, err := lvldb.New(path, lvldb.Options{})
		require.NoError(t, err, "open %d", i)
		require.NoError(t, db.Put([]byte{byte(i)}, []byte("v")))
		require.NoError(t, db.Close())
		assert.Error(t, db.Close())
	}

	ro, err := lvldb.New(path, lvldb.Options{ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()
	ok, err := ro.Has([]byte{2})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := lvldb.New(path, lvldb.Options{Sync: true})
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	ro, err := lvldb.New(path, lvldb.Options{ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()
	v, err := ro.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	assert.Error(t, ro.Put([]byte("k"), []byte("w")))

	_, err = lvldb.New(filepath.Join(t.TempDir(), "missing"), lvldb.Options{ReadOnly: true})
	assert.Error(t, err)
}
