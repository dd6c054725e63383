// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
	"github.com/vechain/cvm/vm"
)

func TestTransaction(t *testing.T) {
	trx := tx.New(tx.TypeStart, []byte("msg"), 21000, 1)
	assert.Equal(t, tx.TypeStart, trx.Type())
	assert.Equal(t, []byte("msg"), trx.Message())
	assert.Equal(t, uint64(21000), trx.Gas())
	assert.Equal(t, "start", trx.Type().String())

	data, err := rlp.EncodeToBytes(trx)
	require.NoError(t, err)
	var decoded tx.Transaction
	require.NoError(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, trx.ID(), decoded.ID())

	other := tx.New(tx.TypeStart, []byte("msg"), 21000, 2)
	assert.NotEqual(t, trx.ID(), other.ID())
}

func TestRLPCodec(t *testing.T) {
	var codec tx.RLPCodec
	addr := thor.BytesToAddress([]byte("contract"))

	start := &tx.StartMessage{
		Address: addr,
		Method:  "transfer",
		Args:    []vm.Value{"bob", int64(10)},
		Redeem:  thor.BytesToAddress([]byte("redeem")),
	}
	data, err := codec.EncodeStart(start)
	require.NoError(t, err)
	gotStart, err := codec.DecodeStart(data)
	require.NoError(t, err)
	assert.Equal(t, start, gotStart)

	deploy := &tx.DeployMessage{
		Address:  addr,
		Binary:   []byte{1, 2, 3},
		Storage:  map[vm.Value]vm.Value{"supply": int64(100)},
		Settings: tx.DefaultSettings(),
	}
	data, err = codec.EncodeDeploy(deploy)
	require.NoError(t, err)
	gotDeploy, err := codec.DecodeDeploy(data)
	require.NoError(t, err)
	assert.Equal(t, deploy, gotDeploy)

	conclude := &tx.ConcludeMessage{Address: addr, StartID: thor.Keccak256([]byte("start")), Diff: state.Diff{"a": nil, "b": int64(1)}}
	data, err = codec.EncodeConclude(conclude)
	require.NoError(t, err)
	gotConclude, err := codec.DecodeConclude(data)
	require.NoError(t, err)
	assert.Equal(t, conclude, gotConclude)

	_, err = codec.DecodeStart([]byte{0xff})
	assert.Error(t, err)
}
