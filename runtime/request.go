// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/pkg/errors"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
	"github.com/vechain/cvm/vm"
)

// StorageReader supplies the baseline storage of a contract.
type StorageReader interface {
	ReadContractStorage(addr thor.Address, cursor uint64, stopHash thor.Bytes32) (*state.Storage, error)
}

// ContractReader supplies the binary and baseline storage of a contract.
type ContractReader interface {
	StorageReader
	ReadContractBinary(addr thor.Address) ([]byte, error)
}

// Concluder applies the storage diff of a finished invocation.
type Concluder interface {
	Conclude(startID, finishID thor.Bytes32, addr thor.Address, diff state.Diff) error
}

// ExecutionRequest is a single contract invocation. It is consumed once.
type ExecutionRequest struct {
	Address   thor.Address
	Method    string
	Args      []vm.Value
	Binary    []byte
	Storage   *state.Storage // baseline, nil for empty
	TxID      thor.Bytes32
	TxMessage vm.Value
	Redeem    thor.Address
}

// NewRequest builds the request of a start tx. The binary and the baseline
// storage are read from the head of the contract history.
func NewRequest(trx *tx.Transaction, codec tx.Codec, reader ContractReader) (*ExecutionRequest, error) {
	if trx.Type() != tx.TypeStart {
		return nil, errors.Errorf("tx %v is a %v tx, not start", trx.ID(), trx.Type())
	}
	msg, err := codec.DecodeStart(trx.Message())
	if err != nil {
		return nil, err
	}
	bin, err := reader.ReadContractBinary(msg.Address)
	if err != nil {
		return nil, errors.WithMessage(err, "read contract binary")
	}
	storage, err := reader.ReadContractStorage(msg.Address, 0, thor.Bytes32{})
	if err != nil {
		return nil, errors.WithMessage(err, "read contract storage")
	}
	return &ExecutionRequest{
		Address:   msg.Address,
		Method:    msg.Method,
		Args:      msg.Args,
		Binary:    bin,
		Storage:   storage,
		TxID:      trx.ID(),
		TxMessage: vm.Bytes(trx.Message()),
		Redeem:    msg.Redeem,
	}, nil
}

// Conclude applies the diff of a successful result through c and returns the
// conclude tx that records it.
func Conclude(c Concluder, req *ExecutionRequest, res *Result) (*tx.Transaction, error) {
	if !res.OK {
		return nil, errors.New("cannot conclude a failed execution")
	}
	data, err := tx.RLPCodec{}.EncodeConclude(&tx.ConcludeMessage{
		Address: req.Address,
		StartID: req.TxID,
		Diff:    res.Diff,
	})
	if err != nil {
		return nil, err
	}
	trx := tx.New(tx.TypeConclude, data, res.GasUsed, 0)
	if err := c.Conclude(req.TxID, trx.ID(), req.Address, res.Diff); err != nil {
		return nil, err
	}
	return trx, nil
}
