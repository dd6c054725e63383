// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package worker

import (
	"github.com/vechain/cvm/thor"
)

// Metering modes.
const (
	MeterTrace  uint8 = iota // gas is counted by the parent from trace pauses
	MeterOpcode              // gas is counted by the worker per instruction
)

// Request is everything a worker needs for one invocation. Values cross the
// process boundary only in encoded form.
type Request struct {
	ID        string
	Address   thor.Address
	Method    string
	Args      []byte // vm.EncodeValues
	Binary    []byte // packer binary
	Storage   []byte // state.EncodeEntries of the baseline
	TxID      thor.Bytes32
	TxMessage []byte // vm.EncodeValue
	Redeem    thor.Address
	Metering  uint8
	GasLimit  uint64 // opcode metering only
	MaxDepth  uint64
}
