// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
)

// Settings control what later update transactions may change.
type Settings struct {
	UpdateBinary bool
}

// DefaultSettings allows updates.
func DefaultSettings() Settings {
	return Settings{UpdateBinary: true}
}

// StartMessage invokes a method of a deployed contract.
type StartMessage struct {
	Address thor.Address
	Method  string
	Args    []vm.Value
	Redeem  thor.Address
}

// DeployMessage installs a contract with its initial storage.
type DeployMessage struct {
	Address  thor.Address
	Binary   []byte
	Storage  map[vm.Value]vm.Value
	Settings Settings
}

// UpdateMessage replaces the binary of a deployed contract.
type UpdateMessage struct {
	Address  thor.Address
	Binary   []byte
	Settings Settings
}

// ConcludeMessage carries the storage diff of a finished start tx.
type ConcludeMessage struct {
	Address thor.Address
	StartID thor.Bytes32
	Diff    state.Diff
}

// Codec decodes the opaque message payloads of contract transactions.
type Codec interface {
	DecodeStart(msg []byte) (*StartMessage, error)
	DecodeDeploy(msg []byte) (*DeployMessage, error)
	DecodeUpdate(msg []byte) (*UpdateMessage, error)
	DecodeConclude(msg []byte) (*ConcludeMessage, error)
}

// RLPCodec encodes messages as rlp lists. Values use the vm wire form.
type RLPCodec struct{}

var _ Codec = RLPCodec{}

type startRLP struct {
	Address thor.Address
	Method  string
	Args    []byte
	Redeem  thor.Address
}

type deployRLP struct {
	Address  thor.Address
	Binary   []byte
	Storage  []byte
	Settings Settings
}

type updateRLP struct {
	Address  thor.Address
	Binary   []byte
	Settings Settings
}

type concludeRLP struct {
	Address thor.Address
	StartID thor.Bytes32
	Diff    []byte
}

// EncodeStart encodes a start message.
func (RLPCodec) EncodeStart(m *StartMessage) ([]byte, error) {
	args, err := vm.EncodeValues(m.Args)
	if err != nil {
		return nil, errors.WithMessage(err, "start args")
	}
	return rlp.EncodeToBytes(&startRLP{m.Address, m.Method, args, m.Redeem})
}

// DecodeStart implements Codec.
func (RLPCodec) DecodeStart(msg []byte) (*StartMessage, error) {
	var r startRLP
	if err := rlp.DecodeBytes(msg, &r); err != nil {
		return nil, errors.Wrap(err, "decode start message")
	}
	args, err := vm.DecodeValues(r.Args)
	if err != nil {
		return nil, errors.WithMessage(err, "start args")
	}
	return &StartMessage{Address: r.Address, Method: r.Method, Args: args, Redeem: r.Redeem}, nil
}

// EncodeDeploy encodes a deploy message.
func (RLPCodec) EncodeDeploy(m *DeployMessage) ([]byte, error) {
	storage, err := state.EncodeEntries(m.Storage)
	if err != nil {
		return nil, errors.WithMessage(err, "deploy storage")
	}
	return rlp.EncodeToBytes(&deployRLP{m.Address, m.Binary, storage, m.Settings})
}

// DecodeDeploy implements Codec.
func (RLPCodec) DecodeDeploy(msg []byte) (*DeployMessage, error) {
	var r deployRLP
	if err := rlp.DecodeBytes(msg, &r); err != nil {
		return nil, errors.Wrap(err, "decode deploy message")
	}
	storage, err := state.DecodeEntries(r.Storage)
	if err != nil {
		return nil, errors.WithMessage(err, "deploy storage")
	}
	return &DeployMessage{Address: r.Address, Binary: r.Binary, Storage: storage, Settings: r.Settings}, nil
}

// EncodeUpdate encodes an update message.
func (RLPCodec) EncodeUpdate(m *UpdateMessage) ([]byte, error) {
	return rlp.EncodeToBytes(&updateRLP{m.Address, m.Binary, m.Settings})
}

// DecodeUpdate implements Codec.
func (RLPCodec) DecodeUpdate(msg []byte) (*UpdateMessage, error) {
	var r updateRLP
	if err := rlp.DecodeBytes(msg, &r); err != nil {
		return nil, errors.Wrap(err, "decode update message")
	}
	return &UpdateMessage{Address: r.Address, Binary: r.Binary, Settings: r.Settings}, nil
}

// EncodeConclude encodes a conclude message.
func (RLPCodec) EncodeConclude(m *ConcludeMessage) ([]byte, error) {
	diff, err := state.EncodeDiff(m.Diff)
	if err != nil {
		return nil, errors.WithMessage(err, "conclude diff")
	}
	return rlp.EncodeToBytes(&concludeRLP{m.Address, m.StartID, diff})
}

// DecodeConclude implements Codec.
func (RLPCodec) DecodeConclude(msg []byte) (*ConcludeMessage, error) {
	var r concludeRLP
	if err := rlp.DecodeBytes(msg, &r); err != nil {
		return nil, errors.Wrap(err, "decode conclude message")
	}
	diff, err := state.DecodeDiff(r.Diff)
	if err != nil {
		return nil, errors.WithMessage(err, "conclude diff")
	}
	return &ConcludeMessage{Address: r.Address, StartID: r.StartID, Diff: diff}, nil
}
