// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tx models the contract transactions consumed by the engine. Only
// what the engine needs is kept: a type, an opaque message and a gas
// provision.
package tx

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/cvm/thor"
)

// Type is the type of a contract transaction.
type Type uint8

// Transaction types.
const (
	TypeDeploy Type = iota + 1
	TypeStart
	TypeUpdate
	TypeConclude
)

func (t Type) String() string {
	switch t {
	case TypeDeploy:
		return "deploy"
	case TypeStart:
		return "start"
	case TypeUpdate:
		return "update"
	case TypeConclude:
		return "conclude"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Transaction is an immutable contract transaction.
type Transaction struct {
	body body

	cache struct {
		id *thor.Bytes32
	}
}

type body struct {
	Type    Type
	Message []byte
	Gas     uint64
	Nonce   uint64
}

// New creates a transaction.
func New(typ Type, message []byte, gas, nonce uint64) *Transaction {
	return &Transaction{body: body{
		Type:    typ,
		Message: append([]byte(nil), message...),
		Gas:     gas,
		Nonce:   nonce,
	}}
}

// ID returns the keccak hash of the rlp encoded tx.
func (t *Transaction) ID() thor.Bytes32 {
	if cached := t.cache.id; cached != nil {
		return *cached
	}
	data, _ := rlp.EncodeToBytes(&t.body)
	id := thor.Keccak256(data)
	t.cache.id = &id
	return id
}

// Type returns the tx type.
func (t *Transaction) Type() Type { return t.body.Type }

// Message returns a copy of the opaque message payload.
func (t *Transaction) Message() []byte { return append([]byte(nil), t.body.Message...) }

// Gas returns the gas provision of the tx.
func (t *Transaction) Gas() uint64 { return t.body.Gas }

// Nonce returns the nonce.
func (t *Transaction) Nonce() uint64 { return t.body.Nonce }

// EncodeRLP implements rlp.Encoder.
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &t.body)
}

// DecodeRLP implements rlp.Decoder.
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var b body
	if err := s.Decode(&b); err != nil {
		return err
	}
	*t = Transaction{body: b}
	return nil
}

func (t *Transaction) String() string {
	return fmt.Sprintf(`Tx(%v)
	Type:  %v
	Gas:   %v
	Nonce: %v
	Message: %d bytes`, t.ID(), t.body.Type, t.body.Gas, t.body.Nonce, len(t.body.Message))
}
