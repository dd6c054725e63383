// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package worker

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Status messages sent by a worker, in this order: port, module, then
// exactly one of success or error.
const (
	MsgPort = iota + 1
	MsgModule
	MsgSuccess
	MsgError
)

// MsgName convert msg code to string.
func MsgName(code uint64) string {
	switch code {
	case MsgPort:
		return "MsgPort"
	case MsgModule:
		return "MsgModule"
	case MsgSuccess:
		return "MsgSuccess"
	case MsgError:
		return "MsgError"
	default:
		return fmt.Sprintf("unknown msg code(%v)", code)
	}
}

// Message is a framed status message.
type Message struct {
	Code    uint64
	Payload rlp.RawValue
}

// Decode decodes the payload into val.
func (m *Message) Decode(val any) error {
	if err := rlp.DecodeBytes(m.Payload, val); err != nil {
		return errors.Wrapf(err, "decode %s", MsgName(m.Code))
	}
	return nil
}

// PortPayload payload of MsgPort.
type PortPayload struct {
	Port uint64
}

// ModulePayload payload of MsgModule. Module is the source file of the
// contract code, Entry the function invoked.
type ModulePayload struct {
	Module string
	Entry  string
}

// SuccessPayload payload of MsgSuccess.
type SuccessPayload struct {
	Result []byte // vm.EncodeValue of the return value
	Diff   []byte // state.EncodeDiff of the storage changes
	Gas    uint64 // opcode metering gas, 0 when traced
	Lines  uint64 // pauses served to the controller
}

// ErrorPayload payload of MsgError.
type ErrorPayload struct {
	Text  string
	Gas   uint64
	Lines uint64
}

func writeMsg(w io.Writer, code uint64, payload any) error {
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return errors.Wrapf(err, "encode %s", MsgName(code))
	}
	return rlp.Encode(w, &Message{Code: code, Payload: data})
}
