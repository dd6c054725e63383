// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/vm"
)

const instrSize = 9 // op(1) arg(4) line(4)

// record is the rlp body of a contract binary.
type record struct {
	Kind    uint8
	Module  string
	File    string
	Entry   string
	Imports []string
	Consts  []constRecord
	Funcs   []funcRecord
}

type constRecord struct {
	Name  string
	Value vm.WireValue
}

type funcRecord struct {
	Name  string
	Proto protoRecord
	Cells []vm.WireValue
}

type protoRecord struct {
	Name      string
	File      string
	Line      uint64
	Params    []string
	Locals    []string
	CellNames []string
	FreeNames []string
	FreeFrom  []uint64
	Defaults  []vm.WireValue
	Consts    []vm.WireValue
	Names     []string
	Protos    []protoRecord
	Code      []byte
	Source    []string
}

func wireValues(vals []vm.Value) ([]vm.WireValue, error) {
	out := make([]vm.WireValue, len(vals))
	for i, v := range vals {
		w, err := vm.ToWire(v)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func fromWireValues(ws []vm.WireValue) ([]vm.Value, error) {
	out := make([]vm.Value, len(ws))
	for i, w := range ws {
		v, err := vm.FromWire(w)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func encodeProto(p *vm.Proto) (protoRecord, error) {
	r := protoRecord{
		Name:      p.Name,
		File:      p.File,
		Line:      uint64(p.Line),
		Params:    p.Params,
		Locals:    p.Locals,
		CellNames: p.CellNames,
		FreeNames: p.FreeNames,
		Names:     p.Names,
		Source:    p.Source,
	}
	for _, idx := range p.FreeFrom {
		r.FreeFrom = append(r.FreeFrom, uint64(idx))
	}
	var err error
	if r.Defaults, err = wireValues(p.Defaults); err != nil {
		return r, errors.WithMessagef(err, "%s: defaults", p.Name)
	}
	if r.Consts, err = wireValues(p.Consts); err != nil {
		return r, errors.WithMessagef(err, "%s: constants", p.Name)
	}
	r.Code = make([]byte, 0, len(p.Code)*instrSize)
	for _, in := range p.Code {
		var b [instrSize]byte
		b[0] = byte(in.Op)
		binary.BigEndian.PutUint32(b[1:5], uint32(in.Arg))
		binary.BigEndian.PutUint32(b[5:9], uint32(in.Line))
		r.Code = append(r.Code, b[:]...)
	}
	for _, child := range p.Protos {
		cr, err := encodeProto(child)
		if err != nil {
			return r, err
		}
		r.Protos = append(r.Protos, cr)
	}
	return r, nil
}

// decodeProto rebuilds a proto and checks every operand, so a malformed
// binary fails here rather than while running.
func decodeProto(r *protoRecord, parentCells int) (*vm.Proto, error) {
	p := &vm.Proto{
		Name:      r.Name,
		File:      r.File,
		Line:      int(r.Line),
		Params:    r.Params,
		Locals:    r.Locals,
		CellNames: r.CellNames,
		FreeNames: r.FreeNames,
		Names:     r.Names,
		Source:    r.Source,
	}
	if len(p.Params) > len(p.Locals) {
		return nil, errors.Errorf("%s: more params than locals", r.Name)
	}
	if len(r.FreeFrom) != len(r.FreeNames) {
		return nil, errors.Errorf("%s: free variable mismatch", r.Name)
	}
	for _, idx := range r.FreeFrom {
		if parentCells >= 0 && idx >= uint64(parentCells) {
			return nil, errors.Errorf("%s: free variable index %d out of range", r.Name, idx)
		}
		p.FreeFrom = append(p.FreeFrom, int(idx))
	}
	var err error
	if p.Defaults, err = fromWireValues(r.Defaults); err != nil {
		return nil, err
	}
	if len(p.Defaults) > len(p.Params) {
		return nil, errors.Errorf("%s: more defaults than params", r.Name)
	}
	if p.Consts, err = fromWireValues(r.Consts); err != nil {
		return nil, err
	}
	ncells := len(p.CellNames) + len(p.FreeNames)
	for i := range r.Protos {
		child, err := decodeProto(&r.Protos[i], ncells)
		if err != nil {
			return nil, err
		}
		p.Protos = append(p.Protos, child)
	}

	if len(r.Code)%instrSize != 0 {
		return nil, errors.Errorf("%s: truncated code", r.Name)
	}
	p.Code = make([]vm.Instr, len(r.Code)/instrSize)
	for i := range p.Code {
		b := r.Code[i*instrSize:]
		in := vm.Instr{
			Op:   vm.Opcode(b[0]),
			Arg:  int32(binary.BigEndian.Uint32(b[1:5])),
			Line: int32(binary.BigEndian.Uint32(b[5:9])),
		}
		if err := checkInstr(p, in, ncells); err != nil {
			return nil, errors.WithMessagef(err, "%s: instruction %d", r.Name, i)
		}
		p.Code[i] = in
	}
	return p, nil
}

func checkInstr(p *vm.Proto, in vm.Instr, ncells int) error {
	if !in.Op.Valid() {
		return errors.Errorf("invalid opcode %d", byte(in.Op))
	}
	if in.Arg < 0 || in.Line < 0 {
		return errors.New("negative operand")
	}
	limit := -1
	switch in.Op {
	case vm.OpConst:
		limit = len(p.Consts)
	case vm.OpLoadLocal, vm.OpStoreLocal:
		limit = len(p.Locals)
	case vm.OpLoadCell, vm.OpStoreCell:
		limit = ncells
	case vm.OpLoadGlobal, vm.OpStoreGlobal, vm.OpLoadAttr:
		limit = len(p.Names)
	case vm.OpClosure:
		limit = len(p.Protos)
	}
	if in.Op.IsJump() {
		limit = len(p.Code) + 1
	}
	if limit >= 0 && int(in.Arg) >= limit {
		return errors.Errorf("%s operand %d out of range", in.Op, in.Arg)
	}
	return nil
}
