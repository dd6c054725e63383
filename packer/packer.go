// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package packer converts compiled contracts to and from their portable
// binary form.
//
// A binary is the magic "CVM", a version byte, then the snappy compressed
// rlp encoding of the contract record. The record holds instructions,
// constants, defaults, closure cell values and import names; it never refers
// to the module that defined the contract.
package packer

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
)

// Version is the binary format version written by Pack.
const Version = 1

var magic = []byte("CVM")

// Kind is the top level form of a contract binary.
type Kind uint8

// Kinds of contract binaries.
const (
	KindFunction Kind = iota + 1
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindModule:
		return "module"
	}
	return "unknown"
}

// Header describes a binary without loading it.
type Header struct {
	Version uint8
	Kind    Kind
	Module  string
	File    string
	Entry   string
	Imports []string
	Funcs   []string
	Consts  []string
	Hash    thor.Bytes32
}

// ImportResolver returns the module to bind for an import name.
type ImportResolver func(name string) (*vm.Module, bool)

// MapResolver resolves imports from a fixed table.
func MapResolver(mods map[string]*vm.Module) ImportResolver {
	return func(name string) (*vm.Module, bool) {
		m, ok := mods[name]
		return m, ok
	}
}

// Pack serializes a function or a module.
func Pack(obj vm.Value) ([]byte, error) {
	var rec record
	switch o := obj.(type) {
	case *vm.Closure:
		fr, err := encodeFunc(o.Proto.Name, o)
		if err != nil {
			return nil, wrap("pack", err, o.Proto.Name)
		}
		rec = record{
			Kind:   uint8(KindFunction),
			Module: moduleName(o.Proto.File),
			File:   o.Proto.File,
			Entry:  o.Proto.Name,
			Funcs:  []funcRecord{fr},
		}
	case *vm.Module:
		rec = record{
			Kind:    uint8(KindModule),
			Module:  o.Name,
			File:    o.File,
			Imports: o.Imports,
		}
		for _, name := range o.MemberNames() {
			switch v := o.Members[name].(type) {
			case *vm.Closure:
				fr, err := encodeFunc(name, v)
				if err != nil {
					return nil, wrap("pack", err, name)
				}
				rec.Funcs = append(rec.Funcs, fr)
			default:
				w, err := vm.ToWire(v)
				if err != nil {
					return nil, wrap("pack", err, "const "+name)
				}
				rec.Consts = append(rec.Consts, constRecord{name, w})
			}
		}
	default:
		return nil, errorf("pack", "cannot pack value of type %s", vm.TypeName(obj))
	}

	body, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return nil, wrap("pack", err, "encode record")
	}
	bin := make([]byte, 0, len(magic)+1+snappy.MaxEncodedLen(len(body)))
	bin = append(bin, magic...)
	bin = append(bin, Version)
	return append(bin, snappy.Encode(nil, body)...), nil
}

func encodeFunc(name string, cl *vm.Closure) (funcRecord, error) {
	pr, err := encodeProto(cl.Proto)
	if err != nil {
		return funcRecord{}, err
	}
	// defaults may have been replaced after compilation
	if pr.Defaults, err = wireValues(cl.Defaults); err != nil {
		return funcRecord{}, errors.WithMessage(err, "defaults")
	}
	fr := funcRecord{Name: name, Proto: pr}
	for i, c := range cl.Cells {
		w, err := vm.ToWire(c.V)
		if err != nil {
			return funcRecord{}, errors.WithMessagef(err, "closure cell %s", cl.Proto.FreeNames[i])
		}
		fr.Cells = append(fr.Cells, w)
	}
	return fr, nil
}

func decodeRecord(op string, bin []byte) (*record, error) {
	if len(bin) < len(magic)+1 || !bytes.Equal(bin[:len(magic)], magic) {
		return nil, errorf(op, "not a contract binary")
	}
	if v := bin[len(magic)]; v != Version {
		return nil, errorf(op, "unsupported version %d", v)
	}
	body, err := snappy.Decode(nil, bin[len(magic)+1:])
	if err != nil {
		return nil, wrap(op, err, "decompress")
	}
	var rec record
	if err := rlp.DecodeBytes(body, &rec); err != nil {
		return nil, wrap(op, err, "decode record")
	}

	switch Kind(rec.Kind) {
	case KindFunction:
		if len(rec.Funcs) != 1 || len(rec.Consts) != 0 || rec.Funcs[0].Name != rec.Entry {
			return nil, errorf(op, "malformed function record")
		}
	case KindModule:
		seen := make(map[string]bool)
		for _, c := range rec.Consts {
			if c.Name == "" || seen[c.Name] {
				return nil, errorf(op, "malformed member %q", c.Name)
			}
			seen[c.Name] = true
		}
		for _, f := range rec.Funcs {
			if f.Name == "" || seen[f.Name] {
				return nil, errorf(op, "malformed member %q", f.Name)
			}
			seen[f.Name] = true
		}
	default:
		return nil, errorf(op, "unknown kind %d", rec.Kind)
	}
	if rec.Module == "" {
		return nil, errorf(op, "missing module name")
	}
	return &rec, nil
}

// Inspect validates bin and returns its header without building closures.
func Inspect(bin []byte) (*Header, error) {
	rec, err := decodeRecord("inspect", bin)
	if err != nil {
		return nil, err
	}
	h := &Header{
		Version: bin[len(magic)],
		Kind:    Kind(rec.Kind),
		Module:  rec.Module,
		File:    rec.File,
		Entry:   rec.Entry,
		Imports: rec.Imports,
		Hash:    thor.Keccak256(bin),
	}
	for _, f := range rec.Funcs {
		h.Funcs = append(h.Funcs, f.Name)
	}
	for _, c := range rec.Consts {
		h.Consts = append(h.Consts, c.Name)
	}
	return h, nil
}

// Unpack rebuilds a packed function or module bound to globals. Module
// members are published into globals. Imports resolve through imports; an
// unresolved plain name becomes a placeholder that fails on use, while an
// unresolved dotted name is an error.
func Unpack(bin []byte, globals *vm.Globals, imports ImportResolver) (vm.Value, error) {
	rec, err := decodeRecord("unpack", bin)
	if err != nil {
		return nil, err
	}
	if imports == nil {
		imports = MapResolver(nil)
	}
	for _, name := range rec.Imports {
		if err := bindImport(globals, imports, name); err != nil {
			return nil, err
		}
	}

	m := vm.NewModule(rec.Module, rec.File)
	m.Imports = rec.Imports
	for _, c := range rec.Consts {
		v, err := vm.FromWire(c.Value)
		if err != nil {
			return nil, wrap("unpack", err, "const "+c.Name)
		}
		m.Members[c.Name] = v
	}
	for i := range rec.Funcs {
		cl, err := decodeFunc(&rec.Funcs[i], globals)
		if err != nil {
			return nil, wrap("unpack", err, rec.Funcs[i].Name)
		}
		m.Members[rec.Funcs[i].Name] = cl
	}
	m.Bind(globals)

	if Kind(rec.Kind) == KindFunction {
		return m.Members[rec.Entry], nil
	}
	return m, nil
}

// UnpackAs is Unpack that fails with ErrWrongKind unless bin holds kind.
func UnpackAs(bin []byte, kind Kind, globals *vm.Globals, imports ImportResolver) (vm.Value, error) {
	h, err := Inspect(bin)
	if err != nil {
		return nil, err
	}
	if h.Kind != kind {
		return nil, &Error{Op: "unpack", Err: errors.Wrapf(ErrWrongKind, "expected %s, got %s", kind, h.Kind)}
	}
	return Unpack(bin, globals, imports)
}

func decodeFunc(fr *funcRecord, globals *vm.Globals) (*vm.Closure, error) {
	p, err := decodeProto(&fr.Proto, -1)
	if err != nil {
		return nil, err
	}
	if len(fr.Cells) != len(p.FreeNames) {
		return nil, errors.Errorf("expected %d closure cells, got %d", len(p.FreeNames), len(fr.Cells))
	}
	cells := make([]*vm.Cell, len(fr.Cells))
	for i, w := range fr.Cells {
		v, err := vm.FromWire(w)
		if err != nil {
			return nil, err
		}
		cells[i] = &vm.Cell{V: v}
	}
	return vm.NewClosure(p, cells, globals), nil
}

func bindImport(globals *vm.Globals, imports ImportResolver, name string) error {
	parts := strings.Split(name, ".")
	mod, ok := imports(name)
	if !ok {
		if len(parts) > 1 {
			return errorf("unpack", "import %s: module not available", name)
		}
		globals.Set(name, &vm.Placeholder{Name: name})
		return nil
	}
	if len(parts) == 1 {
		globals.Set(name, mod)
		return nil
	}

	// a.b.c binds a, with b and c as nested members
	root, _ := globals.Get(parts[0])
	parent, ok := root.(*vm.Module)
	if !ok {
		parent = vm.NewModule(parts[0], "")
		globals.Set(parts[0], parent)
	}
	for _, part := range parts[1 : len(parts)-1] {
		child, ok := parent.Members[part].(*vm.Module)
		if !ok {
			child = vm.NewModule(part, "")
			parent.Members[part] = child
		}
		parent = child
	}
	parent.Members[parts[len(parts)-1]] = mod
	return nil
}

func moduleName(file string) string {
	name := file
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		name = "contract"
	}
	return name
}
