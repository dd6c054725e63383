// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/vechain/cvm/vm"
)

// Disassemble writes a readable listing of p and its nested functions.
func Disassemble(w io.Writer, p *vm.Proto) {
	disassemble(w, p, "")
}

// DisassembleModule lists every member of m.
func DisassembleModule(w io.Writer, m *vm.Module) {
	fmt.Fprintf(w, "module %s (%s)\n", m.Name, m.File)
	for _, imp := range m.Imports {
		fmt.Fprintf(w, "  import %s\n", imp)
	}
	for _, name := range m.MemberNames() {
		switch v := m.Members[name].(type) {
		case *vm.Closure:
			fmt.Fprintln(w)
			Disassemble(w, v.Proto)
		default:
			fmt.Fprintf(w, "  const %s = %s\n", name, vm.Repr(v))
		}
	}
}

func disassemble(w io.Writer, p *vm.Proto, indent string) {
	fmt.Fprintf(w, "%sfunc %s (%s:%d)\n", indent, p.Signature(), p.File, p.Line)
	if len(p.CellNames) > 0 {
		fmt.Fprintf(w, "%s  cells: %s\n", indent, strings.Join(p.CellNames, ", "))
	}
	if len(p.FreeNames) > 0 {
		fmt.Fprintf(w, "%s  free: %s\n", indent, strings.Join(p.FreeNames, ", "))
	}
	for pc, in := range p.Code {
		line := "    "
		if in.Line != 0 {
			line = fmt.Sprintf("%4d", in.Line)
		}
		fmt.Fprintf(w, "%s  %s %04d %-22s%s\n", indent, line, pc, in.Op, operand(p, in))
	}
	for _, child := range p.Protos {
		disassemble(w, child, indent+"  ")
	}
}

func operand(p *vm.Proto, in vm.Instr) string {
	switch in.Op {
	case vm.OpConst:
		return fmt.Sprintf("%d (%s)", in.Arg, vm.Repr(p.Consts[in.Arg]))
	case vm.OpLoadLocal, vm.OpStoreLocal:
		return fmt.Sprintf("%d (%s)", in.Arg, p.Locals[in.Arg])
	case vm.OpLoadCell, vm.OpStoreCell:
		names := append(append([]string(nil), p.CellNames...), p.FreeNames...)
		if int(in.Arg) < len(names) {
			return fmt.Sprintf("%d (%s)", in.Arg, names[in.Arg])
		}
	case vm.OpLoadGlobal, vm.OpStoreGlobal, vm.OpLoadAttr:
		return fmt.Sprintf("%d (%s)", in.Arg, p.Names[in.Arg])
	case vm.OpClosure:
		return fmt.Sprintf("%d (%s)", in.Arg, p.Protos[in.Arg].Name)
	case vm.OpCall, vm.OpBuildList, vm.OpBuildMap:
		return fmt.Sprintf("%d", in.Arg)
	}
	if in.Op.IsJump() {
		return fmt.Sprintf("-> %04d", in.Arg)
	}
	return ""
}
