// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Opcode is a single interpreter instruction.
type Opcode byte

// Opcodes.
const (
	OpNop Opcode = iota
	OpConst
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpDup

	OpLoadLocal
	OpStoreLocal
	OpLoadCell
	OpStoreCell
	OpLoadGlobal
	OpStoreGlobal
	OpLoadAttr
	OpIndex
	OpStoreIndex

	OpBuildList
	OpBuildMap

	OpNeg
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpJump
	OpJumpIfFalse
	OpJumpIfFalseOrPop
	OpJumpIfTrueOrPop
	OpIter
	OpForIter

	OpCall
	OpReturn
	OpClosure
	OpRaise

	opCount
)

var opNames = [opCount]string{
	OpNop:              "NOP",
	OpConst:            "CONST",
	OpNil:              "NIL",
	OpTrue:             "TRUE",
	OpFalse:            "FALSE",
	OpPop:              "POP",
	OpDup:              "DUP",
	OpLoadLocal:        "LOAD_LOCAL",
	OpStoreLocal:       "STORE_LOCAL",
	OpLoadCell:         "LOAD_CELL",
	OpStoreCell:        "STORE_CELL",
	OpLoadGlobal:       "LOAD_GLOBAL",
	OpStoreGlobal:      "STORE_GLOBAL",
	OpLoadAttr:         "LOAD_ATTR",
	OpIndex:            "INDEX",
	OpStoreIndex:       "STORE_INDEX",
	OpBuildList:        "BUILD_LIST",
	OpBuildMap:         "BUILD_MAP",
	OpNeg:              "NEG",
	OpNot:              "NOT",
	OpAdd:              "ADD",
	OpSub:              "SUB",
	OpMul:              "MUL",
	OpDiv:              "DIV",
	OpMod:              "MOD",
	OpEq:               "EQ",
	OpNe:               "NE",
	OpLt:               "LT",
	OpLe:               "LE",
	OpGt:               "GT",
	OpGe:               "GE",
	OpJump:             "JUMP",
	OpJumpIfFalse:      "JUMP_IF_FALSE",
	OpJumpIfFalseOrPop: "JUMP_IF_FALSE_OR_POP",
	OpJumpIfTrueOrPop:  "JUMP_IF_TRUE_OR_POP",
	OpIter:             "ITER",
	OpForIter:          "FOR_ITER",
	OpCall:             "CALL",
	OpReturn:           "RETURN",
	OpClosure:          "CLOSURE",
	OpRaise:            "RAISE",
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("OP(%d)", byte(op))
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool { return op < opCount }

// IsJump reports whether Arg of op is a code offset.
func (op Opcode) IsJump() bool {
	switch op {
	case OpJump, OpJumpIfFalse, OpJumpIfFalseOrPop, OpJumpIfTrueOrPop, OpForIter:
		return true
	}
	return false
}

// Instr is one instruction. Line 0 marks compiler generated code that never
// raises a line event.
type Instr struct {
	Op   Opcode
	Arg  int32
	Line int32
}

// Proto is the compiled, immutable form of a function.
type Proto struct {
	Name      string
	File      string
	Line      int      // line of the definition
	Params    []string // leading entries of Locals
	Locals    []string
	CellNames []string // locals captured by nested functions
	FreeNames []string // cells captured from the enclosing function
	FreeFrom  []int    // per free name, index into the enclosing frame's cells
	Defaults  []Value  // defaults of the trailing params
	Consts    []Value
	Names     []string // global, attribute and import names
	Protos    []*Proto
	Code      []Instr
	Source    []string // source lines starting at Line
}

// Text returns the trimmed source text of line, or "" when unknown.
func (p *Proto) Text(line int) string {
	i := line - p.Line
	if i < 0 || i >= len(p.Source) {
		return ""
	}
	return strings.TrimSpace(p.Source[i])
}

// Signature renders "name(a, b)".
func (p *Proto) Signature() string {
	return p.Name + "(" + strings.Join(p.Params, ", ") + ")"
}

// Cell holds a variable shared between a function and its closures.
type Cell struct {
	V Value
}

// Closure is a callable function value.
type Closure struct {
	Proto    *Proto
	Cells    []*Cell
	Defaults []Value
	Globals  *Globals
}

// NewClosure binds proto to globals. Defaults are taken from the proto.
func NewClosure(proto *Proto, cells []*Cell, globals *Globals) *Closure {
	return &Closure{
		Proto:    proto,
		Cells:    cells,
		Defaults: append([]Value(nil), proto.Defaults...),
		Globals:  globals,
	}
}

// NativeFunc implements a native function.
type NativeFunc func(it *Interpreter, args []Value) (Value, error)

// Native is a function implemented by the host. Natives with a non-empty Lib
// are capability functions: they are traced and priced.
type Native struct {
	Name   string
	Lib    string
	Params []string
	Price  uint64
	Fn     NativeFunc
}

// Signature renders "func name(a, b)", the text shown when tracing a call.
func (n *Native) Signature() string {
	return "func " + n.Name + "(" + strings.Join(n.Params, ", ") + ")"
}

// Module is a named collection of members.
type Module struct {
	Name    string
	File    string
	Members map[string]Value
	Imports []string
}

// NewModule creates an empty module.
func NewModule(name, file string) *Module {
	return &Module{Name: name, File: file, Members: make(map[string]Value)}
}

// MemberNames returns the sorted member names.
func (m *Module) MemberNames() []string {
	names := make([]string, 0, len(m.Members))
	for name := range m.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Placeholder stands in for an unqualified import that was not available
// when a contract was loaded. Any use of it fails.
type Placeholder struct {
	Name string
}

// Globals is the global namespace of a loaded contract.
type Globals struct {
	vars map[string]Value
}

// NewGlobals creates an empty namespace.
func NewGlobals() *Globals {
	return &Globals{vars: make(map[string]Value)}
}

// Get returns the global name.
func (g *Globals) Get(name string) (Value, bool) {
	v, ok := g.vars[name]
	return v, ok
}

// Set binds name.
func (g *Globals) Set(name string, v Value) {
	g.vars[name] = v
}

// Has reports whether name is bound.
func (g *Globals) Has(name string) bool {
	_, ok := g.vars[name]
	return ok
}

// Names returns all bound names, sorted.
func (g *Globals) Names() []string {
	names := make([]string, 0, len(g.vars))
	for name := range g.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bound names.
func (g *Globals) Len() int { return len(g.vars) }

// Bind publishes the members of m into g and rebinds member functions to g.
func (m *Module) Bind(g *Globals) {
	for _, name := range m.MemberNames() {
		v := m.Members[name]
		if cl, ok := v.(*Closure); ok {
			cl.Globals = g
		}
		g.Set(name, v)
	}
}
