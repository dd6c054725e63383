// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler

import (
	"fmt"

	"github.com/vechain/cvm/vm"
)

var binaryOps = map[string]vm.Opcode{
	"+":  vm.OpAdd,
	"-":  vm.OpSub,
	"*":  vm.OpMul,
	"/":  vm.OpDiv,
	"%":  vm.OpMod,
	"==": vm.OpEq,
	"!=": vm.OpNe,
	"<":  vm.OpLt,
	"<=": vm.OpLe,
	">":  vm.OpGt,
	">=": vm.OpGe,
}

type loop struct {
	continueTarget int
	breaks         []int
	isFor          bool
}

type codegen struct {
	file   string
	lines  []string
	scope  *scope
	proto  *vm.Proto
	consts map[vm.Value]int
	names  map[string]int
	loops  []*loop
}

func (g *codegen) errorf(line int, format string, args ...any) error {
	return &Error{File: g.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (g *codegen) emit(op vm.Opcode, arg int, line int) int {
	g.proto.Code = append(g.proto.Code, vm.Instr{Op: op, Arg: int32(arg), Line: int32(line)})
	return len(g.proto.Code) - 1
}

func (g *codegen) here() int { return len(g.proto.Code) }

func (g *codegen) patch(at int) {
	g.proto.Code[at].Arg = int32(g.here())
}

func (g *codegen) constIndex(v vm.Value) int {
	if vm.Hashable(v) || v == nil {
		if i, ok := g.consts[v]; ok {
			return i
		}
		g.consts[v] = len(g.proto.Consts)
	}
	g.proto.Consts = append(g.proto.Consts, v)
	return len(g.proto.Consts) - 1
}

func (g *codegen) nameIndex(name string) int {
	if i, ok := g.names[name]; ok {
		return i
	}
	g.names[name] = len(g.proto.Names)
	g.proto.Names = append(g.proto.Names, name)
	return len(g.proto.Names) - 1
}

// compileFunc generates the proto of fn. parent is nil for top level functions.
func compileFunc(file string, lines []string, fn *funcDecl, s *scope, parent *scope) (*vm.Proto, error) {
	p := &vm.Proto{
		Name:      fn.name,
		File:      file,
		Line:      fn.line,
		Params:    append([]string(nil), fn.params...),
		Locals:    append([]string(nil), s.order...),
		CellNames: s.cellNames(),
		FreeNames: append([]string(nil), s.free...),
	}
	if fn.endLine >= fn.line && fn.endLine <= len(lines) {
		p.Source = append([]string(nil), lines[fn.line-1:fn.endLine]...)
	}
	for _, name := range s.free {
		p.FreeFrom = append(p.FreeFrom, parent.cellIndex(name))
	}
	for _, d := range fn.defaults {
		v, err := constValue(d)
		if err != nil {
			return nil, &Error{File: file, Line: d.exprLine(), Msg: "default value: " + err.Error()}
		}
		p.Defaults = append(p.Defaults, v)
	}

	g := &codegen{
		file:   file,
		lines:  lines,
		scope:  s,
		proto:  p,
		consts: make(map[vm.Value]int),
		names:  make(map[string]int),
	}

	// captured parameters move into their cells before the body runs
	for i, param := range fn.params {
		if s.cells[param] {
			g.emit(vm.OpLoadLocal, i, 0)
			g.emit(vm.OpStoreCell, s.cellIndex(param), 0)
		}
	}
	if err := g.block(fn.body); err != nil {
		return nil, err
	}
	g.emit(vm.OpNil, 0, 0)
	g.emit(vm.OpReturn, 0, 0)
	return p, nil
}

func (g *codegen) block(body []stmt) error {
	for _, st := range body {
		if err := g.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (g *codegen) load(name string, line int) {
	switch g.scope.lookup(name) {
	case varLocal:
		g.emit(vm.OpLoadLocal, g.scope.locals[name], line)
	case varCell:
		g.emit(vm.OpLoadCell, g.scope.cellIndex(name), line)
	default:
		g.emit(vm.OpLoadGlobal, g.nameIndex(name), line)
	}
}

func (g *codegen) store(name string, line int) error {
	switch g.scope.lookup(name) {
	case varLocal:
		g.emit(vm.OpStoreLocal, g.scope.locals[name], line)
	case varCell:
		g.emit(vm.OpStoreCell, g.scope.cellIndex(name), line)
	default:
		return g.errorf(line, "cannot assign to global '%s'", name)
	}
	return nil
}

func (g *codegen) stmt(st stmt) error {
	line := st.stmtLine()
	switch st := st.(type) {
	case *letStmt:
		if err := g.expr(st.value, line); err != nil {
			return err
		}
		return g.store(st.name, line)
	case *assignStmt:
		switch t := st.target.(type) {
		case *nameExpr:
			if err := g.expr(st.value, line); err != nil {
				return err
			}
			return g.store(t.name, line)
		case *indexExpr:
			if err := g.expr(t.obj, line); err != nil {
				return err
			}
			if err := g.expr(t.key, line); err != nil {
				return err
			}
			if err := g.expr(st.value, line); err != nil {
				return err
			}
			g.emit(vm.OpStoreIndex, 0, line)
		}
	case *exprStmt:
		if err := g.expr(st.x, line); err != nil {
			return err
		}
		g.emit(vm.OpPop, 0, line)
	case *ifStmt:
		var exits []int
		for i, cond := range st.conds {
			if err := g.expr(cond, st.lines[i]); err != nil {
				return err
			}
			skip := g.emit(vm.OpJumpIfFalse, 0, st.lines[i])
			if err := g.block(st.blocks[i]); err != nil {
				return err
			}
			if i < len(st.conds)-1 || len(st.orElse) > 0 {
				exits = append(exits, g.emit(vm.OpJump, 0, 0))
			}
			g.patch(skip)
		}
		if err := g.block(st.orElse); err != nil {
			return err
		}
		for _, at := range exits {
			g.patch(at)
		}
	case *whileStmt:
		top := g.here()
		if err := g.expr(st.cond, line); err != nil {
			return err
		}
		exit := g.emit(vm.OpJumpIfFalse, 0, line)
		l := &loop{continueTarget: top}
		if err := g.loopBody(l, st.body); err != nil {
			return err
		}
		g.emit(vm.OpJump, top, 0)
		g.patch(exit)
		for _, at := range l.breaks {
			g.patch(at)
		}
	case *forStmt:
		if err := g.expr(st.iter, line); err != nil {
			return err
		}
		g.emit(vm.OpIter, 0, line)
		top := g.emit(vm.OpForIter, 0, line)
		if err := g.store(st.name, line); err != nil {
			return err
		}
		l := &loop{continueTarget: top, isFor: true}
		if err := g.loopBody(l, st.body); err != nil {
			return err
		}
		g.emit(vm.OpJump, top, 0)
		g.patch(top)
		for _, at := range l.breaks {
			g.patch(at)
		}
	case *breakStmt:
		if len(g.loops) == 0 {
			return g.errorf(line, "'break' outside loop")
		}
		l := g.loops[len(g.loops)-1]
		if l.isFor {
			g.emit(vm.OpPop, 0, line)
		}
		l.breaks = append(l.breaks, g.emit(vm.OpJump, 0, line))
	case *continueStmt:
		if len(g.loops) == 0 {
			return g.errorf(line, "'continue' not properly in loop")
		}
		g.emit(vm.OpJump, g.loops[len(g.loops)-1].continueTarget, line)
	case *returnStmt:
		if st.value == nil {
			g.emit(vm.OpNil, 0, line)
		} else if err := g.expr(st.value, line); err != nil {
			return err
		}
		g.emit(vm.OpReturn, 0, line)
	case *raiseStmt:
		if err := g.expr(st.value, line); err != nil {
			return err
		}
		g.emit(vm.OpRaise, 0, line)
	case *funcStmt:
		child := g.scope.children[st.fn]
		proto, err := compileFunc(g.file, g.lines, st.fn, child, g.scope)
		if err != nil {
			return err
		}
		g.proto.Protos = append(g.proto.Protos, proto)
		g.emit(vm.OpClosure, len(g.proto.Protos)-1, line)
		return g.store(st.fn.name, line)
	default:
		return g.errorf(line, "unsupported statement %T", st)
	}
	return nil
}

func (g *codegen) loopBody(l *loop, body []stmt) error {
	g.loops = append(g.loops, l)
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()
	return g.block(body)
}

// expr emits x. Every instruction carries the line of the enclosing
// statement so a statement raises a single line event.
func (g *codegen) expr(x expr, line int) error {
	switch x := x.(type) {
	case *literalExpr:
		switch v := x.value.(type) {
		case nil:
			g.emit(vm.OpNil, 0, line)
		case bool:
			if v {
				g.emit(vm.OpTrue, 0, line)
			} else {
				g.emit(vm.OpFalse, 0, line)
			}
		default:
			g.emit(vm.OpConst, g.constIndex(v), line)
		}
	case *nameExpr:
		g.load(x.name, line)
	case *listExpr:
		for _, item := range x.items {
			if err := g.expr(item, line); err != nil {
				return err
			}
		}
		g.emit(vm.OpBuildList, len(x.items), line)
	case *mapExpr:
		for i := range x.keys {
			if err := g.expr(x.keys[i], line); err != nil {
				return err
			}
			if err := g.expr(x.vals[i], line); err != nil {
				return err
			}
		}
		g.emit(vm.OpBuildMap, len(x.keys), line)
	case *callExpr:
		if err := g.expr(x.fn, line); err != nil {
			return err
		}
		for _, a := range x.args {
			if err := g.expr(a, line); err != nil {
				return err
			}
		}
		g.emit(vm.OpCall, len(x.args), line)
	case *indexExpr:
		if err := g.expr(x.obj, line); err != nil {
			return err
		}
		if err := g.expr(x.key, line); err != nil {
			return err
		}
		g.emit(vm.OpIndex, 0, line)
	case *attrExpr:
		if err := g.expr(x.obj, line); err != nil {
			return err
		}
		g.emit(vm.OpLoadAttr, g.nameIndex(x.name), line)
	case *unaryExpr:
		if err := g.expr(x.x, line); err != nil {
			return err
		}
		if x.op == "not" {
			g.emit(vm.OpNot, 0, line)
		} else {
			g.emit(vm.OpNeg, 0, line)
		}
	case *binaryExpr:
		if x.op == "and" || x.op == "or" {
			if err := g.expr(x.x, line); err != nil {
				return err
			}
			op := vm.OpJumpIfFalseOrPop
			if x.op == "or" {
				op = vm.OpJumpIfTrueOrPop
			}
			jump := g.emit(op, 0, line)
			if err := g.expr(x.y, line); err != nil {
				return err
			}
			g.patch(jump)
			return nil
		}
		if err := g.expr(x.x, line); err != nil {
			return err
		}
		if err := g.expr(x.y, line); err != nil {
			return err
		}
		g.emit(binaryOps[x.op], 0, line)
	default:
		return g.errorf(line, "unsupported expression %T", x)
	}
	return nil
}

// constValue evaluates a constant expression at compile time.
func constValue(x expr) (vm.Value, error) {
	switch x := x.(type) {
	case *literalExpr:
		return x.value, nil
	case *listExpr:
		items := make([]vm.Value, len(x.items))
		for i, item := range x.items {
			v, err := constValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return vm.NewList(items...), nil
	case *mapExpr:
		m := vm.NewMap()
		for i := range x.keys {
			k, err := constValue(x.keys[i])
			if err != nil {
				return nil, err
			}
			v, err := constValue(x.vals[i])
			if err != nil {
				return nil, err
			}
			if err := m.Set(k, v); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("not a constant expression")
}
