// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"fmt"
	"io"
)

const defaultMaxDepth = 128

// TraceFrame describes an active call as seen by a Tracer.
type TraceFrame struct {
	ID     uint64
	Parent *TraceFrame
	File   string
	Func   string
	Line   int
	Text   string
	Native bool
}

// Tracer observes execution. A non-nil error returned by a hook aborts
// execution and is returned unchanged by Call.
type Tracer interface {
	// OnCall is invoked when a frame is entered, before its first line.
	OnCall(f *TraceFrame) error
	// OnLine is invoked when a frame starts a new line or jumps backwards.
	OnLine(f *TraceFrame) error
	// OnReturn is invoked when a frame returns normally.
	OnReturn(f *TraceFrame) error
}

// Config configures an interpreter.
type Config struct {
	Tracer   Tracer
	Costs    *CostTable // nil disables opcode metering
	GasLimit uint64     // 0 means unlimited
	MaxDepth int
	Output   io.Writer
}

// Interpreter runs compiled closures.
type Interpreter struct {
	cfg     Config
	gas     uint64
	depth   int
	nextID  uint64
	top     *TraceFrame
	globals *Globals // globals of the running closure
}

// New creates an interpreter.
func New(cfg Config) *Interpreter {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	return &Interpreter{cfg: cfg}
}

// GasUsed returns the gas charged by opcode metering so far.
func (it *Interpreter) GasUsed() uint64 { return it.gas }

// Output returns the writer used by print.
func (it *Interpreter) Output() io.Writer { return it.cfg.Output }

// useGas charges amount when opcode metering is enabled.
func (it *Interpreter) useGas(amount uint64) error {
	if it.cfg.Costs == nil {
		return nil
	}
	it.gas += amount
	if it.cfg.GasLimit > 0 && it.gas > it.cfg.GasLimit {
		return newError(KindOutOfGas, "gas limit %d exceeded", it.cfg.GasLimit)
	}
	return nil
}

func (it *Interpreter) newFrame(file, fn string, line int, text string, native bool) *TraceFrame {
	it.nextID++
	return &TraceFrame{
		ID:     it.nextID,
		Parent: it.top,
		File:   file,
		Func:   fn,
		Line:   line,
		Text:   text,
		Native: native,
	}
}

// Dispatch calls fn beneath a synthetic frame that stands for the host entry
// point, so a tracer observes the host call site before the contract code.
func (it *Interpreter) Dispatch(file, name, text string, fn Value, args []Value) (Value, error) {
	f := it.newFrame(file, name, 1, text, false)
	it.top = f
	defer func() { it.top = f.Parent }()

	if t := it.cfg.Tracer; t != nil {
		if err := t.OnCall(f); err != nil {
			return nil, err
		}
	}
	ret, err := it.Call(fn, args)
	if err != nil {
		return nil, err
	}
	if t := it.cfg.Tracer; t != nil {
		if err := t.OnReturn(f); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Call invokes fn with args.
func (it *Interpreter) Call(fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case *Closure:
		return it.callClosure(f, args)
	case *Native:
		return it.callNative(f, args)
	case *Placeholder:
		return nil, placeholderError(f)
	}
	return nil, newError(KindTypeError, "'%s' object is not callable", TypeName(fn))
}

func bindArgs(p *Proto, defaults []Value, args []Value) ([]Value, error) {
	nparams := len(p.Params)
	if len(args) > nparams {
		return nil, newError(KindTypeError, "%s() takes %d arguments but %d were given", p.Name, nparams, len(args))
	}
	locals := make([]Value, len(p.Locals))
	copy(locals, args)
	firstDefault := nparams - len(defaults)
	for i := len(args); i < nparams; i++ {
		if i < firstDefault {
			return nil, newError(KindTypeError, "%s() missing required argument: '%s'", p.Name, p.Params[i])
		}
		locals[i] = defaults[i-firstDefault]
	}
	return locals, nil
}

func (it *Interpreter) enter() error {
	if it.depth >= it.cfg.MaxDepth {
		return newError(KindRecursion, "maximum call depth %d exceeded", it.cfg.MaxDepth)
	}
	it.depth++
	return nil
}

func (it *Interpreter) callNative(n *Native, args []Value) (ret Value, err error) {
	if err := it.enter(); err != nil {
		return nil, err
	}
	defer func() { it.depth-- }()

	if n.Lib == "" {
		return it.runNative(n, args)
	}

	if err := it.useGas(n.Price); err != nil {
		return nil, err
	}
	f := it.newFrame(n.Lib, n.Name, 1, n.Signature(), true)
	it.top = f
	defer func() { it.top = f.Parent }()

	if t := it.cfg.Tracer; t != nil {
		if err := t.OnCall(f); err != nil {
			return nil, err
		}
	}
	if ret, err = it.runNative(n, args); err != nil {
		return nil, err
	}
	if t := it.cfg.Tracer; t != nil {
		f.Text = "return"
		if err := t.OnReturn(f); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (it *Interpreter) runNative(n *Native, args []Value) (ret Value, err error) {
	defer func() {
		if e := recover(); e != nil {
			ret, err = nil, newError(KindRuntimeError, "%s: %v", n.Name, e)
		}
	}()
	ret, err = n.Fn(it, args)
	if err != nil {
		if _, ok := err.(*Error); !ok {
			err = &Error{Kind: KindRuntimeError, Msg: fmt.Sprintf("%s: %v", n.Name, err)}
		}
		return nil, err
	}
	return ret, nil
}

type frame struct {
	cl     *Closure
	locals []Value
	cells  []*Cell
	stack  []Value
	pc     int
	line   int
	back   bool
	trace  *TraceFrame
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) top() Value { return f.stack[len(f.stack)-1] }

func (f *frame) jump(target int32) {
	if int(target) < f.pc {
		f.back = true
	}
	f.pc = int(target)
}

func (it *Interpreter) callClosure(cl *Closure, args []Value) (Value, error) {
	p := cl.Proto
	locals, err := bindArgs(p, cl.Defaults, args)
	if err != nil {
		return nil, err
	}
	if err := it.enter(); err != nil {
		return nil, err
	}
	defer func() { it.depth-- }()

	outer := it.globals
	it.globals = cl.Globals
	defer func() { it.globals = outer }()

	cells := make([]*Cell, len(p.CellNames), len(p.CellNames)+len(cl.Cells))
	for i := range cells {
		cells[i] = &Cell{}
	}
	f := &frame{
		cl:     cl,
		locals: locals,
		cells:  append(cells, cl.Cells...),
		trace:  it.newFrame(p.File, p.Name, p.Line, p.Text(p.Line), false),
	}
	it.top = f.trace
	defer func() { it.top = f.trace.Parent }()

	if t := it.cfg.Tracer; t != nil {
		if err := t.OnCall(f.trace); err != nil {
			return nil, err
		}
	}

	ret, err := it.run(f)
	if err != nil {
		if e, ok := err.(*Error); ok {
			entry := TraceEntry{File: p.File, Line: f.trace.Line, Func: p.Name, Text: f.trace.Text}
			e.Trace = append([]TraceEntry{entry}, e.Trace...)
		}
		return nil, err
	}

	if t := it.cfg.Tracer; t != nil {
		if err := t.OnReturn(f.trace); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (it *Interpreter) run(f *frame) (Value, error) {
	p := f.cl.Proto
	code := p.Code
	for f.pc < len(code) {
		in := code[f.pc]
		f.pc++

		if err := it.useGas(it.costOf(in.Op)); err != nil {
			return nil, err
		}

		if in.Line != 0 && (int(in.Line) != f.line || f.back) {
			f.line = int(in.Line)
			f.trace.Line = f.line
			f.trace.Text = p.Text(f.line)
			if t := it.cfg.Tracer; t != nil {
				if err := t.OnLine(f.trace); err != nil {
					return nil, err
				}
			}
		}
		f.back = false

		switch in.Op {
		case OpNop:
		case OpConst:
			f.push(p.Consts[in.Arg])
		case OpNil:
			f.push(nil)
		case OpTrue:
			f.push(true)
		case OpFalse:
			f.push(false)
		case OpPop:
			f.pop()
		case OpDup:
			f.push(f.top())

		case OpLoadLocal:
			f.push(f.locals[in.Arg])
		case OpStoreLocal:
			f.locals[in.Arg] = f.pop()
		case OpLoadCell:
			f.push(f.cells[in.Arg].V)
		case OpStoreCell:
			f.cells[in.Arg].V = f.pop()
		case OpLoadGlobal:
			name := p.Names[in.Arg]
			v, ok := f.cl.Globals.Get(name)
			if !ok {
				return nil, newError(KindNameError, "name '%s' is not defined", name)
			}
			f.push(v)
		case OpStoreGlobal:
			f.cl.Globals.Set(p.Names[in.Arg], f.pop())
		case OpLoadAttr:
			v, err := attr(f.pop(), p.Names[in.Arg])
			if err != nil {
				return nil, err
			}
			f.push(v)
		case OpIndex:
			key := f.pop()
			v, err := index(f.pop(), key)
			if err != nil {
				return nil, err
			}
			f.push(v)
		case OpStoreIndex:
			val := f.pop()
			key := f.pop()
			if err := setIndex(f.pop(), key, val); err != nil {
				return nil, err
			}

		case OpBuildList:
			n := len(f.stack) - int(in.Arg)
			items := append([]Value(nil), f.stack[n:]...)
			f.stack = f.stack[:n]
			f.push(NewList(items...))
		case OpBuildMap:
			n := len(f.stack) - 2*int(in.Arg)
			m := NewMap()
			for i := n; i < len(f.stack); i += 2 {
				if err := m.Set(f.stack[i], f.stack[i+1]); err != nil {
					return nil, err
				}
			}
			f.stack = f.stack[:n]
			f.push(m)

		case OpNeg:
			v, err := negate(f.pop())
			if err != nil {
				return nil, err
			}
			f.push(v)
		case OpNot:
			f.push(!Truthy(f.pop()))
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			b := f.pop()
			v, err := binaryOp(in.Op, f.pop(), b)
			if err != nil {
				return nil, err
			}
			f.push(v)

		case OpJump:
			f.jump(in.Arg)
		case OpJumpIfFalse:
			if !Truthy(f.pop()) {
				f.jump(in.Arg)
			}
		case OpJumpIfFalseOrPop:
			if !Truthy(f.top()) {
				f.jump(in.Arg)
			} else {
				f.pop()
			}
		case OpJumpIfTrueOrPop:
			if Truthy(f.top()) {
				f.jump(in.Arg)
			} else {
				f.pop()
			}
		case OpIter:
			iter, err := newIterator(f.pop())
			if err != nil {
				return nil, err
			}
			f.push(iter)
		case OpForIter:
			if v, ok := f.top().(*iterator).next(); ok {
				f.push(v)
			} else {
				f.pop()
				f.jump(in.Arg)
			}

		case OpCall:
			n := len(f.stack) - int(in.Arg)
			args := append([]Value(nil), f.stack[n:]...)
			fn := f.stack[n-1]
			f.stack = f.stack[:n-1]
			v, err := it.Call(fn, args)
			if err != nil {
				return nil, err
			}
			f.push(v)
		case OpReturn:
			return f.pop(), nil
		case OpClosure:
			child := p.Protos[in.Arg]
			cells := make([]*Cell, len(child.FreeFrom))
			for i, idx := range child.FreeFrom {
				cells[i] = f.cells[idx]
			}
			f.push(NewClosure(child, cells, f.cl.Globals))
		case OpRaise:
			return nil, newError(KindContractError, "%s", Str(f.pop()))
		default:
			return nil, newError(KindRuntimeError, "invalid opcode %s", in.Op)
		}
	}
	return nil, nil
}

func (it *Interpreter) costOf(op Opcode) uint64 {
	if it.cfg.Costs == nil {
		return 0
	}
	return it.cfg.Costs[op]
}
