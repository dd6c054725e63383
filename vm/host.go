// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxRange = 1 << 16

// AmbientBuiltins returns the complete builtin table of the host runtime. It
// includes functions reaching the host process (exit, getenv, globals, sleep)
// and must never be exposed to contract code as a whole; sandboxes copy from
// it by allow-list.
func AmbientBuiltins() map[string]*Native {
	table := make(map[string]*Native, len(hostBuiltins))
	for _, b := range hostBuiltins {
		table[b.Name] = b
	}
	return table
}

var hostBuiltins = []*Native{
	{Name: "len", Params: []string{"obj"}, Fn: builtinLen},
	{Name: "str", Params: []string{"obj"}, Fn: builtinStr},
	{Name: "int", Params: []string{"obj"}, Fn: builtinInt},
	{Name: "bytes", Params: []string{"obj"}, Fn: builtinBytes},
	{Name: "range", Params: []string{"start", "stop"}, Fn: builtinRange},
	{Name: "keys", Params: []string{"map"}, Fn: builtinKeys},
	{Name: "values", Params: []string{"map"}, Fn: builtinValues},
	{Name: "has", Params: []string{"map", "key"}, Fn: builtinHas},
	{Name: "append", Params: []string{"list", "item"}, Fn: builtinAppend},
	{Name: "remove", Params: []string{"map", "key"}, Fn: builtinRemove},
	{Name: "sorted", Params: []string{"list"}, Fn: builtinSorted},
	{Name: "type", Params: []string{"obj"}, Fn: builtinType},
	{Name: "abs", Params: []string{"n"}, Fn: builtinAbs},
	{Name: "min", Params: []string{"a", "b"}, Fn: builtinMin},
	{Name: "max", Params: []string{"a", "b"}, Fn: builtinMax},
	{Name: "print", Params: []string{"args"}, Fn: builtinPrint},

	// host reaching
	{Name: "exit", Params: []string{"code"}, Fn: func(_ *Interpreter, args []Value) (Value, error) {
		code := 0
		if len(args) > 0 {
			if c, ok := args[0].(int64); ok {
				code = int(c)
			}
		}
		os.Exit(code)
		return nil, nil
	}},
	{Name: "getenv", Params: []string{"key"}, Fn: func(_ *Interpreter, args []Value) (Value, error) {
		if err := arity("getenv", args, 1); err != nil {
			return nil, err
		}
		return os.Getenv(Str(args[0])), nil
	}},
	{Name: "globals", Fn: func(it *Interpreter, args []Value) (Value, error) {
		if err := arity("globals", args, 0); err != nil {
			return nil, err
		}
		m := NewMap()
		if g := it.globals; g != nil {
			for _, name := range g.Names() {
				v, _ := g.Get(name)
				m.Set(name, v)
			}
		}
		return m, nil
	}},
	{Name: "sleep", Params: []string{"ms"}, Fn: func(_ *Interpreter, args []Value) (Value, error) {
		if err := arity("sleep", args, 1); err != nil {
			return nil, err
		}
		ms, _ := args[0].(int64)
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return nil, nil
	}},
}

func arity(name string, args []Value, n int) error {
	if len(args) != n {
		return newError(KindTypeError, "%s() takes %d arguments but %d were given", name, n, len(args))
	}
	return nil
}

func builtinLen(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("len", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case string:
		return int64(len(v)), nil
	case Bytes:
		return int64(len(v)), nil
	case *List:
		return int64(len(v.Items)), nil
	case *Map:
		return int64(v.Len()), nil
	}
	return nil, newError(KindTypeError, "object of type '%s' has no len()", TypeName(args[0]))
}

func builtinStr(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("str", args, 1); err != nil {
		return nil, err
	}
	return Str(args[0]), nil
}

func builtinInt(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("int", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case int64:
		return v, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, newError(KindValueError, "invalid literal for int(): %s", strconv.Quote(v))
		}
		return n, nil
	}
	return nil, newError(KindTypeError, "int() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func builtinBytes(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("bytes", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Bytes:
		return v, nil
	case string:
		return Bytes(v), nil
	case *List:
		b := make([]byte, len(v.Items))
		for i, item := range v.Items {
			n, ok := item.(int64)
			if !ok || n < 0 || n > 255 {
				return nil, newError(KindValueError, "bytes must be in range(0, 256)")
			}
			b[i] = byte(n)
		}
		return Bytes(b), nil
	}
	return nil, newError(KindTypeError, "cannot convert '%s' object to bytes", TypeName(args[0]))
}

func builtinRange(_ *Interpreter, args []Value) (Value, error) {
	var start, stop int64
	switch len(args) {
	case 1:
		n, ok := args[0].(int64)
		if !ok {
			return nil, newError(KindTypeError, "range() arguments must be int")
		}
		stop = n
	case 2:
		a, ok1 := args[0].(int64)
		b, ok2 := args[1].(int64)
		if !ok1 || !ok2 {
			return nil, newError(KindTypeError, "range() arguments must be int")
		}
		start, stop = a, b
	default:
		return nil, newError(KindTypeError, "range() takes 1 or 2 arguments")
	}
	if stop-start > maxRange {
		return nil, newError(KindValueError, "range() too large")
	}
	items := make([]Value, 0, max(stop-start, 0))
	for i := start; i < stop; i++ {
		items = append(items, i)
	}
	return NewList(items...), nil
}

func mapArg(name string, args []Value, n int) (*Map, error) {
	if err := arity(name, args, n); err != nil {
		return nil, err
	}
	m, ok := args[0].(*Map)
	if !ok {
		return nil, newError(KindTypeError, "%s() argument must be map, not '%s'", name, TypeName(args[0]))
	}
	return m, nil
}

func builtinKeys(_ *Interpreter, args []Value) (Value, error) {
	m, err := mapArg("keys", args, 1)
	if err != nil {
		return nil, err
	}
	return NewList(m.Keys()...), nil
}

func builtinValues(_ *Interpreter, args []Value) (Value, error) {
	m, err := mapArg("values", args, 1)
	if err != nil {
		return nil, err
	}
	vals := make([]Value, 0, m.Len())
	m.Range(func(_, v Value) bool {
		vals = append(vals, v)
		return true
	})
	return NewList(vals...), nil
}

func builtinHas(_ *Interpreter, args []Value) (Value, error) {
	m, err := mapArg("has", args, 2)
	if err != nil {
		return nil, err
	}
	_, ok := m.Get(args[1])
	return ok, nil
}

func builtinRemove(_ *Interpreter, args []Value) (Value, error) {
	m, err := mapArg("remove", args, 2)
	if err != nil {
		return nil, err
	}
	return m.Delete(args[1]), nil
}

func builtinAppend(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("append", args, 2); err != nil {
		return nil, err
	}
	l, ok := args[0].(*List)
	if !ok {
		return nil, newError(KindTypeError, "append() argument must be list, not '%s'", TypeName(args[0]))
	}
	l.Items = append(l.Items, args[1])
	return nil, nil
}

func builtinSorted(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("sorted", args, 1); err != nil {
		return nil, err
	}
	l, ok := args[0].(*List)
	if !ok {
		return nil, newError(KindTypeError, "sorted() argument must be list, not '%s'", TypeName(args[0]))
	}
	items := append([]Value(nil), l.Items...)
	var cmpErr error
	sort.SliceStable(items, func(i, j int) bool {
		c, err := Compare(items[i], items[j])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return NewList(items...), nil
}

func builtinType(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("type", args, 1); err != nil {
		return nil, err
	}
	return TypeName(args[0]), nil
}

func builtinAbs(_ *Interpreter, args []Value) (Value, error) {
	if err := arity("abs", args, 1); err != nil {
		return nil, err
	}
	n, ok := args[0].(int64)
	if !ok {
		return nil, newError(KindTypeError, "bad operand type for abs(): '%s'", TypeName(args[0]))
	}
	if n < 0 {
		return negate(n)
	}
	return n, nil
}

func pick(name string, args []Value, less bool) (Value, error) {
	if len(args) == 0 {
		return nil, newError(KindTypeError, "%s() expected at least 1 argument", name)
	}
	best := args[0]
	for _, v := range args[1:] {
		c, err := Compare(v, best)
		if err != nil {
			return nil, err
		}
		if (less && c < 0) || (!less && c > 0) {
			best = v
		}
	}
	return best, nil
}

func builtinMin(_ *Interpreter, args []Value) (Value, error) { return pick("min", args, true) }
func builtinMax(_ *Interpreter, args []Value) (Value, error) { return pick("max", args, false) }

func builtinPrint(it *Interpreter, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Str(a)
	}
	fmt.Fprintln(it.Output(), strings.Join(parts, " "))
	return nil, nil
}
