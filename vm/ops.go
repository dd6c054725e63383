// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"math"
)

func addInt(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, newError(KindOverflowError, "integer overflow")
	}
	return a + b, nil
}

func subInt(a, b int64) (int64, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, newError(KindOverflowError, "integer overflow")
	}
	return a - b, nil
}

func mulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, newError(KindOverflowError, "integer overflow")
	}
	return c, nil
}

// divInt is floor division.
func divInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, newError(KindZeroDivision, "integer division by zero")
	}
	if a == math.MinInt64 && b == -1 {
		return 0, newError(KindOverflowError, "integer overflow")
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q, nil
}

// modInt takes the sign of the divisor.
func modInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, newError(KindZeroDivision, "integer modulo by zero")
	}
	if b == -1 {
		return 0, nil
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

func unsupported(op string, a, b Value) error {
	return newError(KindTypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(a), TypeName(b))
}

func binaryOp(op Opcode, a, b Value) (Value, error) {
	switch op {
	case OpEq:
		return Equal(a, b), nil
	case OpNe:
		return !Equal(a, b), nil
	case OpLt, OpLe, OpGt, OpGe:
		c, err := Compare(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		}
		return c >= 0, nil
	}

	if x, ok := a.(int64); ok {
		y, ok := b.(int64)
		if !ok {
			return nil, unsupported(op.String(), a, b)
		}
		switch op {
		case OpAdd:
			return addInt(x, y)
		case OpSub:
			return subInt(x, y)
		case OpMul:
			return mulInt(x, y)
		case OpDiv:
			return divInt(x, y)
		case OpMod:
			return modInt(x, y)
		}
	}

	if op == OpAdd {
		switch x := a.(type) {
		case string:
			if y, ok := b.(string); ok {
				return x + y, nil
			}
		case Bytes:
			if y, ok := b.(Bytes); ok {
				return x + y, nil
			}
		case *List:
			if y, ok := b.(*List); ok {
				items := make([]Value, 0, len(x.Items)+len(y.Items))
				items = append(items, x.Items...)
				return NewList(append(items, y.Items...)...), nil
			}
		}
	}
	return nil, unsupported(op.String(), a, b)
}

func negate(v Value) (Value, error) {
	x, ok := v.(int64)
	if !ok {
		return nil, newError(KindTypeError, "bad operand type for unary -: '%s'", TypeName(v))
	}
	if x == math.MinInt64 {
		return nil, newError(KindOverflowError, "integer overflow")
	}
	return -x, nil
}

func normIndex(i int64, n int) (int, bool) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

func placeholderError(p *Placeholder) error {
	return newError(KindNameError, "module '%s' is not available in this sandbox", p.Name)
}

func index(obj, key Value) (Value, error) {
	switch o := obj.(type) {
	case *List:
		i, ok := key.(int64)
		if !ok {
			return nil, newError(KindTypeError, "list indices must be int, not %s", TypeName(key))
		}
		n, ok := normIndex(i, len(o.Items))
		if !ok {
			return nil, newError(KindIndexError, "list index out of range")
		}
		return o.Items[n], nil
	case *Map:
		if !Hashable(key) {
			return nil, newError(KindTypeError, "unhashable type: '%s'", TypeName(key))
		}
		v, ok := o.Get(key)
		if !ok {
			return nil, newError(KindKeyError, "%s", Repr(key))
		}
		return v, nil
	case string:
		i, ok := key.(int64)
		if !ok {
			return nil, newError(KindTypeError, "string indices must be int, not %s", TypeName(key))
		}
		n, ok := normIndex(i, len(o))
		if !ok {
			return nil, newError(KindIndexError, "string index out of range")
		}
		return o[n : n+1], nil
	case Bytes:
		i, ok := key.(int64)
		if !ok {
			return nil, newError(KindTypeError, "bytes indices must be int, not %s", TypeName(key))
		}
		n, ok := normIndex(i, len(o))
		if !ok {
			return nil, newError(KindIndexError, "bytes index out of range")
		}
		return int64(o[n]), nil
	case *Placeholder:
		return nil, placeholderError(o)
	}
	return nil, newError(KindTypeError, "'%s' object is not subscriptable", TypeName(obj))
}

func setIndex(obj, key, val Value) error {
	switch o := obj.(type) {
	case *List:
		i, ok := key.(int64)
		if !ok {
			return newError(KindTypeError, "list indices must be int, not %s", TypeName(key))
		}
		n, ok := normIndex(i, len(o.Items))
		if !ok {
			return newError(KindIndexError, "list assignment index out of range")
		}
		o.Items[n] = val
		return nil
	case *Map:
		return o.Set(key, val)
	case *Placeholder:
		return placeholderError(o)
	}
	return newError(KindTypeError, "'%s' object does not support item assignment", TypeName(obj))
}

func attr(obj Value, name string) (Value, error) {
	switch o := obj.(type) {
	case *Module:
		if v, ok := o.Members[name]; ok {
			return v, nil
		}
		return nil, newError(KindAttrError, "module '%s' has no attribute '%s'", o.Name, name)
	case *Placeholder:
		return nil, placeholderError(o)
	}
	return nil, newError(KindAttrError, "'%s' object has no attribute '%s'", TypeName(obj), name)
}

type iterator struct {
	items []Value
	pos   int
}

func newIterator(v Value) (*iterator, error) {
	switch o := v.(type) {
	case *List:
		return &iterator{items: append([]Value(nil), o.Items...)}, nil
	case *Map:
		return &iterator{items: o.Keys()}, nil
	case Bytes:
		items := make([]Value, len(o))
		for i := range o {
			items[i] = int64(o[i])
		}
		return &iterator{items: items}, nil
	case *Placeholder:
		return nil, placeholderError(o)
	}
	return nil, newError(KindTypeError, "'%s' object is not iterable", TypeName(v))
}

func (it *iterator) next() (Value, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}
