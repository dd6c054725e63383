// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is any value a contract can hold. The concrete type is one of
// nil, bool, int64, string, Bytes, *List, *Map, *Closure, *Native, *Module
// or *Placeholder.
type Value any

// Bytes is an immutable byte string. It is distinct from string so both can
// be used as map keys without colliding.
type Bytes string

// List is a mutable ordered sequence.
type List struct {
	Items []Value
}

// NewList creates a list holding items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Map is a mutable mapping that keeps insertion order.
type Map struct {
	keys  []Value
	vals  []Value
	index map[Value]int
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{index: make(map[Value]int)}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Get returns the value stored under k.
func (m *Map) Get(k Value) (Value, bool) {
	if !Hashable(k) {
		return nil, false
	}
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

// Set stores v under k. Only hashable keys are accepted.
func (m *Map) Set(k, v Value) error {
	if !Hashable(k) {
		return newError(KindTypeError, "unhashable type: '%s'", TypeName(k))
	}
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return nil
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
	return nil
}

// Delete removes k and reports whether it was present.
func (m *Map) Delete(k Value) bool {
	if !Hashable(k) {
		return false
	}
	i, ok := m.index[k]
	if !ok {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
	return true
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []Value {
	return append([]Value(nil), m.keys...)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *Map) Range(fn func(k, v Value) bool) {
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}

// Hashable reports whether v can be used as a map key.
func Hashable(v Value) bool {
	switch v.(type) {
	case bool, int64, string, Bytes:
		return true
	}
	return false
}

// TypeName returns the contract level name of v's type.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case int64:
		return "int"
	case string:
		return "str"
	case Bytes:
		return "bytes"
	case *List:
		return "list"
	case *Map:
		return "map"
	case *Closure:
		return "function"
	case *Native:
		return "builtin"
	case *Module:
		return "module"
	case *Placeholder:
		return "placeholder"
	case *iterator:
		return "iterator"
	}
	return fmt.Sprintf("%T", v)
}

// Truthy reports the boolean meaning of v.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		return v != ""
	case Bytes:
		return v != ""
	case *List:
		return len(v.Items) > 0
	case *Map:
		return v.Len() > 0
	}
	return true
}

// Equal reports deep equality of two values.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case *List:
		b, ok := b.(*List)
		if !ok || len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case *Map:
		b, ok := b.(*Map)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for i, k := range a.keys {
			bv, ok := b.Get(k)
			if !ok || !Equal(a.vals[i], bv) {
				return false
			}
		}
		return true
	case nil, bool, int64, string, Bytes:
		return a == b
	}
	return a == b
}

// Compare orders two values of the same ordered type.
func Compare(a, b Value) (int, error) {
	switch a := a.(type) {
	case int64:
		if b, ok := b.(int64); ok {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			}
			return 0, nil
		}
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(a, b), nil
		}
	case Bytes:
		if b, ok := b.(Bytes); ok {
			return bytes.Compare([]byte(a), []byte(b)), nil
		}
	case bool:
		if b, ok := b.(bool); ok {
			return boolRank(a) - boolRank(b), nil
		}
	}
	return 0, newError(KindTypeError, "'<' not supported between '%s' and '%s'", TypeName(a), TypeName(b))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// typeRank gives a stable order across hashable types.
func typeRank(v Value) int {
	switch v.(type) {
	case bool:
		return 1
	case int64:
		return 2
	case string:
		return 3
	case Bytes:
		return 4
	}
	return 5
}

// SortValues sorts hashable values deterministically, by type first.
func SortValues(vals []Value) {
	sort.SliceStable(vals, func(i, j int) bool {
		ri, rj := typeRank(vals[i]), typeRank(vals[j])
		if ri != rj {
			return ri < rj
		}
		c, err := Compare(vals[i], vals[j])
		return err == nil && c < 0
	})
}

// Repr renders v the way it would be written in source.
func Repr(v Value) string {
	var sb strings.Builder
	writeRepr(&sb, v)
	return sb.String()
}

func writeRepr(sb *strings.Builder, v Value) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("nil")
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case string:
		sb.WriteString(strconv.Quote(v))
	case Bytes:
		sb.WriteString("0x")
		sb.WriteString(hex.EncodeToString([]byte(v)))
	case *List:
		sb.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeRepr(sb, item)
		}
		sb.WriteByte(']')
	case *Map:
		sb.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeRepr(sb, k)
			sb.WriteString(": ")
			writeRepr(sb, v.vals[i])
		}
		sb.WriteByte('}')
	case *Closure:
		fmt.Fprintf(sb, "<function %s>", v.Proto.Name)
	case *Native:
		fmt.Fprintf(sb, "<builtin %s>", v.Name)
	case *Module:
		fmt.Fprintf(sb, "<module %s>", v.Name)
	case *Placeholder:
		fmt.Fprintf(sb, "<placeholder %s>", v.Name)
	default:
		fmt.Fprintf(sb, "<%s>", TypeName(v))
	}
}

// Str renders v for printing. Strings are written raw.
func Str(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}
