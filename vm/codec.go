// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Wire kinds of encoded values.
const (
	WireNil uint8 = iota
	WireFalse
	WireTrue
	WireInt
	WireStr
	WireBytes
	WireList
	WireMap
)

// WireValue is the rlp form of a data value. Functions and modules have no
// wire form.
type WireValue struct {
	Kind  uint8
	Data  []byte
	Items []WireValue
}

// ToWire converts a data value to its wire form.
func ToWire(v Value) (WireValue, error) {
	switch v := v.(type) {
	case nil:
		return WireValue{Kind: WireNil}, nil
	case bool:
		if v {
			return WireValue{Kind: WireTrue}, nil
		}
		return WireValue{Kind: WireFalse}, nil
	case int64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		return WireValue{Kind: WireInt, Data: b[:]}, nil
	case string:
		return WireValue{Kind: WireStr, Data: []byte(v)}, nil
	case Bytes:
		return WireValue{Kind: WireBytes, Data: []byte(v)}, nil
	case *List:
		items := make([]WireValue, len(v.Items))
		for i, item := range v.Items {
			w, err := ToWire(item)
			if err != nil {
				return WireValue{}, err
			}
			items[i] = w
		}
		return WireValue{Kind: WireList, Items: items}, nil
	case *Map:
		items := make([]WireValue, 0, 2*v.Len())
		var err error
		v.Range(func(k, val Value) bool {
			var wk, wv WireValue
			if wk, err = ToWire(k); err != nil {
				return false
			}
			if wv, err = ToWire(val); err != nil {
				return false
			}
			items = append(items, wk, wv)
			return true
		})
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{Kind: WireMap, Items: items}, nil
	}
	return WireValue{}, errors.Errorf("value of type %s is not encodable", TypeName(v))
}

// FromWire converts a wire form back to a data value.
func FromWire(w WireValue) (Value, error) {
	switch w.Kind {
	case WireNil:
		return nil, nil
	case WireFalse:
		return false, nil
	case WireTrue:
		return true, nil
	case WireInt:
		if len(w.Data) != 8 {
			return nil, errors.New("malformed int")
		}
		return int64(binary.BigEndian.Uint64(w.Data)), nil
	case WireStr:
		return string(w.Data), nil
	case WireBytes:
		return Bytes(w.Data), nil
	case WireList:
		items := make([]Value, len(w.Items))
		for i, item := range w.Items {
			v, err := FromWire(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return NewList(items...), nil
	case WireMap:
		if len(w.Items)%2 != 0 {
			return nil, errors.New("malformed map")
		}
		m := NewMap()
		for i := 0; i < len(w.Items); i += 2 {
			k, err := FromWire(w.Items[i])
			if err != nil {
				return nil, err
			}
			v, err := FromWire(w.Items[i+1])
			if err != nil {
				return nil, err
			}
			if err := m.Set(k, v); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
	return nil, errors.Errorf("unknown wire kind %d", w.Kind)
}

// EncodeValue rlp encodes a data value.
func EncodeValue(v Value) ([]byte, error) {
	w, err := ToWire(v)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&w)
}

// DecodeValue decodes a value produced by EncodeValue.
func DecodeValue(data []byte) (Value, error) {
	var w WireValue
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, errors.Wrap(err, "decode value")
	}
	return FromWire(w)
}

// EncodeValues rlp encodes a list of values, e.g. call arguments.
func EncodeValues(vals []Value) ([]byte, error) {
	return EncodeValue(NewList(vals...))
}

// DecodeValues decodes a list produced by EncodeValues.
func DecodeValues(data []byte) ([]Value, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	l, ok := v.(*List)
	if !ok {
		return nil, errors.Errorf("expected list, got %s", TypeName(v))
	}
	return l.Items, nil
}

// ToJSON converts a data value into a json compatible tree. Bytes become hex
// strings and map keys must be strings.
func ToJSON(v Value) (any, error) {
	switch v := v.(type) {
	case nil, bool, int64, string:
		return v, nil
	case Bytes:
		return hexutil.Encode([]byte(v)), nil
	case *List:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			j, err := ToJSON(item)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case *Map:
		out := make(map[string]any, v.Len())
		var err error
		v.Range(func(k, val Value) bool {
			ks, ok := k.(string)
			if !ok {
				err = newError(KindTypeError, "json object keys must be str, not '%s'", TypeName(k))
				return false
			}
			out[ks], err = ToJSON(val)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, newError(KindTypeError, "object of type '%s' is not json serializable", TypeName(v))
}

// MarshalJSON encodes a data value as json text.
func MarshalJSON(v Value) ([]byte, error) {
	j, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes json text into a data value. Numbers must be
// integers; object keys are inserted in sorted order.
func UnmarshalJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, newError(KindValueError, "invalid json: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newError(KindValueError, "invalid json: trailing data after offset %d", dec.InputOffset())
	}
	return fromJSON(raw)
}

func fromJSON(raw any) (Value, error) {
	switch r := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return r, nil
	case string:
		return r, nil
	case json.Number:
		n, err := r.Int64()
		if err != nil {
			return nil, newError(KindValueError, "json number %s is not an int", r.String())
		}
		return n, nil
	case []any:
		items := make([]Value, len(r))
		for i, item := range r {
			v, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return NewList(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			v, err := fromJSON(r[k])
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	}
	return nil, newError(KindValueError, "unsupported json value %T", raw)
}
