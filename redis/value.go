package redis

import (
	"math/big"
	"strconv"
)

// Kind is a tag of Value.
type Kind uint8

const (
	// KindAbsent is encoded as null bulk string ($-1).
	KindAbsent Kind = iota
	// KindInt is a signed integer.
	KindInt
	// KindUint is an unsigned integer that may exceed int64.
	KindUint
	// KindBigInt is an arbitrary precision integer.
	KindBigInt
	// KindFloat is a float64.
	KindFloat
	// KindBool is encoded as "1" or "0".
	KindBool
	// KindText is a string or byte slice, sent as is.
	KindText
)

var kindName = [...]string{
	KindAbsent: "absent",
	KindInt:    "int",
	KindUint:   "uint",
	KindBigInt: "bigint",
	KindFloat:  "float",
	KindBool:   "bool",
	KindText:   "text",
}

func (k Kind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}
	return "kind" + strconv.Itoa(int(k))
}

// Value is a single command argument.
// Zero Value is Absent.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
	big  *big.Int
}

// Absent returns value that is sent as null bulk string.
func Absent() Value { return Value{} }

// Int returns integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint returns unsigned integer value.
func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

// BigInt returns big integer value. nil is Absent.
func BigInt(v *big.Int) Value {
	if v == nil {
		return Absent()
	}
	return Value{kind: KindBigInt, big: new(big.Int).Set(v)}
}

// Float returns float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool returns boolean value.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Text returns text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Bytes returns text value. Slice is copied.
func Bytes(v []byte) Value { return Value{kind: KindText, s: string(v)} }

// Kind returns tag of value.
func (v Value) Kind() Kind { return v.kind }

// Absent reports whether value is sent as null.
func (v Value) Absent() bool { return v.kind == KindAbsent }

// AppendTo appends textual payload of value.
// Absent value appends nothing.
func (v Value) AppendTo(b []byte) []byte {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(b, v.i, 10)
	case KindUint:
		return strconv.AppendUint(b, v.u, 10)
	case KindBigInt:
		return v.big.Append(b, 10)
	case KindFloat:
		return strconv.AppendFloat(b, v.f, 'f', -1, 64)
	case KindBool:
		if v.i != 0 {
			return append(b, '1')
		}
		return append(b, '0')
	case KindText:
		return append(b, v.s...)
	}
	return b
}

// String returns textual payload of value, or "<nil>" for Absent.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<nil>"
	case KindText:
		return v.s
	}
	return string(v.AppendTo(nil))
}

// ToValue converts Go value to Value.
// nil, Value, []byte, string, bool, integer and float types, and *big.Int are supported.
func ToValue(arg interface{}) (Value, bool) {
	switch v := arg.(type) {
	case nil:
		return Absent(), true
	case Value:
		return v, true
	case string:
		return Text(v), true
	case []byte:
		return Bytes(v), true
	case bool:
		return Bool(v), true
	case int:
		return Int(int64(v)), true
	case int8:
		return Int(int64(v)), true
	case int16:
		return Int(int64(v)), true
	case int32:
		return Int(int64(v)), true
	case int64:
		return Int(v), true
	case uint:
		return Uint(uint64(v)), true
	case uint8:
		return Uint(uint64(v)), true
	case uint16:
		return Uint(uint64(v)), true
	case uint32:
		return Uint(uint64(v)), true
	case uint64:
		return Uint(v), true
	case float32:
		// shortest representation of float32, not of its float64 widening
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'f', -1, 32), 64)
		return Float(f), true
	case float64:
		return Float(v), true
	case *big.Int:
		return BigInt(v), true
	default:
		return Value{}, false
	}
}
