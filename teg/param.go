package teg

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/timewave-computer/causality-sub020/utils"
)

// ParamKind tags the variants of ParameterValue. The numeric values are
// the serialized discriminants and must not be reordered.
type ParamKind uint8

const (
	KindInt64 ParamKind = iota
	KindUint64
	KindBytes
	KindString
	KindBool
	KindRational
	KindList
	KindMap
)

// RationalMaxBits bounds the magnitude of rational numerators and
// denominators.
const RationalMaxBits = 256

// ParameterValue is the closed value type carried by effect parameters.
// Zero value is Int64(0).
type ParameterValue struct {
	kind ParamKind

	i64  int64
	u64  uint64
	b    []byte
	s    string
	flag bool
	num  *big.Int
	den  *big.Int
	list []ParameterValue
	m    map[string]ParameterValue
}

func Int64Value(x int64) ParameterValue {
	return ParameterValue{kind: KindInt64, i64: x}
}

func Uint64Value(x uint64) ParameterValue {
	return ParameterValue{kind: KindUint64, u64: x}
}

func BytesValue(b []byte) ParameterValue {
	c := make([]byte, len(b))
	copy(c, b)
	return ParameterValue{kind: KindBytes, b: c}
}

func StringValue(s string) ParameterValue {
	return ParameterValue{kind: KindString, s: s}
}

func BoolValue(x bool) ParameterValue {
	return ParameterValue{kind: KindBool, flag: x}
}

// RationalValue normalizes num/den to lowest terms with a positive
// denominator. It rejects a zero denominator and magnitudes above
// RationalMaxBits after normalization.
func RationalValue(num, den *big.Int) (ParameterValue, error) {
	if den.Sign() == 0 {
		return ParameterValue{}, fmt.Errorf("rational denominator is zero")
	}
	r := new(big.Rat).SetFrac(num, den)
	n := new(big.Int).Set(r.Num())
	d := new(big.Int).Set(r.Denom())
	if n.BitLen() > RationalMaxBits || d.BitLen() > RationalMaxBits {
		return ParameterValue{}, fmt.Errorf("rational %s/%s exceeds %d bits", n, d, RationalMaxBits)
	}
	return ParameterValue{kind: KindRational, num: n, den: d}, nil
}

func ListValue(items ...ParameterValue) ParameterValue {
	c := make([]ParameterValue, len(items))
	copy(c, items)
	return ParameterValue{kind: KindList, list: c}
}

func MapValue(m map[string]ParameterValue) ParameterValue {
	c := make(map[string]ParameterValue, len(m))
	for k, v := range m {
		c[k] = v
	}
	return ParameterValue{kind: KindMap, m: c}
}

func (v ParameterValue) Kind() ParamKind { return v.kind }

func (v ParameterValue) Int64() (int64, bool) {
	return v.i64, v.kind == KindInt64
}

func (v ParameterValue) Uint64() (uint64, bool) {
	return v.u64, v.kind == KindUint64
}

func (v ParameterValue) Bytes() ([]byte, bool) {
	return v.b, v.kind == KindBytes
}

func (v ParameterValue) Str() (string, bool) {
	return v.s, v.kind == KindString
}

func (v ParameterValue) Bool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// Rational returns copies of the normalized numerator and denominator.
func (v ParameterValue) Rational() (*big.Int, *big.Int, bool) {
	if v.kind != KindRational {
		return nil, nil, false
	}
	return new(big.Int).Set(v.num), new(big.Int).Set(v.den), true
}

func (v ParameterValue) List() ([]ParameterValue, bool) {
	return v.list, v.kind == KindList
}

func (v ParameterValue) Map() (map[string]ParameterValue, bool) {
	return v.m, v.kind == KindMap
}

// String renders the value the way constant_value reports it.
func (v ParameterValue) String() string {
	switch v.kind {
	case KindInt64:
		return strconv.FormatInt(v.i64, 10)
	case KindUint64:
		return strconv.FormatUint(v.u64, 10)
	case KindBytes:
		return fmt.Sprintf("0x%x", v.b)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindRational:
		return v.num.String() + "/" + v.den.String()
	case KindList:
		parts := make([]string, len(v.list))
		for i, x := range v.list {
			parts[i] = x.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := utils.SortedStringKeys(v.m)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

func (v ParameterValue) Equal(other ParameterValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt64:
		return v.i64 == other.i64
	case KindUint64:
		return v.u64 == other.u64
	case KindBytes:
		return string(v.b) == string(other.b)
	case KindString:
		return v.s == other.s
	case KindBool:
		return v.flag == other.flag
	case KindRational:
		return v.num.Cmp(other.num) == 0 && v.den.Cmp(other.den) == 0
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, x := range v.m {
			y, ok := other.m[k]
			if !ok || !x.Equal(y) {
				return false
			}
		}
		return true
	}
	return false
}

// encode appends the canonical form: a kind discriminant followed by
// the payload. Map keys are emitted sorted.
func (v ParameterValue) encode(o *utils.OutputBuf) {
	o.AppendByte(byte(v.kind))
	switch v.kind {
	case KindInt64:
		o.AppendUint64(uint64(v.i64))
	case KindUint64:
		o.AppendUint64(v.u64)
	case KindBytes:
		o.AppendBytes(v.b)
	case KindString:
		o.AppendString(v.s)
	case KindBool:
		if v.flag {
			o.AppendByte(1)
		} else {
			o.AppendByte(0)
		}
	case KindRational:
		if v.num.Sign() < 0 {
			o.AppendByte(1)
		} else {
			o.AppendByte(0)
		}
		o.AppendBigInt(new(big.Int).Abs(v.num))
		o.AppendBigInt(v.den)
	case KindList:
		o.AppendUint32(uint32(len(v.list)))
		for _, x := range v.list {
			x.encode(o)
		}
	case KindMap:
		keys := utils.SortedStringKeys(v.m)
		o.AppendUint32(uint32(len(keys)))
		for _, k := range keys {
			o.AppendString(k)
			v.m[k].encode(o)
		}
	}
}

func decodeParameterValue(in *utils.InputBuf) (ParameterValue, error) {
	kind, err := in.ReadByte()
	if err != nil {
		return ParameterValue{}, wrapBytesInvalid(err)
	}
	switch ParamKind(kind) {
	case KindInt64:
		x, err := in.ReadUint64()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		return Int64Value(int64(x)), nil
	case KindUint64:
		x, err := in.ReadUint64()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		return Uint64Value(x), nil
	case KindBytes:
		b, err := in.ReadBytes()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		return ParameterValue{kind: KindBytes, b: b}, nil
	case KindString:
		s, err := in.ReadString()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		return StringValue(s), nil
	case KindBool:
		b, err := in.ReadByte()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		if b > 1 {
			return ParameterValue{}, &BytesInvalidError{Reason: fmt.Sprintf("bool discriminant %d", b)}
		}
		return BoolValue(b == 1), nil
	case KindRational:
		sign, err := in.ReadByte()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		if sign > 1 {
			return ParameterValue{}, &BytesInvalidError{Reason: fmt.Sprintf("rational sign byte %d", sign)}
		}
		num, err := in.ReadBigInt()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		den, err := in.ReadBigInt()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		if sign == 1 {
			if num.Sign() == 0 {
				return ParameterValue{}, &BytesInvalidError{Reason: "negative zero rational"}
			}
			num.Neg(num)
		}
		v, err := RationalValue(num, den)
		if err != nil {
			return ParameterValue{}, &BytesInvalidError{Reason: err.Error()}
		}
		// The wire form must already be normalized.
		if v.num.CmpAbs(num) != 0 || v.den.Cmp(den) != 0 {
			return ParameterValue{}, &BytesInvalidError{Reason: "rational not in lowest terms"}
		}
		return v, nil
	case KindList:
		n, err := in.ReadUint32()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		items := make([]ParameterValue, n)
		for i := range items {
			items[i], err = decodeParameterValue(in)
			if err != nil {
				return ParameterValue{}, err
			}
		}
		return ParameterValue{kind: KindList, list: items}, nil
	case KindMap:
		n, err := in.ReadUint32()
		if err != nil {
			return ParameterValue{}, wrapBytesInvalid(err)
		}
		m := make(map[string]ParameterValue, n)
		for j := uint32(0); j < n; j++ {
			k, err := in.ReadString()
			if err != nil {
				return ParameterValue{}, wrapBytesInvalid(err)
			}
			m[k], err = decodeParameterValue(in)
			if err != nil {
				return ParameterValue{}, err
			}
		}
		return ParameterValue{kind: KindMap, m: m}, nil
	}
	return ParameterValue{}, &BytesInvalidError{Reason: fmt.Sprintf("parameter kind %d", kind)}
}
