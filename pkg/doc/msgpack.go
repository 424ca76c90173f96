package doc

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg appends the MsgPack encoding of v to b and returns the
// extended slice, following the same AppendXxx-chaining convention a
// generated msgp.Marshaler would use.
func (v Value) MarshalMsg(b []byte) []byte {
	switch v.kind {
	case KindNil:
		return msgp.AppendNil(b)
	case KindBool:
		return msgp.AppendBool(b, v.b)
	case KindInt:
		return msgp.AppendInt64(b, v.i)
	case KindUint:
		return msgp.AppendUint64(b, v.u)
	case KindFloat:
		return msgp.AppendFloat64(b, v.f)
	case KindString:
		return msgp.AppendString(b, v.s)
	case KindBytes:
		return msgp.AppendBytes(b, v.bytes)
	case KindArray:
		b = msgp.AppendArrayHeader(b, uint32(len(v.arr)))
		for _, item := range v.arr {
			b = item.MarshalMsg(b)
		}
		return b
	case KindMap:
		b = msgp.AppendMapHeader(b, uint32(len(v.m)))
		for _, pair := range v.m {
			b = msgp.AppendString(b, pair.Key)
			b = pair.Value.MarshalMsg(b)
		}
		return b
	default:
		return msgp.AppendNil(b)
	}
}

// Marshal encodes v as a standalone MsgPack byte string.
func Marshal(v Value) []byte {
	return v.MarshalMsg(nil)
}

// Unmarshal decodes a single MsgPack value from the front of b,
// returning the value and the remaining bytes.
func Unmarshal(b []byte) (Value, []byte, error) {
	typ := msgp.NextType(b)
	switch typ {
	case msgp.NilType:
		o, err := msgp.ReadNilBytes(b)
		return Nil(), o, err
	case msgp.BoolType:
		bv, o, err := msgp.ReadBoolBytes(b)
		return Bool(bv), o, err
	case msgp.IntType:
		iv, o, err := msgp.ReadInt64Bytes(b)
		return Int(iv), o, err
	case msgp.UintType:
		uv, o, err := msgp.ReadUint64Bytes(b)
		return Uint(uv), o, err
	case msgp.Float64Type, msgp.Float32Type:
		fv, o, err := msgp.ReadFloat64Bytes(b)
		return Float(fv), o, err
	case msgp.StrType:
		sv, o, err := msgp.ReadStringBytes(b)
		return String(sv), o, err
	case msgp.BinType:
		bts, o, err := msgp.ReadBytesBytes(b, nil)
		return Bytes(bts), o, err
	case msgp.ArrayType:
		sz, o, err := msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return Value{}, o, err
		}
		items := make([]Value, 0, sz)
		for i := uint32(0); i < sz; i++ {
			var item Value
			item, o, err = Unmarshal(o)
			if err != nil {
				return Value{}, o, err
			}
			items = append(items, item)
		}
		return Array(items), o, nil
	case msgp.MapType:
		sz, o, err := msgp.ReadMapHeaderBytes(b)
		if err != nil {
			return Value{}, o, err
		}
		pairs := make([]Pair, 0, sz)
		for i := uint32(0); i < sz; i++ {
			var key string
			key, o, err = msgp.ReadStringBytes(o)
			if err != nil {
				return Value{}, o, err
			}
			var val Value
			val, o, err = Unmarshal(o)
			if err != nil {
				return Value{}, o, err
			}
			pairs = append(pairs, Pair{Key: key, Value: val})
		}
		return Map(pairs), o, nil
	default:
		return Value{}, b, fmt.Errorf("doc: unsupported msgpack type %v", typ)
	}
}
