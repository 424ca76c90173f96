package doc

// FromAny builds a Value tree out of plain Go values produced by
// ordinary map/slice literals, for tests and for callers that do not
// need to preserve MsgPack map-key ordering themselves. Map keys are
// emitted in the order Go's range happens to give them; callers that
// care about order (the schema engine, when testing duplicate-key
// detection) should build a Value via Map([]Pair{...}) directly.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Nil()
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint64:
		return Uint(t)
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case []any:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			items = append(items, FromAny(e))
		}
		return Array(items)
	case map[string]any:
		pairs := make([]Pair, 0, len(t))
		for k, e := range t {
			pairs = append(pairs, Pair{Key: k, Value: FromAny(e)})
		}
		return Map(pairs)
	case []Pair:
		return Map(t)
	case Value:
		return t
	default:
		return Nil()
	}
}

// ToAny unpacks a Value tree back into plain Go values (map[string]any
// for Map, []any for Array), for callers that just want to inspect
// the result (CLI dump commands, tests).
func ToAny(v Value) any {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.bytes
	case KindArray:
		out := make([]any, 0, len(v.arr))
		for _, item := range v.arr {
			out = append(out, ToAny(item))
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for _, p := range v.m {
			out[p.Key] = ToAny(p.Value)
		}
		return out
	default:
		return nil
	}
}
