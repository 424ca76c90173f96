package schema

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dubalu/xapiand-go/pkg/codec"
	"github.com/dubalu/xapiand-go/pkg/doc"
)

// guessFieldType infers a field's concrete type via pkg/codec's probe
// order, translating its ConcreteKind result into this package's
// FieldType enum (spec.md §4.B "guess_type").
func guessFieldType(v doc.Value, boolTerm bool) FieldType {
	switch codec.GuessType(v, boolTerm) {
	case codec.GuessInteger:
		return Integer
	case codec.GuessPositive:
		return Positive
	case codec.GuessFloat:
		return Float
	case codec.GuessBoolean:
		return Boolean
	case codec.GuessUUID:
		return UUID
	case codec.GuessDate:
		return Date
	case codec.GuessTime:
		return Time
	case codec.GuessTimedelta:
		return Timedelta
	case codec.GuessGeo:
		return Geo
	case codec.GuessText:
		return Text
	default:
		return String
	}
}

// SlotOf assigns the value slot for a field the first time it is
// materialized: hash(prefix + concrete-type byte), reusing the same
// xxhash the endpoint model and changemap hash with (spec.md §3
// "slot ... assigned by hashing prefix + concrete-type byte the
// first time the field is materialized"). BadSlot and SlotRoot are
// both reserved, so a collision onto either is nudged by one.
func SlotOf(prefix string, concrete FieldType) uint32 {
	h := xxhash.New()
	_, _ = h.WriteString(prefix)
	_, _ = h.Write([]byte{byte(concrete)})
	slot := uint32(h.Sum64())
	for slot == BadSlot || slot == SlotRoot {
		slot++
	}
	return slot
}
