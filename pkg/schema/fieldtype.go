package schema

import "strings"

// FieldType is one axis value of a SepTypes quadruple (spec.md §3
// "sep_types"). The same enum doubles as the field's concrete type
// once Foreign/Object/Array are stripped.
type FieldType int

const (
	Empty FieldType = iota
	Foreign
	Object
	Array
	Boolean
	Date
	Time
	Timedelta
	Float
	Integer
	Positive
	Geo
	String
	Term
	Text
	UUID
	Script
)

func (t FieldType) String() string {
	switch t {
	case Empty:
		return ""
	case Foreign:
		return "foreign"
	case Object:
		return "object"
	case Array:
		return "array"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timedelta:
		return "timedelta"
	case Float:
		return "float"
	case Integer:
		return "integer"
	case Positive:
		return "positive"
	case Geo:
		return "geospatial"
	case String:
		return "string"
	case Term:
		return "term"
	case Text:
		return "text"
	case UUID:
		return "uuid"
	case Script:
		return "script"
	default:
		return "unknown"
	}
}

// IsConcrete reports whether t can occupy the Concrete axis of a
// SepTypes quadruple (i.e. it is not one of the wrapper axes).
func (t FieldType) IsConcrete() bool {
	switch t {
	case Boolean, Date, Time, Timedelta, Float, Integer, Positive, Geo, String, Term, Text, UUID, Script:
		return true
	default:
		return false
	}
}

// SepTypes is the four-slot canonical type of a field (spec.md §3):
// independent Foreign/Object/Array wrapper axes plus one Concrete
// axis. Any axis may be Empty.
type SepTypes struct {
	Foreign  FieldType
	Object   FieldType
	Array    FieldType
	Concrete FieldType
}

// TypeName renders the quadruple as the canonical slash-joined type
// string (e.g. "foreign/object", "object/array/integer"), skipping
// Empty axes.
func (s SepTypes) TypeName() string {
	var parts []string
	if s.Foreign != Empty {
		parts = append(parts, s.Foreign.String())
	}
	if s.Object != Empty {
		parts = append(parts, s.Object.String())
	}
	if s.Array != Empty {
		parts = append(parts, s.Array.String())
	}
	if s.Concrete != Empty {
		parts = append(parts, s.Concrete.String())
	}
	return strings.Join(parts, "/")
}

// IsEmpty reports whether no axis has been set yet (the field's type
// has not been fixed).
func (s SepTypes) IsEmpty() bool {
	return s.Foreign == Empty && s.Object == Empty && s.Array == Empty && s.Concrete == Empty
}
