package codec

import (
	"strings"

	"github.com/dubalu/xapiand-go/pkg/doc"
)

// ConcreteKind identifies one of the concrete field types a value can
// be guessed into when a schema has no explicit type for the field
// yet (spec.md §4.B/§4.E).
type ConcreteKind int

const (
	GuessInteger ConcreteKind = iota
	GuessPositive
	GuessFloat
	GuessBoolean
	GuessUUID
	GuessDate
	GuessTime
	GuessTimedelta
	GuessGeo
	GuessText
	GuessString
)

func (k ConcreteKind) String() string {
	switch k {
	case GuessInteger:
		return "integer"
	case GuessPositive:
		return "positive"
	case GuessFloat:
		return "float"
	case GuessBoolean:
		return "boolean"
	case GuessUUID:
		return "uuid"
	case GuessDate:
		return "date"
	case GuessTime:
		return "time"
	case GuessTimedelta:
		return "timedelta"
	case GuessGeo:
		return "geospatial"
	case GuessText:
		return "text"
	case GuessString:
		return "string"
	default:
		return "unknown"
	}
}

// ewktKeywords lists the WKT geometry tags recognized when sniffing a
// string for the Geo concrete type, per spec.md §4.D's EWKT cast.
var ewktKeywords = []string{
	"POINT", "CIRCLE", "CONVEX", "POLYGON", "CHULL",
	"MULTIPOINT", "MULTICIRCLE", "MULTICONVEX", "MULTIPOLYGON", "MULTICHULL",
	"GEOMETRYCOLLECTION", "GEOMETRYINTERSECTION",
}

func looksLikeEWKT(s string) bool {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SRID=") {
		return true
	}
	upper := strings.ToUpper(trimmed)
	for _, kw := range ewktKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// GuessType infers the concrete field type for a value that has no
// type fixed by the schema yet. Strings are probed in the order UUID,
// Date, Time, Geo, then Text or String for strings that match none of
// those; no string is guessed as Timedelta, so GuessTimedelta is never
// returned. Numbers yield Integer/Positive/Float. boolTerm controls whether a matching string is allowed
// to be treated as Text (a bool_term field is never split into terms).
func GuessType(v doc.Value, boolTerm bool) ConcreteKind {
	switch v.Kind() {
	case doc.KindBool:
		return GuessBoolean
	case doc.KindInt:
		if v.Int() >= 0 {
			return GuessPositive
		}
		return GuessInteger
	case doc.KindUint:
		return GuessPositive
	case doc.KindFloat:
		return GuessFloat
	case doc.KindString:
		s := v.Str()
		if _, err := ParseUUIDList(s); err == nil && isUUIDLike(s) {
			return GuessUUID
		}
		if _, err := parseTemporalISOString(s); err == nil {
			return guessTemporalShape(s)
		}
		if looksLikeEWKT(s) {
			return GuessGeo
		}
		if !boolTerm && IsMultiWord(s) {
			return GuessText
		}
		return GuessString
	default:
		return GuessString
	}
}

// isUUIDLike filters out bare numeric strings and other short tokens
// that ParseUUIDList would otherwise accept only coincidentally; a
// genuine UUID always contains hyphens in canonical form.
func isUUIDLike(s string) bool {
	for _, part := range strings.Split(s, uuidSeparator) {
		if !strings.Contains(part, "-") {
			return false
		}
	}
	return true
}

// guessTemporalShape distinguishes Date from Time for a string that
// parses as a temporal value: a value carrying a date component is a
// Date, a bare clock value is a Time.
func guessTemporalShape(s string) ConcreteKind {
	if strings.Contains(s, "-") && strings.Count(s, "-") >= 2 {
		return GuessDate
	}
	if strings.Contains(s, ":") {
		return GuessTime
	}
	return GuessDate
}
