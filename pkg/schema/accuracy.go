package schema

import (
	"strconv"
	"time"

	"github.com/dubalu/xapiand-go/pkg/codec"
)

// UnitTime is the date/time truncation granularity enum used by date
// accuracy buckets (spec.md §4.E "Accuracy").
type UnitTime int

const (
	UnitSecond UnitTime = iota
	UnitMinute
	UnitHour
	UnitDay
	UnitMonth
	UnitYear
	UnitDecade
	UnitCentury
)

// HTMStartPos is the base ordinal accuracy buckets encode geo HTM
// levels against: level L encodes as HTMStartPos - 2*L (spec.md §4.E
// "Geo defaults"). 40 keeps every default level (20, 15, 10, 5, 0)
// non-negative.
const HTMStartPos = 40

// DefaultNumericAccuracy is the power-of-ten bucket-width vector used
// when a numeric field has no explicit accuracy (spec.md §4.E).
var DefaultNumericAccuracy = []float64{1e2, 1e3, 1e4, 1e5, 1e6, 1e7}

// DefaultDateAccuracy is the date truncation-unit vector used when a
// date field has no explicit accuracy.
var DefaultDateAccuracy = []float64{
	float64(UnitHour), float64(UnitDay), float64(UnitMonth),
	float64(UnitYear), float64(UnitDecade), float64(UnitCentury),
}

// DefaultTimeAccuracy is the truncation-unit vector used by Time and
// Timedelta fields.
var DefaultTimeAccuracy = []float64{float64(UnitMinute), float64(UnitHour)}

// DefaultGeoLevels is the HTM level vector used when a geo field has
// no explicit accuracy.
var DefaultGeoLevels = []int{20, 15, 10, 5, 0}

// GeoAccuracyValue encodes an HTM level as its accuracy bucket value.
func GeoAccuracyValue(level int) float64 {
	return float64(HTMStartPos - 2*level)
}

// GetPrefix derives the term prefix for one accuracy bucket value,
// appended to the field's base prefix (spec.md §4.E "Each accuracy
// value a has a derived term prefix computed via get_prefix(a)").
// The encoding need only be injective per field prefix, since it is
// never decoded back into a, only compared for equality against
// other accuracy terms of the same field.
func GetPrefix(fieldPrefix string, a float64) string {
	return fieldPrefix + "_" + strconv.FormatInt(int64(a), 36)
}

// DefaultAccuracy returns the ungrounded accuracy/prefix vector for a
// concrete type that declared none explicitly, or nil if the type
// never buckets (spec.md §4.E).
func DefaultAccuracy(concrete FieldType, fieldPrefix string) []AccuracyEntry {
	var values []float64
	switch concrete {
	case Integer, Positive, Float:
		values = DefaultNumericAccuracy
	case Date:
		values = DefaultDateAccuracy
	case Time, Timedelta:
		values = DefaultTimeAccuracy
	case Geo:
		entries := make([]AccuracyEntry, 0, len(DefaultGeoLevels))
		for _, level := range DefaultGeoLevels {
			v := GeoAccuracyValue(level)
			entries = append(entries, AccuracyEntry{Value: v, Prefix: GetPrefix(fieldPrefix, v)})
		}
		return entries
	default:
		return nil
	}
	entries := make([]AccuracyEntry, 0, len(values))
	for _, v := range values {
		entries = append(entries, AccuracyEntry{Value: v, Prefix: GetPrefix(fieldPrefix, v)})
	}
	return entries
}

// TruncateNumeric floors v to the nearest multiple of bucket, the
// operation that feeds a numeric accuracy term (spec.md §4.F.3
// "floor(value/a)*a").
func TruncateNumeric(v, bucket float64) float64 {
	if bucket == 0 {
		return v
	}
	q := v / bucket
	if q < 0 && float64(int64(q)) != q {
		return (float64(int64(q)) - 1) * bucket
	}
	return float64(int64(q)) * bucket
}

// TruncateDate floors secs (seconds since epoch) to the start of the
// calendar period named by unit (spec.md §4.F.3 "for date, same using
// UnitTime truncation (Year, Month, etc.)"). Minute/Hour truncation
// also serves the Time/Timedelta accuracy buckets.
func TruncateDate(secs float64, unit UnitTime) float64 {
	t := time.Unix(int64(secs), 0).UTC()
	switch unit {
	case UnitMinute:
		return float64(t.Truncate(time.Minute).Unix())
	case UnitHour:
		return float64(t.Truncate(time.Hour).Unix())
	case UnitDay:
		return float64(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix())
	case UnitMonth:
		return float64(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix())
	case UnitYear:
		return float64(time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	case UnitDecade:
		return float64(time.Date((t.Year()/10)*10, 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	case UnitCentury:
		return float64(time.Date((t.Year()/100)*100, 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	default:
		return secs
	}
}

// serializeAccuracyTerm renders the truncated bucket value as a
// sortable term body via pkg/codec, so accuracy terms themselves
// participate in range queries the same way exact-value terms do.
func serializeAccuracyTerm(concrete FieldType, truncated float64) []byte {
	switch concrete {
	case Integer:
		return codec.SerializeInteger(int64(truncated))
	default:
		return codec.SerializeFloat(truncated)
	}
}
