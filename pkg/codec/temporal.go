package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// layouts lists the ISO-8601 variants accepted when parsing Date and
// Time values, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

// ParseTemporal converts a field value into the float64 seconds since
// the Unix epoch used to store Date and Time values. Three input forms
// are accepted, per spec.md §4.B: an ISO-8601 string, a bare numeric
// timestamp, or a cast object of the form {"_date": <value>} (or
// "_time"/"_timedelta"), which is unwrapped before parsing.
func ParseTemporal(v doc.Value) (float64, error) {
	switch v.Kind() {
	case doc.KindString:
		return parseTemporalString(v.Str())
	case doc.KindInt:
		return float64(v.Int()), nil
	case doc.KindUint:
		return float64(v.Uint()), nil
	case doc.KindFloat:
		return v.Float(), nil
	case doc.KindMap:
		for _, tag := range []string{"_date", "_time", "_timedelta"} {
			if inner, ok := v.Get(tag); ok {
				return ParseTemporal(inner)
			}
		}
		return 0, xerror.New(xerror.TypeMismatch, "temporal cast object missing a recognized tag")
	default:
		return 0, xerror.New(xerror.TypeMismatch, "value is not a valid temporal type")
	}
}

func parseTemporalString(s string) (float64, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return secs, nil
	}
	return parseTemporalISOString(s)
}

// parseTemporalISOString parses only the ISO-8601 layouts, rejecting
// bare numeric strings; GuessType uses this form so that a quoted
// number like "42" is not mistaken for a timestamp.
func parseTemporalISOString(s string) (float64, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			if strings.HasPrefix(layout, "15:") {
				// Clock-only layouts parse onto year 0; anchor them to
				// 1970-01-01 so the result is seconds since midnight.
				t = t.AddDate(1970, 0, 0)
			}
			return float64(t.UnixNano()) / 1e9, nil
		}
	}
	return 0, xerror.New(xerror.ClientError, "unrecognized temporal string: "+s)
}

// ParseTimedelta converts a Timedelta value, additionally accepting a
// duration-suffixed string such as "90s" or "1h30m", to a float64
// number of seconds (which may be negative).
func ParseTimedelta(v doc.Value) (float64, error) {
	if v.Kind() == doc.KindString {
		s := strings.TrimSpace(v.Str())
		if d, err := time.ParseDuration(s); err == nil {
			return d.Seconds(), nil
		}
	}
	return ParseTemporal(v)
}

// SerializeDate, SerializeTime and SerializeTimedelta all share the
// Float concrete type's sortable encoding; they are named separately
// so that the schema/guess layer can describe intent without callers
// reaching into the numeric codec directly.
func SerializeDate(secs float64) []byte      { return SerializeFloat(secs) }
func SerializeTime(secs float64) []byte      { return SerializeFloat(secs) }
func SerializeTimedelta(secs float64) []byte { return SerializeFloat(secs) }

// UnserializeDate, UnserializeTime and UnserializeTimedelta are the
// corresponding inverses.
func UnserializeDate(b []byte) (float64, error)      { return UnserializeFloat(b) }
func UnserializeTime(b []byte) (float64, error)      { return UnserializeFloat(b) }
func UnserializeTimedelta(b []byte) (float64, error) { return UnserializeFloat(b) }

// FormatDate renders epoch seconds back to an RFC3339 timestamp,
// matching the display form produced by MSet result rendering.
func FormatDate(secs float64) string {
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC().Format(time.RFC3339Nano)
}
