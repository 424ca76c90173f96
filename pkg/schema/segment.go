package schema

import (
	"strings"

	"github.com/google/uuid"
)

// IsValidSegment reports whether a field-path segment is a legal
// schema key: non-empty, and free of the characters reserved for
// path/prefix syntax elsewhere in the model (spec.md §4.F.1
// "Validate segment (is_valid)").
func IsValidSegment(segment string) bool {
	if segment == "" {
		return false
	}
	return !strings.ContainsAny(segment, "/.\x00")
}

// PossiblyUUID reports whether segment looks like a UUID path
// component, driving detect_dynamic's choice between a literal child
// field and the synthetic "<uuid>" child (spec.md §4.F.1
// "detect_dynamic(segment) decides whether the segment is a UUID").
func PossiblyUUID(segment string) bool {
	_, err := uuid.Parse(segment)
	return err == nil
}
