package codec

import "strings"

// SerializeString returns the verbatim bytes of a String-type value.
func SerializeString(s string) []byte { return []byte(s) }

// UnserializeString is the inverse of SerializeString.
func UnserializeString(b []byte) string { return string(b) }

// NormalizeTerm applies the Term type's indexing-time normalization:
// lowercased unless boolTerm is set (a boolean term, e.g. a category
// id, is indexed exactly as given).
func NormalizeTerm(s string, boolTerm bool) string {
	if boolTerm {
		return s
	}
	return strings.ToLower(s)
}

// DefaultBoolTerm implements the Term type's "name contains uppercase"
// default for bool_term, applied when the user has not explicitly set
// it (spec.md §4.E step 4).
func DefaultBoolTerm(fieldName string) bool {
	return fieldName != strings.ToLower(fieldName)
}

// IsMultiWord reports whether s contains more than one whitespace-
// separated token, used by GuessType to decide between Text and
// String for a bare string value.
func IsMultiWord(s string) bool {
	return len(strings.Fields(s)) > 1
}
