package schema

import "strings"

// IndexCombination is the `index` bit set from spec.md §3: which of
// field/global terms/values a specification emits.
type IndexCombination uint8

const (
	FieldTerms  IndexCombination = 1 << iota // FT
	FieldValues                              // FV
	GlobalTerms                              // GT
	GlobalValues                             // GV

	None                   IndexCombination = 0
	FieldAll                                = FieldTerms | FieldValues
	Terms                                   = FieldTerms | GlobalTerms
	GlobalTermsFieldValues                  = GlobalTerms | FieldValues
	GlobalTermsFieldAll                     = GlobalTerms | FieldTerms | FieldValues
	GlobalValuesFieldTerms                  = GlobalValues | FieldTerms
	Values                                  = FieldValues | GlobalValues
	GlobalValuesFieldAll                    = GlobalValues | FieldTerms | FieldValues
	GlobalAll                               = GlobalTerms | GlobalValues
	GlobalAllFieldTerms                     = GlobalTerms | GlobalValues | FieldTerms
	GlobalAllFieldValues                    = GlobalTerms | GlobalValues | FieldValues
	All                                     = FieldTerms | FieldValues | GlobalTerms | GlobalValues
)

// Has reports whether all bits of other are set.
func (c IndexCombination) Has(other IndexCombination) bool {
	return c&other == other
}

// ParseIndexCombination parses a comma-separated list of bit names
// (e.g. "field_terms,global_values"). Order does not matter — spec.md
// §3 requires both a name and its commuted spelling to map to the
// same value, which naturally falls out of OR-ing bits independent
// of input order.
func ParseIndexCombination(s string) (IndexCombination, error) {
	var c IndexCombination
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		switch tok {
		case "field_terms":
			c |= FieldTerms
		case "field_values":
			c |= FieldValues
		case "global_terms":
			c |= GlobalTerms
		case "global_values":
			c |= GlobalValues
		case "field_all":
			c |= FieldAll
		case "terms":
			c |= Terms
		case "values":
			c |= Values
		case "global_all":
			c |= GlobalAll
		case "all":
			c |= All
		case "none":
			// contributes nothing
		default:
			return None, &parseError{tok}
		}
	}
	return c, nil
}

type parseError struct{ token string }

func (e *parseError) Error() string {
	return "schema: unknown index combination token " + e.token
}

// String renders the set bits back to their canonical comma-joined
// form, field-then-global, terms-then-values.
func (c IndexCombination) String() string {
	if c == None {
		return "none"
	}
	var parts []string
	if c.Has(FieldTerms) {
		parts = append(parts, "field_terms")
	}
	if c.Has(FieldValues) {
		parts = append(parts, "field_values")
	}
	if c.Has(GlobalTerms) {
		parts = append(parts, "global_terms")
	}
	if c.Has(GlobalValues) {
		parts = append(parts, "global_values")
	}
	return strings.Join(parts, ",")
}
