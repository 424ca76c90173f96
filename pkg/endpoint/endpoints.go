package endpoint

import "strings"

// Endpoints is an unordered set of Endpoint values. Membership is
// de-duplicated by Equal; iteration order is not significant and
// Hash is defined to not depend on it.
type Endpoints struct {
	members []Endpoint
}

// NewEndpoints builds a set from a list of endpoints, de-duplicating
// as it goes.
func NewEndpoints(eps ...Endpoint) *Endpoints {
	s := &Endpoints{}
	for _, e := range eps {
		s.Add(e)
	}
	return s
}

// Add inserts e if it is not already present.
func (s *Endpoints) Add(e Endpoint) {
	for _, existing := range s.members {
		if existing.Equal(e) {
			return
		}
	}
	s.members = append(s.members, e)
}

// Len reports the number of distinct endpoints in the set.
func (s *Endpoints) Len() int { return len(s.members) }

// Members returns the set's endpoints in insertion order. The slice
// is owned by the caller; mutating it does not affect the set.
func (s *Endpoints) Members() []Endpoint {
	out := make([]Endpoint, len(s.members))
	copy(out, s.members)
	return out
}

// Hash folds each member's Hash together with XOR, producing a value
// that is independent of insertion order (spec.md §4.C).
func (s *Endpoints) Hash() uint64 {
	var h uint64
	for _, e := range s.members {
		h ^= e.Hash()
	}
	return h
}

// Equal reports whether two sets contain the same endpoints,
// independent of order.
func (s *Endpoints) Equal(other *Endpoints) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, e := range s.members {
		found := false
		for _, oe := range other.members {
			if e.Equal(oe) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AsString renders the set as a comma-separated list of member
// strings, in insertion order.
func (s *Endpoints) AsString() string {
	parts := make([]string, len(s.members))
	for i, e := range s.members {
		parts[i] = e.AsString()
	}
	return strings.Join(parts, ",")
}
