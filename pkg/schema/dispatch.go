package schema

import "hash/fnv"

// fnv1a32 hashes key the way spec.md §9 calls for: "an explicit
// dispatch map keyed by FNV-1a(key) returning an optional handler;
// absent → treat as child field" — replacing the original's
// exception-based out_of_range dispatch with a plain lookup.
func fnv1a32(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

// reservedDispatch maps the FNV-1a hash of every reserved key
// (spec.md §6 "Reserved schema keys") to its name, so Process can
// tell "known reserved key" apart from "child field" with a single
// map lookup instead of a chain of string comparisons or an
// exception-based fallthrough.
var reservedDispatch = buildReservedDispatch()

func buildReservedDispatch() map[uint32]string {
	names := []string{
		"_type", "_prefix", "_slot", "_index", "_store", "_recurse",
		"_dynamic", "_strict", "_integer_detection", "_positive_detection",
		"_float_detection", "_boolean_detection", "_date_detection",
		"_time_detection", "_timedelta_detection", "_geo_detection",
		"_uuid_detection", "_text_detection", "_string_detection",
		"_term_detection", "_bool_term", "_namespace", "_partial_paths",
		"_index_uuid_field", "_schema", "_weight", "_position",
		"_spelling", "_positions", "_language", "_stop_strategy",
		"_stem_strategy", "_stem_language", "_accuracy", "_acc_prefix",
		"_partials", "_error", "_value", "_endpoint", "_script",
	}
	m := make(map[uint32]string, len(names))
	for _, name := range names {
		m[fnv1a32(name)] = name
	}
	return m
}

// isReservedKey reports whether key is one of the reserved schema
// keys, via the FNV-1a dispatch map rather than a direct string
// comparison chain (spec.md §9).
func isReservedKey(key string) (string, bool) {
	name, ok := reservedDispatch[fnv1a32(key)]
	return name, ok
}
