package schema

import (
	"strings"

	"github.com/dubalu/xapiand-go/pkg/codec"
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// Feed loads flags, accuracy and prefixes from a persisted
// specification into spec, marking it found (spec.md §4.E step 1).
// A nil persisted argument leaves spec untouched and FieldFound
// false, the "new field" case.
func Feed(spec *Specification, persisted *Specification) {
	if persisted == nil {
		return
	}
	spec.SepTypes = persisted.SepTypes
	spec.PrefixField = persisted.PrefixField
	spec.PrefixUUID = persisted.PrefixUUID
	spec.Slot = persisted.Slot
	spec.Accuracy = append([]AccuracyEntry(nil), persisted.Accuracy...)
	spec.Index = persisted.Index
	spec.Language = persisted.Language
	spec.StopStrategy = persisted.StopStrategy
	spec.StemStrategy = persisted.StemStrategy
	spec.StemLanguage = persisted.StemLanguage
	spec.Partials = persisted.Partials
	spec.Error = persisted.Error
	spec.IsNamespace = persisted.IsNamespace
	spec.Dynamic = persisted.Dynamic
	spec.Strict = persisted.Strict
	spec.BoolTerm = persisted.BoolTerm
	spec.Store = persisted.Store
	spec.Recurse = persisted.Recurse
	spec.PartialPaths = persisted.PartialPaths
	spec.HasUUIDPrefix = persisted.HasUUIDPrefix
	spec.StaticEndpoint = persisted.StaticEndpoint
	spec.Concrete = persisted.Concrete
	spec.InsideNamespace = persisted.InsideNamespace
	spec.UUIDField = persisted.UUIDField
	spec.UUIDPath = persisted.UUIDPath
	spec.UUIDFieldStrategy = persisted.UUIDFieldStrategy
	spec.Endpoint = persisted.Endpoint
	spec.Script = persisted.Script
	spec.Children = persisted.Children
	spec.FieldFound = true
}

// Process applies the reserved-key overrides in obj onto spec,
// following spec.md §4.E step 2: "apply user overrides to the
// current spec; unknown keys become child fields." It returns the
// non-reserved entries for the caller (the schema engine) to recurse
// into as subfields, preserving document order so a duplicate key at
// the same level can be detected by the caller.
func Process(spec *Specification, obj doc.Value) ([]doc.Pair, error) {
	if obj.Kind() != doc.KindMap {
		return nil, nil
	}
	var children []doc.Pair
	for _, pair := range obj.Pairs() {
		name, ok := isReservedKey(pair.Key)
		if !ok {
			children = append(children, pair)
			continue
		}
		if err := applyReserved(spec, name, pair.Value); err != nil {
			return nil, err
		}
	}
	return children, nil
}

func applyReserved(spec *Specification, name string, v doc.Value) error {
	switch name {
	case "_index":
		if v.Kind() == doc.KindString {
			c, err := ParseIndexCombination(v.Str())
			if err != nil {
				return xerror.Wrap(xerror.ClientError, "invalid _index value", err)
			}
			spec.Index = c
			spec.userIndexSet = true
		}
	case "_store":
		spec.Store = v.Kind() == doc.KindBool && v.Bool()
	case "_recurse":
		spec.Recurse = v.Kind() == doc.KindBool && v.Bool()
	case "_dynamic":
		spec.Dynamic = v.Kind() == doc.KindBool && v.Bool()
	case "_strict":
		spec.Strict = v.Kind() == doc.KindBool && v.Bool()
	case "_bool_term":
		spec.BoolTerm = v.Kind() == doc.KindBool && v.Bool()
		spec.userBoolTermSet = true
	case "_namespace":
		spec.IsNamespace = v.Kind() == doc.KindBool && v.Bool()
	case "_partial_paths":
		spec.PartialPaths = v.Kind() == doc.KindBool && v.Bool()
	case "_language":
		spec.Language = v.Str()
	case "_stop_strategy":
		spec.StopStrategy = v.Str()
	case "_stem_strategy":
		spec.StemStrategy = v.Str()
	case "_stem_language":
		spec.StemLanguage = v.Str()
	case "_partials":
		if f, ok := v.AsNumber(); ok {
			spec.Partials = f
		}
	case "_error":
		if f, ok := v.AsNumber(); ok {
			spec.Error = f
		}
	case "_endpoint":
		spec.Endpoint = v.Str()
		spec.StaticEndpoint = true
	case "_prefix":
		spec.PrefixField = v.Str()
	case "_slot":
		if f, ok := v.AsNumber(); ok {
			spec.Slot = uint32(f)
		}
	case "_index_uuid_field":
		switch v.Str() {
		case "uuid":
			spec.UUIDFieldStrategy = StrategyUUID
		case "uuid_field":
			spec.UUIDFieldStrategy = StrategyUUIDField
		case "both":
			spec.UUIDFieldStrategy = StrategyBoth
		}
	case "_type":
		if err := applyTypeOverride(spec, v.Str()); err != nil {
			return err
		}
	case "_script":
		spec.Script = &ScriptRef{Body: v.Str()}
	case "_accuracy":
		if v.Kind() == doc.KindArray {
			// spec.md §9 open question: numeric and string accuracy
			// spellings (e.g. "day" or 86400) are accepted without a
			// dedup pass, matching the source's behavior (DESIGN.md).
			spec.Accuracy = nil
			for _, item := range v.Items() {
				val, ok := accuracyItemValue(item)
				if !ok {
					continue
				}
				spec.Accuracy = append(spec.Accuracy, AccuracyEntry{
					Value:  val,
					Prefix: GetPrefix(spec.PrefixField, val),
				})
			}
		}
	}
	return nil
}

func applyTypeOverride(spec *Specification, typeName string) error {
	concrete := concreteFromName(typeName)
	if concrete == Empty {
		return xerror.New(xerror.ClientError, "unknown field type: "+typeName)
	}
	if spec.Concrete && spec.SepTypes.Concrete != concrete {
		return xerror.New(xerror.ClientError, "field type is already fixed and cannot change")
	}
	spec.SepTypes.Concrete = concrete
	return nil
}

// accuracyItemValue resolves one _accuracy array entry: either a
// numeric bucket width/enum ordinal directly, or one of the named
// date-unit spellings (spec.md §9 open question on dual spellings).
func accuracyItemValue(v doc.Value) (float64, bool) {
	if f, ok := v.AsNumber(); ok {
		return f, true
	}
	if v.Kind() == doc.KindString {
		switch v.Str() {
		case "second":
			return float64(UnitSecond), true
		case "minute":
			return float64(UnitMinute), true
		case "hour":
			return float64(UnitHour), true
		case "day":
			return float64(UnitDay), true
		case "month":
			return float64(UnitMonth), true
		case "year":
			return float64(UnitYear), true
		case "decade":
			return float64(UnitDecade), true
		case "century":
			return float64(UnitCentury), true
		}
	}
	return 0, false
}

func concreteFromName(name string) FieldType {
	for _, c := range strings.Split(name, "/") {
		switch c {
		case "boolean":
			return Boolean
		case "date":
			return Date
		case "time":
			return Time
		case "timedelta":
			return Timedelta
		case "float":
			return Float
		case "integer":
			return Integer
		case "positive":
			return Positive
		case "geospatial":
			return Geo
		case "string":
			return String
		case "term":
			return Term
		case "text":
			return Text
		case "uuid":
			return UUID
		case "script":
			return Script
		}
	}
	return Empty
}

// Consistency checks that a Process that touched an already-fixed
// attribute did not change it (spec.md §4.E step 3): once
// spec.Concrete is true, the concrete type, bool_term, accuracy and
// namespace flags are immutable. applyReserved already enforces the
// concrete-type case inline (it has the old value in hand); this
// pass re-validates the whole spec once Process has finished, ahead
// of ValidateRequired filling in derived defaults.
func Consistency(spec *Specification, wasConcrete bool, priorBoolTerm bool) error {
	if wasConcrete && spec.Concrete && spec.BoolTerm != priorBoolTerm {
		return xerror.New(xerror.ClientError, "bool_term is already fixed and cannot change")
	}
	return nil
}

// ValidateRequired fills type-specific defaults once the concrete
// type is known (spec.md §4.E step 4): slot assignment, default
// accuracy buckets, text analyzer parameters, and the Text/String/
// Term "no values unless explicitly indexed" rule.
func ValidateRequired(spec *Specification, slotOf func(prefix string, concrete FieldType) uint32) {
	concrete := spec.SepTypes.Concrete
	if concrete == Empty {
		return
	}
	if spec.Slot == BadSlot || spec.Slot == SlotRoot {
		spec.Slot = slotOf(spec.PrefixField, concrete)
	}
	if spec.Accuracy == nil {
		spec.Accuracy = DefaultAccuracy(concrete, spec.PrefixField)
	}
	switch concrete {
	case Text, String, Term:
		if !spec.userIndexSet {
			spec.Index &^= FieldValues | GlobalValues
		}
		if concrete == Term && !spec.userBoolTermSet {
			spec.BoolTerm = codec.DefaultBoolTerm(spec.PrefixField)
		}
	}
	spec.Concrete = true
}

// SetDefaultSpc injects the _id field's fixed defaults when the full
// meta-name equals "_id" (spec.md §4.E step 5): term index, a
// non-text/string concrete type, fixed slot DB_SLOT_ID, bool term
// forced true.
func SetDefaultSpc(spec *Specification, fullMetaName string) error {
	if fullMetaName != "_id" {
		return nil
	}
	if spec.SepTypes.Concrete == Text || spec.SepTypes.Concrete == String {
		return xerror.New(xerror.ClientError, "_id cannot be text or string")
	}
	if spec.SepTypes.Concrete == Empty {
		spec.SepTypes.Concrete = Term
	}
	spec.Index = Terms
	spec.userIndexSet = true
	spec.Slot = SlotID
	spec.BoolTerm = true
	spec.userBoolTermSet = true
	spec.Concrete = true
	return nil
}

// UpdatePrefixes composes the field's prefix from the parent prefix
// and the local prefix, applying the UUIDFieldStrategy policy when
// the path is a UUID segment (spec.md §4.E step 6).
func UpdatePrefixes(spec *Specification, parentPrefix string, localPrefix string, isUUIDSegment bool) {
	if isUUIDSegment {
		spec.UUIDPath = true
		spec.PrefixUUID = parentPrefix + uuidPrefixTag
		spec.HasUUIDPrefix = true
	}
	if spec.PrefixField == "" {
		spec.PrefixField = localPrefix
	}
	spec.PrefixField = parentPrefix + spec.PrefixField
}

// uuidPrefixTag marks the synthetic "<uuid>" child key used when a
// path segment is a UUID (spec.md §4.F.1).
const uuidPrefixTag = "<uuid>"

// PartialIndexSpc is one physical index configuration a logical field
// emits operations into (spec.md §4.E step 7 "Complete").
type PartialIndexSpc struct {
	Prefix   string
	Strategy UUIDFieldStrategy
}

// Complete picks the set of PartialIndexSpc this field emits into:
// either the namespace-derived variant, or one/both of the UUID and
// literal-name prefixes per spec.Strategy when the path has a UUID
// segment (spec.md §4.E step 7).
func Complete(spec *Specification) []PartialIndexSpc {
	spec.Complete = true
	if !spec.UUIDPath {
		return []PartialIndexSpc{{Prefix: spec.PrefixField, Strategy: StrategyUUIDField}}
	}
	switch spec.UUIDFieldStrategy {
	case StrategyUUID:
		return []PartialIndexSpc{{Prefix: spec.PrefixUUID, Strategy: StrategyUUID}}
	case StrategyUUIDField:
		return []PartialIndexSpc{{Prefix: spec.PrefixField, Strategy: StrategyUUIDField}}
	default: // StrategyBoth
		return []PartialIndexSpc{
			{Prefix: spec.PrefixUUID, Strategy: StrategyUUID},
			{Prefix: spec.PrefixField, Strategy: StrategyUUIDField},
		}
	}
}
