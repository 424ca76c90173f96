package schema

import (
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// DBVersionSchema is the fixed schema-tree format version stamped at
// the root of every persisted schema (spec.md §3 "Schema tree").
const DBVersionSchema = 2

// Schema is the persisted schema tree for one index: either an
// inline Root specification or, for an index whose schema actually
// lives elsewhere, a ForeignEndpoint reference (spec.md §3 "Schema
// tree").
type Schema struct {
	Version        int
	ForeignEndpoint string
	Root           *Specification
}

// ToValue renders spec (and its children, recursively) as the
// persisted doc.Value map shape: reserved-key attributes alongside
// child entries keyed by field name, mirroring how an incoming
// document itself looks (spec.md §3 "Non-root nodes each carry their
// specification attributes and may have child entries keyed by field
// names").
func ToValue(spec *Specification) doc.Value {
	var pairs []doc.Pair
	if !spec.SepTypes.IsEmpty() {
		pairs = append(pairs, doc.Pair{Key: "_type", Value: doc.String(spec.SepTypes.TypeName())})
	}
	if spec.PrefixField != "" {
		pairs = append(pairs, doc.Pair{Key: "_prefix", Value: doc.String(spec.PrefixField)})
	}
	if spec.Slot != 0 {
		pairs = append(pairs, doc.Pair{Key: "_slot", Value: doc.Uint(uint64(spec.Slot))})
	}
	pairs = append(pairs, doc.Pair{Key: "_index", Value: doc.String(spec.Index.String())})
	pairs = append(pairs, doc.Pair{Key: "_store", Value: doc.Bool(spec.Store)})
	pairs = append(pairs, doc.Pair{Key: "_recurse", Value: doc.Bool(spec.Recurse)})
	pairs = append(pairs, doc.Pair{Key: "_dynamic", Value: doc.Bool(spec.Dynamic)})
	pairs = append(pairs, doc.Pair{Key: "_strict", Value: doc.Bool(spec.Strict)})
	pairs = append(pairs, doc.Pair{Key: "_bool_term", Value: doc.Bool(spec.BoolTerm)})
	pairs = append(pairs, doc.Pair{Key: "_namespace", Value: doc.Bool(spec.IsNamespace)})
	pairs = append(pairs, doc.Pair{Key: "_partial_paths", Value: doc.Bool(spec.PartialPaths)})
	if spec.Language != "" {
		pairs = append(pairs, doc.Pair{Key: "_language", Value: doc.String(spec.Language)})
	}
	if spec.StopStrategy != "" {
		pairs = append(pairs, doc.Pair{Key: "_stop_strategy", Value: doc.String(spec.StopStrategy)})
	}
	if spec.StemStrategy != "" {
		pairs = append(pairs, doc.Pair{Key: "_stem_strategy", Value: doc.String(spec.StemStrategy)})
	}
	if spec.StemLanguage != "" {
		pairs = append(pairs, doc.Pair{Key: "_stem_language", Value: doc.String(spec.StemLanguage)})
	}
	if len(spec.Accuracy) > 0 {
		items := make([]doc.Value, len(spec.Accuracy))
		for i, a := range spec.Accuracy {
			items[i] = doc.Float(a.Value)
		}
		pairs = append(pairs, doc.Pair{Key: "_accuracy", Value: doc.Array(items)})
	}
	if spec.Endpoint != "" {
		pairs = append(pairs, doc.Pair{Key: "_endpoint", Value: doc.String(spec.Endpoint)})
	}
	if spec.Script != nil {
		pairs = append(pairs, doc.Pair{Key: "_script", Value: doc.String(spec.Script.Body)})
	}
	for name, child := range spec.Children {
		pairs = append(pairs, doc.Pair{Key: name, Value: ToValue(child)})
	}
	return doc.Map(pairs)
}

// FromValue parses a persisted doc.Value map back into a
// Specification tree, inverse of ToValue: reserved keys are applied
// via the same dispatch Process uses, non-reserved keys become child
// specifications.
func FromValue(v doc.Value) *Specification {
	spec := NewSpecification()
	if v.Kind() != doc.KindMap {
		return spec
	}
	for _, pair := range v.Pairs() {
		if name, ok := isReservedKey(pair.Key); ok {
			_ = applyReserved(spec, name, pair.Value)
			continue
		}
		spec.Children[pair.Key] = FromValue(pair.Value)
	}
	spec.Concrete = !spec.SepTypes.IsEmpty()
	spec.FieldFound = true
	return spec
}

// MarshalSchema renders s as the RESERVED_SCHEMA metadata blob.
func MarshalSchema(s *Schema) []byte {
	pairs := []doc.Pair{
		{Key: "version", Value: doc.Int(int64(s.Version))},
	}
	if s.ForeignEndpoint != "" {
		pairs = append(pairs,
			doc.Pair{Key: "type", Value: doc.String("foreign/object")},
			doc.Pair{Key: "endpoint", Value: doc.String(s.ForeignEndpoint)},
		)
	} else if s.Root != nil {
		pairs = append(pairs, ToValue(s.Root).Pairs()...)
	}
	return doc.Marshal(doc.Map(pairs))
}

// UnmarshalSchema parses the RESERVED_SCHEMA metadata blob written
// by MarshalSchema.
func UnmarshalSchema(b []byte) (*Schema, error) {
	v, _, err := doc.Unmarshal(b)
	if err != nil {
		return nil, xerror.Wrap(xerror.InvalidSchema, "decoding schema tree", err)
	}
	s := &Schema{Version: DBVersionSchema}
	if versionVal, ok := v.Get("version"); ok {
		if f, ok := versionVal.AsNumber(); ok {
			s.Version = int(f)
		}
	}
	if typeVal, ok := v.Get("type"); ok && typeVal.Str() == "foreign/object" {
		if ep, ok := v.Get("endpoint"); ok {
			s.ForeignEndpoint = ep.Str()
		}
		return s, nil
	}
	s.Root = FromValue(v)
	return s, nil
}
