package schema

import (
	"strings"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/codec"
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/htm"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// Options configures one Index call: the optional script hook, the
// pre-image fed to it, the current indexing method, and an optional
// geo cover generator. All fields may be left zero for a plain PUT
// with no scripting and no geo fields.
type Options struct {
	Method   Method
	Script   ScriptHost
	PreImage doc.Value
	Coverer  htm.Coverer
}

// Engine accumulates value-slot blobs across a single Index call,
// since a field's values are only finalized (spec.md §4.F step 5)
// once the whole object has been walked.
type Engine struct {
	document  *backend.Document
	slotOrder []uint32
	slotBlobs map[uint32][][]byte
	slotGeo   map[uint32]*codec.GeoValue
}

// Index walks object, resolving or creating a specification for each
// field path against root (the newest persisted schema, or nil for a
// brand-new index), and emits term/value operations into document
// (spec.md §4.F). It returns the specification tree to persist back —
// unchanged if no new fields were discovered, or a detached working
// copy if the schema grew.
func Index(root *Specification, object doc.Value, document *backend.Document, opts Options) (*Specification, error) {
	if object.Kind() != doc.KindMap {
		return root, xerror.New(xerror.ClientError, "indexed object must be a map")
	}
	if id, ok := object.Get("_id"); !ok || id.Kind() == doc.KindNil {
		return root, xerror.New(xerror.MissingRequired, "document is missing required field \"_id\"")
	}

	rootSpec := NewSpecification()
	var working *Specification
	if root != nil {
		Feed(rootSpec, root)
		working = root
	} else {
		working = rootSpec
	}

	engine := &Engine{
		document:  document,
		slotBlobs: make(map[uint32][][]byte),
		slotGeo:   make(map[uint32]*codec.GeoValue),
	}

	if err := engine.walkObject(rootSpec, object, opts, true); err != nil {
		return working, err
	}

	engine.finalize()

	if root == nil {
		return rootSpec, nil
	}
	return working, nil
}

// walkObject applies spec.md §4.F steps 2-4 to one object value: apply
// reserved-key overrides via Process, run the declared script (root
// object only — a nested object's "_script" key is reserved for a
// future per-field script hook and is not invoked here), then recurse
// into every non-reserved child, detecting same-level duplicates along
// the way. Both the top-level document and every nested plain-object
// field go through this same path, so a field's reserved keys are
// honored no matter how deep it is nested.
func (e *Engine) walkObject(spec *Specification, object doc.Value, opts Options, isRoot bool) error {
	wasConcrete := spec.Concrete
	priorBoolTerm := spec.BoolTerm

	children, err := Process(spec, object)
	if err != nil {
		return err
	}

	if isRoot && spec.Script != nil && opts.Script != nil {
		program, err := opts.Script.Compile(spec.Script.Hash, spec.Script.Body)
		if err != nil {
			return xerror.Wrap(xerror.ScriptError, "compiling script", err)
		}
		rewritten, err := program.Invoke(opts.Method, object, opts.PreImage)
		if err != nil {
			return xerror.Wrap(xerror.ScriptError, "running script", err)
		}
		if rewritten.Kind() != doc.KindMap {
			return xerror.New(xerror.ClientError, "script must return a map")
		}
		children, err = Process(spec, rewritten)
		if err != nil {
			return err
		}
	}

	if err := Consistency(spec, wasConcrete, priorBoolTerm); err != nil {
		return err
	}

	seen := make(map[string]bool, len(children))
	for _, pair := range children {
		if pair.Key == "" {
			continue
		}
		if strings.HasPrefix(pair.Key, "#") {
			continue
		}
		if seen[pair.Key] {
			return xerror.New(xerror.ClientError, "field \""+pair.Key+"\" is duplicated")
		}
		seen[pair.Key] = true

		if !spec.Recurse && !strings.HasPrefix(pair.Key, "_") {
			e.storeRaw(pair.Key, pair.Value)
			continue
		}

		childSpec, err := indexSubproperties(spec, pair.Key, opts)
		if err != nil {
			return err
		}
		if err := e.walkValue(childSpec, pair.Value, opts); err != nil {
			return err
		}
	}
	return nil
}

// storeRaw records a non-indexed field's subtree verbatim in the
// document's opaque data blob (spec.md §4.F step 4 "store the
// subtree verbatim in the emitted data, do not index"). Successive
// calls accumulate into one MsgPack map so Document.Data round-trips
// the original non-indexed fields.
func (e *Engine) storeRaw(key string, value doc.Value) {
	existing := doc.Map(nil)
	if len(e.document.Data) > 0 {
		if v, _, err := doc.Unmarshal(e.document.Data); err == nil {
			existing = v
		}
	}
	pairs := append([]doc.Pair(nil), existing.Pairs()...)
	pairs = append(pairs, doc.Pair{Key: key, Value: value})
	e.document.SetData(doc.Marshal(doc.Map(pairs)))
}

// indexSubproperties resolves parent's child named key, walking
// (spec.md §4.F.1): validating the segment, restarting namespace
// composition, feeding any persisted child, or detecting a dynamic
// UUID segment and materializing a new field.
func indexSubproperties(parent *Specification, key string, opts Options) (*Specification, error) {
	if !IsValidSegment(key) {
		return nil, xerror.New(xerror.ClientError, "invalid field name: "+key)
	}

	child, ok := parent.Children[key]
	isUUIDSegment := false
	if !ok {
		isUUIDSegment = PossiblyUUID(key)
		lookupKey := key
		if isUUIDSegment {
			lookupKey = uuidPrefixTag
		}
		if existing, found := parent.Children[lookupKey]; found {
			child = existing
		}
	}

	spec := NewSpecification()
	Feed(spec, child)
	spec.IsNamespace = spec.IsNamespace || parent.IsNamespace
	if parent.IsNamespace {
		spec.InsideNamespace = true
		spec.PartialPaths = true
	}
	spec.Strict = spec.Strict || parent.Strict
	spec.UUIDField = isUUIDSegment

	UpdatePrefixes(spec, parent.PrefixField, localPrefix(key), isUUIDSegment)

	if err := SetDefaultSpc(spec, key); err != nil {
		return nil, err
	}

	storeKey := key
	if isUUIDSegment {
		storeKey = uuidPrefixTag
	}
	parent.Children[storeKey] = spec

	return spec, nil
}

// localPrefix derives the one-segment term prefix contributed by a
// field name when the schema has not assigned one explicitly. Real
// Xapiand derives this from a counted namespace of short prefixes;
// this port uses the field name itself, which is enough to keep
// prefixes distinct and stable across runs without a central
// allocator.
func localPrefix(name string) string {
	return strings.ToUpper(name[:1]) + name
}

// walkValue handles one field's value per spec.md §4.F step 4: cast
// objects, arrays, nil (partial-path terms only), and scalars.
func (e *Engine) walkValue(spec *Specification, value doc.Value, opts Options) error {
	if value.Kind() == doc.KindMap {
		if tag, ok := singleCastTag(value); ok {
			inner, _ := value.Get(tag)
			if err := applyCastTag(spec, tag); err != nil {
				return err
			}
			return e.indexScalar(spec, inner, opts, 0)
		}
	}

	if spec.IsNamespace {
		e.document.AddBooleanTerm(spec.PrefixField, "")
	}

	switch value.Kind() {
	case doc.KindMap:
		if spec.Concrete {
			return xerror.New(xerror.TypeMismatch, "field type does not accept an object")
		}
		spec.SepTypes.Object = Object
		wasNamespace := spec.IsNamespace
		if err := e.walkObject(spec, value, opts, false); err != nil {
			return err
		}
		// A _namespace key inside this object is only applied by
		// walkObject, after the check above has already run.
		if spec.IsNamespace && !wasNamespace {
			e.document.AddBooleanTerm(spec.PrefixField, "")
		}
		return nil
	case doc.KindArray:
		spec.SepTypes.Array = Array
		for i, item := range value.Items() {
			if err := e.indexScalar(spec, item, opts, i); err != nil {
				return err
			}
		}
		return nil
	case doc.KindNil:
		if spec.SepTypes.Concrete == Empty && spec.Strict {
			return xerror.New(xerror.MissingType, "field has no concrete type in strict mode")
		}
		return nil
	default:
		return e.indexScalar(spec, value, opts, 0)
	}
}

func singleCastTag(v doc.Value) (string, bool) {
	pairs := v.Pairs()
	if len(pairs) != 1 {
		return "", false
	}
	if !strings.HasPrefix(pairs[0].Key, "_") {
		return "", false
	}
	if _, ok := castTagType(pairs[0].Key); !ok {
		return "", false
	}
	return pairs[0].Key, true
}

func castTagType(tag string) (FieldType, bool) {
	switch tag {
	case "_integer":
		return Integer, true
	case "_positive":
		return Positive, true
	case "_float":
		return Float, true
	case "_boolean":
		return Boolean, true
	case "_term":
		return Term, true
	case "_text":
		return Text, true
	case "_string":
		return String, true
	case "_uuid":
		return UUID, true
	case "_date":
		return Date, true
	case "_time":
		return Time, true
	case "_timedelta":
		return Timedelta, true
	case "_ewkt", "_point", "_circle", "_convex", "_polygon", "_chull",
		"_multipoint", "_multicircle", "_multiconvex", "_multipolygon",
		"_multichull", "_geo_collection", "_geo_intersection":
		return Geo, true
	default:
		return Empty, false
	}
}

// applyCastTag enforces the cast tag onto spec, failing with
// TypeMismatch if the field's type was already fixed to something
// else (spec.md §4.B "cast(object) enforces the cast tag; on
// mismatch returns TypeMismatch").
func applyCastTag(spec *Specification, tag string) error {
	concrete, _ := castTagType(tag)
	if spec.Concrete && spec.SepTypes.Concrete != concrete {
		return xerror.New(xerror.TypeMismatch, "field type does not match cast tag "+tag)
	}
	spec.SepTypes.Concrete = concrete
	return nil
}

// indexScalar completes spec (if not already) and calls indexItem,
// per spec.md §4.F step 4 "complete the spec if not already
// complete, then call index_item".
func (e *Engine) indexScalar(spec *Specification, value doc.Value, opts Options, position int) error {
	if spec.SepTypes.Object != Empty {
		return xerror.New(xerror.TypeMismatch, "field already has object children and cannot hold a scalar value")
	}
	if spec.SepTypes.Concrete == Empty {
		spec.SepTypes.Concrete = guessFieldType(value, spec.BoolTerm)
	}
	if !spec.Concrete {
		ValidateRequired(spec, SlotOf)
	}
	if !spec.Complete {
		Complete(spec)
	}
	return e.indexItem(spec, value, position, opts)
}
