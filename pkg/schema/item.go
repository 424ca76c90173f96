package schema

import (
	"fmt"
	"strings"

	"github.com/dubalu/xapiand-go/pkg/codec"
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/htm"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/tinylib/msgp/msgp"
)

// indexItem emits the term/value/accuracy operations for one scalar
// value of spec's field, for every partial index configuration the
// field's Complete step selected (spec.md §4.F.3 "Per-type
// Indexing").
func (e *Engine) indexItem(spec *Specification, value doc.Value, position int, opts Options) error {
	for _, partial := range Complete(spec) {
		if spec.Index.Has(FieldTerms) || spec.Index.Has(GlobalTerms) {
			if err := e.indexTerms(spec, partial.Prefix, value, position); err != nil {
				return err
			}
		}
		if spec.Index.Has(FieldValues) || spec.Index.Has(GlobalValues) {
			if err := e.indexValue(spec, value, opts); err != nil {
				return err
			}
		}
		if err := e.indexAccuracy(spec, partial.Prefix, value); err != nil {
			return err
		}
	}
	return nil
}

// indexTerms emits the posting(s) for one concrete type under prefix
// (spec.md §4.F.3 "Terms"): Text goes through a whitespace tokenizer
// with 1-indexed positions, String indexes the whole value as one
// term, Geo emits no plain term (its cover is stored as a value by
// indexGeoValue), and Term (and every other scalar type) is added as a
// single boolean or weighted term.
func (e *Engine) indexTerms(spec *Specification, prefix string, value doc.Value, position int) error {
	switch spec.SepTypes.Concrete {
	case Text:
		for i, tok := range strings.Fields(value.Str()) {
			norm := codec.NormalizeTerm(tok, false)
			e.document.AddTerm(prefix, norm, i+1)
		}
		return nil
	case String:
		e.document.AddTerm(prefix, value.Str(), position+1)
		return nil
	case Geo:
		return nil
	default:
		body, err := serializeTermBody(spec.SepTypes.Concrete, value)
		if err != nil {
			return err
		}
		term := codec.NormalizeTerm(string(body), spec.BoolTerm)
		if spec.BoolTerm {
			e.document.AddBooleanTerm(prefix, term)
		} else {
			e.document.AddTerm(prefix, term, position+1)
		}
		return nil
	}
}

// indexValue serializes value with pkg/codec and accumulates it under
// spec.Slot, to be finalized into a StringList (or merged GeoValue)
// once the whole object has been walked (spec.md §4.F step 5, §4.F.3
// "Values").
func (e *Engine) indexValue(spec *Specification, value doc.Value, opts Options) error {
	if spec.SepTypes.Concrete == Geo {
		return e.indexGeoValue(spec, value, opts)
	}
	blob, err := serializeValueBody(spec.SepTypes.Concrete, value)
	if err != nil {
		return err
	}
	if _, ok := e.slotBlobs[spec.Slot]; !ok {
		e.slotOrder = append(e.slotOrder, spec.Slot)
	}
	e.slotBlobs[spec.Slot] = append(e.slotBlobs[spec.Slot], blob)
	return nil
}

// indexGeoValue resolves value's cover (via the injected Coverer, if
// any) into HTM ranges and merges them into the slot's accumulated
// GeoValue — the union-of-ranges/centroids behavior spec.md §4.F.3
// calls for. Centroid computation itself is part of the black-boxed
// cover generator (spec.md §4.A); without a Coverer, geo values are
// skipped rather than guessed at.
func (e *Engine) indexGeoValue(spec *Specification, value doc.Value, opts Options) error {
	if opts.Coverer == nil {
		return nil
	}
	names, err := opts.Coverer.Cover(value.Str(), spec.Partials != 0, spec.Error)
	if err != nil {
		return xerror.Wrap(xerror.ClientError, "covering geometry", err)
	}
	if len(names) == 0 {
		return nil
	}
	ranges := make([]htm.Range, 0, len(names))
	for _, n := range names {
		ranges = append(ranges, htm.IDRangeOf(n))
	}
	gv := codec.GeoValue{Ranges: htm.MergeRanges(ranges)}
	if existing, ok := e.slotGeo[spec.Slot]; ok {
		existing.Merge(gv)
	} else {
		if _, ok := e.slotBlobs[spec.Slot]; !ok {
			e.slotOrder = append(e.slotOrder, spec.Slot)
		}
		stored := gv
		e.slotGeo[spec.Slot] = &stored
	}
	return nil
}

// indexAccuracy emits one boolean term per accuracy bucket (spec.md
// §4.F.3 "Accuracy terms"). Geo accuracy buckets name HTM levels, but
// generating them requires the same black-boxed cover this port
// leaves to an injected Coverer per field value rather than per
// bucket, so geo accuracy terms are not emitted here (see
// DESIGN.md).
func (e *Engine) indexAccuracy(spec *Specification, prefix string, value doc.Value) error {
	if len(spec.Accuracy) == 0 || spec.SepTypes.Concrete == Geo {
		return nil
	}
	num, ok := numericSeconds(spec.SepTypes.Concrete, value)
	if !ok {
		return nil
	}
	for _, a := range spec.Accuracy {
		var truncated float64
		switch spec.SepTypes.Concrete {
		case Date, Time, Timedelta:
			truncated = TruncateDate(num, UnitTime(a.Value))
		default:
			truncated = TruncateNumeric(num, a.Value)
		}
		body := serializeAccuracyTerm(spec.SepTypes.Concrete, truncated)
		e.document.AddBooleanTerm(a.Prefix, string(body))
	}
	return nil
}

func numericSeconds(concrete FieldType, value doc.Value) (float64, bool) {
	switch concrete {
	case Date:
		secs, err := codec.ParseTemporal(value)
		return secs, err == nil
	case Time:
		secs, err := codec.ParseTemporal(value)
		return secs, err == nil
	case Timedelta:
		secs, err := codec.ParseTimedelta(value)
		return secs, err == nil
	case Integer, Positive, Float:
		return value.AsNumber()
	default:
		return 0, false
	}
}

// serializeValueBody is the pkg/codec dispatch for the Values
// operation (spec.md §4.B) — every concrete type except Geo, which
// indexGeoValue handles via ranges/centroids instead of a single
// blob.
func serializeValueBody(concrete FieldType, value doc.Value) ([]byte, error) {
	switch concrete {
	case Boolean:
		return codec.SerializeBoolean(value.Bool()), nil
	case Integer:
		f, ok := value.AsNumber()
		if !ok {
			return nil, xerror.New(xerror.TypeMismatch, "expected a number")
		}
		return codec.SerializeInteger(int64(f)), nil
	case Positive:
		f, ok := value.AsNumber()
		if !ok {
			return nil, xerror.New(xerror.TypeMismatch, "expected a number")
		}
		return codec.SerializePositive(uint64(f)), nil
	case Float:
		f, ok := value.AsNumber()
		if !ok {
			return nil, xerror.New(xerror.TypeMismatch, "expected a number")
		}
		return codec.SerializeFloat(f), nil
	case Date, Time:
		secs, err := codec.ParseTemporal(value)
		if err != nil {
			return nil, err
		}
		return codec.SerializeFloat(secs), nil
	case Timedelta:
		secs, err := codec.ParseTimedelta(value)
		if err != nil {
			return nil, err
		}
		return codec.SerializeFloat(secs), nil
	case UUID:
		ids, err := codec.ParseUUIDList(value.Str())
		if err != nil {
			return nil, err
		}
		return codec.SerializeUUIDList(ids), nil
	case Text, String, Term:
		return []byte(value.Str()), nil
	default:
		return nil, xerror.New(xerror.MissingType, fmt.Sprintf("no serializer for concrete type %v", concrete))
	}
}

// serializeTermBody is the term-body counterpart of
// serializeValueBody, used for every concrete type that does not go
// through indexTerms' Text/String special cases.
func serializeTermBody(concrete FieldType, value doc.Value) ([]byte, error) {
	return serializeValueBody(concrete, value)
}

// finalize writes each accumulated slot's values into document as a
// length-prefixed StringList, or — for geo slots — the single merged
// GeoValue blob (spec.md §4.F step 5).
func (e *Engine) finalize() {
	for _, slot := range e.slotOrder {
		if gv, ok := e.slotGeo[slot]; ok {
			e.document.AddValue(slot, codec.SerializeGeo(*gv))
			continue
		}
		e.document.AddValue(slot, encodeStringList(e.slotBlobs[slot]))
	}
}

// encodeStringList renders a slot's accumulated value blobs as a
// length-prefixed list, the wire shape spec.md §4.F step 5 names for
// a value slot holding more than one entry (an array field, or a
// namespace field's values merged across occurrences).
func encodeStringList(items [][]byte) []byte {
	b := msgp.AppendArrayHeader(nil, uint32(len(items)))
	for _, item := range items {
		b = msgp.AppendBytes(b, item)
	}
	return b
}

// decodeStringList is the inverse of encodeStringList.
func decodeStringList(b []byte) ([][]byte, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, xerror.Wrap(xerror.BackendError, "decoding StringList header", err)
	}
	items := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		var item []byte
		item, b, err = msgp.ReadBytesBytes(b, nil)
		if err != nil {
			return nil, xerror.Wrap(xerror.BackendError, "decoding StringList entry", err)
		}
		items = append(items, item)
	}
	return items, nil
}
