package schema

import (
	"testing"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/codec"
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/htm"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTerm(d *backend.Document, prefix string) (backend.Term, bool) {
	for _, term := range d.Terms {
		if term.Prefix == prefix {
			return term, true
		}
	}
	return backend.Term{}, false
}

func countTerms(d *backend.Document, prefix string) int {
	n := 0
	for _, term := range d.Terms {
		if term.Prefix == prefix {
			n++
		}
	}
	return n
}

func TestIndexScalarFieldsTermsAndValues(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "title", Value: doc.String("Hello World")},
		{Key: "count", Value: doc.Int(5)},
	})

	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)
	require.NotNil(t, root)

	titleSpec := root.Children["title"]
	require.NotNil(t, titleSpec)
	assert.Equal(t, Text, titleSpec.SepTypes.Concrete)

	// "Hello World" tokenizes into two lowercase terms at positions 1,2
	assert.Equal(t, 2, countTerms(d, titleSpec.PrefixField))

	countSpec := root.Children["count"]
	require.NotNil(t, countSpec)
	assert.Equal(t, Positive, countSpec.SepTypes.Concrete)
	assert.Contains(t, d.Values, countSpec.Slot)
}

func TestIndexDuplicateFieldIsRejected(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "title", Value: doc.String("one")},
		{Key: "title", Value: doc.String("two")},
	})
	_, err := Index(nil, obj, d, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

func TestIndexMissingIDFieldIsRejected(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "title", Value: doc.String("one")},
	})
	_, err := Index(nil, obj, d, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.MissingRequired, xerror.KindOf(err))
}

func TestIndexNilIDFieldIsRejected(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.Nil()},
		{Key: "title", Value: doc.String("one")},
	})
	_, err := Index(nil, obj, d, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.MissingRequired, xerror.KindOf(err))
}

func TestIndexStrictModeRejectsUntypedNilField(t *testing.T) {
	// spec.md S3: _strict: true at root, PUT {"_id":"a","x":null}
	// without any type annotation for x raises MissingType.
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_strict", Value: doc.Bool(true)},
		{Key: "_id", Value: doc.String("a")},
		{Key: "x", Value: doc.Nil()},
	})
	_, err := Index(nil, obj, d, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.MissingType, xerror.KindOf(err))
}

func TestIndexStrictModeStillInfersTypedValues(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "_strict", Value: doc.Bool(true)},
		{Key: "note", Value: doc.String("single")},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)
	assert.Equal(t, String, root.Children["note"].SepTypes.Concrete)
}

func TestIndexCastTagForcesType(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "code", Value: doc.Map([]doc.Pair{{Key: "_term", Value: doc.String("ABC")}})},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)
	assert.Equal(t, Term, root.Children["code"].SepTypes.Concrete)
}

func TestIndexCastTagTypeMismatchAcrossCalls(t *testing.T) {
	d1 := backend.NewDocument()
	root, err := Index(nil, doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "age", Value: doc.Int(30)},
	}), d1, Options{})
	require.NoError(t, err)
	require.Equal(t, Positive, root.Children["age"].SepTypes.Concrete)

	d2 := backend.NewDocument()
	conflicting := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-2")},
		{Key: "age", Value: doc.Map([]doc.Pair{{Key: "_text", Value: doc.String("thirty")}})},
	})
	_, err = Index(root, conflicting, d2, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.TypeMismatch, xerror.KindOf(err))
}

func TestIndexNestedObjectRecursesAndHonorsReservedKeys(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "author", Value: doc.Map([]doc.Pair{
			{Key: "name", Value: doc.String("Ada")},
			{Key: "_strict", Value: doc.Bool(true)},
		})},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)

	authorSpec := root.Children["author"]
	require.NotNil(t, authorSpec)
	assert.Equal(t, Object, authorSpec.SepTypes.Object)
	assert.True(t, authorSpec.Strict)

	nameSpec := authorSpec.Children["name"]
	require.NotNil(t, nameSpec)
	assert.Equal(t, String, nameSpec.SepTypes.Concrete)
}

func TestIndexObjectCannotBecomeScalar(t *testing.T) {
	d1 := backend.NewDocument()
	obj1 := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "meta", Value: doc.Map([]doc.Pair{{Key: "x", Value: doc.Int(1)}})},
	})
	root, err := Index(nil, obj1, d1, Options{})
	require.NoError(t, err)
	require.True(t, root.Children["meta"].Concrete == false || root.Children["meta"].SepTypes.Object == Object)

	d2 := backend.NewDocument()
	obj2 := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-2")},
		{Key: "meta", Value: doc.Int(5)},
	})
	_, err = Index(root, obj2, d2, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.TypeMismatch, xerror.KindOf(err))
}

func TestIndexArrayFieldIndexesEachItem(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "tags", Value: doc.Array([]doc.Value{doc.String("a"), doc.String("b"), doc.String("c")})},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)

	tagsSpec := root.Children["tags"]
	require.NotNil(t, tagsSpec)
	assert.Equal(t, Array, tagsSpec.SepTypes.Array)
	assert.Equal(t, String, tagsSpec.SepTypes.Concrete)
	assert.Equal(t, 3, countTerms(d, tagsSpec.PrefixField))
}

func TestIndexNamespaceFieldEmitsPartialPathTerm(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "attrs", Value: doc.Map([]doc.Pair{
			{Key: "_namespace", Value: doc.Bool(true)},
			{Key: "color", Value: doc.String("red")},
		})},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)

	attrsSpec := root.Children["attrs"]
	require.NotNil(t, attrsSpec)
	_, ok := findTerm(d, attrsSpec.PrefixField)
	assert.True(t, ok, "namespace field must emit a boolean partial-path term")
}

func TestIndexIDFieldGetsFixedDefaults(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)

	idSpec := root.Children["_id"]
	require.NotNil(t, idSpec)
	assert.Equal(t, Term, idSpec.SepTypes.Concrete)
	assert.Equal(t, SlotID, idSpec.Slot)
	assert.True(t, idSpec.BoolTerm)

	found := false
	for _, term := range d.Terms {
		if term.Boolean && term.Term == "doc-1" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestIndexIDFieldRejectsTextType(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.Map([]doc.Pair{{Key: "_text", Value: doc.String("nope")}})},
	})
	_, err := Index(nil, obj, d, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.TypeMismatch, xerror.KindOf(err))
}

func TestIndexNonRecursedFieldsAreStoredRaw(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_recurse", Value: doc.Bool(false)},
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "payload", Value: doc.String("opaque")},
	})
	_, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, d.Data)

	stored, _, err := doc.Unmarshal(d.Data)
	require.NoError(t, err)
	v, ok := stored.Get("payload")
	require.True(t, ok)
	assert.Equal(t, "opaque", v.Str())
}

func TestIndexAccuracyTermsEmittedForNumericField(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "price", Value: doc.Float(12345)},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)

	priceSpec := root.Children["price"]
	require.NotEmpty(t, priceSpec.Accuracy)
	for _, a := range priceSpec.Accuracy {
		_, ok := findTerm(d, a.Prefix)
		assert.True(t, ok, "missing accuracy term at prefix %q", a.Prefix)
	}
}

type stubCoverer struct {
	names []string
	err   error
}

func (s stubCoverer) Cover(geometry any, partials bool, maxError float64) ([]string, error) {
	return s.names, s.err
}

func TestIndexGeoFieldWithCoverer(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "location", Value: doc.Map([]doc.Pair{
			{Key: "_point", Value: doc.String("POINT(1 2)")},
		})},
	})
	opts := Options{Coverer: stubCoverer{names: []string{"0123", "0124"}}}
	root, err := Index(nil, obj, d, opts)
	require.NoError(t, err)

	locSpec := root.Children["location"]
	require.NotNil(t, locSpec)
	assert.Equal(t, Geo, locSpec.SepTypes.Concrete)
	require.Contains(t, d.Values, locSpec.Slot)

	gv, err := codec.UnserializeGeo(d.Values[locSpec.Slot])
	require.NoError(t, err)
	assert.NotEmpty(t, gv.Ranges)
}

func TestIndexGeoFieldWithoutCovererSkipsValue(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "location", Value: doc.Map([]doc.Pair{
			{Key: "_point", Value: doc.String("POINT(1 2)")},
		})},
	})
	root, err := Index(nil, obj, d, Options{})
	require.NoError(t, err)
	locSpec := root.Children["location"]
	require.NotNil(t, locSpec)
	assert.NotContains(t, d.Values, locSpec.Slot)
}

type stubProgram struct {
	rewritten doc.Value
	err       error
}

func (p stubProgram) Invoke(method Method, data, preImage doc.Value) (doc.Value, error) {
	return p.rewritten, p.err
}

type stubHost struct {
	program Program
	err     error
}

func (h stubHost) Compile(hash uint64, body string) (Program, error) {
	return h.program, h.err
}

func TestIndexScriptRewritesObjectBeforeIndexing(t *testing.T) {
	d := backend.NewDocument()
	obj := doc.Map([]doc.Pair{
		{Key: "_id", Value: doc.String("doc-1")},
		{Key: "_script", Value: doc.String("doubleCount")},
		{Key: "count", Value: doc.Int(1)},
	})
	rewritten := doc.Map([]doc.Pair{{Key: "count", Value: doc.Int(2)}})
	opts := Options{Script: stubHost{program: stubProgram{rewritten: rewritten}}}

	root, err := Index(nil, obj, d, opts)
	require.NoError(t, err)
	countSpec := root.Children["count"]
	require.NotNil(t, countSpec)

	blobs, err := decodeStringList(d.Values[countSpec.Slot])
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	got, err := codec.UnserializePositive(blobs[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)
}

func TestIndexNonMapObjectIsRejected(t *testing.T) {
	d := backend.NewDocument()
	_, err := Index(nil, doc.String("not a map"), d, Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

func TestIsValidSegmentUsedByIndexSubproperties(t *testing.T) {
	_, err := indexSubproperties(NewSpecification(), "bad/name", Options{})
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

var _ htm.Coverer = stubCoverer{}
