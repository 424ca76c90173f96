package schema

import (
	"testing"

	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedNilPersistedLeavesSpecUntouched(t *testing.T) {
	spec := NewSpecification()
	Feed(spec, nil)
	assert.False(t, spec.FieldFound)
	assert.Equal(t, Empty, spec.SepTypes.Concrete)
}

func TestFeedCopiesPersistedState(t *testing.T) {
	persisted := NewSpecification()
	persisted.SepTypes.Concrete = Integer
	persisted.PrefixField = "PAGE"
	persisted.Slot = 123
	persisted.Concrete = true

	spec := NewSpecification()
	Feed(spec, persisted)

	assert.True(t, spec.FieldFound)
	assert.Equal(t, Integer, spec.SepTypes.Concrete)
	assert.Equal(t, "PAGE", spec.PrefixField)
	assert.Equal(t, uint32(123), spec.Slot)
	assert.True(t, spec.Concrete)

	// mutating the copy's accuracy slice must not affect the source
	spec.Accuracy = append(spec.Accuracy, AccuracyEntry{Value: 1})
	assert.Empty(t, persisted.Accuracy)
}

func TestProcessSplitsReservedFromChildren(t *testing.T) {
	spec := NewSpecification()
	obj := doc.Map([]doc.Pair{
		{Key: "_store", Value: doc.Bool(false)},
		{Key: "title", Value: doc.String("hello")},
		{Key: "_strict", Value: doc.Bool(true)},
		{Key: "body", Value: doc.String("world")},
	})

	children, err := Process(spec, obj)
	require.NoError(t, err)

	assert.False(t, spec.Store)
	assert.True(t, spec.Strict)
	require.Len(t, children, 2)
	assert.Equal(t, "title", children[0].Key)
	assert.Equal(t, "body", children[1].Key)
}

func TestProcessIndexOverride(t *testing.T) {
	spec := NewSpecification()
	obj := doc.Map([]doc.Pair{
		{Key: "_index", Value: doc.String("field_terms,global_values")},
	})
	_, err := Process(spec, obj)
	require.NoError(t, err)
	assert.Equal(t, GlobalValuesFieldTerms, spec.Index)
	assert.True(t, spec.userIndexSet)
}

func TestProcessTypeOverrideMonotonicity(t *testing.T) {
	spec := NewSpecification()
	_, err := Process(spec, doc.Map([]doc.Pair{{Key: "_type", Value: doc.String("integer")}}))
	require.NoError(t, err)
	assert.Equal(t, Integer, spec.SepTypes.Concrete)

	spec.Concrete = true
	_, err = Process(spec, doc.Map([]doc.Pair{{Key: "_type", Value: doc.String("text")}}))
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

func TestProcessTypeOverrideUnknownName(t *testing.T) {
	spec := NewSpecification()
	_, err := Process(spec, doc.Map([]doc.Pair{{Key: "_type", Value: doc.String("bogus")}}))
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

func TestProcessAccuracyMixedSpellings(t *testing.T) {
	spec := NewSpecification()
	spec.PrefixField = "P"
	_, err := Process(spec, doc.Map([]doc.Pair{
		{Key: "_accuracy", Value: doc.Array([]doc.Value{
			doc.Float(86400), doc.String("day"),
		})},
	}))
	require.NoError(t, err)
	// spec.md §9: both spellings kept, no dedup pass
	require.Len(t, spec.Accuracy, 2)
	assert.Equal(t, 86400.0, spec.Accuracy[0].Value)
	assert.Equal(t, float64(UnitDay), spec.Accuracy[1].Value)
}

func TestConsistencyRejectsBoolTermChangeOnFixedField(t *testing.T) {
	spec := NewSpecification()
	spec.Concrete = true
	spec.BoolTerm = true
	err := Consistency(spec, true, false)
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

func TestConsistencyAllowsBoolTermChangeOnNewField(t *testing.T) {
	spec := NewSpecification()
	spec.Concrete = false
	spec.BoolTerm = true
	assert.NoError(t, Consistency(spec, false, false))
}

func TestConsistencyAllowsUnchangedBoolTerm(t *testing.T) {
	spec := NewSpecification()
	spec.Concrete = true
	spec.BoolTerm = true
	assert.NoError(t, Consistency(spec, true, true))
}

func TestValidateRequiredAssignsSlotOnce(t *testing.T) {
	spec := NewSpecification()
	spec.SepTypes.Concrete = Integer
	spec.Slot = BadSlot
	spec.PrefixField = "P"
	ValidateRequired(spec, SlotOf)
	assert.NotEqual(t, BadSlot, spec.Slot)
	assert.True(t, spec.Concrete)
}

func TestValidateRequiredNoOpOnEmptyType(t *testing.T) {
	spec := NewSpecification()
	spec.Slot = BadSlot
	ValidateRequired(spec, SlotOf)
	assert.Equal(t, BadSlot, spec.Slot)
	assert.False(t, spec.Concrete)
}

func TestValidateRequiredClearsValuesForTextUnlessUserSet(t *testing.T) {
	spec := NewSpecification()
	spec.SepTypes.Concrete = Text
	spec.PrefixField = "P"
	spec.Index = FieldAll
	ValidateRequired(spec, SlotOf)
	assert.False(t, spec.Index.Has(FieldValues))
	assert.True(t, spec.Index.Has(FieldTerms))
}

func TestValidateRequiredRespectsUserIndexOverride(t *testing.T) {
	spec := NewSpecification()
	spec.SepTypes.Concrete = Text
	spec.PrefixField = "P"
	spec.Index = FieldAll
	spec.userIndexSet = true
	ValidateRequired(spec, SlotOf)
	assert.True(t, spec.Index.Has(FieldValues))
}

func TestValidateRequiredDefaultBoolTermForTerm(t *testing.T) {
	spec := NewSpecification()
	spec.SepTypes.Concrete = Term
	spec.PrefixField = "MyField"
	ValidateRequired(spec, SlotOf)
	assert.True(t, spec.BoolTerm)
}

func TestValidateRequiredAssignsDefaultAccuracy(t *testing.T) {
	spec := NewSpecification()
	spec.SepTypes.Concrete = Integer
	spec.PrefixField = "P"
	ValidateRequired(spec, SlotOf)
	assert.Len(t, spec.Accuracy, len(DefaultNumericAccuracy))
}

func TestSetDefaultSpcOnlyAppliesToID(t *testing.T) {
	spec := NewSpecification()
	require.NoError(t, SetDefaultSpc(spec, "title"))
	assert.Equal(t, Empty, spec.SepTypes.Concrete)
}

func TestSetDefaultSpcFixesIDField(t *testing.T) {
	spec := NewSpecification()
	require.NoError(t, SetDefaultSpc(spec, "_id"))
	assert.Equal(t, Term, spec.SepTypes.Concrete)
	assert.Equal(t, Terms, spec.Index)
	assert.Equal(t, SlotID, spec.Slot)
	assert.True(t, spec.BoolTerm)
	assert.True(t, spec.Concrete)
}

func TestSetDefaultSpcRejectsTextOrString(t *testing.T) {
	spec := NewSpecification()
	spec.SepTypes.Concrete = Text
	err := SetDefaultSpc(spec, "_id")
	require.Error(t, err)
	assert.Equal(t, xerror.ClientError, xerror.KindOf(err))
}

func TestUpdatePrefixesComposesParentAndLocal(t *testing.T) {
	spec := NewSpecification()
	UpdatePrefixes(spec, "ROOT.", "Title", false)
	assert.Equal(t, "ROOT.Title", spec.PrefixField)
	assert.False(t, spec.UUIDPath)
}

func TestUpdatePrefixesUUIDSegment(t *testing.T) {
	spec := NewSpecification()
	UpdatePrefixes(spec, "ROOT.", "<uuid>", true)
	assert.True(t, spec.UUIDPath)
	assert.True(t, spec.HasUUIDPrefix)
	assert.Equal(t, "ROOT.<uuid>", spec.PrefixUUID)
}

func TestUpdatePrefixesKeepsExplicitPrefix(t *testing.T) {
	spec := NewSpecification()
	spec.PrefixField = "CUSTOM"
	UpdatePrefixes(spec, "ROOT.", "Title", false)
	assert.Equal(t, "ROOT.CUSTOM", spec.PrefixField)
}

func TestCompleteNonUUIDPath(t *testing.T) {
	spec := NewSpecification()
	spec.PrefixField = "P"
	partials := Complete(spec)
	require.Len(t, partials, 1)
	assert.Equal(t, "P", partials[0].Prefix)
	assert.True(t, spec.Complete)
}

func TestCompleteUUIDStrategies(t *testing.T) {
	base := func(strategy UUIDFieldStrategy) *Specification {
		spec := NewSpecification()
		spec.UUIDPath = true
		spec.PrefixField = "FIELD"
		spec.PrefixUUID = "UUID"
		spec.UUIDFieldStrategy = strategy
		return spec
	}

	uuidOnly := Complete(base(StrategyUUID))
	require.Len(t, uuidOnly, 1)
	assert.Equal(t, "UUID", uuidOnly[0].Prefix)

	fieldOnly := Complete(base(StrategyUUIDField))
	require.Len(t, fieldOnly, 1)
	assert.Equal(t, "FIELD", fieldOnly[0].Prefix)

	both := Complete(base(StrategyBoth))
	require.Len(t, both, 2)
	assert.Equal(t, "UUID", both[0].Prefix)
	assert.Equal(t, "FIELD", both[1].Prefix)
}
