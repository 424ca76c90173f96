package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSepTypesTypeName(t *testing.T) {
	cases := []struct {
		types SepTypes
		want  string
	}{
		{SepTypes{}, ""},
		{SepTypes{Concrete: Integer}, "integer"},
		{SepTypes{Object: Object, Array: Array, Concrete: Integer}, "object/array/integer"},
		{SepTypes{Foreign: Foreign, Object: Object}, "foreign/object"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.types.TypeName())
	}
}

func TestSepTypesIsEmpty(t *testing.T) {
	assert.True(t, SepTypes{}.IsEmpty())
	assert.False(t, SepTypes{Concrete: Boolean}.IsEmpty())
}

func TestFieldTypeIsConcrete(t *testing.T) {
	assert.True(t, Integer.IsConcrete())
	assert.True(t, Text.IsConcrete())
	assert.False(t, Object.IsConcrete())
	assert.False(t, Array.IsConcrete())
	assert.False(t, Foreign.IsConcrete())
	assert.False(t, Empty.IsConcrete())
}
