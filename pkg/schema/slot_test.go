package schema

import (
	"testing"

	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/stretchr/testify/assert"
)

func TestSlotOfIsDeterministic(t *testing.T) {
	assert.Equal(t, SlotOf("P", Integer), SlotOf("P", Integer))
}

func TestSlotOfDiffersByPrefixOrType(t *testing.T) {
	assert.NotEqual(t, SlotOf("P", Integer), SlotOf("Q", Integer))
	assert.NotEqual(t, SlotOf("P", Integer), SlotOf("P", Text))
}

func TestSlotOfNeverReturnsReservedSlots(t *testing.T) {
	for i := 0; i < 1000; i++ {
		slot := SlotOf(string(rune('a'+i%26)), FieldType(i%17))
		assert.NotEqual(t, BadSlot, slot)
		assert.NotEqual(t, SlotRoot, slot)
	}
}

func TestGuessFieldTypeScalars(t *testing.T) {
	assert.Equal(t, Boolean, guessFieldType(doc.Bool(true), false))
	assert.Equal(t, Integer, guessFieldType(doc.Int(-5), false))
	assert.Equal(t, Positive, guessFieldType(doc.Uint(5), false))
	assert.Equal(t, Float, guessFieldType(doc.Float(3.14), false))
	assert.Equal(t, Text, guessFieldType(doc.String("hello world, multi word"), false))
}
