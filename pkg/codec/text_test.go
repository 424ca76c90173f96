package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringRoundTrip(t *testing.T) {
	assert.Equal(t, "hello world", UnserializeString(SerializeString("hello world")))
}

func TestNormalizeTerm(t *testing.T) {
	assert.Equal(t, "active", NormalizeTerm("ACTIVE", false))
	assert.Equal(t, "ACTIVE", NormalizeTerm("ACTIVE", true))
}

func TestDefaultBoolTerm(t *testing.T) {
	assert.True(t, DefaultBoolTerm("Status"))
	assert.False(t, DefaultBoolTerm("status"))
}

func TestIsMultiWord(t *testing.T) {
	assert.True(t, IsMultiWord("hello world"))
	assert.False(t, IsMultiWord("hello"))
	assert.False(t, IsMultiWord(""))
}
