package codec

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 3.14159, -3.14159, math.MaxFloat64, -math.MaxFloat64, 1e-300, -1e-300}
	for _, v := range values {
		got, err := UnserializeFloat(SerializeFloat(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestFloatSortableOrder(t *testing.T) {
	values := []float64{-100.5, -3, -0.001, 0, 0.001, 3, 100.5}
	serialized := make([][]byte, len(values))
	for i, v := range values {
		serialized[i] = SerializeFloat(v)
	}
	shuffled := append([][]byte{}, serialized...)
	sort.Slice(shuffled, func(i, j int) bool { return bytes.Compare(shuffled[i], shuffled[j]) < 0 })
	assert.Equal(t, serialized, shuffled)
}

func TestIntegerRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 255, -255, math.MaxInt64, math.MinInt64, 1 << 40, -(1 << 40)}
	for _, v := range values {
		got, err := UnserializeInteger(SerializeInteger(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestIntegerSortableOrder(t *testing.T) {
	values := []int64{math.MinInt64, -(1 << 40), -255, -1, 0, 1, 255, 1 << 40, math.MaxInt64}
	serialized := make([][]byte, len(values))
	for i, v := range values {
		serialized[i] = SerializeInteger(v)
	}
	shuffled := append([][]byte{}, serialized...)
	sort.Slice(shuffled, func(i, j int) bool { return bytes.Compare(shuffled[i], shuffled[j]) < 0 })
	assert.Equal(t, serialized, shuffled)
}

func TestPositiveRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 255, 1 << 40, math.MaxUint64}
	for _, v := range values {
		got, err := UnserializePositive(SerializePositive(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestUnserializePositiveRejectsNegativeHeader(t *testing.T) {
	_, err := UnserializePositive(SerializeInteger(-5))
	assert.Error(t, err)
}
