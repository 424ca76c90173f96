package codec

import (
	"testing"

	"github.com/dubalu/xapiand-go/pkg/htm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoRoundTrip(t *testing.T) {
	g := GeoValue{
		Ranges: []htm.Range{
			{Start: htm.IDRangeOf("120").Start, End: htm.IDRangeOf("120").End},
			{Start: htm.IDRangeOf("2").Start, End: htm.IDRangeOf("2").End},
		},
		Centroids: []Cartesian{
			{X: 0.5, Y: -0.5, Z: 0.70710678},
			{X: -1, Y: 0, Z: 0},
		},
	}
	got, err := UnserializeGeo(SerializeGeo(g))
	require.NoError(t, err)
	require.Len(t, got.Ranges, 2)
	assert.Equal(t, g.Ranges, got.Ranges)
	require.Len(t, got.Centroids, 2)
	for i := range g.Centroids {
		assert.InDelta(t, g.Centroids[i].X, got.Centroids[i].X, 1e-7)
		assert.InDelta(t, g.Centroids[i].Y, got.Centroids[i].Y, 1e-7)
		assert.InDelta(t, g.Centroids[i].Z, got.Centroids[i].Z, 1e-7)
	}
}

func TestGeoRoundTripEmpty(t *testing.T) {
	got, err := UnserializeGeo(SerializeGeo(GeoValue{}))
	require.NoError(t, err)
	assert.Empty(t, got.Ranges)
	assert.Empty(t, got.Centroids)
}

func TestUnserializeGeoRejectsTruncated(t *testing.T) {
	_, err := UnserializeGeo([]byte{0, 0})
	assert.Error(t, err)
}

func TestGeoValueMergeDedupesRanges(t *testing.T) {
	a := GeoValue{Ranges: []htm.Range{htm.IDRangeOf("12")}}
	b := GeoValue{Ranges: []htm.Range{htm.IDRangeOf("120")}}
	a.Merge(b)
	merged := htm.MergeRanges([]htm.Range{htm.IDRangeOf("12")})
	assert.Equal(t, merged, a.Ranges)
}
