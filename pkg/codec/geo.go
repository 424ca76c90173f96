package codec

import (
	"encoding/binary"
	"math"

	"github.com/dubalu/xapiand-go/pkg/htm"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// cartesianScale is the fixed-point scale applied to unit-sphere
// cartesian coordinates before truncating to a 32-bit integer,
// matching the original implementation's geo/cartesian.h.
const cartesianScale = 1e8

// Cartesian is a point on (or near) the unit sphere.
type Cartesian struct {
	X, Y, Z float64
}

// GeoValue is the decoded form of a Geo field's stored value: the set
// of max-level id ranges covering the geometry, plus the cartesian
// centroids used for distance scoring.
type GeoValue struct {
	Ranges    []htm.Range
	Centroids []Cartesian
}

// Merge unions new ranges/centroids into an existing GeoValue, as
// required when a namespace/array field accumulates multiple geo
// values into one slot (spec.md §4.F.3).
func (g *GeoValue) Merge(other GeoValue) {
	g.Ranges = htm.MergeRanges(append(g.Ranges, other.Ranges...))
	g.Centroids = append(g.Centroids, other.Centroids...)
}

func put56(b []byte, v uint64) {
	b[0] = byte(v >> 48)
	b[1] = byte(v >> 40)
	b[2] = byte(v >> 32)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 16)
	b[5] = byte(v >> 8)
	b[6] = byte(v)
}

func get56(b []byte) uint64 {
	return uint64(b[0])<<48 | uint64(b[1])<<40 | uint64(b[2])<<32 | uint64(b[3])<<24 |
		uint64(b[4])<<16 | uint64(b[5])<<8 | uint64(b[6])
}

// SerializeGeo encodes a GeoValue as
// len-prefixed(list(range)) ++ len-prefixed(list(cartesian)).
func SerializeGeo(g GeoValue) []byte {
	out := make([]byte, 4, 4+len(g.Ranges)*14+4+len(g.Centroids)*12)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(g.Ranges)))
	for _, r := range g.Ranges {
		var buf [14]byte
		put56(buf[0:7], r.Start)
		put56(buf[7:14], r.End)
		out = append(out, buf[:]...)
	}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(g.Centroids)))
	out = append(out, countBuf[:]...)
	for _, c := range g.Centroids {
		var buf [12]byte
		binary.BigEndian.PutUint32(buf[0:4], uint32(int32(math.Round(c.X*cartesianScale))))
		binary.BigEndian.PutUint32(buf[4:8], uint32(int32(math.Round(c.Y*cartesianScale))))
		binary.BigEndian.PutUint32(buf[8:12], uint32(int32(math.Round(c.Z*cartesianScale))))
		out = append(out, buf[:]...)
	}
	return out
}

// UnserializeGeo is the inverse of SerializeGeo.
func UnserializeGeo(b []byte) (GeoValue, error) {
	if len(b) < 4 {
		return GeoValue{}, xerror.New(xerror.ClientError, "truncated geo value")
	}
	rangeCount := binary.BigEndian.Uint32(b[0:4])
	off := 4
	var g GeoValue
	for i := uint32(0); i < rangeCount; i++ {
		if off+14 > len(b) {
			return GeoValue{}, xerror.New(xerror.ClientError, "truncated geo range list")
		}
		start := get56(b[off : off+7])
		end := get56(b[off+7 : off+14])
		g.Ranges = append(g.Ranges, htm.Range{Start: start, End: end})
		off += 14
	}
	if off+4 > len(b) {
		return GeoValue{}, xerror.New(xerror.ClientError, "truncated geo centroid count")
	}
	centroidCount := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	for i := uint32(0); i < centroidCount; i++ {
		if off+12 > len(b) {
			return GeoValue{}, xerror.New(xerror.ClientError, "truncated geo centroid list")
		}
		x := int32(binary.BigEndian.Uint32(b[off : off+4]))
		y := int32(binary.BigEndian.Uint32(b[off+4 : off+8]))
		z := int32(binary.BigEndian.Uint32(b[off+8 : off+12]))
		g.Centroids = append(g.Centroids, Cartesian{
			X: float64(x) / cartesianScale,
			Y: float64(y) / cartesianScale,
			Z: float64(z) / cartesianScale,
		})
		off += 12
	}
	return g, nil
}
