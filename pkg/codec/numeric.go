package codec

import (
	"math"

	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// SerializeFloat encodes v as a sortable 8-byte big-endian string:
// non-negative values get their sign bit forced to 1 (so they always
// sort after any negative value); negative values are bitwise
// inverted (so that larger magnitude, i.e. more negative, sorts
// first).
func SerializeFloat(v float64) []byte {
	bits := math.Float64bits(v)
	if bits&(1<<63) == 0 {
		bits |= 1 << 63
	} else {
		bits = ^bits
	}
	return beUint64(bits)
}

// UnserializeFloat is the inverse of SerializeFloat.
func UnserializeFloat(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, xerror.New(xerror.ClientError, "serialized float must be 8 bytes")
	}
	bits := uint64FromBE(b)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

func beUint64(v uint64) []byte {
	return []byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
}

func uint64FromBE(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

func minimalBigEndian(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var tmp [8]byte
	for i := 7; i >= 0; i-- {
		tmp[i] = byte(v)
		v >>= 8
	}
	start := 0
	for start < 7 && tmp[start] == 0 {
		start++
	}
	out := make([]byte, 8-start)
	copy(out, tmp[start:])
	return out
}

func bigEndianToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func invertBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = ^c
	}
	return out
}

// SerializeInteger encodes v as a variable-length sortable string: a
// one-byte header (0x80+len for non-negative, 0x7F-len for negative)
// followed by len magnitude bytes (bitwise inverted for negative
// values, so that larger magnitude sorts first among negatives).
func SerializeInteger(v int64) []byte {
	if v >= 0 {
		mag := minimalBigEndian(uint64(v))
		return append([]byte{0x80 + byte(len(mag))}, mag...)
	}
	var magU uint64
	if v == math.MinInt64 {
		magU = uint64(math.MaxInt64) + 1
	} else {
		magU = uint64(-v)
	}
	mag := minimalBigEndian(magU)
	header := byte(0x7F - len(mag))
	return append([]byte{header}, invertBytes(mag)...)
}

// UnserializeInteger is the inverse of SerializeInteger.
func UnserializeInteger(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, xerror.New(xerror.ClientError, "empty serialized integer")
	}
	header := b[0]
	rest := b[1:]
	if header >= 0x80 {
		length := int(header - 0x80)
		if len(rest) != length {
			return 0, xerror.New(xerror.ClientError, "malformed serialized integer")
		}
		return int64(bigEndianToUint64(rest)), nil
	}
	length := int(0x7F - header)
	if len(rest) != length {
		return 0, xerror.New(xerror.ClientError, "malformed serialized integer")
	}
	mag := bigEndianToUint64(invertBytes(rest))
	if mag > uint64(math.MaxInt64)+1 {
		return 0, xerror.New(xerror.ClientError, "serialized integer magnitude overflow")
	}
	if mag == uint64(math.MaxInt64)+1 {
		return math.MinInt64, nil
	}
	return -int64(mag), nil
}

// SerializePositive encodes a non-negative integer. Its uint64
// parameter cannot carry a sign, which is what sets Positive apart
// from Integer as a concrete type.
func SerializePositive(v uint64) []byte {
	mag := minimalBigEndian(v)
	return append([]byte{0x80 + byte(len(mag))}, mag...)
}

// UnserializePositive is the inverse of SerializePositive.
func UnserializePositive(b []byte) (uint64, error) {
	if len(b) == 0 || b[0] < 0x80 {
		return 0, xerror.New(xerror.ClientError, "malformed serialized positive integer")
	}
	length := int(b[0] - 0x80)
	rest := b[1:]
	if len(rest) != length {
		return 0, xerror.New(xerror.ClientError, "malformed serialized positive integer")
	}
	return bigEndianToUint64(rest), nil
}
