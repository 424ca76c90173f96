/*
Package codec implements the lossless, sort-order-preserving byte
encodings described in spec.md §4.B: one (serialize, unserialize) pair
per concrete field type, plus GuessType for schema-less type
inference from an incoming doc.Value.

Sortable encodings:

  - Float: 64-bit IEEE-754 with the sign bit/one's-complement trick so
    that unsigned byte-wise comparison matches numeric comparison.
  - Integer/Positive: a variable-length magnitude encoding with a
    one-byte header whose high bit distinguishes sign (set for
    non-negative) and whose low bits encode the magnitude's byte
    length, so that byte order still matches numeric order across
    varying lengths.
  - Date/Time/Timedelta: parsed down to a float64 of seconds (since
    the epoch for Date, since midnight for Time, signed for
    Timedelta) and run through the Float encoder.

All other types (Boolean, UUID, Geo, Text/Term/String) are documented
next to their implementation.
*/
package codec
