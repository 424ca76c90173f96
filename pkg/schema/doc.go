// Package schema implements the per-field specification record and
// the schema engine that walks an incoming document tree, resolving
// or creating a specification for each field path and driving term/
// value indexing through pkg/codec into a backend.Document (spec.md
// §3 "Field specification", §4.E, §4.F).
package schema
