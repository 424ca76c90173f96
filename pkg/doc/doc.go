/*
Package doc implements the generic MsgPack document-tree value that
flows through the schema engine: incoming documents, the persisted
schema tree, and per-slot value lists are all instances of Value.

Encoding is hand-written against the runtime (non-codegen) half of
tinylib/msgp — the same AppendXxx/ReadXxxBytes helpers a generated
msgp.Marshaler would call — rather than generated, since the document
shape is dynamic and not known at compile time.

# Value kinds

	Nil, Bool, Int, Uint, Float, String, Bytes, Array, Map

Map preserves insertion order (spec.md §4.F.1's duplicate-key
detection and the schema engine's ordered child walk both depend on
seeing keys in the order they appeared), so it is a slice of key/value
pairs rather than a Go map.
*/
package doc
