// Package backend defines the black-box IndexBackend contract the
// core assumes (spec.md §1): term posting lists, value slots, MSet
// retrieval, document add/replace/delete, commit, and uuid/revision
// metadata. It also ships a bbolt-backed reference implementation
// used by pkg/dbpool and by this repository's own tests, in lieu of
// linking against a real inverted-index library.
package backend
