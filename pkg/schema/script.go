package schema

import "github.com/dubalu/xapiand-go/pkg/doc"

// Method identifies which HTTP-shaped operation triggered indexing,
// selecting which script hook runs (spec.md §4.F.2).
type Method int

const (
	MethodPut Method = iota
	MethodPatch
	MethodDelete
	MethodGet
	MethodPost
)

// ScriptHost is the opaque compile→invoke contract a scripting engine
// implements (spec.md §1 "Scripting engines ... an opaque ScriptHost
// with a compile→invoke contract"). The engine package never assumes
// anything about the scripting language behind it.
type ScriptHost interface {
	// Compile returns a cached compiled program for body, keyed by
	// hash so repeated documents sharing a script do not recompile.
	Compile(hash uint64, body string) (Program, error)
}

// Program is a compiled script ready to run one of the method hooks.
type Program interface {
	Invoke(method Method, data doc.Value, preImage doc.Value) (doc.Value, error)
}
