package cluster

import (
	"github.com/dubalu/xapiand-go/pkg/doc"
	"github.com/dubalu/xapiand-go/pkg/schema"
)

// IdentityScriptHost is the concrete schema.ScriptHost this port ships:
// it compiles any script body to a program that returns the incoming
// object unchanged. No scripting language is implemented here (spec.md
// §1 treats the engine as an opaque compile→invoke contract); this
// host exists so a schema that declares a root-level script still
// drives the document-change map's pre-image/CAS machinery (spec.md
// §4.G) end to end, rather than that path staying permanently
// unreachable for lack of any concrete host.
type IdentityScriptHost struct{}

func (IdentityScriptHost) Compile(hash uint64, body string) (schema.Program, error) {
	return identityProgram{}, nil
}

type identityProgram struct{}

func (identityProgram) Invoke(method schema.Method, data, preImage doc.Value) (doc.Value, error) {
	return data, nil
}
