// Package languages holds the per-language registry entries. Each file wires
// one tree-sitter grammar to the node kinds that should become standalone
// chunks; supporting a new language means adding one such file.
package languages

import "mergectx/internal/chunker"

// RegisterAll registers every supported language.
func RegisterAll(r *chunker.Registry) {
	RegisterGo(r)
	RegisterPython(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterRust(r)
	RegisterJava(r)
	RegisterC(r)
	RegisterCpp(r)
	RegisterRuby(r)
	RegisterPHP(r)
}
