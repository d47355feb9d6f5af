package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/cpp"
)

func RegisterCpp(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "cpp",
		Language: cpp.GetLanguage(),
		TopLevel: map[string]bool{
			"function_definition":  true,
			"class_specifier":      true,
			"struct_specifier":     true,
			"namespace_definition": true,
		},
		Extensions: []string{"cpp", "cc", "cxx", "hpp"},
	})
}
