package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/rust"
)

func RegisterRust(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "rust",
		Language: rust.GetLanguage(),
		TopLevel: map[string]bool{
			"function_item": true,
			"impl_item":     true,
			"struct_item":   true,
			"enum_item":     true,
			"trait_item":    true,
		},
		Extensions: []string{"rs"},
	})
}
