package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/c"
)

func RegisterC(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "c",
		Language: c.GetLanguage(),
		TopLevel: map[string]bool{
			"function_definition": true,
			"struct_specifier":    true,
			"union_specifier":     true,
		},
		Extensions: []string{"c", "h"},
	})
}
