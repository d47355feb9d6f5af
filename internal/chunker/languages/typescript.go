package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func RegisterTypeScript(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "typescript",
		Language: typescript.GetLanguage(),
		TopLevel: map[string]bool{
			"function_declaration":   true,
			"class_declaration":      true,
			"interface_declaration":  true,
			"type_alias_declaration": true,
			"enum_declaration":       true,
		},
		Extensions: []string{"ts"},
	})
	r.Register(&chunker.LanguageSpec{
		Name:     "tsx",
		Language: tsx.GetLanguage(),
		TopLevel: map[string]bool{
			"function_declaration":  true,
			"class_declaration":     true,
			"interface_declaration": true,
			"lexical_declaration":   true,
		},
		Extensions: []string{"tsx"},
	})
}
