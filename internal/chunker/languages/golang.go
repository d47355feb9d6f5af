package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "go",
		Language: golang.GetLanguage(),
		TopLevel: map[string]bool{
			"function_declaration": true,
			"method_declaration":   true,
			"type_declaration":     true,
		},
		Extensions: []string{"go"},
	})
}
