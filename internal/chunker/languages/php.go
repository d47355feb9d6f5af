package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/php"
)

func RegisterPHP(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "php",
		Language: php.GetLanguage(),
		TopLevel: map[string]bool{
			"function_definition": true,
			"class_declaration":   true,
			"method_declaration":  true,
		},
		Extensions: []string{"php"},
	})
}
