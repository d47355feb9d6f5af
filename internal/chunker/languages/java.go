package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/java"
)

func RegisterJava(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "java",
		Language: java.GetLanguage(),
		TopLevel: map[string]bool{
			"class_declaration":       true,
			"interface_declaration":   true,
			"method_declaration":      true,
			"constructor_declaration": true,
		},
		Extensions: []string{"java"},
	})
}
