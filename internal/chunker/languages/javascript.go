package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/javascript"
)

func RegisterJavaScript(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "javascript",
		Language: javascript.GetLanguage(),
		TopLevel: map[string]bool{
			"function_declaration": true,
			"class_declaration":    true,
			"function":             true,
			"lexical_declaration":  true,
			"export_statement":     true,
		},
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
	})
}
