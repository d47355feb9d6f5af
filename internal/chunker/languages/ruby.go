package languages

import (
	"mergectx/internal/chunker"

	"github.com/smacker/go-tree-sitter/ruby"
)

func RegisterRuby(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "ruby",
		Language: ruby.GetLanguage(),
		TopLevel: map[string]bool{
			"method": true,
			"class":  true,
			"module": true,
		},
		Extensions: []string{"rb"},
	})
}
