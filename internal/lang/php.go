package lang

import (
	"strings"

	"github.com/smacker/go-tree-sitter/php"
)

func init() {
	Languages["php"] = &Language{
		Name:         "php",
		Extensions:   []string{".php", ".inc", ".phtml"},
		lang:         php.GetLanguage(),
		IsDocComment: phpIsDocComment,
	}
}

// phpIsDocComment accepts /** ... */ blocks. The empty block /**/ is an
// ordinary comment.
func phpIsDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && text != "/**/"
}
