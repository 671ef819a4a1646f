package parse

import (
	"strings"

	"github.com/phobologic/annotate/internal/model"
)

// parseUse reads one import statement such as
//
//	use Foo\Bar as Baz, Qux;
//	use Foo\{A, B as C};
//
// and records alias => fully qualified name pairs. Function and constant
// imports are not type references and are skipped.
func parseUse(text string, uses map[string]string) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if len(text) < 4 || !strings.EqualFold(text[:4], "use ") {
		return
	}
	text = strings.TrimSpace(text[4:])
	if isFunctionOrConst(text) {
		return
	}

	prefix := ""
	if open := strings.IndexByte(text, '{'); open >= 0 {
		end := strings.LastIndexByte(text, '}')
		if end < open {
			return
		}
		prefix = strings.TrimSuffix(strings.TrimSpace(text[:open]), model.Separator)
		text = text[open+1 : end]
	}

	for _, clause := range strings.Split(text, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" || isFunctionOrConst(clause) {
			continue
		}

		name, alias := splitAlias(clause)
		if prefix != "" {
			name = prefix + model.Separator + name
		}
		name = strings.TrimPrefix(name, model.Separator)
		if alias == "" {
			alias = name[strings.LastIndex(name, model.Separator)+1:]
		}
		uses[alias] = name
	}
}

func splitAlias(clause string) (name, alias string) {
	fields := strings.Fields(clause)
	if len(fields) == 3 && strings.EqualFold(fields[1], "as") {
		return fields[0], fields[2]
	}
	return strings.Join(fields, ""), ""
}

func isFunctionOrConst(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "function ") || strings.HasPrefix(lower, "const ")
}
