// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/phobologic/annotate/internal/graph"
	"github.com/phobologic/annotate/internal/metadata"
	"github.com/phobologic/annotate/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeIndex converts one file index into TOON format.
func EncodeIndex(idx *model.FileIndex) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("file: %s", encodeValue(idx.Path)))
	parts = append(parts, fmt.Sprintf("namespace: %s", encodeValue(idx.Namespace)))

	aliases := make([]string, 0, len(idx.Uses))
	for alias := range idx.Uses {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	var useRows [][]string
	for _, alias := range aliases {
		useRows = append(useRows, []string{alias, idx.Uses[alias]})
	}
	parts = append(parts, formatTabular("uses", []string{"alias", "name"}, useRows))

	var typeRows [][]string
	for i := range idx.Types {
		d := &idx.Types[i]
		typeRows = append(typeRows, []string{
			d.Name,
			string(d.Kind),
			d.Parent,
			strings.Join(d.Methods, " "),
			strings.Join(d.Properties, " "),
		})
	}
	parts = append(parts, formatTabular("types", []string{"name", "kind", "parent", "methods", "properties"}, typeRows))

	var tagRows [][]string
	for _, key := range idx.Keys() {
		for _, spec := range idx.Tags[key] {
			tagRows = append(tagRows, []string{key, spec.Name, spec.Type, spec.Args.String()})
		}
	}
	parts = append(parts, formatTabular("tags", []string{"key", "tag", "type", "args"}, tagRows))

	return strings.Join(parts, "\n")
}

// EncodeTypes lists declared types, highest rank first, followed by the
// inheritance edges between them.
func EncodeTypes(project string, decls []model.TypeDecl, g *graph.Graph) string {
	ranks := g.Rank()
	sorted := make([]model.TypeDecl, len(decls))
	copy(sorted, decls)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := ranks[sorted[i].Name], ranks[sorted[j].Name]
		if ri != rj {
			return ri > rj
		}
		return sorted[i].Name < sorted[j].Name
	})

	var rows [][]string
	for i := range sorted {
		d := &sorted[i]
		rows = append(rows, []string{
			d.Name,
			string(d.Kind),
			d.Parent,
			d.File,
			strconv.Itoa(g.Depth(d.Name)),
			strconv.Itoa(len(g.Children(d.Name))),
			fmt.Sprintf("%.4f", ranks[d.Name]),
		})
	}

	var edgeRows [][]string
	for _, e := range g.Edges() {
		edgeRows = append(edgeRows, []string{e.Child, e.Parent})
	}

	return strings.Join([]string{
		fmt.Sprintf("project: %s", encodeValue(project)),
		formatTabular("types", []string{"name", "kind", "parent", "file", "depth", "subtypes", "rank"}, rows),
		formatTabular("inheritance", []string{"child", "parent"}, edgeRows),
	}, "\n")
}

// EncodeInstances lists the metadata of one declaration. Each instance's
// exported fields are flattened to key=value pairs.
func EncodeInstances(key string, instances []metadata.Instance) string {
	var rows [][]string
	for _, inst := range instances {
		rows = append(rows, []string{inst.Name, inst.Type, fields(inst.Annotation)})
	}
	return strings.Join([]string{
		fmt.Sprintf("key: %s", encodeValue(key)),
		formatTabular("metadata", []string{"tag", "type", "fields"}, rows),
	}, "\n")
}

func fields(a metadata.Annotation) string {
	data, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if list, ok := v.([]any); ok {
			items := make([]string, len(list))
			for i, item := range list {
				items[i] = fmt.Sprint(item)
			}
			v = "[" + strings.Join(items, " ") + "]"
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, " ")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
