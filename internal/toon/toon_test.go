package toon

import (
	"fmt"
	"strings"
	"testing"

	"github.com/phobologic/annotate/internal/graph"
	"github.com/phobologic/annotate/internal/metadata"
	"github.com/phobologic/annotate/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"namespaced name", `app\User`, `"app\\User"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/User.php", "src/User.php"},
		{"member key", "User::$name", `"User::$name"`},
		{"args", "(1, 20)", `"(1, 20)"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeIndex(t *testing.T) {
	t.Parallel()

	idx := model.NewFileIndex("src/User.php")
	idx.Namespace = "app"
	idx.Uses["Hat"] = "lib"
	idx.Types = []model.TypeDecl{{
		Name:       "User",
		Kind:       model.ClassType,
		Parent:     "Base",
		Methods:    []string{"save", "load"},
		Properties: []string{"name"},
	}}
	idx.Tags["User::$name"] = []model.TagSpec{
		{Name: "required", Type: "RequiredAnnotation"},
		{Name: "length", Type: "LengthAnnotation", Args: model.Args{Positional: []model.Value{model.Int(20)}}},
	}
	idx.Tags["User"] = []model.TagSpec{{Name: "note", Type: "NoteAnnotation"}}

	got := EncodeIndex(idx)
	want := []string{
		"file: src/User.php",
		"namespace: app",
		"uses[1]{alias,name}:",
		"  Hat,lib",
		"types[1]{name,kind,parent,methods,properties}:",
		"  User,class,Base,save load,name",
		"tags[3]{key,tag,type,args}:",
		"  User,note,NoteAnnotation,()",
		`  "User::$name",required,RequiredAnnotation,()`,
		`  "User::$name",length,LengthAnnotation,(20)`,
	}
	lines := strings.Split(got, "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeTypes(t *testing.T) {
	t.Parallel()

	decls := []model.TypeDecl{
		{Name: "B", Kind: model.ClassType, Parent: "A", File: "b.php"},
		{Name: "A", Kind: model.ClassType, File: "a.php"},
		{Name: "C", Kind: model.InterfaceType, File: "c.php"},
	}
	g := graph.Build(decls)
	ranks := g.Rank()
	if !(ranks["A"] > ranks["B"]) || ranks["B"] != ranks["C"] {
		t.Fatalf("unexpected ranks %v", ranks)
	}

	got := EncodeTypes("demo", decls, g)
	want := "project: demo\n" +
		"types[3]{name,kind,parent,file,depth,subtypes,rank}:\n" +
		fmt.Sprintf("  A,class,\"\",a.php,0,1,%.4f\n", ranks["A"]) +
		fmt.Sprintf("  B,class,A,b.php,1,0,%.4f\n", ranks["B"]) +
		fmt.Sprintf("  C,interface,\"\",c.php,0,0,%.4f\n", ranks["C"]) +
		"inheritance[1]{child,parent}:\n" +
		"  B,A"
	if got != want {
		t.Errorf("EncodeTypes:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if decls[0].Name != "B" {
		t.Error("input slice must not be reordered")
	}
}

type sample struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
	Max    int      `json:"max"`
}

func (*sample) Init(model.Args) error { return nil }

func TestEncodeInstances(t *testing.T) {
	t.Parallel()

	got := EncodeInstances("User::$role", []metadata.Instance{
		{Type: "EnumAnnotation", Name: "enum", Annotation: &sample{Label: "Role", Values: []string{"a", "b"}, Max: 3}},
	})
	want := "key: \"User::$role\"\n" +
		"metadata[1]{tag,type,fields}:\n" +
		"  enum,EnumAnnotation,\"label=Role max=3 values=[a b]\""
	if got != want {
		t.Errorf("EncodeInstances:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := EncodeIndex(model.NewFileIndex("empty.php"))
	if !strings.Contains(got, "types[0]{name,kind,parent,methods,properties}:") {
		t.Errorf("expected empty types section, got:\n%s", got)
	}
	if !strings.Contains(got, "tags[0]{key,tag,type,args}:") {
		t.Errorf("expected empty tags section, got:\n%s", got)
	}
	if got := EncodeInstances("X", nil); !strings.HasSuffix(got, "metadata[0]{tag,type,fields}:") {
		t.Errorf("expected empty metadata section, got:\n%s", got)
	}
}
