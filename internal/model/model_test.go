package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `foo\Bar`, Key(`\foo\Bar`))
	assert.Equal(t, `foo\Bar::run`, MethodKey(`foo\Bar`, "run"))
	assert.Equal(t, `foo\Bar::$name`, PropertyKey(`\foo\Bar`, "$name"))
	assert.Equal(t, `foo\Bar::$name`, PropertyKey(`foo\Bar`, "name"))
	assert.Equal(t, `Bar`, MemberKey(Class, "Bar", "ignored"))
	assert.Equal(t, `Bar::x`, MemberKey(Method, "Bar", "x"))
	assert.Equal(t, `Bar::$x`, MemberKey(Property, "Bar", "x"))
}

func TestTypeDeclMembers(t *testing.T) {
	t.Parallel()

	d := TypeDecl{Name: "Foo", Methods: []string{"getName"}, Properties: []string{"name"}}
	assert.True(t, d.HasMethod("getname"))
	assert.False(t, d.HasMethod("setName"))
	assert.True(t, d.HasProperty("$name"))
	assert.True(t, d.HasProperty("name"))
	assert.False(t, d.HasProperty("Name"))
}

func TestFileIndexKeys(t *testing.T) {
	t.Parallel()

	idx := NewFileIndex("a.php")
	idx.Tags["B::$x"] = []TagSpec{{Name: "var"}}
	idx.Tags["A"] = []TagSpec{{Name: "note"}}
	idx.Tags["B"] = []TagSpec{{Name: "note"}}
	assert.Equal(t, []string{"A", "B", "B::$x"}, idx.Keys())
}

func TestResolveType(t *testing.T) {
	t.Parallel()

	idx := NewFileIndex("a.php")
	idx.Namespace = `app\model`
	idx.Uses["Zing"] = `baz\Hat`

	tests := map[string]string{
		"string":     "string",
		"int[]":      "int[]",
		"Zing":       `baz\Hat`,
		"Zing[]":     `baz\Hat[]`,
		"User":       `app\model\User`,
		`\Other\Foo`: `Other\Foo`,
	}
	for in, want := range tests {
		assert.Equal(t, want, idx.ResolveType(in), in)
	}

	global := NewFileIndex("b.php")
	assert.Equal(t, "User", global.ResolveType("User"))
}

func TestInNamespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `app\model`, NamespaceOf(`\app\model\User`))
	assert.Empty(t, NamespaceOf("User"))

	idx := NewFileIndex("a.php")
	idx.Namespace = "two"
	idx.Uses["Zing"] = `baz\Hat`

	assert.Same(t, idx, idx.InNamespace("two"))

	one := idx.InNamespace("one")
	assert.Equal(t, `one\User`, one.ResolveType("User"))
	assert.Equal(t, `baz\Hat`, one.ResolveType("Zing"))
	assert.Equal(t, "two", idx.Namespace)
	assert.Equal(t, "User", idx.InNamespace("").ResolveType("User"))
}

func TestValueAccessors(t *testing.T) {
	t.Parallel()

	s, ok := Ident("Foo::class").AsString()
	assert.True(t, ok)
	assert.Equal(t, "Foo::class", s)

	f, ok := Int(3).AsFloat()
	assert.True(t, ok)
	assert.InDelta(t, 3.0, f, 0)

	_, ok = String("3").AsInt()
	assert.False(t, ok)

	list, ok := Array([]Value{String("a"), Ident("B")}, nil).Strings()
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "B"}, list)

	_, ok = Array([]Value{Int(1)}, nil).Strings()
	assert.False(t, ok)
}

func TestValueString(t *testing.T) {
	t.Parallel()

	v := Array(
		[]Value{Int(1), String(`it's a \ path`), Null()},
		[]Field{{Key: "ok", Value: Bool(true)}},
	)
	assert.Equal(t, `[1, 'it\'s a \\ path', null, 'ok' => true]`, v.String())

	args := Args{Positional: []Value{Float(1.5)}, Named: []Field{{Key: "k", Value: Ident("X")}}}
	assert.Equal(t, `(1.5, 'k' => X)`, args.String())
	assert.Equal(t, "()", Args{}.String())
}

func TestArgsLookup(t *testing.T) {
	t.Parallel()

	args := Args{
		Positional: []Value{Int(1)},
		Named: []Field{
			{Key: "min", Value: Int(1)},
			{Key: "min", Value: Int(2)},
		},
	}
	assert.Equal(t, 3, args.Len())

	v, ok := args.Get("min")
	require.True(t, ok)
	assert.Equal(t, Int(2), v)

	_, ok = args.At(1)
	assert.False(t, ok)

	assert.Equal(t, map[string]Value{"min": Int(2)}, args.NamedMap())
}

func TestArgsEncoding(t *testing.T) {
	t.Parallel()

	args := Args{
		Positional: []Value{String("a")},
		Named:      []Field{{Key: "list", Value: Array([]Value{Int(1), Int(2)}, nil)}},
	}

	data, err := json.Marshal(args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"positional":["a"],"named":{"list":[1,2]}}`, string(data))

	out, err := yaml.Marshal(args)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, []any{"a"}, back["positional"])
	assert.Equal(t, map[string]any{"list": []any{1, 2}}, back["named"])
}
