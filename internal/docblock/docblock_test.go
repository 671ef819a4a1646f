package docblock

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		comment string
		want    []RawTag
	}{
		{
			name:    "flag",
			comment: "/** @required */",
			want:    []RawTag{{Name: "required"}},
		},
		{
			name:    "single line value",
			comment: "/**\n * @var string the name\n */",
			want:    []RawTag{{Name: "var", Value: "string the name", HasValue: true}},
		},
		{
			name:    "argument list",
			comment: "/**\n * @length(1, 20)\n */",
			want:    []RawTag{{Name: "length", Value: "(1, 20)", HasValue: true}},
		},
		{
			name: "multi line argument list",
			comment: `/**
 * @Note(
 *   "Applied to the Test class (a)"
 * )
 *
 * @Note("And another one (b)")
 */`,
			want: []RawTag{
				{Name: "Note", Value: "(\n\"Applied to the Test class (a)\"\n)", HasValue: true},
				{Name: "Note", Value: `("And another one (b)")`, HasValue: true},
			},
		},
		{
			name: "prose is skipped",
			comment: `/**
 * A sample class, contact me@example.com for details.
 *
 * @doc 1234
 */`,
			want: []RawTag{{Name: "doc", Value: "1234", HasValue: true}},
		},
		{
			name:    "namespaced and hyphenated names",
			comment: "/**\n * @property-read\n * @Foo\\Bar('x')\n */",
			want: []RawTag{
				{Name: "property-read"},
				{Name: `Foo\Bar`, Value: "('x')", HasValue: true},
			},
		},
		{
			name:    "parentheses inside quotes",
			comment: `/** @note("smile :)") */`,
			want:    []RawTag{{Name: "note", Value: `("smile :)")`, HasValue: true}},
		},
		{
			name:    "hash comment decoration",
			comment: "# @flag\n# @other",
			want:    []RawTag{{Name: "flag"}, {Name: "other"}},
		},
		{
			name:    "trailing whitespace only is a flag",
			comment: "/**\n * @required   \t\n * @var int\n */",
			want: []RawTag{
				{Name: "required"},
				{Name: "var", Value: "int", HasValue: true},
			},
		},
		{
			name:    "no tags",
			comment: "/** Just a description. */",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Extract(tt.comment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractUnbalanced(t *testing.T) {
	t.Parallel()

	_, err := Extract("/** @note('a', (1, 2) */")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Parse))
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want model.Args
	}{
		{"()", model.Args{}},
		{"(a, b)", model.Args{Positional: []model.Value{model.Ident("a"), model.Ident("b")}}},
		{"('k'=>v)", model.Args{Named: []model.Field{{Key: "k", Value: model.Ident("v")}}}},
		{
			`('abc', 12, -3, 1.5, true, NULL, "x\ty")`,
			model.Args{Positional: []model.Value{
				model.String("abc"), model.Int(12), model.Int(-3), model.Float(1.5),
				model.Bool(true), model.Null(), model.String("x\ty"),
			}},
		},
		{
			`('class'=>true, 'values'=>array('a', 'b'), 'map'=>['x' => 1, 2])`,
			model.Args{Named: []model.Field{
				{Key: "class", Value: model.Bool(true)},
				{Key: "values", Value: model.Array([]model.Value{model.String("a"), model.String("b")}, nil)},
				{Key: "map", Value: model.Array(
					[]model.Value{model.Int(2)},
					[]model.Field{{Key: "x", Value: model.Int(1)}},
				)},
			}},
		},
		{
			`(Foo::class, \Bar\Baz, 0x1F, 'it\'s',)`,
			model.Args{Positional: []model.Value{
				model.Ident("Foo::class"), model.Ident(`\Bar\Baz`), model.Int(31), model.String("it's"),
			}},
		},
		{"(5 => 'five')", model.Args{Named: []model.Field{{Key: "5", Value: model.String("five")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseArgs(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"(1, 2",
		"('unterminated)",
		"(1 2)",
		"([1, 2] => 3)",
		"(1) trailing",
		"(;)",
		"(- 'x')",
	} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := ParseArgs(in)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.Parse), "got %v", err)
		})
	}
}

type fakeResolver struct {
	disabled map[string]bool
}

func (r fakeResolver) ResolveName(name string) (string, bool, error) {
	if r.disabled[name] {
		return "", false, nil
	}
	if name == "missing" {
		return "", false, errs.New(errs.Resolution, "unknown type %s", name)
	}
	return strings.ToUpper(name[:1]) + name[1:] + "Annotation", true, nil
}

func (r fakeResolver) ParseBareValue(typeName, value string) (map[string]model.Value, error) {
	if typeName != "DocAnnotation" {
		return nil, errs.New(errs.Resolution, "%s does not support single-line values", typeName)
	}
	return map[string]model.Value{"value": model.String(value)}, nil
}

func TestTags(t *testing.T) {
	t.Parallel()

	r := fakeResolver{disabled: map[string]bool{"author": true}}
	comment := `/**
 * @author Someone
 * @doc 123
 * @note('abc')
 * @flag
 */`

	got, err := Tags(comment, r)
	require.NoError(t, err)
	assert.Equal(t, []model.TagSpec{
		{Name: "doc", Type: "DocAnnotation", Args: model.Args{Named: []model.Field{{Key: "value", Value: model.String("123")}}}},
		{Name: "note", Type: "NoteAnnotation", Args: model.Args{Positional: []model.Value{model.String("abc")}}},
		{Name: "flag", Type: "FlagAnnotation"},
	}, got)
}

func TestTagsErrors(t *testing.T) {
	t.Parallel()

	r := fakeResolver{}

	_, err := Tags("/** @note some text */", r)
	assert.True(t, errs.Is(err, errs.Resolution), "bare value on a type without parser: %v", err)

	_, err = Tags("/** @missing */", r)
	assert.True(t, errs.Is(err, errs.Resolution), "unknown type: %v", err)

	_, err = Tags("/** @note(1, */", r)
	assert.True(t, errs.Is(err, errs.Parse), "unbalanced: %v", err)
}

func TestPositionalRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(rt, "n")
		values := make([]model.Value, n)
		for i := range values {
			if rapid.Bool().Draw(rt, fmt.Sprintf("isInt%d", i)) {
				values[i] = model.Int(rapid.Int64().Draw(rt, fmt.Sprintf("int%d", i)))
			} else {
				values[i] = model.String(rapid.StringMatching(`[a-zA-Z0-9 _.,()'\\-]{0,12}`).Draw(rt, fmt.Sprintf("str%d", i)))
			}
		}

		comment := "/** @name" + model.Args{Positional: values}.String() + " */"
		raw, err := Extract(comment)
		if err != nil {
			rt.Fatalf("Extract(%q): %v", comment, err)
		}
		if len(raw) != 1 {
			rt.Fatalf("Extract(%q) returned %d tags", comment, len(raw))
		}
		args, err := ParseArgs(raw[0].Value)
		if err != nil {
			rt.Fatalf("ParseArgs(%q): %v", raw[0].Value, err)
		}
		if n == 0 {
			values = nil
		}
		if !assert.ObjectsAreEqual(values, args.Positional) {
			rt.Fatalf("round trip of %q: got %v, want %v", comment, args.Positional, values)
		}
	})
}
