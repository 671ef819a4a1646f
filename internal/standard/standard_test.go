package standard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/annotate/internal/discover"
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/metadata"
	"github.com/phobologic/annotate/internal/model"
	"github.com/phobologic/annotate/internal/symbols"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := Registry()
	assert.Equal(t, `annotate\standard\RequiredAnnotation`, r["required"])
	assert.Equal(t, `annotate\standard\PropertyReadAnnotation`, r["property-read"])
	assert.Equal(t, r["length"], TypeName("length"))
	assert.Empty(t, TypeName("nope"))

	types := Types()
	require.Len(t, types, len(r))
	for _, typ := range types {
		require.NotNil(t, typ.Usage, typ.Name)
		assert.NotNil(t, typ.New(), typ.Name)
	}
}

func ptr[T any](v T) *T { return &v }

func TestInit(t *testing.T) {
	t.Parallel()

	pos := func(values ...model.Value) model.Args { return model.Args{Positional: values} }
	named := func(key string, v model.Value) model.Args {
		return model.Args{Named: []model.Field{{Key: key, Value: v}}}
	}

	tests := []struct {
		name string
		a    metadata.Annotation
		args model.Args
		want metadata.Annotation
	}{
		{"required", &Required{}, model.Args{}, &Required{}},
		{"required message", &Required{}, pos(model.String("needed")), &Required{Message: "needed"}},
		{"length max", &Length{}, pos(model.Int(20)), &Length{Max: ptr[int64](20)}},
		{"length min max", &Length{}, pos(model.Int(1), model.Int(20)), &Length{Min: ptr[int64](1), Max: ptr[int64](20)}},
		{"length named", &Length{}, named("min", model.Int(3)), &Length{Min: ptr[int64](3)}},
		{"range", &Range{}, pos(model.Int(0), model.Float(1.5)), &Range{Min: ptr(0.0), Max: ptr(1.5)}},
		{"enum", &Enum{}, pos(model.Array([]model.Value{model.String("a"), model.Int(2)}, nil)), &Enum{Values: []any{"a", int64(2)}}},
		{"display", &Display{}, model.Args{
			Positional: []model.Value{model.String("Name")},
			Named:      []model.Field{{Key: "order", Value: model.Int(2)}},
		}, &Display{Label: "Name", Order: ptr[int64](2)}},
		{"format", &Format{}, pos(model.String("%.2f")), &Format{Format: "%.2f"}},
		{"note", &Note{}, pos(model.String("hi")), &Note{Text: "hi"}},
		{"var", &Var{}, named("type", model.String("int")), &Var{Type: "int"}},
		{"param", &Param{}, pos(model.String("string"), model.String("x")), &Param{Type: "string", Name: "x"}},
		{"return", &Return{}, named("type", model.String("bool")), &Return{Type: "bool"}},
		{"property", &Property{ReadOnly: true}, pos(model.String("int"), model.String("id")), &Property{Type: "int", Name: "id", ReadOnly: true}},
		{"method", &Method{}, named("name", model.String("getName")), &Method{Name: "getName"}},
		{"method static", &Method{}, model.Args{
			Positional: []model.Value{model.String("string"), model.String("find")},
			Named:      []model.Field{{Key: "static", Value: model.Bool(true)}},
		}, &Method{Type: "string", Name: "find", Static: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, tt.a.Init(tt.args))
			assert.Equal(t, tt.want, tt.a)
		})
	}
}

func TestInitMatch(t *testing.T) {
	t.Parallel()

	m := &Match{}
	require.NoError(t, m.Init(model.Args{Positional: []model.Value{model.String(`^[a-z]+$`)}}))
	assert.True(t, m.Regexp.MatchString("abc"))
	assert.False(t, m.Regexp.MatchString("ABC"))
}

func TestInitErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    metadata.Annotation
		args model.Args
	}{
		{"required unknown property", &Required{}, model.Args{Named: []model.Field{{Key: "bogus", Value: model.Int(1)}}}},
		{"length empty", &Length{}, model.Args{}},
		{"length inverted", &Length{}, model.Args{Positional: []model.Value{model.Int(5), model.Int(1)}}},
		{"length not int", &Length{}, model.Args{Positional: []model.Value{model.String("x")}}},
		{"length too many", &Length{}, model.Args{Positional: []model.Value{model.Int(1), model.Int(2), model.Int(3)}}},
		{"range empty", &Range{}, model.Args{}},
		{"match missing", &Match{}, model.Args{}},
		{"match invalid", &Match{}, model.Args{Positional: []model.Value{model.String("(")}}},
		{"enum scalar", &Enum{}, model.Args{Positional: []model.Value{model.String("a")}}},
		{"enum strict", &Enum{}, model.Args{
			Positional: []model.Value{model.Array([]model.Value{model.Int(1)}, nil)},
			Named:      []model.Field{{Key: "strict", Value: model.String("yes")}},
		}},
		{"format missing", &Format{}, model.Args{}},
		{"note missing", &Note{}, model.Args{}},
		{"var missing", &Var{}, model.Args{}},
		{"param missing name", &Param{}, model.Args{Positional: []model.Value{model.String("int")}}},
		{"return missing", &Return{}, model.Args{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.a.Init(tt.args)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.Configuration), "got %v", err)
		})
	}
}

func TestBareValues(t *testing.T) {
	t.Parallel()

	v, err := (&Var{}).ParseBareValue("  string   the user name ")
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Value{
		"type":        model.String("string"),
		"description": model.String("the user name"),
	}, v)

	p, err := (&Param{}).ParseBareValue("int $count how many")
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Value{
		"type":        model.String("int"),
		"name":        model.String("count"),
		"description": model.String("how many"),
	}, p)

	short, err := (&Property{}).ParseBareValue("int")
	require.NoError(t, err)
	assert.Empty(t, short)

	tests := []struct {
		value string
		want  map[string]model.Value
	}{
		{"string getName()", map[string]model.Value{
			"type": model.String("string"),
			"name": model.String("getName"),
		}},
		{"static User find(int $id, bool $strict = false) look up by id", map[string]model.Value{
			"type":        model.String("User"),
			"name":        model.String("find"),
			"params":      model.String("int $id, bool $strict = false"),
			"static":      model.Bool(true),
			"description": model.String("look up by id"),
		}},
		{"reset()", map[string]model.Value{"name": model.String("reset")}},
		{"getName", map[string]model.Value{}},
	}
	for _, tt := range tests {
		got, err := (&Method{}).ParseBareValue(tt.value)
		require.NoError(t, err, tt.value)
		assert.Equal(t, tt.want, got, tt.value)
	}
}

const userSource = `<?php
namespace app\model;

use lib\Address as Addr;

/**
 * @property-read int $id
 * @note('Users of the system')
 */
class User
{
    /**
     * @required
     * @length(1, 40)
     * @display('Full name', 'group' => 'identity')
     * @var string
     */
    public $name;

    /**
     * @var Addr the home address
     */
    protected $address;

    /**
     * @enum(['admin', 'member'])
     */
    public $role;

    /**
     * @param Addr $address new address
     * @return bool
     */
    public function move($address) {}
}

class Admin extends User
{
    /**
     * @length(5, 40)
     */
    public $name;
}
`

func setup(t *testing.T) *metadata.Manager {
	t.Helper()
	return setupSource(t, userSource)
}

func setupSource(t *testing.T, source string) *metadata.Manager {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "User.php"), []byte(source), 0o644))

	registry := metadata.DefaultRegistry()
	for k, v := range Registry() {
		registry[k] = v
	}

	table, err := symbols.New()
	require.NoError(t, err)
	m, err := metadata.NewManager(metadata.Config{
		Suffix:   "Annotation",
		Registry: registry,
		Types:    Types(),
		Symbols:  table,
	})
	require.NoError(t, err)
	require.NoError(t, table.Build(context.Background(), root, m, discover.Options{}))
	return m
}

func TestManagerIntegration(t *testing.T) {
	t.Parallel()

	m := setup(t)

	name, err := m.PropertyMetadata(`app\model\User`, "name")
	require.NoError(t, err)
	require.Len(t, name, 4)
	assert.IsType(t, &Required{}, name[0].Annotation)
	assert.Equal(t, &Length{Min: ptr[int64](1), Max: ptr[int64](40)}, name[1].Annotation)
	assert.Equal(t, &Display{Label: "Full name", Group: "identity"}, name[2].Annotation)
	assert.Equal(t, "string", name[3].Annotation.(*Var).Type)

	address, err := m.PropertyMetadata(`app\model\User`, "$address")
	require.NoError(t, err)
	require.Len(t, address, 1)
	v := address[0].Annotation.(*Var)
	assert.Equal(t, `lib\Address`, v.Type)
	assert.Equal(t, "the home address", v.Description)

	role, err := m.PropertyMetadata(`app\model\User`, "role")
	require.NoError(t, err)
	require.Len(t, role, 1)
	assert.Equal(t, []any{"admin", "member"}, role[0].Annotation.(*Enum).Values)

	move, err := m.MethodMetadata(`app\model\User`, "Move")
	require.NoError(t, err)
	require.Len(t, move, 2)
	assert.Equal(t, &Param{Type: `lib\Address`, Name: "address", Description: "new address"}, withoutFile(move[0].Annotation))
	assert.Equal(t, "bool", move[1].Annotation.(*Return).Type)

	class, err := m.ClassMetadata(`app\model\User`)
	require.NoError(t, err)
	require.Len(t, class, 2)
	assert.True(t, class[0].Annotation.(*Property).ReadOnly)
	assert.Equal(t, "Users of the system", class[1].Annotation.(*Note).Text)
}

func TestManagerInheritance(t *testing.T) {
	t.Parallel()

	m := setup(t)

	// Required is not inherited; var and display are.
	name, err := m.PropertyMetadata(`app\model\Admin`, "name")
	require.NoError(t, err)
	types := make([]string, len(name))
	for i, inst := range name {
		types[i] = inst.Name
	}
	assert.Equal(t, []string{"display", "var", "length"}, types)
	assert.Equal(t, &Length{Min: ptr[int64](5), Max: ptr[int64](40)}, name[2].Annotation)

	notes, err := m.ClassMetadata(`app\model\Admin`, "@note")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	lengths, err := m.PropertyMetadata(`app\model\Admin`, "name", TypeName("length"))
	require.NoError(t, err)
	require.Len(t, lengths, 1)
}

func withoutFile(a metadata.Annotation) metadata.Annotation {
	switch a := a.(type) {
	case *Param:
		p := *a
		p.fileType = fileType{}
		return &p
	case *Method:
		m := *a
		m.fileType = fileType{}
		return &m
	}
	return a
}

func TestMethodTag(t *testing.T) {
	t.Parallel()

	m := setupSource(t, `<?php
namespace app;

/**
 * @method string getName()
 * @method static Foo create(array $data) build from a row
 */
class Foo {}
`)

	class, err := m.ClassMetadata(`app\Foo`)
	require.NoError(t, err)
	require.Len(t, class, 2)
	assert.Equal(t, &Method{Type: "string", Name: "getName"}, withoutFile(class[0].Annotation))
	assert.Equal(t, &Method{
		Type:        `app\Foo`,
		Name:        "create",
		Params:      "array $data",
		Static:      true,
		Description: "build from a row",
	}, withoutFile(class[1].Annotation))
}
