package merger

import (
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/graphplan/graphplan/internal/schema"
)

func TestMerge_LeafIdempotence(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	once := mergePlan(t, sch, `{ a(v: 1) }`, nil)
	twice := mergePlan(t, sch, `{ a(v: 1) a(v: 1) }`, nil)

	require.Len(t, twice.SubFields, 1)
	if diff := cmp.Diff(responseKeys(once.SubFields), responseKeys(twice.SubFields)); diff != "" {
		t.Fatalf("key mismatch (-once +twice):\n%s", diff)
	}
	f := twice.SubFields[0]
	require.Empty(t, f.SubFields)
	require.Equal(t, map[string]any{"v": 1}, f.Arguments)
}

func TestMerge_SiblingFragmentsShareResponseKey(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	root := mergePlan(t, sch, heredoc.Doc(`
		{
			...WithName
			...WithAge
		}
		fragment WithName on Query { pet { name } }
		fragment WithAge on Query { pet { age } }
	`), nil)

	require.Equal(t, []string{"pet"}, responseKeys(root.SubFields))
	pet := root.SubFields[0]
	// Shallow merge: subfield lists are concatenated in contribution order.
	require.Equal(t, []string{"name", "age"}, responseKeys(pet.SubFields))
	require.Equal(t, []string{"Query"}, pet.TargetTypes.Sorted())
}

func TestMerge_MissingFragmentContributesNothing(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	root := mergePlan(t, sch, `{ b ...Missing }`, nil)
	require.Equal(t, []string{"b"}, responseKeys(root.SubFields))
}

func TestMerge_UntypedInlineFragmentIsTransparent(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	root := mergePlan(t, sch, `{ a ... { b } }`, nil)
	require.Equal(t, []string{"a", "b"}, responseKeys(root.SubFields))

	b := findField(t, root.SubFields, "b")
	require.Nil(t, b.TargetTypes)
	require.Nil(t, b.ApplicableTypes)
}

func TestMerge_UnknownFieldKeepsStringPlaceholder(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	root := mergePlan(t, sch, `{ __typename nope }`, nil)
	require.Equal(t, []string{"__typename", "nope"}, responseKeys(root.SubFields))
	for _, f := range root.SubFields {
		require.Equal(t, "String", f.Type.String())
	}
}

func TestMerge_AliasIsResponseKey(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	root := mergePlan(t, sch, `{ first: b second: b b }`, nil)
	require.Equal(t, []string{"first", "second", "b"}, responseKeys(root.SubFields))
	require.Equal(t, "b", findField(t, root.SubFields, "first").Name)
}

func TestMerge_RootFieldShape(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	root := mergePlan(t, sch, `query Q @custom(tag: "x") { b }`, nil)
	require.Empty(t, root.Name)
	require.Equal(t, "Query", root.Type.String())
	require.Len(t, root.Directives, 1)
	require.Equal(t, "custom", root.Directives[0].Name)
	require.Equal(t, map[string]any{"tag": "x"}, root.Directives[0].Arguments)
}

func TestMerge_HandBuiltRegistry(t *testing.T) {
	query := newObjectType("Query",
		&schema.Field{Name: "a", Type: schema.NamedType("String")},
		&schema.Field{Name: "b", Type: schema.NamedType("String")},
	)
	sch := newSchemaWithQueryType(query)

	root := mergePlan(t, sch, `{ b a }`, nil)
	require.Equal(t, []string{"b", "a"}, responseKeys(root.SubFields))
}
