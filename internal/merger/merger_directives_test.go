package merger

import (
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/require"
)

func TestDirectives_SkipAndInclude(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	t.Run("literal booleans", func(t *testing.T) {
		root := mergePlan(t, sch, `{ a b @skip(if: true) c @include(if: false) }`, nil)
		require.Equal(t, []string{"a"}, responseKeys(root.SubFields))
	})

	t.Run("skip wins over merge partners", func(t *testing.T) {
		root := mergePlan(t, sch, `{ b @skip(if: true) b }`, nil)
		require.Equal(t, []string{"b"}, responseKeys(root.SubFields))
		require.Empty(t, root.SubFields[0].Directives)
	})

	t.Run("on fragment spread", func(t *testing.T) {
		root := mergePlan(t, sch, heredoc.Doc(`
			{
				a
				...F1 @include(if: true)
				...F2 @skip(if: true)
			}
			fragment F1 on Query { b }
			fragment F2 on Query { c }
		`), nil)
		require.Equal(t, []string{"a", "b"}, responseKeys(root.SubFields))
	})

	t.Run("on inline fragment", func(t *testing.T) {
		root := mergePlan(t, sch, `{ a ... on Query @skip(if: true) { b } ... @include(if: false) { c } }`, nil)
		require.Equal(t, []string{"a"}, responseKeys(root.SubFields))
	})
}

func TestDirectives_VariableConditions(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)

	t.Run("bound variable", func(t *testing.T) {
		root := mergePlan(t, sch, `query($c: Boolean!) { a b @include(if: $c) }`, map[string]any{"c": false})
		require.Equal(t, []string{"a"}, responseKeys(root.SubFields))
	})

	t.Run("declared default", func(t *testing.T) {
		root := mergePlan(t, sch, `query($c: Boolean = false) { a b @include(if: $c) }`, nil)
		require.Equal(t, []string{"a"}, responseKeys(root.SubFields))
	})

	t.Run("unbound without default falls back to directive default", func(t *testing.T) {
		// The if argument is dropped entirely, so skip does not skip and
		// include does include.
		root := mergePlan(t, sch, `query($c: Boolean) { a @skip(if: $c) b @include(if: $c) }`, nil)
		require.Equal(t, []string{"a", "b"}, responseKeys(root.SubFields))
	})

	t.Run("non-boolean condition falls back to directive default", func(t *testing.T) {
		root := mergePlan(t, sch, `query($c: Boolean) { a @skip(if: $c) }`, map[string]any{"c": "yes"})
		require.Equal(t, []string{"a"}, responseKeys(root.SubFields))
	})
}

func TestDirectives_SchemaDeclaredConcatenation(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query {
			old: String @deprecated(reason: "use fresh") @audit(level: 2)
			fresh: String
		}
	`)

	root := mergePlan(t, sch, `{ old @include(if: true) }`, nil)
	old := findField(t, root.SubFields, "old")
	require.Len(t, old.Directives, 3)
	// Query-level directives come first, schema-declared ones after.
	require.Equal(t, "include", old.Directives[0].Name)
	require.Equal(t, "deprecated", old.Directives[1].Name)
	require.Equal(t, map[string]any{"reason": "use fresh"}, old.Directives[1].Arguments)
	require.Equal(t, "audit", old.Directives[2].Name)
	require.Equal(t, map[string]any{"level": 2}, old.Directives[2].Arguments)
}
