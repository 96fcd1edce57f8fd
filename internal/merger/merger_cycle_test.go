package merger

import (
	"errors"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/require"
)

func TestCycle_SelfSpread(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)
	doc := mustParseQuery(t, heredoc.Doc(`
		{ ...Loop }
		fragment Loop on Query { a ...Loop }
	`))
	_, err := MergeOperation(sch, doc, "", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFragmentCycle))
	require.Contains(t, err.Error(), "Loop")
}

func TestCycle_Indirect(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)
	doc := mustParseQuery(t, heredoc.Doc(`
		{ ...A }
		fragment A on Query { ...B }
		fragment B on Query { ...A }
	`))
	_, err := MergeOperation(sch, doc, "", nil)
	require.True(t, errors.Is(err, ErrFragmentCycle))
}

func TestCycle_ThroughInlineFragment(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)
	doc := mustParseQuery(t, heredoc.Doc(`
		{ ...A }
		fragment A on Query { ... on Query { ...A } }
	`))
	_, err := MergeOperation(sch, doc, "", nil)
	require.True(t, errors.Is(err, ErrFragmentCycle))
}

func TestCycle_SiblingReuseIsAllowed(t *testing.T) {
	// The same fragment spread twice on converging paths is not a cycle; only
	// re-entry on the active spread path is.
	sch := mustBuildSchema(t, animalsSDL)
	root := mergePlan(t, sch, heredoc.Doc(`
		{
			...Keys
			pet { ...Keys }
		}
		fragment Keys on Query { a b }
	`), nil)
	require.Equal(t, []string{"a", "b", "pet"}, responseKeys(root.SubFields))
	pet := findField(t, root.SubFields, "pet")
	require.Equal(t, []string{"a", "b"}, responseKeys(pet.SubFields))
}
