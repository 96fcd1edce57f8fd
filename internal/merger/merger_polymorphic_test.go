package merger

import (
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/require"
)

func TestPolymorphic_ObjectCondition(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)
	root := mergePlan(t, sch, `{ animal { ... on Dog { barks } } }`, nil)

	animal := findField(t, root.SubFields, "animal")
	barks := findField(t, animal.SubFields, "barks")
	require.Equal(t, []string{"Dog"}, barks.TargetTypes.Sorted())
	require.Equal(t, []string{"Dog"}, barks.ApplicableTypes.Sorted())
	require.Equal(t, "Boolean", barks.Type.String())
	require.True(t, barks.AppliesTo("Dog"))
	require.False(t, barks.AppliesTo("Cat"))
}

func TestPolymorphic_InterfaceConditionClosure(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)
	root := mergePlan(t, sch, `{ animal { ... on Animal { name } } }`, nil)

	animal := findField(t, root.SubFields, "animal")
	name := findField(t, animal.SubFields, "name")
	require.Equal(t, []string{"Animal"}, name.TargetTypes.Sorted())
	require.Equal(t, []string{"Animal", "Cat", "Dog"}, name.ApplicableTypes.Sorted())
}

func TestPolymorphic_UnionMemberClosure(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { thing: Thing }
		union Thing = Square | Circle
		type Square { side: Int }
		type Circle { radius: Int }
	`)
	root := mergePlan(t, sch, `{ thing { ... on Thing { __typename } } }`, nil)

	thing := findField(t, root.SubFields, "thing")
	tn := findField(t, thing.SubFields, "__typename")
	require.Equal(t, []string{"Circle", "Square", "Thing"}, tn.ApplicableTypes.Sorted())
}

func TestPolymorphic_FirstConditionWins(t *testing.T) {
	// The inner fragment tags the field first. The outer fragment merges the
	// already-tagged field without replacing its sets.
	sch := mustBuildSchema(t, animalsSDL)
	root := mergePlan(t, sch, heredoc.Doc(`
		{
			animal {
				... on Animal {
					... on Dog { name }
				}
			}
		}
	`), nil)

	animal := findField(t, root.SubFields, "animal")
	name := findField(t, animal.SubFields, "name")
	require.Equal(t, []string{"Dog"}, name.TargetTypes.Sorted())
	require.Equal(t, []string{"Dog"}, name.ApplicableTypes.Sorted())
}

func TestPolymorphic_SameKeyDifferentConditionsStaySeparate(t *testing.T) {
	sch := mustBuildSchema(t, heredoc.Doc(`
		type Query { animal: Animal }
		interface Animal { name: String }
		type Dog implements Animal { name: String }
		type Cat implements Animal { name: String }
	`))
	root := mergePlan(t, sch, heredoc.Doc(`
		{
			animal {
				... on Dog { name }
				... on Cat { name }
			}
		}
	`), nil)

	animal := findField(t, root.SubFields, "animal")
	require.Len(t, animal.SubFields, 2)
	require.Equal(t, []string{"Dog"}, animal.SubFields[0].ApplicableTypes.Sorted())
	require.Equal(t, []string{"Cat"}, animal.SubFields[1].ApplicableTypes.Sorted())
}

func TestPolymorphic_UnrelatedConditionFallsBackToScopeType(t *testing.T) {
	// Dog is not a possible type of Pet. The field still resolves against the
	// scope type so its declared type is kept, but inclusion is gated on Dog.
	sch := mustBuildSchema(t, animalsSDL)
	root := mergePlan(t, sch, `{ pet { ... on Dog { name } } }`, nil)

	pet := findField(t, root.SubFields, "pet")
	name := findField(t, pet.SubFields, "name")
	require.Equal(t, "String", name.Type.String())
	require.Equal(t, []string{"Dog"}, name.ApplicableTypes.Sorted())
	require.False(t, name.AppliesTo("Pet"))
}

func TestPolymorphic_PlainFieldAppliesUnconditionally(t *testing.T) {
	sch := mustBuildSchema(t, animalsSDL)
	root := mergePlan(t, sch, `{ animal { name } }`, nil)

	animal := findField(t, root.SubFields, "animal")
	name := findField(t, animal.SubFields, "name")
	require.Nil(t, name.ApplicableTypes)
	require.True(t, name.AppliesTo("Dog"))
	require.True(t, name.AppliesTo("Cat"))
}
