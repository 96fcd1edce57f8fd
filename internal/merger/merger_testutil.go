package merger

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/graphplan/graphplan/internal/language"
	schema "github.com/graphplan/graphplan/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustBuildSchema builds a registry from SDL and fails the test on error.
func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

// mergePlan parses the query and merges its single operation.
func mergePlan(t *testing.T, sch *schema.Schema, query string, vars map[string]any) *ResolvedField {
	t.Helper()
	doc := mustParseQuery(t, query)
	root, err := MergeOperation(sch, doc, "", vars)
	require.NoError(t, err)
	return root
}

// responseKeys projects the merged list to its response keys, in order.
func responseKeys(fields []*ResolvedField) []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.ResponseKey()
	}
	return keys
}

// findField returns the single field with the given response key.
func findField(t *testing.T, fields []*ResolvedField, key string) *ResolvedField {
	t.Helper()
	var found *ResolvedField
	for _, f := range fields {
		if f.ResponseKey() == key {
			require.Nilf(t, found, "response key %q occurs more than once", key)
			found = f
		}
	}
	require.NotNilf(t, found, "response key %q not found", key)
	return found
}
