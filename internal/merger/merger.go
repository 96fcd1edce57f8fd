package merger

import (
	"errors"
	"fmt"

	language "github.com/graphplan/graphplan/internal/language"
	schema "github.com/graphplan/graphplan/internal/schema"
)

// ErrFragmentCycle is returned when a fragment spreads itself, directly or
// transitively. Cyclic fragment graphs are a configuration error; merging
// cannot degrade gracefully for them.
var ErrFragmentCycle = errors.New("fragment spread cycle")

// placeholderType is used for field names the registry cannot resolve, such as
// __typename and other meta fields. They stay in the tree as opaque strings
// instead of failing the merge.
var placeholderType = schema.NamedType("String")

// Merge normalizes a selection set into a single deduplicated tree of
// ResolvedFields rooted at a synthetic field of the given root type.
//
// Irregular inputs degrade by omission: unknown fragment names contribute
// nothing, unknown field names keep an opaque String type, and arguments bound
// to variables with neither a binding nor a default are dropped. The only
// returned error is ErrFragmentCycle (wrapped with the offending fragment
// name).
func Merge(
	sch *schema.Schema,
	sel language.SelectionSet,
	fragments language.FragmentDefinitionList,
	varDefs language.VariableDefinitionList,
	vars map[string]any,
	rootType *schema.TypeRef,
	directives language.DirectiveList,
) (*ResolvedField, error) {
	st := &mergeState{
		schema:    sch,
		fragments: fragments,
		varDefs:   varDefs,
		vars:      vars,
		active:    make(map[string]bool),
	}
	sub, err := st.mergeSelectionSet(sel, rootType)
	if err != nil {
		return nil, err
	}
	return &ResolvedField{
		Type:       rootType,
		Directives: st.resolveDirectives(directives),
		SubFields:  sub,
	}, nil
}

// MergeOperation selects the named operation from a parsed query document,
// resolves its root type from the registry, and merges its selection set.
// An empty operationName is accepted when the document holds exactly one
// operation.
func MergeOperation(sch *schema.Schema, doc *language.QueryDocument, operationName string, vars map[string]any) (*ResolvedField, error) {
	op := getOperation(doc, operationName)
	if op == nil {
		return nil, fmt.Errorf("operation %q not found", operationName)
	}
	var rootName string
	switch op.Operation {
	case language.Query:
		rootName = sch.QueryType
	case language.Mutation:
		rootName = sch.MutationType
	case language.Subscription:
		rootName = sch.SubscriptionType
	}
	if rootName == "" || sch.Lookup(rootName) == nil {
		return nil, fmt.Errorf("root type not found for %s operation", op.Operation)
	}
	return Merge(sch, op.SelectionSet, doc.Fragments, op.VariableDefinitions, vars, schema.NamedType(rootName), op.Directives)
}

func getOperation(doc *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return doc.Operations.ForName(operationName)
}

// mergeState carries the per-invocation inputs. All scope-local bookkeeping
// lives in mergeScope, one per recursion frame.
type mergeState struct {
	schema    *schema.Schema
	fragments language.FragmentDefinitionList
	varDefs   language.VariableDefinitionList
	vars      map[string]any
	// active holds the fragment names on the current spread path, for cycle
	// detection.
	active map[string]bool
}

// scopeKey identifies a mergeable field within one scope: response key plus
// the type-condition name that produced it ("" for plain fields).
type scopeKey struct {
	responseKey string
	condition   string
}

// mergeScope is the ordered buffer plus position index for one selection list.
type mergeScope struct {
	fields []*ResolvedField
	index  map[scopeKey]int
}

func newMergeScope() *mergeScope {
	return &mergeScope{index: make(map[scopeKey]int)}
}

// merge adds a contributed field under the given condition label. A repeated
// occurrence is combined with the existing entry in place: subfields are
// concatenated, target and applicable sets are unioned. Subfield
// concatenation is deliberately shallow; overlapping sub-response-keys are
// only reconciled when that field's own subfields are merged one level down.
func (sc *mergeScope) merge(f *ResolvedField, condition string) {
	key := scopeKey{responseKey: f.ResponseKey(), condition: condition}
	i, ok := sc.index[key]
	if !ok {
		sc.index[key] = len(sc.fields)
		sc.fields = append(sc.fields, f)
		return
	}
	prev := sc.fields[i]
	prev.SubFields = append(prev.SubFields, f.SubFields...)
	prev.TargetTypes = prev.TargetTypes.Union(f.TargetTypes)
	prev.ApplicableTypes = prev.ApplicableTypes.Union(f.ApplicableTypes)
}

// splice appends fields without consulting the index. Used for inline
// fragments without a type condition, which act as transparent grouping.
func (sc *mergeScope) splice(fields []*ResolvedField) {
	if len(fields) == 0 {
		return
	}
	sc.fields = append(sc.fields, fields...)
}

// mergeSelectionSet is the recursive core: one call per selection list, with
// parentType the type currently in context.
func (st *mergeState) mergeSelectionSet(sel language.SelectionSet, parentType *schema.TypeRef) ([]*ResolvedField, error) {
	if len(sel) == 0 {
		return nil, nil
	}
	scope := newMergeScope()

	for _, selection := range sel {
		switch s := selection.(type) {
		case *language.Field:
			fieldType, declared := st.fieldTypeAndDirectives(parentType, s.Name)
			directives := st.resolveDirectives(s.Directives)
			directives = append(directives, declared...)
			if !shouldInclude(directives) {
				continue
			}
			sub, err := st.mergeSelectionSet(s.SelectionSet, fieldType)
			if err != nil {
				return nil, err
			}
			scope.merge(&ResolvedField{
				Name:       s.Name,
				Alias:      s.Alias,
				Type:       fieldType,
				ParentType: parentType,
				Arguments:  st.resolveArguments(s.Arguments),
				Directives: directives,
				SubFields:  sub,
				Position:   s.Position,
			}, "")

		case *language.FragmentSpread:
			if !shouldInclude(st.resolveDirectives(s.Directives)) {
				continue
			}
			frag := st.fragments.ForName(s.Name)
			if frag == nil {
				continue
			}
			if st.active[s.Name] {
				return nil, fmt.Errorf("fragment %q: %w", s.Name, ErrFragmentCycle)
			}
			st.active[s.Name] = true
			sub, err := st.mergeSelectionSet(frag.SelectionSet, st.effectiveType(parentType, frag.TypeCondition))
			delete(st.active, s.Name)
			if err != nil {
				return nil, err
			}
			st.tagAndMerge(scope, sub, frag.TypeCondition)

		case *language.InlineFragment:
			if !shouldInclude(st.resolveDirectives(s.Directives)) {
				continue
			}
			sub, err := st.mergeSelectionSet(s.SelectionSet, st.effectiveType(parentType, s.TypeCondition))
			if err != nil {
				return nil, err
			}
			if s.TypeCondition == "" {
				scope.splice(sub)
				continue
			}
			st.tagAndMerge(scope, sub, s.TypeCondition)
		}
	}
	return scope.fields, nil
}

// tagAndMerge stamps fragment-contributed fields with their originating type
// condition and merges them into the scope. ApplicableTypes is only assigned
// when a nested fragment has not set it already.
func (st *mergeState) tagAndMerge(scope *mergeScope, fields []*ResolvedField, condition string) {
	for _, f := range fields {
		if f.ApplicableTypes == nil {
			f.TargetTypes = NewTypeSet(condition)
			f.ApplicableTypes = st.subtypeClosure(condition)
		}
		scope.merge(f, condition)
	}
}

// fieldTypeAndDirectives looks the field up on the unwrapped parent type.
// Unresolvable names keep the String placeholder and no declared directives.
func (st *mergeState) fieldTypeAndDirectives(parentType *schema.TypeRef, name string) (*schema.TypeRef, []*ResolvedDirective) {
	t := st.schema.Lookup(schema.GetNamedType(parentType))
	if t == nil {
		return placeholderType, nil
	}
	def := t.GetField(name)
	if def == nil {
		return placeholderType, nil
	}
	var declared []*ResolvedDirective
	for _, d := range def.Directives {
		declared = append(declared, &ResolvedDirective{Name: d.Name, Arguments: d.Arguments})
	}
	return def.Type, declared
}

// effectiveType picks the type to recurse with for a fragment: the possible
// subtype of the current type matching the condition, or the current scope's
// type when the condition names a type outside the current hierarchy. The
// fallback keeps merge behavior for fragments on unrelated types.
func (st *mergeState) effectiveType(parentType *schema.TypeRef, condition string) *schema.TypeRef {
	if condition == "" {
		return parentType
	}
	if t := st.schema.Lookup(schema.GetNamedType(parentType)); t != nil {
		for _, name := range t.PossibleTypes {
			if name == condition {
				return schema.NamedType(condition)
			}
		}
	}
	return parentType
}

// subtypeClosure returns the transitive set of type names reachable from the
// given name through PossibleTypes, including the name itself. Unknown names
// close over themselves. Recursion is bounded by the subtype depth of the
// schema, which is acyclic.
func (st *mergeState) subtypeClosure(name string) TypeSet {
	set := NewTypeSet(name)
	t := st.schema.Lookup(name)
	if t == nil {
		return set
	}
	for _, sub := range t.PossibleTypes {
		for n := range st.subtypeClosure(sub) {
			set.Add(n)
		}
	}
	return set
}

// shouldInclude evaluates @skip/@include over already-resolved directives.
// A missing or non-boolean `if` argument falls back to the directive default:
// skip does not skip, include does include.
func shouldInclude(directives []*ResolvedDirective) bool {
	for _, d := range directives {
		switch d.Name {
		case "skip":
			if v, ok := d.Arguments["if"].(bool); ok && v {
				return false
			}
		case "include":
			if v, ok := d.Arguments["if"].(bool); ok && !v {
				return false
			}
		}
	}
	return true
}
