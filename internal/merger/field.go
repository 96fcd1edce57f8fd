package merger

import (
	"encoding/json"
	"sort"

	language "github.com/graphplan/graphplan/internal/language"
	schema "github.com/graphplan/graphplan/internal/schema"
)

// ResolvedField is one node of the merged execution tree. The tree is built
// once per Merge call and is read-only afterwards, so it may be shared across
// goroutines by the resolution layer.
type ResolvedField struct {
	// Name is the schema field name; empty for the synthetic root.
	Name string
	// Alias is the query alias, when one was given.
	Alias string
	// Type is the field's declared type; unresolvable names fall back to String.
	Type *schema.TypeRef
	// ParentType is the type the field was selected on; nil for the root.
	ParentType *schema.TypeRef
	// Arguments holds the field arguments with variables already substituted.
	Arguments map[string]any
	// Directives holds query-level directives followed by directives declared
	// on the schema field definition, with variables substituted.
	Directives []*ResolvedDirective
	// SubFields is the merged child list, in first-occurrence order of
	// distinct response keys.
	SubFields []*ResolvedField
	// TargetTypes collects the type-condition names that contributed this
	// field. Used to disambiguate merge partners, not for runtime gating.
	TargetTypes TypeSet
	// ApplicableTypes is the closure of concrete type names the field applies
	// to. nil means the field applies unconditionally under ParentType. Set by
	// the first contributing fragment and never replaced afterwards.
	ApplicableTypes TypeSet
	// Position points at the field in the query source, for diagnostics only.
	Position *language.Position
}

// ResponseKey returns the key under which the field appears in the response:
// the alias when present, the field name otherwise.
func (f *ResolvedField) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// AppliesTo reports whether the field should be included when the parent
// value resolved to the given concrete type.
func (f *ResolvedField) AppliesTo(typeName string) bool {
	return f.ApplicableTypes == nil || f.ApplicableTypes.Has(typeName)
}

func (f *ResolvedField) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldJSON{
		Name:            f.Name,
		Alias:           f.Alias,
		Type:            f.Type.String(),
		Arguments:       f.Arguments,
		Directives:      f.Directives,
		TargetTypes:     f.TargetTypes.Sorted(),
		ApplicableTypes: f.ApplicableTypes.Sorted(),
		Fields:          f.SubFields,
	})
}

type fieldJSON struct {
	Name            string               `json:"name,omitempty"`
	Alias           string               `json:"alias,omitempty"`
	Type            string               `json:"type,omitempty"`
	Arguments       map[string]any       `json:"arguments,omitempty"`
	Directives      []*ResolvedDirective `json:"directives,omitempty"`
	TargetTypes     []string             `json:"targetTypes,omitempty"`
	ApplicableTypes []string             `json:"applicableTypes,omitempty"`
	Fields          []*ResolvedField     `json:"fields,omitempty"`
}

// ResolvedDirective is a directive usage with its arguments reduced to Go
// literals.
type ResolvedDirective struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// TypeSet is a set of type names. The nil set is distinct from the empty set:
// a nil ApplicableTypes means "applies unconditionally".
type TypeSet map[string]struct{}

func NewTypeSet(names ...string) TypeSet {
	s := make(TypeSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s TypeSet) Add(name string)      { s[name] = struct{}{} }
func (s TypeSet) Has(name string) bool { _, ok := s[name]; return ok }

func (s TypeSet) Equal(o TypeSet) bool {
	if len(s) != len(o) {
		return false
	}
	for n := range s {
		if !o.Has(n) {
			return false
		}
	}
	return true
}

// Union returns the union of both sets. When the sets are already equal the
// receiver is returned unchanged, so repeated merges of identical fragment
// contributions do not reallocate.
func (s TypeSet) Union(o TypeSet) TypeSet {
	if s.Equal(o) {
		return s
	}
	out := make(TypeSet, len(s)+len(o))
	for n := range s {
		out.Add(n)
	}
	for n := range o {
		out.Add(n)
	}
	return out
}

// Sorted returns the members in lexicographic order; nil for the nil set.
func (s TypeSet) Sorted() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
