package schema

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/graphplan/graphplan/internal/language"
)

// BuildFromSDL builds the type registry from a GraphQL SDL document.
// Type extensions are merged into their base definitions, and PossibleTypes is
// computed for every interface and union.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.ParseSchema("schema.graphql", sdl)
	if err != nil {
		return nil, fmt.Errorf("parse sdl: %w", err)
	}

	s := NewSchema("")
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective).
		AddDirective(deprecatedDirective)

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, ext := range doc.Extensions {
		base := s.Types[ext.Name]
		if base == nil {
			return nil, fmt.Errorf("extend type %s: no base definition", ext.Name)
		}
		if err := mergeExtension(base, ext); err != nil {
			return nil, err
		}
	}
	for _, dir := range doc.Directives {
		s.AddDirective(buildDirectiveDefinition(dir))
	}

	resolveRootTypes(s, doc)
	computePossibleTypes(s)
	return s, nil
}

func buildDefinition(def *language.Definition) (*Type, error) {
	var kind TypeKind
	switch def.Kind {
	case language.Object:
		kind = TypeKindObject
	case language.Interface:
		kind = TypeKindInterface
	case language.Union:
		kind = TypeKindUnion
	case language.Scalar:
		kind = TypeKindScalar
	case language.Enum:
		kind = TypeKindEnum
	case language.InputObject:
		kind = TypeKindInputObject
	default:
		return nil, fmt.Errorf("unsupported definition kind %s for %s", def.Kind, def.Name)
	}

	t := NewType(def.Name, kind, def.Description)
	for _, iface := range def.Interfaces {
		t.AddInterface(iface)
	}
	switch kind {
	case TypeKindObject, TypeKindInterface:
		for _, f := range def.Fields {
			t.AddField(buildField(f))
		}
	case TypeKindUnion:
		for _, member := range def.Types {
			t.AddPossibleType(member)
		}
	case TypeKindEnum:
		for _, v := range def.EnumValues {
			reason, deprecated := deprecation(v.Directives)
			t.AddEnumValue(&EnumValue{
				Name:              v.Name,
				Description:       v.Description,
				IsDeprecated:      deprecated,
				DeprecationReason: reason,
			})
		}
	case TypeKindInputObject:
		for _, f := range def.Fields {
			t.AddInputField(buildInputField(f))
		}
		if def.Directives.ForName("oneOf") != nil {
			t.OneOf = true
		}
	case TypeKindScalar:
		if sb := def.Directives.ForName("specifiedBy"); sb != nil {
			if arg := sb.Arguments.ForName("url"); arg != nil {
				if url, ok := valueToGo(arg.Value).(string); ok {
					t.SpecifiedByURL = &url
				}
			}
		}
	}
	return t, nil
}

func mergeExtension(base *Type, ext *language.Definition) error {
	for _, iface := range ext.Interfaces {
		base.AddInterface(iface)
	}
	switch base.Kind {
	case TypeKindObject, TypeKindInterface:
		for _, f := range ext.Fields {
			if base.GetField(f.Name) != nil {
				return fmt.Errorf("extend type %s: duplicate field %s", ext.Name, f.Name)
			}
			base.AddField(buildField(f))
		}
	case TypeKindUnion:
		for _, member := range ext.Types {
			base.AddPossibleType(member)
		}
	case TypeKindInputObject:
		for _, f := range ext.Fields {
			base.AddInputField(buildInputField(f))
		}
	}
	return nil
}

func buildField(def *language.FieldDefinition) *Field {
	f := &Field{
		Name:        def.Name,
		Description: def.Description,
		Type:        TypeRefFromAST(def.Type),
	}
	for _, arg := range def.Arguments {
		f.Arguments = append(f.Arguments, &InputValue{
			Name:         arg.Name,
			Description:  arg.Description,
			Type:         TypeRefFromAST(arg.Type),
			DefaultValue: valueToGo(arg.DefaultValue),
		})
	}
	for _, d := range def.Directives {
		f.Directives = append(f.Directives, buildAppliedDirective(d))
	}
	f.DeprecationReason, f.IsDeprecated = deprecation(def.Directives)
	return f
}

func buildInputField(def *language.FieldDefinition) *InputValue {
	reason, deprecated := deprecation(def.Directives)
	return &InputValue{
		Name:              def.Name,
		Description:       def.Description,
		Type:              TypeRefFromAST(def.Type),
		DefaultValue:      valueToGo(def.DefaultValue),
		IsDeprecated:      deprecated,
		DeprecationReason: reason,
	}
}

func buildAppliedDirective(d *language.Directive) *AppliedDirective {
	args := make(map[string]any, len(d.Arguments))
	for _, arg := range d.Arguments {
		args[arg.Name] = valueToGo(arg.Value)
	}
	return &AppliedDirective{Name: d.Name, Arguments: args}
}

func buildDirectiveDefinition(def *language.DirectiveDefinition) *Directive {
	d := &Directive{
		Name:         def.Name,
		Description:  def.Description,
		IsRepeatable: def.IsRepeatable,
	}
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range def.Arguments {
		d.Arguments = append(d.Arguments, &InputValue{
			Name:         arg.Name,
			Description:  arg.Description,
			Type:         TypeRefFromAST(arg.Type),
			DefaultValue: valueToGo(arg.DefaultValue),
		})
	}
	return d
}

func deprecation(directives language.DirectiveList) (reason string, deprecated bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil {
		reason, _ = valueToGo(arg.Value).(string)
	}
	return reason, true
}

func resolveRootTypes(s *Schema, doc *language.SchemaDocument) {
	s.SetQueryType("Query").SetMutationType("Mutation").SetSubscriptionType("Subscription")
	for _, sd := range append(doc.Schema, doc.SchemaExtension...) {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.SetQueryType(op.Type)
			case language.Mutation:
				s.SetMutationType(op.Type)
			case language.Subscription:
				s.SetSubscriptionType(op.Type)
			}
		}
	}
}

// computePossibleTypes fills Type.PossibleTypes for interfaces from the
// declared implements clauses. Union members are recorded at build time.
func computePossibleTypes(s *Schema) {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.Types[name]
		if t.Kind != TypeKindObject && t.Kind != TypeKindInterface {
			continue
		}
		for _, iface := range t.Interfaces {
			impl := s.Types[iface]
			if impl == nil || impl.Kind != TypeKindInterface {
				continue
			}
			impl.AddPossibleType(t.Name)
		}
	}
}

// TypeRefFromAST converts a gqlparser type expression to a registry TypeRef.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(TypeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return ListType(TypeRefFromAST(t.Elem))
	}
	return nil
}

// valueToGo reduces a constant AST value to a plain Go literal. Variables do
// not occur in SDL positions and reduce to nil.
func valueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = valueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}
