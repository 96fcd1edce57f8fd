package merger

import (
	"strconv"

	language "github.com/graphplan/graphplan/internal/language"
)

// resolveDirectives substitutes variables into directive arguments, keeping
// input order.
func (st *mergeState) resolveDirectives(directives language.DirectiveList) []*ResolvedDirective {
	if len(directives) == 0 {
		return nil
	}
	out := make([]*ResolvedDirective, 0, len(directives))
	for _, d := range directives {
		out = append(out, &ResolvedDirective{Name: d.Name, Arguments: st.resolveArguments(d.Arguments)})
	}
	return out
}

// resolveArguments substitutes variables into an argument list. Arguments
// whose value resolves to nothing are absent from the map, not null.
func (st *mergeState) resolveArguments(args language.ArgumentList) map[string]any {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		if v, ok := st.resolveValue(arg.Value); ok {
			out[arg.Name] = v
		}
	}
	return out
}

// resolveValue rewrites an AST value into a Go literal. The boolean result is
// false when the value is a variable reference with neither a binding nor a
// declared default; list elements and object keys that resolve to nothing are
// dropped rather than kept as null.
func (st *mergeState) resolveValue(value *language.Value) (any, bool) {
	if value == nil {
		return nil, false
	}
	switch value.Kind {
	case language.Variable:
		if v, ok := st.vars[value.Raw]; ok {
			return v, true
		}
		if def := st.variableDefinition(value.Raw); def != nil && def.DefaultValue != nil {
			return st.resolveValue(def.DefaultValue)
		}
		return nil, false
	case language.ListValue:
		out := make([]any, 0, len(value.Children))
		for _, c := range value.Children {
			if v, ok := st.resolveValue(c.Value); ok {
				out = append(out, v)
			}
		}
		return out, true
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			if v, ok := st.resolveValue(c.Value); ok {
				m[c.Name] = v
			}
		}
		return m, true
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv, true
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv, true
	case language.StringValue, language.BlockValue:
		return value.Raw, true
	case language.BooleanValue:
		return value.Raw == "true", true
	case language.NullValue:
		return nil, true
	case language.EnumValue:
		return value.Raw, true
	default:
		return nil, false
	}
}

func (st *mergeState) variableDefinition(name string) *language.VariableDefinition {
	for _, def := range st.varDefs {
		if def.Variable == name {
			return def
		}
	}
	return nil
}
