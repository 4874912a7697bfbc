package lattice

import "golang.org/x/exp/slices"

// Substitute replaces the type parameters of v that have an entry in mapping.
// Values without substituted parts are returned unchanged.
func Substitute(v Value, mapping map[string]Value) Value {
	if len(mapping) == 0 || v == nil {
		return v
	}

	switch val := v.(type) {
	case *TypeParameter:
		if replacement, ok := mapping[val.name]; ok {
			return replacement
		}
		return val
	case *ParameterizedClass:
		params := substituteParams(val.params, mapping)
		changed := false
		for name, param := range params {
			if param != val.params[name] {
				changed = true
				break
			}
		}
		if !changed {
			return val
		}
		return NewParameterizedClass(val.base, params)
	case *Union:
		changed := false
		options := make([]Value, len(val.options))
		for i, option := range val.options {
			options[i] = Substitute(option, mapping)
			if options[i] != option {
				changed = true
			}
		}
		if !changed {
			return val
		}
		return Join(options...)
	case *CallableSignature:
		changed := false
		params := make([]Param, len(val.params))
		for i, param := range val.params {
			params[i] = Param{Name: param.Name, Type: Substitute(param.Type, mapping)}
			if params[i].Type != param.Type {
				changed = true
			}
		}
		ret := Substitute(val.ret, mapping)
		if !changed && ret == val.ret {
			return val
		}
		return NewSignature(val.name, params, ret, val.varargs)
	default:
		return v
	}
}

func substituteParams(params map[string]Value, mapping map[string]Value) map[string]Value {
	result := make(map[string]Value, len(params))
	for name, param := range params {
		result[name] = Substitute(param, mapping)
	}
	return result
}

// FreeTypeParams returns the names of the type parameters referenced by v, in order of first occurrence.
func FreeTypeParams(v Value) []string {
	var names []string

	var visit func(v Value)
	visit = func(v Value) {
		switch val := v.(type) {
		case *TypeParameter:
			if !slices.Contains(names, val.name) {
				names = append(names, val.name)
			}
		case *ParameterizedClass:
			for _, name := range val.ParamNames() {
				visit(val.params[name])
			}
		case *Union:
			for _, option := range val.options {
				visit(option)
			}
		case *CallableSignature:
			for _, param := range val.params {
				visit(param.Type)
			}
			visit(val.ret)
		}
	}

	visit(v)
	return names
}
