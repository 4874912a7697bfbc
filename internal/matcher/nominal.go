package matcher

import (
	"strconv"

	"github.com/classyserve/pytype/internal/lattice"
)

// nominalClass returns the class a value is checked against nominally: the class of an instance,
// the base of a parameterized class or the class itself (a class used as a type stands for its instances).
func nominalClass(value lattice.Value) (*lattice.Class, bool) {
	switch v := value.(type) {
	case *lattice.Instance:
		return v.Class(), true
	case *lattice.Class:
		return v, true
	case *lattice.ParameterizedClass:
		return v.Base(), true
	default:
		return nil, false
	}
}

func (q *query) matchClass(value lattice.Value, target *lattice.Class, subst Substitution) (Substitution, *Failure) {
	if _, ok := value.(*lattice.Class); ok && target.IsMetaclass() {
		return subst, nil
	}

	if cls, ok := nominalClass(value); ok {
		if cls.IsSubclassOf(target) || cls.HasOpaqueAncestor() {
			return subst, nil
		}
	}

	if target.IsProtocol() {
		result, _, failure := q.conform(value, target, nil, subst)
		return result, failure
	}

	return nil, q.fail(SubtypeMismatch, value, target)
}

func (q *query) matchParameterizedClass(
	value lattice.Value, target *lattice.ParameterizedClass, subst Substitution,
) (Substitution, *Failure) {
	base := target.Base()

	//a class matched against type[T] binds T to an instance of the class.
	if cls, ok := value.(*lattice.Class); ok && base.IsMetaclass() {
		instance := lattice.NewInstance(cls, nil)
		result := subst

		for _, name := range target.ParamNames() {
			param, _ := target.Param(name)

			updated, failure := q.match(instance, param, result)
			if failure != nil {
				return nil, q.nested(SubtypeMismatch, value, target, name, failure)
			}
			result = updated
		}
		return result, nil
	}

	if cls, ok := nominalClass(value); ok {
		if cls.IsSubclassOf(base) {
			return q.matchParams(value, cls, target, subst)
		}
		if cls.HasOpaqueAncestor() {
			return subst, nil
		}
	}

	if base.IsProtocol() {
		result, _, failure := q.conform(value, base, target, subst)
		return result, failure
	}

	return nil, q.fail(SubtypeMismatch, value, target)
}

// matchParams matches the parameters value passes to the base of target against the parameters of target,
// cls is a subclass of the base.
func (q *query) matchParams(
	value lattice.Value, cls *lattice.Class, target *lattice.ParameterizedClass, subst Substitution,
) (Substitution, *Failure) {
	own, failure := q.ownParams(value)
	if failure != nil {
		return nil, failure
	}

	inherited, _ := cls.InheritedParams(target.Base())
	result := subst

	for _, name := range target.ParamNames() {
		targetParam, _ := target.Param(name)

		var sourceParam lattice.Value = lattice.UNKNOWN
		if inherited == nil {
			if param, ok := own[name]; ok {
				sourceParam = param
			}
		} else if param, ok := inherited[name]; ok {
			sourceParam = lattice.Substitute(param, own)
		}

		updated, failure := q.match(sourceParam, targetParam, result)
		if failure != nil {
			return nil, q.nested(SubtypeMismatch, value, target, name, failure)
		}
		result = updated
	}

	return result, nil
}

// ownParams returns the values of the type parameters carried by value itself.
func (q *query) ownParams(value lattice.Value) (map[string]lattice.Value, *Failure) {
	switch v := value.(type) {
	case *lattice.ParameterizedClass:
		return v.Params(), nil
	case *lattice.Instance:
		names := v.ParamNames()
		if len(names) == 0 {
			return nil, nil
		}

		params := make(map[string]lattice.Value, len(names))
		for _, name := range names {
			variable, _ := v.Param(name)
			param, failure := q.paramValue(variable)
			if failure != nil {
				return nil, failure
			}
			params[name] = param
		}
		return params, nil
	default:
		return nil, nil
	}
}

func (q *query) matchCallable(
	value lattice.Value, target *lattice.CallableSignature, subst Substitution,
) (Substitution, *Failure) {
	switch v := value.(type) {
	case *lattice.CallableSignature:
		return q.matchSignature(v, target, subst)
	case *lattice.Instance, *lattice.Class, *lattice.ParameterizedClass:
		forms, failure := q.callableForms(value, nil, 0)
		if failure != nil {
			return nil, failure
		}
		if forms.optimistic {
			return subst, nil
		}
		if !forms.callable {
			return nil, q.fail(SubtypeMismatch, value, target).withMember("__call__", -1)
		}
		return q.matchAnySignature(forms.signatures, target, subst)
	}

	return nil, q.fail(SubtypeMismatch, value, target)
}

// matchSignature checks that value can be called where target is expected: parameters are contravariant
// (or compatible) and the return type is covariant. A variadic target does not constrain the parameters.
// The type parameters of value are renamed so that they never capture the parameters of the caller,
// their bindings are only used to resolve the return type of value.
func (q *query) matchSignature(
	value *lattice.CallableSignature, target *lattice.CallableSignature, subst Substitution,
) (Substitution, *Failure) {
	candidate, fresh := q.freshen(value)
	result := subst

	if !target.IsVariadic() {
		count := target.ParamCount()

		if candidate.ParamCount() > count || (!candidate.IsVariadic() && candidate.ParamCount() != count) {
			return nil, q.fail(IncompatibleSignature, value, target)
		}

		for i := 0; i < candidate.ParamCount(); i++ {
			valueParam := candidate.Param(i)
			targetParam := target.Param(i)

			updated, failure := q.match(targetParam.Type, valueParam.Type, result)
			if failure != nil {
				if failure.isInternal() {
					return nil, failure
				}
				compatible, compatibleFailure := q.match(valueParam.Type, targetParam.Type, result)
				if compatibleFailure != nil {
					return nil, q.nested(IncompatibleSignature, value, target, valueParam.Name, failure)
				}
				updated = compatible
			}
			result = updated
		}
	}

	ret := candidate.Return()
	if len(fresh) > 0 {
		mapping := make(map[string]lattice.Value, len(fresh))
		for _, name := range fresh {
			bound, ok := result[name]
			if !ok {
				bound = lattice.UNKNOWN
			}
			mapping[name] = bound
		}
		ret = lattice.Substitute(ret, mapping)
		result = result.eliminate(mapping)
	}

	updated, failure := q.match(ret, target.Return(), result)
	if failure != nil {
		return nil, q.nested(IncompatibleSignature, value, target, "return", failure)
	}
	return updated, nil
}

// freshen renames the type parameters of sig, the new names depend on the current depth
// so that nested signatures never share them.
func (q *query) freshen(sig *lattice.CallableSignature) (*lattice.CallableSignature, []string) {
	names := lattice.FreeTypeParams(sig)
	if len(names) == 0 {
		return sig, nil
	}

	suffix := "'" + strconv.Itoa(q.depth)
	mapping := make(map[string]lattice.Value, len(names))
	fresh := make([]string, len(names))

	for i, name := range names {
		fresh[i] = name + suffix
		mapping[name] = lattice.NewTypeParameter(fresh[i])
	}
	return lattice.Substitute(sig, mapping).(*lattice.CallableSignature), fresh
}

// matchAnySignature succeeds if one of the candidate signatures matches target.
func (q *query) matchAnySignature(
	candidates []*lattice.CallableSignature, target *lattice.CallableSignature, subst Substitution,
) (Substitution, *Failure) {
	var last *Failure

	for _, candidate := range candidates {
		result, failure := q.match(candidate, target, subst)
		if failure == nil {
			return result, nil
		}
		if failure.isInternal() {
			return nil, failure
		}
		last = failure
	}

	if last == nil {
		return nil, q.fail(IncompatibleSignature, nil, target)
	}
	return nil, last
}

// nested wraps the failure of a sub-match involving member, internal errors are returned as is.
func (q *query) nested(reason Reason, value, target lattice.Value, member string, cause *Failure) *Failure {
	if cause.isInternal() {
		return cause
	}
	return q.fail(reason, value, target).withMember(member, -1).withCause(cause)
}
