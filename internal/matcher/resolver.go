package matcher

import (
	"github.com/classyserve/pytype/internal/lattice"
)

// Conforms checks that candidate structurally satisfies protocol, regardless of its declared ancestry.
// The returned substitution holds the bindings discovered for the type parameters of protocol,
// for example the element type of an iterable. The view resolves the parameters of instances.
func (m *Matcher) Conforms(candidate lattice.Value, protocol *lattice.Class, view lattice.View) (Substitution, error) {
	if candidate == nil || protocol == nil {
		return nil, m.report(nil, internalError(candidate, nil, "nil candidate or protocol"))
	}
	if !protocol.IsProtocol() {
		return nil, m.report(nil, internalError(candidate, protocol, protocol.Name()+" is not a protocol"))
	}

	candidates := []lattice.Value{candidate}

	switch c := candidate.(type) {
	case *lattice.Unknown:
		return Substitution{}, nil
	case *lattice.Union:
		candidates = c.Options()
	}

	var last *Failure

	for _, option := range candidates {
		q := m.newQuery(nil, view)

		//the top level pair is active so that self-referential protocols terminate.
		q.push(option, protocol)

		_, discovered, failure := q.conform(option, protocol, nil, Substitution{})
		if failure == nil {
			return discovered, nil
		}
		if failure.isInternal() {
			return nil, m.report(nil, failure)
		}
		last = failure
	}

	if len(candidates) == 1 {
		return nil, m.report(nil, last)
	}
	return nil, m.report(nil, unionFailure(candidate, protocol, last))
}

func unionFailure(candidate lattice.Value, protocol *lattice.Class, last *Failure) *Failure {
	return &Failure{
		Reason:         UnionExhausted,
		SignatureIndex: -1,
		Depth:          1,
		Value:          candidate,
		Target:         protocol,
		Cause:          last,
	}
}

// conform checks value against the members required by protocol. The bindings discovered for the type
// parameters of the protocol are returned. If target is not nil (e.g. Iterable[int]), they are also matched
// against its parameters and the resulting bindings are merged into subst.
func (q *query) conform(
	value lattice.Value, protocol *lattice.Class, target *lattice.ParameterizedClass, subst Substitution,
) (result Substitution, discovered Substitution, failure *Failure) {
	spec := protocol.Protocol()

	var failureTarget lattice.Value = protocol
	if target != nil {
		failureTarget = target
	}

	candidate, failure := q.candidateMembers(value, failureTarget)
	if failure != nil {
		return nil, nil, failure
	}

	key, cacheable := q.conformanceKey(value, protocol, target)
	if cacheable {
		if cached, ok := q.m.conformance.Get(key); ok {
			if cachedFailure := cached.(conformanceResult).failure; cachedFailure != nil {
				return nil, nil, cachedFailure.clone()
			}
			return subst, Substitution{}, nil
		}
	}

	viewReads := q.viewReads
	local := Substitution{}

	for _, member := range spec.Members() {
		updated, memberFailure := q.checkMember(value, candidate, member, failureTarget, local)
		if memberFailure != nil {
			failure = memberFailure
			break
		}
		local = updated
	}

	if cacheable && q.viewReads == viewReads && (failure == nil || !failure.isInternal()) {
		q.m.conformance.Set(key, conformanceResult{failure: failure.clone()})
	}

	if failure != nil {
		return nil, nil, failure
	}

	discovered = local.restrict(protocol.TypeParams())
	result = subst

	if target != nil {
		for _, name := range target.ParamNames() {
			targetParam, _ := target.Param(name)

			param, ok := discovered[name]
			if !ok {
				param = lattice.UNKNOWN
			}

			updated, paramFailure := q.match(param, targetParam, result)
			if paramFailure != nil {
				return nil, nil, q.nested(SubtypeMismatch, value, target, name, paramFailure)
			}
			result = updated
		}
	}

	return result, discovered, nil
}

// checkMember resolves a required member on the candidate and checks its signatures.
func (q *query) checkMember(
	value lattice.Value, candidate candidateMembers, member lattice.ProtocolMember, target lattice.Value, local Substitution,
) (Substitution, *Failure) {
	definition, found, opaque := candidate.lookup(member.Name)
	if !found {
		for _, fallback := range member.Fallbacks {
			if _, ok, _ := candidate.lookup(fallback.Name); ok {
				return q.checkMember(value, candidate, fallback, target, local)
			}
		}
		if opaque {
			return local, nil
		}
		return nil, q.fail(MissingMember, value, target).withMember(member.Name, -1)
	}

	forms, failure := q.callableForms(definition, candidate.params, 0)
	if failure != nil {
		return nil, failure
	}
	if forms.optimistic {
		return local, nil
	}
	if !forms.callable {
		return nil, q.fail(NonCallableOverride, value, target).withMember(member.Name, -1)
	}
	if len(member.Signatures) == 0 {
		return local, nil
	}

	updated, index, failure := q.satisfy(member, forms.signatures, local)
	if failure != nil {
		if failure.isInternal() {
			return nil, failure
		}
		return nil, q.fail(IncompatibleSignature, value, target).withMember(member.Name, index).withCause(failure)
	}
	return updated, nil
}

// satisfy matches the candidate signatures of a member against the signatures required by the protocol.
// The index of the required signature that could not be satisfied is returned on failure.
func (q *query) satisfy(
	member lattice.ProtocolMember, candidates []*lattice.CallableSignature, local Substitution,
) (Substitution, int, *Failure) {
	if member.Coverage == lattice.EverySignature {
		result := local
		for i, required := range member.Signatures {
			updated, failure := q.matchAnySignature(candidates, required, result)
			if failure != nil {
				return nil, i, failure
			}
			result = updated
		}
		return result, -1, nil
	}

	var last *Failure
	lastIndex := -1

	for i, required := range member.Signatures {
		updated, failure := q.matchAnySignature(candidates, required, local)
		if failure == nil {
			return updated, -1, nil
		}
		if failure.isInternal() {
			return nil, i, failure
		}
		last = failure
		lastIndex = i
	}
	return nil, lastIndex, last
}

// candidateMembers gives access to the members of a value checked against a protocol.
type candidateMembers struct {
	cls  *lattice.Class
	call *lattice.CallableSignature

	//values of the type parameters of cls.
	params map[string]lattice.Value
}

func (c candidateMembers) lookup(name string) (definition lattice.Value, found bool, opaque bool) {
	if c.cls == nil {
		if name == "__call__" {
			return c.call, true, false
		}
		return nil, false, false
	}

	definition, _, found = c.cls.LookupMember(name)
	return definition, found, c.cls.HasOpaqueAncestor()
}

func (q *query) candidateMembers(value lattice.Value, target lattice.Value) (candidateMembers, *Failure) {
	switch v := value.(type) {
	case *lattice.CallableSignature:
		return candidateMembers{call: v}, nil
	case *lattice.Class:
		return candidateMembers{cls: v}, nil
	case *lattice.ParameterizedClass, *lattice.Instance:
		params, failure := q.ownParams(value)
		if failure != nil {
			return candidateMembers{}, failure
		}
		cls, _ := nominalClass(value)
		return candidateMembers{cls: cls, params: params}, nil
	default:
		return candidateMembers{}, q.fail(SubtypeMismatch, value, target)
	}
}

type memberForms struct {
	signatures []*lattice.CallableSignature

	//true if the member cannot be checked and is assumed to be compatible.
	optimistic bool

	callable bool
}

// callableForms returns the signatures under which member can be called,
// mapping holds the values of the type parameters of the class defining the member.
func (q *query) callableForms(member lattice.Value, mapping map[string]lattice.Value, level int) (memberForms, *Failure) {
	if level > q.m.maxDepth {
		return memberForms{}, q.fail(RecursionLimit, member, nil)
	}

	switch m := member.(type) {
	case *lattice.CallableSignature:
		sig := lattice.Substitute(m, mapping).(*lattice.CallableSignature)
		return memberForms{signatures: []*lattice.CallableSignature{sig}, callable: true}, nil
	case *lattice.Unknown, *lattice.TypeParameter:
		return memberForms{optimistic: true, callable: true}, nil
	case *lattice.Union:
		var forms memberForms
		for _, option := range m.Options() {
			optionForms, failure := q.callableForms(option, mapping, level+1)
			if failure != nil {
				return memberForms{}, failure
			}
			forms.signatures = append(forms.signatures, optionForms.signatures...)
			forms.optimistic = forms.optimistic || optionForms.optimistic
			forms.callable = forms.callable || optionForms.callable
		}
		return forms, nil
	case *lattice.Instance:
		call, _, found := m.Class().LookupMember("__call__")
		if !found {
			return memberForms{optimistic: m.Class().HasOpaqueAncestor(), callable: m.Class().HasOpaqueAncestor()}, nil
		}
		own, failure := q.ownParams(m)
		if failure != nil {
			return memberForms{}, failure
		}
		return q.callableForms(call, own, level+1)
	case *lattice.Class:
		constructor := lattice.NewSignature(m.Name(), nil, lattice.NewInstance(m, nil), true)
		return memberForms{signatures: []*lattice.CallableSignature{constructor}, callable: true}, nil
	case *lattice.ParameterizedClass:
		constructor := lattice.NewSignature(m.Base().Name(), nil, lattice.Substitute(m, mapping), true)
		return memberForms{signatures: []*lattice.CallableSignature{constructor}, callable: true}, nil
	default:
		return memberForms{}, nil
	}
}

type conformanceKey struct {
	cls      *lattice.Class
	protocol *lattice.Class
}

// A conformanceResult holds a private copy of the failure, callers receive their own copy.
type conformanceResult struct {
	failure *Failure
}

// conformanceKey returns the cache key of a check whose result only depends on the class of value and
// on the protocol: the protocol and the candidate have no type parameters and no assumption
// about an enclosing match can be involved.
func (q *query) conformanceKey(value lattice.Value, protocol *lattice.Class, target *lattice.ParameterizedClass) (conformanceKey, bool) {
	if target != nil || len(protocol.TypeParams()) > 0 || len(q.active) > 1 {
		return conformanceKey{}, false
	}

	switch v := value.(type) {
	case *lattice.Class:
		return conformanceKey{cls: v, protocol: protocol}, true
	case *lattice.Instance:
		if len(v.ParamNames()) == 0 {
			return conformanceKey{cls: v.Class(), protocol: protocol}, true
		}
	}
	return conformanceKey{}, false
}
