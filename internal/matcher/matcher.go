package matcher

import (
	"github.com/rs/zerolog"
	"github.com/tidwall/tinylru"

	"github.com/classyserve/pytype/internal/cfg"
	"github.com/classyserve/pytype/internal/lattice"
)

// A Matcher decides whether values are compatible with declared types and infers bindings
// for type parameters. Matching never modifies the binding graph, a Matcher can be used
// concurrently: each call has its own recursion state.
type Matcher struct {
	maxDepth int
	logger   zerolog.Logger

	//results of checks against protocols without type parameters, see query.conform.
	conformance tinylru.LRU
}

func New(opts ...Options) *Matcher {
	var options Options
	if len(opts) > 0 {
		options = opts[0]
	}
	options = options.withDefaults()

	m := &Matcher{
		maxDepth: options.MaxDepth,
		logger:   options.Logger,
	}
	m.conformance.Resize(options.ConformanceCacheSize)
	return m
}

// MatchVarAgainstType matches the bindings of variable that are visible at node against target,
// the match succeeds if any of them matches. Each binding is matched with a view in which it is
// the binding of variable.
func (m *Matcher) MatchVarAgainstType(
	variable *lattice.Variable, target lattice.Value, subst Substitution, node *cfg.CFGNode, view lattice.View,
) (Substitution, error) {
	if variable == nil {
		return nil, m.report(node, internalError(nil, target, "nil variable"))
	}
	if target == nil {
		return nil, m.report(node, internalError(nil, nil, "nil target"))
	}

	bindings := variable.VisibleBindings(node)
	if len(bindings) == 0 {
		return nil, m.report(node, internalError(nil, target, "no binding of "+variable.Name()+" is visible"))
	}

	var last *Failure

	for _, binding := range bindings {
		q := m.newQuery(node, view.With(binding))
		result, failure := q.start(binding.Data(), target, subst)
		if failure == nil {
			return result, nil
		}
		if failure.isInternal() {
			return nil, m.report(node, failure)
		}
		last = failure
	}

	return nil, m.report(node, &Failure{
		Reason:         UnionExhausted,
		SignatureIndex: -1,
		Depth:          1,
		Target:         target,
		Detail:         "no binding of " + variable.Name() + " matches",
		Cause:          last,
	})
}

// MatchValueAgainstType matches value against target. Variables referenced by value
// (such as the parameters of instances) are resolved through view.
func (m *Matcher) MatchValueAgainstType(
	value lattice.Value, target lattice.Value, subst Substitution, node *cfg.CFGNode, view lattice.View,
) (Substitution, error) {
	q := m.newQuery(node, view)
	result, failure := q.start(value, target, subst)
	if failure != nil {
		return nil, m.report(node, failure)
	}
	return result, nil
}

// MatchBindingAgainstType matches the data of binding against target,
// the view should contain an entry for the variable of the binding.
func (m *Matcher) MatchBindingAgainstType(
	binding *lattice.Binding, target lattice.Value, subst Substitution, node *cfg.CFGNode, view lattice.View,
) (Substitution, error) {
	if binding == nil {
		return nil, m.report(node, internalError(nil, target, "nil binding"))
	}
	if _, ok := view.Get(binding.Variable()); !ok {
		return nil, m.report(node, internalError(binding.Data(), target, "the view has no entry for "+binding.Variable().Name()))
	}
	return m.MatchValueAgainstType(binding.Data(), target, subst, node, view)
}

// report logs the failure and returns it as an error, node is nil for checks outside of a program.
func (m *Matcher) report(node *cfg.CFGNode, failure *Failure) error {
	deepest := failure.Deepest()

	event := m.logger.Debug()
	if deepest.Reason == InternalError || deepest.Reason == RecursionLimit {
		event = m.logger.Warn()
	}

	if node != nil {
		event = event.Stringer("session", node.Session())
	}

	event.
		Stringer("reason", failure.Reason).
		Stringer("deepestReason", deepest.Reason).
		Int("depth", deepest.Depth).
		Str("member", deepest.Member).
		Msg("match failed")

	return failure
}

func (m *Matcher) newQuery(node *cfg.CFGNode, view lattice.View) *query {
	return &query{
		m:    m,
		node: node,
		view: view,
	}
}

type valuePair struct {
	value, target lattice.Value
}

// A query holds the state of a top level match, it is never shared between calls.
type query struct {
	m    *Matcher
	node *cfg.CFGNode
	view lattice.View

	//pairs on the active call stack, a pair met again is assumed to match (coinduction).
	//Pairs are compared with lattice.Same since substitutions create equivalent values with new identities.
	active []valuePair
	depth  int

	//number of variables resolved through the view.
	viewReads int
}

func (q *query) start(value, target lattice.Value, subst Substitution) (Substitution, *Failure) {
	if subst == nil {
		subst = Substitution{}
	}
	return q.match(value, target, subst)
}

func (q *query) match(value, target lattice.Value, subst Substitution) (Substitution, *Failure) {
	if value == nil || target == nil {
		return nil, q.internal(value, target, "nil value")
	}

	if q.isActive(value, target) {
		q.m.logger.Trace().Stringer("value", value).Stringer("target", target).Msg("cycle, match assumed")
		return subst, nil
	}

	if q.depth >= q.m.maxDepth {
		return nil, q.fail(RecursionLimit, value, target)
	}

	q.push(value, target)
	defer q.pop()

	return q.dispatch(value, target, subst)
}

func (q *query) isActive(value, target lattice.Value) bool {
	for _, pair := range q.active {
		if lattice.Same(pair.value, value) && lattice.Same(pair.target, target) {
			return true
		}
	}
	return false
}

func (q *query) push(value, target lattice.Value) {
	q.active = append(q.active, valuePair{value: value, target: target})
	q.depth++
}

func (q *query) pop() {
	q.active = q.active[:len(q.active)-1]
	q.depth--
}

func (q *query) dispatch(value, target lattice.Value, subst Substitution) (Substitution, *Failure) {
	if lattice.IsUnknown(target) {
		return subst, nil
	}

	switch v := value.(type) {
	case *lattice.Unknown:
		return subst, nil
	case *lattice.TypeParameter:
		bound, ok := subst[v.Name()]
		if !ok {
			return subst, nil
		}
		if p, ok := bound.(*lattice.TypeParameter); ok && p.Name() == v.Name() {
			return subst, nil
		}
		return q.match(bound, target, subst)
	case *lattice.Union:
		return q.matchAnyOption(v, v.Options(), target, subst, true)
	}

	switch t := target.(type) {
	case *lattice.Union:
		return q.matchAnyOption(value, t.Options(), target, subst, false)
	case *lattice.TypeParameter:
		if lattice.IsNothing(value) {
			return subst, nil
		}
		return subst.bind(t, value), nil
	case *lattice.Nothing:
		if lattice.IsNothing(value) {
			return subst, nil
		}
		return nil, q.fail(SubtypeMismatch, value, target)
	}

	if lattice.IsNothing(value) {
		return nil, q.fail(SubtypeMismatch, value, target)
	}

	switch t := target.(type) {
	case *lattice.Class:
		return q.matchClass(value, t, subst)
	case *lattice.ParameterizedClass:
		return q.matchParameterizedClass(value, t, subst)
	case *lattice.CallableSignature:
		return q.matchCallable(value, t, subst)
	case *lattice.Instance:
		//an instance used as a type stands for its class.
		return q.matchClass(value, t.Class(), subst)
	}

	return nil, q.internal(value, target, "unsupported target")
}

// matchAnyOption succeeds if one of the options matches: the first matching option wins.
// If sourceSide is true the options are alternatives of value, otherwise of target.
func (q *query) matchAnyOption(
	value lattice.Value, options []lattice.Value, target lattice.Value, subst Substitution, sourceSide bool,
) (Substitution, *Failure) {
	var last *Failure

	for _, option := range options {
		var result Substitution
		var failure *Failure

		if sourceSide {
			result, failure = q.match(option, target, subst)
		} else {
			result, failure = q.match(value, option, subst)
		}

		if failure == nil {
			return result, nil
		}
		if failure.isInternal() {
			return nil, failure
		}
		last = failure
	}

	return nil, q.fail(UnionExhausted, value, target).withCause(last)
}

// paramValue returns the value chosen by the view for the variable.
func (q *query) paramValue(variable *lattice.Variable) (lattice.Value, *Failure) {
	q.viewReads++

	binding, ok := q.view.Get(variable)
	if !ok {
		return nil, q.internal(nil, nil, "the view has no entry for "+variable.Name())
	}
	if binding.Data() == nil {
		return nil, q.internal(nil, nil, "binding of "+variable.Name()+" has no data")
	}
	return binding.Data(), nil
}

func (q *query) fail(reason Reason, value, target lattice.Value) *Failure {
	return &Failure{
		Reason:         reason,
		SignatureIndex: -1,
		Depth:          q.depth,
		Value:          value,
		Target:         target,
	}
}

func (q *query) internal(value, target lattice.Value, detail string) *Failure {
	f := q.fail(InternalError, value, target)
	f.Detail = detail
	return f
}

func internalError(value, target lattice.Value, detail string) *Failure {
	return &Failure{
		Reason:         InternalError,
		SignatureIndex: -1,
		Value:          value,
		Target:         target,
		Detail:         detail,
	}
}

func (f *Failure) withCause(cause *Failure) *Failure {
	f.Cause = cause
	return f
}

func (f *Failure) withMember(name string, signatureIndex int) *Failure {
	f.Member = name
	f.SignatureIndex = signatureIndex
	return f
}

func (f *Failure) isInternal() bool {
	return f.Deepest().Reason == InternalError
}
