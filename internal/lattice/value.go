package lattice

import (
	"github.com/classyserve/pytype/internal/cfg"
)

var (
	UNKNOWN = &Unknown{}
	NOTHING = &Nothing{}
	EMPTY   = &Nothing{empty: true}
)

// A Value is an abstract value of the type lattice, its underlying data is immutable.
// The identity of a value is its pointer.
type Value interface {
	Kind() Kind

	//String returns a debug representation, rendering of diagnostics is done by the caller.
	String() string
}

type Kind uint8

const (
	UnknownKind Kind = iota + 1
	NothingKind
	ClassKind
	ParameterizedClassKind
	UnionKind
	TypeParameterKind
	InstanceKind
	CallableSignatureKind
)

func (k Kind) String() string {
	switch k {
	case UnknownKind:
		return "unknown"
	case NothingKind:
		return "nothing"
	case ClassKind:
		return "class"
	case ParameterizedClassKind:
		return "parameterized-class"
	case UnionKind:
		return "union"
	case TypeParameterKind:
		return "type-parameter"
	case InstanceKind:
		return "instance"
	case CallableSignatureKind:
		return "callable-signature"
	default:
		return "invalid-kind"
	}
}

// The binding graph of the type lattice stores values.
type (
	Program  = cfg.Program[Value]
	Variable = cfg.Variable[Value]
	Binding  = cfg.Binding[Value]
	View     = cfg.View[Value]
)

func NewProgram() *Program {
	return cfg.NewProgram[Value]()
}

func NewView(bindings ...*Binding) View {
	return cfg.NewView(bindings...)
}

//values with no data have a dummy field to avoid same address for empty structs

// An Unknown represents an unresolved or opaque value, it matches anything.
type Unknown struct {
	_ int
}

// NewUnknown returns an Unknown distinct from UNKNOWN.
func NewUnknown() *Unknown {
	return &Unknown{}
}

func (*Unknown) Kind() Kind {
	return UnknownKind
}

func (*Unknown) String() string {
	return "?"
}

// A Nothing is the bottom of the lattice, EMPTY is the element value of an empty container.
type Nothing struct {
	empty bool
}

func (*Nothing) Kind() Kind {
	return NothingKind
}

func (n *Nothing) IsEmpty() bool {
	return n.empty
}

func (n *Nothing) String() string {
	if n.empty {
		return "empty"
	}
	return "nothing"
}

// A TypeParameter is a generic placeholder identified by its name.
type TypeParameter struct {
	name string
}

func NewTypeParameter(name string) *TypeParameter {
	return &TypeParameter{name: name}
}

func (*TypeParameter) Kind() Kind {
	return TypeParameterKind
}

func (p *TypeParameter) Name() string {
	return p.name
}

func (p *TypeParameter) String() string {
	return p.name
}

func IsUnknown(v Value) bool {
	_, ok := v.(*Unknown)
	return ok
}

func IsNothing(v Value) bool {
	_, ok := v.(*Nothing)
	return ok
}

// Same reports whether a and b denote the same value. Pointer-equal values are the same, so are
// values built from the same parts: instances of the same class with the same parameter variables,
// parameterized classes with the same base and the same parameters, equal signatures and unions.
func Same(a, b Value) bool {
	if a == b {
		return true
	}

	switch a := a.(type) {
	case *Unknown:
		return IsUnknown(b)
	case *Nothing:
		other, ok := b.(*Nothing)
		return ok && other.empty == a.empty
	case *TypeParameter:
		other, ok := b.(*TypeParameter)
		return ok && other.name == a.name
	case *Instance:
		other, ok := b.(*Instance)
		if !ok || other.cls != a.cls || len(other.params) != len(a.params) {
			return false
		}
		for name, variable := range a.params {
			if other.params[name] != variable {
				return false
			}
		}
		return true
	case *ParameterizedClass:
		other, ok := b.(*ParameterizedClass)
		if !ok || other.base != a.base || len(other.params) != len(a.params) {
			return false
		}
		for name, param := range a.params {
			otherParam, ok := other.params[name]
			if !ok || !Same(param, otherParam) {
				return false
			}
		}
		return true
	case *CallableSignature:
		other, ok := b.(*CallableSignature)
		if !ok || other.name != a.name || other.varargs != a.varargs || len(other.params) != len(a.params) {
			return false
		}
		for i, param := range a.params {
			if param.Name != other.params[i].Name || !Same(param.Type, other.params[i].Type) {
				return false
			}
		}
		return Same(a.ret, other.ret)
	case *Union:
		other, ok := b.(*Union)
		if !ok || len(other.options) != len(a.options) {
			return false
		}
		for _, option := range a.options {
			if !containsSame(other.options, option) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func containsSame(values []Value, v Value) bool {
	for _, e := range values {
		if Same(e, v) {
			return true
		}
	}
	return false
}
