package lattice

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A ParameterizedClass is a class with values for its type parameters, such as list[int].
type ParameterizedClass struct {
	base   *Class
	params map[string]Value
	names  []string
}

func NewParameterizedClass(base *Class, params map[string]Value) *ParameterizedClass {
	p := &ParameterizedClass{
		base:   base,
		params: make(map[string]Value, len(params)),
	}

	for _, name := range base.typeParams {
		if param, ok := params[name]; ok {
			p.params[name] = param
			p.names = append(p.names, name)
		}
	}

	var extra []string
	for name, param := range params {
		if _, ok := p.params[name]; !ok {
			p.params[name] = param
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	p.names = append(p.names, extra...)

	return p
}

func (*ParameterizedClass) Kind() Kind {
	return ParameterizedClassKind
}

func (p *ParameterizedClass) Base() *Class {
	return p.base
}

func (p *ParameterizedClass) Param(name string) (Value, bool) {
	v, ok := p.params[name]
	return v, ok
}

// ParamNames returns the names of the parameters: declared type parameters first.
func (p *ParameterizedClass) ParamNames() []string {
	return slices.Clone(p.names)
}

func (p *ParameterizedClass) Params() map[string]Value {
	return maps.Clone(p.params)
}

func (p *ParameterizedClass) String() string {
	return p.base.String() + formatParams(p.names, p.params)
}
