package lattice

import (
	"strings"

	"golang.org/x/exp/slices"
)

type Param struct {
	Name string
	Type Value
}

// A CallableSignature describes the parameters and the return type of a callable member,
// the receiver is not part of the parameters.
type CallableSignature struct {
	name    string
	params  []Param
	ret     Value
	varargs bool
}

// NewSignature creates a signature, nil types are replaced by UNKNOWN.
// A variadic signature accepts any number of arguments after its fixed params.
func NewSignature(name string, params []Param, ret Value, varargs bool) *CallableSignature {
	if ret == nil {
		ret = UNKNOWN
	}
	params = slices.Clone(params)
	for i, param := range params {
		if param.Type == nil {
			params[i].Type = UNKNOWN
		}
	}
	return &CallableSignature{
		name:    name,
		params:  params,
		ret:     ret,
		varargs: varargs,
	}
}

func (*CallableSignature) Kind() Kind {
	return CallableSignatureKind
}

func (s *CallableSignature) Name() string {
	return s.name
}

func (s *CallableSignature) Params() []Param {
	return slices.Clone(s.params)
}

func (s *CallableSignature) ParamCount() int {
	return len(s.params)
}

func (s *CallableSignature) Param(index int) Param {
	return s.params[index]
}

func (s *CallableSignature) Return() Value {
	return s.ret
}

func (s *CallableSignature) IsVariadic() bool {
	return s.varargs
}

func (s *CallableSignature) String() string {
	buf := new(strings.Builder)
	buf.WriteString(s.name)
	buf.WriteByte('(')
	for i, param := range s.params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(param.Name)
		buf.WriteString(": ")
		buf.WriteString(param.Type.String())
	}
	if s.varargs {
		if len(s.params) > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("...")
	}
	buf.WriteString(") -> ")
	buf.WriteString(s.ret.String())
	return buf.String()
}
