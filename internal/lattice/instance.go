package lattice

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// An Instance is an object of a class. The values of its type parameters are variables
// (e.g. the element variable of a list), they are resolved through the view of a query.
type Instance struct {
	cls    *Class
	params map[string]*Variable
}

func NewInstance(cls *Class, params map[string]*Variable) *Instance {
	return &Instance{
		cls:    cls,
		params: maps.Clone(params),
	}
}

func (*Instance) Kind() Kind {
	return InstanceKind
}

func (i *Instance) Class() *Class {
	return i.cls
}

func (i *Instance) Param(name string) (*Variable, bool) {
	v, ok := i.params[name]
	return v, ok
}

// ParamNames returns the sorted names of the parameters.
func (i *Instance) ParamNames() []string {
	names := maps.Keys(i.params)
	slices.Sort(names)
	return names
}

func (i *Instance) String() string {
	if len(i.params) == 0 {
		return "instance of " + i.cls.String()
	}

	buf := new(strings.Builder)
	buf.WriteString("instance of ")
	buf.WriteString(i.cls.String())
	buf.WriteByte('[')
	for index, name := range i.ParamNames() {
		if index > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(name)
		buf.WriteByte('=')
		buf.WriteString(i.params[name].Name())
	}
	buf.WriteByte(']')
	return buf.String()
}
