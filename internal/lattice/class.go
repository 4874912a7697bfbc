package lattice

import (
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type resolvedMember struct {
	value Value
	owner *Class
	found bool
}

// A ClassConfig describes a class to create with DefineClass.
type ClassConfig struct {
	Name   string
	Module string

	//Bases are *Class, *ParameterizedClass or *Unknown values, in declaration order.
	Bases []Value

	//Names of the type parameters, in declaration order.
	TypeParams []string

	//A metaclass is the type of class values (builtin type).
	Metaclass bool

	//Members is called once with the class being defined, on the first member access.
	//Members can therefore reference the class itself and classes defined after it.
	Members func(self *Class) map[string]Value

	//If Protocol is not nil the class is a protocol that values can satisfy structurally.
	//Protocol is called once with the class being defined, on the first access to the protocol
	//or to the members. The required members are also class members unless Members defines them.
	//Members and Protocol should not access the members of the class being defined.
	Protocol func(self *Class) []ProtocolMember
}

// A Class is a nominal type with an ordered list of bases and a member table.
// Classes are immutable once defined.
type Class struct {
	name       string
	module     string
	bases      []Value
	typeParams []string
	metaclass  bool
	isProtocol bool

	resolveOnce    sync.Once
	defineMembers  func(self *Class) map[string]Value
	defineProtocol func(self *Class) []ProtocolMember
	members        map[string]Value
	protocol       *ProtocolSpec

	mro    []*Class
	opaque bool //true if an ancestor is unknown

	//member name -> resolved member, the class is immutable so entries never go stale.
	lookups cmap.ConcurrentMap[string, resolvedMember]
}

// NewClass creates a class with no type parameters.
func NewClass(name string, bases []Value, members map[string]Value) *Class {
	return DefineClass(ClassConfig{
		Name:  name,
		Bases: bases,
		Members: func(*Class) map[string]Value {
			return members
		},
	})
}

func DefineClass(config ClassConfig) *Class {
	c := &Class{
		name:           config.Name,
		module:         config.Module,
		bases:          slices.Clone(config.Bases),
		typeParams:     slices.Clone(config.TypeParams),
		metaclass:      config.Metaclass,
		defineMembers:  config.Members,
		defineProtocol: config.Protocol,
		isProtocol:     config.Protocol != nil,
		lookups:        cmap.New[resolvedMember](),
	}

	c.linearize()
	return c
}

// resolve defines the members and the protocol of the class.
func (c *Class) resolve() {
	c.resolveOnce.Do(func() {
		members := map[string]Value{}

		if c.defineMembers != nil {
			for name, member := range c.defineMembers(c) {
				members[name] = member
			}
			c.defineMembers = nil
		}

		if c.defineProtocol != nil {
			c.protocol = &ProtocolSpec{
				name:    c.name,
				members: c.defineProtocol(c),
			}
			c.defineProtocol = nil

			for _, member := range c.protocol.members {
				if _, ok := members[member.Name]; ok || len(member.Signatures) == 0 {
					continue
				}
				signatures := make([]Value, len(member.Signatures))
				for i, sig := range member.Signatures {
					signatures[i] = sig
				}
				members[member.Name] = Join(signatures...)
			}
		}

		c.members = members
	})
}

func (c *Class) ownMembers() map[string]Value {
	c.resolve()
	return c.members
}

func (*Class) Kind() Kind {
	return ClassKind
}

func (c *Class) Name() string {
	return c.name
}

func (c *Class) Module() string {
	return c.module
}

func (c *Class) Bases() []Value {
	return slices.Clone(c.bases)
}

func (c *Class) TypeParams() []string {
	return slices.Clone(c.typeParams)
}

func (c *Class) IsMetaclass() bool {
	return c.metaclass
}

// Protocol returns the structural requirements of the class, nil if it is not a protocol.
func (c *Class) Protocol() *ProtocolSpec {
	c.resolve()
	return c.protocol
}

func (c *Class) IsProtocol() bool {
	return c.isProtocol
}

// MRO returns the linearized ancestors of c, starting with c.
func (c *Class) MRO() []*Class {
	return slices.Clone(c.mro)
}

// HasOpaqueAncestor returns true if an unknown value is among the ancestors of c.
func (c *Class) HasOpaqueAncestor() bool {
	return c.opaque
}

// MemberNames returns the sorted names of the members defined by c itself.
func (c *Class) MemberNames() []string {
	names := maps.Keys(c.ownMembers())
	slices.Sort(names)
	return names
}

// OwnMember returns the member defined by c itself.
func (c *Class) OwnMember(name string) (Value, bool) {
	v, ok := c.ownMembers()[name]
	return v, ok
}

// LookupMember resolves name through the linearized ancestors, the most derived definition wins.
// When the member is not found the caller should check HasOpaqueAncestor.
func (c *Class) LookupMember(name string) (value Value, owner *Class, found bool) {
	if resolved, ok := c.lookups.Get(name); ok {
		return resolved.value, resolved.owner, resolved.found
	}

	var resolved resolvedMember
	for _, ancestor := range c.mro {
		if member, ok := ancestor.ownMembers()[name]; ok {
			resolved = resolvedMember{value: member, owner: ancestor, found: true}
			break
		}
	}

	c.lookups.Set(name, resolved)
	return resolved.value, resolved.owner, resolved.found
}

// IsSubclassOf returns true if other is among the linearized ancestors of c.
func (c *Class) IsSubclassOf(other *Class) bool {
	for _, ancestor := range c.mro {
		if ancestor == other {
			return true
		}
	}
	return false
}

// InheritedParams returns the parameters c passes to target through its declared bases.
// If c is target the result is nil and true: the parameters are those of the instance.
// The values may reference the type parameters of c.
func (c *Class) InheritedParams(target *Class) (map[string]Value, bool) {
	if c == target {
		return nil, true
	}

	for _, base := range c.bases {
		switch b := base.(type) {
		case *Class:
			if params, ok := b.InheritedParams(target); ok {
				return params, true
			}
		case *ParameterizedClass:
			if b.base == target {
				return b.params, true
			}
			if params, ok := b.base.InheritedParams(target); ok {
				return substituteParams(params, b.params), true
			}
		}
	}
	return nil, false
}

func (c *Class) String() string {
	if c.module == "" {
		return c.name
	}
	return c.module + "." + c.name
}

// linearize computes the MRO with the C3 rule, if the hierarchy is inconsistent
// a left-to-right depth-first order is used instead.
func (c *Class) linearize() {
	var baseClasses []*Class

	for _, base := range c.bases {
		switch b := base.(type) {
		case *Class:
			baseClasses = append(baseClasses, b)
		case *ParameterizedClass:
			baseClasses = append(baseClasses, b.base)
		default:
			c.opaque = true
		}
	}

	for _, base := range baseClasses {
		if base.opaque {
			c.opaque = true
		}
	}

	var sequences [][]*Class
	for _, base := range baseClasses {
		sequences = append(sequences, slices.Clone(base.mro))
	}
	sequences = append(sequences, slices.Clone(baseClasses))

	if merged, ok := mergeC3(sequences); ok {
		c.mro = append([]*Class{c}, merged...)
		return
	}

	c.mro = []*Class{c}
	for _, base := range baseClasses {
		for _, ancestor := range base.mro {
			if !slices.Contains(c.mro, ancestor) {
				c.mro = append(c.mro, ancestor)
			}
		}
	}
}

func mergeC3(sequences [][]*Class) ([]*Class, bool) {
	var result []*Class

	for {
		sequences = slices.DeleteFunc(sequences, func(seq []*Class) bool {
			return len(seq) == 0
		})
		if len(sequences) == 0 {
			return result, true
		}

		var head *Class

	search:
		for _, seq := range sequences {
			candidate := seq[0]
			for _, other := range sequences {
				if slices.Contains(other[1:], candidate) {
					continue search
				}
			}
			head = candidate
			break
		}

		if head == nil {
			return nil, false
		}

		result = append(result, head)
		for i, seq := range sequences {
			if seq[0] == head {
				sequences[i] = seq[1:]
			}
		}
	}
}

func formatParams(names []string, params map[string]Value) string {
	buf := new(strings.Builder)
	buf.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(params[name].String())
	}
	buf.WriteByte(']')
	return buf.String()
}
