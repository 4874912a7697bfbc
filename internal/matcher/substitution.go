package matcher

import (
	"sort"

	"github.com/maruel/natural"
	"golang.org/x/exp/maps"

	"github.com/classyserve/pytype/internal/lattice"
)

// A Substitution maps the name of a type parameter to the value it is bound to.
// Matching never modifies the substitution it receives, updates are made on a copy.
type Substitution map[string]lattice.Value

func (s Substitution) Clone() Substitution {
	result := make(Substitution, len(s))
	for name, v := range s {
		result[name] = v
	}
	return result
}

// Names returns the names of the bound type parameters in natural order (T2 before T10).
func (s Substitution) Names() []string {
	names := maps.Keys(s)
	sort.Sort(natural.StringSlice(names))
	return names
}

func (s Substitution) Get(name string) (lattice.Value, bool) {
	v, ok := s[name]
	return v, ok
}

// bind binds the parameter to the type of v, if the parameter is already bound to another value
// the two values are joined.
func (s Substitution) bind(param *lattice.TypeParameter, v lattice.Value) Substitution {
	v = instanceType(v)

	existing, ok := s[param.Name()]
	if ok && lattice.Same(existing, v) {
		return s
	}

	result := s.Clone()
	if ok {
		result[param.Name()] = lattice.Join(existing, v)
	} else {
		result[param.Name()] = v
	}
	return result
}

// instanceType returns the value bound to a type parameter matched by v: a class in a type
// position stands for its instances, so str and an instance of str bind the same value.
func instanceType(v lattice.Value) lattice.Value {
	switch val := v.(type) {
	case *lattice.Class:
		return lattice.NewInstance(val, nil)
	case *lattice.Union:
		options := val.Options()
		for i, option := range options {
			options[i] = instanceType(option)
		}
		return lattice.Join(options...)
	default:
		return v
	}
}

// eliminate removes the parameters of mapping from s and replaces them by their
// mapped value in the remaining bindings.
func (s Substitution) eliminate(mapping map[string]lattice.Value) Substitution {
	result := make(Substitution, len(s))
	for name, v := range s {
		if _, ok := mapping[name]; ok {
			continue
		}
		result[name] = lattice.Substitute(v, mapping)
	}
	return result
}

// restrict returns the entries of s whose name is in names.
func (s Substitution) restrict(names []string) Substitution {
	result := Substitution{}
	for _, name := range names {
		if v, ok := s[name]; ok {
			result[name] = v
		}
	}
	return result
}
