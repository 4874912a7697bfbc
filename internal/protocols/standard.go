package protocols

import (
	"github.com/rs/zerolog"
	"github.com/tidwall/btree"

	"github.com/classyserve/pytype/internal/lattice"
)

const (
	BUILTINS_MODULE = "builtins"
	TYPING_MODULE   = "typing"

	//type parameter of the covariant protocols.
	COVARIANT_PARAM = "_T_co"

	//type parameter of the return type of Callable.
	RETURN_PARAM = "_R_co"

	//type parameter of the builtin generic classes and of type.
	ELEMENT_PARAM = "_T"
)

// A Library holds the builtin classes and the protocols of the typing module.
// All the protocols are registered in Registry.
type Library struct {
	Registry *Registry
	builtins btree.Map[string, *lattice.Class]

	Object   *lattice.Class
	Type     *lattice.Class //metaclass, type[_T] is the type of the class _T.
	Int      *lattice.Class
	Float    *lattice.Class
	Bool     *lattice.Class
	Str      *lattice.Class
	Bytes    *lattice.Class
	Slice    *lattice.Class
	NoneType *lattice.Class
	List     *lattice.Class //list[_T], instances are not hashable.

	Sized         *lattice.Class
	Hashable      *lattice.Class
	Iterable      *lattice.Class
	Iterator      *lattice.Class
	Reversible    *lattice.Class
	Container     *lattice.Class
	Collection    *lattice.Class
	Sequence      *lattice.Class
	SupportsAbs   *lattice.Class
	SupportsInt   *lattice.Class
	SupportsFloat *lattice.Class
	SupportsBytes *lattice.Class
	Callable      *lattice.Class
}

// NewStandardLibrary defines the builtin classes and the standard protocols.
// Each call creates new classes.
func NewStandardLibrary(logger zerolog.Logger) *Library {
	lib := &Library{
		Registry: NewRegistry(logger),
	}

	lib.defineBuiltins()
	lib.defineProtocols()

	for _, protocol := range []*lattice.Class{
		lib.Sized, lib.Hashable, lib.Iterable, lib.Iterator, lib.Reversible, lib.Container, lib.Collection,
		lib.Sequence, lib.SupportsAbs, lib.SupportsInt, lib.SupportsFloat, lib.SupportsBytes, lib.Callable,
	} {
		if err := lib.Registry.Register(protocol); err != nil {
			panic(err)
		}
	}

	for _, builtin := range []*lattice.Class{
		lib.Object, lib.Type, lib.Int, lib.Float, lib.Bool, lib.Str, lib.Bytes, lib.Slice, lib.NoneType, lib.List,
	} {
		lib.builtins.Set(builtin.Name(), builtin)
	}

	logger.Debug().
		Int("protocolCount", lib.Registry.Len()).
		Int("builtinCount", lib.builtins.Len()).
		Msg("standard library defined")

	return lib
}

// Builtin returns the builtin class with the given name.
func (lib *Library) Builtin(name string) (*lattice.Class, bool) {
	return lib.builtins.Get(name)
}

// BuiltinNames returns the sorted names of the builtin classes.
func (lib *Library) BuiltinNames() []string {
	names := make([]string, 0, lib.builtins.Len())
	lib.builtins.Scan(func(name string, _ *lattice.Class) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Protocol returns the registered protocol with the given name.
func (lib *Library) Protocol(name string) (*lattice.Class, bool) {
	return lib.Registry.Get(name)
}

// Of returns cls parameterized by a single value for its first type parameter, for example Iterable[int].
func Of(cls *lattice.Class, param lattice.Value) *lattice.ParameterizedClass {
	names := cls.TypeParams()
	if len(names) == 0 {
		panic("Of: " + cls.Name() + " has no type parameters")
	}
	return lattice.NewParameterizedClass(cls, map[string]lattice.Value{names[0]: param})
}

func method(name string, ret lattice.Value, params ...lattice.Param) *lattice.CallableSignature {
	return lattice.NewSignature(name, params, ret, false)
}

func param(name string, typ lattice.Value) lattice.Param {
	return lattice.Param{Name: name, Type: typ}
}

func requirement(name string, signatures ...*lattice.CallableSignature) lattice.ProtocolMember {
	return lattice.ProtocolMember{Name: name, Signatures: signatures}
}

func (lib *Library) builtin(name string, members func(self *lattice.Class) map[string]lattice.Value) *lattice.Class {
	var bases []lattice.Value
	if lib.Object != nil {
		bases = []lattice.Value{lib.Object}
	}
	return lattice.DefineClass(lattice.ClassConfig{
		Name:    name,
		Module:  BUILTINS_MODULE,
		Bases:   bases,
		Members: members,
	})
}

// defineBuiltins defines the builtin classes, members are resolved lazily so they can reference
// classes and protocols defined later.
func (lib *Library) defineBuiltins() {
	lib.Object = lib.builtin("object", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			"__hash__": method("__hash__", lib.Int),
			"__eq__":   method("__eq__", lib.Bool, param("other", self)),
		}
	})

	lib.Type = lattice.DefineClass(lattice.ClassConfig{
		Name:       "type",
		Module:     BUILTINS_MODULE,
		Bases:      []lattice.Value{lib.Object},
		TypeParams: []string{ELEMENT_PARAM},
		Metaclass:  true,
		Members: func(self *lattice.Class) map[string]lattice.Value {
			return map[string]lattice.Value{
				"__call__": lattice.NewSignature("__call__", nil, lattice.NewTypeParameter(ELEMENT_PARAM), true),
			}
		},
	})

	lib.Int = lib.builtin("int", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			"__hash__":  method("__hash__", self),
			"__abs__":   method("__abs__", self),
			"__int__":   method("__int__", self),
			"__index__": method("__index__", self),
			"__float__": method("__float__", lib.Float),
			"__add__":   method("__add__", self, param("other", self)),
		}
	})

	lib.Bool = lattice.DefineClass(lattice.ClassConfig{
		Name:   "bool",
		Module: BUILTINS_MODULE,
		Bases:  []lattice.Value{lib.Int},
	})

	lib.Float = lib.builtin("float", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			"__hash__":  method("__hash__", lib.Int),
			"__abs__":   method("__abs__", self),
			"__int__":   method("__int__", lib.Int),
			"__float__": method("__float__", self),
			"__add__":   method("__add__", self, param("other", self)),
		}
	})

	lib.Str = lib.builtin("str", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			"__len__":      method("__len__", lib.Int),
			"__iter__":     method("__iter__", Of(lib.Iterator, self)),
			"__contains__": method("__contains__", lib.Bool, param("key", lib.Object)),
			"__getitem__": lattice.Join(
				method("__getitem__", self, param("index", lib.Int)),
				method("__getitem__", self, param("index", lib.Slice)),
			),
			"__add__": method("__add__", self, param("other", self)),
		}
	})

	lib.Bytes = lib.builtin("bytes", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			"__len__":      method("__len__", lib.Int),
			"__iter__":     method("__iter__", Of(lib.Iterator, lib.Int)),
			"__contains__": method("__contains__", lib.Bool, param("key", lib.Object)),
			"__getitem__": lattice.Join(
				method("__getitem__", lib.Int, param("index", lib.Int)),
				method("__getitem__", self, param("index", lib.Slice)),
			),
			"__bytes__": method("__bytes__", self),
		}
	})

	lib.Slice = lib.builtin("slice", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			//slices are not hashable before 3.12.
			"__hash__": lattice.NewInstance(lib.NoneType, nil),
		}
	})

	lib.NoneType = lib.builtin("NoneType", func(self *lattice.Class) map[string]lattice.Value {
		return map[string]lattice.Value{
			"__bool__": method("__bool__", lib.Bool),
		}
	})

	elem := lattice.NewTypeParameter(ELEMENT_PARAM)

	lib.List = lattice.DefineClass(lattice.ClassConfig{
		Name:       "list",
		Module:     BUILTINS_MODULE,
		Bases:      []lattice.Value{lib.Object},
		TypeParams: []string{ELEMENT_PARAM},
		Members: func(self *lattice.Class) map[string]lattice.Value {
			return map[string]lattice.Value{
				"__len__":      method("__len__", lib.Int),
				"__iter__":     method("__iter__", Of(lib.Iterator, elem)),
				"__reversed__": method("__reversed__", Of(lib.Iterator, elem)),
				"__contains__": method("__contains__", lib.Bool, param("key", lib.Object)),
				"__getitem__": lattice.Join(
					method("__getitem__", elem, param("index", lib.Int)),
					method("__getitem__", Of(self, elem), param("index", lib.Slice)),
				),
				"append": method("append", lib.NoneType, param("item", elem)),

				//lists are mutable: __hash__ is set to None.
				"__hash__": lattice.NewInstance(lib.NoneType, nil),
			}
		},
	})
}

func (lib *Library) protocol(name string, typeParams []string, members func(self *lattice.Class) []lattice.ProtocolMember) *lattice.Class {
	return lattice.DefineClass(lattice.ClassConfig{
		Name:       name,
		Module:     TYPING_MODULE,
		TypeParams: typeParams,
		Protocol:   members,
	})
}

func (lib *Library) defineProtocols() {
	covariant := []string{COVARIANT_PARAM}
	t := lattice.NewTypeParameter(COVARIANT_PARAM)

	lib.Sized = lib.protocol("Sized", nil, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__len__", method("__len__", lib.Int))}
	})

	lib.Hashable = lib.protocol("Hashable", nil, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__hash__", method("__hash__", lib.Int))}
	})

	lib.Iterable = lib.protocol("Iterable", covariant, func(self *lattice.Class) []lattice.ProtocolMember {
		iter := requirement("__iter__", method("__iter__", Of(lib.Iterator, t)))

		//old-style iteration protocol.
		iter.Fallbacks = []lattice.ProtocolMember{
			requirement("__getitem__", method("__getitem__", t, param("index", lib.Int))),
		}
		return []lattice.ProtocolMember{iter}
	})

	lib.Iterator = lib.protocol("Iterator", covariant, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{
			requirement("__next__", method("__next__", t)),
			requirement("__iter__", method("__iter__", Of(self, t))),
		}
	})

	lib.Reversible = lib.protocol("Reversible", covariant, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__reversed__", method("__reversed__", Of(lib.Iterator, t)))}
	})

	lib.Container = lib.protocol("Container", nil, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{
			requirement("__contains__", method("__contains__", lib.Bool, param("key", lib.Object))),
		}
	})

	lib.Collection = lib.protocol("Collection", covariant, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{
			requirement("__len__", method("__len__", lib.Int)),
			requirement("__iter__", method("__iter__", Of(lib.Iterator, t))),
			requirement("__contains__", method("__contains__", lib.Bool, param("key", lib.Object))),
		}
	})

	lib.Sequence = lib.protocol("Sequence", covariant, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{
			{
				Name: "__getitem__",
				Signatures: []*lattice.CallableSignature{
					method("__getitem__", t, param("index", lib.Int)),
					method("__getitem__", Of(self, t), param("index", lib.Slice)),
				},
				Coverage: lattice.EverySignature,
			},
			requirement("__len__", method("__len__", lib.Int)),
			requirement("__iter__", method("__iter__", Of(lib.Iterator, t))),
			requirement("__contains__", method("__contains__", lib.Bool, param("key", lib.Object))),
		}
	})

	lib.SupportsAbs = lib.protocol("SupportsAbs", covariant, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__abs__", method("__abs__", t))}
	})

	lib.SupportsInt = lib.protocol("SupportsInt", nil, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__int__", method("__int__", lib.Int))}
	})

	lib.SupportsFloat = lib.protocol("SupportsFloat", nil, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__float__", method("__float__", lib.Float))}
	})

	lib.SupportsBytes = lib.protocol("SupportsBytes", nil, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{requirement("__bytes__", method("__bytes__", lib.Bytes))}
	})

	lib.Callable = lib.protocol("Callable", []string{RETURN_PARAM}, func(self *lattice.Class) []lattice.ProtocolMember {
		return []lattice.ProtocolMember{
			requirement("__call__", lattice.NewSignature("__call__", nil, lattice.NewTypeParameter(RETURN_PARAM), true)),
		}
	})
}
