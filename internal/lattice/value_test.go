package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	intClass := NewClass("int", nil, nil)
	strClass := NewClass("str", nil, nil)
	floatClass := NewClass("float", nil, nil)

	t.Run("no values", func(t *testing.T) {
		assert.Same(t, NOTHING, Join())
	})

	t.Run("single value", func(t *testing.T) {
		assert.Same(t, intClass, Join(intClass))
		assert.Same(t, intClass, Join(intClass, intClass))
	})

	t.Run("unknown absorbs the other values", func(t *testing.T) {
		assert.Same(t, UNKNOWN, Join(intClass, NewUnknown(), strClass))
	})

	t.Run("nothing is dropped", func(t *testing.T) {
		assert.Same(t, intClass, Join(NOTHING, intClass))
		assert.Same(t, EMPTY, Join(EMPTY, NOTHING))
	})

	t.Run("unions are flattened and deduplicated", func(t *testing.T) {
		joined := Join(NewUnion(intClass, strClass), NewUnion(strClass, floatClass), intClass)

		union, ok := joined.(*Union)
		require.True(t, ok)
		assert.Equal(t, []Value{intClass, strClass, floatClass}, union.Options())
	})

	t.Run("equivalent values are deduplicated", func(t *testing.T) {
		box := DefineClass(ClassConfig{Name: "Box", TypeParams: []string{"T"}})
		a := NewParameterizedClass(box, map[string]Value{"T": intClass})
		b := NewParameterizedClass(box, map[string]Value{"T": intClass})

		assert.Same(t, a, Join(a, b))
	})

	t.Run("the passed values are not modified", func(t *testing.T) {
		union := NewUnion(intClass, strClass)
		Join(union, floatClass)
		assert.Len(t, union.Options(), 2)
	})
}

func TestSame(t *testing.T) {
	intClass := NewClass("int", nil, nil)
	strClass := NewClass("str", nil, nil)
	box := DefineClass(ClassConfig{Name: "Box", TypeParams: []string{"T"}})

	program := NewProgram()
	elem := program.NewVariable("elem")
	other := program.NewVariable("other")

	testCases := []struct {
		name string
		a, b Value
		same bool
	}{
		{"same pointer", intClass, intClass, true},
		{"different classes", intClass, strClass, false},
		{"unknowns", UNKNOWN, NewUnknown(), true},
		{"nothing and empty", NOTHING, EMPTY, false},
		{"type parameters with the same name", NewTypeParameter("T"), NewTypeParameter("T"), true},
		{"type parameters with different names", NewTypeParameter("T"), NewTypeParameter("U"), false},
		{
			"instances with the same variables",
			NewInstance(box, map[string]*Variable{"T": elem}), NewInstance(box, map[string]*Variable{"T": elem}),
			true,
		},
		{
			"instances with different variables",
			NewInstance(box, map[string]*Variable{"T": elem}), NewInstance(box, map[string]*Variable{"T": other}),
			false,
		},
		{
			"parameterized classes",
			NewParameterizedClass(box, map[string]Value{"T": intClass}), NewParameterizedClass(box, map[string]Value{"T": intClass}),
			true,
		},
		{
			"parameterized classes with different params",
			NewParameterizedClass(box, map[string]Value{"T": intClass}), NewParameterizedClass(box, map[string]Value{"T": strClass}),
			false,
		},
		{"signatures", sig("f", intClass, strClass), sig("f", intClass, strClass), true},
		{"signatures with different returns", sig("f", intClass, strClass), sig("f", strClass, strClass), false},
		{"signatures with different arities", sig("f", intClass), sig("f", intClass, strClass), false},
		{"unions in any order", NewUnion(intClass, strClass), NewUnion(strClass, intClass), true},
		{"unions with different options", NewUnion(intClass, strClass), NewUnion(intClass, box), false},
		{"class and instance", box, NewInstance(box, nil), false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.same, Same(testCase.a, testCase.b))
			assert.Equal(t, testCase.same, Same(testCase.b, testCase.a))
		})
	}
}

func TestSubstitute(t *testing.T) {
	intClass := NewClass("int", nil, nil)
	strClass := NewClass("str", nil, nil)
	box := DefineClass(ClassConfig{Name: "Box", TypeParams: []string{"T"}})

	T := NewTypeParameter("T")
	mapping := map[string]Value{"T": intClass}

	t.Run("type parameter", func(t *testing.T) {
		assert.Same(t, intClass, Substitute(T, mapping))

		U := NewTypeParameter("U")
		assert.Same(t, U, Substitute(U, mapping))
	})

	t.Run("empty mapping", func(t *testing.T) {
		assert.Same(t, T, Substitute(T, nil))
	})

	t.Run("parameterized class", func(t *testing.T) {
		boxOfT := NewParameterizedClass(box, map[string]Value{"T": T})
		result := Substitute(boxOfT, mapping).(*ParameterizedClass)

		assert.NotSame(t, boxOfT, result)
		param, _ := result.Param("T")
		assert.Same(t, intClass, param)

		boxOfStr := NewParameterizedClass(box, map[string]Value{"T": strClass})
		assert.Same(t, boxOfStr, Substitute(boxOfStr, mapping))
	})

	t.Run("signature", func(t *testing.T) {
		get := sig("get", T, strClass, T)
		result := Substitute(get, mapping).(*CallableSignature)

		assert.Same(t, intClass, result.Return())
		assert.Same(t, strClass, result.Param(0).Type)
		assert.Same(t, intClass, result.Param(1).Type)
		assert.Equal(t, "get(a: str, b: int) -> int", result.String())

		unchanged := sig("len", intClass)
		assert.Same(t, unchanged, Substitute(unchanged, mapping))
	})

	t.Run("union", func(t *testing.T) {
		result := Substitute(NewUnion(T, intClass), mapping)
		assert.Same(t, intClass, result)
	})

	t.Run("instance", func(t *testing.T) {
		instance := NewInstance(box, nil)
		assert.Same(t, instance, Substitute(instance, mapping))
	})
}

func TestFreeTypeParams(t *testing.T) {
	intClass := NewClass("int", nil, nil)
	pair := DefineClass(ClassConfig{Name: "Pair", TypeParams: []string{"K", "V"}})

	T := NewTypeParameter("T")
	U := NewTypeParameter("U")

	assert.Empty(t, FreeTypeParams(intClass))
	assert.Equal(t, []string{"T"}, FreeTypeParams(T))
	assert.Equal(t, []string{"U", "T"}, FreeTypeParams(sig("f", T, U, T)))
	assert.Equal(t, []string{"T", "U"}, FreeTypeParams(NewParameterizedClass(pair, map[string]Value{"K": T, "V": U})))
	assert.Equal(t, []string{"T"}, FreeTypeParams(NewUnion(intClass, T)))

	//instances are not traversed.
	assert.Empty(t, FreeTypeParams(NewInstance(pair, nil)))
}

func TestSignature(t *testing.T) {
	s := NewSignature("f", []Param{{Name: "x"}}, nil, true)

	assert.Same(t, UNKNOWN, s.Return())
	assert.Same(t, UNKNOWN, s.Param(0).Type)
	assert.True(t, s.IsVariadic())
	assert.Equal(t, "f(x: ?, ...) -> ?", s.String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, UnknownKind, UNKNOWN.Kind())
	assert.Equal(t, NothingKind, EMPTY.Kind())
	assert.Equal(t, "instance", InstanceKind.String())
	assert.Equal(t, "invalid-kind", Kind(0).String())

	assert.True(t, EMPTY.IsEmpty())
	assert.False(t, NOTHING.IsEmpty())
	assert.Equal(t, "empty", EMPTY.String())
}
