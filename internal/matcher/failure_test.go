package matcher

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classyserve/pytype/internal/lattice"
)

func TestFailure(t *testing.T) {
	intClass := lattice.NewClass("int", nil, nil)
	strClass := lattice.NewClass("str", nil, nil)
	sized := lattice.NewClass("Sized", nil, nil)

	deepest := &Failure{
		Reason:         SubtypeMismatch,
		SignatureIndex: -1,
		Depth:          3,
		Value:          strClass,
		Target:         intClass,
	}
	failure := &Failure{
		Reason:         IncompatibleSignature,
		Member:         "__len__",
		SignatureIndex: 0,
		Depth:          1,
		Value:          strClass,
		Target:         sized,
		Cause:          deepest,
	}

	t.Run("error message", func(t *testing.T) {
		assert.Equal(t,
			"incompatible-signature (str against Sized) [__len__#0]: subtype-mismatch (str against int)",
			failure.Error(),
		)

		internal := &Failure{Reason: InternalError, SignatureIndex: -1, Detail: "nil value"}
		assert.Equal(t, "internal-error nil value", internal.Error())
	})

	t.Run("errors.Is", func(t *testing.T) {
		var err error = failure

		assert.ErrorIs(t, err, IncompatibleSignature)
		assert.ErrorIs(t, err, SubtypeMismatch)
		assert.NotErrorIs(t, err, MissingMember)
		assert.True(t, errors.Is(err, deepest))

		var target *Failure
		require.True(t, errors.As(err, &target))
		assert.Same(t, failure, target)
	})

	t.Run("path", func(t *testing.T) {
		assert.Same(t, deepest, failure.Deepest())
		assert.Same(t, deepest, deepest.Deepest())
		assert.Equal(t, []*Failure{failure, deepest}, failure.Path())
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := json.Marshal(failure)
		require.NoError(t, err)

		assert.JSONEq(t, `{
			"reason": "incompatible-signature",
			"member": "__len__",
			"signatureIndex": 0,
			"depth": 1,
			"value": "str",
			"target": "Sized",
			"cause": {
				"reason": "subtype-mismatch",
				"depth": 3,
				"value": "str",
				"target": "int"
			}
		}`, string(data))
	})
}

func TestReason(t *testing.T) {
	reasons := map[Reason]string{
		MissingMember:         "missing-member",
		NonCallableOverride:   "non-callable-override",
		IncompatibleSignature: "incompatible-signature",
		SubtypeMismatch:       "subtype-mismatch",
		UnionExhausted:        "union-exhausted",
		RecursionLimit:        "recursion-limit",
		InternalError:         "internal-error",
	}

	for reason, name := range reasons {
		assert.Equal(t, name, reason.String())
		assert.Equal(t, name, reason.Error())

		text, err := reason.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
	}

	assert.Equal(t, "reason(0)", Reason(0).String())
}

func TestSubstitution(t *testing.T) {
	intClass := lattice.NewClass("int", nil, nil)
	strClass := lattice.NewClass("str", nil, nil)
	T := lattice.NewTypeParameter("T")

	t.Run("bind", func(t *testing.T) {
		empty := Substitution{}

		s := empty.bind(T, lattice.NewInstance(intClass, nil))
		assert.Empty(t, empty)
		assert.True(t, lattice.Same(lattice.NewInstance(intClass, nil), s["T"]))

		//same value
		assert.Equal(t, s, s.bind(T, lattice.NewInstance(intClass, nil)))

		joined := s.bind(T, lattice.NewInstance(strClass, nil))
		assert.True(t, lattice.Same(lattice.NewInstance(intClass, nil), s["T"]))

		union, ok := joined["T"].(*lattice.Union)
		require.True(t, ok)
		assert.Len(t, union.Options(), 2)
	})

	t.Run("a class and its instances bind the same value", func(t *testing.T) {
		s := Substitution{}.bind(T, strClass)

		instance, ok := s["T"].(*lattice.Instance)
		require.True(t, ok)
		assert.Same(t, strClass, instance.Class())

		assert.Equal(t, s, s.bind(T, lattice.NewInstance(strClass, nil)))

		s = Substitution{}.bind(T, lattice.NewUnion(intClass, lattice.NewInstance(intClass, nil), strClass))
		union, ok := s["T"].(*lattice.Union)
		require.True(t, ok)
		assert.Len(t, union.Options(), 2)
	})

	t.Run("eliminate", func(t *testing.T) {
		U := lattice.NewTypeParameter("U")
		list := lattice.DefineClass(lattice.ClassConfig{Name: "list", TypeParams: []string{"_T"}})
		s := Substitution{"T": lattice.NewParameterizedClass(list, map[string]lattice.Value{"_T": U}), "U": intClass}

		eliminated := s.eliminate(map[string]lattice.Value{"U": intClass})
		assert.Equal(t, []string{"T"}, eliminated.Names())
		assert.Equal(t, "list[int]", eliminated["T"].String())
		assert.Len(t, s, 2)
	})

	t.Run("restrict", func(t *testing.T) {
		s := Substitution{"T": intClass, "U": strClass}

		restricted := s.restrict([]string{"U", "V"})
		assert.Equal(t, []string{"U"}, restricted.Names())
		assert.Len(t, s, 2)
	})

	t.Run("names are in natural order", func(t *testing.T) {
		s := Substitution{"T10": intClass, "T2": strClass, "K": intClass}
		assert.Equal(t, []string{"K", "T2", "T10"}, s.Names())
	})

	t.Run("clone", func(t *testing.T) {
		s := Substitution{"T": intClass}
		clone := s.Clone()
		clone["U"] = strClass

		assert.Len(t, s, 1)

		v, ok := clone.Get("U")
		require.True(t, ok)
		assert.Same(t, strClass, v)
	})
}

func TestOptions(t *testing.T) {
	options := Options{}.withDefaults()
	assert.Equal(t, DEFAULT_MAX_DEPTH, options.MaxDepth)
	assert.Equal(t, DEFAULT_CONFORMANCE_CACHE_SIZE, options.ConformanceCacheSize)

	options = Options{MaxDepth: 3, ConformanceCacheSize: -1}.withDefaults()
	assert.Equal(t, 3, options.MaxDepth)
	assert.Equal(t, DEFAULT_CONFORMANCE_CACHE_SIZE, options.ConformanceCacheSize)

	m := New(Options{MaxDepth: 5})
	assert.Equal(t, 5, m.maxDepth)
}
