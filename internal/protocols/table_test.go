package protocols

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classyserve/pytype/internal/lattice"
)

func TestLoadTable(t *testing.T) {

	t.Run("protocols are defined and registered", func(t *testing.T) {
		lib := NewStandardLibrary(zerolog.Nop())

		protocols, err := lib.LoadTable([]byte(`
protocols:
  - name: SupportsRound
    params: [_T_co]
    members:
      - name: __round__
        signatures:
          - params: []
            returns: _T_co
          - params: [int]
            returns: _T_co
  - name: Indexed
    module: custom
    params: [_T_co]
    members:
      - name: __getitem__
        coverage: every
        signatures:
          - params: [int]
            returns: _T_co
          - params: [slice]
            returns: Indexed[_T_co]
      - name: __iter__
        signatures:
          - returns: Iterator[_T_co]
      - name: close
        signatures:
          - params: ["?"]
            returns: None
            varargs: true
`))
		require.NoError(t, err)
		require.Len(t, protocols, 2)

		round, ok := lib.Protocol("SupportsRound")
		require.True(t, ok)
		assert.Same(t, protocols[0], round)
		assert.Equal(t, "typing.SupportsRound", round.String())
		assert.Equal(t, []string{"_T_co"}, round.TypeParams())

		members := round.Protocol().Members()
		require.Len(t, members, 1)
		assert.Equal(t, lattice.AnySignature, members[0].Coverage)
		require.Len(t, members[0].Signatures, 2)
		assert.Equal(t, "__round__(arg0: builtins.int) -> _T_co", members[0].Signatures[1].String())

		indexed, ok := lib.Protocol("Indexed")
		require.True(t, ok)
		assert.Equal(t, "custom.Indexed", indexed.String())

		members = indexed.Protocol().Members()
		require.Len(t, members, 3)
		assert.Equal(t, lattice.EverySignature, members[0].Coverage)

		//self reference
		sliceReturn := members[0].Signatures[1].Return().(*lattice.ParameterizedClass)
		assert.Same(t, indexed, sliceReturn.Base())

		iterReturn := members[1].Signatures[0].Return().(*lattice.ParameterizedClass)
		assert.Same(t, lib.Iterator, iterReturn.Base())

		closeSig := members[2].Signatures[0]
		assert.True(t, closeSig.IsVariadic())
		assert.Same(t, lattice.UNKNOWN, closeSig.Param(0).Type)
		assert.Same(t, lib.NoneType, closeSig.Return().(*lattice.Instance).Class())
	})

	t.Run("protocols can reference protocols defined after them", func(t *testing.T) {
		lib := NewStandardLibrary(zerolog.Nop())

		protocols, err := lib.LoadTable([]byte(`
protocols:
  - name: Tree
    members:
      - name: root
        signatures:
          - returns: Node
  - name: Node
    members:
      - name: tree
        signatures:
          - returns: Tree
`))
		require.NoError(t, err)

		tree, node := protocols[0], protocols[1]
		assert.Same(t, node, tree.Protocol().Members()[0].Signatures[0].Return())
		assert.Same(t, tree, node.Protocol().Members()[0].Signatures[0].Return())
	})

	t.Run("invalid tables", func(t *testing.T) {
		testCases := []struct {
			name  string
			table string
			err   error
		}{
			{"invalid YAML", "protocols: [", ErrInvalidTable},
			{"unknown field", "protocols:\n  - name: A\n    extra: 1\n", ErrInvalidTable},
			{"missing name", "protocols:\n  - members: []\n", ErrInvalidTable},
			{"duplicate", "protocols:\n  - name: A\n  - name: A\n", ErrDuplicateProtocol},
			{
				"unknown type name",
				"protocols:\n  - name: A\n    members:\n      - name: m\n        signatures:\n          - returns: Missing\n",
				ErrUnknownTypeName,
			},
			{
				"wrong number of type arguments",
				"protocols:\n  - name: A\n    members:\n      - name: m\n        signatures:\n          - returns: int[str]\n",
				ErrWrongParamCount,
			},
			{
				"unterminated type arguments",
				"protocols:\n  - name: A\n    members:\n      - name: m\n        signatures:\n          - returns: list[int\n",
				ErrInvalidTypeExpr,
			},
			{
				"trailing characters",
				"protocols:\n  - name: A\n    members:\n      - name: m\n        signatures:\n          - returns: int]\n",
				ErrInvalidTypeExpr,
			},
			{
				"invalid coverage",
				"protocols:\n  - name: A\n    members:\n      - name: m\n        coverage: all\n",
				ErrInvalidCoverage,
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				lib := NewStandardLibrary(zerolog.Nop())
				count := lib.Registry.Len()

				_, err := lib.LoadTable([]byte(testCase.table))
				assert.ErrorIs(t, err, testCase.err)
				assert.Equal(t, count, lib.Registry.Len())
			})
		}
	})
}

func TestTypeExprParser(t *testing.T) {
	p := &typeExprParser{input: " Iterator[ list[int] , ?]"}
	expr, err := p.parse()
	require.NoError(t, err)

	assert.Equal(t, "Iterator", expr.name)
	require.Len(t, expr.args, 2)
	assert.Equal(t, "list", expr.args[0].name)
	assert.Equal(t, "int", expr.args[0].args[0].name)
	assert.Equal(t, "?", expr.args[1].name)

	p = &typeExprParser{input: ""}
	_, err = p.parse()
	assert.ErrorIs(t, err, ErrInvalidTypeExpr)
}
