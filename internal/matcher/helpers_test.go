package matcher

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classyserve/pytype/internal/cfg"
	"github.com/classyserve/pytype/internal/lattice"
	"github.com/classyserve/pytype/internal/protocols"
)

// testContext holds a standard library and a program with a single node.
type testContext struct {
	lib     *protocols.Library
	program *lattice.Program
	root    *cfg.CFGNode
}

func newTestContext(t *testing.T) *testContext {
	program := lattice.NewProgram()
	root, err := program.NewCFGNode("root")
	require.NoError(t, err)

	return &testContext{
		lib:     protocols.NewStandardLibrary(zerolog.Nop()),
		program: program,
		root:    root,
	}
}

// bind creates a variable bound to the passed values at the root node.
func (c *testContext) bind(t *testing.T, name string, values ...lattice.Value) (*lattice.Variable, []*lattice.Binding) {
	variable := c.program.NewVariable(name)

	var bindings []*lattice.Binding
	for _, v := range values {
		binding, err := variable.AddBinding(v, c.root)
		require.NoError(t, err)
		bindings = append(bindings, binding)
	}
	return variable, bindings
}

// list returns an instance of list whose element variable is bound to elem, and a view choosing the binding.
func (c *testContext) list(t *testing.T, elem lattice.Value) (*lattice.Instance, lattice.View) {
	variable, bindings := c.bind(t, "elem", elem)
	instance := lattice.NewInstance(c.lib.List, map[string]*lattice.Variable{protocols.ELEMENT_PARAM: variable})
	return instance, lattice.NewView(bindings...)
}

func instanceOf(cls *lattice.Class) *lattice.Instance {
	return lattice.NewInstance(cls, nil)
}

// assertInstanceOf asserts that v is an instance of cls.
func assertInstanceOf(t *testing.T, cls *lattice.Class, v lattice.Value) {
	t.Helper()

	instance, ok := v.(*lattice.Instance)
	if assert.True(t, ok, "%v is not an instance", v) {
		assert.Same(t, cls, instance.Class())
	}
}

func method(name string, ret lattice.Value, params ...lattice.Value) *lattice.CallableSignature {
	var ps []lattice.Param
	for i, typ := range params {
		ps = append(ps, lattice.Param{Name: "p" + string(rune('0'+i)), Type: typ})
	}
	return lattice.NewSignature(name, ps, ret, false)
}

func requireFailure(t *testing.T, err error) *Failure {
	t.Helper()
	require.Error(t, err)

	failure, ok := err.(*Failure)
	require.True(t, ok, "%T is not a *Failure", err)
	return failure
}
