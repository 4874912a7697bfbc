package cfg

import "sync/atomic"

// A Variable is a named slot owning an append-only list of bindings.
type Variable[T any] struct {
	id       int
	name     string
	program  *Program[T]
	bindings atomic.Pointer[[]*Binding[T]]
}

func (v *Variable[T]) Id() int {
	return v.id
}

func (v *Variable[T]) Name() string {
	return v.name
}

func (v *Variable[T]) Program() *Program[T] {
	return v.program
}

// Bindings returns the committed bindings in creation order, the returned slice should not be modified.
func (v *Variable[T]) Bindings() []*Binding[T] {
	return *v.bindings.Load()
}

// Data returns the data of all committed bindings.
func (v *Variable[T]) Data() []T {
	bindings := v.Bindings()
	data := make([]T, len(bindings))
	for i, b := range bindings {
		data[i] = b.data
	}
	return data
}

// VisibleBindings returns the bindings whose origin is reachable from node.
func (v *Variable[T]) VisibleBindings(node *CFGNode) []*Binding[T] {
	var visible []*Binding[T]
	for _, b := range v.Bindings() {
		if b.IsVisible(node) {
			visible = append(visible, b)
		}
	}
	return visible
}

// AddBinding appends a binding of data produced at origin.
func (v *Variable[T]) AddBinding(data T, origin *CFGNode) (*Binding[T], error) {
	p := v.program

	p.arena.lock.Lock()
	defer p.arena.lock.Unlock()

	if err := p.checkNode(origin); err != nil {
		return nil, err
	}

	binding := &Binding[T]{
		id:       int(p.bindingCount.Load()),
		variable: v,
		data:     data,
		origin:   origin,
	}

	bindings := *v.bindings.Load()
	updated := append(bindings[:len(bindings):len(bindings)], binding)
	v.bindings.Store(&updated)
	p.bindingCount.Add(1)

	return binding, nil
}

func (v *Variable[T]) String() string {
	return v.name
}

// A Binding is a value attached to a variable at the node where it was produced, it is immutable.
type Binding[T any] struct {
	id       int
	variable *Variable[T]
	data     T
	origin   *CFGNode
}

func (b *Binding[T]) Id() int {
	return b.id
}

func (b *Binding[T]) Variable() *Variable[T] {
	return b.variable
}

func (b *Binding[T]) Data() T {
	return b.data
}

func (b *Binding[T]) Origin() *CFGNode {
	return b.origin
}

// IsVisible returns true if the origin of the binding is reachable from node.
func (b *Binding[T]) IsVisible(node *CFGNode) bool {
	return b.variable.program.IsReachable(node, b.origin)
}
