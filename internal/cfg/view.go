package cfg

// A View fixes the binding chosen for some variables during a query.
// Views are values: With returns an updated copy and never modifies the receiver.
type View[T any] struct {
	entries map[*Variable[T]]*Binding[T]
}

func NewView[T any](bindings ...*Binding[T]) View[T] {
	entries := make(map[*Variable[T]]*Binding[T], len(bindings))
	for _, b := range bindings {
		entries[b.variable] = b
	}
	return View[T]{entries: entries}
}

// Get returns the binding chosen for variable.
func (v View[T]) Get(variable *Variable[T]) (*Binding[T], bool) {
	b, ok := v.entries[variable]
	return b, ok
}

// With returns a copy of the view in which b is the binding of its variable.
func (v View[T]) With(b *Binding[T]) View[T] {
	if current, ok := v.entries[b.variable]; ok && current == b {
		return v
	}

	entries := make(map[*Variable[T]]*Binding[T], len(v.entries)+1)
	for variable, binding := range v.entries {
		entries[variable] = binding
	}
	entries[b.variable] = b
	return View[T]{entries: entries}
}

func (v View[T]) Len() int {
	return len(v.entries)
}
