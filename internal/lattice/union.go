package lattice

import (
	"strings"

	"golang.org/x/exp/slices"
)

// A Union stands for one of its options, chosen along some execution path.
type Union struct {
	options []Value
}

// NewUnion returns a union of the passed options, the options are neither flattened nor deduplicated, see Join.
func NewUnion(options ...Value) *Union {
	return &Union{options: slices.Clone(options)}
}

func (*Union) Kind() Kind {
	return UnionKind
}

func (u *Union) Options() []Value {
	return slices.Clone(u.options)
}

func (u *Union) String() string {
	buf := new(strings.Builder)
	buf.WriteString("Union[")
	for i, option := range u.options {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(option.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// Join combines values into a value that could be any of them, the passed slice is never modified.
// Unions are flattened and duplicates (see Same) removed. An unknown value absorbs the others,
// nothing values are dropped when other values are present.
func Join(values ...Value) Value {
	var options []Value
	var nothing Value

	var add func(v Value) bool
	add = func(v Value) bool {
		switch val := v.(type) {
		case *Unknown:
			return false
		case *Nothing:
			if nothing == nil {
				nothing = val
			}
		case *Union:
			for _, option := range val.options {
				if !add(option) {
					return false
				}
			}
		default:
			if !containsSame(options, v) {
				options = append(options, v)
			}
		}
		return true
	}

	for _, v := range values {
		if !add(v) {
			return UNKNOWN
		}
	}

	switch len(options) {
	case 0:
		if nothing == nil {
			return NOTHING
		}
		return nothing
	case 1:
		return options[0]
	default:
		return &Union{options: options}
	}
}
