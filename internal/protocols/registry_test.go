package protocols

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classyserve/pytype/internal/lattice"
)

func newProtocol(name string, member string) *lattice.Class {
	return lattice.DefineClass(lattice.ClassConfig{
		Name: name,
		Protocol: func(self *lattice.Class) []lattice.ProtocolMember {
			return []lattice.ProtocolMember{requirement(member, method(member, nil))}
		},
	})
}

func TestRegistry(t *testing.T) {

	t.Run("empty", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		assert.Zero(t, r.Len())
		assert.Empty(t, r.Names())

		_, ok := r.Get("Sized")
		assert.False(t, ok)
	})

	t.Run("registered protocols are ordered by name", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())

		closeable := newProtocol("Closeable", "close")
		awaitable := newProtocol("Awaitable", "__await__")

		require.NoError(t, r.Register(closeable))
		require.NoError(t, r.Register(awaitable))

		assert.Equal(t, 2, r.Len())
		assert.Equal(t, []string{"Awaitable", "Closeable"}, r.Names())

		protocol, ok := r.Get("Closeable")
		require.True(t, ok)
		assert.Same(t, closeable, protocol)

		var visited []*lattice.Class
		r.Each(func(protocol *lattice.Class) bool {
			visited = append(visited, protocol)
			return true
		})
		assert.Equal(t, []*lattice.Class{awaitable, closeable}, visited)
	})

	t.Run("iteration stops when the callback returns false", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		require.NoError(t, r.Register(newProtocol("A", "a")))
		require.NoError(t, r.Register(newProtocol("B", "b")))

		count := 0
		r.Each(func(protocol *lattice.Class) bool {
			count++
			return false
		})
		assert.Equal(t, 1, count)
	})

	t.Run("a class that is not a protocol is rejected", func(t *testing.T) {
		r := NewRegistry(zerolog.Nop())
		err := r.Register(lattice.NewClass("Point", nil, nil))

		assert.ErrorIs(t, err, ErrNotAProtocol)
		assert.Zero(t, r.Len())
	})

	t.Run("replacing a protocol is logged", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		r := NewRegistry(zerolog.New(buf))

		first := newProtocol("Closeable", "close")
		second := newProtocol("Closeable", "close")

		require.NoError(t, r.Register(first))
		require.NoError(t, r.Register(first))
		assert.Empty(t, buf.String())

		require.NoError(t, r.Register(second))
		assert.Contains(t, buf.String(), "protocol replaced in registry")
		assert.Contains(t, buf.String(), `"protocol":"Closeable"`)

		protocol, _ := r.Get("Closeable")
		assert.Same(t, second, protocol)
		assert.Equal(t, 1, r.Len())
	})
}
