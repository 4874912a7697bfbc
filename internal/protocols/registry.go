package protocols

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/btree"

	"github.com/classyserve/pytype/internal/lattice"
)

var (
	ErrNotAProtocol = errors.New("class is not a protocol")
)

// A Registry is the declarative protocol table: protocol name -> protocol class.
// Iteration is ordered by name. A Registry is safe for concurrent use.
type Registry struct {
	lock      sync.RWMutex
	protocols btree.Map[string, *lattice.Class]
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry, logger is only used to report replaced entries.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a protocol class to the registry, a protocol with the same name is replaced.
func (r *Registry) Register(protocol *lattice.Class) error {
	if !protocol.IsProtocol() {
		return ErrNotAProtocol
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if previous, replaced := r.protocols.Set(protocol.Name(), protocol); replaced && previous != protocol {
		r.logger.Warn().Str("protocol", protocol.Name()).Msg("protocol replaced in registry")
	}
	return nil
}

func (r *Registry) Get(name string) (*lattice.Class, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.protocols.Get(name)
}

// Names returns the sorted names of the registered protocols.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	names := make([]string, 0, r.protocols.Len())
	r.protocols.Scan(func(name string, _ *lattice.Class) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.protocols.Len()
}

// Each calls fn for each protocol in name order until fn returns false.
// fn should not modify the registry.
func (r *Registry) Each(fn func(protocol *lattice.Class) bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	r.protocols.Scan(func(_ string, protocol *lattice.Class) bool {
		return fn(protocol)
	})
}
