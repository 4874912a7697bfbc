package cfg

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNilNode                 = errors.New("nil CFG node")
	ErrForeignNode             = errors.New("CFG node belongs to another program")
	ErrForeignVariable         = errors.New("variable belongs to another program")
	ErrBindingVariableMismatch = errors.New("binding does not belong to the variable")
)

// A Program owns all the CFG nodes, variables and bindings of an analysis session.
// It only grows: nodes, variables and bindings are never removed and their ids are stable.
//
// A single writer appends under a short critical section, readers never lock:
// every piece of state they access is published with an atomic pointer.
type Program[T any] struct {
	arena *nodeArena

	variables    atomic.Pointer[[]*Variable[T]]
	bindingCount atomic.Int64
}

// nodeArena is the non generic part of a program, CFG nodes point to it.
type nodeArena struct {
	session ulid.ULID
	lock    sync.Mutex
	nodes   atomic.Pointer[[]*CFGNode]
}

func NewProgram[T any]() *Program[T] {
	p := &Program[T]{
		arena: &nodeArena{session: ulid.Make()},
	}
	p.arena.nodes.Store(&[]*CFGNode{})
	p.variables.Store(&[]*Variable[T]{})
	return p
}

// Id returns the session id of the program.
func (p *Program[T]) Id() ulid.ULID {
	return p.arena.session
}

// CFGNodes returns the committed CFG nodes in creation order, the returned slice should not be modified.
func (p *Program[T]) CFGNodes() []*CFGNode {
	return *p.arena.nodes.Load()
}

func (p *Program[T]) NodeCount() int {
	return len(*p.arena.nodes.Load())
}

// Variables returns the committed variables in creation order, the returned slice should not be modified.
func (p *Program[T]) Variables() []*Variable[T] {
	return *p.variables.Load()
}

func (p *Program[T]) BindingCount() int64 {
	return p.bindingCount.Load()
}

// NewCFGNode creates a node whose predecessors are preds, the predecessors must belong to p.
func (p *Program[T]) NewCFGNode(name string, preds ...*CFGNode) (*CFGNode, error) {
	p.arena.lock.Lock()
	defer p.arena.lock.Unlock()

	for _, pred := range preds {
		if err := p.checkNode(pred); err != nil {
			return nil, err
		}
	}

	nodes := *p.arena.nodes.Load()

	node := &CFGNode{
		id:    len(nodes),
		name:  name,
		arena: p.arena,
	}
	node.init(preds)

	//the full slice expression forces a copy so that readers holding the previous slice are not affected.
	updated := append(nodes[:len(nodes):len(nodes)], node)
	p.arena.nodes.Store(&updated)

	for _, pred := range preds {
		pred.addSuccessor(node)
	}
	return node, nil
}

// AddPredecessor adds pred to the predecessors of node, this is a no-op if the edge already exists.
// The reachability information of node and of all the nodes it reaches is updated.
func (p *Program[T]) AddPredecessor(node, pred *CFGNode) error {
	p.arena.lock.Lock()
	defer p.arena.lock.Unlock()

	if err := p.checkNode(node); err != nil {
		return err
	}
	if err := p.checkNode(pred); err != nil {
		return err
	}

	return p.arena.connect(pred, node)
}

// NewVariable creates an empty variable.
func (p *Program[T]) NewVariable(name string) *Variable[T] {
	p.arena.lock.Lock()
	defer p.arena.lock.Unlock()

	variables := *p.variables.Load()

	variable := &Variable[T]{
		id:      len(variables),
		name:    name,
		program: p,
	}
	variable.bindings.Store(&[]*Binding[T]{})

	updated := append(variables[:len(variables):len(variables)], variable)
	p.variables.Store(&updated)
	return variable
}

// IsReachable returns true if target is origin or if target is a transitive predecessor of origin.
// The answer is computed from ancestor sets maintained incrementally, so the call is O(1) and never locks.
func (p *Program[T]) IsReachable(origin, target *CFGNode) bool {
	if origin == nil || target == nil || origin.arena != p.arena || target.arena != p.arena {
		return false
	}
	return origin.HasAncestor(target)
}

func (p *Program[T]) checkNode(node *CFGNode) error {
	if node == nil {
		return ErrNilNode
	}
	if node.arena != p.arena {
		return ErrForeignNode
	}
	return nil
}
