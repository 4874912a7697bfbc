package cfg

import (
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"github.com/oklog/ulid/v2"
)

// A CFGNode is a control flow point. The set of its predecessors only grows.
type CFGNode struct {
	id    int
	name  string
	arena *nodeArena

	preds atomic.Pointer[[]*CFGNode]
	succs atomic.Pointer[[]*CFGNode]

	//ids of the transitive predecessors, a node is part of its own set only if it is in a loop.
	ancestors atomic.Pointer[bitset.BitSet]
}

func (n *CFGNode) init(preds []*CFGNode) {
	ancestors := bitset.New(uint(n.id + 1))
	var predList []*CFGNode

	for _, pred := range preds {
		if containsNode(predList, pred) {
			continue
		}
		predList = append(predList, pred)
		ancestors.InPlaceUnion(pred.ancestors.Load())
		ancestors.Set(uint(pred.id))
	}

	n.preds.Store(&predList)
	n.succs.Store(&[]*CFGNode{})
	n.ancestors.Store(ancestors)
}

func (n *CFGNode) Id() int {
	return n.id
}

func (n *CFGNode) Name() string {
	return n.name
}

// Session returns the id of the program the node belongs to.
func (n *CFGNode) Session() ulid.ULID {
	return n.arena.session
}

// Predecessors returns the committed predecessors, the returned slice should not be modified.
func (n *CFGNode) Predecessors() []*CFGNode {
	return *n.preds.Load()
}

// Successors returns the committed successors, the returned slice should not be modified.
func (n *CFGNode) Successors() []*CFGNode {
	return *n.succs.Load()
}

// HasAncestor returns true if other is n or a transitive predecessor of n.
func (n *CFGNode) HasAncestor(other *CFGNode) bool {
	if n == other {
		return true
	}
	if other == nil || other.arena != n.arena {
		return false
	}
	return n.ancestors.Load().Test(uint(other.id))
}

// ConnectTo adds an edge from n to succ: n becomes a predecessor of succ.
func (n *CFGNode) ConnectTo(succ *CFGNode) error {
	if succ == nil {
		return ErrNilNode
	}
	if succ.arena != n.arena {
		return ErrForeignNode
	}

	n.arena.lock.Lock()
	defer n.arena.lock.Unlock()
	return n.arena.connect(n, succ)
}

// ConnectNew creates a new node whose only predecessor is n.
func (n *CFGNode) ConnectNew(name string) *CFGNode {
	n.arena.lock.Lock()
	defer n.arena.lock.Unlock()

	nodes := *n.arena.nodes.Load()
	node := &CFGNode{
		id:    len(nodes),
		name:  name,
		arena: n.arena,
	}
	node.init([]*CFGNode{n})

	updated := append(nodes[:len(nodes):len(nodes)], node)
	n.arena.nodes.Store(&updated)
	n.addSuccessor(node)
	return node
}

func (n *CFGNode) String() string {
	return n.name
}

func (n *CFGNode) addSuccessor(succ *CFGNode) {
	succs := *n.succs.Load()
	updated := append(succs[:len(succs):len(succs)], succ)
	n.succs.Store(&updated)
}

// connect adds the edge pred -> node, the arena should be locked.
func (a *nodeArena) connect(pred, node *CFGNode) error {
	preds := *node.preds.Load()
	if containsNode(preds, pred) {
		return nil
	}

	updatedPreds := append(preds[:len(preds):len(preds)], pred)
	node.preds.Store(&updatedPreds)
	pred.addSuccessor(node)

	//Nodes that reach node (including node itself) gain the ancestors of pred and pred itself.
	//The delta is computed before any update, if pred is reachable from node (back edge)
	//its ancestor set already contains everything the new edge adds.
	delta := pred.ancestors.Load().Clone()
	delta.Set(uint(pred.id))

	for _, other := range *a.nodes.Load() {
		ancestors := other.ancestors.Load()

		if other != node && !ancestors.Test(uint(node.id)) {
			continue
		}
		if ancestors.IsSuperSet(delta) {
			continue
		}

		updated := ancestors.Clone()
		updated.InPlaceUnion(delta)
		other.ancestors.Store(updated)
	}
	return nil
}

func containsNode(nodes []*CFGNode, node *CFGNode) bool {
	for _, n := range nodes {
		if n == node {
			return true
		}
	}
	return false
}
