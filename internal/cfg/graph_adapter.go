package cfg

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/iterator"
)

var (
	_ graph.Directed = (*directedGraphAdapter)(nil)
	_ graph.Node     = (*nodeAdapter)(nil)
	_ graph.Edge     = (*edgeAdapter)(nil)
)

// ImmediateDominators returns the immediate dominator of every node reachable from entry,
// the entry node is mapped to nil. The computation uses the nodes committed at the time of the call.
func (p *Program[T]) ImmediateDominators(entry *CFGNode) (map[*CFGNode]*CFGNode, error) {
	if err := p.checkNode(entry); err != nil {
		return nil, err
	}

	adapter := &directedGraphAdapter{nodes: p.CFGNodes()}
	tree := flow.Dominators(nodeAdapter{id: entry.id}, adapter)

	result := map[*CFGNode]*CFGNode{}

	for _, node := range adapter.nodes {
		if node != entry && !node.HasAncestor(entry) {
			continue
		}
		dominator := tree.DominatorOf(int64(node.id))
		if dominator == nil {
			result[node] = nil
			continue
		}
		result[node] = adapter.nodes[dominator.ID()]
	}

	return result, nil
}

// directedGraphAdapter exposes a snapshot of the CFG as a gonum graph, edges go from predecessors to successors.
type directedGraphAdapter struct {
	nodes []*CFGNode
}

func (g *directedGraphAdapter) get(id int64) (*CFGNode, bool) {
	if id < 0 || id >= int64(len(g.nodes)) {
		return nil, false
	}
	return g.nodes[id], true
}

func (g *directedGraphAdapter) Node(id int64) graph.Node {
	if _, ok := g.get(id); ok {
		return nodeAdapter{id: int(id)}
	}
	return nil
}

func (g *directedGraphAdapter) Nodes() graph.Nodes {
	nodeMap := make(map[int64]graph.Node, len(g.nodes))
	for _, node := range g.nodes {
		nodeMap[int64(node.id)] = nodeAdapter{id: node.id}
	}
	return iterator.NewNodes(nodeMap)
}

func (g *directedGraphAdapter) From(id int64) graph.Nodes {
	node, ok := g.get(id)
	if !ok {
		return graph.Empty
	}
	return g.adapt(node.Successors())
}

func (g *directedGraphAdapter) To(id int64) graph.Nodes {
	node, ok := g.get(id)
	if !ok {
		return graph.Empty
	}
	return g.adapt(node.Predecessors())
}

func (g *directedGraphAdapter) adapt(nodes []*CFGNode) graph.Nodes {
	nodeMap := map[int64]graph.Node{}
	for _, node := range nodes {
		//nodes created after the snapshot are ignored.
		if node.id < len(g.nodes) {
			nodeMap[int64(node.id)] = nodeAdapter{id: node.id}
		}
	}
	return iterator.NewNodes(nodeMap)
}

func (g *directedGraphAdapter) HasEdgeBetween(xid, yid int64) bool {
	return g.HasEdgeFromTo(xid, yid) || g.HasEdgeFromTo(yid, xid)
}

func (g *directedGraphAdapter) HasEdgeFromTo(uid, vid int64) bool {
	u, ok := g.get(uid)
	if !ok {
		return false
	}
	v, ok := g.get(vid)
	if !ok {
		return false
	}
	return containsNode(v.Predecessors(), u)
}

func (g *directedGraphAdapter) Edge(uid, vid int64) graph.Edge {
	if !g.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return edgeAdapter{from: int(uid), to: int(vid)}
}

type nodeAdapter struct {
	id int
}

func (n nodeAdapter) ID() int64 {
	return int64(n.id)
}

type edgeAdapter struct {
	from, to int
}

func (e edgeAdapter) From() graph.Node {
	return nodeAdapter{id: e.from}
}

func (e edgeAdapter) To() graph.Node {
	return nodeAdapter{id: e.to}
}

func (e edgeAdapter) ReversedEdge() graph.Edge {
	return edgeAdapter{from: e.to, to: e.from}
}
