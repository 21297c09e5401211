package cfg

import (
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// intGraph returns the successor relation of g over peer indices.
func (g *Graph) intGraph() *graph.Mutable {
	ig := graph.New(len(g.peers))
	for _, p := range g.peers {
		for _, e := range p.Succs {
			ig.Add(p.Index, e.Peer.Index)
		}
	}
	return ig
}

// CheckOrder returns every peer in the order checks visit them: breadth
// first from the start peers, then breadth first from the lowest unvisited
// peer until all peers are visited. The order is deterministic.
func (g *Graph) CheckOrder() []*Peer {
	ig := graph.Sort(g.intGraph())
	var unchecked intsets.Sparse
	for i := range g.peers {
		unchecked.Insert(i)
	}
	order := make([]*Peer, 0, len(g.peers))
	visit := func(start int) {
		if !unchecked.Remove(start) {
			return
		}
		order = append(order, g.peers[start])
		graph.BFS(ig, start, func(_, w int, _ int64) {
			if unchecked.Remove(w) {
				order = append(order, g.peers[w])
			}
		})
	}
	for _, p := range g.StartPeers() {
		visit(p.Index)
	}
	for !unchecked.IsEmpty() {
		visit(unchecked.Min())
	}
	return order
}

// Loops returns the strongly connected components of g that contain a
// cycle, each ordered by peer index.
func (g *Graph) Loops() [][]*Peer {
	ig := g.intGraph()
	var loops [][]*Peer
	for _, comp := range graph.StrongComponents(ig) {
		if len(comp) == 1 && !ig.Edge(comp[0], comp[0]) {
			continue
		}
		slices.Sort(comp)
		loop := make([]*Peer, len(comp))
		for i, idx := range comp {
			loop[i] = g.peers[idx]
		}
		loops = append(loops, loop)
	}
	slices.SortFunc(loops, func(a, b []*Peer) bool { return a[0].Index < b[0].Index })
	return loops
}

// Reachable returns the set of peer indices reachable from the start peers.
func (g *Graph) Reachable() *intsets.Sparse {
	ig := g.intGraph()
	var seen intsets.Sparse
	for _, p := range g.StartPeers() {
		seen.Insert(p.Index)
		graph.BFS(ig, p.Index, func(_, w int, _ int64) { seen.Insert(w) })
	}
	return &seen
}
