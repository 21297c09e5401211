// Package cfg builds control flow graphs of code units.
//
// A Graph has one Peer for every term of a code unit, and one more for each
// copy of a term inside a replicated finally block. Peers live in an arena
// and are referred to by index; a separate index maps a (term, finally path)
// pair to its Peer.
package cfg

import (
	"fmt"
	"strings"

	"github.com/nickng/flowcheck/term"
)

// EdgeKind classifies an edge.
type EdgeKind int

const (
	Other EdgeKind = iota
	True
	False
	Exception
)

// EdgeKey labels an edge so a transfer function can produce a different
// fact for each kind of successor. EdgeKeys are comparable.
type EdgeKey struct {
	Kind EdgeKind
	Type *term.ClassType // Exception type, for Exception keys.
}

var (
	KeyOther = EdgeKey{Kind: Other}
	KeyTrue  = EdgeKey{Kind: True}
	KeyFalse = EdgeKey{Kind: False}
)

// ExceptionKey returns the key of edges taken when t is thrown.
func ExceptionKey(t *term.ClassType) EdgeKey {
	return EdgeKey{Kind: Exception, Type: t}
}

// IsException returns true for exception keys.
func (k EdgeKey) IsException() bool { return k.Kind == Exception }

func (k EdgeKey) String() string {
	switch k.Kind {
	case Other:
		return "OTHER"
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	case Exception:
		return "EXC:" + k.Type.String()
	}
	return fmt.Sprintf("EdgeKey(%d)", int(k.Kind))
}

// Edge is one end of a labelled edge. In a successor list Peer is the
// target, in a predecessor list it is the source.
type Edge struct {
	Key  EdgeKey
	Peer *Peer
}

// Peer is a vertex of a Graph.
type Peer struct {
	Index int
	Term  term.Term
	Path  []term.Term // Origins of the enclosing replicated finally blocks.
	Preds []Edge
	Succs []Edge

	path int // Interned Path.
}

// SuccKeys returns the distinct keys of the outgoing edges in order. A sink
// peer has the single key KeyOther.
func (p *Peer) SuccKeys() []EdgeKey {
	var keys []EdgeKey
	seen := make(map[EdgeKey]bool)
	for _, e := range p.Succs {
		if !seen[e.Key] {
			seen[e.Key] = true
			keys = append(keys, e.Key)
		}
	}
	if len(keys) == 0 {
		return []EdgeKey{KeyOther}
	}
	return keys
}

// IsReplica returns true if the peer is a copy of its term under a
// replicated finally block.
func (p *Peer) IsReplica() bool { return p.path != 0 }

func (p *Peer) String() string {
	if len(p.Path) == 0 {
		return fmt.Sprintf("p%d[%s]", p.Index, term.Describe(p.Term))
	}
	var origins []string
	for _, t := range p.Path {
		origins = append(origins, term.Describe(t))
	}
	return fmt.Sprintf("p%d[%s | via %s]", p.Index, term.Describe(p.Term), strings.Join(origins, ", "))
}

type peerKey struct {
	t    term.Term
	path int
}

type pathKey struct {
	parent int
	t      term.Term
}

// Graph is the control flow graph of one code unit.
type Graph struct {
	root      term.Term
	forward   bool
	replicate bool

	peers  []*Peer
	index  map[peerKey]int
	byTerm map[term.Term][]int

	// Interned finally paths. Path 0 is the empty path.
	paths     [][]term.Term
	pathIndex map[pathKey]int
}

func newGraph(root term.Term, forward, replicate bool) *Graph {
	return &Graph{
		root:      root,
		forward:   forward,
		replicate: replicate,
		index:     make(map[peerKey]int),
		byTerm:    make(map[term.Term][]int),
		paths:     [][]term.Term{nil},
		pathIndex: make(map[pathKey]int),
	}
}

// Root returns the code unit the graph was built for.
func (g *Graph) Root() term.Term { return g.root }

// Forward returns true if edges follow the direction of execution.
func (g *Graph) Forward() bool { return g.forward }

// ReplicateFinally returns true if each path through a finally block has its
// own copy of the block.
func (g *Graph) ReplicateFinally() bool { return g.replicate }

// StartNode returns the term where analysis starts: the entry of the root
// for a forward graph, the root itself (its exit) for a backward graph.
func (g *Graph) StartNode() term.Term {
	if g.forward {
		return term.Entry(g.root)
	}
	return g.root
}

// FinishNode returns the term where analysis ends.
func (g *Graph) FinishNode() term.Term {
	if g.forward {
		return g.root
	}
	return term.Entry(g.root)
}

// Peers returns all peers in creation order.
func (g *Graph) Peers() []*Peer { return g.peers }

// PeersOf returns every copy of t.
func (g *Graph) PeersOf(t term.Term) []*Peer {
	var ps []*Peer
	for _, i := range g.byTerm[t] {
		ps = append(ps, g.peers[i])
	}
	return ps
}

// StartPeers returns the peers of the start node.
func (g *Graph) StartPeers() []*Peer { return g.PeersOf(g.StartNode()) }

// FinishPeer returns the peer of the finish node outside any finally block,
// or nil if the builder never created one.
func (g *Graph) FinishPeer() *Peer { return g.lookup(g.FinishNode(), 0) }

// Peer returns the peer of t on the given finally path, creating it if
// needed.
func (g *Graph) Peer(t term.Term, path []term.Term) *Peer {
	id := 0
	for _, origin := range path {
		id = g.extendPath(id, origin)
	}
	return g.peer(t, id)
}

// Lookup returns the peer of t on the given finally path, or nil.
func (g *Graph) Lookup(t term.Term, path []term.Term) *Peer {
	id := 0
	for _, origin := range path {
		var ok bool
		if id, ok = g.pathIndex[pathKey{parent: id, t: origin}]; !ok {
			return nil
		}
	}
	return g.lookup(t, id)
}

func (g *Graph) lookup(t term.Term, path int) *Peer {
	if i, ok := g.index[peerKey{t: t, path: path}]; ok {
		return g.peers[i]
	}
	return nil
}

func (g *Graph) peer(t term.Term, path int) *Peer {
	if p := g.lookup(t, path); p != nil {
		return p
	}
	p := &Peer{Index: len(g.peers), Term: t, Path: g.paths[path], path: path}
	g.peers = append(g.peers, p)
	g.index[peerKey{t: t, path: path}] = p.Index
	g.byTerm[t] = append(g.byTerm[t], p.Index)
	return p
}

// extendPath returns the interned path of parent followed by origin.
func (g *Graph) extendPath(parent int, origin term.Term) int {
	k := pathKey{parent: parent, t: origin}
	if id, ok := g.pathIndex[k]; ok {
		return id
	}
	path := make([]term.Term, len(g.paths[parent])+1)
	copy(path, g.paths[parent])
	path[len(path)-1] = origin
	g.paths = append(g.paths, path)
	g.pathIndex[k] = len(g.paths) - 1
	return len(g.paths) - 1
}

// addEdge adds a control edge from p to q. In a backward graph the edge is
// reversed. Duplicate edges are ignored.
func (g *Graph) addEdge(p, q *Peer, key EdgeKey) {
	if !g.forward {
		p, q = q, p
	}
	for _, e := range p.Succs {
		if e.Peer == q && e.Key == key {
			return
		}
	}
	p.Succs = append(p.Succs, Edge{Key: key, Peer: q})
	q.Preds = append(q.Preds, Edge{Key: key, Peer: p})
}

// Len returns the number of peers.
func (g *Graph) Len() int { return len(g.peers) }
