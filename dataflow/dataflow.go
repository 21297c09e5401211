// Package dataflow is a worklist dataflow engine over flow graphs.
//
// An Analysis supplies the lattice (Item), the initial fact, a confluence
// operator and a transfer function producing one fact per outgoing edge key.
// The engine iterates to a fixpoint, then calls the analysis' Check on every
// peer in check order.
package dataflow

import (
	"fmt"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/term"
)

// Item is a dataflow fact. Items are immutable and compared with Equal.
type Item interface {
	Equal(Item) bool
}

// Input is the fact flowing into a peer along one edge. From is nil for the
// initial fact of a start peer.
type Input struct {
	Key  cfg.EdgeKey
	Item Item
	From *cfg.Peer
}

// Analysis is a dataflow analysis.
type Analysis interface {
	// Forward returns true for analyses following the direction of
	// execution.
	Forward() bool

	// CreateInitialItem returns the fact at a start peer.
	CreateInitialItem(g *cfg.Graph, p *cfg.Peer) Item

	// Confluence joins two or more input facts of p.
	Confluence(in []Input, p *cfg.Peer, g *cfg.Graph) Item

	// Flow returns the fact of p on every edge key in keys. A returned
	// error is a semantic error and stops the analysis of the unit.
	Flow(in *FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]Item, error)

	// Check checks the facts of p after the fixpoint is reached. in and out
	// are nil for peers the fixpoint never reached.
	Check(g *cfg.Graph, p *cfg.Peer, in Item, out map[cfg.EdgeKey]Item) error
}

// Pruner is implemented by analyses that mark the dead branch of a constant
// condition. DeadItem returns the fact flowing along a branch that is never
// taken, or false to keep the computed fact.
type Pruner interface {
	DeadItem(g *cfg.Graph, p *cfg.Peer) (Item, bool)
}

// FlowInput is the input of a transfer function: the joined fact, and the
// facts of each incoming edge.
type FlowInput struct {
	Item  Item
	Keyed []Input

	a   Analysis
	g   *cfg.Graph
	p   *cfg.Peer
	res *Result
}

// Split returns the joined facts of the TRUE and FALSE inputs. A key with
// no input gets the joined fact of all inputs.
func (in *FlowInput) Split() (t, f Item) {
	var ts, fs []Input
	for _, i := range in.Keyed {
		switch i.Key {
		case cfg.KeyTrue:
			ts = append(ts, i)
		case cfg.KeyFalse:
			fs = append(fs, i)
		}
	}
	return in.join(ts), in.join(fs)
}

// Normal returns the joined fact of the inputs that are not exception
// edges.
func (in *FlowInput) Normal() Item {
	var normal []Input
	for _, i := range in.Keyed {
		if !i.Key.IsException() {
			normal = append(normal, i)
		}
	}
	return in.join(normal)
}

func (in *FlowInput) join(inputs []Input) Item {
	switch len(inputs) {
	case 0:
		return in.Item
	case 1:
		return inputs[0].Item
	}
	return in.a.Confluence(inputs, in.p, in.g)
}

// EntryFact returns the current input fact of the entry of t, on the path
// of the peer being flowed, or nil if it has none yet.
func (in *FlowInput) EntryFact(t term.Term) Item {
	if in.res == nil {
		return nil
	}
	if p := in.g.Lookup(term.Entry(t), in.p.Path); p != nil {
		return in.res.in[p.Index]
	}
	return nil
}

// Fact returns the current output fact of t on key, on the path of the
// peer being flowed, or nil if it has none yet.
func (in *FlowInput) Fact(t term.Term, key cfg.EdgeKey) Item {
	if in.res == nil {
		return nil
	}
	if p := in.g.Lookup(t, in.p.Path); p != nil && in.res.out[p.Index] != nil {
		return in.res.out[p.Index][key]
	}
	return nil
}

// InternalError is a violation of the engine's contract by an analysis.
// It is raised with panic and never reported as a diagnostic.
type InternalError struct {
	Peer *cfg.Peer
	Msg  string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at %v: %s", e.Peer, e.Msg)
}
