package dataflow

import (
	"go.uber.org/zap"
	"golang.org/x/tools/container/intsets"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/term"
)

// Result holds the fixpoint facts of a graph, indexed by peer.
type Result struct {
	g   *cfg.Graph
	in  []Item
	out []map[cfg.EdgeKey]Item

	Iterations int // Number of peers flowed.
}

func newResult(g *cfg.Graph) *Result {
	return &Result{
		g:   g,
		in:  make([]Item, g.Len()),
		out: make([]map[cfg.EdgeKey]Item, g.Len()),
	}
}

// Graph returns the graph the facts belong to.
func (r *Result) Graph() *cfg.Graph { return r.g }

// In returns the input fact of p, or nil if p was never reached.
func (r *Result) In(p *cfg.Peer) Item { return r.in[p.Index] }

// Out returns the output facts of p, or nil if p was never reached.
func (r *Result) Out(p *cfg.Peer) map[cfg.EdgeKey]Item { return r.out[p.Index] }

// Reached returns true if the fixpoint reached p.
func (r *Result) Reached(p *cfg.Peer) bool { return r.in[p.Index] != nil }

// Engine runs one analysis over flow graphs.
type Engine struct {
	a      Analysis
	logger *zap.SugaredLogger
}

// New returns an engine for a. A nil logger discards logs.
func New(a Analysis, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{a: a, logger: logger}
}

// Analysis returns the analysis the engine runs.
func (e *Engine) Analysis() Analysis { return e.a }

// Run computes the fixpoint of g and checks it. It returns the first
// semantic error.
func (e *Engine) Run(g *cfg.Graph) (*Result, error) {
	res, err := e.Dataflow(g)
	if err != nil {
		return res, err
	}
	return res, e.Check(g, res)
}

// Dataflow computes the fixpoint of g.
func (e *Engine) Dataflow(g *cfg.Graph) (*Result, error) {
	res := newResult(g)
	starts := make(map[*cfg.Peer]bool)
	var (
		queue  []*cfg.Peer
		queued intsets.Sparse
	)
	enqueue := func(p *cfg.Peer) {
		if queued.Insert(p.Index) {
			queue = append(queue, p)
		}
	}
	for _, p := range g.StartPeers() {
		starts[p] = true
		enqueue(p)
	}
	pruner, _ := e.a.(Pruner)

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		queued.Remove(p.Index)
		res.Iterations++

		inputs := e.inputs(res, g, p, starts[p])
		var in Item
		switch len(inputs) {
		case 0:
			in = e.a.CreateInitialItem(g, p)
		case 1:
			in = inputs[0].Item
		default:
			in = e.a.Confluence(inputs, p, g)
		}

		keys := p.SuccKeys()
		out, err := e.a.Flow(&FlowInput{Item: in, Keyed: inputs, a: e.a, g: g, p: p, res: res}, g, p, keys)
		if err != nil {
			e.logger.Debugw("Flow failed", "peer", p.String(), "error", err)
			return res, err
		}
		for _, k := range keys {
			if item, ok := out[k]; !ok || item == nil {
				panic(&InternalError{Peer: p, Msg: "transfer function has no fact for edge key " + k.String()})
			}
		}
		if pruner != nil && g.Forward() {
			prune(pruner, g, p, out)
		}

		changed := res.in[p.Index] == nil || !equalOut(res.out[p.Index], out)
		res.in[p.Index], res.out[p.Index] = in, out
		if changed {
			for _, s := range p.Succs {
				enqueue(s.Peer)
			}
		}
	}
	e.logger.Debugw("Fixpoint reached",
		"unit", term.Describe(g.Root()), "peers", g.Len(), "iterations", res.Iterations)
	return res, nil
}

// inputs returns the facts flowing into p from predecessors that have
// been flowed. A start peer also receives the initial fact.
func (e *Engine) inputs(res *Result, g *cfg.Graph, p *cfg.Peer, start bool) []Input {
	var inputs []Input
	if start {
		inputs = append(inputs, Input{Key: cfg.KeyOther, Item: e.a.CreateInitialItem(g, p)})
	}
	for _, edge := range p.Preds {
		if out := res.out[edge.Peer.Index]; out != nil {
			inputs = append(inputs, Input{Key: edge.Key, Item: out[edge.Key], From: edge.Peer})
		}
	}
	return inputs
}

// prune replaces the fact on the branch a constant condition never takes.
func prune(pruner Pruner, g *cfg.Graph, p *cfg.Peer, out map[cfg.EdgeKey]Item) {
	cond, ok := p.Term.(term.Expr)
	if !ok {
		return
	}
	v, ok := term.ConstBool(cond)
	if !ok {
		return
	}
	dead := cfg.KeyFalse
	if !v {
		dead = cfg.KeyTrue
	}
	if _, ok := out[dead]; !ok {
		return
	}
	if item, ok := pruner.DeadItem(g, p); ok {
		out[dead] = item
	}
}

func equalOut(a, b map[cfg.EdgeKey]Item) bool {
	if len(a) != len(b) {
		return false
	}
	for k, x := range a {
		y, ok := b[k]
		if !ok || !x.Equal(y) {
			return false
		}
	}
	return true
}

// Check calls the analysis' Check on every peer of g in check order and
// returns the first error.
func (e *Engine) Check(g *cfg.Graph, res *Result) error {
	for _, p := range g.CheckOrder() {
		if err := e.a.Check(g, p, res.in[p.Index], res.out[p.Index]); err != nil {
			e.logger.Debugw("Check failed", "peer", p.String(), "error", err)
			return err
		}
	}
	return nil
}
