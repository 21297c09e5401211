// Package reach reports statements that cannot be reached.
package reach

import (
	"go.uber.org/zap"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term"
)

// Item is true on paths that may execute.
type Item bool

func (i Item) Equal(o dataflow.Item) bool { return i == o.(Item) }

func reached(i dataflow.Item) bool {
	return i != nil && bool(i.(Item))
}

// analysis is the reachability analysis of one code unit.
type analysis struct {
	parents map[term.Term]term.Term
	updates map[term.Term]bool // Update statements of for loops.
	res     *dataflow.Result
}

func newAnalysis(root term.Term) *analysis {
	a := &analysis{parents: term.Parents(root), updates: make(map[term.Term]bool)}
	term.Walk(root, func(t term.Term) bool {
		if f, ok := t.(*term.For); ok {
			for _, s := range f.Update {
				a.updates[s] = true
			}
		}
		return true
	})
	return a
}

func (a *analysis) Forward() bool { return true }

func (a *analysis) CreateInitialItem(g *cfg.Graph, p *cfg.Peer) dataflow.Item { return Item(true) }

func (a *analysis) Confluence(in []dataflow.Input, p *cfg.Peer, g *cfg.Graph) dataflow.Item {
	for _, i := range in {
		if reached(i.Item) {
			return Item(true)
		}
	}
	return Item(false)
}

func (a *analysis) Flow(in *dataflow.FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]dataflow.Item, error) {
	return dataflow.ItemToMap(in.Item, keys), nil
}

// DeadItem marks the branch a constant condition never takes as not
// reached, except in the condition of an if statement.
func (a *analysis) DeadItem(g *cfg.Graph, p *cfg.Peer) (dataflow.Item, bool) {
	if a.inIfCond(p.Term) {
		return nil, false
	}
	return Item(false), true
}

func (a *analysis) inIfCond(t term.Term) bool {
	for {
		parent, ok := a.parents[t]
		if !ok {
			return false
		}
		switch parent := parent.(type) {
		case *term.If:
			return parent.Cond == t
		case term.Expr:
			t = parent
		default:
			return false
		}
	}
}

func (a *analysis) Check(g *cfg.Graph, p *cfg.Peer, in dataflow.Item, out map[cfg.EdgeKey]dataflow.Item) error {
	s, ok := p.Term.(term.Stmt)
	if !ok || term.IsCompound(s) || a.updates[s] || reached(in) {
		return nil
	}
	// A statement in a finally block is reached if any copy is.
	if a.anyReached(g, s) || a.inUncaughtCatch(g, s) {
		return nil
	}
	return report.Errorf(s.Position(), "Unreachable statement")
}

func (a *analysis) anyReached(g *cfg.Graph, t term.Term) bool {
	for _, q := range g.PeersOf(t) {
		if reached(a.res.In(q)) {
			return true
		}
	}
	return false
}

// inUncaughtCatch returns true if t is in a catch clause that no exception
// reaches. Such clauses are left to exception checking.
func (a *analysis) inUncaughtCatch(g *cfg.Graph, t term.Term) bool {
	for p, ok := a.parents[t]; ok; p, ok = a.parents[p] {
		if c, isCatch := p.(*term.Catch); isCatch && !a.anyReached(g, c.Formal) {
			return true
		}
	}
	return false
}

// Checker reports unreachable statements.
type Checker struct {
	graphs cfg.Source
	q      report.Queue
	logger *zap.SugaredLogger
}

// New returns a checker building graphs from graphs. A nil logger discards
// logs.
func New(graphs cfg.Source, q report.Queue, logger *zap.SugaredLogger) *Checker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Checker{graphs: graphs, q: q, logger: logger}
}

// CheckUnit checks the code unit root. It returns false if an error was
// reported.
func (c *Checker) CheckUnit(root term.Term) bool {
	g, err := c.graphs.Graph(root, true)
	if err != nil {
		c.q.Enqueue(report.At(root, err))
		return false
	}
	a := newAnalysis(root)
	e := dataflow.New(a, c.logger)
	if a.res, err = e.Dataflow(g); err == nil {
		err = e.Check(g, a.res)
	}
	if err != nil {
		c.logger.Debugw("Reachability error", "unit", term.Describe(root), "error", err)
		c.q.Enqueue(report.At(root, err))
		return false
	}
	return true
}
