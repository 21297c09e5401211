// Package deadcode finds assignments whose value is never read.
//
// It runs a live variable analysis over the backward flow graph of a code
// unit. A declaration with an initializer, or an assignment statement, is
// dead if its variable is not live after it and computing its value has no
// side effects.
package deadcode

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/term"
)

var ErrForwardGraph = errors.New("live variables need a backward graph")

// Item is the set of live variables, by Var.ID.
type Item struct {
	live *intsets.Sparse
}

func (i Item) Equal(o dataflow.Item) bool { return i.live.Equals(o.(Item).live) }

func (i Item) update(fn func(s *intsets.Sparse)) Item {
	var s intsets.Sparse
	s.Copy(i.live)
	fn(&s)
	return Item{live: &s}
}

type analysis struct {
	captured *intsets.Sparse // Locals read by nested classes; always live.
}

func (a *analysis) Forward() bool { return false }

func (a *analysis) CreateInitialItem(g *cfg.Graph, p *cfg.Peer) dataflow.Item {
	var s intsets.Sparse
	s.Copy(a.captured)
	return Item{live: &s}
}

func (a *analysis) Confluence(in []dataflow.Input, p *cfg.Peer, g *cfg.Graph) dataflow.Item {
	var s intsets.Sparse
	for _, i := range in {
		s.UnionWith(i.Item.(Item).live)
	}
	return Item{live: &s}
}

func (a *analysis) Flow(in *dataflow.FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]dataflow.Item, error) {
	item := in.Item.(Item)
	kill := func(v *term.Var) {
		if !a.captured.Has(v.ID) {
			item = item.update(func(s *intsets.Sparse) { s.Remove(v.ID) })
		}
	}
	switch t := p.Term.(type) {
	case *term.Local:
		item = item.update(func(s *intsets.Sparse) { s.Insert(t.Var.ID) })
	case *term.LocalDecl:
		kill(t.Var)
	case *term.Formal:
		kill(t.Var)
	case *term.Assign:
		if l, ok := t.Target.(*term.Local); ok {
			kill(l.Var)
		}
	case *term.Unary:
		if l, ok := t.X.(*term.Local); ok && (t.Op == "++" || t.Op == "--") {
			kill(l.Var)
		}
	}
	return dataflow.ItemToMap(item, keys), nil
}

func (a *analysis) Check(g *cfg.Graph, p *cfg.Peer, in dataflow.Item, out map[cfg.EdgeKey]dataflow.Item) error {
	return nil
}

// Result is the outcome of the analysis of one code unit.
type Result struct {
	Unit term.Term
	Dead []term.Stmt // In source order.

	res *dataflow.Result
}

// LiveAfter returns the IDs of the variables live after t.
func (r *Result) LiveAfter(t term.Term) *intsets.Sparse {
	var s intsets.Sparse
	for _, p := range r.res.Graph().PeersOf(t) {
		if in := r.res.In(p); in != nil {
			s.UnionWith(in.(Item).live)
		}
	}
	return &s
}

// Analyse finds the dead assignments of the code unit of the backward graph
// g.
func Analyse(g *cfg.Graph, logger *zap.SugaredLogger) (*Result, error) {
	if g.Forward() {
		return nil, errors.WithStack(ErrForwardGraph)
	}
	a := &analysis{captured: capturedLocals(g.Root())}
	res, err := dataflow.New(a, logger).Dataflow(g)
	if err != nil {
		return nil, err
	}
	r := &Result{Unit: g.Root(), res: res}
	parents := term.Parents(g.Root())
	term.Walk(g.Root(), func(t term.Term) bool {
		switch t := t.(type) {
		case *term.LocalDecl:
			if t.Init != nil && r.deadAfter(t, t.Var, t.Init) {
				r.Dead = append(r.Dead, t)
			}
		case *term.Assign:
			l, ok := t.Target.(*term.Local)
			if !ok || t.Op != "=" {
				break
			}
			if s, ok := parents[t].(*term.Eval); ok && r.deadAfter(t, l.Var, t.Value) {
				r.Dead = append(r.Dead, s)
			}
		}
		return true
	})
	slices.SortStableFunc(r.Dead, func(a, b term.Stmt) bool {
		pa, pb := a.Position(), b.Position()
		return pa.Line < pb.Line || pa.Line == pb.Line && pa.Col < pb.Col
	})
	return r, nil
}

// deadAfter returns true if v is not live after any reached copy of t and
// value has no side effects. Terms never reached are not reported.
func (r *Result) deadAfter(t term.Term, v *term.Var, value term.Expr) bool {
	if term.HasSideEffects(value) {
		return false
	}
	reached := false
	for _, p := range r.res.Graph().PeersOf(t) {
		in := r.res.In(p)
		if in == nil {
			continue
		}
		reached = true
		if in.(Item).live.Has(v.ID) {
			return false
		}
	}
	return reached
}

// capturedLocals returns the IDs of the locals read by classes declared in
// the code unit rooted at root.
func capturedLocals(root term.Term) *intsets.Sparse {
	var s intsets.Sparse
	var visit func(b *term.ClassBody)
	visit = func(b *term.ClassBody) {
		for _, m := range b.Members {
			if c, ok := m.(*term.ClassDecl); ok {
				visit(c.Body)
				continue
			}
			term.Walk(m, func(t term.Term) bool {
				if l, ok := t.(*term.Local); ok {
					s.Insert(l.Var.ID)
				}
				return true
			})
			for _, nested := range term.NestedClassBodies(m) {
				visit(nested)
			}
		}
	}
	for _, b := range term.NestedClassBodies(root) {
		visit(b)
	}
	return &s
}
