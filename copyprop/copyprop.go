// Package copyprop finds reads of locals that may be replaced by a read of
// the variable they were copied from.
//
// The fact at each point partitions the locals of a code unit into trees of
// variables known to hold the same value. After x = y, x joins the tree of
// y; any other write to x removes it from its tree. Paths meet by
// intersecting the trees.
package copyprop

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/term"
)

// Item is a flat forest over the locals of a unit.
type Item struct {
	roots forest
}

func (i Item) Equal(o dataflow.Item) bool { return slices.Equal(i.roots, o.(Item).roots) }

type analysis struct {
	vars  []*term.Var
	index map[*term.Var]int
}

func newAnalysis(root term.Term) *analysis {
	a := &analysis{vars: term.DeclaredVars(root), index: make(map[*term.Var]int)}
	for i, v := range a.vars {
		a.index[v] = i
	}
	return a
}

func (a *analysis) String() string {
	var b strings.Builder
	for i, v := range a.vars {
		fmt.Fprintf(&b, "%d:%s ", i, v.Name)
	}
	return strings.TrimSpace(b.String())
}

func (a *analysis) Forward() bool { return true }

func (a *analysis) CreateInitialItem(g *cfg.Graph, p *cfg.Peer) dataflow.Item {
	return Item{roots: newForest(len(a.vars))}
}

func (a *analysis) Confluence(in []dataflow.Input, p *cfg.Peer, g *cfg.Graph) dataflow.Item {
	roots := in[0].Item.(Item).roots
	for _, i := range in[1:] {
		roots = meet(roots, i.Item.(Item).roots)
	}
	return Item{roots: roots}
}

func (a *analysis) Flow(in *dataflow.FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]dataflow.Item, error) {
	before := in.Item.(Item)
	after := before
	kill := func(v *term.Var) {
		if i, ok := a.index[v]; ok {
			after = Item{roots: after.roots.kill(i)}
		}
	}
	switch t := p.Term.(type) {
	case *term.LocalDecl:
		kill(t.Var)
		if src, ok := t.Init.(*term.Local); ok {
			after = a.copy(after, t.Var, src.Var)
		}
	case *term.Formal:
		kill(t.Var)
	case *term.Assign:
		l, ok := t.Target.(*term.Local)
		if !ok {
			break
		}
		kill(l.Var)
		if src, ok := t.Value.(*term.Local); ok && t.Op == "=" {
			after = a.copy(after, l.Var, src.Var)
		}
	case *term.Unary:
		if l, ok := t.X.(*term.Local); ok && (t.Op == "++" || t.Op == "--") {
			kill(l.Var)
		}
	}
	out := make(map[cfg.EdgeKey]dataflow.Item, len(keys))
	for _, k := range keys {
		if k.IsException() {
			// The write may not have happened.
			out[k] = Item{roots: meet(before.roots, after.roots)}
			continue
		}
		out[k] = after
	}
	return out, nil
}

func (a *analysis) copy(i Item, dst, src *term.Var) Item {
	d, ok := a.index[dst]
	s, ok2 := a.index[src]
	if !ok || !ok2 {
		return i
	}
	return Item{roots: i.roots.copy(d, s)}
}

func (a *analysis) Check(g *cfg.Graph, p *cfg.Peer, in dataflow.Item, out map[cfg.EdgeKey]dataflow.Item) error {
	return nil
}

// Substitution replaces the read Use by a read of Var.
type Substitution struct {
	Use *term.Local
	Var *term.Var
}

func (s Substitution) String() string {
	return fmt.Sprintf("%s: %s -> %s", s.Use.Position(), s.Use.Var.Name, s.Var.Name)
}

// Result is the outcome of the analysis of one code unit.
type Result struct {
	Unit  term.Term
	Subst map[*term.Local]*term.Var
}

// Substitutions returns the substitutions in source order.
func (r *Result) Substitutions() []Substitution {
	var subst []Substitution
	for use, v := range r.Subst {
		subst = append(subst, Substitution{Use: use, Var: v})
	}
	slices.SortFunc(subst, func(a, b Substitution) bool {
		pa, pb := a.Use.Position(), b.Use.Position()
		return pa.Line < pb.Line || pa.Line == pb.Line && pa.Col < pb.Col
	})
	return subst
}

// Analyse computes the substitutions of the code unit of the forward graph
// g.
func Analyse(g *cfg.Graph, logger *zap.SugaredLogger) (*Result, error) {
	a := newAnalysis(g.Root())
	if logger != nil {
		logger.Debugw("Copy propagation", "unit", term.Describe(g.Root()), "vars", a.String())
	}
	res, err := dataflow.New(a, logger).Dataflow(g)
	if err != nil {
		return nil, err
	}
	r := &Result{Unit: g.Root(), Subst: make(map[*term.Local]*term.Var)}
	scopes := newScopes(g.Root())
	term.Walk(g.Root(), func(t term.Term) bool {
		l, ok := t.(*term.Local)
		if !ok {
			return true
		}
		if scopes.written(l) {
			return true
		}
		if v := a.representative(res, l); v != nil && scopes.visible(v, l) {
			r.Subst[l] = v
		}
		return true
	})
	return r, nil
}

// representative returns the root of the tree of the variable read by l,
// if it is the same at every reached copy of l and is not the variable
// itself.
func (a *analysis) representative(res *dataflow.Result, l *term.Local) *term.Var {
	i, ok := a.index[l.Var]
	if !ok {
		return nil
	}
	root := -1
	for _, p := range res.Graph().PeersOf(l) {
		in := res.In(p)
		if in == nil {
			continue
		}
		r := in.(Item).roots[i]
		if root >= 0 && r != root {
			return nil
		}
		root = r
	}
	if root < 0 || root == i {
		return nil
	}
	return a.vars[root]
}

// scopes records the term declaring each variable in its scope.
type scopes struct {
	parents map[term.Term]term.Term
	owner   map[*term.Var]term.Term
}

func newScopes(root term.Term) *scopes {
	s := &scopes{parents: term.Parents(root), owner: make(map[*term.Var]term.Term)}
	term.Walk(root, func(t term.Term) bool {
		switch t := t.(type) {
		case *term.LocalDecl:
			s.owner[t.Var] = s.parents[t]
		case *term.Formal:
			s.owner[t.Var] = s.parents[t]
		}
		return true
	})
	return s
}

// written returns true if l is the target of a compound assignment or an
// increment.
func (s *scopes) written(l *term.Local) bool {
	switch p := s.parents[l].(type) {
	case *term.Assign:
		return p.Target == l
	case *term.Unary:
		return p.Op == "++" || p.Op == "--"
	}
	return false
}

// visible returns true if v is in scope at t.
func (s *scopes) visible(v *term.Var, t term.Term) bool {
	owner, ok := s.owner[v]
	if !ok {
		return false
	}
	for p, ok := s.parents[t]; ok; p, ok = s.parents[p] {
		if p == owner {
			return true
		}
	}
	return false
}
