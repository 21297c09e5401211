// Package nullness reports dereferences of locals that can only be null.
//
// The fact maps locals to Null or NonNull; a local with no entry may be
// either. Comparisons with null refine the facts of their TRUE and FALSE
// edges, and boolean connectives combine the facts of their operands.
package nullness

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/store"
	"github.com/nickng/flowcheck/term"
)

const msgNullDeref = `Null pointer access: the variable "%s" can only be null at this location`

// State is what is known of a local.
type State int

const (
	Null State = iota + 1
	NonNull
)

func (s State) String() string {
	switch s {
	case Null:
		return "null"
	case NonNull:
		return "non-null"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Item is the nullness of the locals at a point.
type Item struct {
	vars *store.Store
}

func (i Item) Equal(o dataflow.Item) bool { return i.vars.Equal(o.(Item).vars) }

func (i Item) String() string { return i.vars.String() }

// State returns the state of v, or false if v may be either.
func (i Item) State(v *term.Var) (State, bool) {
	s, ok := i.vars.Get(v.Key())
	if !ok {
		return 0, false
	}
	return s.(State), true
}

func (i Item) with(v *term.Var, s State, known bool) Item {
	if !known {
		return Item{vars: i.vars.Without(v.Key())}
	}
	return Item{vars: i.vars.With(v.Key(), s)}
}

// join keeps what holds on both paths.
func join(a, b Item) Item {
	return Item{vars: store.Intersect(a.vars, b.vars, func(k store.Key, x, y store.Value) (store.Value, bool) {
		return x, x == y
	})}
}

// combine keeps what holds on either of two facts of the same path. Locals
// the facts disagree on may be either.
func combine(a, b dataflow.Item) dataflow.Item {
	vars := a.(Item).vars
	b.(Item).vars.Range(func(k store.Key, y store.Value) bool {
		if x, ok := vars.Get(k); ok && x != y {
			vars = vars.Without(k)
		} else if !ok {
			vars = vars.With(k, y)
		}
		return true
	})
	return Item{vars: vars}
}

type analysis struct {
	parents map[term.Term]term.Term
	nav     *dataflow.Navigator
}

func newAnalysis(root term.Term) *analysis {
	a := &analysis{parents: term.Parents(root)}
	a.nav = &dataflow.Navigator{Combine: combine, Handle: a.compare}
	return a
}

func (a *analysis) Forward() bool { return true }

func (a *analysis) CreateInitialItem(g *cfg.Graph, p *cfg.Peer) dataflow.Item {
	return Item{vars: store.New()}
}

func (a *analysis) Confluence(in []dataflow.Input, p *cfg.Peer, g *cfg.Graph) dataflow.Item {
	item := in[0].Item.(Item)
	for _, i := range in[1:] {
		item = join(item, i.Item.(Item))
	}
	return item
}

// valueOf returns the state of the value of e.
func valueOf(item Item, e term.Expr) (State, bool) {
	switch e := e.(type) {
	case *term.Lit:
		if e.Kind == term.NullLit {
			return Null, true
		}
		return NonNull, e.Kind == term.StringLit
	case *term.New:
		return NonNull, true
	case *term.Local:
		return item.State(e.Var)
	}
	return 0, false
}

// compare returns the facts of x == null and x != null.
func (a *analysis) compare(e term.Expr, start dataflow.Item) (dataflow.BoolItem, bool) {
	b, ok := e.(*term.Binary)
	if !ok || b.Op != "==" && b.Op != "!=" {
		return dataflow.BoolItem{}, false
	}
	l, ok := b.X.(*term.Local)
	other := b.Y
	if !ok {
		l, ok = b.Y.(*term.Local)
		other = b.X
	}
	if !ok {
		return dataflow.BoolItem{}, false
	}
	if lit, isLit := other.(*term.Lit); !isLit || lit.Kind != term.NullLit {
		return dataflow.BoolItem{}, false
	}
	item := start.(Item)
	isNull, notNull := item.with(l.Var, Null, true), item.with(l.Var, NonNull, true)
	if b.Op == "==" {
		return dataflow.BoolItem{True: isNull, False: notNull}, true
	}
	return dataflow.BoolItem{True: notNull, False: isNull}, true
}

// dereferenced returns the local whose value e dereferences, if any.
func dereferenced(e term.Term) *term.Local {
	switch e := e.(type) {
	case *term.Call:
		l, _ := e.Target.(*term.Local)
		return l
	case *term.Field:
		l, _ := e.Target.(*term.Local)
		return l
	}
	return nil
}

func (a *analysis) Flow(in *dataflow.FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]dataflow.Item, error) {
	if out, ok := dataflow.FlowBooleanConditions(in, p, keys); ok {
		e := p.Term.(term.Expr)
		if entry := in.EntryFact(e); entry != nil && !term.HasSideEffects(e) {
			b := a.nav.Navigate(e, entry)
			for k, item := range out {
				switch k {
				case cfg.KeyTrue:
					out[k] = combine(item, b.True)
				case cfg.KeyFalse:
					out[k] = combine(item, b.False)
				}
			}
		}
		return out, nil
	}
	item := in.Item.(Item)
	switch t := p.Term.(type) {
	case *term.Binary:
		if b, ok := a.compare(t, item); ok {
			return dataflow.ItemsToMap(b.True, b.False, item, keys), nil
		}
	case *term.LocalDecl:
		if t.Init == nil {
			break
		}
		s, known := valueOf(item, t.Init)
		item = item.with(t.Var, s, known)
	case *term.Assign:
		l, ok := t.Target.(*term.Local)
		if !ok {
			break
		}
		s, known := valueOf(item, t.Value)
		item = item.with(l.Var, s, known && t.Op == "=")
	case *term.Unary:
		if l, ok := t.X.(*term.Local); ok && (t.Op == "++" || t.Op == "--") {
			item = item.with(l.Var, 0, false)
		}
	case *term.Formal:
		item = item.with(t.Var, 0, false)
	case *term.Call, *term.Field:
		// A dereference that completes normally proves the target non-null.
		if l := dereferenced(t); l != nil {
			after := item.with(l.Var, NonNull, true)
			out := make(map[cfg.EdgeKey]dataflow.Item, len(keys))
			for _, k := range keys {
				out[k] = after
				if k.IsException() {
					out[k] = item
				}
			}
			return out, nil
		}
	}
	return dataflow.ItemToMap(item, keys), nil
}

func (a *analysis) Check(g *cfg.Graph, p *cfg.Peer, in dataflow.Item, out map[cfg.EdgeKey]dataflow.Item) error {
	l, ok := p.Term.(*term.Local)
	if !ok || in == nil || dereferenced(a.parents[l]) != l {
		return nil
	}
	if s, ok := in.(Item).State(l.Var); ok && s == Null {
		return report.Errorf(l.Position(), msgNullDeref, l.Var.Name)
	}
	return nil
}

// Checker reports dereferences of null locals.
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
	if _, err := dataflow.New(newAnalysis(root), c.logger).Run(g); err != nil {
		c.logger.Debugw("Nullness error", "unit", term.Describe(root), "error", err)
		c.q.Enqueue(report.At(root, err))
		return false
	}
	return true
}
