package definite

import (
	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/store"
	"github.com/nickng/flowcheck/term"
)

const (
	msgLocal         = `Local variable "%s" may not have been initialized`
	msgLocalCaptured = `Local variable "%s" must be initialized before the class declaration.`
	msgFinalLocal    = `Final variable "%s" might already have been initialized`
	msgField         = `Final field "%s" might not have been initialized`
	msgFinalField    = `Final field "%s" might already have been initialized`
)

// unit is the definite assignment analysis of one code unit.
type unit struct {
	st   *classState
	root term.Term

	init   *store.Store       // Tracked fields at the start of the unit.
	fields map[*term.Var]bool // Tracked fields.

	// Locals of this class used by each local or anonymous class declared
	// in the unit, keyed by the declaring term.
	captured map[term.Term][]*term.Var
}

func newUnit(st *classState, root term.Term) *unit {
	u := &unit{
		st:       st,
		root:     root,
		init:     st.fieldsFor(root),
		fields:   make(map[*term.Var]bool),
		captured: make(map[term.Term][]*term.Var),
	}
	for _, k := range u.init.Keys() {
		u.fields[k.(term.VarKey).Var] = true
	}
	return u
}

// initializes returns true for units whose abnormal termination is
// discarded at the exit: field initializers, initializers and
// constructors.
func (u *unit) initializes() bool {
	switch u.root.(type) {
	case *term.FieldDecl, *term.Initializer, *term.ConstructorDecl:
		return true
	}
	return false
}

// abnormalItem is the fact at the exit of a unit that cannot terminate
// normally.
func (u *unit) abnormalItem() Item { return newItem(u.init, false) }

func (u *unit) Forward() bool { return true }

func (u *unit) CreateInitialItem(g *cfg.Graph, p *cfg.Peer) dataflow.Item {
	return newItem(u.init, true)
}

func (u *unit) Confluence(in []dataflow.Input, p *cfg.Peer, g *cfg.Graph) dataflow.Item {
	if p.Term == g.Root() && u.initializes() {
		return u.exitItem(in)
	}
	return joinInputs(in)
}

// exitItem joins the inputs of the exit of an initializing unit that do not
// come from exception edges.
func (u *unit) exitItem(in []dataflow.Input) Item {
	var normal []dataflow.Input
	for _, i := range in {
		if !i.Key.IsException() {
			normal = append(normal, i)
		}
	}
	if len(normal) == 0 {
		return u.abnormalItem()
	}
	return joinInputs(normal)
}

func (u *unit) DeadItem(g *cfg.Graph, p *cfg.Peer) (dataflow.Item, bool) {
	return deadItem(), true
}

func (u *unit) Flow(in *dataflow.FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]dataflow.Item, error) {
	if m, ok := dataflow.FlowBooleanConditions(in, p, keys); ok {
		return m, nil
	}
	item := in.Item.(Item)
	if p.Term == g.Root() && u.initializes() && len(in.Keyed) > 0 {
		item = u.exitItem(in.Keyed)
	}
	switch t := p.Term.(type) {
	case *term.Formal:
		item = item.with(t.Var, Assigned)

	case *term.LocalDecl:
		if t.Init != nil {
			item = item.with(t.Var, Assigned)
		} else {
			item = item.with(t.Var, Unassigned)
		}

	case *term.Assign:
		if v := u.assigned(t.Target); v != nil {
			item = item.with(v, Assigned)
		}

	case *term.Unary:
		if t.Op == "++" || t.Op == "--" {
			if v := u.assigned(t.X); v != nil {
				item = item.with(v, Assigned)
			}
		}

	case *term.ConstructorCall:
		// The called constructor initialises every final field.
		if t.Kind == term.ThisCall {
			for v := range u.fields {
				item = item.with(v, Assigned)
			}
		}

	case *term.FieldDecl:
		if u.fields[t.Var] {
			item = item.with(t.Var, Assigned)
		}
	}
	return dataflow.ItemToMap(item, keys), nil
}

// assigned returns the tracked variable written by an assignment to e, or
// nil.
func (u *unit) assigned(e term.Expr) *term.Var {
	switch e := e.(type) {
	case *term.Local:
		if u.st.locals[e.Var] {
			return e.Var
		}
	case *term.Field:
		if u.fields[e.Var] && u.st.owns(e) {
			return e.Var
		}
	}
	return nil
}

func (u *unit) Check(g *cfg.Graph, p *cfg.Peer, in dataflow.Item, out map[cfg.EdgeKey]dataflow.Item) error {
	// Peers the fixpoint never reached are dead.
	item := deadItem()
	if in != nil {
		item = in.(Item)
	}
	switch t := p.Term.(type) {
	case *term.Local:
		if !u.st.locals[t.Var] {
			return nil
		}
		if s, _ := item.Status(t.Var); !s.DA() {
			return report.Errorf(t.Position(), msgLocal, t.Var.Name)
		}

	case *term.Field:
		if !u.fields[t.Var] || !u.st.owns(t) || t.Var.Static != term.IsStaticUnit(u.root) {
			return nil
		}
		if s, _ := item.Status(t.Var); !s.DA() {
			return report.Errorf(t.Position(), msgField, t.Var.Name)
		}

	case *term.Assign:
		return u.checkWrite(t, t.Target, item)

	case *term.Unary:
		if t.Op == "++" || t.Op == "--" {
			return u.checkWrite(t, t.X, item)
		}

	case *term.LocalClassDecl, *term.New:
		for _, v := range u.captured[t] {
			if !u.st.locals[v] {
				continue
			}
			if s, _ := item.Status(v); !s.DA() {
				return report.Errorf(t.Position(), msgLocalCaptured, v.Name)
			}
		}
	}
	return nil
}

// checkWrite checks that a final variable written by t was not assigned
// before.
func (u *unit) checkWrite(t term.Term, target term.Expr, item Item) error {
	v := u.assigned(target)
	if v == nil || !v.Final {
		return nil
	}
	if s, _ := item.Status(v); s.DU() {
		return nil
	}
	if v.IsLocal() {
		return report.Errorf(t.Position(), msgFinalLocal, v.Name)
	}
	return report.Errorf(t.Position(), msgFinalField, v.Name)
}

// exit returns the fact at the exit of the unit.
func (u *unit) exit(g *cfg.Graph, res *dataflow.Result) Item {
	p := g.FinishPeer()
	if !res.Reached(p) {
		return u.abnormalItem()
	}
	return res.Out(p)[cfg.KeyOther].(Item)
}
