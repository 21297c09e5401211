package cfg

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nickng/flowcheck/term"
)

// Options controls how a Graph is built.
type Options struct {
	// ReplicateFinally gives each path leaving a try statement through its
	// finally block a separate copy of the block.
	ReplicateFinally bool

	// ExceptionEdgesToExit adds an exception edge to the exit for checked
	// exceptions no enclosing try statement catches.
	ExceptionEdgesToExit bool

	Logger *zap.SugaredLogger
}

// DefaultOptions returns the options used by the checkers.
func DefaultOptions() Options {
	return Options{ReplicateFinally: true}
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// Build lowers the code unit root into a control flow graph.
//
// A forward graph has edges in the direction of execution; a backward graph
// has every edge reversed. Build returns a *BuildError (wrapped) if a jump
// has no target.
func Build(root term.Term, h term.Hierarchy, forward bool, opts Options) (g *Graph, err error) {
	g = newGraph(root, forward, opts.ReplicateFinally)
	defer func() {
		if r := recover(); r != nil {
			be, ok := r.(*BuildError)
			if !ok {
				panic(r)
			}
			g, err = nil, errors.Wrapf(be, "cfg: build %s", term.Describe(root))
		}
	}()
	g.peer(term.Entry(root), 0)
	g.peer(root, 0)
	b := &builder{g: g, h: h, opts: opts}
	b.visitCFG(root)
	opts.logger().Debugw("Built flow graph",
		"unit", term.Describe(root), "forward", forward, "peers", g.Len())
	return g, nil
}

// builder is the state of a lowering pass at one enclosing compound term.
// Builders form a chain through outer, ending at the code unit.
type builder struct {
	g    *Graph
	h    term.Hierarchy
	opts Options

	outer     *builder
	innermost term.Term // Innermost enclosing try, loop, labeled or switch.

	path          int // Finally path of terms visited by this builder.
	innermostPath int // Finally path of innermost.

	// skipInnermostCatches is set while visiting catch clauses, so the
	// clauses of the same try do not catch what they throw.
	skipInnermostCatches bool
}

// succ is an edge target.
type succ struct {
	key EdgeKey
	t   term.Term
}

func to(t term.Term) succ      { return succ{key: KeyOther, t: t} }
func onTrue(t term.Term) succ  { return succ{key: KeyTrue, t: t} }
func onFalse(t term.Term) succ { return succ{key: KeyFalse, t: t} }

// boolSuccs returns TRUE and FALSE edges to t for boolean expressions and an
// OTHER edge otherwise.
func boolSuccs(e term.Expr, t term.Term) []succ {
	if term.IsBoolean(e) {
		return []succ{onTrue(t), onFalse(t)}
	}
	return []succ{to(t)}
}

func (b *builder) push(t term.Term) *builder {
	return &builder{
		g:             b.g,
		h:             b.h,
		opts:          b.opts,
		outer:         b,
		innermost:     t,
		path:          b.path,
		innermostPath: b.path,
	}
}

// enterFinally returns a copy of b for visiting a replica of a finally block
// reached from the term from on the given path.
func (b *builder) enterFinally(path int, from term.Term) *builder {
	v := *b
	if b.g.replicate {
		v.path = b.g.extendPath(path, from)
	}
	return &v
}

func (b *builder) edge(p term.Term, pPath int, q term.Term, qPath int, key EdgeKey) {
	b.g.addEdge(b.g.peer(p, pPath), b.g.peer(q, qPath), key)
}

// visitCFG lowers t and adds edges from its exit to each successor.
func (b *builder) visitCFG(t term.Term, succs ...succ) {
	b.g.peer(t, b.path)
	if jumps := b.acceptCFG(t); !jumps {
		for _, s := range succs {
			b.edge(t, b.path, s.t, b.path, s.key)
		}
	}
	for _, typ := range b.throwTypes(t) {
		b.visitThrow(t, typ)
	}
}

// visitList lowers ts in order. Each term flows to the entry of the next;
// the last flows to succs.
func (b *builder) visitList(ts []term.Term, succs ...succ) {
	for i, t := range ts {
		if i == len(ts)-1 {
			b.visitCFG(t, succs...)
			break
		}
		b.visitCFG(t, to(term.Entry(ts[i+1])))
	}
}

// acceptCFG adds the edges inside t, ending at t itself. It returns true
// if control never continues normally after t.
func (b *builder) acceptCFG(t term.Term) (jumps bool) {
	switch t := t.(type) {
	case *term.Block:
		b.visitList(stmts(t.Stmts), to(t))

	case *term.If:
		if t.Else != nil {
			b.visitCFG(t.Cond, onTrue(term.Entry(t.Then)), onFalse(term.Entry(t.Else)))
			b.visitCFG(t.Then, to(t))
			b.visitCFG(t.Else, to(t))
			break
		}
		b.visitCFG(t.Cond, onTrue(term.Entry(t.Then)), onFalse(t))
		b.visitCFG(t.Then, to(t))

	case *term.While:
		b.visitCFG(t.Cond, onTrue(term.Entry(t.Body)), onFalse(t))
		b.push(t).visitCFG(t.Body, to(term.Entry(t.Cond)))

	case *term.Do:
		b.push(t).visitCFG(t.Body, to(term.Entry(t.Cond)))
		b.visitCFG(t.Cond, onTrue(term.Entry(t.Body)), onFalse(t))

	case *term.For:
		next := term.Entry(t.Body)
		if t.Cond != nil {
			next = term.Entry(t.Cond)
		}
		b.visitList(stmts(t.Init), to(next))
		if t.Cond != nil {
			b.visitCFG(t.Cond, onTrue(term.Entry(t.Body)), onFalse(t))
		}
		b.push(t).visitCFG(t.Body, to(continueTarget(t)))
		b.visitList(stmts(t.Update), to(next))

	case *term.Labeled:
		b.push(t).visitCFG(t.Body, to(t))

	case *term.Switch:
		var cases []succ
		hasDefault := false
		for _, s := range t.Body {
			if c, ok := s.(*term.Case); ok {
				cases = append(cases, to(term.Entry(c)))
				if c.Value == nil {
					hasDefault = true
				}
			}
		}
		if !hasDefault {
			cases = append(cases, to(t))
		}
		b.visitCFG(t.Tag, cases...)
		b.push(t).visitList(stmts(t.Body), to(t))

	case *term.Break:
		b.visitBranchTarget(t, t.Label, true)
		return true

	case *term.Continue:
		b.visitBranchTarget(t, t.Label, false)
		return true

	case *term.Return:
		b.visitList(term.Sequence(t), to(t))
		b.visitReturn(t)
		return true

	case *term.Throw:
		b.visitList(term.Sequence(t), to(t))
		return true

	case *term.Try:
		next := term.Term(t)
		if t.Finally != nil {
			next = term.Entry(t.Finally)
		}
		b.push(t).visitCFG(t.Body, to(next))
		v := b.push(t)
		v.skipInnermostCatches = true
		for _, c := range t.Catches {
			v.visitCFG(c, to(next))
		}
		if t.Finally != nil {
			b.visitCFG(t.Finally, to(t))
		}

	case *term.Catch:
		b.visitCFG(t.Formal, to(term.Entry(t.Body)))
		b.visitCFG(t.Body, to(t))

	case *term.Binary:
		switch {
		case t.Op == "&&":
			b.visitCFG(t.X, onTrue(term.Entry(t.Y)), onFalse(t))
			b.visitCFG(t.Y, onTrue(t), onFalse(t))
		case t.Op == "||":
			b.visitCFG(t.X, onTrue(t), onFalse(term.Entry(t.Y)))
			b.visitCFG(t.Y, onTrue(t), onFalse(t))
		case term.IsConditional(t):
			b.visitCFG(t.X, onTrue(term.Entry(t.Y)), onFalse(term.Entry(t.Y)))
			b.visitCFG(t.Y, onTrue(t), onFalse(t))
		default:
			b.visitList(term.Sequence(t), to(t))
		}

	case *term.Unary:
		if term.IsConditional(t) {
			b.visitCFG(t.X, onTrue(t), onFalse(t))
			break
		}
		b.visitCFG(t.X, to(t))

	case *term.Conditional:
		b.visitCFG(t.Cond, onTrue(term.Entry(t.Then)), onFalse(term.Entry(t.Else)))
		b.visitCFG(t.Then, boolSuccs(t, t)...)
		b.visitCFG(t.Else, boolSuccs(t, t)...)

	case *term.Initializer:
		b.visitCFG(t.Body, to(t))

	case *term.MethodDecl:
		b.visitList(append(formals(t.Formals), t.Body), to(t))

	case *term.ConstructorDecl:
		b.visitList(append(formals(t.Formals), t.Body), to(t))

	default:
		// Simple terms evaluate their operands in order.
		b.visitList(term.Sequence(t), to(t))
	}
	return false
}

// throwTypes returns the exception types t may throw itself. Every simple
// statement may throw the unchecked error type.
func (b *builder) throwTypes(t term.Term) []*term.ClassType {
	var types []*term.ClassType
	switch t := t.(type) {
	case *term.Throw:
		types = append(types, t.Exception)
	case *term.Call:
		types = append(types, t.Throws...)
	case *term.New:
		types = append(types, t.Throws...)
	case *term.ConstructorCall:
		types = append(types, t.Throws...)
	}
	if _, ok := t.(term.Stmt); ok && !term.IsCompound(t) {
		if err := b.h.Error(); err != nil {
			types = append(types, err)
		}
	}
	return types
}

// visitThrow adds the edges taken when t throws typ: to every catch clause
// that may catch it, through the finally blocks on the way out, and stops at
// the first catch clause that definitely catches it.
func (b *builder) visitThrow(t term.Term, typ *term.ClassType) {
	last, lastV := t, b
	for v := b; v != nil; v = v.outer {
		try, ok := v.innermost.(*term.Try)
		if !ok {
			continue
		}
		if !v.skipInnermostCatches {
			for _, c := range try.Catches {
				if b.h.IsSubtype(typ, c.Type) {
					b.edge(last, lastV.path, term.Entry(c), v.innermostPath, ExceptionKey(typ))
					return
				}
				if b.h.IsCastable(c.Type, typ) {
					b.edge(last, lastV.path, term.Entry(c), v.innermostPath, ExceptionKey(c.Type))
				}
			}
		}
		if try.Finally != nil {
			lastV = b.tryFinally(v, last, lastV, try.Finally, ExceptionKey(typ))
			last = try.Finally
		}
	}
	// Uncaught exceptions leave the unit without an edge.
	if b.opts.ExceptionEdgesToExit && !b.h.IsSubtype(typ, b.h.Error()) {
		b.edge(last, lastV.path, b.g.root, 0, ExceptionKey(typ))
	}
}

// tryFinally routes control from last through the finally block fin of the
// try statement innermost to v. It returns the builder of the finally
// block, whose path the caller continues from.
func (b *builder) tryFinally(v *builder, last term.Term, lastV *builder, fin *term.Block, key EdgeKey) *builder {
	fv := v.outer.enterFinally(lastV.path, last)
	b.edge(last, lastV.path, term.Entry(fin), fv.path, key)
	if b.g.replicate {
		fv.visitCFG(fin)
	}
	return fv
}

// visitReturn routes a return through every enclosing finally block to the
// exit.
func (b *builder) visitReturn(t *term.Return) {
	last, lastV := term.Term(t), b
	for v := b; v != nil; v = v.outer {
		if try, ok := v.innermost.(*term.Try); ok && try.Finally != nil {
			lastV = b.tryFinally(v, last, lastV, try.Finally, KeyOther)
			last = try.Finally
		}
	}
	b.edge(last, lastV.path, b.g.root, 0, KeyOther)
}

// visitBranchTarget routes a break or continue through the enclosing
// finally blocks to its target.
func (b *builder) visitBranchTarget(t term.Stmt, label string, isBreak bool) {
	last, lastV := term.Term(t), b
	for v := b; v != nil; v = v.outer {
		switch c := v.innermost.(type) {
		case *term.Try:
			if c.Finally != nil {
				lastV = b.tryFinally(v, last, lastV, c.Finally, KeyOther)
				last = c.Finally
			}

		case *term.Labeled:
			if label == "" || c.Label != label {
				continue
			}
			if isBreak {
				b.edge(last, lastV.path, c, v.innermostPath, KeyOther)
				return
			}
			if !term.IsLoop(c.Body) {
				panic(&BuildError{Pos: t.Position(), Term: t, Err: ErrContinueNonLoop})
			}
			b.edge(last, lastV.path, continueTarget(c.Body), v.innermostPath, KeyOther)
			return

		case *term.While, *term.Do, *term.For:
			if label != "" {
				continue
			}
			target := continueTarget(c)
			if isBreak {
				target = c
			}
			b.edge(last, lastV.path, target, v.innermostPath, KeyOther)
			return

		case *term.Switch:
			if label == "" && isBreak {
				b.edge(last, lastV.path, c, v.innermostPath, KeyOther)
				return
			}
		}
	}
	panic(&BuildError{Pos: t.Position(), Term: t, Err: ErrNoTarget})
}

// continueTarget returns the term a continue of loop jumps to.
func continueTarget(loop term.Term) term.Term {
	switch loop := loop.(type) {
	case *term.While:
		return term.Entry(loop.Cond)
	case *term.Do:
		return term.Entry(loop.Cond)
	case *term.For:
		if len(loop.Update) > 0 {
			return term.Entry(loop.Update[0])
		}
		if loop.Cond != nil {
			return term.Entry(loop.Cond)
		}
		return term.Entry(loop.Body)
	}
	return loop
}

func stmts(ss []term.Stmt) []term.Term {
	ts := make([]term.Term, 0, len(ss))
	for _, s := range ss {
		ts = append(ts, s)
	}
	return ts
}

func formals(fs []*term.Formal) []term.Term {
	ts := make([]term.Term, 0, len(fs)+1)
	for _, f := range fs {
		ts = append(ts, f)
	}
	return ts
}
