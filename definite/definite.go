// Package definite checks definite assignment of locals and final fields.
//
// Every code unit of a class is analysed with the dataflow engine over its
// forward flow graph. The state of final fields is carried across field
// initializers and initializers in declaration order, static ones first;
// constructors are analysed after every other member, starting from that
// state, and the fields each constructor initialises are checked once all
// constructors are known.
package definite

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term"
)

// Checker checks definite assignment and reports errors to a queue.
type Checker struct {
	graphs cfg.Source
	q      report.Queue
	logger *zap.SugaredLogger

	Units  int // Number of code units analysed.
	Errors int // Number of errors reported.
}

// New returns a checker building graphs from graphs. A nil logger discards
// logs.
func New(graphs cfg.Source, q report.Queue, logger *zap.SugaredLogger) *Checker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Checker{graphs: graphs, q: q, logger: logger}
}

// CheckFile checks every class of f.
func (c *Checker) CheckFile(f *term.File) {
	for _, decl := range f.Classes {
		c.CheckClass(decl)
	}
}

// CheckClass checks a top-level class and the classes nested in it.
func (c *Checker) CheckClass(decl *term.ClassDecl) {
	c.checkBody(nil, decl.Body)
}

// CheckExpr checks a standalone expression.
func (c *Checker) CheckExpr(e term.Expr) {
	st := newClassState(nil, nil)
	st.declare(term.DeclaredVars(e))
	c.checkUnit(st, e)
}

func (c *Checker) report(t term.Term, err error) {
	e := report.At(t, err)
	c.Errors++
	c.logger.Debugw("Definite assignment error", "pos", e.Pos.String(), "msg", e.Msg)
	c.q.Enqueue(e)
}

// checkBody checks the class body and returns the locals of enclosing
// scopes it uses.
func (c *Checker) checkBody(parent *classState, body *term.ClassBody) []*term.Var {
	st := newClassState(parent, body)
	c.logger.Debugw("Enter class body", "class", body.Type.Name, "depth", st.depth())
	// Static code runs once before any instance code.
	for _, m := range body.Members {
		if staticInit(m) {
			c.checkMember(st, m)
		}
	}
	for _, m := range body.Members {
		switch m := m.(type) {
		case *term.ClassDecl:
			st.useOuter(c.checkBody(st, m.Body))
		case *term.ConstructorDecl:
			st.ctors = append(st.ctors, m)
		default:
			if !staticInit(m) {
				c.checkMember(st, m)
			}
		}
	}
	for _, ctor := range st.ctors {
		c.checkUnit(st, ctor)
	}
	c.checkClass(st)
	c.logger.Debugw("Leave class body", "class", body.Type.Name, "outerUsed", len(st.outerUsed))
	return st.outerUsed
}

// staticInit returns true for static fields and static initializers.
func staticInit(m term.Member) bool {
	switch m.(type) {
	case *term.FieldDecl, *term.Initializer:
		return term.IsStaticUnit(m)
	}
	return false
}

// checkMember seeds a final field and analyses m if it is a code unit.
func (c *Checker) checkMember(st *classState, m term.Member) {
	if f, ok := m.(*term.FieldDecl); ok && f.Var.Final {
		st.seed(f.Var)
	}
	if term.IsCodeUnit(m) {
		c.checkUnit(st, m)
	}
}

// checkUnit analyses one code unit and updates the class state from the
// fact at its exit.
func (c *Checker) checkUnit(st *classState, root term.Term) {
	c.Units++
	u := newUnit(st, root)
	for _, n := range nestedClasses(root) {
		used := c.checkBody(st, n.body)
		u.captured[n.at] = used
		st.useOuter(used)
	}
	st.useOuter(localsRead(root))

	g, err := c.graphs.Graph(root, true)
	if err != nil {
		if ctor, ok := root.(*term.ConstructorDecl); ok {
			// Not analysed: do not report its fields.
			st.abnormal[ctor] = true
		}
		c.report(root, err)
		return
	}
	e := dataflow.New(u, c.logger)
	res, err := e.Dataflow(g)
	if err != nil {
		c.report(root, err)
		return
	}
	exit := u.exit(g, res)
	switch root := root.(type) {
	case *term.FieldDecl, *term.Initializer:
		st.update(root, u.fields, exit)
	case *term.ConstructorDecl:
		for _, v := range st.finalFields() {
			if v.Static || !u.fields[v] {
				continue
			}
			before, _ := u.init.Get(v.Key())
			if after, _ := exit.Status(v); !before.(Status).DA() && after.DA() {
				st.assignedBy[root] = append(st.assignedBy[root], v)
			}
		}
		st.abnormal[root] = !exit.Normal()
		c.logger.Debugw("Constructor analysed",
			"ctor", term.Describe(root), "initialises", len(st.assignedBy[root]), "abnormal", st.abnormal[root])
	}
	if err := e.Check(g, res); err != nil {
		c.report(root, err)
	}
}

// checkClass checks that every final field is initialised once: static
// fields by the static initializers, instance fields by the initializers
// or by every constructor.
func (c *Checker) checkClass(st *classState) {
	for _, v := range st.finalFields() {
		s := st.status(v)
		if v.Static {
			if !s.DA() {
				c.report(st.body, report.Errorf(v.Pos, msgField, v.Name))
			}
			continue
		}
		if len(st.ctors) == 0 && !s.DA() {
			// The default constructor initialises nothing.
			c.report(st.body, report.Errorf(st.body.Position(), msgField, v.Name))
			continue
		}
		for _, ctor := range st.ctors {
			// Constructors that cannot terminate normally need not
			// initialise anything.
			if !s.DA() && !st.abnormal[ctor] && !slices.Contains(st.assignedBy[ctor], v) {
				c.report(ctor, report.Errorf(ctor.Position(), msgField, v.Name))
			}
		}
	}
}

type nestedClass struct {
	at   term.Term // LocalClassDecl or New.
	body *term.ClassBody
}

// nestedClasses returns the local and anonymous classes declared in the
// code unit rooted at t.
func nestedClasses(t term.Term) []nestedClass {
	var nested []nestedClass
	term.Walk(t, func(t term.Term) bool {
		switch t := t.(type) {
		case *term.LocalClassDecl:
			nested = append(nested, nestedClass{at: t, body: t.Decl.Body})
		case *term.New:
			if t.Body != nil {
				nested = append(nested, nestedClass{at: t, body: t.Body})
			}
		}
		return true
	})
	return nested
}

// localsRead returns the locals referred to in the code unit rooted at t.
func localsRead(t term.Term) []*term.Var {
	var vars []*term.Var
	term.Walk(t, func(t term.Term) bool {
		if l, ok := t.(*term.Local); ok {
			vars = append(vars, l.Var)
		}
		return true
	})
	return vars
}
