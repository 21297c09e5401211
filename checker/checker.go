// Package checker runs the flow analyses over compilation units.
//
// A Checker builds the flow graph of every code unit once per direction and
// runs the enabled analyses over it. Semantic errors go to a report.Queue;
// the first error of a unit stops that analysis of the unit only.
package checker

import (
	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/copyprop"
	"github.com/nickng/flowcheck/deadcode"
	"github.com/nickng/flowcheck/definite"
	"github.com/nickng/flowcheck/nullness"
	"github.com/nickng/flowcheck/reach"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term"
)

// Result summarises a check.
type Result struct {
	Units  int // Code units checked.
	Errors int // Errors reported.

	Dead  []*deadcode.Result // Units with dead assignments.
	Subst []*copyprop.Result // Units with copy substitutions.
}

// Add adds the counts and reports of o to r.
func (r *Result) Add(o *Result) {
	r.Units += o.Units
	r.Errors += o.Errors
	r.Dead = append(r.Dead, o.Dead...)
	r.Subst = append(r.Subst, o.Subst...)
}

// counter counts the errors passing through to a queue. An error already
// reported by another analysis is dropped.
type counter struct {
	q    report.Queue
	n    int
	seen map[report.Error]bool
}

func (c *counter) Enqueue(err *report.Error) {
	if c.seen[*err] {
		return
	}
	c.seen[*err] = true
	c.n++
	c.q.Enqueue(err)
}

// Checker is the main entry point of the analyses.
type Checker struct {
	conf   *Config
	graphs *cfg.Cache
	errs   *counter
	*Logger
}

// New returns a checker for programs over the class hierarchy h, reporting
// errors to q. A nil conf is the default configuration.
func New(conf *Config, h term.Hierarchy, q report.Queue) *Checker {
	if conf == nil {
		conf = NewConfig()
		conf.Default()
	}
	logger := newLogger(conf.log)
	if len(conf.logFiles) > 0 {
		logger = newFileLogger(conf.logFiles...)
	}
	opts := conf.Options()
	opts.Logger = logger.For("cfg").Named()
	return &Checker{
		conf:   conf,
		graphs: cfg.NewCache(h, opts),
		errs:   &counter{q: q, seen: make(map[report.Error]bool)},
		Logger: logger,
	}
}

// Graphs returns the graphs built so far.
func (c *Checker) Graphs() cfg.Source { return c.graphs }

// CheckFile checks every class of f.
func (c *Checker) CheckFile(f *term.File) *Result {
	// Sync error ignored. See https://github.com/uber-go/zap/issues/328
	defer c.Logger.Sync()

	res := &Result{}
	before := c.errs.n
	if c.conf.Enabled(Definite) {
		definite.New(c.graphs, c.errs, c.For(Definite).Named()).CheckFile(f)
	}
	for _, unit := range Units(f) {
		c.checkUnit(unit, res)
	}
	res.Errors = c.errs.n - before
	c.Infof("%s Checked %s: %d units, %d errors", c.Module(), f.Name, res.Units, res.Errors)
	return res
}

// CheckExpr checks the standalone expression e.
func (c *Checker) CheckExpr(e term.Expr) *Result {
	defer c.Logger.Sync()

	res := &Result{}
	before := c.errs.n
	if c.conf.Enabled(Definite) {
		definite.New(c.graphs, c.errs, c.For(Definite).Named()).CheckExpr(e)
	}
	c.checkUnit(e, res)
	res.Errors = c.errs.n - before
	return res
}

// checkUnit runs the per-unit analyses other than definite assignment,
// which follows the class structure itself.
func (c *Checker) checkUnit(root term.Term, res *Result) {
	res.Units++
	l := c.For("checker")
	l.Debugf("%s Unit %s", l.Module(), term.Describe(root))

	if c.conf.Enabled(Reach) {
		reach.New(c.graphs, c.errs, c.For(Reach).Named()).CheckUnit(root)
	}
	if c.conf.Enabled(Nullness) {
		nullness.New(c.graphs, c.errs, c.For(Nullness).Named()).CheckUnit(root)
	}
	if c.conf.Enabled(DeadCode) {
		if r := c.deadCode(root); r != nil && len(r.Dead) > 0 {
			res.Dead = append(res.Dead, r)
		}
	}
	if c.conf.Enabled(CopyProp) {
		if r := c.copyProp(root); r != nil && len(r.Subst) > 0 {
			res.Subst = append(res.Subst, r)
		}
	}
}

func (c *Checker) deadCode(root term.Term) *deadcode.Result {
	l := c.For(DeadCode)
	g, err := c.graphs.Graph(root, false)
	if err != nil {
		c.errs.Enqueue(report.At(root, err))
		return nil
	}
	r, err := deadcode.Analyse(g, l.Named())
	if err != nil {
		l.Warnf("%s Cannot analyse %s: %v", l.Module(), term.Describe(root), err)
		return nil
	}
	return r
}

func (c *Checker) copyProp(root term.Term) *copyprop.Result {
	l := c.For(CopyProp)
	g, err := c.graphs.Graph(root, true)
	if err != nil {
		c.errs.Enqueue(report.At(root, err))
		return nil
	}
	r, err := copyprop.Analyse(g, l.Named())
	if err != nil {
		l.Warnf("%s Cannot analyse %s: %v", l.Module(), term.Describe(root), err)
		return nil
	}
	return r
}

// Units returns the code units of f: field initializers, initializers,
// methods and constructors of every class body, outer bodies first.
func Units(f *term.File) []term.Term {
	var units []term.Term
	term.ClassBodies(f, func(b *term.ClassBody) {
		for _, m := range b.Members {
			if term.IsCodeUnit(m) {
				units = append(units, m)
			}
		}
	})
	return units
}
