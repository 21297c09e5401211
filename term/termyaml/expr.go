package termyaml

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nickng/flowcheck/term"
)

// binaryOps maps the keys of binary expressions to their operators.
var binaryOps = map[string]string{
	"and":  "&&",
	"or":   "||",
	"band": "&",
	"bor":  "|",
	"xor":  "^",
	"eq":   "==",
	"ne":   "!=",
	"lt":   "<",
	"le":   "<=",
	"gt":   ">",
	"ge":   ">=",
	"add":  "+",
	"sub":  "-",
	"mul":  "*",
	"div":  "/",
}

func (d *decoder) exprs(n *yaml.Node) ([]term.Expr, error) {
	var es []term.Expr
	for _, en := range d.items(n) {
		e, err := d.expr(en)
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	return es, nil
}

func (d *decoder) expr(n *yaml.Node) (term.Expr, error) {
	if n == nil {
		return nil, errors.New("missing expression")
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalar(n)
	case yaml.MappingNode:
	default:
		return nil, d.errorf(n, "expecting an expression")
	}
	m, keys, err := d.fieldsOf(n)
	if err != nil {
		return nil, err
	}
	pos := d.pos(n)
	key := keys[0]
	if op, ok := binaryOps[key]; ok {
		operands, err := d.exprs(m[key])
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			return nil, d.errorf(n, "%s needs two operands", key)
		}
		e := &term.Binary{Op: op, X: operands[0], Y: operands[1]}
		e.Pos = pos
		return e, nil
	}
	switch key {
	case "not", "neg":
		x, err := d.expr(m[key])
		if err != nil {
			return nil, err
		}
		e := &term.Unary{Op: "!", X: x}
		if key == "neg" {
			e.Op = "-"
		}
		e.Pos = pos
		return e, nil

	case "inc", "dec":
		x, err := d.name(m[key])
		if err != nil {
			return nil, err
		}
		e := &term.Unary{Op: "++", X: x, Postfix: true}
		if key == "dec" {
			e.Op = "--"
		}
		e.Pos = pos
		return e, nil

	case "assign":
		target, err := d.name(m["assign"])
		if err != nil {
			return nil, err
		}
		value, err := d.expr(m["value"])
		if err != nil {
			return nil, err
		}
		op := str(m, "op")
		if op == "" {
			op = "="
		}
		e := &term.Assign{Target: target, Op: op, Value: value}
		e.Pos = pos
		return e, nil

	case "cond":
		operands, err := d.exprs(m["cond"])
		if err != nil {
			return nil, err
		}
		if len(operands) != 3 {
			return nil, d.errorf(n, "cond needs three operands")
		}
		e := &term.Conditional{Cond: operands[0], Then: operands[1], Else: operands[2]}
		e.Pos = pos
		return e, nil

	case "call":
		return d.call(n, m)

	case "new":
		return d.newExpr(n, m)

	case "field":
		target, err := d.expr(m["of"])
		if err != nil {
			return nil, err
		}
		return d.selectField(n, target, str(m, "field"))

	case "str":
		e := &term.Lit{Kind: term.StringLit, Value: str(m, "str")}
		e.Pos = pos
		return e, nil
	}
	return nil, d.errorf(n, "unknown expression kind %q", key)
}

func (d *decoder) scalar(n *yaml.Node) (term.Expr, error) {
	pos := d.pos(n)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		e := &term.Lit{Kind: term.StringLit, Value: n.Value}
		e.Pos = pos
		return e, nil
	}
	switch n.ShortTag() {
	case "!!bool":
		e := &term.BoolLit{Value: n.Value == "true"}
		e.Pos = pos
		return e, nil
	case "!!null":
		e := &term.Lit{Kind: term.NullLit}
		e.Pos = pos
		return e, nil
	case "!!int", "!!float":
		e := &term.Lit{Kind: term.IntLit, Value: n.Value}
		e.Pos = pos
		return e, nil
	}
	return d.name(n)
}

// name resolves a name or dotted access.
func (d *decoder) name(n *yaml.Node) (term.Expr, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		if n != nil && n.Kind == yaml.MappingNode {
			return d.expr(n)
		}
		return nil, errors.New("expecting a name")
	}
	parts := strings.Split(n.Value, ".")
	pos := d.pos(n)
	var e term.Expr
	switch first := parts[0]; {
	case first == "this":
		this := &term.This{Class: d.currentClass()}
		this.Pos = pos
		e = this
	case len(parts) > 1 && d.isClassName(first):
		c, _ := d.ts.Lookup(first)
		if parts[1] == "this" {
			this := &term.This{Class: c, Qualified: true}
			this.Pos = pos
			e = this
			parts = parts[1:]
		} else {
			ref := &term.TypeRef{Class: c}
			ref.Pos = pos
			e = ref
		}
	default:
		v, err := d.resolve(n, first)
		if err != nil {
			return nil, err
		}
		e = v
	}
	for _, field := range parts[1:] {
		sel, err := d.selectField(n, e, field)
		if err != nil {
			return nil, err
		}
		e = sel
	}
	return e, nil
}

func (d *decoder) isClassName(s string) bool {
	if _, ok := d.lookupLocal(s); ok {
		return false
	}
	_, ok := d.ts.Lookup(s)
	return ok
}

func (d *decoder) lookupLocal(name string) (*term.Var, bool) {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if v, ok := d.scopes[i].vars[name]; ok && v.IsLocal() {
			return v, true
		}
		if d.scopes[i].class != nil {
			if _, ok := d.scopes[i].vars[name]; ok {
				return nil, false
			}
		}
	}
	return nil, false
}

// resolve looks up a simple name, innermost scope first. A field of an
// enclosing class other than the innermost one is accessed through a
// qualified this, or the class for static fields.
func (d *decoder) resolve(n *yaml.Node, name string) (term.Expr, error) {
	pos := d.pos(n)
	inner := true
	for i := len(d.scopes) - 1; i >= 0; i-- {
		s := d.scopes[i]
		v, ok := s.vars[name]
		if !ok {
			if s.class != nil {
				if f, ok := d.inherited(s.class, name); ok {
					v = f
				} else {
					inner = false
					continue
				}
			} else {
				continue
			}
		}
		if v.IsLocal() {
			e := &term.Local{Var: v}
			e.Pos = pos
			return e, nil
		}
		f := &term.Field{Var: v}
		f.Pos = pos
		if !inner {
			if v.Static {
				ref := &term.TypeRef{Class: s.class}
				ref.Pos = pos
				f.Target = ref
			} else {
				this := &term.This{Class: s.class, Qualified: true}
				this.Pos = pos
				f.Target = this
			}
		}
		return f, nil
	}
	return nil, d.errorf(n, "undefined: %s", name)
}

// inherited finds a field declared in a superclass of c.
func (d *decoder) inherited(c *term.ClassType, name string) (*term.Var, bool) {
	for s := c; s != nil; s = s.Super {
		if v, ok := d.fields[s][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// selectField resolves the field name of the class of target.
func (d *decoder) selectField(n *yaml.Node, target term.Expr, name string) (term.Expr, error) {
	var c *term.ClassType
	switch t := target.(type) {
	case *term.This:
		c = t.Class
	case *term.TypeRef:
		c = t.Class
	case *term.Local:
		c, _ = d.ts.Lookup(t.Var.Type)
	case *term.Field:
		c, _ = d.ts.Lookup(t.Var.Type)
	}
	if c == nil {
		return nil, d.errorf(n, "cannot select %s of %s", name, term.String(target))
	}
	v, ok := d.inherited(c, name)
	if !ok {
		return nil, d.errorf(n, "%s has no field %s", c.Name, name)
	}
	f := &term.Field{Target: target, Var: v}
	f.Pos = d.pos(n)
	return f, nil
}

// lookupMethod finds the declared signature of a method of c or its
// superclasses.
func (d *decoder) lookupMethod(c *term.ClassType, name string) (method, bool) {
	for s := c; s != nil; s = s.Super {
		if m, ok := d.methods[s][name]; ok {
			return m, true
		}
	}
	return method{}, false
}

func (d *decoder) call(n *yaml.Node, m map[string]*yaml.Node) (term.Expr, error) {
	e := &term.Call{Name: str(m, "call")}
	e.Pos = d.pos(n)
	c := d.currentClass()
	if tn, ok := m["target"]; ok {
		target, err := d.name(tn)
		if err != nil {
			return nil, err
		}
		e.Target = target
		switch t := target.(type) {
		case *term.This:
			c = t.Class
		case *term.TypeRef:
			c = t.Class
		case *term.Local:
			c, _ = d.ts.Lookup(t.Var.Type)
		case *term.Field:
			c, _ = d.ts.Lookup(t.Var.Type)
		default:
			c = nil
		}
	}
	var err error
	if e.Args, err = d.exprs(m["args"]); err != nil {
		return nil, err
	}
	if sig, ok := d.lookupMethod(c, e.Name); ok {
		e.Type, e.Throws = sig.typ, sig.throws
	}
	if t := str(m, "type"); t != "" {
		e.Type = t
	}
	if _, ok := m["throws"]; ok {
		if e.Throws, err = d.classes(m["throws"]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (d *decoder) newExpr(n *yaml.Node, m map[string]*yaml.Node) (term.Expr, error) {
	c, ok := d.ts.Lookup(str(m, "new"))
	if !ok {
		return nil, d.errorf(n, "unknown class %s", str(m, "new"))
	}
	e := &term.New{Class: c}
	e.Pos = d.pos(n)
	var err error
	if e.Args, err = d.exprs(m["args"]); err != nil {
		return nil, err
	}
	if e.Throws, err = d.classes(m["throws"]); err != nil {
		return nil, err
	}
	if members, ok := m["members"]; ok {
		d.anon++
		anon := d.ts.Class(fmt.Sprintf("%s$%d", d.outerName(), d.anon), c)
		if err := d.declareMembers(anon, members); err != nil {
			return nil, err
		}
		if e.Body, err = d.classBody(n, anon, members); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (d *decoder) outerName() string {
	if c := d.currentClass(); c != nil {
		return c.Name
	}
	return "Anonymous"
}
