package termyaml

import (
	"gopkg.in/yaml.v3"

	"github.com/nickng/flowcheck/term"
)

// block decodes a statement list in a new local scope.
func (d *decoder) block(n *yaml.Node) (*term.Block, error) {
	d.push(nil)
	defer d.pop()
	b := &term.Block{}
	if n != nil {
		b.Pos = d.pos(n)
	}
	for _, sn := range d.items(n) {
		s, err := d.stmt(sn)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

// branch decodes an optional statement list; nil stays nil.
func (d *decoder) branch(n *yaml.Node) (term.Stmt, error) {
	if n == nil {
		return nil, nil
	}
	return d.block(n)
}

func (d *decoder) stmts(n *yaml.Node) ([]term.Stmt, error) {
	var ss []term.Stmt
	for _, sn := range d.items(n) {
		s, err := d.stmt(sn)
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}

func (d *decoder) stmt(n *yaml.Node) (term.Stmt, error) {
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			s := &term.Break{}
			s.Pos = d.pos(n)
			return s, nil
		case "continue":
			s := &term.Continue{}
			s.Pos = d.pos(n)
			return s, nil
		case "return":
			s := &term.Return{}
			s.Pos = d.pos(n)
			return s, nil
		case "empty":
			s := &term.Empty{}
			s.Pos = d.pos(n)
			return s, nil
		}
		return nil, d.errorf(n, "unknown statement %q", n.Value)
	}
	m, keys, err := d.fieldsOf(n)
	if err != nil {
		return nil, err
	}
	pos := d.pos(n)
	switch keys[0] {
	case "block":
		return d.block(m["block"])

	case "local":
		s := &term.LocalDecl{}
		s.Pos = pos
		if init, ok := m["init"]; ok {
			if s.Init, err = d.expr(init); err != nil {
				return nil, err
			}
		}
		s.Var = term.NewLocal(str(m, "local"), typeOr(m, "int"), flag(m, "final"), pos)
		d.top().vars[s.Var.Name] = s.Var
		return s, nil

	case "class":
		c := d.ts.Class(str(m, "class"), nil)
		if s := str(m, "extends"); s != "" {
			if super, ok := d.ts.Lookup(s); ok {
				c.Super = super
			}
		}
		if err := d.declareMembers(c, m["members"]); err != nil {
			return nil, err
		}
		body, err := d.classBody(n, c, m["members"])
		if err != nil {
			return nil, err
		}
		decl := &term.ClassDecl{Type: c, Body: body}
		decl.Pos = pos
		s := &term.LocalClassDecl{Decl: decl}
		s.Pos = pos
		return s, nil

	case "eval":
		x, err := d.expr(m["eval"])
		if err != nil {
			return nil, err
		}
		s := &term.Eval{X: x}
		s.Pos = pos
		return s, nil

	case "assign", "inc", "dec", "call", "new":
		x, err := d.expr(n)
		if err != nil {
			return nil, err
		}
		s := &term.Eval{X: x}
		s.Pos = pos
		return s, nil

	case "if":
		s := &term.If{}
		s.Pos = pos
		if s.Cond, err = d.expr(m["if"]); err != nil {
			return nil, err
		}
		if s.Then, err = d.block(m["then"]); err != nil {
			return nil, err
		}
		if s.Else, err = d.branch(m["else"]); err != nil {
			return nil, err
		}
		return s, nil

	case "while":
		s := &term.While{}
		s.Pos = pos
		if s.Cond, err = d.expr(m["while"]); err != nil {
			return nil, err
		}
		if s.Body, err = d.block(m["body"]); err != nil {
			return nil, err
		}
		return s, nil

	case "do":
		s := &term.Do{}
		s.Pos = pos
		if s.Body, err = d.block(m["do"]); err != nil {
			return nil, err
		}
		cond, ok := m["while"]
		if !ok {
			return nil, d.errorf(n, "do without while")
		}
		if s.Cond, err = d.expr(cond); err != nil {
			return nil, err
		}
		return s, nil

	case "for":
		d.push(nil)
		defer d.pop()
		s := &term.For{}
		s.Pos = pos
		if s.Init, err = d.stmts(m["init"]); err != nil {
			return nil, err
		}
		if !isNull(m["for"]) {
			if s.Cond, err = d.expr(m["for"]); err != nil {
				return nil, err
			}
		}
		if s.Update, err = d.stmts(m["update"]); err != nil {
			return nil, err
		}
		if s.Body, err = d.block(m["body"]); err != nil {
			return nil, err
		}
		return s, nil

	case "label":
		s := &term.Labeled{Label: str(m, "label")}
		s.Pos = pos
		body, ok := m["stmt"]
		if !ok {
			return nil, d.errorf(n, "label without stmt")
		}
		if s.Body, err = d.stmt(body); err != nil {
			return nil, err
		}
		return s, nil

	case "switch":
		return d.switchStmt(n, m)

	case "break":
		s := &term.Break{Label: str(m, "break")}
		s.Pos = pos
		return s, nil

	case "continue":
		s := &term.Continue{Label: str(m, "continue")}
		s.Pos = pos
		return s, nil

	case "return":
		s := &term.Return{}
		s.Pos = pos
		if !isNull(m["return"]) {
			if s.Result, err = d.expr(m["return"]); err != nil {
				return nil, err
			}
		}
		return s, nil

	case "throw":
		return d.throwStmt(n, m)

	case "try":
		return d.tryStmt(n, m)

	case "this", "super":
		s := &term.ConstructorCall{Kind: term.ThisCall}
		if keys[0] == "super" {
			s.Kind = term.SuperCall
		}
		s.Pos = pos
		if s.Args, err = d.exprs(m[keys[0]]); err != nil {
			return nil, err
		}
		if s.Throws, err = d.classes(m["throws"]); err != nil {
			return nil, err
		}
		return s, nil

	case "empty":
		s := &term.Empty{}
		s.Pos = pos
		return s, nil
	}
	return nil, d.errorf(n, "unknown statement kind %q", keys[0])
}

func (d *decoder) switchStmt(n *yaml.Node, m map[string]*yaml.Node) (term.Stmt, error) {
	s := &term.Switch{}
	s.Pos = d.pos(n)
	tag, err := d.expr(m["switch"])
	if err != nil {
		return nil, err
	}
	s.Tag = tag
	d.push(nil)
	defer d.pop()
	for _, cn := range d.items(m["cases"]) {
		cm, keys, err := d.fieldsOf(cn)
		if err != nil {
			return nil, err
		}
		c := &term.Case{}
		c.Pos = d.pos(cn)
		if keys[0] == "case" {
			if c.Value, err = d.expr(cm["case"]); err != nil {
				return nil, err
			}
		} else if keys[0] != "default" {
			return nil, d.errorf(cn, "expecting case or default")
		}
		s.Body = append(s.Body, c)
		body, err := d.stmts(cm["body"])
		if err != nil {
			return nil, err
		}
		s.Body = append(s.Body, body...)
	}
	return s, nil
}

// throwStmt decodes {throw: E}, which throws a new E, or {throw: e}, which
// rethrows the exception held by local e.
func (d *decoder) throwStmt(n *yaml.Node, m map[string]*yaml.Node) (term.Stmt, error) {
	s := &term.Throw{}
	s.Pos = d.pos(n)
	xn := m["throw"]
	if v, ok := d.lookupLocal(xn.Value); ok {
		c, ok := d.ts.Lookup(v.Type)
		if !ok {
			return nil, d.errorf(xn, "%s is not an exception", v.Name)
		}
		x := &term.Local{Var: v}
		x.Pos = d.pos(xn)
		s.X, s.Exception = x, c
		return s, nil
	}
	c, ok := d.ts.Lookup(xn.Value)
	if !ok {
		return nil, d.errorf(xn, "unknown class %s", xn.Value)
	}
	x := &term.New{Class: c}
	x.Pos = d.pos(xn)
	s.X, s.Exception = x, c
	return s, nil
}

func (d *decoder) tryStmt(n *yaml.Node, m map[string]*yaml.Node) (term.Stmt, error) {
	s := &term.Try{}
	s.Pos = d.pos(n)
	var err error
	if s.Body, err = d.block(m["try"]); err != nil {
		return nil, err
	}
	for _, cn := range d.items(m["catch"]) {
		cm, _, err := d.fieldsOf(cn)
		if err != nil {
			return nil, err
		}
		typ, ok := d.ts.Lookup(str(cm, "type"))
		if !ok {
			return nil, d.errorf(cn, "unknown class %s", str(cm, "type"))
		}
		d.push(nil)
		v := term.NewFormal(str(cm, "name"), typ.Name, false, d.pos(cn))
		d.top().vars[v.Name] = v
		f := &term.Formal{Var: v}
		f.Pos = d.pos(cn)
		body, err := d.block(cm["body"])
		d.pop()
		if err != nil {
			return nil, err
		}
		c := &term.Catch{Formal: f, Type: typ, Body: body}
		c.Pos = d.pos(cn)
		s.Catches = append(s.Catches, c)
	}
	if fin, ok := m["finally"]; ok {
		if s.Finally, err = d.block(fin); err != nil {
			return nil, err
		}
	}
	return s, nil
}
