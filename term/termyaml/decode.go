// Package termyaml decodes programs written as YAML documents into term
// trees.
//
// A document declares exception classes, classes and standalone
// expressions:
//
//	exceptions:
//	  - SpecificException              # extends Exception
//	  - {name: Fatal, extends: Error}
//	classes:
//	  - class: C
//	    members:
//	      - field: f
//	        type: int
//	        final: true
//	      - constructor:
//	          - assign: f
//	            value: 1
//	      - method: m
//	        params: [z]
//	        body:
//	          - local: x
//	            final: true
//	          - if: {ne: [z, 0]}
//	            then: [{assign: x, value: 1}]
//	            else: [{return: }]
//
// Statements and expressions are mappings whose first key names the kind.
// Scalars are literals, names of locals and fields (resolved innermost
// scope first), or dotted accesses such as this.f or C.g.
// Positions of terms are the positions of their YAML nodes.
package termyaml

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nickng/flowcheck/term"
)

// Program is a decoded document.
type Program struct {
	File  *term.File
	Types *term.TypeSystem
	Exprs []term.Expr // Standalone expressions.
}

// DecodeError is an error in the structure of the document.
type DecodeError struct {
	Pos term.Pos
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Decode reads a program from r. name is used as the file name of term
// positions.
func Decode(r io.Reader, name string) (*Program, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return &Program{File: &term.File{Name: name}, Types: term.NewTypeSystem()}, nil
		}
		return nil, errors.Wrap(err, "cannot parse YAML")
	}
	d := newDecoder(name)
	prog, err := d.program(&doc)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// DecodeString reads a program from a string.
func DecodeString(src, name string) (*Program, error) {
	return Decode(strings.NewReader(src), name)
}

// method is the signature information of a declared method.
type method struct {
	typ    string
	throws []*term.ClassType
}

// scope is one level of name resolution: either the locals of a block or
// the members of a class.
type scope struct {
	vars  map[string]*term.Var
	class *term.ClassType // Non-nil for class scopes.
}

type decoder struct {
	file    string
	ts      *term.TypeSystem
	fields  map[*term.ClassType]map[string]*term.Var
	methods map[*term.ClassType]map[string]method
	scopes  []*scope
	anon    int
}

func newDecoder(file string) *decoder {
	return &decoder{
		file:    file,
		ts:      term.NewTypeSystem(),
		fields:  make(map[*term.ClassType]map[string]*term.Var),
		methods: make(map[*term.ClassType]map[string]method),
	}
}

func (d *decoder) pos(n *yaml.Node) term.Pos {
	return term.Pos{File: d.file, Line: n.Line, Col: n.Column}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...interface{}) error {
	return errors.WithStack(&DecodeError{Pos: d.pos(n), Msg: fmt.Sprintf(format, args...)})
}

// fieldsOf returns the mapping of a mapping node, keeping key order in keys.
func (d *decoder) fieldsOf(n *yaml.Node) (map[string]*yaml.Node, []string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, d.errorf(n, "expecting a mapping")
	}
	m := make(map[string]*yaml.Node)
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		m[k] = n.Content[i+1]
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, nil, d.errorf(n, "empty mapping")
	}
	return m, keys, nil
}

func (d *decoder) items(n *yaml.Node) []*yaml.Node {
	if n == nil || isNull(n) {
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		return n.Content
	}
	return []*yaml.Node{n}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func str(m map[string]*yaml.Node, key string) string {
	if n, ok := m[key]; ok && !isNull(n) {
		return n.Value
	}
	return ""
}

func flag(m map[string]*yaml.Node, key string) bool {
	n, ok := m[key]
	return ok && n.Value == "true"
}

func (d *decoder) program(doc *yaml.Node) (*Program, error) {
	root := doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	m, _, err := d.fieldsOf(root)
	if err != nil {
		return nil, err
	}
	for _, n := range d.items(m["exceptions"]) {
		if err := d.declareException(n); err != nil {
			return nil, err
		}
	}
	classes := d.items(m["classes"])
	for _, n := range classes {
		if err := d.declareClass(n); err != nil {
			return nil, err
		}
	}
	prog := &Program{File: &term.File{Name: d.file}, Types: d.ts}
	for _, n := range classes {
		decl, err := d.classDecl(n)
		if err != nil {
			return nil, err
		}
		prog.File.Classes = append(prog.File.Classes, decl)
	}
	if _, ok := m["exprs"]; ok {
		d.push(nil)
		for _, n := range d.items(m["locals"]) {
			v, err := d.param(n, term.NewLocal)
			if err != nil {
				return nil, err
			}
			d.top().vars[v.Name] = v
		}
		for _, n := range d.items(m["exprs"]) {
			e, err := d.expr(n)
			if err != nil {
				return nil, err
			}
			prog.Exprs = append(prog.Exprs, e)
		}
		d.pop()
	}
	return prog, nil
}

func (d *decoder) declareException(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		d.ts.Class(n.Value, d.ts.Exception)
		return nil
	}
	m, _, err := d.fieldsOf(n)
	if err != nil {
		return err
	}
	super := d.ts.Exception
	if s := str(m, "extends"); s != "" {
		c, ok := d.ts.Lookup(s)
		if !ok {
			return d.errorf(m["extends"], "unknown class %s", s)
		}
		super = c
	}
	d.ts.Class(str(m, "name"), super)
	return nil
}

// declareClass registers the type, fields and methods of a class and its
// member classes before any code is decoded.
func (d *decoder) declareClass(n *yaml.Node) error {
	m, _, err := d.fieldsOf(n)
	if err != nil {
		return err
	}
	name := str(m, "class")
	if name == "" {
		return d.errorf(n, "class without a name")
	}
	var super *term.ClassType
	if s := str(m, "extends"); s != "" {
		c, ok := d.ts.Lookup(s)
		if !ok {
			c = d.ts.Class(s, nil)
		}
		super = c
	}
	c := d.ts.Class(name, super)
	return d.declareMembers(c, m["members"])
}

func (d *decoder) declareMembers(c *term.ClassType, members *yaml.Node) error {
	d.fields[c] = make(map[string]*term.Var)
	d.methods[c] = make(map[string]method)
	for _, mn := range d.items(members) {
		m, keys, err := d.fieldsOf(mn)
		if err != nil {
			return err
		}
		switch keys[0] {
		case "field":
			d.fields[c][str(m, "field")] = term.NewField(c, str(m, "field"), typeOr(m, "int"),
				flag(m, "final"), flag(m, "static"), d.pos(mn))
		case "method":
			throws, err := d.classes(m["throws"])
			if err != nil {
				return err
			}
			d.methods[c][str(m, "method")] = method{typ: typeOr(m, "void"), throws: throws}
		case "class":
			if err := d.declareClass(mn); err != nil {
				return err
			}
		}
	}
	return nil
}

func typeOr(m map[string]*yaml.Node, def string) string {
	if t := str(m, "type"); t != "" {
		return t
	}
	return def
}

func (d *decoder) classes(n *yaml.Node) ([]*term.ClassType, error) {
	var cs []*term.ClassType
	for _, cn := range d.items(n) {
		c, ok := d.ts.Lookup(cn.Value)
		if !ok {
			return nil, d.errorf(cn, "unknown class %s", cn.Value)
		}
		cs = append(cs, c)
	}
	return cs, nil
}

func (d *decoder) push(class *term.ClassType) {
	d.scopes = append(d.scopes, &scope{vars: make(map[string]*term.Var), class: class})
}

func (d *decoder) pop() { d.scopes = d.scopes[:len(d.scopes)-1] }

func (d *decoder) top() *scope { return d.scopes[len(d.scopes)-1] }

// currentClass returns the innermost enclosing class.
func (d *decoder) currentClass() *term.ClassType {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if d.scopes[i].class != nil {
			return d.scopes[i].class
		}
	}
	return nil
}

func (d *decoder) classDecl(n *yaml.Node) (*term.ClassDecl, error) {
	m, _, err := d.fieldsOf(n)
	if err != nil {
		return nil, err
	}
	c, _ := d.ts.Lookup(str(m, "class"))
	body, err := d.classBody(n, c, m["members"])
	if err != nil {
		return nil, err
	}
	decl := &term.ClassDecl{Type: c, Body: body}
	decl.Pos = d.pos(n)
	return decl, nil
}

func (d *decoder) classBody(n *yaml.Node, c *term.ClassType, members *yaml.Node) (*term.ClassBody, error) {
	d.push(c)
	defer d.pop()
	for name, v := range d.fields[c] {
		d.top().vars[name] = v
	}
	body := &term.ClassBody{Type: c}
	body.Pos = d.pos(n)
	for _, mn := range d.items(members) {
		member, err := d.member(mn, c)
		if err != nil {
			return nil, err
		}
		body.Members = append(body.Members, member)
	}
	return body, nil
}

func (d *decoder) member(n *yaml.Node, c *term.ClassType) (term.Member, error) {
	m, keys, err := d.fieldsOf(n)
	if err != nil {
		return nil, err
	}
	switch keys[0] {
	case "field":
		fd := &term.FieldDecl{Var: d.fields[c][str(m, "field")]}
		fd.Pos = d.pos(n)
		if init, ok := m["init"]; ok {
			if fd.Init, err = d.expr(init); err != nil {
				return nil, err
			}
		}
		return fd, nil

	case "initializer":
		body, err := d.block(m["initializer"])
		if err != nil {
			return nil, err
		}
		init := &term.Initializer{Static: flag(m, "static"), Body: body}
		init.Pos = d.pos(n)
		return init, nil

	case "constructor":
		d.push(nil)
		defer d.pop()
		formals, err := d.formals(m["params"])
		if err != nil {
			return nil, err
		}
		body, err := d.block(m["constructor"])
		if err != nil {
			return nil, err
		}
		ctor := &term.ConstructorDecl{Name: c.Name, Formals: formals, Body: body}
		ctor.Pos = d.pos(n)
		return ctor, nil

	case "method":
		d.push(nil)
		defer d.pop()
		formals, err := d.formals(m["params"])
		if err != nil {
			return nil, err
		}
		body, err := d.block(m["body"])
		if err != nil {
			return nil, err
		}
		md := &term.MethodDecl{Name: str(m, "method"), Static: flag(m, "static"), Formals: formals, Body: body}
		md.Pos = d.pos(n)
		return md, nil

	case "class":
		return d.classDecl(n)
	}
	return nil, d.errorf(n, "unknown member kind %q", keys[0])
}

func (d *decoder) formals(n *yaml.Node) ([]*term.Formal, error) {
	var formals []*term.Formal
	for _, pn := range d.items(n) {
		v, err := d.param(pn, term.NewFormal)
		if err != nil {
			return nil, err
		}
		d.top().vars[v.Name] = v
		f := &term.Formal{Var: v}
		f.Pos = d.pos(pn)
		formals = append(formals, f)
	}
	return formals, nil
}

// param decodes a variable declaration written as a name or as a mapping
// {name, type, final}.
func (d *decoder) param(n *yaml.Node, mk func(name, typ string, final bool, pos term.Pos) *term.Var) (*term.Var, error) {
	if n.Kind == yaml.ScalarNode {
		return mk(n.Value, "int", false, d.pos(n)), nil
	}
	m, _, err := d.fieldsOf(n)
	if err != nil {
		return nil, err
	}
	return mk(str(m, "name"), typeOr(m, "int"), flag(m, "final"), d.pos(n)), nil
}
