package term

import "testing"

func local(name string) *Local {
	return &Local{Var: NewLocal(name, "int", false, Pos{})}
}

func boolean(v bool) *BoolLit { return &BoolLit{Value: v} }

func TestEntry(t *testing.T) {
	x := local("x")
	one := &Lit{Kind: IntLit, Value: "1"}
	assign := &Assign{Target: x, Op: "=", Value: one}
	eval := &Eval{X: assign}
	cond := &Binary{Op: "<", X: local("i"), Y: one}
	body := &Block{Stmts: []Stmt{eval}}
	loop := &While{Cond: cond, Body: body}
	empty := &Block{}

	tests := []struct {
		name string
		t    Term
		want Term
	}{
		{"empty block is its own entry", empty, empty},
		{"simple assignment starts at value", assign, one},
		{"statement starts at expression", eval, one},
		{"block starts at first statement", body, one},
		{"while starts at condition", loop, cond.X},
		{"leaf", x, x},
	}
	for _, test := range tests {
		if want, got := test.want, Entry(test.t); want != got {
			t.Errorf("%s: Entry\nwant: %s\ngot: %s", test.name, Describe(want), Describe(got))
		}
	}
}

func TestAssignOrder(t *testing.T) {
	x := local("x")
	one := &Lit{Kind: IntLit, Value: "1"}
	if want, got := 1, len(AssignOrder(&Assign{Target: x, Op: "=", Value: one})); want != got {
		t.Errorf("simple assignment to local should only evaluate value\nwant: %d got: %d", want, got)
	}
	seq := AssignOrder(&Assign{Target: x, Op: "+=", Value: one})
	if len(seq) != 2 || seq[0] != Term(x) {
		t.Errorf("compound assignment should read the target first, got %v", seq)
	}
	c := &ClassType{Name: "C"}
	this := &This{Class: c}
	f := &Field{Target: this, Var: NewField(c, "f", "int", true, false, Pos{})}
	seq = AssignOrder(&Assign{Target: f, Op: "=", Value: one})
	if len(seq) != 2 || seq[0] != Term(this) {
		t.Errorf("simple assignment to field should evaluate the receiver first, got %v", seq)
	}
}

func TestConstBool(t *testing.T) {
	tests := []struct {
		e      Expr
		v, ok  bool
		String string
	}{
		{boolean(true), true, true, "true"},
		{&Unary{Op: "!", X: boolean(true)}, false, true, "!true"},
		{&Binary{Op: "&&", X: boolean(true), Y: boolean(false)}, false, true, "(true && false)"},
		{&Binary{Op: "||", X: boolean(false), Y: boolean(true)}, true, true, "(false || true)"},
		{&Binary{Op: "==", X: boolean(false), Y: boolean(false)}, true, true, "(false == false)"},
		{&Binary{Op: "&&", X: boolean(true), Y: &Local{Var: NewLocal("b", "boolean", false, Pos{})}}, false, false, "(true && b)"},
	}
	for _, test := range tests {
		v, ok := ConstBool(test.e)
		if v != test.v || ok != test.ok {
			t.Errorf("ConstBool(%s)\nwant: %t,%t got: %t,%t", test.String, test.v, test.ok, v, ok)
		}
		if want, got := test.String, String(test.e); want != got {
			t.Errorf("String\nwant: %s got: %s", want, got)
		}
	}
}

func TestIsConditional(t *testing.T) {
	b := &Local{Var: NewLocal("b", "boolean", false, Pos{})}
	i := local("i")
	if !IsConditional(&Binary{Op: "&", X: b, Y: b}) {
		t.Errorf("boolean & should be conditional")
	}
	if IsConditional(&Binary{Op: "&", X: i, Y: i}) {
		t.Errorf("integer & should not be conditional")
	}
	if !IsBoolean(&Binary{Op: "!=", X: i, Y: i}) {
		t.Errorf("comparison should be boolean")
	}
}

func TestTypeSystem(t *testing.T) {
	ts := NewTypeSystem()
	specific := ts.Class("SpecificException", ts.Exception)
	other := ts.Class("OtherException", ts.Exception)
	if !ts.IsSubtype(specific, ts.Throwable) {
		t.Errorf("SpecificException should be a Throwable")
	}
	if ts.IsSubtype(ts.Exception, specific) {
		t.Errorf("Exception should not be a SpecificException")
	}
	if !ts.IsCastable(ts.Exception, specific) {
		t.Errorf("Exception should be castable to SpecificException")
	}
	if ts.IsCastable(specific, other) {
		t.Errorf("sibling exceptions should not be castable")
	}
	if ts.Class("SpecificException", nil) != specific {
		t.Errorf("redeclaring a class should return the existing class")
	}
	if ts.Error() != ts.Err || !ts.IsSubtype(ts.Error(), ts.Throwable) {
		t.Errorf("Error should be the unchecked Throwable")
	}
}

func TestVarIDsUnique(t *testing.T) {
	a, b := NewLocal("a", "int", false, Pos{}), NewLocal("a", "int", false, Pos{})
	if a.ID == b.ID {
		t.Errorf("variables with the same name should have different IDs: %d", a.ID)
	}
}

func TestNestedClassBodies(t *testing.T) {
	c := &ClassType{Name: "C"}
	anon := &ClassBody{Type: &ClassType{Name: "C$1", Super: c}}
	local := &ClassBody{Type: &ClassType{Name: "L"}}
	inner := &ClassBody{Type: &ClassType{Name: "Deep"}}
	anon.Members = []Member{&MethodDecl{Name: "run", Body: &Block{Stmts: []Stmt{
		&Eval{X: &New{Class: c, Body: inner}},
	}}}}
	m := &MethodDecl{Name: "m", Body: &Block{Stmts: []Stmt{
		&Eval{X: &New{Class: c, Body: anon}},
		&LocalClassDecl{Decl: &ClassDecl{Type: local.Type, Body: local}},
	}}}
	bodies := NestedClassBodies(m)
	if want, got := 2, len(bodies); want != got {
		t.Fatalf("NestedClassBodies should not descend into nested bodies\nwant: %d got: %d", want, got)
	}
	if bodies[0] != anon || bodies[1] != local {
		t.Errorf("NestedClassBodies should be in source order")
	}
	f := &File{Classes: []*ClassDecl{{Type: c, Body: &ClassBody{Type: c, Members: []Member{m}}}}}
	var seen []string
	ClassBodies(f, func(b *ClassBody) { seen = append(seen, b.Type.Name) })
	if want, got := "C C$1 Deep L", join(seen); want != got {
		t.Errorf("ClassBodies order\nwant: %s\ngot: %s", want, got)
	}
}

func join(ss []string) string {
	s := ""
	for i, x := range ss {
		if i > 0 {
			s += " "
		}
		s += x
	}
	return s
}
