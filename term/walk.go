package term

// Entry returns the first sub-term of t executed when control reaches t,
// or t itself for leaves and empty compounds.
func Entry(t Term) Term {
	switch t := t.(type) {
	case *Block:
		if len(t.Stmts) > 0 {
			return Entry(t.Stmts[0])
		}
	case *If:
		return Entry(t.Cond)
	case *While:
		return Entry(t.Cond)
	case *Do:
		return Entry(t.Body)
	case *For:
		if len(t.Init) > 0 {
			return Entry(t.Init[0])
		}
		if t.Cond != nil {
			return Entry(t.Cond)
		}
		return Entry(t.Body)
	case *Labeled:
		return Entry(t.Body)
	case *Switch:
		return Entry(t.Tag)
	case *Try:
		return Entry(t.Body)
	case *Catch:
		return t.Formal
	case *Conditional:
		return Entry(t.Cond)
	case *Initializer:
		return Entry(t.Body)
	case *MethodDecl:
		if len(t.Formals) > 0 {
			return t.Formals[0]
		}
		return Entry(t.Body)
	case *ConstructorDecl:
		if len(t.Formals) > 0 {
			return t.Formals[0]
		}
		return Entry(t.Body)
	default:
		if seq := Sequence(t); len(seq) > 0 {
			return Entry(seq[0])
		}
	}
	return t
}

// Sequence returns the sub-terms of a term that are evaluated strictly in
// order before the term itself completes, or nil if the term has no such
// sub-terms or transfers control in any other way.
func Sequence(t Term) []Term {
	switch t := t.(type) {
	case *LocalDecl:
		if t.Init != nil {
			return []Term{t.Init}
		}
	case *Eval:
		return []Term{t.X}
	case *Case:
		if t.Value != nil {
			return []Term{t.Value}
		}
	case *Return:
		if t.Result != nil {
			return []Term{t.Result}
		}
	case *Throw:
		return []Term{t.X}
	case *ConstructorCall:
		return exprs(t.Args)
	case *Field:
		if t.Target != nil {
			return []Term{t.Target}
		}
	case *Assign:
		return AssignOrder(t)
	case *Binary:
		return []Term{t.X, t.Y}
	case *Unary:
		return []Term{t.X}
	case *Call:
		var seq []Term
		if t.Target != nil {
			seq = append(seq, t.Target)
		}
		return append(seq, exprs(t.Args)...)
	case *New:
		return exprs(t.Args)
	case *FieldDecl:
		if t.Init != nil {
			return []Term{t.Init}
		}
	}
	return nil
}

// AssignOrder returns the sub-terms evaluated by an assignment before the
// store. A simple assignment to a local does not read the local; a simple
// assignment to a field evaluates only the field's receiver. Compound
// assignments read the target.
func AssignOrder(a *Assign) []Term {
	var seq []Term
	switch target := a.Target.(type) {
	case *Local:
		if a.Op != "=" {
			seq = append(seq, target)
		}
	case *Field:
		if a.Op != "=" {
			seq = append(seq, target)
		} else if target.Target != nil {
			seq = append(seq, target.Target)
		}
	default:
		seq = append(seq, a.Target)
	}
	return append(seq, a.Value)
}

func exprs(es []Expr) []Term {
	var ts []Term
	for _, e := range es {
		ts = append(ts, e)
	}
	return ts
}

func stmts(ss []Stmt) []Term {
	var ts []Term
	for _, s := range ss {
		ts = append(ts, s)
	}
	return ts
}

// Children returns the direct sub-terms of t that belong to the same code
// unit, in evaluation order. Bodies of local and anonymous classes are not
// children; see NestedClassBodies.
func Children(t Term) []Term {
	var ts []Term
	add := func(c Term) {
		if c != nil {
			ts = append(ts, c)
		}
	}
	switch t := t.(type) {
	case *Block:
		return stmts(t.Stmts)
	case *If:
		add(t.Cond)
		add(t.Then)
		if t.Else != nil {
			add(t.Else)
		}
	case *While:
		add(t.Cond)
		add(t.Body)
	case *Do:
		add(t.Body)
		add(t.Cond)
	case *For:
		ts = append(ts, stmts(t.Init)...)
		if t.Cond != nil {
			add(t.Cond)
		}
		add(t.Body)
		ts = append(ts, stmts(t.Update)...)
	case *Labeled:
		add(t.Body)
	case *Switch:
		add(t.Tag)
		ts = append(ts, stmts(t.Body)...)
	case *Try:
		add(t.Body)
		for _, c := range t.Catches {
			add(c)
		}
		if t.Finally != nil {
			add(t.Finally)
		}
	case *Catch:
		add(t.Formal)
		add(t.Body)
	case *Conditional:
		add(t.Cond)
		add(t.Then)
		add(t.Else)
	case *Initializer:
		add(t.Body)
	case *MethodDecl:
		for _, f := range t.Formals {
			add(f)
		}
		add(t.Body)
	case *ConstructorDecl:
		for _, f := range t.Formals {
			add(f)
		}
		add(t.Body)
	case *Assign:
		// The target of a simple assignment is a child even though it is
		// not evaluated as a read.
		add(t.Target)
		add(t.Value)
	default:
		return Sequence(t)
	}
	return ts
}

// Walk traverses the tree rooted at t in depth-first pre-order, calling fn
// for each term. If fn returns false the children of that term are skipped.
func Walk(t Term, fn func(Term) bool) {
	if t == nil || !fn(t) {
		return
	}
	for _, c := range Children(t) {
		Walk(c, fn)
	}
}

// Parents returns the parent of every term under root.
func Parents(root Term) map[Term]Term {
	parents := make(map[Term]Term)
	Walk(root, func(t Term) bool {
		for _, c := range Children(t) {
			parents[c] = t
		}
		return true
	})
	return parents
}

// NestedClassBodies returns the bodies of local and anonymous classes
// declared directly within the code unit rooted at t, in source order.
func NestedClassBodies(t Term) []*ClassBody {
	var bodies []*ClassBody
	Walk(t, func(t Term) bool {
		switch t := t.(type) {
		case *LocalClassDecl:
			bodies = append(bodies, t.Decl.Body)
		case *New:
			if t.Body != nil {
				bodies = append(bodies, t.Body)
			}
		}
		return true
	})
	return bodies
}

// IsCodeUnit returns true for the members analysed as a separate unit.
func IsCodeUnit(m Member) bool {
	switch m := m.(type) {
	case *FieldDecl:
		return m.Init != nil
	case *Initializer, *MethodDecl, *ConstructorDecl:
		return true
	}
	return false
}

// IsStaticUnit returns true if the code unit runs without an instance.
func IsStaticUnit(t Term) bool {
	switch t := t.(type) {
	case *FieldDecl:
		return t.Var.Static
	case *Initializer:
		return t.Static
	case *MethodDecl:
		return t.Static
	}
	return false
}

// ClassBodies calls fn for every class body in the file, outer bodies
// before the bodies nested in them, members in source order.
func ClassBodies(f *File, fn func(*ClassBody)) {
	for _, c := range f.Classes {
		walkBody(c.Body, fn)
	}
}

func walkBody(b *ClassBody, fn func(*ClassBody)) {
	fn(b)
	for _, m := range b.Members {
		if c, ok := m.(*ClassDecl); ok {
			walkBody(c.Body, fn)
			continue
		}
		for _, nested := range NestedClassBodies(m) {
			walkBody(nested, fn)
		}
	}
}

// DeclaredVars returns the locals and formals declared in the code unit
// rooted at t, excluding those of nested class bodies.
func DeclaredVars(t Term) []*Var {
	var vars []*Var
	Walk(t, func(t Term) bool {
		switch t := t.(type) {
		case *LocalDecl:
			vars = append(vars, t.Var)
		case *Formal:
			vars = append(vars, t.Var)
		}
		return true
	})
	return vars
}
