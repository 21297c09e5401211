package definite

import (
	"golang.org/x/exp/slices"

	"github.com/nickng/flowcheck/store"
	"github.com/nickng/flowcheck/term"
)

// A classState is the state of the analysis of one class body.
//
// Frames are linked to the frame of the enclosing class body through
// parent. A frame is created when its body is entered and is owned by the
// call checking that body; nothing else refers to it once the body is
// left.
type classState struct {
	parent *classState
	body   *term.ClassBody // nil for a standalone expression.

	// Locals and formals declared in the code units of the body.
	locals map[*term.Var]bool

	// Final fields of the class, mapped to their status after the members
	// processed so far.
	finals *store.Store

	ctors      []*term.ConstructorDecl
	assignedBy map[*term.ConstructorDecl][]*term.Var // Non-static finals each constructor initialises.
	abnormal   map[*term.ConstructorDecl]bool        // Constructors that cannot terminate normally.

	// Locals of enclosing scopes used in the body, in order of first use.
	outerUsed []*term.Var
}

func newClassState(parent *classState, body *term.ClassBody) *classState {
	st := &classState{
		parent:     parent,
		body:       body,
		locals:     make(map[*term.Var]bool),
		finals:     store.New(),
		assignedBy: make(map[*term.ConstructorDecl][]*term.Var),
		abnormal:   make(map[*term.ConstructorDecl]bool),
	}
	if body != nil {
		for _, m := range body.Members {
			if _, ok := m.(*term.ClassDecl); ok {
				continue
			}
			st.declare(term.DeclaredVars(m))
		}
	}
	return st
}

func (st *classState) declare(vars []*term.Var) {
	for _, v := range vars {
		st.locals[v] = true
	}
}

func (st *classState) depth() int {
	d := 0
	for f := st.parent; f != nil; f = f.parent {
		d++
	}
	return d
}

// declaredOutside returns true if v is a local of an enclosing class body.
func (st *classState) declaredOutside(v *term.Var) bool {
	for f := st.parent; f != nil; f = f.parent {
		if f.locals[v] {
			return true
		}
	}
	return false
}

// useOuter records uses of locals declared outside the body, for the check
// of the enclosing scope.
func (st *classState) useOuter(vars []*term.Var) {
	for _, v := range vars {
		if st.locals[v] || !st.declaredOutside(v) || slices.Contains(st.outerUsed, v) {
			continue
		}
		st.outerUsed = append(st.outerUsed, v)
	}
}

// seed starts tracking the final field v.
func (st *classState) seed(v *term.Var) {
	st.finals = st.finals.With(v.Key(), Unassigned)
}

// status returns the status of the final field v after the members
// processed so far.
func (st *classState) status(v *term.Var) Status {
	if s, ok := st.finals.Get(v.Key()); ok {
		return s.(Status)
	}
	return Neither
}

// finalFields returns the tracked final fields in declaration order.
func (st *classState) finalFields() []*term.Var {
	var vars []*term.Var
	for _, k := range st.finals.Keys() {
		vars = append(vars, k.(term.VarKey).Var)
	}
	return vars
}

// fieldsFor returns the final fields tracked in a code unit, with their
// current status. Static units track static fields. Instance units track
// every final field, static ones with their status after class
// initialization. Methods track none.
func (st *classState) fieldsFor(unit term.Term) *store.Store {
	switch unit.(type) {
	case *term.FieldDecl, *term.Initializer, *term.ConstructorDecl:
	default:
		return store.New()
	}
	if !term.IsStaticUnit(unit) {
		return st.finals
	}
	s := store.New()
	st.finals.Range(func(k store.Key, v store.Value) bool {
		if k.(term.VarKey).Static {
			s = s.With(k, v)
		}
		return true
	})
	return s
}

// update copies the status of the fields tracked by item back to the
// class. Only fields of the same kind as the unit, static or instance, are
// updated.
func (st *classState) update(unit term.Term, fields map[*term.Var]bool, item Item) {
	static := term.IsStaticUnit(unit)
	for _, v := range st.finalFields() {
		if !fields[v] || v.Static != static {
			continue
		}
		if s, ok := item.Status(v); ok {
			st.finals = st.finals.With(v.Key(), s)
		}
	}
}

// owns returns true if the access f is to a field of this class through
// the class itself: unqualified, through this of the class, or through the
// class name for a static field.
func (st *classState) owns(f *term.Field) bool {
	if st.body == nil || f.Var.Container != st.body.Type {
		return false
	}
	switch target := f.Target.(type) {
	case nil:
		return true
	case *term.This:
		return target.Class == st.body.Type
	case *term.TypeRef:
		return f.Var.Static && target.Class == st.body.Type
	}
	return false
}
