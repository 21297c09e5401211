package term

import (
	"fmt"
	"sync"
)

// VarKind classifies a variable.
type VarKind int

const (
	LocalVar VarKind = iota
	FormalVar
	FieldVar
)

func (k VarKind) String() string {
	switch k {
	case LocalVar:
		return "local"
	case FormalVar:
		return "formal"
	case FieldVar:
		return "field"
	}
	return fmt.Sprintf("VarKind(%d)", int(k))
}

// Var is the identity of a declared variable.
//
// A Var is an immutable record shared by every term that refers to the
// variable. Analyses that want to reclassify a variable keep their own facts
// keyed by the Var rather than modifying it.
type Var struct {
	ID        int
	Name      string
	Kind      VarKind
	Type      string
	Final     bool
	Static    bool       // Fields only.
	Container *ClassType // Declaring class of a field.
	Pos       Pos
}

var (
	varCount int
	varMu    sync.Mutex
)

// nextVarID returns a program-wide unique variable ID.
func nextVarID() int {
	varMu.Lock()
	defer varMu.Unlock()
	varCount++
	return varCount
}

// NewLocal returns a new local variable.
func NewLocal(name, typ string, final bool, pos Pos) *Var {
	return &Var{ID: nextVarID(), Name: name, Kind: LocalVar, Type: typ, Final: final, Pos: pos}
}

// NewFormal returns a new formal parameter.
func NewFormal(name, typ string, final bool, pos Pos) *Var {
	return &Var{ID: nextVarID(), Name: name, Kind: FormalVar, Type: typ, Final: final, Pos: pos}
}

// NewField returns a new field of class c.
func NewField(c *ClassType, name, typ string, final, static bool, pos Pos) *Var {
	return &Var{ID: nextVarID(), Name: name, Kind: FieldVar, Type: typ, Final: final, Static: static, Container: c, Pos: pos}
}

// IsLocal returns true for locals and formals.
func (v *Var) IsLocal() bool { return v.Kind != FieldVar }

// Index returns the unique ID of the variable, for use as a set element.
func (v *Var) Index() int { return v.ID }

func (v *Var) String() string {
	if v.Kind == FieldVar && v.Container != nil {
		return v.Container.Name + "." + v.Name
	}
	return v.Name
}

// VarKey is a Var used as a store key.
type VarKey struct {
	*Var
}

// Name returns the source name of the variable.
func (k VarKey) Name() string { return k.Var.Name }

// Key returns v as a store key.
func (v *Var) Key() VarKey { return VarKey{v} }

// ClassType is a class in the program, including exception classes.
type ClassType struct {
	Name  string
	Super *ClassType
}

func (c *ClassType) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

// Hierarchy answers subtyping questions over class types.
type Hierarchy interface {
	// IsSubtype returns true if a is b or a subclass of b.
	IsSubtype(a, b *ClassType) bool
	// IsCastable returns true if a value of type a may be cast to b.
	IsCastable(a, b *ClassType) bool
	// Error is the unchecked error type any simple statement may throw.
	Error() *ClassType
}

// TypeSystem is a Hierarchy over single-inheritance class types, with the
// built-in throwable classes predeclared.
type TypeSystem struct {
	classes map[string]*ClassType

	Object           *ClassType
	Throwable        *ClassType
	Exception        *ClassType
	RuntimeException *ClassType
	Err              *ClassType
}

// NewTypeSystem returns a type system containing the built-in classes.
func NewTypeSystem() *TypeSystem {
	ts := &TypeSystem{classes: make(map[string]*ClassType)}
	ts.Object = ts.Class("Object", nil)
	ts.Throwable = ts.Class("Throwable", ts.Object)
	ts.Exception = ts.Class("Exception", ts.Throwable)
	ts.RuntimeException = ts.Class("RuntimeException", ts.Exception)
	ts.Err = ts.Class("Error", ts.Throwable)
	return ts
}

// Class declares a class, or returns the existing class of that name.
// A nil super defaults to Object.
func (ts *TypeSystem) Class(name string, super *ClassType) *ClassType {
	if c, ok := ts.classes[name]; ok {
		return c
	}
	if super == nil && ts.Object != nil {
		super = ts.Object
	}
	c := &ClassType{Name: name, Super: super}
	ts.classes[name] = c
	return c
}

// Lookup returns the class of the given name.
func (ts *TypeSystem) Lookup(name string) (*ClassType, bool) {
	c, ok := ts.classes[name]
	return c, ok
}

func (ts *TypeSystem) IsSubtype(a, b *ClassType) bool {
	for c := a; c != nil; c = c.Super {
		if c == b {
			return true
		}
	}
	return false
}

// IsCastable holds when either type is a subtype of the other.
func (ts *TypeSystem) IsCastable(a, b *ClassType) bool {
	return ts.IsSubtype(a, b) || ts.IsSubtype(b, a)
}

func (ts *TypeSystem) Error() *ClassType { return ts.Err }
