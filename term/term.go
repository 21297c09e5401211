// Package term defines the program tree consumed by the flow graph builder
// and the dataflow analyses.
//
// The node set is closed: every node kind is declared in this package and
// the Term interface cannot be implemented elsewhere, so type switches over
// terms in the builder and the transfer functions cover every case.
package term

import "fmt"

// Pos is a source position.
type Pos struct {
	File string
	Line int
	Col  int
}

// IsValid returns true if the position refers to a location in a file.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		if p.File != "" {
			return p.File
		}
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Node carries the position of a term and seals the Term interface.
type Node struct {
	Pos Pos
}

// Position returns the source position of the term.
func (n *Node) Position() Pos { return n.Pos }

func (*Node) term() {}

// Term is a node in the program tree.
// Terms are compared by identity.
type Term interface {
	Position() Pos
	term()
}

// Stmt is a statement term.
type Stmt interface {
	Term
	stmt()
}

// Expr is an expression term.
type Expr interface {
	Term
	expr()
}

// Member is a member of a class body.
type Member interface {
	Term
	member()
}

// Statements.

type (
	// Block is a sequence of statements.
	Block struct {
		Node
		Stmts []Stmt
	}

	// LocalDecl declares a local variable with an optional initializer.
	LocalDecl struct {
		Node
		Var  *Var
		Init Expr
	}

	// LocalClassDecl declares a class inside a code body.
	LocalClassDecl struct {
		Node
		Decl *ClassDecl
	}

	// Eval evaluates an expression for its side effects.
	Eval struct {
		Node
		X Expr
	}

	If struct {
		Node
		Cond Expr
		Then Stmt
		Else Stmt // nil if there is no else branch
	}

	While struct {
		Node
		Cond Expr
		Body Stmt
	}

	Do struct {
		Node
		Body Stmt
		Cond Expr
	}

	// For is a classic for loop. A nil Cond loops forever.
	For struct {
		Node
		Init   []Stmt
		Cond   Expr
		Update []Stmt
		Body   Stmt
	}

	Labeled struct {
		Node
		Label string
		Body  Stmt
	}

	// Switch holds its case labels and the statements they guard in one
	// list, so control falls through from one case to the next.
	Switch struct {
		Node
		Tag  Expr
		Body []Stmt
	}

	// Case is a case label of a switch. A nil Value is the default label.
	Case struct {
		Node
		Value Expr
	}

	Break struct {
		Node
		Label string
	}

	Continue struct {
		Node
		Label string
	}

	Return struct {
		Node
		Result Expr
	}

	// Throw raises X, whose static type is Exception.
	Throw struct {
		Node
		X         Expr
		Exception *ClassType
	}

	Try struct {
		Node
		Body    *Block
		Catches []*Catch
		Finally *Block // nil if there is no finally block
	}

	// Catch is a catch clause. It is not a statement of its own.
	Catch struct {
		Node
		Formal *Formal
		Type   *ClassType
		Body   *Block
	}

	// ConstructorCall is an explicit this(...) or super(...) call at the
	// start of a constructor body.
	ConstructorCall struct {
		Node
		Kind   CallKind
		Args   []Expr
		Throws []*ClassType
	}

	Empty struct {
		Node
	}
)

// CallKind distinguishes this(...) from super(...).
type CallKind int

const (
	ThisCall CallKind = iota
	SuperCall
)

func (k CallKind) String() string {
	if k == ThisCall {
		return "this"
	}
	return "super"
}

// Expressions.

type (
	// Local is a read of a local variable or formal.
	Local struct {
		Node
		Var *Var
	}

	// Field is an access of a field. A nil Target is an unqualified access
	// (implicit this, or the declaring class for static fields).
	Field struct {
		Node
		Target Expr
		Var    *Var
	}

	// This is this, or Class.this when Qualified.
	This struct {
		Node
		Class     *ClassType
		Qualified bool
	}

	// TypeRef names a class as the target of a static access.
	TypeRef struct {
		Node
		Class *ClassType
	}

	// Assign is Target Op Value, where Target is a *Local or a *Field and
	// Op is "=" or a compound operator such as "+=".
	Assign struct {
		Node
		Target Expr
		Op     string
		Value  Expr
	}

	Binary struct {
		Node
		Op string
		X  Expr
		Y  Expr
	}

	// Unary is one of "!", "-", "++" or "--".
	Unary struct {
		Node
		Op      string
		X       Expr
		Postfix bool
	}

	Conditional struct {
		Node
		Cond Expr
		Then Expr
		Else Expr
	}

	BoolLit struct {
		Node
		Value bool
	}

	// Lit is a non-boolean literal.
	Lit struct {
		Node
		Kind  LitKind
		Value string
	}

	// Call is a method call. Type is the result type; Throws lists the
	// checked exceptions the callee declares.
	Call struct {
		Node
		Target Expr // nil for an unqualified call
		Name   string
		Args   []Expr
		Type   string
		Throws []*ClassType
	}

	// New is an instance creation, with an anonymous class Body if non-nil.
	New struct {
		Node
		Class  *ClassType
		Args   []Expr
		Body   *ClassBody
		Throws []*ClassType
	}
)

// LitKind is the kind of a non-boolean literal.
type LitKind int

const (
	IntLit LitKind = iota
	StringLit
	NullLit
)

// Declarations.

type (
	// ClassDecl is a named class declaration.
	ClassDecl struct {
		Node
		Type *ClassType
		Body *ClassBody
	}

	ClassBody struct {
		Node
		Type    *ClassType
		Members []Member
	}

	FieldDecl struct {
		Node
		Var  *Var
		Init Expr
	}

	// Initializer is an instance or static initializer block.
	Initializer struct {
		Node
		Static bool
		Body   *Block
	}

	MethodDecl struct {
		Node
		Name    string
		Static  bool
		Formals []*Formal
		Body    *Block
	}

	ConstructorDecl struct {
		Node
		Name    string
		Formals []*Formal
		Body    *Block
	}

	// Formal is a method, constructor or catch parameter.
	Formal struct {
		Node
		Var *Var
	}
)

// File is a compilation unit.
type File struct {
	Name    string
	Classes []*ClassDecl
}

func (*Block) stmt()           {}
func (*LocalDecl) stmt()       {}
func (*LocalClassDecl) stmt()  {}
func (*Eval) stmt()            {}
func (*If) stmt()              {}
func (*While) stmt()           {}
func (*Do) stmt()              {}
func (*For) stmt()             {}
func (*Labeled) stmt()         {}
func (*Switch) stmt()          {}
func (*Case) stmt()            {}
func (*Break) stmt()           {}
func (*Continue) stmt()        {}
func (*Return) stmt()          {}
func (*Throw) stmt()           {}
func (*Try) stmt()             {}
func (*ConstructorCall) stmt() {}
func (*Empty) stmt()           {}

func (*Local) expr()       {}
func (*Field) expr()       {}
func (*This) expr()        {}
func (*TypeRef) expr()     {}
func (*Assign) expr()      {}
func (*Binary) expr()      {}
func (*Unary) expr()       {}
func (*Conditional) expr() {}
func (*BoolLit) expr()     {}
func (*Lit) expr()         {}
func (*Call) expr()        {}
func (*New) expr()         {}

func (*ClassDecl) member()       {}
func (*FieldDecl) member()       {}
func (*Initializer) member()     {}
func (*MethodDecl) member()      {}
func (*ConstructorDecl) member() {}

// IsCompound returns true for statements whose effect is entirely given by
// the statements they contain.
func IsCompound(t Term) bool {
	switch t.(type) {
	case *Block, *If, *While, *Do, *For, *Labeled, *Switch, *Try:
		return true
	}
	return false
}

// IsLoop returns true for While, Do and For.
func IsLoop(t Term) bool {
	switch t.(type) {
	case *While, *Do, *For:
		return true
	}
	return false
}
