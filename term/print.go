package term

import (
	"fmt"
	"strings"
)

// Describe returns a short one-line description of a term.
func Describe(t Term) string {
	switch t := t.(type) {
	case *Block:
		return fmt.Sprintf("block{%d}", len(t.Stmts))
	case *LocalDecl:
		if t.Init != nil {
			return fmt.Sprintf("%s %s = %s", t.Var.Type, t.Var.Name, String(t.Init))
		}
		return fmt.Sprintf("%s %s", t.Var.Type, t.Var.Name)
	case *LocalClassDecl:
		return "class " + t.Decl.Type.Name
	case *Eval:
		return String(t.X)
	case *If:
		return fmt.Sprintf("if (%s)", String(t.Cond))
	case *While:
		return fmt.Sprintf("while (%s)", String(t.Cond))
	case *Do:
		return fmt.Sprintf("do-while (%s)", String(t.Cond))
	case *For:
		if t.Cond == nil {
			return "for (;;)"
		}
		return fmt.Sprintf("for (; %s;)", String(t.Cond))
	case *Labeled:
		return t.Label + ":"
	case *Switch:
		return fmt.Sprintf("switch (%s)", String(t.Tag))
	case *Case:
		if t.Value == nil {
			return "default:"
		}
		return fmt.Sprintf("case %s:", String(t.Value))
	case *Break:
		return strings.TrimSpace("break " + t.Label)
	case *Continue:
		return strings.TrimSpace("continue " + t.Label)
	case *Return:
		if t.Result == nil {
			return "return"
		}
		return "return " + String(t.Result)
	case *Throw:
		return "throw " + t.Exception.Name
	case *Try:
		return "try"
	case *Catch:
		return fmt.Sprintf("catch (%s %s)", t.Type.Name, t.Formal.Var.Name)
	case *ConstructorCall:
		return fmt.Sprintf("%s(%s)", t.Kind, list(t.Args))
	case *Empty:
		return ";"
	case *ClassDecl:
		return "class " + t.Type.Name
	case *ClassBody:
		return "body of " + t.Type.Name
	case *FieldDecl:
		if t.Init != nil {
			return fmt.Sprintf("field %s = %s", t.Var.Name, String(t.Init))
		}
		return "field " + t.Var.Name
	case *Initializer:
		if t.Static {
			return "static initializer"
		}
		return "initializer"
	case *MethodDecl:
		return fmt.Sprintf("method %s", t.Name)
	case *ConstructorDecl:
		return fmt.Sprintf("constructor %s", t.Name)
	case *Formal:
		return fmt.Sprintf("formal %s", t.Var.Name)
	case Expr:
		return String(t)
	}
	return fmt.Sprintf("%T", t)
}

// String returns the source form of an expression.
func String(e Expr) string {
	switch e := e.(type) {
	case *Local:
		return e.Var.Name
	case *Field:
		if e.Target == nil {
			return e.Var.Name
		}
		return String(e.Target) + "." + e.Var.Name
	case *This:
		if e.Qualified {
			return e.Class.Name + ".this"
		}
		return "this"
	case *TypeRef:
		return e.Class.Name
	case *Assign:
		return fmt.Sprintf("%s %s %s", String(e.Target), e.Op, String(e.Value))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", String(e.X), e.Op, String(e.Y))
	case *Unary:
		if e.Postfix {
			return String(e.X) + e.Op
		}
		return e.Op + String(e.X)
	case *Conditional:
		return fmt.Sprintf("(%s ? %s : %s)", String(e.Cond), String(e.Then), String(e.Else))
	case *BoolLit:
		return fmt.Sprintf("%t", e.Value)
	case *Lit:
		switch e.Kind {
		case NullLit:
			return "null"
		case StringLit:
			return fmt.Sprintf("%q", e.Value)
		}
		return e.Value
	case *Call:
		if e.Target == nil {
			return fmt.Sprintf("%s(%s)", e.Name, list(e.Args))
		}
		return fmt.Sprintf("%s.%s(%s)", String(e.Target), e.Name, list(e.Args))
	case *New:
		if e.Body != nil {
			return fmt.Sprintf("new %s(%s){...}", e.Class.Name, list(e.Args))
		}
		return fmt.Sprintf("new %s(%s)", e.Class.Name, list(e.Args))
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", e)
}

func list(es []Expr) string {
	var parts []string
	for _, e := range es {
		parts = append(parts, String(e))
	}
	return strings.Join(parts, ", ")
}
