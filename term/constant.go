package term

// IsBoolean returns true if e has boolean type.
func IsBoolean(e Expr) bool {
	switch e := e.(type) {
	case *BoolLit:
		return true
	case *Local:
		return e.Var.Type == "boolean"
	case *Field:
		return e.Var.Type == "boolean"
	case *Call:
		return e.Type == "boolean"
	case *Assign:
		return IsBoolean(e.Target)
	case *Unary:
		return e.Op == "!"
	case *Conditional:
		return IsBoolean(e.Then) && IsBoolean(e.Else)
	case *Binary:
		switch e.Op {
		case "&&", "||", "==", "!=", "<", "<=", ">", ">=":
			return true
		case "&", "|", "^":
			return IsBoolean(e.X) && IsBoolean(e.Y)
		}
	}
	return false
}

// IsConditional returns true for the boolean operators whose operands
// feed separate TRUE and FALSE edges: "&&", "||", "!", and the boolean
// forms of "&" and "|".
func IsConditional(e Expr) bool {
	switch e := e.(type) {
	case *Unary:
		return e.Op == "!"
	case *Binary:
		switch e.Op {
		case "&&", "||":
			return true
		case "&", "|":
			return IsBoolean(e.X) && IsBoolean(e.Y)
		}
	}
	return false
}

// ConstBool returns the value of a boolean constant expression.
// ok is false if e is not a constant expression.
func ConstBool(e Expr) (v bool, ok bool) {
	switch e := e.(type) {
	case *BoolLit:
		return e.Value, true
	case *Unary:
		if e.Op == "!" {
			if x, ok := ConstBool(e.X); ok {
				return !x, true
			}
		}
	case *Binary:
		x, okX := ConstBool(e.X)
		y, okY := ConstBool(e.Y)
		if !okX || !okY {
			return false, false
		}
		switch e.Op {
		case "&&", "&":
			return x && y, true
		case "||", "|":
			return x || y, true
		case "^", "!=":
			return x != y, true
		case "==":
			return x == y, true
		}
	}
	return false, false
}

// HasSideEffects returns true if evaluating e may change program state
// other than by throwing.
func HasSideEffects(e Expr) bool {
	effect := false
	Walk(e, func(t Term) bool {
		switch t := t.(type) {
		case *Assign, *Call, *New:
			effect = true
		case *Unary:
			if t.Op == "++" || t.Op == "--" {
				effect = true
			}
		}
		return !effect
	})
	return effect
}
