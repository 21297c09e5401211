package dataflow

import "github.com/nickng/flowcheck/term"

// BoolItem is a pair of facts, holding when a condition is true and when
// it is false.
type BoolItem struct {
	True, False Item
}

// Navigator computes the TRUE and FALSE facts of a condition from the fact
// before it, following the short-circuit structure of the condition.
type Navigator struct {
	// Combine returns the fact holding when both a and b hold.
	Combine func(a, b Item) Item

	// Handle returns the facts of a condition that is not a connective.
	// It returns false if the condition tells nothing.
	Handle func(e term.Expr, start Item) (BoolItem, bool)
}

// Navigate returns the facts of e starting from start.
//
// For a && b, b starts from the TRUE fact of a, and the TRUE fact of the
// conjunction combines the TRUE facts of both sides; its FALSE fact is
// start. a || b is symmetric, and !a swaps the facts of a. The
// non-short-circuit & and | start both sides from start.
func (n *Navigator) Navigate(e term.Expr, start Item) BoolItem {
	switch e := e.(type) {
	case *term.Unary:
		if e.Op == "!" {
			b := n.Navigate(e.X, start)
			return BoolItem{True: b.False, False: b.True}
		}
	case *term.Binary:
		switch {
		case e.Op == "&&":
			l := n.Navigate(e.X, start)
			r := n.Navigate(e.Y, l.True)
			return BoolItem{True: n.Combine(l.True, r.True), False: start}
		case e.Op == "||":
			l := n.Navigate(e.X, start)
			r := n.Navigate(e.Y, l.False)
			return BoolItem{True: start, False: n.Combine(l.False, r.False)}
		case e.Op == "&" && term.IsConditional(e):
			l := n.Navigate(e.X, start)
			r := n.Navigate(e.Y, start)
			return BoolItem{True: n.Combine(l.True, r.True), False: start}
		case e.Op == "|" && term.IsConditional(e):
			l := n.Navigate(e.X, start)
			r := n.Navigate(e.Y, start)
			return BoolItem{True: start, False: n.Combine(l.False, r.False)}
		}
	}
	if n.Handle != nil {
		if b, ok := n.Handle(e, start); ok {
			return b
		}
	}
	return BoolItem{True: start, False: start}
}
