package dataflow

import (
	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/term"
)

// ItemToMap maps every key to item.
func ItemToMap(item Item, keys []cfg.EdgeKey) map[cfg.EdgeKey]Item {
	m := make(map[cfg.EdgeKey]Item, len(keys))
	for _, k := range keys {
		m[k] = item
	}
	return m
}

// ItemsToMap maps TRUE to t, FALSE to f and every other key to other.
func ItemsToMap(t, f, other Item, keys []cfg.EdgeKey) map[cfg.EdgeKey]Item {
	m := make(map[cfg.EdgeKey]Item, len(keys))
	for _, k := range keys {
		switch k {
		case cfg.KeyTrue:
			m[k] = t
		case cfg.KeyFalse:
			m[k] = f
		default:
			m[k] = other
		}
	}
	return m
}

// FlowBooleanConditions passes the TRUE and FALSE facts of the operands of
// a boolean connective through to its own TRUE and FALSE edges, swapping
// them for negation. It returns false if p is not a connective.
func FlowBooleanConditions(in *FlowInput, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]Item, bool) {
	e, ok := p.Term.(term.Expr)
	if !ok || !term.IsBoolean(e) {
		return nil, false
	}
	switch e := e.(type) {
	case *term.Unary:
		if e.Op != "!" {
			return nil, false
		}
		t, f := in.Split()
		return ItemsToMap(f, t, in.Item, keys), true
	case *term.Binary:
		if !term.IsConditional(e) {
			return nil, false
		}
	case *term.Conditional:
	default:
		return nil, false
	}
	t, f := in.Split()
	return ItemsToMap(t, f, in.Item, keys), true
}
