package definite

import (
	"bytes"
	"fmt"

	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/store"
	"github.com/nickng/flowcheck/term"
)

// Item is the dataflow fact of definite assignment: the status of every
// tracked variable, and whether the path may terminate normally.
type Item struct {
	vars   *store.Store // term.VarKey → Status
	normal bool
	dead   bool // On a path that never executes: every variable is Both.
}

func newItem(vars *store.Store, normal bool) Item {
	return Item{vars: vars, normal: normal}
}

// deadItem is the fact of a branch that is never taken. It is the identity
// of join.
func deadItem() Item { return Item{dead: true} }

// Status returns the status of v. ok is false if v is not tracked.
func (i Item) Status(v *term.Var) (s Status, ok bool) {
	if i.dead {
		return Both, true
	}
	val, ok := i.vars.Get(v.Key())
	if !ok {
		return Neither, false
	}
	return val.(Status), true
}

// Normal returns true if the path may terminate normally.
func (i Item) Normal() bool { return i.normal }

func (i Item) with(v *term.Var, s Status) Item {
	if i.dead {
		return i
	}
	return Item{vars: i.vars.With(v.Key(), s.valid()), normal: i.normal}
}

func (i Item) Equal(o dataflow.Item) bool {
	j := o.(Item)
	if i.dead || j.dead {
		return i.dead == j.dead
	}
	return i.normal == j.normal && i.vars.Equal(j.vars)
}

func join(a, b Item) Item {
	switch {
	case a.dead:
		return b
	case b.dead:
		return a
	}
	vars := store.Merge(a.vars, b.vars, func(_ store.Key, x, y store.Value) store.Value {
		return x.(Status).Join(y.(Status))
	})
	return Item{vars: vars, normal: a.normal || b.normal}
}

func joinInputs(in []dataflow.Input) Item {
	item := in[0].Item.(Item)
	for _, i := range in[1:] {
		item = join(item, i.Item.(Item))
	}
	return item
}

func (i Item) String() string {
	if i.dead {
		return "dead"
	}
	var buf bytes.Buffer
	if !i.normal {
		buf.WriteString("abnormal ")
	}
	buf.WriteString("{")
	sep := ""
	i.vars.Range(func(k store.Key, v store.Value) bool {
		fmt.Fprintf(&buf, "%s%s: %v", sep, k.Name(), v)
		sep = ", "
		return true
	})
	buf.WriteString("}")
	return buf.String()
}
