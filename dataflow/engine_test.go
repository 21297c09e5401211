package dataflow

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/store"
	"github.com/nickng/flowcheck/term"
	"github.com/nickng/flowcheck/term/termyaml"
)

// known is the set of locals definitely assigned, or known to be true for
// boolean locals read as conditions. all is the top element.
type known struct {
	s   *store.Store
	all bool
}

func (k known) Equal(o Item) bool {
	other := o.(known)
	return k.all == other.all && k.s.Equal(other.s)
}

func (k known) with(v *term.Var) known {
	if k.all {
		return k
	}
	return known{s: k.s.With(v.Key(), true)}
}

func (k known) has(name string) bool {
	if k.all {
		return true
	}
	found := false
	k.s.Range(func(key store.Key, _ store.Value) bool {
		found = found || key.Name() == name
		return !found
	})
	return found
}

func meet(a, b known) known {
	switch {
	case a.all:
		return b
	case b.all:
		return a
	}
	return known{s: store.Intersect(a.s, b.s, func(_ store.Key, v, _ store.Value) (store.Value, bool) { return v, true })}
}

type knownAnalysis struct {
	confluences int
	missingKey  bool
	errAt       term.Term
}

func (a *knownAnalysis) Forward() bool { return true }

func (a *knownAnalysis) CreateInitialItem(g *cfg.Graph, p *cfg.Peer) Item {
	return known{s: store.New()}
}

func (a *knownAnalysis) Confluence(in []Input, p *cfg.Peer, g *cfg.Graph) Item {
	a.confluences++
	item := in[0].Item.(known)
	for _, i := range in[1:] {
		item = meet(item, i.Item.(known))
	}
	return item
}

func (a *knownAnalysis) Flow(in *FlowInput, g *cfg.Graph, p *cfg.Peer, keys []cfg.EdgeKey) (map[cfg.EdgeKey]Item, error) {
	if a.missingKey {
		return map[cfg.EdgeKey]Item{}, nil
	}
	if p.Term == a.errAt {
		return nil, errors.New("flow failed")
	}
	if m, ok := FlowBooleanConditions(in, p, keys); ok {
		return m, nil
	}
	item := in.Item.(known)
	switch t := p.Term.(type) {
	case *term.Local:
		if term.IsBoolean(t) {
			return ItemsToMap(item.with(t.Var), item, item, keys), nil
		}
	case *term.LocalDecl:
		if t.Init != nil {
			item = item.with(t.Var)
		}
	case *term.Assign:
		if l, ok := t.Target.(*term.Local); ok {
			item = item.with(l.Var)
		}
	}
	return ItemToMap(item, keys), nil
}

func (a *knownAnalysis) Check(g *cfg.Graph, p *cfg.Peer, in Item, out map[cfg.EdgeKey]Item) error {
	return nil
}

type prunedAnalysis struct {
	knownAnalysis
}

func (a *prunedAnalysis) DeadItem(g *cfg.Graph, p *cfg.Peer) (Item, bool) {
	return known{all: true}, true
}

func method(t *testing.T, body string) (*term.MethodDecl, *cfg.Graph) {
	t.Helper()
	src := `
classes:
  - class: C
    members:
      - method: m
        params: [{name: a, type: boolean}, {name: b, type: boolean}]
        body:
` + body
	prog, err := termyaml.DecodeString(src, "test.yaml")
	require.NoError(t, err)
	m := prog.File.Classes[0].Body.Members[0].(*term.MethodDecl)
	g, err := cfg.Build(m, prog.Types, true, cfg.DefaultOptions())
	require.NoError(t, err)
	return m, g
}

func TestDeadBranchPruned(t *testing.T) {
	m, g := method(t, `
          - local: x
          - if: true
            then: [{assign: x, value: 1}]
          - return: x
`)
	ifPeer := g.Lookup(m.Body.Stmts[1], nil)

	res, err := New(&knownAnalysis{}, nil).Dataflow(g)
	require.NoError(t, err)
	assert.False(t, res.In(ifPeer).(known).has("x"), "the FALSE branch does not assign x")

	res, err = New(&prunedAnalysis{}, nil).Dataflow(g)
	require.NoError(t, err)
	assert.True(t, res.In(ifPeer).(known).has("x"), "the FALSE branch of true is dead")
}

// naive computes the fixpoint by sweeping all peers in reverse order until
// nothing changes.
func naive(e *Engine, g *cfg.Graph) *Result {
	res := newResult(g)
	starts := make(map[*cfg.Peer]bool)
	for _, p := range g.StartPeers() {
		starts[p] = true
	}
	for changed := true; changed; {
		changed = false
		peers := g.Peers()
		for i := len(peers) - 1; i >= 0; i-- {
			p := peers[i]
			inputs := e.inputs(res, g, p, starts[p])
			var in Item
			switch len(inputs) {
			case 0:
				continue
			case 1:
				in = inputs[0].Item
			default:
				in = e.a.Confluence(inputs, p, g)
			}
			out, _ := e.a.Flow(&FlowInput{Item: in, Keyed: inputs, a: e.a, g: g, p: p, res: res}, g, p, p.SuccKeys())
			if res.in[i] == nil || !equalOut(res.out[i], out) {
				changed = true
			}
			res.in[i], res.out[i] = in, out
		}
	}
	return res
}

func TestFixpointOrderIndependent(t *testing.T) {
	_, g := method(t, `
          - local: x
          - local: y
            init: 0
          - while: a
            body:
              - assign: x
                value: 1
              - if: b
                then: [break]
          - do: [{assign: y, value: 2}]
            while: {and: [a, b]}
          - return: y
`)
	e := New(&knownAnalysis{}, nil)
	res, err := e.Dataflow(g)
	require.NoError(t, err)
	want := naive(e, g)
	for _, p := range g.Peers() {
		if want.in[p.Index] == nil {
			assert.Nil(t, res.In(p), "peer %v", p)
			continue
		}
		require.NotNil(t, res.In(p), "peer %v", p)
		assert.True(t, want.in[p.Index].Equal(res.In(p)), "peer %v\nwant: %v\ngot: %v", p, want.in[p.Index], res.In(p))
	}
}

func TestSingleInputSkipsConfluence(t *testing.T) {
	_, g := method(t, `
          - local: x
            init: 1
          - return: x
`)
	a := &knownAnalysis{}
	_, err := New(a, nil).Run(g)
	require.NoError(t, err)
	assert.Zero(t, a.confluences)
}

func TestMissingKeyPanics(t *testing.T) {
	_, g := method(t, "          - return\n")
	defer func() {
		r := recover()
		require.NotNil(t, r, "missing edge key should panic")
		_, ok := r.(*InternalError)
		assert.True(t, ok, "panic should be an InternalError, got %T", r)
	}()
	New(&knownAnalysis{missingKey: true}, nil).Dataflow(g)
}

func TestFlowErrorStopsUnit(t *testing.T) {
	m, g := method(t, `
          - local: x
            init: 1
          - return: x
`)
	_, err := New(&knownAnalysis{errAt: m.Body.Stmts[1]}, nil).Run(g)
	assert.EqualError(t, err, "flow failed")
}

func TestBooleanConditions(t *testing.T) {
	m, g := method(t, `
          - if: {not: {and: [a, b]}}
            then: [empty]
            else: [empty]
`)
	ifStmt := m.Body.Stmts[0].(*term.If)
	res, err := New(&knownAnalysis{}, nil).Dataflow(g)
	require.NoError(t, err)

	then := res.In(g.Lookup(term.Entry(ifStmt.Then), nil)).(known)
	assert.False(t, then.has("a") || then.has("b"), "a && b may be false either way")
	els := res.In(g.Lookup(term.Entry(ifStmt.Else), nil)).(known)
	assert.True(t, els.has("a") && els.has("b"), "!(a && b) is false only if both are true")
}

func TestNavigator(t *testing.T) {
	prog, err := termyaml.DecodeString(`
locals: [{name: a, type: boolean}, {name: b, type: boolean}]
exprs:
  - {or: [{not: a}, b]}
  - {and: [a, {band: [a, b]}]}
`, "exprs.yaml")
	require.NoError(t, err)

	nav := &Navigator{
		Combine: func(x, y Item) Item {
			return known{s: store.Merge(x.(known).s, y.(known).s, func(_ store.Key, v, _ store.Value) store.Value { return v })}
		},
		Handle: func(e term.Expr, start Item) (BoolItem, bool) {
			if l, ok := e.(*term.Local); ok {
				return BoolItem{True: start.(known).with(l.Var), False: start}, true
			}
			return BoolItem{}, false
		},
	}
	start := known{s: store.New()}

	or := nav.Navigate(prog.Exprs[0], start)
	assert.True(t, or.True.Equal(start), "!a || b tells nothing when true")
	assert.True(t, or.False.(known).has("a"), "!a || b is false only if a is true")

	and := nav.Navigate(prog.Exprs[1], start)
	assert.True(t, and.True.(known).has("a") && and.True.(known).has("b"))
	assert.True(t, and.False.Equal(start))
}
