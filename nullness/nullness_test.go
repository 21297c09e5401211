package nullness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/dataflow"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term"
	"github.com/nickng/flowcheck/term/termyaml"
)

// check checks method m and returns the lines of errors. Statements of the
// body start at line 13.
func check(t *testing.T, body string) []int {
	t.Helper()
	prog, err := termyaml.DecodeString(`
classes:
  - class: C
    members:
      - field: f
      - method: ok
        type: boolean
        body: [{return: true}]
      - method: m
        params: [{name: c, type: boolean}]
        body:
`+body, "test.yaml")
	require.NoError(t, err)
	errs := report.NewList()
	m := prog.File.Classes[0].Body.Members[2].(*term.MethodDecl)
	ok := New(cfg.NewCache(prog.Types, cfg.DefaultOptions()), errs, nil).CheckUnit(m)
	assert.Equal(t, errs.Len() == 0, ok)
	lines := []int{}
	for _, e := range errs.Errors() {
		assert.Contains(t, e.Msg, `the variable "x" can only be null`)
		lines = append(lines, e.Pos.Line)
	}
	return lines
}

func TestNullDereference(t *testing.T) {
	assert.Equal(t, []int{16}, check(t, `
          - local: x
            type: C
            init: null
          - eval: {call: ok, target: x}
`))
	assert.Equal(t, []int{16}, check(t, `
          - local: x
            type: C
            init: null
          - eval: x.f
`), "field access")
}

func TestPathsJoin(t *testing.T) {
	assert.Empty(t, check(t, `
          - local: x
            type: C
            init: null
          - if: c
            then: [{assign: x, value: {new: C}}]
          - eval: {call: ok, target: x}
`))
	assert.Empty(t, check(t, `
          - local: x
            type: C
            init: null
          - assign: x
            value: {call: ok}
          - eval: {call: ok, target: x}
`), "the result of a call may be either")
}

func TestShortCircuit(t *testing.T) {
	assert.Empty(t, check(t, `
          - local: x
            type: C
            init: null
          - if: c
            then: [{assign: x, value: {new: C}}]
          - if: {and: [{ne: [x, null]}, {call: ok, target: x}]}
            then: [empty]
`), "the call is reached only when x is not null")
	assert.Equal(t, []int{18}, check(t, `
          - local: x
            type: C
            init: null
          - if: c
            then: [{assign: x, value: {new: C}}]
          - if: {and: [{eq: [x, null]}, {call: ok, target: x}]}
            then: [empty]
`))
	assert.Empty(t, check(t, `
          - local: x
            type: C
            init: null
          - if: c
            then: [{assign: x, value: {new: C}}]
          - if: {or: [{eq: [x, null]}, {call: ok, target: x}]}
            then: [empty]
`))
}

func TestConditionRefinesBranches(t *testing.T) {
	assert.Equal(t, []int{18}, check(t, `
          - local: x
            type: C
          - assign: x
            value: {call: ok}
          - if: {eq: [null, x]}
            then: [{eval: {call: ok, target: x}}]
`))
	assert.Empty(t, check(t, `
          - local: x
            type: C
          - assign: x
            value: {call: ok}
          - if: {not: {eq: [x, null]}}
            then: [{eval: {call: ok, target: x}}]
`))
}

func TestDereferenceProvesNonNull(t *testing.T) {
	prog, err := termyaml.DecodeString(`
classes:
  - class: C
    members:
      - method: ok
        type: boolean
        body: [{return: true}]
      - method: m
        body:
          - local: x
            type: C
            init: {call: ok}
          - eval: {call: ok, target: x}
          - eval: {call: ok, target: x}
`, "test.yaml")
	require.NoError(t, err)
	m := prog.File.Classes[0].Body.Members[1].(*term.MethodDecl)
	g, err := cfg.NewCache(prog.Types, cfg.DefaultOptions()).Graph(m, true)
	require.NoError(t, err)
	res, err := dataflow.New(newAnalysis(m), nil).Run(g)
	require.NoError(t, err)

	target := func(i int) *term.Local {
		return m.Body.Stmts[i].(*term.Eval).X.(*term.Call).Target.(*term.Local)
	}
	x := target(1).Var
	first := res.In(g.PeersOf(target(1))[0]).(Item)
	_, known := first.State(x)
	assert.False(t, known, "x may be null before the first call")
	second := res.In(g.PeersOf(target(2))[0]).(Item)
	s, known := second.State(x)
	assert.True(t, known)
	assert.Equal(t, NonNull, s, "the first call completed normally")
}

func TestCombine(t *testing.T) {
	x := term.NewLocal("x", "C", false, term.Pos{})
	y := term.NewLocal("y", "C", false, term.Pos{})
	empty := Item{}
	a := empty.with(x, Null, true)
	b := empty.with(x, NonNull, true).with(y, NonNull, true)

	got := combine(a, b).(Item)
	_, known := got.State(x)
	assert.False(t, known, "x is Null in one fact and NonNull in the other")
	s, known := got.State(y)
	assert.True(t, known)
	assert.Equal(t, NonNull, s)

	j := join(a, b)
	assert.Zero(t, j.vars.Len(), "nothing holds on both paths")
}
