package reach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term"
	"github.com/nickng/flowcheck/term/termyaml"
)

// check checks method m of the program and returns the lines of errors.
func check(t *testing.T, body string) []int {
	t.Helper()
	prog, err := termyaml.DecodeString(`
exceptions: [SpecificException]
classes:
  - class: C
    members:
      - method: m
        params: [{name: c, type: boolean}]
        body:
`+body, "test.yaml")
	require.NoError(t, err)
	errs := report.NewList()
	c := New(cfg.NewCache(prog.Types, cfg.DefaultOptions()), errs, nil)
	m := prog.File.Classes[0].Body.Members[0].(*term.MethodDecl)
	ok := c.CheckUnit(m)
	assert.Equal(t, errs.Len() == 0, ok)
	lines := []int{}
	for _, e := range errs.Errors() {
		assert.Equal(t, "Unreachable statement", e.Msg)
		lines = append(lines, e.Pos.Line)
	}
	return lines
}

func TestAfterReturn(t *testing.T) {
	lines := check(t, `
          - return
          - empty
          - empty
`)
	assert.Equal(t, []int{11}, lines, "only the first unreachable statement is reported")
}

func TestInfiniteLoop(t *testing.T) {
	assert.Equal(t, []int{12}, check(t, `
          - while: true
            body: [empty]
          - return
`))
	assert.Empty(t, check(t, `
          - while: true
            body:
              - if: c
                then: [break]
          - return
`))
}

func TestConstantConditions(t *testing.T) {
	assert.Empty(t, check(t, `
          - if: false
            then: [empty]
`), "the branches of if are reachable whatever the condition")
	assert.Equal(t, []int{11}, check(t, `
          - while: false
            body: [empty]
`))
	assert.Empty(t, check(t, `
          - while: {and: [c, false]}
            body: [empty]
`), "only constant conditions make a branch unreachable")
}

func TestFinallyCopies(t *testing.T) {
	assert.Equal(t, []int{13}, check(t, `
          - try: [return]
            finally:
              - eval: {call: f}
          - return
`), "the finally block is reached through the return")
}

func TestForUpdate(t *testing.T) {
	assert.Empty(t, check(t, `
          - for: c
            init: [{local: i, init: 0}]
            update: [{inc: i}]
            body: [break]
          - return
`))
}

func TestUncaughtCatch(t *testing.T) {
	assert.Empty(t, check(t, `
          - try: [empty]
            catch:
              - type: SpecificException
                name: e
                body: [empty]
`))
}
