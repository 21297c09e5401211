package definite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term/termyaml"
)

func check(t *testing.T, src string) []*report.Error {
	t.Helper()
	return checkWith(t, src, cfg.DefaultOptions())
}

func checkWith(t *testing.T, src string, opts cfg.Options) []*report.Error {
	t.Helper()
	prog, err := termyaml.DecodeString(src, "test.yaml")
	require.NoError(t, err)
	errs := report.NewList()
	New(cfg.NewCache(prog.Types, opts), errs, nil).CheckFile(prog.File)
	return errs.Errors()
}

func messages(errs []*report.Error) []string {
	msgs := []string{}
	for _, e := range errs {
		msgs = append(msgs, e.Msg)
	}
	return msgs
}

func method(body string) string {
	return `
classes:
  - class: C
    members:
      - method: m
        params: [{name: c, type: boolean}]
        body:
` + body
}

func TestFinalLocalAssignedOnce(t *testing.T) {
	errs := check(t, method(`
          - local: x
            final: true
          - assign: x
            value: 1
`))
	assert.Empty(t, messages(errs))
}

func TestLocalReadBeforeAssignment(t *testing.T) {
	errs := check(t, method(`
          - local: x
            final: true
          - local: y
            init: {add: [x, 1]}
`))
	require.Equal(t, []string{`Local variable "x" may not have been initialized`}, messages(errs))
	assert.Equal(t, 12, errs[0].Pos.Line, "error should be at the use of x")
}

func TestFinalLocalAssignedTwice(t *testing.T) {
	errs := check(t, method(`
          - local: x
            final: true
            init: 1
          - assign: x
            value: 2
`))
	assert.Equal(t, []string{`Final variable "x" might already have been initialized`}, messages(errs))
}

func TestFinalLocalAssignedInLoop(t *testing.T) {
	errs := check(t, method(`
          - local: x
            final: true
          - while: c
            body:
              - assign: x
                value: 1
`))
	assert.Equal(t, []string{`Final variable "x" might already have been initialized`}, messages(errs))
}

func TestBothBranchesAssign(t *testing.T) {
	errs := check(t, method(`
          - local: x
          - if: c
            then: [{assign: x, value: 1}]
            else: [{assign: x, value: 2}]
          - return: x
`))
	assert.Empty(t, messages(errs))

	errs = check(t, method(`
          - local: x
          - if: c
            then: [{assign: x, value: 1}]
          - return: x
`))
	assert.Equal(t, []string{`Local variable "x" may not have been initialized`}, messages(errs))
}

func TestDeadBranchIgnored(t *testing.T) {
	errs := check(t, method(`
          - local: x
          - if: true
            then: [{assign: x, value: 1}]
            else: [empty]
          - return: x
`))
	assert.Empty(t, messages(errs))
}

func TestUnreachableReadIgnored(t *testing.T) {
	errs := check(t, method(`
          - local: x
          - return
          - eval: {add: [x, 1]}
`))
	assert.Empty(t, messages(errs))
}

func TestConstructorDelegation(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - assign: f
            value: 1
      - constructor:
          - this: []
        params: [z]
`)
	assert.Empty(t, messages(errs))
}

func TestConstructorMissesField(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor: []
`)
	require.Equal(t, []string{`Final field "f" might not have been initialized`}, messages(errs))
	assert.Equal(t, 7, errs[0].Pos.Line, "error should be at the constructor")
}

func TestOnlyOneConstructorMissesField(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - assign: f
            value: 1
      - constructor: [empty]
        params: [z]
`)
	require.Len(t, errs, 1)
	assert.Equal(t, 10, errs[0].Pos.Line)
}

func TestAbnormalConstructorNeedNotInitialise(t *testing.T) {
	errs := check(t, `
exceptions: [Boom]
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - throw: Boom
`)
	assert.Empty(t, messages(errs))
}

func TestFieldInitializedTwice(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: f
        final: true
        init: 1
      - constructor:
          - assign: f
            value: 2
`)
	assert.Equal(t, []string{`Final field "f" might already have been initialized`}, messages(errs))
}

func TestInitializerOrder(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: f
        final: true
      - initializer:
          - assign: f
            value: 1
      - field: g
        init: f
      - constructor: []
`)
	assert.Empty(t, messages(errs), "f is initialised before the constructor and before g")

	errs = check(t, `
classes:
  - class: C
    members:
      - field: f
        final: true
      - initializer:
          - local: y
            init: f
          - assign: f
            value: 1
`)
	assert.Equal(t, []string{`Final field "f" might not have been initialized`}, messages(errs))
}

func TestStaticFinalField(t *testing.T) {
	src := `
classes:
  - class: C
    members:
      - field: g
        final: true
        static: true
`
	errs := check(t, src)
	require.Equal(t, []string{`Final field "g" might not have been initialized`}, messages(errs))
	assert.Equal(t, 5, errs[0].Pos.Line, "error should be at the field")

	errs = check(t, src+`
      - initializer:
          - assign: g
            value: 1
        static: true
`)
	assert.Empty(t, messages(errs))
}

func TestStaticFinalWrittenByConstructor(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: g
        final: true
        static: true
        init: 1
      - constructor:
          - assign: g
            value: 2
`)
	require.Equal(t, []string{`Final field "g" might already have been initialized`}, messages(errs))
	assert.Equal(t, 10, errs[0].Pos.Line, "error should be at the assignment")

	errs = check(t, `
classes:
  - class: C
    members:
      - field: g
        final: true
        static: true
      - initializer:
          - assign: g
            value: 2
      - initializer:
          - assign: g
            value: 1
        static: true
`)
	assert.Equal(t, []string{`Final field "g" might already have been initialized`}, messages(errs),
		"static initializers run before instance code")
}

func TestStaticFinalReadByInstanceCode(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - field: g
        final: true
        static: true
      - field: h
        init: g
      - initializer:
          - assign: g
            value: 1
        static: true
`)
	assert.Empty(t, messages(errs))
}

func TestExceptionalExitDiscarded(t *testing.T) {
	opts := cfg.Options{ExceptionEdgesToExit: true}
	errs := checkWith(t, `
exceptions: [Boom]
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - if: c
            then: [{assign: f, value: 1}]
            else: [{throw: Boom}]
        params: [{name: c, type: boolean}]
`, opts)
	assert.Empty(t, messages(errs), "f is unassigned only on the exceptional path")

	errs = checkWith(t, `
exceptions: [Boom]
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - throw: Boom
`, opts)
	assert.Empty(t, messages(errs), "a constructor that always throws is abnormal")

	errs = checkWith(t, `
exceptions: [Boom]
classes:
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - if: c
            then: [{throw: Boom}]
        params: [{name: c, type: boolean}]
`, opts)
	assert.Equal(t, []string{`Final field "f" might not have been initialized`}, messages(errs),
		"the normal path still has to initialise f")
}

func TestOtherClassFieldIgnored(t *testing.T) {
	errs := check(t, `
classes:
  - class: D
    members:
      - field: h
        final: true
        init: 0
  - class: C
    members:
      - field: f
        final: true
      - constructor:
          - local: d
            type: D
          - assign: d
            value: null
          - assign: f
            value: d.h
`)
	assert.Empty(t, messages(errs))
}

func TestCapturedLocal(t *testing.T) {
	src := func(assignFirst bool) string {
		s := `
classes:
  - class: C
    members:
      - method: m
        body:
          - local: x
`
		if assignFirst {
			s += `
          - assign: x
            value: 1
`
		}
		return s + `
          - eval:
              new: Object
              members:
                - method: run
                  body:
                    - eval: {add: [x, 1]}
`
	}
	errs := check(t, src(false))
	assert.Equal(t, []string{`Local variable "x" must be initialized before the class declaration.`}, messages(errs))
	assert.Empty(t, messages(check(t, src(true))))
}

func TestFirstErrorPerUnit(t *testing.T) {
	errs := check(t, `
classes:
  - class: C
    members:
      - method: m
        body:
          - local: x
          - local: y
          - eval: {add: [x, y]}
      - method: n
        body:
          - local: z
          - return: z
`)
	assert.Equal(t, []string{
		`Local variable "x" may not have been initialized`,
		`Local variable "z" may not have been initialized`,
	}, messages(errs))
}

func TestCheckExpr(t *testing.T) {
	prog, err := termyaml.DecodeString(`
locals: [{name: a, type: boolean}]
exprs:
  - {and: [a, true]}
`, "expr.yaml")
	require.NoError(t, err)
	errs := report.NewList()
	c := New(cfg.NewCache(prog.Types, cfg.DefaultOptions()), errs, nil)
	c.CheckExpr(prog.Exprs[0])
	assert.Zero(t, errs.Len())
	assert.Equal(t, 1, c.Units)
}
