package copyprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/term"
	"github.com/nickng/flowcheck/term/termyaml"
)

// substitutions analyses method m and returns its substitutions as
// "line: use -> var".
func substitutions(t *testing.T, body string) []string {
	t.Helper()
	prog, err := termyaml.DecodeString(`
classes:
  - class: C
    members:
      - method: m
        params: [{name: c, type: boolean}]
        body:
`+body, "test.yaml")
	require.NoError(t, err)
	m := prog.File.Classes[0].Body.Members[0].(*term.MethodDecl)
	g, err := cfg.NewCache(prog.Types, cfg.DefaultOptions()).Graph(m, true)
	require.NoError(t, err)
	r, err := Analyse(g, nil)
	require.NoError(t, err)
	subst := []string{}
	for _, s := range r.Substitutions() {
		subst = append(subst, s.String())
	}
	return subst
}

func TestCopyChain(t *testing.T) {
	subst := substitutions(t, `
          - local: a
            init: 1
          - local: b
            init: a
          - local: c
            init: b
          - return: c
`)
	assert.Equal(t, []string{
		"test.yaml:14:19: b -> a",
		"test.yaml:15:21: c -> a",
	}, subst)
}

func TestSourceReassigned(t *testing.T) {
	subst := substitutions(t, `
          - local: a
            init: 1
          - local: b
            init: a
          - assign: a
            value: 2
          - return: b
`)
	assert.Empty(t, subst, "b keeps the old value of a")
}

func TestBranchesMeet(t *testing.T) {
	subst := substitutions(t, `
          - local: a
            init: 1
          - local: b
          - if: c
            then: [{assign: b, value: a}]
            else: [{assign: b, value: 2}]
          - return: b
`)
	assert.Empty(t, subst)

	subst = substitutions(t, `
          - local: a
            init: 1
          - local: b
          - if: c
            then: [{assign: b, value: a}]
            else: [{assign: b, value: a}]
          - return: b
`)
	assert.Equal(t, []string{"test.yaml:15:21: b -> a"}, subst)
}

func TestOutOfScope(t *testing.T) {
	subst := substitutions(t, `
          - local: b
          - block:
              - local: a
                init: 1
              - assign: b
                value: a
          - return: b
`)
	assert.Empty(t, subst, "a is not visible at the return")
}

func TestIncrementKills(t *testing.T) {
	subst := substitutions(t, `
          - local: a
            init: 1
          - local: b
            init: a
          - inc: b
          - return: b
`)
	assert.Empty(t, subst, "b is written by the increment")
}

// forests returns every flat forest over n elements.
func forests(n int) []forest {
	var all []forest
	var gen func(f forest, i int)
	gen = func(f forest, i int) {
		if i == n {
			for j := range f {
				if f[f[j]] != f[j] {
					return
				}
			}
			all = append(all, f.clone())
			return
		}
		for r := 0; r < n; r++ {
			f[i] = r
			gen(f, i+1)
		}
	}
	gen(make(forest, n), 0)
	return all
}

func TestMeetLaws(t *testing.T) {
	all := forests(3)
	eq := func(a, b forest) bool { return Item{a}.Equal(Item{b}) }
	for _, a := range all {
		if got := meet(a, a); !eq(got, a) {
			t.Errorf("meet should be idempotent\nwant: %v got: %v", a, got)
		}
		for _, b := range all {
			ab := meet(a, b)
			if !eq(ab, meet(b, a)) {
				t.Errorf("meet of %v and %v should be commutative", a, b)
			}
			for _, c := range all {
				if !eq(meet(ab, c), meet(a, meet(b, c))) {
					t.Errorf("meet of %v, %v and %v should be associative", a, b, c)
				}
			}
		}
	}
}

func TestKillKeepsTree(t *testing.T) {
	f := forest{0, 0, 0}
	got := f.kill(0)
	assert.Equal(t, forest{0, 1, 1}, got, "1 becomes the root of the rest")
	assert.Equal(t, forest{0, 0, 0}, f, "kill copies")
	assert.Equal(t, forest{0, 1, 0}, forest{0, 1, 2}.copy(2, 0))
}
