package definite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nickng/flowcheck/store"
	"github.com/nickng/flowcheck/term"
)

var statuses = []Status{Neither, Assigned, Unassigned, Both}

func TestStatusJoin(t *testing.T) {
	for _, a := range statuses {
		if got := a.Join(a); got != a {
			t.Errorf("join should be idempotent\nwant: %v got: %v", a, got)
		}
		for _, b := range statuses {
			if a.Join(b) != b.Join(a) {
				t.Errorf("join of %v and %v should be commutative", a, b)
			}
			for _, c := range statuses {
				if a.Join(b).Join(c) != a.Join(b.Join(c)) {
					t.Errorf("join of %v, %v and %v should be associative", a, b, c)
				}
			}
		}
	}
	if got := Assigned.Join(Unassigned); got != Neither {
		t.Errorf("conflicting paths\nwant: %v got: %v", Neither, got)
	}
	if got := Both.Join(Assigned); got != Assigned {
		t.Errorf("Both is the identity\nwant: %v got: %v", Assigned, got)
	}
	if s := StatusOf(true, false); !s.DA() || s.DU() {
		t.Errorf("StatusOf(true, false) should be %v, got %v", Assigned, s)
	}
}

func TestInvalidStatusPanics(t *testing.T) {
	assert.Panics(t, func() { Status(7).Join(Assigned) })
	assert.Panics(t, func() { Status(4).DA() })
}

// items returns every fact over the variables x and y.
func items() []Item {
	x := term.NewLocal("x", "int", false, term.Pos{})
	y := term.NewLocal("y", "int", false, term.Pos{})
	all := []Item{deadItem()}
	for _, normal := range []bool{true, false} {
		for sx := -1; sx < len(statuses); sx++ {
			for sy := -1; sy < len(statuses); sy++ {
				vars := store.New()
				if sx >= 0 {
					vars = vars.With(x.Key(), statuses[sx])
				}
				if sy >= 0 {
					vars = vars.With(y.Key(), statuses[sy])
				}
				all = append(all, newItem(vars, normal))
			}
		}
	}
	return all
}

func TestItemJoinLaws(t *testing.T) {
	all := items()
	for _, a := range all {
		assert.True(t, join(a, a).Equal(a), "join(%v, %v) should be %v", a, a, a)
		assert.True(t, join(a, deadItem()).Equal(a), "dead should be the identity of join")
		for _, b := range all {
			ab := join(a, b)
			if !ab.Equal(join(b, a)) {
				t.Fatalf("join(%v, %v) should be commutative", a, b)
			}
			for _, c := range all {
				if !join(ab, c).Equal(join(a, join(b, c))) {
					t.Fatalf("join of %v, %v and %v should be associative", a, b, c)
				}
			}
		}
	}
}
