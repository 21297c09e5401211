package store

import (
	"fmt"
	"testing"
)

// testKey is a Key that does not come from a program.
type testKey struct {
	idx  int
	name string
}

func (k testKey) Name() string   { return k.name }
func (k testKey) Index() int     { return k.idx }
func (k testKey) String() string { return fmt.Sprintf("%s#%d", k.name, k.idx) }

var _ Key = testKey{}

func TestKeysOrderedByIndex(t *testing.T) {
	s := New().With(testKey{idx: 3, name: "z"}, 0).
		With(testKey{idx: 1, name: "x"}, 0).
		With(testKey{idx: 2, name: "y"}, 0)
	var got []string
	for _, k := range s.Keys() {
		got = append(got, k.String())
	}
	if want := "[x#1 y#2 z#3]"; fmt.Sprint(got) != want {
		t.Errorf("keys should be ordered by index\nwant: %s\ngot: %v", want, got)
	}
}
