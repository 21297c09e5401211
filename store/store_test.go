package store

import (
	"testing"
)

func TestStoreWithIsPersistent(t *testing.T) {
	x := testKey{idx: 1, name: "x"}
	y := testKey{idx: 2, name: "y"}
	s0 := New()
	s1 := s0.With(x, 1)
	s2 := s1.With(y, 2)
	if s0.Len() != 0 {
		t.Errorf("With should not modify the original store, got %d keys", s0.Len())
	}
	if v, ok := s1.Get(y); ok {
		t.Errorf("With should not modify the original store, got y ↦ %v", v)
	}
	if v, _ := s2.Get(x); v != 1 {
		t.Errorf("With should keep existing keys\nwant: 1 got: %v", v)
	}
	if s1.With(x, 1) != s1 {
		t.Errorf("With of an unchanged value should return the same store")
	}
	s3 := s2.Without(x)
	if _, ok := s3.Get(x); ok {
		t.Errorf("Without should remove x")
	}
	if _, ok := s2.Get(x); !ok {
		t.Errorf("Without should not modify the original store")
	}
}

func TestStoreKeysOrdered(t *testing.T) {
	var s *Store
	for _, i := range []int{5, 3, 9, 1} {
		s = s.With(testKey{idx: i}, i)
	}
	keys := s.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1].Index() >= keys[i].Index() {
			t.Errorf("Keys should be ordered by index, got %v", keys)
		}
	}
}

func TestStoreEqual(t *testing.T) {
	x := testKey{idx: 1}
	y := testKey{idx: 2}
	a := New().With(x, "A").With(y, "B")
	b := New().With(y, "B").With(x, "A")
	if !a.Equal(b) {
		t.Errorf("stores with the same mappings should be equal\n%s%s", a, b)
	}
	if a.Equal(b.With(y, "C")) {
		t.Errorf("stores with different values should not be equal")
	}
	var empty *Store
	if !empty.Equal(New()) {
		t.Errorf("nil store should equal an empty store")
	}
}

func TestMergeIntersect(t *testing.T) {
	x := testKey{idx: 1}
	y := testKey{idx: 2}
	z := testKey{idx: 3}
	a := New().With(x, 1).With(y, 2)
	b := New().With(y, 3).With(z, 4)
	sum := func(k Key, v, w Value) Value { return v.(int) + w.(int) }
	m := Merge(a, b, sum)
	if want, got := 3, m.Len(); want != got {
		t.Errorf("Merge should keep keys of both stores\nwant: %d got: %d", want, got)
	}
	if v, _ := m.Get(y); v != 5 {
		t.Errorf("Merge should join shared keys\nwant: 5 got: %v", v)
	}
	i := Intersect(a, b, func(k Key, v, w Value) (Value, bool) { return sum(k, v, w), true })
	if want, got := 1, i.Len(); want != got {
		t.Errorf("Intersect should only keep shared keys\nwant: %d got: %d", want, got)
	}
}
