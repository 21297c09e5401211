// Package store provides a persistent key-value store for analysis facts.
// Keys are nameable variables, and a Store is never modified after it is
// created: every update returns a new Store.
package store

import (
	"bytes"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Key is a nameable key for lookup in storage.
//
// Key represents a variable whose index is unique in the program.
// The index is used for ordering keys deterministically.
type Key interface {
	Name() string // (Short) name of key.
	Index() int   // Unique index of key.
	String() string
}

// A Value is the fact stored for a key. Values are compared with ==.
type Value interface{}

// Store is an immutable map from Key to Value.
//
// The zero value and nil are both empty stores.
type Store struct {
	names map[Key]Value
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Get retrieves the Value of k.
func (s *Store) Get(k Key) (Value, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.names[k]
	return v, ok
}

// With returns a new store where k is mapped to v.
func (s *Store) With(k Key, v Value) *Store {
	if old, ok := s.Get(k); ok && old == v {
		return s
	}
	names := make(map[Key]Value, s.Len()+1)
	if s != nil {
		for key, val := range s.names {
			names[key] = val
		}
	}
	names[k] = v
	return &Store{names: names}
}

// Without returns a new store without k.
func (s *Store) Without(k Key) *Store {
	if _, ok := s.Get(k); !ok {
		return s
	}
	names := make(map[Key]Value, s.Len())
	for key, val := range s.names {
		if key != k {
			names[key] = val
		}
	}
	return &Store{names: names}
}

// Len returns the number of keys.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Keys returns the keys ordered by index.
func (s *Store) Keys() []Key {
	if s == nil {
		return nil
	}
	keys := maps.Keys(s.names)
	slices.SortFunc(keys, func(a, b Key) bool { return a.Index() < b.Index() })
	return keys
}

// Range calls fn for each key in order until fn returns false.
func (s *Store) Range(fn func(k Key, v Value) bool) {
	for _, k := range s.Keys() {
		if !fn(k, s.names[k]) {
			return
		}
	}
}

// Equal returns true if both stores have the same keys mapped to equal
// values.
func (s *Store) Equal(t *Store) bool {
	if s.Len() != t.Len() {
		return false
	}
	if s.Len() == 0 {
		return true
	}
	for k, v := range s.names {
		if w, ok := t.names[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Merge returns the union of a and b, where keys present in both are
// mapped to join of their values. Keys present in only one store keep
// their value.
func Merge(a, b *Store, join func(k Key, x, y Value) Value) *Store {
	if a.Len() == 0 {
		return b
	}
	if b.Len() == 0 {
		return a
	}
	names := make(map[Key]Value, a.Len()+b.Len())
	for k, v := range a.names {
		names[k] = v
	}
	for k, y := range b.names {
		if x, ok := names[k]; ok {
			names[k] = join(k, x, y)
		} else {
			names[k] = y
		}
	}
	return &Store{names: names}
}

// Intersect returns a store of the keys present in both a and b, mapped to
// the join of their values. join may drop a key by returning ok false.
func Intersect(a, b *Store, join func(k Key, x, y Value) (Value, bool)) *Store {
	names := make(map[Key]Value)
	if a != nil && b != nil {
		for k, x := range a.names {
			if y, ok := b.names[k]; ok {
				if v, ok := join(k, x, y); ok {
					names[k] = v
				}
			}
		}
	}
	return &Store{names: names}
}

func (s *Store) String() string {
	var buf bytes.Buffer
	buf.WriteString("┌─────┄ name: val ┄──────\n")
	s.Range(func(k Key, v Value) bool {
		buf.WriteString(fmt.Sprintf("│ %v:\t%v\n", k.Name(), v))
		return true
	})
	buf.WriteString("└────────────────────────\n")
	return buf.String()
}
