package copyprop

import "golang.org/x/exp/slices"

// forest is a union-find over the variables of a code unit, by arena index.
// A forest held by an Item is flat: every element points at its root.
type forest []int

func newForest(n int) forest {
	f := make(forest, n)
	for i := range f {
		f[i] = i
	}
	return f
}

func (f forest) clone() forest { return slices.Clone(f) }

// find returns the root of i, halving the path as it goes.
func (f forest) find(i int) int {
	for f[i] != i {
		f[i] = f[f[i]]
		i = f[i]
	}
	return i
}

// flatten points every element at its root.
func (f forest) flatten() forest {
	for i := range f {
		f[i] = f.find(i)
	}
	return f
}

// kill removes i from its tree. If i was a root, the smallest remaining
// member becomes the root of the others.
func (f forest) kill(i int) forest {
	g := f.clone()
	if g[i] == i {
		root := -1
		for j := range g {
			if j == i || g.find(j) != i {
				continue
			}
			if root < 0 {
				root = j
			}
			g[j] = root
		}
	}
	g[i] = i
	return g.flatten()
}

// copy makes dst a copy of src.
func (f forest) copy(dst, src int) forest {
	if f.find(dst) == f.find(src) {
		return f
	}
	g := f.kill(dst)
	g[dst] = g.find(src)
	return g
}

// meet returns the forest whose trees are the intersections of the trees of
// f and g. A root shared by both keeps its tree; other trees are rooted at
// their smallest member.
func meet(f, g forest) forest {
	m := newForest(len(f))
	first := make(map[[2]int]int)
	for i := range f {
		rf, rg := f.find(i), g.find(i)
		k := [2]int{rf, rg}
		root, ok := first[k]
		if !ok {
			root = i
			if rf == rg {
				root = rf
			}
			first[k] = root
		}
		m[m.find(i)] = m.find(root)
	}
	return m.flatten()
}
