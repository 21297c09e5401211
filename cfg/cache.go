package cfg

import "github.com/nickng/flowcheck/term"

// Source provides the graphs of code units.
type Source interface {
	Graph(root term.Term, forward bool) (*Graph, error)
}

type cacheKey struct {
	root    term.Term
	forward bool
}

// Cache holds the graphs built for code units so that analyses running
// over the same unit in the same direction share one graph.
type Cache struct {
	h      term.Hierarchy
	opts   Options
	graphs map[cacheKey]*Graph
}

// NewCache returns an empty cache building graphs with opts.
func NewCache(h term.Hierarchy, opts Options) *Cache {
	return &Cache{h: h, opts: opts, graphs: make(map[cacheKey]*Graph)}
}

// Graph returns the graph of root, building it on first use.
func (c *Cache) Graph(root term.Term, forward bool) (*Graph, error) {
	k := cacheKey{root: root, forward: forward}
	if g, ok := c.graphs[k]; ok {
		return g, nil
	}
	g, err := Build(root, c.h, forward, c.opts)
	if err != nil {
		return nil, err
	}
	c.graphs[k] = g
	return g, nil
}

// Len returns the number of graphs in the cache.
func (c *Cache) Len() int { return len(c.graphs) }
