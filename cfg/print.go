package cfg

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/nickng/flowcheck/term"
)

var (
	peerColour = color.New(color.FgCyan).SprintFunc()
	keyColour  = color.New(color.FgYellow).SprintFunc()
	excColour  = color.New(color.FgRed).SprintFunc()
)

func keyString(k EdgeKey) string {
	if k.IsException() {
		return excColour(k.String())
	}
	return keyColour(k.String())
}

// WriteTo writes the peers of g and their successors to w.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	dir := "forward"
	if !g.forward {
		dir = "backward"
	}
	fmt.Fprintf(&buf, "┌─────┄ %s at %s (%s, %d peers) ┄──────\n", term.Describe(g.root), g.root.Position(), dir, len(g.peers))
	for _, p := range g.peers {
		fmt.Fprintf(&buf, "│ %s\n", peerColour(p.String()))
		for _, e := range p.Succs {
			fmt.Fprintf(&buf, "│     → p%d [%s]\n", e.Peer.Index, keyString(e.Key))
		}
	}
	buf.WriteString("└────────────────────────\n")
	return buf.WriteTo(w)
}

func (g *Graph) String() string {
	var buf bytes.Buffer
	g.WriteTo(&buf)
	return buf.String()
}
