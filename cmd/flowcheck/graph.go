package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/term"
	"github.com/nickng/flowcheck/term/termyaml"
)

var cfgCmd = &cobra.Command{
	Use:   "cfg [flags] <prog.yaml>",
	Short: "Print the flow graph of a code unit",
	Long: `Prints the peers and edges of the flow graph of the code units named by
--unit, written Class.member. A method or constructor is named by its name,
a field by the field name, and initializers by "init" or "static". Without
--unit every code unit is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, _ := cmd.Flags().GetString("unit")
		backward, _ := cmd.Flags().GetBool("backward")
		noReplicate, _ := cmd.Flags().GetBool("no-replicate")

		prog, err := load(args[0])
		if err != nil {
			return err
		}
		opts := cfg.DefaultOptions()
		opts.ReplicateFinally = !noReplicate
		return printGraphs(os.Stdout, prog, unit, !backward, opts)
	},
}

func init() {
	cfgCmd.Flags().StringP("unit", "u", "", "Code unit to print, as Class.member")
	cfgCmd.Flags().Bool("backward", false, "Print the backward graph")
	cfgCmd.Flags().Bool("no-replicate", false, "Share finally blocks between paths")
}

var loopColour = color.New(color.FgGreen, color.Bold).SprintFunc()

func printGraphs(w io.Writer, prog *termyaml.Program, unit string, forward bool, opts cfg.Options) error {
	units, err := findUnits(prog.File, unit)
	if err != nil {
		return err
	}
	graphs := cfg.NewCache(prog.Types, opts)
	for _, u := range units {
		g, err := graphs.Graph(u, forward)
		if err != nil {
			return errors.Wrapf(err, "%s", term.Describe(u))
		}
		if _, err := g.WriteTo(w); err != nil {
			return err
		}
		for i, loop := range g.Loops() {
			idx := make([]string, len(loop))
			for j, p := range loop {
				idx[j] = fmt.Sprintf("p%d", p.Index)
			}
			fmt.Fprintf(w, "%s %s\n", loopColour(fmt.Sprintf("loop %d:", i)), strings.Join(idx, " "))
		}
	}
	return nil
}

// memberName is the name a code unit is selected by.
func memberName(m term.Member) string {
	switch m := m.(type) {
	case *term.MethodDecl:
		return m.Name
	case *term.ConstructorDecl:
		return m.Name
	case *term.FieldDecl:
		return m.Var.Name
	case *term.Initializer:
		if m.Static {
			return "static"
		}
		return "init"
	}
	return ""
}

// findUnits returns the code units of f named by sel, or all of them if
// sel is empty.
func findUnits(f *term.File, sel string) ([]term.Term, error) {
	class, member := sel, ""
	if i := strings.LastIndex(sel, "."); i >= 0 {
		class, member = sel[:i], sel[i+1:]
	}
	var units []term.Term
	term.ClassBodies(f, func(b *term.ClassBody) {
		if sel != "" && b.Type.Name != class {
			return
		}
		for _, m := range b.Members {
			if term.IsCodeUnit(m) && (member == "" || memberName(m) == member) {
				units = append(units, m)
			}
		}
	})
	if len(units) == 0 {
		return nil, errors.Errorf("no code unit %q", sel)
	}
	return units, nil
}
