package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/cfg/cfgdb"
	"github.com/nickng/flowcheck/checker"
)

var exportCmd = &cobra.Command{
	Use:   "export --db <out.sqlite> [flags] <prog.yaml>",
	Short: "Write the flow graphs of a program to SQLite",
	Long: `Builds the flow graph of every code unit of the program and writes the
units, peers and edges to a SQLite database. An existing database is
replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		backward, _ := cmd.Flags().GetBool("backward")
		if db == "" {
			return errors.New("--db is required")
		}
		return runExport(os.Stdout, args[0], db, !backward)
	},
}

func init() {
	exportCmd.Flags().String("db", "", "SQLite database to write")
	exportCmd.Flags().Bool("backward", false, "Export backward graphs")
}

func runExport(w io.Writer, path, db string, forward bool) error {
	prog, err := load(path)
	if err != nil {
		return err
	}
	graphs := cfg.NewCache(prog.Types, cfg.DefaultOptions())
	var gs []*cfg.Graph
	for _, u := range checker.Units(prog.File) {
		g, err := graphs.Graph(u, forward)
		if err != nil {
			return err
		}
		gs = append(gs, g)
	}
	if err := cfgdb.Write(db, gs); err != nil {
		return err
	}
	s, err := cfgdb.Summarise(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d units, %d peers, %d edges\n", db, s.Units, s.Peers, s.Edges)
	return nil
}
