// Command flowcheck runs flow analyses over programs written as YAML term
// trees.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nickng/flowcheck/term/termyaml"
)

// errFound is returned when the checked program has errors.
var errFound = errors.New("errors found")

var rootCmd = &cobra.Command{
	Use:   "flowcheck",
	Short: "flowcheck - flow analyses of Java-like programs",
	Long: `flowcheck builds the control flow graph of every code unit of a program
and runs dataflow analyses over it.

Commands:
  check       Report definite assignment, reachability and nullness errors
  cfg         Print the flow graph of a code unit
  export      Write the flow graphs of a program to a SQLite database

Use "flowcheck [command] --help" for more information about a command.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cfgCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Cause(err) != errFound {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// load decodes the program at path.
func load(path string) (*termyaml.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open program")
	}
	defer f.Close()
	return termyaml.Decode(f, path)
}
