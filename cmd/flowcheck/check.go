package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nickng/flowcheck/checker"
	"github.com/nickng/flowcheck/report"
	"github.com/nickng/flowcheck/term"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <prog.yaml>",
	Short: "Check a program",
	Long: `Runs the enabled analyses over every code unit of the program and prints
the errors found as file:line:col: error: message. Exits with status 1 if
there are errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		analyses, _ := cmd.Flags().GetStringSlice("analysis")
		logPath, _ := cmd.Flags().GetString("log")
		verbose, _ := cmd.Flags().GetBool("verbose")

		conf, err := loadConfig(configPath, analyses)
		if err != nil {
			return err
		}
		if logPath != "" {
			conf.WithLogFiles(logPath)
		}
		return runCheck(args[0], conf, os.Stdout, verbose)
	},
}

func init() {
	checkCmd.Flags().String("config", "", "YAML configuration file")
	checkCmd.Flags().StringSlice("analysis", nil, "Analyses to run (default all)")
	checkCmd.Flags().String("log", "", "Also write the analysis log to this file")
	checkCmd.Flags().BoolP("verbose", "v", false, "Print dead code and copy substitutions")
}

// loadConfig reads the configuration at path, or the default one, and
// restricts it to analyses if any are given.
func loadConfig(path string, analyses []string) (*checker.Config, error) {
	conf := checker.NewConfig()
	conf.Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "cannot open config")
		}
		defer f.Close()
		if conf, err = checker.LoadConfig(f); err != nil {
			return nil, err
		}
	}
	if len(analyses) > 0 {
		conf.Disable(checker.Analyses...).Enable(analyses...)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

var (
	headColour = color.New(color.Bold).SprintFunc()
	deadColour = color.New(color.FgYellow).SprintFunc()
)

func runCheck(path string, conf *checker.Config, w io.Writer, verbose bool) error {
	prog, err := load(path)
	if err != nil {
		return err
	}
	errs := report.NewList()
	c := checker.New(conf, prog.Types, errs)
	res := c.CheckFile(prog.File)
	for _, e := range prog.Exprs {
		res.Add(c.CheckExpr(e))
	}
	if err := errs.Render(w); err != nil {
		return err
	}
	if verbose {
		for _, r := range res.Dead {
			for _, s := range r.Dead {
				fmt.Fprintf(w, "%s: %s %s\n", s.Position(), deadColour("dead:"), headColour(term.Describe(s)))
			}
		}
		for _, r := range res.Subst {
			for _, s := range r.Substitutions() {
				fmt.Fprintf(w, "%s\n", s)
			}
		}
	}
	fmt.Fprintf(os.Stderr, "%d units, %d errors\n", res.Units, res.Errors)
	if res.Errors > 0 {
		return errors.WithStack(errFound)
	}
	return nil
}
