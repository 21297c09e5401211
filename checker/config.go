package checker

import (
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/nickng/flowcheck/cfg"
)

// Names of the analyses.
const (
	Definite = "definite"
	Reach    = "reach"
	DeadCode = "deadcode"
	CopyProp = "copyprop"
	Nullness = "nullness"
)

// Analyses lists every analysis in the order they run on a code unit.
var Analyses = []string{Definite, Reach, DeadCode, CopyProp, Nullness}

var ErrUnknownAnalysis = errors.New("unknown analysis")

type Configurer interface {
	Default() Configurer
	WithLog(w io.Writer) Configurer
	WithLogFiles(files ...string) Configurer
	ReplicateFinally(bool) Configurer
	ExceptionEdgesToExit(bool) Configurer
	Enable(names ...string) Configurer
	Disable(names ...string) Configurer
}

// Config represents a checker configuration.
type Config struct {
	enabled  map[string]bool
	log      io.Writer // Analysis log.
	logFiles []string  // Extra log outputs.
	opts     cfg.Options
}

// NewConfig returns a configuration with no analysis enabled and logs
// discarded.
func NewConfig() *Config {
	return &Config{
		enabled: make(map[string]bool),
		log:     ioutil.Discard,
		opts:    cfg.DefaultOptions(),
	}
}

// Default enables every analysis with replicated finally blocks.
func (c *Config) Default() Configurer {
	return c.Enable(Analyses...).ReplicateFinally(true).ExceptionEdgesToExit(false)
}

// WithLog writes the analysis log to w.
func (c *Config) WithLog(w io.Writer) Configurer {
	if w != nil {
		c.log = w
	}
	return c
}

// WithLogFiles also writes the analysis log to files.
func (c *Config) WithLogFiles(files ...string) Configurer {
	c.logFiles = append(c.logFiles, files...)
	return c
}

// ReplicateFinally sets whether every path through a finally block gets its
// own copy of the block.
func (c *Config) ReplicateFinally(replicate bool) Configurer {
	c.opts.ReplicateFinally = replicate
	return c
}

// ExceptionEdgesToExit sets whether uncaught checked exceptions get an edge
// to the exit of the unit.
func (c *Config) ExceptionEdgesToExit(edges bool) Configurer {
	c.opts.ExceptionEdgesToExit = edges
	return c
}

func (c *Config) Enable(names ...string) Configurer {
	for _, name := range names {
		c.enabled[name] = true
	}
	return c
}

func (c *Config) Disable(names ...string) Configurer {
	for _, name := range names {
		delete(c.enabled, name)
	}
	return c
}

// Enabled returns true if the analysis name runs.
func (c *Config) Enabled(name string) bool { return c.enabled[name] }

// EnabledAnalyses returns the names of the enabled analyses, sorted.
func (c *Config) EnabledAnalyses() []string {
	names := maps.Keys(c.enabled)
	slices.Sort(names)
	return names
}

// Options returns the graph building options.
func (c *Config) Options() cfg.Options { return c.opts }

// Validate returns an error if an enabled analysis does not exist.
func (c *Config) Validate() error {
	for _, name := range c.EnabledAnalyses() {
		if !slices.Contains(Analyses, name) {
			return errors.Wrapf(ErrUnknownAnalysis, "%q", name)
		}
	}
	return nil
}

// fileConfig is the YAML form of a Config.
type fileConfig struct {
	ReplicateFinally     *bool    `yaml:"replicate_finally"`
	ExceptionEdgesToExit bool     `yaml:"exception_edges_to_exit"`
	Analyses             []string `yaml:"analyses"`
	Disable              []string `yaml:"disable"`
	LogFiles             []string `yaml:"log_files"`
}

// LoadConfig reads a configuration from YAML. Analyses default to all of
// them, minus those listed under disable.
func LoadConfig(r io.Reader) (*Config, error) {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	c := NewConfig()
	c.Default()
	if len(fc.Analyses) > 0 {
		c.Disable(Analyses...).Enable(fc.Analyses...)
	}
	c.Disable(fc.Disable...).
		ExceptionEdgesToExit(fc.ExceptionEdgesToExit).
		WithLogFiles(fc.LogFiles...)
	if fc.ReplicateFinally != nil {
		c.ReplicateFinally(*fc.ReplicateFinally)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
