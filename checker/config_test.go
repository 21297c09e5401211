package checker

import (
	"io/ioutil"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFluentConfig(t *testing.T) {
	conf := NewConfig()
	assert.Empty(t, conf.EnabledAnalyses())

	conf.Default().Disable(Nullness, CopyProp).ReplicateFinally(false)
	assert.Equal(t, []string{DeadCode, Definite, Reach}, conf.EnabledAnalyses())
	assert.False(t, conf.Options().ReplicateFinally)
	assert.False(t, conf.Options().ExceptionEdgesToExit)
	assert.NoError(t, conf.Validate())

	conf.Enable("liveness")
	assert.Equal(t, ErrUnknownAnalysis, errors.Cause(conf.Validate()))
}

func TestLoadConfig(t *testing.T) {
	conf, err := LoadConfig(strings.NewReader(`
analyses: [definite, nullness]
exception_edges_to_exit: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{Definite, Nullness}, conf.EnabledAnalyses())
	assert.True(t, conf.Options().ExceptionEdgesToExit)
	assert.True(t, conf.Options().ReplicateFinally, "finally blocks are replicated unless disabled")

	conf, err = LoadConfig(strings.NewReader(`
disable: [deadcode]
replicate_finally: false
`))
	require.NoError(t, err)
	assert.Equal(t, []string{CopyProp, Definite, Nullness, Reach}, conf.EnabledAnalyses())
	assert.False(t, conf.Options().ReplicateFinally)

	conf, err = LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Len(t, conf.EnabledAnalyses(), len(Analyses))

	_, err = LoadConfig(strings.NewReader(`analyses: [liveness]`))
	assert.Equal(t, ErrUnknownAnalysis, errors.Cause(err))
}

func TestLoggerModules(t *testing.T) {
	l := newLogger(ioutil.Discard)
	assert.Equal(t, "checker", l.Module())
	assert.Contains(t, l.For(Definite).Module(), Definite)
	assert.NotNil(t, l.For("cfg").Named())
}
