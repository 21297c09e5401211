package cfg

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nickng/flowcheck/term"
)

var (
	ErrNoTarget        = errors.New("cannot find target of jump")
	ErrContinueNonLoop = errors.New("continue target is not a loop")
)

// BuildError is an error in the shape of the tree being lowered, such as a
// break without an enclosing target.
type BuildError struct {
	Pos  term.Pos
	Term term.Term
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %v (%s)", e.Pos, e.Err, term.Describe(e.Term))
}

func (e *BuildError) Cause() error  { return e.Err }
func (e *BuildError) Unwrap() error { return e.Err }

// Position returns the position of the offending term.
func (e *BuildError) Position() term.Pos { return e.Pos }
