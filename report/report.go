// Package report collects the semantic errors found by the analyses.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/nickng/flowcheck/term"
)

// Error is a semantic error in the analysed program.
type Error struct {
	Pos term.Pos
	Msg string
}

// Errorf returns a semantic error at pos.
func Errorf(pos term.Pos, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

type positioned interface {
	Position() term.Pos
}

// At returns err as a semantic error. An error without a valid position is
// placed at t. Other errors carrying a position keep it, with the message
// of their cause.
func At(t term.Term, err error) *Error {
	var (
		e *Error
		p positioned
	)
	switch {
	case errors.As(err, &e):
	case errors.As(err, &p):
		e = &Error{Pos: p.Position(), Msg: errors.Cause(err).Error()}
	default:
		e = &Error{Msg: err.Error()}
	}
	if !e.Pos.IsValid() && t != nil {
		e = &Error{Pos: t.Position(), Msg: e.Msg}
	}
	return e
}

// Queue receives semantic errors.
type Queue interface {
	Enqueue(err *Error)
}

// List is a Queue keeping every error.
type List struct {
	errs []*Error
}

// NewList returns an empty error list.
func NewList() *List { return &List{} }

func (l *List) Enqueue(err *Error) { l.errs = append(l.errs, err) }

// Len returns the number of errors.
func (l *List) Len() int { return len(l.errs) }

// Errors returns the errors in position order. Errors at the same position
// keep the order they were reported in.
func (l *List) Errors() []*Error {
	errs := slices.Clone(l.errs)
	slices.SortStableFunc(errs, func(a, b *Error) bool { return less(a.Pos, b.Pos) })
	return errs
}

func less(a, b term.Pos) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Col < b.Col
}

// Func is a Queue calling a function for each error.
type Func func(err *Error)

func (f Func) Enqueue(err *Error) { f(err) }

var (
	posColour = color.New(color.Bold).SprintFunc()
	errColour = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Render writes the errors of l to w, one per line.
func (l *List) Render(w io.Writer) error {
	for _, e := range l.Errors() {
		if _, err := fmt.Fprintf(w, "%s: %s %s\n", posColour(e.Pos), errColour("error:"), e.Msg); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
