package binding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRange is returned for a {x-y} range whose endpoints are not
	// two single characters of the same class in ascending order.
	ErrInvalidRange = errors.New("invalid range")

	// ErrSyntax is returned for a malformed key expression.
	ErrSyntax = errors.New("syntax error")
)

// LineError is a problem with one binding line. Line and Column are 1-based
// positions in the configuration document; Column points at Token.
type LineError struct {
	Line   int
	Column int
	Source string
	Token  string
	Err    error
}

func (e *LineError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	if e.Source != "" {
		fmt.Fprintf(&b, " in %q", e.Source)
	}
	return b.String()
}

func (e *LineError) Unwrap() error { return e.Err }

// CompileError aggregates every LineError of a configuration. A table is
// never built when a CompileError is returned.
type CompileError struct {
	Errs []*LineError
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, le := range e.Errs {
		msgs[i] = le.Error()
	}
	return fmt.Sprintf("%d invalid binding(s):\n  %s", len(e.Errs), strings.Join(msgs, "\n  "))
}

func (e *CompileError) Unwrap() []error {
	errs := make([]error, len(e.Errs))
	for i, le := range e.Errs {
		errs[i] = le
	}
	return errs
}
