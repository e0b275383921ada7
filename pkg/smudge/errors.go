package smudge

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch is matched by every SchemaMismatchError.
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrUnknownColumn  = errors.New("unknown column")
)

// SchemaMismatchError reports a declared column that is absent or a cell that
// cannot be parsed as the declared kind. Line is 1-based and counts the header;
// zero means the error is not tied to a record.
type SchemaMismatchError struct {
	Column string
	Want   Kind
	Line   int
	Value  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	switch {
	case e.Line == 0:
		return fmt.Sprintf("schema mismatch: column %q: %s", e.Column, e.Reason)
	case e.Value == "":
		return fmt.Sprintf("schema mismatch: line %d column %q: %s", e.Line, e.Column, e.Reason)
	default:
		return fmt.Sprintf("schema mismatch: line %d column %q: cannot parse %q as %s", e.Line, e.Column, e.Value, e.Want)
	}
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }
