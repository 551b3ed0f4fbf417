package tpm

import (
	"errors"
	"fmt"
)

func handle(format string) func(...any) error {
	return func(args ...any) error {
		return fmt.Errorf(format, args...)
	}
}

var ErrMissingLengths = errors.New("the table does not have lengths; set lengths before normalising")

var (
	ErrInvalidLength = errors.New("invalid length")
	ErrInvalidColumn = errors.New("invalid column")
	ErrInvalidCount = errors.New("invalid count")
	ErrDuplicateID = errors.New("duplicate feature id")
	ErrShapeMismatch = errors.New("shape mismatch")
)

// DataError reports a problem with the contents of an input table. Err is one
// of the ErrInvalid*, ErrDuplicateID or ErrShapeMismatch values, so callers can
// test the kind with errors.Is.
type DataError struct {
	Err error
	Detail string
}

func (d *DataError) Error() string {
	return fmt.Sprintf("%v: %v", d.Err, d.Detail)
}

func (d *DataError) Unwrap() error {
	return d.Err
}

func dataErr(kind error, format string, args ...any) error {
	return &DataError{Err: kind, Detail: fmt.Sprintf(format, args...)}
}
