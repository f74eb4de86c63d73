package segmentation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a user-recoverable failure.
type Kind string

const (
	KindMissingColumns   Kind = "MissingColumns"
	KindInsufficientData Kind = "InsufficientData"
	KindInvalidInput     Kind = "InvalidInput"
)

// Error is the failure variant of a segmentation run. A run either returns a
// complete *RunResult or an *Error, never both.
type Error struct {
	Kind    Kind
	Message string
	Missing []string // canonical fields, set for KindMissingColumns
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// MissingColumns builds a KindMissingColumns error naming the absent fields.
func MissingColumns(fields ...string) *Error {
	return &Error{
		Kind:    KindMissingColumns,
		Message: "missing required columns: " + strings.Join(fields, ", "),
		Missing: fields,
	}
}

// InsufficientData builds a KindInsufficientData error.
func InsufficientData(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientData, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" if err is not a segmentation error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
