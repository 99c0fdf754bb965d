package object

import "fmt"

// ErrKind classifies runtime errors. Every kind is catchable by eval
// blocks; an uncaught error aborts the run.
type ErrKind string

const (
	// EUndefinedDeref is raised by a non-vivifying container operation on
	// an undefined scalar.
	EUndefinedDeref ErrKind = "undefined dereference"

	// ETypeMismatch is raised when a dereference finds a value of the
	// wrong concrete type already in the slot.
	ETypeMismatch ErrKind = "type mismatch"

	// EDied is raised by an explicit die.
	EDied ErrKind = "died"

	// EType is a general operand type error.
	EType ErrKind = "type error"

	// EDivideByZero is raised by division or modulo by zero.
	EDivideByZero ErrKind = "division by zero"

	// ENotCallable is raised when a call target is not a code reference.
	ENotCallable ErrKind = "not a code reference"

	// EIndex is raised for an out-of-range container index.
	EIndex ErrKind = "index out of range"

	// EInvalid is raised for malformed operations, such as bad operand
	// counts reaching the VM.
	EInvalid ErrKind = "invalid operation"
)

// Error is a raised runtime error. It is both a Marmot value, so eval
// can store it in $@, and a Go error, so an uncaught raise surfaces
// directly from Run.
type Error struct {
	kind    ErrKind
	message string
	value   Object
}

// Errorf creates an error with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// NewError creates an error carrying an arbitrary died-with value, as
// produced by die with a non-string argument.
func NewError(kind ErrKind, value Object) *Error {
	return &Error{kind: kind, message: Stringify(value), value: value}
}

func (e *Error) Type() Type      { return ERROR }
func (e *Error) Inspect() string { return "error(" + e.message + ")" }
func (e *Error) Interface() any  { return e.message }
func (e *Error) IsTruthy() bool  { return true }

func (e *Error) Equals(other Object) bool {
	otherErr, ok := other.(*Error)
	return ok && e == otherErr
}

// Error implements the Go error interface.
func (e *Error) Error() string {
	return string(e.kind) + ": " + e.message
}

// Kind returns the error classification.
func (e *Error) Kind() ErrKind { return e.kind }

// Message returns the error message without the kind prefix.
func (e *Error) Message() string { return e.message }

// Value returns the died-with value when one exists, else a string
// object holding the message.
func (e *Error) Value() Object {
	if e.value != nil {
		return e.value
	}
	return NewString(e.message)
}

// IsKind reports whether err is a runtime *Error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	runtimeErr, ok := err.(*Error)
	return ok && runtimeErr.kind == kind
}
