// Package object defines the runtime value types of Marmot: the scalar
// values, the array and hash containers, closures, and the reference
// machinery that autovivification operates through.
package object

// Type identifies a runtime value type.
type Type string

const (
	UNDEF   Type = "undef"
	INT     Type = "int"
	FLOAT   Type = "float"
	STRING  Type = "string"
	ARRAY   Type = "array"
	HASH    Type = "hash"
	CLOSURE Type = "closure"
	CELL    Type = "cell"
	REF     Type = "ref"
	ITER    Type = "iter"
	ERROR   Type = "error"
)

// Object is the interface implemented by all Marmot runtime values.
type Object interface {
	// Type returns the type of this object.
	Type() Type

	// Inspect returns a string representation of the object for debugging
	// and error messages.
	Inspect() string

	// Interface converts the object to a plain Go value.
	Interface() any

	// Equals returns true if the other object is equal to this one.
	Equals(other Object) bool

	// IsTruthy returns whether the object is true in boolean context.
	// Marmot follows Perl: undef, 0, "" and "0" are false.
	IsTruthy() bool
}

// Bool converts a Go bool to the Marmot convention: integer 1 for true
// and the empty string for false, as Perl's comparison operators produce.
func Bool(v bool) Object {
	if v {
		return True
	}
	return False
}

var (
	// True is the canonical true value produced by comparisons.
	True Object = NewInt(1)

	// False is the canonical false value produced by comparisons.
	False Object = NewString("")
)
