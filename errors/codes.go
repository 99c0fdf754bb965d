package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E2xxx: Compile errors
//   - E3xxx: Runtime errors
type ErrorCode string

const (
	// Compile errors (E2xxx)
	E2001 ErrorCode = "E2001" // Undefined variable
	E2002 ErrorCode = "E2002" // Undefined subroutine
	E2003 ErrorCode = "E2003" // Loop control outside a loop
	E2004 ErrorCode = "E2004" // Label not found
	E2005 ErrorCode = "E2005" // Return outside a subroutine
	E2006 ErrorCode = "E2006" // Duplicate parameter name
	E2007 ErrorCode = "E2007" // Too many local variables
	E2008 ErrorCode = "E2008" // Too many constants
	E2009 ErrorCode = "E2009" // Unknown pragma name
	E2010 ErrorCode = "E2010" // Cannot localize a lexical variable
	E2011 ErrorCode = "E2011" // Invalid assignment target
	E2012 ErrorCode = "E2012" // Undeclared variable under strict vars
	E2013 ErrorCode = "E2013" // Invalid goto target
	E2014 ErrorCode = "E2014" // Label on an unlabelable statement

	// Runtime errors (E3xxx)
	E3001 ErrorCode = "E3001" // Type error
	E3002 ErrorCode = "E3002" // Division by zero
	E3003 ErrorCode = "E3003" // Dereference of undefined value
	E3004 ErrorCode = "E3004" // Dereference type mismatch
	E3005 ErrorCode = "E3005" // Not a code reference
	E3006 ErrorCode = "E3006" // Stack overflow
	E3007 ErrorCode = "E3007" // Invalid operation
	E3008 ErrorCode = "E3008" // Died
	E3009 ErrorCode = "E3009" // Invalid argument
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E2001: "undefined variable",
	E2002: "undefined subroutine",
	E2003: "loop control outside a loop",
	E2004: "label not found",
	E2005: "return outside a subroutine",
	E2006: "duplicate parameter name",
	E2007: "too many local variables",
	E2008: "too many constants",
	E2009: "unknown pragma name",
	E2010: "cannot localize a lexical variable",
	E2011: "invalid assignment target",
	E2012: "undeclared variable under strict vars",
	E2013: "invalid goto target",
	E2014: "label on an unlabelable statement",

	E3001: "type error",
	E3002: "division by zero",
	E3003: "dereference of undefined value",
	E3004: "dereference type mismatch",
	E3005: "not a code reference",
	E3006: "stack overflow",
	E3007: "invalid operation",
	E3008: "died",
	E3009: "invalid argument",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '2':
		return "compile"
	case '3':
		return "runtime"
	default:
		return "unknown"
	}
}
