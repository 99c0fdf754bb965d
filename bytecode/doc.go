// Package bytecode defines the output of compilation: pure data structures
// that describe compiled Marmot code.
//
// A Unit is one compiled body of instructions: the main program, a
// subroutine body, or a chunk produced by block splitting. Units are
// immutable after construction. Constants are stored as plain Go values
// (int64, float64, string, nil) plus nested *Function and *Unit values,
// so this package depends only on the op package and never on the object
// package; the VM converts constants to runtime objects when a unit is
// first activated.
//
// Units can be serialized with Marshal/Unmarshal for content-addressed
// caching.
package bytecode
