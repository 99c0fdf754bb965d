package bytecode

import "strings"

// Function represents a compiled subroutine template. It is immutable
// after creation and contains the static information needed to build
// closures at runtime.
type Function struct {
	id         string
	name       string
	parameters []string
	freeNames  []string
	unit       *Unit
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	ID         string
	Name       string
	Parameters []string
	FreeNames  []string
	Unit       *Unit
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied.
func NewFunction(params FunctionParams) *Function {
	return &Function{
		id:         params.ID,
		name:       params.Name,
		parameters: copyStrings(params.Parameters),
		freeNames:  copyStrings(params.FreeNames),
		unit:       params.Unit,
	}
}

// ID returns the unique identifier for this function.
func (f *Function) ID() string {
	return f.id
}

// Name returns the subroutine name, or empty string for anonymous subs.
func (f *Function) Name() string {
	return f.name
}

// Unit returns the compiled body of this function.
func (f *Function) Unit() *Unit {
	return f.unit
}

// ParameterCount returns the number of parameters.
func (f *Function) ParameterCount() int {
	return len(f.parameters)
}

// Parameter returns the name of the parameter at the given index.
func (f *Function) Parameter(index int) string {
	return f.parameters[index]
}

// FreeCount returns the number of variables this function closes over.
func (f *Function) FreeCount() int {
	return len(f.freeNames)
}

// FreeName returns the name of the captured variable at the given
// cell index.
func (f *Function) FreeName(index int) string {
	return f.freeNames[index]
}

// LocalCount returns the local slot watermark of the function body.
func (f *Function) LocalCount() int {
	if f.unit == nil {
		return 0
	}
	return f.unit.LocalCount()
}

// String returns a short description of the function.
func (f *Function) String() string {
	name := f.name
	if name == "" {
		name = "__anon__"
	}
	return "sub " + name + "(" + strings.Join(f.parameters, ", ") + ")"
}
