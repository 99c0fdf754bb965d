package object

import "github.com/marmot-lang/marmot/bytecode"

// Closure pairs a compiled function with the cells it closed over at its
// definition site.
type Closure struct {
	fn   *bytecode.Function
	free []*Cell
}

// NewClosure creates a closure over the given cells. The cell order must
// match the function's free variable order.
func NewClosure(fn *bytecode.Function, free []*Cell) *Closure {
	return &Closure{fn: fn, free: free}
}

func (c *Closure) Type() Type { return CLOSURE }

func (c *Closure) Inspect() string { return c.fn.String() }

func (c *Closure) Interface() any { return c.fn.Name() }

// IsTruthy is true for any code reference.
func (c *Closure) IsTruthy() bool { return true }

func (c *Closure) Equals(other Object) bool {
	otherClosure, ok := other.(*Closure)
	return ok && c == otherClosure
}

// Name returns the subroutine name, or empty string for anonymous subs.
func (c *Closure) Name() string { return c.fn.Name() }

// Function returns the compiled function template.
func (c *Closure) Function() *bytecode.Function { return c.fn }

// Free returns the captured cells.
func (c *Closure) Free() []*Cell { return c.free }

// FreeAt returns the captured cell at the given index.
func (c *Closure) FreeAt(index int) *Cell { return c.free[index] }
