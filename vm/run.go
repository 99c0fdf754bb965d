package vm

import (
	"context"

	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/object"
)

// Run executes a compiled unit on a fresh VirtualMachine and returns
// the program's result value.
func Run(ctx context.Context, unit *bytecode.Unit, opts ...Option) (object.Object, error) {
	return New(unit, opts...).Run(ctx)
}
