// Package marmot provides high-level entry points for compiling and
// running Marmot programs. The heavy lifting lives in the compiler and
// vm packages; this package wires them together behind a small facade.
package marmot

import (
	"context"

	"github.com/marmot-lang/marmot/ast"
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/compiler"
	"github.com/marmot-lang/marmot/object"
	"github.com/marmot-lang/marmot/vm"
)

// Compile lowers a program to a compiled unit.
func Compile(program *ast.Program, opts ...Option) (*bytecode.Unit, error) {
	o := collectOptions(opts...)
	return compiler.Compile(program, o.compilerConfig())
}

// Run executes a compiled unit and returns the program's result value.
func Run(ctx context.Context, unit *bytecode.Unit, opts ...Option) (object.Object, error) {
	o := collectOptions(opts...)
	return vm.Run(ctx, unit, o.vmOpts()...)
}

// Eval compiles and executes a program in one step.
func Eval(ctx context.Context, program *ast.Program, opts ...Option) (object.Object, error) {
	o := collectOptions(opts...)
	unit, err := compiler.Compile(program, o.compilerConfig())
	if err != nil {
		return nil, err
	}
	return vm.Run(ctx, unit, o.vmOpts()...)
}
