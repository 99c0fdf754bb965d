package marmot

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/marmot-lang/marmot/ast"
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/stretchr/testify/require"
)

func v(name string) *ast.Var              { return &ast.Var{Name: name} }
func num(n int64) ast.Expr                { return &ast.IntLit{Value: n} }
func str(s string) ast.Expr               { return &ast.StrLit{Value: s} }
func stmt(x ast.Expr) ast.Stmt            { return &ast.ExprStmt{X: x} }
func prog(stmts ...ast.Stmt) *ast.Program { return &ast.Program{Stmts: stmts} }

func my(name string, init ast.Expr) ast.Stmt {
	return &ast.Decl{Kind: ast.DeclMy, Name: v(name), Init: init}
}

func infix(operator string, left, right ast.Expr) ast.Expr {
	return &ast.Infix{Op: operator, Left: left, Right: right}
}

func TestEvalArithmetic(t *testing.T) {
	result, err := Eval(context.Background(), prog(
		my("$x", num(6)),
		stmt(infix("*", v("$x"), num(7))),
	))
	require.NoError(t, err)
	require.Equal(t, int64(42), result.Interface())
}

func TestCompileThenRun(t *testing.T) {
	unit, err := Compile(prog(
		my("$x", num(1)),
		stmt(infix("+", v("$x"), num(2))),
	), WithFilename("adder.pl"))
	require.NoError(t, err)
	require.Equal(t, "adder.pl", unit.Filename())

	// A compiled unit is immutable and reusable.
	for i := 0; i < 2; i++ {
		result, err := Run(context.Background(), unit)
		require.NoError(t, err)
		require.Equal(t, int64(3), result.Interface())
	}
}

func TestEvalWritesToConfiguredStdout(t *testing.T) {
	var out bytes.Buffer
	_, err := Eval(context.Background(), prog(
		&ast.Pragma{Enable: true, Category: "feature", Names: []string{"say"}},
		stmt(&ast.Builtin{Name: "say", Args: []ast.Expr{str("hi")}}),
	), WithStdout(&out))
	require.NoError(t, err)
	require.Equal(t, "hi\n", out.String())
}

func TestWithGlobalsPreSeedsSlots(t *testing.T) {
	unit, err := Compile(prog(
		stmt(num(0)),
	), WithGlobals("$main::shared"))
	require.NoError(t, err)
	require.Contains(t, unit.GlobalNames(), "$main::shared")
}

func TestSplitTuningPreservesResults(t *testing.T) {
	var stmts []ast.Stmt
	stmts = append(stmts, my("$sum", num(0)))
	for i := 0; i < 20; i++ {
		stmts = append(stmts,
			my(fmt.Sprintf("$t%d", i), num(int64(i))),
			stmt(&ast.Assign{
				Target: v("$sum"),
				Value:  infix("+", v("$sum"), v(fmt.Sprintf("$t%d", i))),
			}),
		)
	}
	stmts = append(stmts, stmt(v("$sum")))
	program := prog(stmts...)

	whole, err := Compile(program)
	require.NoError(t, err)
	split, err := Compile(program, WithSplitThreshold(4), WithMaxUnitCost(120))
	require.NoError(t, err)

	chunks := 0
	for _, unit := range split.Flatten() {
		if unit.Kind() == bytecode.KindChunk {
			chunks++
		}
	}
	require.Greater(t, chunks, 0)

	ctx := context.Background()
	wantResult, err := Run(ctx, whole)
	require.NoError(t, err)
	gotResult, err := Run(ctx, split)
	require.NoError(t, err)
	require.Equal(t, wantResult.Interface(), gotResult.Interface())
	require.Equal(t, int64(190), gotResult.Interface())
}

func TestEvalReportsCompileErrors(t *testing.T) {
	_, err := Eval(context.Background(), prog(
		&ast.Control{Kind: ast.ControlLast},
	))
	require.Error(t, err)
}
