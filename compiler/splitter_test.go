package compiler

import (
	"fmt"
	"testing"

	"github.com/marmot-lang/marmot/ast"
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/op"
	"github.com/stretchr/testify/require"
)

func manyDecls(n int) []ast.Stmt {
	stmts := make([]ast.Stmt, 0, n)
	for i := 0; i < n; i++ {
		stmts = append(stmts, my(fmt.Sprintf("$x%d", i), num(int64(i))))
	}
	return stmts
}

func TestEstimateSkipsFunctionBodies(t *testing.T) {
	withBody := stmt(&ast.FuncLit{Body: block(manyDecls(50)...)})
	// The 50-statement body compiles into its own unit and is not
	// charged against the enclosing block.
	require.Less(t, estimateNode(withBody), costPerNode*10)
	require.Greater(t, estimateStmts(manyDecls(50)), costPerNode*50)
}

func TestPeelPointProgresses(t *testing.T) {
	stmts := manyDecls(10)
	k := peelPoint(stmts, 1)
	// Even a ceiling below any single statement peels one.
	require.Equal(t, 1, k)

	k = peelPoint(stmts[:1], 1)
	require.Equal(t, 1, k)
}

func TestPeelPointKeepsLabelPairs(t *testing.T) {
	loop := &ast.While{Cond: num(1), Body: block(stmt(num(1)))}
	stmts := []ast.Stmt{
		stmt(assign(v("$a"), num(1))),
		&ast.LabelStmt{Name: "L"},
		loop,
	}
	cost := estimateNode(stmts[0])
	k := peelPoint(stmts, cost)
	// The boundary lands before the label, never between label and loop.
	require.Equal(t, 1, k)
}

func TestAnalyzeEscapesReturn(t *testing.T) {
	err := analyzeEscapes([]ast.Stmt{&ast.Return{}}, &labelStack{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "return")
}

func TestAnalyzeEscapesOuterTransfer(t *testing.T) {
	err := analyzeEscapes([]ast.Stmt{
		&ast.Control{Kind: ast.ControlLast},
	}, &labelStack{})
	require.Error(t, err)

	err = analyzeEscapes([]ast.Stmt{
		&ast.While{Cond: num(1), Body: block(
			&ast.Control{Kind: ast.ControlNext, Label: "OUTER"},
		)},
	}, &labelStack{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "OUTER")
}

func TestAnalyzeEscapesLocalLoopIsSafe(t *testing.T) {
	require.NoError(t, analyzeEscapes([]ast.Stmt{
		&ast.While{Cond: num(1), Body: block(
			&ast.Control{Kind: ast.ControlNext},
		)},
	}, &labelStack{}))

	require.NoError(t, analyzeEscapes([]ast.Stmt{
		&ast.LabelStmt{Name: "L"},
		&ast.While{Cond: num(1), Body: block(
			&ast.Control{Kind: ast.ControlLast, Label: "L"},
		)},
	}, &labelStack{}))
}

func TestAnalyzeEscapesWalksEvalBodies(t *testing.T) {
	err := analyzeEscapes([]ast.Stmt{
		stmt(&ast.Eval{Body: block(&ast.Return{})}),
	}, &labelStack{})
	require.Error(t, err)
}

func TestAnalyzeEscapesSkipsClosures(t *testing.T) {
	require.NoError(t, analyzeEscapes([]ast.Stmt{
		stmt(&ast.FuncLit{Body: block(&ast.Return{Value: num(1)})}),
	}, &labelStack{}))
}

func TestAnalyzeEscapesAggregatesFindings(t *testing.T) {
	err := analyzeEscapes([]ast.Stmt{
		&ast.Return{},
		&ast.Control{Kind: ast.ControlLast},
	}, &labelStack{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "return")
	require.Contains(t, err.Error(), "last")
}

func splitConfig() *Config {
	return &Config{SplitThreshold: 4, MaxUnitCost: 30}
}

func TestSplitProducesChunkChain(t *testing.T) {
	unit, err := Compile(prog(manyDecls(12)...), splitConfig())
	require.NoError(t, err)

	units := unit.Flatten()
	require.Greater(t, len(units), 2)
	for _, u := range units[1:] {
		require.Equal(t, bytecode.KindChunk, u.Kind())
		// Chunks run in the caller's frame: every unit in the chain
		// reports the unit-wide watermark and shares slot names.
		require.Equal(t, 12, u.LocalCount())
		require.Equal(t, unit.LocalNameCount(), u.LocalNameCount())
	}
	require.Equal(t, 12, unit.LocalCount())
	require.True(t, hasOp(unit, op.CallUnit))

	// Each chain link holds at most one nested chunk (right-nested).
	for _, u := range units {
		nested := 0
		for i := 0; i < u.ConstantCount(); i++ {
			if _, ok := u.ConstantAt(i).(*bytecode.Unit); ok {
				nested++
			}
		}
		require.LessOrEqual(t, nested, 1)
	}
}

func TestSplitChunksEndWithReturn(t *testing.T) {
	unit, err := Compile(prog(manyDecls(12)...), splitConfig())
	require.NoError(t, err)
	for _, u := range unit.Flatten()[1:] {
		ops := opcodes(u)
		require.Equal(t, op.ReturnValue, ops[len(ops)-1])
	}
}

func TestSplitDisabled(t *testing.T) {
	unit, err := Compile(prog(manyDecls(12)...), &Config{SplitThreshold: -1, MaxUnitCost: 30})
	require.NoError(t, err)
	require.Equal(t, 0, unit.ChildCount())
}

func TestSplitRefusedOnReturnInTail(t *testing.T) {
	body := append(manyDecls(12), &ast.Return{Value: num(1)})
	c, err := New(splitConfig())
	require.NoError(t, err)
	unit, err := c.Compile(prog(
		&ast.SubDecl{Name: "f", Body: block(body...)},
	))
	require.NoError(t, err)

	// The sub body stayed whole: one child (the sub), no chunks below it.
	require.Equal(t, 1, unit.ChildCount())
	require.Equal(t, 0, unit.ChildAt(0).ChildCount())
	warnings := c.Warnings()
	require.NotEmpty(t, warnings)
	require.Contains(t, warnings[0], "unsafe to split")
}

func TestSplitRefusedOnLoopEscape(t *testing.T) {
	body := append(manyDecls(12), &ast.Control{Kind: ast.ControlLast})
	c, err := New(splitConfig())
	require.NoError(t, err)
	unit, err := c.Compile(prog(
		&ast.While{Cond: num(1), Body: block(body...)},
	))
	require.NoError(t, err)
	require.Equal(t, 0, unit.ChildCount())
	require.NotEmpty(t, c.Warnings())
}

func TestSplitProceedsWhenTailLoopIsLocal(t *testing.T) {
	body := manyDecls(12)
	body = append(body, &ast.While{Cond: num(0), Body: block(
		&ast.Control{Kind: ast.ControlNext},
	)})
	unit, err := Compile(prog(body...), splitConfig())
	require.NoError(t, err)
	require.Greater(t, unit.ChildCount(), 0)
	require.Equal(t, bytecode.KindChunk, unit.ChildAt(0).Kind())
}

func TestSplitProceedsWhenTailLabelIsLocal(t *testing.T) {
	// A labeled loop wholly inside the tail keeps its transfers local,
	// even when the label rides at the top level of the tail list.
	body := manyDecls(12)
	body = append(body,
		&ast.LabelStmt{Name: "L"},
		&ast.While{Cond: num(0), Body: block(
			&ast.Control{Kind: ast.ControlLast, Label: "L"},
		)},
	)
	c, err := New(splitConfig())
	require.NoError(t, err)
	unit, err := c.Compile(prog(body...))
	require.NoError(t, err)
	require.Greater(t, unit.ChildCount(), 0)
	require.Equal(t, bytecode.KindChunk, unit.ChildAt(0).Kind())
	require.Empty(t, c.Warnings())
}
