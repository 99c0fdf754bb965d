package compiler

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/marmot-lang/marmot/ast"
	"github.com/marmot-lang/marmot/errors"
)

// analyzeEscapes is the read-only safety pass run before a block split
// commits. It walks the candidate tail region and collects every
// control transfer that cannot cross a unit boundary:
//
//   - next/last/redo/goto resolving to a label or loop outside the tail
//   - any return, whose caller-visible effect would change once the
//     tail runs inside a chained unit
//
// Statements nested inside function literals get their own frames and
// are not escapes. The findings are aggregated; a non-nil result means
// the split must be refused.
func analyzeEscapes(tail []ast.Stmt, outerLabels *labelStack) error {
	a := &escapeAnalysis{outer: outerLabels}
	a.walkStmts(tail)
	return a.findings
}

type escapeAnalysis struct {
	outer *labelStack

	// localLoops counts unlabeled loop nesting introduced within the
	// tail; localLabels are label names established within the tail.
	localLoops  int
	localLabels map[string]int

	findings error
}

func (a *escapeAnalysis) report(format string, args ...any) {
	a.findings = multierror.Append(a.findings, fmt.Errorf(format, args...))
}

func (a *escapeAnalysis) walkStmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.Control:
		a.checkControl(stmt)
	case *ast.Return:
		a.report("return at %s cannot cross a split boundary", stmt.Pos())
	case *ast.Block:
		// A bare block participates in loop control.
		a.withLoop("", func() { a.walkStmts(stmt.Stmts) })
	case *ast.While:
		a.walkExpr(stmt.Cond)
		a.withLoop("", func() { a.walkStmts(stmt.Body.Stmts) })
	case *ast.Foreach:
		a.walkExpr(stmt.List)
		a.withLoop("", func() { a.walkStmts(stmt.Body.Stmts) })
	case *ast.If:
		a.walkExpr(stmt.Cond)
		a.walkStmts(stmt.Then.Stmts)
		if stmt.Else != nil {
			a.walkStmt(stmt.Else)
		}
	case *ast.ExprStmt:
		a.walkExpr(stmt.X)
	case *ast.Decl:
		if stmt.Init != nil {
			a.walkExpr(stmt.Init)
		}
	case *ast.LocalStmt:
		if stmt.Init != nil {
			a.walkExpr(stmt.Init)
		}
	case *ast.SubDecl:
		// Nested subroutine bodies run in their own frames.
	}
}

// walkStmts handles a statement list, binding each LabelStmt to the
// statement it controls.
func (a *escapeAnalysis) walkStmts(stmts []ast.Stmt) {
	var pendingLabel string
	for _, stmt := range stmts {
		if label, ok := stmt.(*ast.LabelStmt); ok {
			pendingLabel = label.Name
			continue
		}
		if pendingLabel != "" {
			name := pendingLabel
			pendingLabel = ""
			switch labeled := stmt.(type) {
			case *ast.While:
				a.walkExpr(labeled.Cond)
				a.withLoop(name, func() { a.walkStmts(labeled.Body.Stmts) })
			case *ast.Foreach:
				a.walkExpr(labeled.List)
				a.withLoop(name, func() { a.walkStmts(labeled.Body.Stmts) })
			case *ast.Block:
				a.withLoop(name, func() { a.walkStmts(labeled.Stmts) })
			default:
				a.walkStmt(stmt)
			}
			continue
		}
		a.walkStmt(stmt)
	}
}

func (a *escapeAnalysis) withLoop(name string, fn func()) {
	a.localLoops++
	if name != "" {
		if a.localLabels == nil {
			a.localLabels = map[string]int{}
		}
		a.localLabels[name]++
	}
	fn()
	if name != "" {
		a.localLabels[name]--
	}
	a.localLoops--
}

func (a *escapeAnalysis) checkControl(node *ast.Control) {
	if node.Label == "" {
		// Unlabeled transfers resolve to the nearest enclosing loop; a
		// loop opened inside the tail contains them.
		if a.localLoops > 0 {
			return
		}
		a.report("%s at %s targets a loop outside the split region", node.Kind, node.Pos())
		return
	}
	if a.localLabels[node.Label] > 0 {
		return
	}
	a.report("%s %s at %s targets a label outside the split region", node.Kind, node.Label, node.Pos())
}

func (a *escapeAnalysis) walkExpr(expr ast.Expr) {
	if expr == nil {
		return
	}
	// Transfers cannot appear in expression position except through an
	// eval block, whose statements are emitted inline and must be walked
	// like any others. Closure bodies run in their own frames and are
	// skipped.
	ast.Inspect(expr, func(n ast.Node) bool {
		if evalNode, ok := n.(*ast.Eval); ok {
			a.walkStmts(evalNode.Body.Stmts)
			return false
		}
		if _, ok := n.(*ast.FuncLit); ok {
			return false
		}
		return true
	})
}

// unsafeSplitError wraps the findings with the block position.
func unsafeSplitError(pos errors.SourceLocation, findings error) *errors.UnsafeSplitError {
	return &errors.UnsafeSplitError{Pos: pos, Err: findings}
}
