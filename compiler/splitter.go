package compiler

import "github.com/marmot-lang/marmot/ast"

// Emission cost estimation. The weights are conservative upper bounds
// on the instruction words a node expands to; they only need to be
// monotonic and pessimistic, since an overestimate merely splits a
// little earlier than strictly necessary.
const (
	costPerNode = 3

	// costBlockOverhead covers the dynamic-scope save/restore pair and
	// the statement-separator pops a block adds around its statements.
	costBlockOverhead = 8

	// costLoopOverhead covers condition jumps and the back edge.
	costLoopOverhead = 8
)

// estimateStmts returns the estimated emission cost of a statement
// list.
func estimateStmts(stmts []ast.Stmt) int {
	total := 0
	for _, stmt := range stmts {
		total += estimateNode(stmt)
	}
	return total
}

// estimateNode walks one node and sums per-node weights.
func estimateNode(node ast.Node) int {
	cost := 0
	ast.Inspect(node, func(n ast.Node) bool {
		cost += costPerNode
		switch n.(type) {
		case *ast.Block:
			cost += costBlockOverhead
		case *ast.While, *ast.Foreach:
			cost += costLoopOverhead
		case *ast.If, *ast.Eval:
			cost += costLoopOverhead
		case *ast.FuncLit, *ast.SubDecl:
			// Function bodies are emitted into their own units; only
			// the definition-site cell and closure loads land here.
			return false
		}
		return true
	})
	return cost
}

// peelPoint chooses how many leading statements stay in the current
// unit when a block is split: statements are accumulated off the front
// until adding the next one would exceed the ceiling. At least one
// statement is always peeled so the recursion terminates. A boundary
// never separates a LabelStmt from the statement it controls: the pair
// moves as one step.
func peelPoint(stmts []ast.Stmt, maxCost int) int {
	cost := 0
	k := 0
	for k < len(stmts) {
		step := estimateNode(stmts[k])
		span := 1
		if _, ok := stmts[k].(*ast.LabelStmt); ok && k+1 < len(stmts) {
			step += estimateNode(stmts[k+1])
			span = 2
		}
		if k > 0 && cost+step > maxCost {
			break
		}
		cost += step
		k += span
	}
	if k >= len(stmts) {
		// Nothing left for a tail; the caller emits the block whole.
		return len(stmts)
	}
	return k
}
