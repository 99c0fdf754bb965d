package ast

// Visitor has its Visit method invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order: it starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor w
// for each non-nil child of node, followed by a call of w.Visit(nil).
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, s := range n.Stmts {
			Walk(v, s)
		}
	case *Block:
		for _, s := range n.Stmts {
			Walk(v, s)
		}
	case *ExprStmt:
		Walk(v, n.X)
	case *Decl:
		Walk(v, n.Name)
		if n.Init != nil {
			Walk(v, n.Init)
		}
	case *LocalStmt:
		Walk(v, n.Name)
		if n.Init != nil {
			Walk(v, n.Init)
		}
	case *If:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}
	case *While:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *Foreach:
		Walk(v, n.Var)
		Walk(v, n.List)
		Walk(v, n.Body)
	case *Return:
		if n.Value != nil {
			Walk(v, n.Value)
		}
	case *SubDecl:
		for _, p := range n.Params {
			Walk(v, p)
		}
		Walk(v, n.Body)
	case *Assign:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *Infix:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *Prefix:
		Walk(v, n.X)
	case *Call:
		Walk(v, n.Fn)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *Builtin:
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *FuncLit:
		for _, p := range n.Params {
			Walk(v, p)
		}
		Walk(v, n.Body)
	case *Elem:
		Walk(v, n.X)
		Walk(v, n.Key)
	case *Deref:
		Walk(v, n.X)
	case *Eval:
		Walk(v, n.Body)
	case *ArrayLit:
		for _, e := range n.Elems {
			Walk(v, e)
		}
	case *HashLit:
		for _, e := range n.Pairs {
			Walk(v, e)
		}
	case *Control, *PackageStmt, *Pragma, *LabelStmt, *Var, *FuncName,
		*IntLit, *FloatLit, *StrLit, *UndefLit:
		// no children
	}

	v.Visit(nil)
}

// Inspect traverses an AST in depth-first order, calling f for each node.
// If f returns false for a node, the node's children are skipped.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if node != nil && f(node) {
		return f
	}
	return nil
}
