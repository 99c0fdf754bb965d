// Package ast defines the abstract syntax tree representation of Marmot
// code. There is no parser in this repository: embedders and tests build
// these values directly.
package ast

import (
	"strings"

	"github.com/marmot-lang/marmot/token"
)

// Node represents a portion of the syntax tree. All nodes carry position
// information indicating where they appear in the source.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// String returns a human friendly representation of the node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: an ordered sequence of statements.
type Program struct {
	Stmts    []Stmt
	Position token.Position
}

func (p *Program) Pos() token.Position { return p.Position }

func (p *Program) String() string {
	lines := make([]string, 0, len(p.Stmts))
	for _, s := range p.Stmts {
		lines = append(lines, s.String())
	}
	return strings.Join(lines, "\n")
}

// DeclKind distinguishes how a variable was introduced.
type DeclKind int

const (
	DeclMy DeclKind = iota
	DeclOur
	DeclParam
)

func (k DeclKind) String() string {
	switch k {
	case DeclMy:
		return "my"
	case DeclOur:
		return "our"
	case DeclParam:
		return "param"
	default:
		return "unknown"
	}
}

// ControlKind distinguishes the loop-control and goto transfer statements.
type ControlKind int

const (
	ControlNext ControlKind = iota
	ControlLast
	ControlRedo
	ControlGoto
)

func (k ControlKind) String() string {
	switch k {
	case ControlNext:
		return "next"
	case ControlLast:
		return "last"
	case ControlRedo:
		return "redo"
	case ControlGoto:
		return "goto"
	default:
		return "unknown"
	}
}
