package ast

import (
	"fmt"
	"strings"

	"github.com/marmot-lang/marmot/token"
)

// Block is an ordered statement sequence forming one lexical scope.
// A Block used directly as a statement is a bare block, which runs once
// but participates in loop control (next/last/redo) like a one-iteration
// loop, as in Perl.
type Block struct {
	Stmts    []Stmt
	Position token.Position
}

func (b *Block) stmtNode()           {}
func (b *Block) Pos() token.Position { return b.Position }

func (b *Block) String() string {
	lines := make([]string, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		lines = append(lines, s.String())
	}
	return "{ " + strings.Join(lines, " ") + " }"
}

// ExprStmt adapts an expression to statement position.
type ExprStmt struct {
	X        Expr
	Position token.Position
}

func (s *ExprStmt) stmtNode()           {}
func (s *ExprStmt) Pos() token.Position { return s.Position }
func (s *ExprStmt) String() string      { return s.X.String() + ";" }

// Decl declares one lexical or package variable: `my $x = init;` or
// `our @a;`. Init may be nil.
type Decl struct {
	Kind     DeclKind
	Name     *Var
	Init     Expr
	Position token.Position
}

func (s *Decl) stmtNode()           {}
func (s *Decl) Pos() token.Position { return s.Position }

func (s *Decl) String() string {
	if s.Init == nil {
		return fmt.Sprintf("%s %s;", s.Kind, s.Name)
	}
	return fmt.Sprintf("%s %s = %s;", s.Kind, s.Name, s.Init)
}

// LocalStmt dynamically rebinds a package variable for the lifetime of
// the enclosing block: `local $x = init;`. Init may be nil, which binds
// undef.
type LocalStmt struct {
	Name     *Var
	Init     Expr
	Position token.Position
}

func (s *LocalStmt) stmtNode()           {}
func (s *LocalStmt) Pos() token.Position { return s.Position }

func (s *LocalStmt) String() string {
	if s.Init == nil {
		return fmt.Sprintf("local %s;", s.Name)
	}
	return fmt.Sprintf("local %s = %s;", s.Name, s.Init)
}

// If is a conditional statement. Else may be a *Block, another *If
// (elsif chain), or nil.
type If struct {
	Cond     Expr
	Then     *Block
	Else     Stmt
	Position token.Position
}

func (s *If) stmtNode()           {}
func (s *If) Pos() token.Position { return s.Position }

func (s *If) String() string {
	out := fmt.Sprintf("if (%s) %s", s.Cond, s.Then)
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

// While is a pre-test loop.
type While struct {
	Cond     Expr
	Body     *Block
	Position token.Position
}

func (s *While) stmtNode()           {}
func (s *While) Pos() token.Position { return s.Position }
func (s *While) String() string      { return fmt.Sprintf("while (%s) %s", s.Cond, s.Body) }

// Foreach iterates a list or dereferenced container, copying each element
// into a fresh lexical loop variable.
type Foreach struct {
	Var      *Var
	List     Expr
	Body     *Block
	Position token.Position
}

func (s *Foreach) stmtNode()           {}
func (s *Foreach) Pos() token.Position { return s.Position }

func (s *Foreach) String() string {
	return fmt.Sprintf("foreach my %s (%s) %s", s.Var, s.List, s.Body)
}

// Control is one of the transfer statements next/last/redo/goto, with an
// optional target label. An empty label resolves to the nearest enclosing
// loop construct.
type Control struct {
	Kind     ControlKind
	Label    string
	Position token.Position
}

func (s *Control) stmtNode()           {}
func (s *Control) Pos() token.Position { return s.Position }

func (s *Control) String() string {
	if s.Label == "" {
		return s.Kind.String() + ";"
	}
	return fmt.Sprintf("%s %s;", s.Kind, s.Label)
}

// Return exits the enclosing subroutine. Value may be nil (returns undef).
type Return struct {
	Value    Expr
	Position token.Position
}

func (s *Return) stmtNode()           {}
func (s *Return) Pos() token.Position { return s.Position }

func (s *Return) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value)
}

// SubDecl declares a named subroutine in the current package.
type SubDecl struct {
	Name     string
	Params   []*Var
	Body     *Block
	Position token.Position
}

func (s *SubDecl) stmtNode()           {}
func (s *SubDecl) Pos() token.Position { return s.Position }

func (s *SubDecl) String() string {
	params := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		params = append(params, p.String())
	}
	return fmt.Sprintf("sub %s(%s) %s", s.Name, strings.Join(params, ", "), s.Body)
}

// PackageStmt switches the current package for the remainder of the
// enclosing scope. Class marks object-class packages.
type PackageStmt struct {
	Name     string
	Class    bool
	Position token.Position
}

func (s *PackageStmt) stmtNode()           {}
func (s *PackageStmt) Pos() token.Position { return s.Position }

func (s *PackageStmt) String() string {
	if s.Class {
		return fmt.Sprintf("class %s;", s.Name)
	}
	return fmt.Sprintf("package %s;", s.Name)
}

// Pragma enables or disables named bits in one of the lexically-scoped
// flag categories: "feature", "warnings" or "strict". Empty Names selects
// the category's default set.
type Pragma struct {
	Enable   bool
	Category string
	Names    []string
	Position token.Position
}

func (s *Pragma) stmtNode()           {}
func (s *Pragma) Pos() token.Position { return s.Position }

func (s *Pragma) String() string {
	verb := "use"
	if !s.Enable {
		verb = "no"
	}
	if len(s.Names) == 0 {
		return fmt.Sprintf("%s %s;", verb, s.Category)
	}
	quoted := make([]string, 0, len(s.Names))
	for _, n := range s.Names {
		quoted = append(quoted, fmt.Sprintf("%q", n))
	}
	return fmt.Sprintf("%s %s %s;", verb, s.Category, strings.Join(quoted, ", "))
}

// LabelStmt attaches a name to the immediately following statement.
// Peeling and emission treat the pair as inseparable.
type LabelStmt struct {
	Name     string
	Position token.Position
}

func (s *LabelStmt) stmtNode()           {}
func (s *LabelStmt) Pos() token.Position { return s.Position }
func (s *LabelStmt) String() string      { return s.Name + ":" }
