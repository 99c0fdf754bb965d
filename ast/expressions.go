package ast

import (
	"fmt"
	"strings"

	"github.com/marmot-lang/marmot/token"
)

// Var is a variable reference. Name includes the sigil: "$x", "@a", "%h".
type Var struct {
	Name     string
	Position token.Position
}

func (x *Var) exprNode()           {}
func (x *Var) Pos() token.Position { return x.Position }
func (x *Var) String() string      { return x.Name }

// Sigil returns the leading sigil byte, or 0 for a malformed name.
func (x *Var) Sigil() byte {
	if len(x.Name) == 0 {
		return 0
	}
	return x.Name[0]
}

// Assign writes Value into Target, which must be a *Var or an *Elem.
// Evaluates to the assigned value.
type Assign struct {
	Target   Expr
	Value    Expr
	Position token.Position
}

func (x *Assign) exprNode()           {}
func (x *Assign) Pos() token.Position { return x.Position }
func (x *Assign) String() string      { return fmt.Sprintf("%s = %s", x.Target, x.Value) }

// Infix is a binary operator expression. Operators: + - * / % . == != < <=
// > >= eq ne lt gt && ||. The logical operators short-circuit.
type Infix struct {
	Op       string
	Left     Expr
	Right    Expr
	Position token.Position
}

func (x *Infix) exprNode()           {}
func (x *Infix) Pos() token.Position { return x.Position }
func (x *Infix) String() string      { return fmt.Sprintf("(%s %s %s)", x.Left, x.Op, x.Right) }

// Prefix is a unary operator expression. Operators: - ! not.
type Prefix struct {
	Op       string
	X        Expr
	Position token.Position
}

func (x *Prefix) exprNode()           {}
func (x *Prefix) Pos() token.Position { return x.Position }
func (x *Prefix) String() string      { return fmt.Sprintf("(%s%s)", x.Op, x.X) }

// FuncName names a subroutine in call position: `f(...)` or `&Foo::f(...)`.
type FuncName struct {
	Name     string
	Position token.Position
}

func (x *FuncName) exprNode()           {}
func (x *FuncName) Pos() token.Position { return x.Position }
func (x *FuncName) String() string      { return x.Name }

// Call invokes a subroutine. Fn is a *FuncName for named subs or any
// expression evaluating to a code value (`$f->(...)`).
type Call struct {
	Fn       Expr
	Args     []Expr
	Position token.Position
}

func (x *Call) exprNode()           {}
func (x *Call) Pos() token.Position { return x.Position }

func (x *Call) String() string {
	args := make([]string, 0, len(x.Args))
	for _, a := range x.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", x.Fn, strings.Join(args, ", "))
}

// Builtin invokes one of the language builtins: push pop shift unshift
// splice sort reverse scalar defined exists delete say warn die.
type Builtin struct {
	Name     string
	Args     []Expr
	Position token.Position
}

func (x *Builtin) exprNode()           {}
func (x *Builtin) Pos() token.Position { return x.Position }

func (x *Builtin) String() string {
	args := make([]string, 0, len(x.Args))
	for _, a := range x.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", x.Name, strings.Join(args, ", "))
}

// FuncLit is an anonymous subroutine. It closes over every lexical
// variable visible at its definition site.
type FuncLit struct {
	Params   []*Var
	Body     *Block
	Position token.Position
}

func (x *FuncLit) exprNode()           {}
func (x *FuncLit) Pos() token.Position { return x.Position }

func (x *FuncLit) String() string {
	params := make([]string, 0, len(x.Params))
	for _, p := range x.Params {
		params = append(params, p.String())
	}
	return fmt.Sprintf("sub (%s) %s", strings.Join(params, ", "), x.Body)
}

// Elem is a single element access. With Deref false, X is a container
// variable and this is `$a[i]` / `$h{k}`. With Deref true, X is a scalar
// expression holding a reference and this is `$x->[i]` / `$x->{k}`, which
// vivifies the outer container in any context.
type Elem struct {
	X        Expr
	Key      Expr
	IsHash   bool
	Deref    bool
	Position token.Position
}

func (x *Elem) exprNode()           {}
func (x *Elem) Pos() token.Position { return x.Position }

func (x *Elem) String() string {
	open, close := "[", "]"
	if x.IsHash {
		open, close = "{", "}"
	}
	if x.Deref {
		return fmt.Sprintf("%s->%s%s%s", x.X, open, x.Key, close)
	}
	return fmt.Sprintf("%s%s%s%s", x.X, open, x.Key, close)
}

// Deref is an explicit container dereference of a scalar: `@{$x}` with
// Sigil '@', `%{$x}` with Sigil '%'.
type Deref struct {
	Sigil    byte
	X        Expr
	Position token.Position
}

func (x *Deref) exprNode()           {}
func (x *Deref) Pos() token.Position { return x.Position }
func (x *Deref) String() string      { return fmt.Sprintf("%c{%s}", x.Sigil, x.X) }

// Eval runs Body trapping errors: on failure the expression evaluates to
// undef and the error is left in $@, otherwise $@ is cleared.
type Eval struct {
	Body     *Block
	Position token.Position
}

func (x *Eval) exprNode()           {}
func (x *Eval) Pos() token.Position { return x.Position }
func (x *Eval) String() string      { return "eval " + x.Body.String() }
