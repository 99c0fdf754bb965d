package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marmot-lang/marmot/token"
)

// IntLit is an integer literal.
type IntLit struct {
	Value    int64
	Position token.Position
}

func (x *IntLit) exprNode()           {}
func (x *IntLit) Pos() token.Position { return x.Position }
func (x *IntLit) String() string      { return strconv.FormatInt(x.Value, 10) }

// FloatLit is a floating point literal.
type FloatLit struct {
	Value    float64
	Position token.Position
}

func (x *FloatLit) exprNode()           {}
func (x *FloatLit) Pos() token.Position { return x.Position }
func (x *FloatLit) String() string      { return strconv.FormatFloat(x.Value, 'g', -1, 64) }

// StrLit is a string literal.
type StrLit struct {
	Value    string
	Position token.Position
}

func (x *StrLit) exprNode()           {}
func (x *StrLit) Pos() token.Position { return x.Position }
func (x *StrLit) String() string      { return strconv.Quote(x.Value) }

// UndefLit is the undef literal.
type UndefLit struct {
	Position token.Position
}

func (x *UndefLit) exprNode()           {}
func (x *UndefLit) Pos() token.Position { return x.Position }
func (x *UndefLit) String() string      { return "undef" }

// ArrayLit builds a new array reference: `[a, b, c]`.
type ArrayLit struct {
	Elems    []Expr
	Position token.Position
}

func (x *ArrayLit) exprNode()           {}
func (x *ArrayLit) Pos() token.Position { return x.Position }

func (x *ArrayLit) String() string {
	elems := make([]string, 0, len(x.Elems))
	for _, e := range x.Elems {
		elems = append(elems, e.String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// HashLit builds a new hash reference: `{k1, v1, k2, v2}`. Pairs is a
// flat key/value list and must have even length.
type HashLit struct {
	Pairs    []Expr
	Position token.Position
}

func (x *HashLit) exprNode()           {}
func (x *HashLit) Pos() token.Position { return x.Position }

func (x *HashLit) String() string {
	parts := make([]string, 0, len(x.Pairs)/2)
	for i := 0; i+1 < len(x.Pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%s => %s", x.Pairs[i], x.Pairs[i+1]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
