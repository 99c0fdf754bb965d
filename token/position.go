// Package token defines source positions attached to AST nodes.
//
// Marmot has no lexer in this repository. Embedders construct AST values
// directly and fill in positions from whatever front end produced them;
// zero-value positions are legal and render as line 1, column 1.
package token

import "fmt"

// Position points to a particular location in an input source.
type Position struct {
	Line   int
	Column int
	File   string
}

// LineNumber returns the 1-indexed line number for this position.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.LineNumber(), p.ColumnNumber())
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.LineNumber(), p.ColumnNumber())
}
