package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders errors in a consistent, Rust-like style with optional
// ANSI colors.
type Formatter struct {
	UseColor bool
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

var (
	colorHeader   = color.New(color.FgRed, color.Bold)
	colorCode     = color.New(color.FgHiBlack)
	colorLocation = color.New(color.FgCyan)
	colorGutter   = color.New(color.FgHiBlack)
	colorCaret    = color.New(color.FgHiRed)
	colorHint     = color.New(color.FgHiYellow)
	colorNote     = color.New(color.FgHiBlue)
)

// FormattedError represents an error ready for display.
type FormattedError struct {
	Code        ErrorCode
	Kind        string // "compile error", "runtime error"
	Message     string
	Filename    string
	Line        int
	Column      int
	SourceLines []SourceLineEntry
	Hint        string
	Note        string
}

// SourceLineEntry represents a line of source code with its number.
type SourceLineEntry struct {
	Number int
	Text   string
	IsMain bool // True if this is the line with the error
}

func (f *Formatter) paint(c *color.Color, s string) string {
	if !f.UseColor {
		return s
	}
	return c.Sprint(s)
}

// Format formats one error.
func (f *Formatter) Format(err *FormattedError) string {
	var b strings.Builder

	kind := err.Kind
	if kind == "" {
		kind = "error"
	}
	b.WriteString(f.paint(colorHeader, kind))
	if err.Code != "" {
		b.WriteString(f.paint(colorCode, fmt.Sprintf("[%s]", err.Code)))
	}
	b.WriteString(": ")
	b.WriteString(err.Message)
	b.WriteString("\n")

	gutterWidth := 2
	for _, line := range err.SourceLines {
		if w := len(fmt.Sprintf("%d", line.Number)); w > gutterWidth {
			gutterWidth = w
		}
	}
	pad := strings.Repeat(" ", gutterWidth)

	if err.Line > 0 || err.Filename != "" {
		loc := SourceLocation{Filename: err.Filename, Line: err.Line, Column: err.Column}
		b.WriteString(pad)
		b.WriteString(f.paint(colorLocation, "--> "+loc.String()))
		b.WriteString("\n")
	}

	if len(err.SourceLines) > 0 {
		b.WriteString(pad)
		b.WriteString(f.paint(colorGutter, " |"))
		b.WriteString("\n")
		for _, line := range err.SourceLines {
			gutter := fmt.Sprintf("%*d |", gutterWidth, line.Number)
			b.WriteString(f.paint(colorGutter, gutter))
			b.WriteString(" ")
			b.WriteString(line.Text)
			b.WriteString("\n")
			if line.IsMain && err.Column > 0 && err.Column <= len(line.Text)+1 {
				b.WriteString(pad)
				b.WriteString(f.paint(colorGutter, " |"))
				b.WriteString(strings.Repeat(" ", err.Column))
				b.WriteString(f.paint(colorCaret, "^"))
				b.WriteString("\n")
			}
		}
	}

	if err.Hint != "" {
		b.WriteString(pad)
		b.WriteString(f.paint(colorHint, " = hint: "+err.Hint))
		b.WriteString("\n")
	}
	if err.Note != "" {
		b.WriteString(pad)
		b.WriteString(f.paint(colorNote, " = note: "+err.Note))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMultiple formats several errors separated by blank lines, with a
// trailing count summary when there is more than one.
func (f *Formatter) FormatMultiple(errs []*FormattedError) string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, f.Format(e))
	}
	out := strings.Join(parts, "\n")
	if len(errs) > 1 {
		out += "\n" + f.paint(colorHeader, fmt.Sprintf("%d errors generated", len(errs)))
	}
	return out
}
