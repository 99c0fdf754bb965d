// Package table renders small bordered ASCII tables for diagnostic
// output. Cells may contain ANSI color sequences; column widths are
// computed on the stripped text so coloring never breaks alignment.
package table

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Alignment controls how cell content is padded within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Table accumulates rows and renders them with a bordered layout.
type Table struct {
	writer          io.Writer
	header          []string
	rows            [][]string
	columnAlignment []Alignment
	headerAlignment []Alignment
}

// NewTable creates a table that renders to the given writer.
func NewTable(w io.Writer) *Table {
	return &Table{writer: w}
}

// WithHeader sets the header row.
func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

// WithColumnAlignment sets per-column alignment for body rows. Columns
// without an entry default to AlignLeft.
func (t *Table) WithColumnAlignment(alignment []Alignment) *Table {
	t.columnAlignment = alignment
	return t
}

// WithHeaderAlignment sets per-column alignment for the header row.
// Columns without an entry default to AlignCenter.
func (t *Table) WithHeaderAlignment(alignment []Alignment) *Table {
	t.headerAlignment = alignment
	return t
}

// Append adds one body row.
func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

// Render writes the table to the writer.
func (t *Table) Render() {
	columns := len(t.header)
	for _, row := range t.rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	if columns == 0 {
		return
	}
	widths := make([]int, columns)
	measure := func(row []string) {
		for i, cell := range row {
			if w := len(stripAnsi(cell)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}

	segments := make([]string, columns)
	for i, w := range widths {
		segments[i] = strings.Repeat("-", w+2)
	}
	border := "+" + strings.Join(segments, "+") + "+"

	fmt.Fprintln(t.writer, border)
	if len(t.header) > 0 {
		t.renderRow(t.header, widths, t.headerAlignment, AlignCenter)
		fmt.Fprintln(t.writer, border)
	}
	for _, row := range t.rows {
		t.renderRow(row, widths, t.columnAlignment, AlignLeft)
	}
	fmt.Fprintln(t.writer, border)
}

func (t *Table) renderRow(row []string, widths []int, alignment []Alignment, fallback Alignment) {
	cells := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		align := fallback
		if i < len(alignment) {
			align = alignment[i]
		}
		cells[i] = pad(cell, width, align)
	}
	fmt.Fprintln(t.writer, "| "+strings.Join(cells, " | ")+" |")
}

func pad(s string, width int, align Alignment) string {
	gap := width - len(stripAnsi(s))
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}
