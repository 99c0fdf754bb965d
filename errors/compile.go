package errors

import (
	"fmt"
	"strings"
)

// CompileError represents a compilation error with rich context.
type CompileError struct {
	Code        ErrorCode
	Message     string
	Filename    string
	Line        int
	Column      int
	SourceLine  string
	Suggestions []Suggestion
	Note        string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("compile error: ")
	b.WriteString(e.Message)
	if e.Filename != "" || e.Line > 0 {
		b.WriteString("\n\nlocation: ")
		if e.Filename != "" {
			b.WriteString(e.Filename)
			b.WriteString(":")
		}
		fmt.Fprintf(&b, "%d:%d", e.Line, e.Column)
	}
	return b.String()
}

// Location returns the error position as a SourceLocation.
func (e *CompileError) Location() SourceLocation {
	return SourceLocation{
		Filename: e.Filename,
		Line:     e.Line,
		Column:   e.Column,
		Source:   e.SourceLine,
	}
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *CompileError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *CompileError) ToFormatted() *FormattedError {
	fe := &FormattedError{
		Code:     e.Code,
		Kind:     "compile error",
		Message:  e.Message,
		Filename: e.Filename,
		Line:     e.Line,
		Column:   e.Column,
		Note:     e.Note,
	}
	if e.SourceLine != "" {
		fe.SourceLines = []SourceLineEntry{
			{Number: e.Line, Text: e.SourceLine, IsMain: true},
		}
	}
	if len(e.Suggestions) > 0 {
		fe.Hint = FormatSuggestions(e.Suggestions)
	}
	return fe
}

// UnsupportedFeatureError reports an attempt to enable or disable an
// unrecognized feature, warning or strict mode name. It is fatal at
// compile time.
type UnsupportedFeatureError struct {
	CompileError

	// Category is the pragma category: "feature", "warnings" or "strict".
	Category string

	// Name is the unrecognized name.
	Name string
}

// NewUnsupportedFeatureError builds the error with suggestions drawn from
// the known names of the category.
func NewUnsupportedFeatureError(category, name string, known []string, loc SourceLocation) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{
		CompileError: CompileError{
			Code:        E2009,
			Message:     fmt.Sprintf("unknown %s name %q", category, name),
			Filename:    loc.Filename,
			Line:        loc.Line,
			Column:      loc.Column,
			SourceLine:  loc.Source,
			Suggestions: SuggestSimilar(name, known),
		},
		Category: category,
		Name:     name,
	}
}

// UnsafeSplitError reports that a block's tail region contains control
// flow that cannot safely cross a split boundary. It is internal to the
// compiler: the splitter recovers by refusing to split and emitting the
// oversized block as a single unit. Err aggregates the individual escape
// findings.
type UnsafeSplitError struct {
	Pos SourceLocation
	Err error
}

// Error implements the error interface.
func (e *UnsafeSplitError) Error() string {
	return fmt.Sprintf("unsafe to split block at %s: %v", e.Pos, e.Err)
}

// Unwrap returns the aggregated escape findings.
func (e *UnsafeSplitError) Unwrap() error {
	return e.Err
}

// CompileErrors holds multiple compile errors.
type CompileErrors struct {
	Errors []*CompileError
}

// Error implements the error interface.
func (e *CompileErrors) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// FriendlyErrorMessage returns a human-friendly message for all errors.
func (e *CompileErrors) FriendlyErrorMessage() string {
	if len(e.Errors) == 0 {
		return ""
	}
	formatted := make([]*FormattedError, 0, len(e.Errors))
	for _, err := range e.Errors {
		formatted = append(formatted, err.ToFormatted())
	}
	return NewFormatter(false).FormatMultiple(formatted)
}

// Add adds a compile error to the collection.
func (e *CompileErrors) Add(err *CompileError) {
	e.Errors = append(e.Errors, err)
}

// Count returns the number of errors.
func (e *CompileErrors) Count() int {
	return len(e.Errors)
}

// ToError returns the errors as a single error, or nil if empty.
func (e *CompileErrors) ToError() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	default:
		return e
	}
}
