package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileErrorMessage(t *testing.T) {
	err := &CompileError{
		Code:     E2001,
		Message:  `undefined variable "$x"`,
		Filename: "main.mt",
		Line:     3,
		Column:   9,
	}
	msg := err.Error()
	require.Contains(t, msg, "compile error")
	require.Contains(t, msg, `undefined variable "$x"`)
	require.Contains(t, msg, "main.mt:3:9")
}

func TestCompileErrorFormatted(t *testing.T) {
	err := &CompileError{
		Code:       E2001,
		Message:    `undefined variable "$coutn"`,
		Filename:   "main.mt",
		Line:       2,
		Column:     9,
		SourceLine: "my $y = $coutn + 1;",
		Suggestions: []Suggestion{
			{Value: "$count", Distance: 2},
		},
	}
	msg := err.FriendlyErrorMessage()
	require.Contains(t, msg, "compile error[E2001]")
	require.Contains(t, msg, "--> main.mt:2:9")
	require.Contains(t, msg, "my $y = $coutn + 1;")
	require.Contains(t, msg, "Did you mean '$count'?")
	require.Contains(t, msg, "^")
}

func TestUnsupportedFeatureError(t *testing.T) {
	err := NewUnsupportedFeatureError("feature", "sayy",
		[]string{"say", "unicode_strings", "signatures"},
		SourceLocation{Filename: "main.mt", Line: 1, Column: 1})
	require.Equal(t, E2009, err.Code)
	require.Equal(t, "feature", err.Category)
	require.Equal(t, "sayy", err.Name)
	require.Contains(t, err.Error(), `unknown feature name "sayy"`)
	require.NotEmpty(t, err.Suggestions)
	require.Equal(t, "say", err.Suggestions[0].Value)

	// Catchable as a CompileError through errors.As.
	var ce *UnsupportedFeatureError
	require.True(t, errors.As(error(err), &ce))
}

func TestUnsafeSplitError(t *testing.T) {
	cause := errors.New(`"last OUTER" at statement 4 targets a label outside the tail`)
	err := &UnsafeSplitError{
		Pos: SourceLocation{Line: 10, Column: 1},
		Err: cause,
	}
	require.Contains(t, err.Error(), "unsafe to split block")
	require.Contains(t, err.Error(), "10:1")
	require.ErrorIs(t, err, cause)
}

func TestCompileErrors(t *testing.T) {
	var errs CompileErrors
	require.NoError(t, errs.ToError())
	require.Equal(t, 0, errs.Count())

	errs.Add(&CompileError{Code: E2001, Message: "first"})
	require.Equal(t, 1, errs.Count())
	require.Equal(t, errs.Errors[0], errs.ToError())

	errs.Add(&CompileError{Code: E2004, Message: "second"})
	err := errs.ToError()
	require.Contains(t, err.Error(), "first")
	require.Contains(t, err.Error(), "and 1 more errors")

	msg := errs.FriendlyErrorMessage()
	require.Contains(t, msg, "2 errors generated")
}

func TestErrorCodeCategories(t *testing.T) {
	require.Equal(t, "compile", E2001.Category())
	require.Equal(t, "runtime", E3003.Category())
	require.Equal(t, "dereference of undefined value", E3003.Description())
	require.Equal(t, "dereference type mismatch", E3004.Description())
}

func TestSuggestSimilar(t *testing.T) {
	got := SuggestSimilar("redefin", []string{"redefine", "recursion", "shadow"})
	require.NotEmpty(t, got)
	require.Equal(t, "redefine", got[0].Value)

	// Short targets only match near-exact candidates.
	require.Empty(t, SuggestSimilar("say", []string{"shadow", "state"}))
	require.NotEmpty(t, SuggestSimilar("say", []string{"says"}))

	// Limited to MaxSuggestions.
	many := SuggestSimilar("warn", []string{"warns", "warp", "ward", "wart", "wary"})
	require.LessOrEqual(t, len(many), MaxSuggestions)
}

func TestFormatSuggestions(t *testing.T) {
	require.Equal(t, "", FormatSuggestions(nil))
	require.Equal(t, "Did you mean '$x'?", FormatSuggestions([]Suggestion{{Value: "$x"}}))
	multi := FormatSuggestions([]Suggestion{{Value: "a"}, {Value: "b"}})
	require.True(t, strings.HasPrefix(multi, "Did you mean one of:"))
	require.Contains(t, multi, "'a', 'b'")
}

func TestEditDistance(t *testing.T) {
	require.Equal(t, 0, editDistance("same", "same"))
	require.Equal(t, 1, editDistance("cat", "cats"))
	require.Equal(t, 3, editDistance("", "abc"))
}
