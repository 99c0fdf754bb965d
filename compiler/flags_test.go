package compiler

import (
	"testing"

	"github.com/marmot-lang/marmot/errors"
	"github.com/stretchr/testify/require"
)

func TestFlagsSetFeature(t *testing.T) {
	var f Flags
	require.False(t, f.FeatureEnabled("say"))

	err := f.Set(CategoryFeature, []string{"say"}, true, errors.SourceLocation{})
	require.NoError(t, err)
	require.True(t, f.FeatureEnabled("say"))
	require.False(t, f.FeatureEnabled("signatures"))

	err = f.Set(CategoryFeature, []string{"say"}, false, errors.SourceLocation{})
	require.NoError(t, err)
	require.False(t, f.FeatureEnabled("say"))
}

func TestFlagsFeatureBundle(t *testing.T) {
	var f Flags
	require.NoError(t, f.Set(CategoryFeature, nil, true, errors.SourceLocation{}))
	require.True(t, f.FeatureEnabled("say"))
	require.True(t, f.FeatureEnabled("signatures"))
	require.True(t, f.FeatureEnabled("fc"))
	// Not part of the default bundle.
	require.False(t, f.FeatureEnabled("postderef"))
	require.False(t, f.FeatureEnabled("state"))
}

func TestFlagsAllWarnings(t *testing.T) {
	var f Flags
	require.NoError(t, f.Set(CategoryWarnings, []string{"all"}, true, errors.SourceLocation{}))
	require.True(t, f.WarningEnabled("shadow"))
	require.True(t, f.WarningEnabled("redefine"))
	require.True(t, f.WarningEnabled("void"))

	require.NoError(t, f.Set(CategoryWarnings, []string{"shadow"}, false, errors.SourceLocation{}))
	require.False(t, f.WarningEnabled("shadow"))
	require.True(t, f.WarningEnabled("redefine"))
}

func TestFlagsStrict(t *testing.T) {
	var f Flags
	require.NoError(t, f.Set(CategoryStrict, nil, true, errors.SourceLocation{}))
	require.True(t, f.StrictEnabled("vars"))
	require.True(t, f.StrictEnabled("refs"))
	require.True(t, f.StrictEnabled("subs"))

	require.NoError(t, f.Set(CategoryStrict, []string{"vars"}, false, errors.SourceLocation{}))
	require.False(t, f.StrictEnabled("vars"))
	require.True(t, f.StrictEnabled("subs"))
}

func TestFlagsUnknownNameIsFatal(t *testing.T) {
	var f Flags
	err := f.Set(CategoryFeature, []string{"sayy"}, true, errors.SourceLocation{Line: 3, Column: 1})
	require.Error(t, err)

	var unsupported *errors.UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "feature", unsupported.Category)
	require.Equal(t, "sayy", unsupported.Name)
	require.Equal(t, 3, unsupported.Line)
	require.NotEmpty(t, unsupported.Suggestions)
	require.Equal(t, "say", unsupported.Suggestions[0].Value)
}

func TestFlagsNoopAllowList(t *testing.T) {
	var f Flags
	// Accepted for source compatibility, no bit changes.
	err := f.Set(CategoryFeature, []string{"bareword_filehandles"}, false, errors.SourceLocation{})
	require.NoError(t, err)
	require.Equal(t, Flags{}, f)
}

func TestFlagsValueSemantics(t *testing.T) {
	var parent Flags
	require.NoError(t, parent.Set(CategoryFeature, []string{"say"}, true, errors.SourceLocation{}))

	child := parent
	require.NoError(t, child.Set(CategoryFeature, []string{"say"}, false, errors.SourceLocation{}))
	require.NoError(t, child.Set(CategoryStrict, []string{"vars"}, true, errors.SourceLocation{}))

	require.True(t, parent.FeatureEnabled("say"))
	require.False(t, parent.StrictEnabled("vars"))
}

func TestKnownNamesSorted(t *testing.T) {
	names := KnownNames(CategoryWarnings)
	require.Contains(t, names, "all")
	require.Contains(t, names, "shadow")
	for i := 1; i < len(names); i++ {
		require.LessOrEqual(t, names[i-1], names[i])
	}
}
