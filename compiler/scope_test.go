package compiler

import (
	"testing"

	"github.com/marmot-lang/marmot/ast"
	"github.com/marmot-lang/marmot/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestScopes() *ScopeStack {
	return NewScopeStack(NewGlobals(), zerolog.Nop())
}

func TestScopeAddAndLookup(t *testing.T) {
	s := newTestScopes()
	slot := s.Add("$x", ast.DeclMy, nil)
	require.Equal(t, 0, slot)
	slot = s.Add("@a", ast.DeclMy, nil)
	require.Equal(t, 1, slot)

	sym := s.Lookup("$x")
	require.NotNil(t, sym)
	require.Equal(t, "$x", sym.Name())
	require.Equal(t, 0, sym.Index())
	require.Equal(t, ast.DeclMy, sym.Kind())

	require.Equal(t, 1, s.Index("@a"))
	require.Equal(t, -1, s.Index("%h"))
	require.Nil(t, s.Lookup("%h"))
}

func TestScopeIsolation(t *testing.T) {
	s := newTestScopes()
	s.Add("$x", ast.DeclMy, nil)

	id := s.Enter()
	s.Add("$y", ast.DeclMy, nil)
	require.NotNil(t, s.Lookup("$y"))
	require.NotNil(t, s.Lookup("$x"))
	s.Exit(id)

	require.Nil(t, s.Lookup("$y"))
	require.NotNil(t, s.Lookup("$x"))
}

func TestWatermarkNeverLowered(t *testing.T) {
	s := newTestScopes()
	s.Add("$x", ast.DeclMy, nil)
	require.Equal(t, 1, s.Watermark())

	id := s.Enter()
	s.Add("$a", ast.DeclMy, nil)
	s.Add("$b", ast.DeclMy, nil)
	require.Equal(t, 3, s.Watermark())
	s.Exit(id)

	// Exiting folds the maximum watermark into the survivor, so slots of
	// an exited scope are never reassigned.
	require.Equal(t, 3, s.Watermark())

	id = s.Enter()
	slot := s.Add("$c", ast.DeclMy, nil)
	require.Equal(t, 3, slot)
	s.Exit(id)
	require.Equal(t, 4, s.Watermark())
}

func TestWatermarkFoldsDeepestOnMultiLevelExit(t *testing.T) {
	s := newTestScopes()
	outer := s.Enter()
	s.Add("$a", ast.DeclMy, nil)
	s.Enter()
	s.Add("$b", ast.DeclMy, nil)
	s.Enter()
	s.Add("$c", ast.DeclMy, nil)

	// One Exit unwinds all three levels.
	s.Exit(outer)
	require.Equal(t, 1, s.Depth())
	require.Equal(t, 3, s.Watermark())
}

func TestShadowingAndVisible(t *testing.T) {
	s := newTestScopes()
	s.Add("$x", ast.DeclMy, nil)
	s.Add("$y", ast.DeclMy, nil)

	s.Enter()
	s.Add("$x", ast.DeclMy, nil)

	visible := s.Visible()
	require.Len(t, visible, 2)
	// One entry per distinct name, innermost winning, slot order.
	require.Equal(t, "$y", visible[0].Name())
	require.Equal(t, 1, visible[0].Index())
	require.Equal(t, "$x", visible[1].Name())
	require.Equal(t, 2, visible[1].Index())
}

func TestOurBindsGlobalSlot(t *testing.T) {
	s := newTestScopes()
	slot := s.Add("$counter", ast.DeclOur, nil)
	sym := s.Lookup("$counter")
	require.NotNil(t, sym)
	require.Equal(t, -1, sym.Index())
	require.Equal(t, slot, sym.GlobalSlot())
	require.Equal(t, slot, s.Globals().LookupSlot("main", "$counter"))

	// No local slot is consumed.
	require.Equal(t, 0, s.Watermark())
}

func TestSnapshotCapturesLexicals(t *testing.T) {
	s := newTestScopes()
	s.Add("$x", ast.DeclMy, nil)
	s.Add("$g", ast.DeclOur, nil)
	s.Enter()
	s.Add("$y", ast.DeclMy, nil)

	captured := s.Captured()
	require.Len(t, captured, 2)
	require.Equal(t, "$x", captured[0].Name())
	require.Equal(t, "$y", captured[1].Name())

	snap := s.Snapshot()
	x := snap.Lookup("$x")
	require.NotNil(t, x)
	require.True(t, x.IsFree())
	require.Equal(t, 0, x.FreeIndex())
	y := snap.Lookup("$y")
	require.NotNil(t, y)
	require.True(t, y.IsFree())
	require.Equal(t, 1, y.FreeIndex())

	g := snap.Lookup("$g")
	require.NotNil(t, g)
	require.False(t, g.IsFree())
	require.Equal(t, ast.DeclOur, g.Kind())
	require.Equal(t, s.Globals().LookupSlot("main", "$g"), g.GlobalSlot())

	// The snapshot is independent: new bindings do not leak back.
	snap.Add("$z", ast.DeclMy, nil)
	require.Nil(t, s.Lookup("$z"))
}

func TestSnapshotShadowingCapturesInnermost(t *testing.T) {
	s := newTestScopes()
	s.Add("$x", ast.DeclMy, nil)
	s.Enter()
	inner := s.Add("$x", ast.DeclMy, nil)

	captured := s.Captured()
	require.Len(t, captured, 1)
	require.Equal(t, inner, captured[0].Index())
}

func TestScopeFlagsCopyOnPush(t *testing.T) {
	s := newTestScopes()
	id := s.Enter()
	require.NoError(t, s.Flags().Set(CategoryStrict, []string{"vars"}, true, errors.SourceLocation{}))
	require.True(t, s.Flags().StrictEnabled("vars"))
	s.Exit(id)
	require.False(t, s.Flags().StrictEnabled("vars"))
}

func TestScopePackageState(t *testing.T) {
	s := newTestScopes()
	require.Equal(t, "main", s.Package())
	id := s.Enter()
	s.SetPackage("Counter", true)
	require.Equal(t, "Counter", s.Package())
	require.True(t, s.IsClass())
	s.Exit(id)
	require.Equal(t, "main", s.Package())
	require.False(t, s.IsClass())
}

func TestQualifyName(t *testing.T) {
	require.Equal(t, "$main::x", QualifyName("main", "$x"))
	require.Equal(t, "@Counter::items", QualifyName("Counter", "@items"))
	require.Equal(t, "&main::f", QualifyName("main", "&f"))
	require.Equal(t, "$Foo::x", QualifyName("main", "$Foo::x"))
	require.Equal(t, "$@", QualifyName("main", "$@"))
	require.Equal(t, "$_", QualifyName("main", "$_"))
}

func TestGlobalsPredeclared(t *testing.T) {
	g := NewGlobals()
	require.Equal(t, 2, g.Count())
	require.Equal(t, 0, g.LookupSlot("", "$@"))
	require.Equal(t, 1, g.LookupSlot("", "$_"))

	slot := g.Slot("main", "$x")
	require.Equal(t, 2, slot)
	require.Equal(t, slot, g.Slot("main", "$x"))
	require.Equal(t, []string{"$@", "$_", "$main::x"}, g.Names())
}
