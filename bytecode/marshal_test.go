package bytecode

import (
	"testing"

	"github.com/marmot-lang/marmot/op"
	"github.com/stretchr/testify/require"
)

func testUnit(t *testing.T) *Unit {
	t.Helper()
	subBody := NewUnit(UnitParams{
		ID:           "u-sub",
		Name:         "add_one",
		Kind:         KindSub,
		Instructions: []op.Code{op.LoadFast, 0, op.LoadConst, 0, op.BinaryOp, op.Code(op.Add), op.ReturnValue},
		Constants:    []any{int64(1)},
		LocalCount:   1,
		LocalNames:   []string{"$n"},
		FreeNames:    []string{"$base"},
	})
	fn := NewFunction(FunctionParams{
		ID:         "f-1",
		Name:       "add_one",
		Parameters: []string{"$n"},
		FreeNames:  []string{"$base"},
		Unit:       subBody,
	})
	chunk := NewUnit(UnitParams{
		ID:           "u-chunk",
		Name:         "__main__.chunk.1",
		Kind:         KindChunk,
		Instructions: []op.Code{op.LoadUndef, op.ReturnValue},
		LocalCount:   3,
	})
	return NewUnit(UnitParams{
		ID:       "u-main",
		Name:     "__main__",
		Kind:     KindMain,
		Children: []*Unit{subBody, chunk},
		Instructions: []op.Code{
			op.LoadConst, 0,
			op.StoreFast, 0,
			op.CallUnit, 3,
			op.Halt,
		},
		Constants:   []any{int64(42), "hello", nil, chunk, 3.5, fn},
		Source:      "my $x = 42;",
		Filename:    "main.mt",
		LocalCount:  3,
		GlobalNames: []string{"$@", "$_"},
		LocalNames:  []string{"$x", "$y", "$z"},
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	unit := testUnit(t)
	data, err := Marshal(unit)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, unit.ID(), got.ID())
	require.Equal(t, unit.Name(), got.Name())
	require.Equal(t, unit.Kind(), got.Kind())
	require.Equal(t, unit.Source(), got.Source())
	require.Equal(t, unit.Filename(), got.Filename())
	require.Equal(t, unit.LocalCount(), got.LocalCount())
	require.Equal(t, unit.InstructionCount(), got.InstructionCount())
	for i := 0; i < unit.InstructionCount(); i++ {
		require.Equal(t, unit.InstructionAt(i), got.InstructionAt(i))
	}
	require.Equal(t, unit.ConstantCount(), got.ConstantCount())
	require.Equal(t, int64(42), got.ConstantAt(0))
	require.Equal(t, "hello", got.ConstantAt(1))
	require.Nil(t, got.ConstantAt(2))
	require.Equal(t, 3.5, got.ConstantAt(4))

	chunk, ok := got.ConstantAt(3).(*Unit)
	require.True(t, ok)
	require.Equal(t, KindChunk, chunk.Kind())
	require.Equal(t, 3, chunk.LocalCount())

	fn, ok := got.ConstantAt(5).(*Function)
	require.True(t, ok)
	require.Equal(t, "add_one", fn.Name())
	require.Equal(t, 1, fn.ParameterCount())
	require.Equal(t, "$n", fn.Parameter(0))
	require.Equal(t, 1, fn.FreeCount())
	require.Equal(t, "$base", fn.FreeName(0))
	require.Equal(t, 1, fn.Unit().LocalCount())

	require.Equal(t, []string{"$@", "$_"}, got.GlobalNames())
	require.Equal(t, "$x", got.LocalNameAt(0))
}

func TestMarshalDeterministic(t *testing.T) {
	unit := testUnit(t)
	a, err := Marshal(unit)
	require.NoError(t, err)
	b, err := Marshal(unit)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestUnitImmutability(t *testing.T) {
	instructions := []op.Code{op.Nop, op.Halt}
	constants := []any{int64(1)}
	unit := NewUnit(UnitParams{
		ID:           "u-1",
		Instructions: instructions,
		Constants:    constants,
	})
	instructions[0] = op.Die
	constants[0] = int64(99)
	require.Equal(t, op.Nop, unit.InstructionAt(0))
	require.Equal(t, int64(1), unit.ConstantAt(0))
}

func TestStats(t *testing.T) {
	unit := testUnit(t)
	stats := unit.Stats()
	require.Equal(t, 7, stats.InstructionCount)
	require.Equal(t, 6, stats.ConstantCount)
	require.Equal(t, 1, stats.FunctionCount)
	require.Equal(t, 1, stats.ChunkCount)
	require.Equal(t, 3, stats.LocalCount)
}

func TestFlattenAndSourceLines(t *testing.T) {
	unit := testUnit(t)
	flat := unit.Flatten()
	require.Len(t, flat, 3)
	require.Equal(t, "my $x = 42;", unit.GetSourceLine(1))
	require.Equal(t, "", unit.GetSourceLine(2))

	// Children resolve source lines through the root.
	require.Equal(t, "my $x = 42;", unit.ChildAt(0).GetSourceLine(1))
}
