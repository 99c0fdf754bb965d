package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(LoadFast)
	require.Equal(t, "LOAD_FAST", info.Name)
	require.Equal(t, LoadFast, info.Code)
	require.Equal(t, 1, info.OperandCount)

	info = GetInfo(LoadClosure)
	require.Equal(t, "LOAD_CLOSURE", info.Name)
	require.Equal(t, 2, info.OperandCount)

	info = GetInfo(RefDerefArrayViv)
	require.Equal(t, "REF_DEREF_ARRAY_VIV", info.Name)
	require.Equal(t, 0, info.OperandCount)
}

func TestAllOpsHaveInfo(t *testing.T) {
	codes := []Code{
		Nop, Halt, Call, ReturnValue, CallUnit,
		JumpBackward, JumpForward, PopJumpForwardIfFalse, PopJumpForwardIfTrue,
		LoadFast, LoadFree, LoadGlobal, LoadConst, LoadUndef,
		StoreFast, StoreFree, StoreGlobal,
		BinaryOp, CompareOp, UnaryNegative, UnaryNot, Defined,
		BuildArray, BuildHash,
		LoadElem, StoreElem, Length,
		ArrayPush, ArrayPop, ArrayShift, ArrayUnshift, ArraySplice,
		ArraySort, ArrayReverse, HashDelete, HashExists,
		Swap, Copy, PopTop,
		GetIter, ForIter,
		LoadFastRef, LoadFreeRef, LoadGlobalRef, ElemRef,
		RefDerefArray, RefDerefArrayViv, RefDerefHash, RefDerefHashViv,
		LoadClosure, MakeCell, LoadFreeCell,
		DynSave, DynRestore, DynForget, DynUnwind, Localize,
		Die, PushHandler, PopHandler,
		Say, Warn,
	}
	for _, c := range codes {
		info := GetInfo(c)
		require.NotEmpty(t, info.Name, "opcode %d has no info", c)
		require.Equal(t, c, info.Code)
	}
}

func TestOpTypeStrings(t *testing.T) {
	require.Equal(t, "+", Add.String())
	require.Equal(t, ".", Concat.String())
	require.Equal(t, "eq", StrEqual.String())
	require.Equal(t, "<", LessThan.String())
}
