// Package op defines opcodes used by the Marmot compiler and virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop         Code = 1
	Halt        Code = 2
	Call        Code = 3
	ReturnValue Code = 4
	CallUnit    Code = 5 // Invoke a chained unit sharing the caller's locals

	// Jump
	JumpBackward          Code = 10
	JumpForward           Code = 11
	PopJumpForwardIfFalse Code = 12
	PopJumpForwardIfTrue  Code = 13

	// Load
	LoadFast   Code = 20
	LoadFree   Code = 21
	LoadGlobal Code = 22
	LoadConst  Code = 23
	LoadUndef  Code = 24

	// Store
	StoreFast   Code = 30
	StoreFree   Code = 31
	StoreGlobal Code = 32

	// Operations
	BinaryOp      Code = 40
	CompareOp     Code = 41
	UnaryNegative Code = 42
	UnaryNot      Code = 43
	Defined       Code = 44

	// Build
	BuildArray Code = 50
	BuildHash  Code = 51

	// Containers
	LoadElem     Code = 60
	StoreElem    Code = 61
	Length       Code = 62
	ArrayPush    Code = 63 // operand = pushed element count
	ArrayPop     Code = 64
	ArrayShift   Code = 65
	ArrayUnshift Code = 66 // operand = prepended element count
	ArraySplice  Code = 67 // operand = replacement element count
	ArraySort    Code = 68
	ArrayReverse Code = 69
	HashDelete   Code = 70
	HashExists   Code = 71

	// Stack
	Swap   Code = 80
	Copy   Code = 81
	PopTop Code = 82

	// Iteration
	GetIter Code = 90
	ForIter Code = 91

	// References to storage locations (for vivifying access paths)
	LoadFastRef   Code = 100
	LoadFreeRef   Code = 101
	LoadGlobalRef Code = 102
	ElemRef       Code = 103

	// Container dereference through a reference
	RefDerefArray    Code = 110
	RefDerefArrayViv Code = 111
	RefDerefHash     Code = 112
	RefDerefHashViv  Code = 113

	// Closures
	LoadClosure  Code = 120
	MakeCell     Code = 121
	LoadFreeCell Code = 122 // Push an already-captured cell for re-capture

	// Dynamic scope
	DynSave    Code = 130
	DynRestore Code = 131
	DynForget  Code = 132
	DynUnwind  Code = 133 // operand = number of marks to restore and discard
	Localize   Code = 134 // operand = global slot to save and rebind

	// Errors
	Die         Code = 140
	PushHandler Code = 141
	PopHandler  Code = 142

	// Output
	Say  Code = 150
	Warn Code = 151
)

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands. For example, addition, concatenation, etc.
type BinaryOpType uint16

const (
	Add      BinaryOpType = 1
	Subtract BinaryOpType = 2
	Multiply BinaryOpType = 3
	Divide   BinaryOpType = 4
	Modulo   BinaryOpType = 5
	Concat   BinaryOpType = 6
)

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Modulo:
		return "%"
	case Concat:
		return "."
	default:
		return ""
	}
}

// CompareOpType describes a type of comparison operation. Numeric
// comparisons and the string comparisons (eq, ne, lt, gt) are distinct,
// as in Perl.
type CompareOpType uint16

const (
	LessThan           CompareOpType = 1
	LessThanOrEqual    CompareOpType = 2
	Equal              CompareOpType = 3
	NotEqual           CompareOpType = 4
	GreaterThan        CompareOpType = 5
	GreaterThanOrEqual CompareOpType = 6
	StrEqual           CompareOpType = 7
	StrNotEqual        CompareOpType = 8
	StrLessThan        CompareOpType = 9
	StrGreaterThan     CompareOpType = 10
)

// String returns a string representation of the comparison operation.
// For example "<" for less than.
func (cop CompareOpType) String() string {
	switch cop {
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case StrEqual:
		return "eq"
	case StrNotEqual:
		return "ne"
	case StrLessThan:
		return "lt"
	case StrGreaterThan:
		return "gt"
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{ArrayPop, "ARRAY_POP", 0},
		{ArrayPush, "ARRAY_PUSH", 1},
		{ArrayReverse, "ARRAY_REVERSE", 0},
		{ArrayShift, "ARRAY_SHIFT", 0},
		{ArraySort, "ARRAY_SORT", 0},
		{ArraySplice, "ARRAY_SPLICE", 1},
		{ArrayUnshift, "ARRAY_UNSHIFT", 1},
		{BinaryOp, "BINARY_OP", 1},
		{BuildArray, "BUILD_ARRAY", 1},
		{BuildHash, "BUILD_HASH", 1},
		{Call, "CALL", 1},
		{CallUnit, "CALL_UNIT", 1},
		{CompareOp, "COMPARE_OP", 1},
		{Copy, "COPY", 1},
		{Defined, "DEFINED", 0},
		{Die, "DIE", 0},
		{DynForget, "DYN_FORGET", 0},
		{DynRestore, "DYN_RESTORE", 0},
		{DynSave, "DYN_SAVE", 0},
		{DynUnwind, "DYN_UNWIND", 1},
		{ElemRef, "ELEM_REF", 0},
		{ForIter, "FOR_ITER", 2},
		{GetIter, "GET_ITER", 0},
		{Halt, "HALT", 0},
		{HashDelete, "HASH_DELETE", 0},
		{HashExists, "HASH_EXISTS", 0},
		{JumpBackward, "JUMP_BACKWARD", 1},
		{JumpForward, "JUMP_FORWARD", 1},
		{Length, "LENGTH", 0},
		{LoadClosure, "LOAD_CLOSURE", 2},
		{LoadConst, "LOAD_CONST", 1},
		{LoadElem, "LOAD_ELEM", 0},
		{LoadFast, "LOAD_FAST", 1},
		{LoadFastRef, "LOAD_FAST_REF", 1},
		{LoadFree, "LOAD_FREE", 1},
		{LoadFreeCell, "LOAD_FREE_CELL", 1},
		{LoadFreeRef, "LOAD_FREE_REF", 1},
		{LoadGlobal, "LOAD_GLOBAL", 1},
		{LoadGlobalRef, "LOAD_GLOBAL_REF", 1},
		{LoadUndef, "LOAD_UNDEF", 0},
		{Localize, "LOCALIZE", 1},
		{MakeCell, "MAKE_CELL", 1},
		{Nop, "NOP", 0},
		{PopHandler, "POP_HANDLER", 0},
		{PopJumpForwardIfFalse, "POP_JUMP_FORWARD_IF_FALSE", 1},
		{PopJumpForwardIfTrue, "POP_JUMP_FORWARD_IF_TRUE", 1},
		{PopTop, "POP_TOP", 0},
		{PushHandler, "PUSH_HANDLER", 1},
		{RefDerefArray, "REF_DEREF_ARRAY", 0},
		{RefDerefArrayViv, "REF_DEREF_ARRAY_VIV", 0},
		{RefDerefHash, "REF_DEREF_HASH", 0},
		{RefDerefHashViv, "REF_DEREF_HASH_VIV", 0},
		{ReturnValue, "RETURN_VALUE", 0},
		{Say, "SAY", 1},
		{StoreElem, "STORE_ELEM", 0},
		{StoreFast, "STORE_FAST", 1},
		{StoreFree, "STORE_FREE", 1},
		{StoreGlobal, "STORE_GLOBAL", 1},
		{Swap, "SWAP", 1},
		{UnaryNegative, "UNARY_NEGATIVE", 0},
		{UnaryNot, "UNARY_NOT", 0},
		{Warn, "WARN", 1},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}
