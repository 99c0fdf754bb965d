package object

import "github.com/marmot-lang/marmot/op"

// BinaryOp applies a binary operator with Perl coercion rules: the
// arithmetic operators numify their operands and concat stringifies
// them. An undefined operand numifies to 0 and stringifies to "".
func BinaryOp(opType op.BinaryOpType, a, b Object) (Object, *Error) {
	if opType == op.Concat {
		return NewString(Stringify(a) + Stringify(b)), nil
	}
	ai, af, aFloat := Numify(a)
	bi, bf, bFloat := Numify(b)
	useFloat := aFloat || bFloat

	switch opType {
	case op.Add:
		if useFloat {
			return NewFloat(af + bf), nil
		}
		return NewInt(ai + bi), nil
	case op.Subtract:
		if useFloat {
			return NewFloat(af - bf), nil
		}
		return NewInt(ai - bi), nil
	case op.Multiply:
		if useFloat {
			return NewFloat(af * bf), nil
		}
		return NewInt(ai * bi), nil
	case op.Divide:
		if bf == 0 {
			return nil, Errorf(EDivideByZero, "illegal division by zero")
		}
		if !useFloat && bi != 0 && ai%bi == 0 {
			return NewInt(ai / bi), nil
		}
		return NewFloat(af / bf), nil
	case op.Modulo:
		if bi == 0 {
			return nil, Errorf(EDivideByZero, "illegal modulus zero")
		}
		return NewInt(ai % bi), nil
	default:
		return nil, Errorf(EInvalid, "unknown binary operator %d", opType)
	}
}

// Compare applies a comparison operator. The numeric comparisons numify
// both operands; the string comparisons (eq, ne, lt, gt) stringify
// them, as in Perl.
func Compare(opType op.CompareOpType, a, b Object) (Object, *Error) {
	switch opType {
	case op.StrEqual:
		return Bool(Stringify(a) == Stringify(b)), nil
	case op.StrNotEqual:
		return Bool(Stringify(a) != Stringify(b)), nil
	case op.StrLessThan:
		return Bool(Stringify(a) < Stringify(b)), nil
	case op.StrGreaterThan:
		return Bool(Stringify(a) > Stringify(b)), nil
	}
	_, af, _ := Numify(a)
	_, bf, _ := Numify(b)
	switch opType {
	case op.Equal:
		return Bool(af == bf), nil
	case op.NotEqual:
		return Bool(af != bf), nil
	case op.LessThan:
		return Bool(af < bf), nil
	case op.LessThanOrEqual:
		return Bool(af <= bf), nil
	case op.GreaterThan:
		return Bool(af > bf), nil
	case op.GreaterThanOrEqual:
		return Bool(af >= bf), nil
	default:
		return nil, Errorf(EInvalid, "unknown comparison operator %d", opType)
	}
}

// Negate numifies and negates a value.
func Negate(obj Object) Object {
	i, f, isFloat := Numify(obj)
	if isFloat {
		return NewFloat(-f)
	}
	return NewInt(-i)
}
