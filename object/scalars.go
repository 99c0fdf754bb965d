package object

import (
	"fmt"
	"strconv"
	"strings"
)

// UndefType is the type of the undefined value.
type UndefType struct{}

// Undef is the sole undefined value.
var Undef = &UndefType{}

func (u *UndefType) Type() Type      { return UNDEF }
func (u *UndefType) Inspect() string { return "undef" }
func (u *UndefType) Interface() any  { return nil }
func (u *UndefType) IsTruthy() bool  { return false }

func (u *UndefType) Equals(other Object) bool {
	_, ok := other.(*UndefType)
	return ok
}

// Int is an integer value.
type Int struct {
	value int64
}

func NewInt(value int64) *Int { return &Int{value: value} }

func (i *Int) Type() Type      { return INT }
func (i *Int) Value() int64    { return i.value }
func (i *Int) Inspect() string { return strconv.FormatInt(i.value, 10) }
func (i *Int) Interface() any  { return i.value }
func (i *Int) IsTruthy() bool  { return i.value != 0 }

func (i *Int) Equals(other Object) bool {
	switch other := other.(type) {
	case *Int:
		return i.value == other.value
	case *Float:
		return float64(i.value) == other.value
	default:
		return false
	}
}

// Float is a floating point value.
type Float struct {
	value float64
}

func NewFloat(value float64) *Float { return &Float{value: value} }

func (f *Float) Type() Type      { return FLOAT }
func (f *Float) Value() float64  { return f.value }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.value, 'g', -1, 64) }
func (f *Float) Interface() any  { return f.value }
func (f *Float) IsTruthy() bool  { return f.value != 0 }

func (f *Float) Equals(other Object) bool {
	switch other := other.(type) {
	case *Float:
		return f.value == other.value
	case *Int:
		return f.value == float64(other.value)
	default:
		return false
	}
}

// String is a string value.
type String struct {
	value string
}

func NewString(value string) *String { return &String{value: value} }

func (s *String) Type() Type      { return STRING }
func (s *String) Value() string   { return s.value }
func (s *String) Inspect() string { return fmt.Sprintf("%q", s.value) }
func (s *String) Interface() any  { return s.value }

// IsTruthy follows Perl: "" and "0" are false, everything else is true.
func (s *String) IsTruthy() bool {
	return s.value != "" && s.value != "0"
}

func (s *String) Equals(other Object) bool {
	otherStr, ok := other.(*String)
	return ok && s.value == otherStr.value
}

// Stringify converts any object to its string form, as interpolation and
// the concatenation operator do. Containers stringify as type-tagged
// addresses would in Perl; here a stable inspect form is used.
func Stringify(obj Object) string {
	switch obj := obj.(type) {
	case *UndefType:
		return ""
	case *String:
		return obj.value
	case *Int:
		return strconv.FormatInt(obj.value, 10)
	case *Float:
		return strconv.FormatFloat(obj.value, 'g', -1, 64)
	default:
		return obj.Inspect()
	}
}

// Numify converts an object to a numeric value the way Perl does: undef
// is 0, strings parse a leading number and ignore the rest.
func Numify(obj Object) (int64, float64, bool) {
	switch obj := obj.(type) {
	case *UndefType:
		return 0, 0, false
	case *Int:
		return obj.value, float64(obj.value), false
	case *Float:
		return int64(obj.value), obj.value, true
	case *String:
		return numifyString(obj.value)
	default:
		return 0, 0, false
	}
}

func numifyString(s string) (int64, float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDot, seenDigit := false, false
	for i, r := range s {
		if r == '-' || r == '+' {
			if i != 0 {
				break
			}
		} else if r == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if r >= '0' && r <= '9' {
			seenDigit = true
		} else {
			break
		}
		end = i + 1
	}
	if !seenDigit {
		return 0, 0, false
	}
	prefix := s[:end]
	if seenDot {
		f, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return 0, 0, false
		}
		return int64(f), f, true
	}
	n, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(prefix, 64)
		if ferr != nil {
			return 0, 0, false
		}
		return int64(f), f, true
	}
	return n, float64(n), false
}
