package object

import (
	"sort"
	"strings"
)

// Array is a mutable ordered container. Assigning past the end extends
// the array, filling the gap with undef.
type Array struct {
	items []Object
}

// NewArray creates an array holding the given items. The slice is used
// directly, not copied.
func NewArray(items []Object) *Array {
	return &Array{items: items}
}

func (a *Array) Type() Type { return ARRAY }

func (a *Array) Inspect() string {
	parts := make([]string, 0, len(a.items))
	for _, item := range a.items {
		parts = append(parts, item.Inspect())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *Array) Interface() any {
	items := make([]any, 0, len(a.items))
	for _, item := range a.items {
		items = append(items, item.Interface())
	}
	return items
}

// IsTruthy is true for any array reference, even an empty one, matching
// Perl reference semantics.
func (a *Array) IsTruthy() bool { return true }

func (a *Array) Equals(other Object) bool {
	otherArr, ok := other.(*Array)
	return ok && a == otherArr
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// Get returns the element at index, or Undef when out of range.
// Negative indices count from the end.
func (a *Array) Get(index int) Object {
	if index < 0 {
		index += len(a.items)
	}
	if index < 0 || index >= len(a.items) {
		return Undef
	}
	return a.items[index]
}

// Set stores value at index, extending the array with undef as needed.
// Negative indices count from the end and must be in range.
func (a *Array) Set(index int, value Object) *Error {
	if index < 0 {
		index += len(a.items)
		if index < 0 {
			return Errorf(EIndex, "array index out of range")
		}
	}
	for len(a.items) <= index {
		a.items = append(a.items, Undef)
	}
	a.items[index] = value
	return nil
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...Object) int {
	a.items = append(a.items, values...)
	return len(a.items)
}

// Pop removes and returns the last element, or Undef if empty.
func (a *Array) Pop() Object {
	if len(a.items) == 0 {
		return Undef
	}
	last := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	return last
}

// Shift removes and returns the first element, or Undef if empty.
func (a *Array) Shift() Object {
	if len(a.items) == 0 {
		return Undef
	}
	first := a.items[0]
	a.items = a.items[1:]
	return first
}

// Unshift prepends values and returns the new length.
func (a *Array) Unshift(values ...Object) int {
	a.items = append(append([]Object{}, values...), a.items...)
	return len(a.items)
}

// Splice removes count elements starting at offset, inserting replacement
// in their place, and returns the removed elements. Offset and count are
// clamped to the array bounds; a negative offset counts from the end.
func (a *Array) Splice(offset, count int, replacement []Object) *Array {
	n := len(a.items)
	if offset < 0 {
		offset += n
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	if count < 0 {
		count = 0
	}
	if offset+count > n {
		count = n - offset
	}
	removed := make([]Object, count)
	copy(removed, a.items[offset:offset+count])

	tail := make([]Object, n-offset-count)
	copy(tail, a.items[offset+count:])
	a.items = append(a.items[:offset], append(append([]Object{}, replacement...), tail...)...)
	return NewArray(removed)
}

// SortedCopy returns a new array sorted by string comparison, which is
// the default sort order.
func (a *Array) SortedCopy() *Array {
	items := make([]Object, len(a.items))
	copy(items, a.items)
	sort.SliceStable(items, func(i, j int) bool {
		return Stringify(items[i]) < Stringify(items[j])
	})
	return NewArray(items)
}

// ReversedCopy returns a new array with the elements in reverse order.
func (a *Array) ReversedCopy() *Array {
	items := make([]Object, len(a.items))
	for i, item := range a.items {
		items[len(a.items)-1-i] = item
	}
	return NewArray(items)
}

// Items returns the backing slice. Callers must not retain it across
// mutations.
func (a *Array) Items() []Object { return a.items }
