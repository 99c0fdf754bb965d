package object

// Iter walks a container's values. Arrays iterate in element order and
// hashes in sorted key order, so iteration is deterministic.
type Iter struct {
	values []Object
	pos    int
}

// NewIter creates an iterator over the given container. Array elements
// are visited in order; hash iteration visits values keyed in sorted
// order. Each visited value is the element itself: foreach copies it
// into the loop variable, so mutation through the loop variable does
// not alias the container.
func NewIter(container Object) (*Iter, *Error) {
	switch container := container.(type) {
	case *Array:
		values := make([]Object, container.Len())
		copy(values, container.Items())
		return &Iter{values: values}, nil
	case *Hash:
		keys := container.SortedKeys()
		values := make([]Object, 0, len(keys))
		for _, k := range keys {
			values = append(values, container.Get(k))
		}
		return &Iter{values: values}, nil
	default:
		return nil, Errorf(EType, "cannot iterate %s", container.Type())
	}
}

func (it *Iter) Type() Type      { return ITER }
func (it *Iter) Inspect() string { return "iter" }
func (it *Iter) Interface() any  { return nil }
func (it *Iter) IsTruthy() bool  { return true }

func (it *Iter) Equals(other Object) bool {
	otherIter, ok := other.(*Iter)
	return ok && it == otherIter
}

// Next returns the next value, or false when the iterator is exhausted.
func (it *Iter) Next() (Object, bool) {
	if it.pos >= len(it.values) {
		return nil, false
	}
	v := it.values[it.pos]
	it.pos++
	return v, true
}
