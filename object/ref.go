package object

// Ref addresses one storage location that can hold a scalar: a frame
// slot, a captured cell, a global slot, an array element or a hash key.
// Autovivification is a single write through a Ref: there is no proxy
// object left behind once the container exists.
type Ref interface {
	Object

	// Get reads the current value at the location. An empty location
	// reads as Undef.
	Get() Object

	// Set writes a value into the location.
	Set(value Object) *Error
}

// refBase provides the Object plumbing shared by all ref shapes.
type refBase struct{}

func (refBase) Type() Type     { return REF }
func (refBase) Interface() any { return nil }
func (refBase) IsTruthy() bool { return true }

// SlotRef addresses a frame local or any other direct *Object slot.
type SlotRef struct {
	refBase
	slot *Object
}

// NewSlotRef creates a ref to the given slot.
func NewSlotRef(slot *Object) *SlotRef {
	return &SlotRef{slot: slot}
}

func (r *SlotRef) Inspect() string { return "ref(slot)" }

func (r *SlotRef) Equals(other Object) bool {
	otherRef, ok := other.(*SlotRef)
	return ok && r.slot == otherRef.slot
}

func (r *SlotRef) Get() Object {
	if *r.slot == nil {
		return Undef
	}
	return *r.slot
}

func (r *SlotRef) Set(value Object) *Error {
	*r.slot = value
	return nil
}

// CellRef addresses the slot behind a captured cell.
type CellRef struct {
	refBase
	cell *Cell
}

// NewCellRef creates a ref writing through the given cell.
func NewCellRef(cell *Cell) *CellRef {
	return &CellRef{cell: cell}
}

func (r *CellRef) Inspect() string { return "ref(cell)" }

func (r *CellRef) Equals(other Object) bool {
	otherRef, ok := other.(*CellRef)
	return ok && r.cell == otherRef.cell
}

func (r *CellRef) Get() Object { return r.cell.Value() }

func (r *CellRef) Set(value Object) *Error {
	r.cell.Set(value)
	return nil
}

// ElemRef addresses one element of a container: an array index or a
// hash key. Reading a missing element yields Undef without creating it;
// writing creates it.
type ElemRef struct {
	refBase
	container Object
	key       Object
}

// NewElemRef creates a ref to a container element.
func NewElemRef(container, key Object) *ElemRef {
	return &ElemRef{container: container, key: key}
}

func (r *ElemRef) Inspect() string { return "ref(elem)" }

func (r *ElemRef) Equals(other Object) bool {
	otherRef, ok := other.(*ElemRef)
	return ok && r == otherRef
}

func (r *ElemRef) Get() Object {
	switch container := r.container.(type) {
	case *Array:
		idx, _, _ := Numify(r.key)
		return container.Get(int(idx))
	case *Hash:
		return container.Get(Stringify(r.key))
	default:
		return Undef
	}
}

func (r *ElemRef) Set(value Object) *Error {
	switch container := r.container.(type) {
	case *Array:
		idx, _, _ := Numify(r.key)
		return container.Set(int(idx), value)
	case *Hash:
		container.Set(Stringify(r.key), value)
		return nil
	default:
		return Errorf(ETypeMismatch, "cannot assign element of %s", r.container.Type())
	}
}

// DerefArray resolves a ref to an array. With vivify set and the
// location undefined, a new empty array is written through the ref
// first; without vivify an undefined location is an error and the
// location is left untouched. Any non-array value already present is a
// type mismatch either way. Vivification is idempotent: once the array
// exists, later calls return it unchanged.
func DerefArray(ref Ref, vivify bool) (*Array, *Error) {
	switch value := ref.Get().(type) {
	case *Array:
		return value, nil
	case *UndefType:
		if !vivify {
			return nil, Errorf(EUndefinedDeref, "cannot use an undefined value as an array reference")
		}
		arr := NewArray(nil)
		if err := ref.Set(arr); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, Errorf(ETypeMismatch, "not an array reference (got %s)", value.Type())
	}
}

// DerefHash is the hash analogue of DerefArray.
func DerefHash(ref Ref, vivify bool) (*Hash, *Error) {
	switch value := ref.Get().(type) {
	case *Hash:
		return value, nil
	case *UndefType:
		if !vivify {
			return nil, Errorf(EUndefinedDeref, "cannot use an undefined value as a hash reference")
		}
		hash := NewHash(nil)
		if err := ref.Set(hash); err != nil {
			return nil, err
		}
		return hash, nil
	default:
		return nil, Errorf(ETypeMismatch, "not a hash reference (got %s)", value.Type())
	}
}
