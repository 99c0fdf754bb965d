package object

// Cell is an indirect pointer to an Object. It is used in the
// implementation of closures: a variable captured by a nested unit is
// promoted to a cell so that the defining frame and every closure
// observe the same storage.
type Cell struct {
	value *Object
}

// NewCell creates a cell pointing at the given storage slot.
func NewCell(value *Object) *Cell {
	return &Cell{value: value}
}

func (c *Cell) Type() Type { return CELL }

func (c *Cell) Inspect() string {
	if c.value == nil || *c.value == nil {
		return "cell(nil)"
	}
	return "cell(" + (*c.value).Inspect() + ")"
}

func (c *Cell) Interface() any {
	if c.value == nil || *c.value == nil {
		return nil
	}
	return (*c.value).Interface()
}

func (c *Cell) IsTruthy() bool {
	if c.value == nil || *c.value == nil {
		return false
	}
	return (*c.value).IsTruthy()
}

func (c *Cell) Equals(other Object) bool {
	otherCell, ok := other.(*Cell)
	return ok && c == otherCell
}

// Value returns the object the cell points at, or Undef for an empty
// cell.
func (c *Cell) Value() Object {
	if c.value == nil || *c.value == nil {
		return Undef
	}
	return *c.value
}

// Set writes through the cell into the underlying slot.
func (c *Cell) Set(value Object) {
	*c.value = value
}
