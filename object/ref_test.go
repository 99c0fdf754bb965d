package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerefArrayVivifies(t *testing.T) {
	var slot Object = Undef
	ref := NewSlotRef(&slot)

	arr, err := DerefArray(ref, true)
	require.Nil(t, err)
	require.NotNil(t, arr)

	// The owning slot now holds the container: the transition happened
	// in place.
	require.Same(t, arr, slot)

	// Idempotent: a second vivifying deref returns the same container.
	again, err := DerefArray(ref, true)
	require.Nil(t, err)
	require.Same(t, arr, again)
}

func TestDerefArrayNonVivifyingFails(t *testing.T) {
	var slot Object = Undef
	ref := NewSlotRef(&slot)

	_, err := DerefArray(ref, false)
	require.NotNil(t, err)
	require.Equal(t, EUndefinedDeref, err.Kind())

	// The scalar stays undefined.
	require.Equal(t, Undef, slot)
}

func TestDerefTypeMismatch(t *testing.T) {
	var slot Object = NewInt(5)
	ref := NewSlotRef(&slot)

	_, err := DerefArray(ref, true)
	require.NotNil(t, err)
	require.Equal(t, ETypeMismatch, err.Kind())

	var hashSlot Object = NewHash(nil)
	_, err = DerefArray(NewSlotRef(&hashSlot), true)
	require.NotNil(t, err)
	require.Equal(t, ETypeMismatch, err.Kind())
}

func TestDerefHash(t *testing.T) {
	var slot Object = Undef
	ref := NewSlotRef(&slot)

	_, err := DerefHash(ref, false)
	require.NotNil(t, err)
	require.Equal(t, EUndefinedDeref, err.Kind())
	require.Equal(t, Undef, slot)

	h, err := DerefHash(ref, true)
	require.Nil(t, err)
	require.Same(t, h, slot)
}

func TestElemRefVivifiesOuterOnly(t *testing.T) {
	// $x->[0]: the outer array is created, the element is not.
	var slot Object = Undef
	arr, err := DerefArray(NewSlotRef(&slot), true)
	require.Nil(t, err)

	elem := NewElemRef(arr, NewInt(0))
	require.Equal(t, Undef, elem.Get())
	require.Equal(t, 0, arr.Len())

	// Writing through the element ref creates the element.
	require.Nil(t, elem.Set(NewInt(7)))
	require.Equal(t, 1, arr.Len())
}

func TestElemRefHashKey(t *testing.T) {
	h := NewHash(nil)
	ref := NewElemRef(h, NewString("k"))
	require.Equal(t, Undef, ref.Get())
	require.False(t, h.Exists("k"))
	require.Nil(t, ref.Set(NewInt(1)))
	require.True(t, h.Exists("k"))
}

func TestCellRef(t *testing.T) {
	var slot Object = Undef
	cell := NewCell(&slot)
	ref := NewCellRef(cell)

	arr, err := DerefArray(ref, true)
	require.Nil(t, err)
	require.Same(t, arr, slot)
}
