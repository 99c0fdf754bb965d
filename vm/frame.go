package vm

import (
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/object"
)

// defaultFrameLocals is the number of local slots stored directly in
// the frame, avoiding heap allocation for small units.
const defaultFrameLocals = 8

type frame struct {
	unit     *bytecode.Unit
	owner    *frame // set on chunk frames; locals alias the owner's
	returnIP int

	storage  [defaultFrameLocals]object.Object
	locals   []object.Object
	captured bool

	// cells captured by the closure being executed. Nil for the main
	// unit; chunk frames inherit the owner's.
	cells []*object.Cell

	// Dynamic-scope depths at activation. Returning from a sub or main
	// frame restores to these. Chunk frames leave dynamic state alone,
	// since a local in a split tail belongs to the enclosing block.
	dynRecords int
	dynMarks   int

	// handlers is the eval handler depth at activation. A return out of
	// an eval body discards the handlers the body installed.
	handlers int
}

func (f *frame) activate(unit *bytecode.Unit, returnIP int) {
	f.unit = unit
	f.owner = nil
	f.returnIP = returnIP
	f.cells = nil
	count := unit.LocalCount()
	if count <= defaultFrameLocals {
		f.locals = f.storage[:count]
		f.captured = false
	} else {
		f.locals = make([]object.Object, count)
		f.captured = true
	}
	for i := range f.locals {
		f.locals[i] = object.Undef
	}
}

func (f *frame) activateClosure(closure *object.Closure, returnIP int) {
	f.activate(closure.Function().Unit(), returnIP)
	f.cells = closure.Free()
}

// activateChunk runs a split continuation in the owner's locals. The
// owner's slots move to the heap first so both frames see one copy.
func (f *frame) activateChunk(unit *bytecode.Unit, returnIP int, owner *frame) {
	owner.captureLocals()
	f.unit = unit
	f.owner = owner
	f.returnIP = returnIP
	f.locals = owner.locals
	f.captured = true
	f.cells = owner.cells
}

// captureLocals moves the locals out of the frame's fixed storage so
// pointers into the slice stay valid after the frame is reused. Must
// run before any cell or slot reference into the frame is created.
func (f *frame) captureLocals() {
	if f.captured {
		return
	}
	heap := make([]object.Object, len(f.locals))
	copy(heap, f.locals)
	f.locals = heap
	f.captured = true
}

func (f *frame) isChunk() bool { return f.owner != nil }
