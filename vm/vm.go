// Package vm executes compiled Marmot units on a stack machine.
//
// A run holds a value stack, a frame stack, the dynamic-scope save
// stacks backing local declarations, and the handler stack used by
// eval blocks. Chunk units produced by the block splitter execute in
// frames that alias the owner frame's locals, so a split block is
// indistinguishable from an unsplit one at runtime.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/object"
	"github.com/marmot-lang/marmot/op"
	"github.com/rs/zerolog"
)

const (
	MaxFrameDepth = 1024
	MaxStackDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done.
	DefaultContextCheckInterval = 1000
)

// dynRecord remembers a global's prior value so leaving the dynamic
// extent of a local declaration puts it back.
type dynRecord struct {
	slot  int
	value object.Object
}

// handler is an installed eval catch point. A raise unwinds frames,
// stack, and dynamic state back to these depths.
type handler struct {
	target     int // resume ip within the installing unit
	frameIndex int
	sp         int
	dynRecords int
	dynMarks   int
}

type VirtualMachine struct {
	ip              int
	sp              int
	fp              int
	unit            *bytecode.Unit
	activeFrame     *frame
	activeUnit      *bytecode.Unit
	activeConstants []object.Object

	globals    []object.Object
	errSlot    int // slot of $@
	dynRecords []dynRecord
	dynMarks   []int
	handlers   []handler

	constants map[*bytecode.Unit][]object.Object

	stdout        io.Writer
	stderr        io.Writer
	logger        zerolog.Logger
	checkInterval int
	running       bool

	stack  [MaxStackDepth]object.Object
	frames [MaxFrameDepth]frame
}

// New creates a machine for the given root unit.
func New(unit *bytecode.Unit, opts ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		unit:          unit,
		sp:            -1,
		errSlot:       -1,
		constants:     map[*bytecode.Unit][]object.Object{},
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		logger:        zerolog.Nop(),
		checkInterval: DefaultContextCheckInterval,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.initGlobals()
	return vm
}

// initGlobals gives every package global its sigil-determined initial
// value: arrays and hashes start empty, scalars and subs start undef.
func (vm *VirtualMachine) initGlobals() {
	names := vm.unit.GlobalNames()
	vm.globals = make([]object.Object, len(names))
	for i, name := range names {
		switch name[0] {
		case '@':
			vm.globals[i] = object.NewArray(nil)
		case '%':
			vm.globals[i] = object.NewHash(nil)
		default:
			vm.globals[i] = object.Undef
		}
		if name == "$@" {
			vm.errSlot = i
		}
	}
}

// GlobalValue returns a package global by its qualified name, such as
// "$main::count" or "$@".
func (vm *VirtualMachine) GlobalValue(name string) (object.Object, bool) {
	for i := 0; i < vm.unit.GlobalNameCount(); i++ {
		if vm.unit.GlobalNameAt(i) == name {
			return vm.globals[i], true
		}
	}
	return nil, false
}

// Run executes the root unit and returns the program's result value,
// which is the value of the last evaluated statement.
func (vm *VirtualMachine) Run(ctx context.Context) (result object.Object, err error) {
	if vm.running {
		return nil, fmt.Errorf("vm is already running")
	}
	vm.running = true
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.running = false
	}()
	vm.sp = -1
	vm.fp = 0
	vm.dynRecords = vm.dynRecords[:0]
	vm.dynMarks = vm.dynMarks[:0]
	vm.handlers = vm.handlers[:0]
	vm.frames[0].activate(vm.unit, 0)
	vm.refreshActive()
	vm.ip = 0
	return vm.eval(ctx)
}

func (vm *VirtualMachine) refreshActive() {
	f := &vm.frames[vm.fp]
	vm.activeFrame = f
	vm.activeUnit = f.unit
	vm.activeConstants = vm.constantsFor(f.unit)
}

// constantsFor converts a unit's constants to runtime objects the
// first time the unit is activated.
func (vm *VirtualMachine) constantsFor(unit *bytecode.Unit) []object.Object {
	if objs, ok := vm.constants[unit]; ok {
		return objs
	}
	objs := make([]object.Object, unit.ConstantCount())
	for i := range objs {
		switch v := unit.ConstantAt(i).(type) {
		case nil:
			objs[i] = object.Undef
		case int64:
			objs[i] = object.NewInt(v)
		case float64:
			objs[i] = object.NewFloat(v)
		case string:
			objs[i] = object.NewString(v)
		default:
			// Functions and nested units are read from the raw
			// constant pool by their own opcodes.
			objs[i] = object.Undef
		}
	}
	vm.constants[unit] = objs
	return objs
}

func (vm *VirtualMachine) fetch() op.Code {
	c := vm.activeUnit.InstructionAt(vm.ip)
	vm.ip++
	return c
}

func (vm *VirtualMachine) push(obj object.Object) {
	if vm.sp >= MaxStackDepth-1 {
		panic("value stack overflow")
	}
	vm.sp++
	vm.stack[vm.sp] = obj
}

func (vm *VirtualMachine) pop() object.Object {
	obj := vm.stack[vm.sp]
	vm.sp--
	return obj
}

// restoreRecords pops saved globals down to the given depth, restoring
// newest first.
func (vm *VirtualMachine) restoreRecords(depth int) {
	for len(vm.dynRecords) > depth {
		top := len(vm.dynRecords) - 1
		r := vm.dynRecords[top]
		vm.dynRecords = vm.dynRecords[:top]
		vm.globals[r.slot] = r.value
	}
}

func (vm *VirtualMachine) unwindDynTo(records, marks int) {
	vm.restoreRecords(records)
	if len(vm.dynMarks) > marks {
		vm.dynMarks = vm.dynMarks[:marks]
	}
}

// raise routes a runtime error to the innermost eval handler. With no
// handler installed the error aborts the run.
func (vm *VirtualMachine) raise(rerr *object.Error) error {
	if len(vm.handlers) == 0 {
		return rerr
	}
	top := len(vm.handlers) - 1
	h := vm.handlers[top]
	vm.handlers = vm.handlers[:top]
	vm.unwindDynTo(h.dynRecords, h.dynMarks)
	vm.fp = h.frameIndex
	vm.refreshActive()
	vm.ip = h.target
	vm.sp = h.sp
	if vm.errSlot >= 0 {
		vm.globals[vm.errSlot] = rerr.Value()
	}
	vm.push(object.Undef)
	vm.logger.Debug().
		Str("kind", string(rerr.Kind())).
		Str("unit", vm.activeUnit.Name()).
		Msg("error caught by eval")
	return nil
}

func (vm *VirtualMachine) eval(ctx context.Context) (object.Object, error) {
	interval := vm.checkInterval
	countdown := interval
	for {
		if interval > 0 {
			if countdown--; countdown <= 0 {
				countdown = interval
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				default:
				}
			}
		}
		switch opcode := vm.fetch(); opcode {

		case op.Nop:

		case op.Halt:
			if vm.sp >= 0 {
				return vm.pop(), nil
			}
			return object.Undef, nil

		case op.Call:
			argc := int(vm.fetch())
			fnObj := vm.stack[vm.sp-argc]
			closure, ok := fnObj.(*object.Closure)
			if !ok {
				rerr := object.Errorf(object.ENotCallable,
					"cannot invoke %s value as a sub", fnObj.Type())
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			if vm.fp+1 >= MaxFrameDepth {
				return nil, fmt.Errorf("exceeded call depth limit of %d", MaxFrameDepth)
			}
			f := &vm.frames[vm.fp+1]
			f.activateClosure(closure, vm.ip)
			f.dynRecords = len(vm.dynRecords)
			f.dynMarks = len(vm.dynMarks)
			f.handlers = len(vm.handlers)
			base := vm.sp - argc + 1
			bind := argc
			if params := closure.Function().ParameterCount(); bind > params {
				bind = params
			}
			copy(f.locals[:bind], vm.stack[base:base+bind])
			vm.sp = base - 2
			vm.fp++
			vm.refreshActive()
			vm.ip = 0

		case op.CallUnit:
			idx := int(vm.fetch())
			chunk, ok := vm.activeUnit.ConstantAt(idx).(*bytecode.Unit)
			if !ok {
				return nil, fmt.Errorf("constant %d is not a unit", idx)
			}
			if vm.fp+1 >= MaxFrameDepth {
				return nil, fmt.Errorf("exceeded call depth limit of %d", MaxFrameDepth)
			}
			owner := vm.activeFrame
			f := &vm.frames[vm.fp+1]
			f.activateChunk(chunk, vm.ip, owner)
			vm.fp++
			vm.refreshActive()
			vm.ip = 0

		case op.ReturnValue:
			result := vm.pop()
			f := vm.activeFrame
			if !f.isChunk() {
				vm.unwindDynTo(f.dynRecords, f.dynMarks)
				if len(vm.handlers) > f.handlers {
					vm.handlers = vm.handlers[:f.handlers]
				}
			}
			vm.fp--
			vm.refreshActive()
			vm.ip = f.returnIP
			vm.push(result)

		case op.JumpForward:
			delta := int(vm.fetch())
			vm.ip += delta - 2

		case op.JumpBackward:
			delta := int(vm.fetch())
			vm.ip -= delta + 2

		case op.PopJumpForwardIfFalse:
			delta := int(vm.fetch())
			if !vm.pop().IsTruthy() {
				vm.ip += delta - 2
			}

		case op.PopJumpForwardIfTrue:
			delta := int(vm.fetch())
			if vm.pop().IsTruthy() {
				vm.ip += delta - 2
			}

		case op.LoadFast:
			vm.push(vm.activeFrame.locals[int(vm.fetch())])

		case op.StoreFast:
			vm.activeFrame.locals[int(vm.fetch())] = vm.pop()

		case op.LoadFree:
			vm.push(vm.activeFrame.cells[int(vm.fetch())].Value())

		case op.StoreFree:
			vm.activeFrame.cells[int(vm.fetch())].Set(vm.pop())

		case op.LoadGlobal:
			vm.push(vm.globals[int(vm.fetch())])

		case op.StoreGlobal:
			vm.globals[int(vm.fetch())] = vm.pop()

		case op.LoadConst:
			vm.push(vm.activeConstants[int(vm.fetch())])

		case op.LoadUndef:
			vm.push(object.Undef)

		case op.BinaryOp:
			opType := op.BinaryOpType(vm.fetch())
			b := vm.pop()
			a := vm.pop()
			result, rerr := object.BinaryOp(opType, a, b)
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(result)

		case op.CompareOp:
			opType := op.CompareOpType(vm.fetch())
			b := vm.pop()
			a := vm.pop()
			result, rerr := object.Compare(opType, a, b)
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(result)

		case op.UnaryNegative:
			vm.push(object.Negate(vm.pop()))

		case op.UnaryNot:
			vm.push(object.Bool(!vm.pop().IsTruthy()))

		case op.Defined:
			vm.push(object.Bool(vm.pop().Type() != object.UNDEF))

		case op.BuildArray:
			count := int(vm.fetch())
			items := make([]object.Object, count)
			copy(items, vm.stack[vm.sp-count+1:vm.sp+1])
			vm.sp -= count
			vm.push(object.NewArray(items))

		case op.BuildHash:
			pairs := int(vm.fetch())
			items := make(map[string]object.Object, pairs)
			base := vm.sp - pairs*2 + 1
			for i := 0; i < pairs*2; i += 2 {
				items[object.Stringify(vm.stack[base+i])] = vm.stack[base+i+1]
			}
			vm.sp = base - 1
			vm.push(object.NewHash(items))

		case op.LoadElem:
			key := vm.pop()
			container := vm.pop()
			value, rerr := elemGet(container, key)
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(value)

		case op.StoreElem:
			key := vm.pop()
			container := vm.pop()
			value := vm.pop()
			if rerr := elemSet(container, key, value); rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(value)

		case op.Length:
			switch c := vm.pop().(type) {
			case *object.Array:
				vm.push(object.NewInt(int64(c.Len())))
			case *object.Hash:
				vm.push(object.NewInt(int64(c.Len())))
			default:
				rerr := object.Errorf(object.EType, "cannot take length of %s value", c.Type())
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
			}

		case op.ArrayPush, op.ArrayUnshift:
			count := int(vm.fetch())
			base := vm.sp - count + 1
			arr, rerr := wantArray(vm.stack[base-1])
			if rerr != nil {
				vm.sp = base - 2
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			var length int
			if opcode == op.ArrayPush {
				length = arr.Push(vm.stack[base : vm.sp+1]...)
			} else {
				length = arr.Unshift(vm.stack[base : vm.sp+1]...)
			}
			vm.sp = base - 2
			vm.push(object.NewInt(int64(length)))

		case op.ArrayPop, op.ArrayShift:
			arr, rerr := wantArray(vm.pop())
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			if opcode == op.ArrayPop {
				vm.push(arr.Pop())
			} else {
				vm.push(arr.Shift())
			}

		case op.ArraySplice:
			nrepl := int(vm.fetch())
			base := vm.sp - nrepl + 1
			replacement := make([]object.Object, nrepl)
			copy(replacement, vm.stack[base:vm.sp+1])
			vm.sp = base - 1
			count := elemIndex(vm.pop())
			offset := elemIndex(vm.pop())
			arr, rerr := wantArray(vm.pop())
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(arr.Splice(offset, count, replacement))

		case op.ArraySort:
			arr, rerr := wantArray(vm.pop())
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(arr.SortedCopy())

		case op.ArrayReverse:
			arr, rerr := wantArray(vm.pop())
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(arr.ReversedCopy())

		case op.HashExists:
			key := vm.pop()
			switch c := vm.pop().(type) {
			case *object.Hash:
				vm.push(object.Bool(c.Exists(object.Stringify(key))))
			case *object.Array:
				idx := elemIndex(key)
				if idx < 0 {
					idx += c.Len()
				}
				vm.push(object.Bool(idx >= 0 && idx < c.Len()))
			default:
				rerr := object.Errorf(object.EType, "exists needs a hash or array, got %s", c.Type())
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
			}

		case op.HashDelete:
			key := vm.pop()
			switch c := vm.pop().(type) {
			case *object.Hash:
				vm.push(c.Delete(object.Stringify(key)))
			case *object.Array:
				// Deleting mid-array leaves an undef hole.
				idx := elemIndex(key)
				old := c.Get(idx)
				if idx < 0 {
					idx += c.Len()
				}
				if idx >= 0 && idx < c.Len() {
					c.Set(idx, object.Undef)
				}
				vm.push(old)
			default:
				rerr := object.Errorf(object.EType, "delete needs a hash or array, got %s", c.Type())
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
			}

		case op.Swap:
			n := int(vm.fetch())
			vm.stack[vm.sp], vm.stack[vm.sp-n] = vm.stack[vm.sp-n], vm.stack[vm.sp]

		case op.Copy:
			n := int(vm.fetch())
			vm.push(vm.stack[vm.sp-n])

		case op.PopTop:
			vm.sp--

		case op.GetIter:
			iter, rerr := object.NewIter(vm.pop())
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(iter)

		case op.ForIter:
			pos := vm.ip - 1
			delta := int(vm.fetch())
			vm.fetch() // value count, always 1
			iter, ok := vm.stack[vm.sp].(*object.Iter)
			if !ok {
				return nil, fmt.Errorf("foreach target is not an iterator")
			}
			if value, ok := iter.Next(); ok {
				vm.push(value)
			} else {
				vm.sp--
				vm.ip = pos + delta
			}

		case op.LoadFastRef:
			slot := int(vm.fetch())
			f := vm.activeFrame
			f.captureLocals()
			vm.push(object.NewSlotRef(&f.locals[slot]))

		case op.LoadFreeRef:
			vm.push(object.NewCellRef(vm.activeFrame.cells[int(vm.fetch())]))

		case op.LoadGlobalRef:
			vm.push(object.NewSlotRef(&vm.globals[int(vm.fetch())]))

		case op.ElemRef:
			key := vm.pop()
			container := vm.pop()
			vm.push(object.NewElemRef(container, key))

		case op.RefDerefArray, op.RefDerefArrayViv:
			ref, ok := vm.pop().(object.Ref)
			if !ok {
				return nil, fmt.Errorf("dereference target is not a reference")
			}
			arr, rerr := object.DerefArray(ref, opcode == op.RefDerefArrayViv)
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(arr)

		case op.RefDerefHash, op.RefDerefHashViv:
			ref, ok := vm.pop().(object.Ref)
			if !ok {
				return nil, fmt.Errorf("dereference target is not a reference")
			}
			h, rerr := object.DerefHash(ref, opcode == op.RefDerefHashViv)
			if rerr != nil {
				if err := vm.raise(rerr); err != nil {
					return nil, err
				}
				continue
			}
			vm.push(h)

		case op.LoadClosure:
			idx := int(vm.fetch())
			count := int(vm.fetch())
			fn, ok := vm.activeUnit.ConstantAt(idx).(*bytecode.Function)
			if !ok {
				return nil, fmt.Errorf("constant %d is not a function", idx)
			}
			free := make([]*object.Cell, count)
			for i := count - 1; i >= 0; i-- {
				cell, ok := vm.pop().(*object.Cell)
				if !ok {
					return nil, fmt.Errorf("captured value is not a cell")
				}
				free[i] = cell
			}
			vm.push(object.NewClosure(fn, free))

		case op.MakeCell:
			slot := int(vm.fetch())
			f := vm.activeFrame
			f.captureLocals()
			vm.push(object.NewCell(&f.locals[slot]))

		case op.LoadFreeCell:
			vm.push(vm.activeFrame.cells[int(vm.fetch())])

		case op.DynSave:
			vm.dynMarks = append(vm.dynMarks, len(vm.dynRecords))

		case op.DynRestore:
			vm.restoreRecords(vm.dynMarks[len(vm.dynMarks)-1])

		case op.DynForget:
			vm.dynMarks = vm.dynMarks[:len(vm.dynMarks)-1]

		case op.DynUnwind:
			n := int(vm.fetch())
			for i := 0; i < n; i++ {
				top := len(vm.dynMarks) - 1
				vm.restoreRecords(vm.dynMarks[top])
				vm.dynMarks = vm.dynMarks[:top]
			}

		case op.Localize:
			slot := int(vm.fetch())
			vm.dynRecords = append(vm.dynRecords, dynRecord{slot: slot, value: vm.globals[slot]})

		case op.Die:
			if err := vm.raise(object.NewError(object.EDied, vm.pop())); err != nil {
				return nil, err
			}

		case op.PushHandler:
			pos := vm.ip - 1
			delta := int(vm.fetch())
			vm.handlers = append(vm.handlers, handler{
				target:     pos + delta,
				frameIndex: vm.fp,
				sp:         vm.sp,
				dynRecords: len(vm.dynRecords),
				dynMarks:   len(vm.dynMarks),
			})

		case op.PopHandler:
			vm.handlers = vm.handlers[:len(vm.handlers)-1]

		case op.Say:
			argc := int(vm.fetch())
			base := vm.sp - argc + 1
			var sb strings.Builder
			for i := base; i <= vm.sp; i++ {
				sb.WriteString(object.Stringify(vm.stack[i]))
			}
			vm.sp = base - 1
			fmt.Fprintln(vm.stdout, sb.String())
			vm.push(object.True)

		case op.Warn:
			argc := int(vm.fetch())
			base := vm.sp - argc + 1
			var sb strings.Builder
			for i := base; i <= vm.sp; i++ {
				sb.WriteString(object.Stringify(vm.stack[i]))
			}
			vm.sp = base - 1
			text := sb.String()
			if text == "" {
				text = "Warning: something's wrong"
			}
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			fmt.Fprint(vm.stderr, text)
			vm.push(object.True)

		default:
			return nil, fmt.Errorf("unknown opcode %d at ip %d in %q",
				opcode, vm.ip-1, vm.activeUnit.Name())
		}
	}
}

func wantArray(obj object.Object) (*object.Array, *object.Error) {
	arr, ok := obj.(*object.Array)
	if !ok {
		return nil, object.Errorf(object.EType, "expected an array, got %s", obj.Type())
	}
	return arr, nil
}

// elemIndex converts a key to an array index with Perl's truncating
// numification.
func elemIndex(key object.Object) int {
	i, f, isFloat := object.Numify(key)
	if isFloat {
		return int(f)
	}
	return int(i)
}

func elemGet(container, key object.Object) (object.Object, *object.Error) {
	switch c := container.(type) {
	case *object.Array:
		return c.Get(elemIndex(key)), nil
	case *object.Hash:
		return c.Get(object.Stringify(key)), nil
	default:
		return nil, object.Errorf(object.EType, "cannot index %s value", container.Type())
	}
}

func elemSet(container, key, value object.Object) *object.Error {
	switch c := container.(type) {
	case *object.Array:
		return c.Set(elemIndex(key), value)
	case *object.Hash:
		c.Set(object.Stringify(key), value)
		return nil
	default:
		return object.Errorf(object.EType, "cannot index %s value", container.Type())
	}
}
