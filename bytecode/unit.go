package bytecode

import (
	"strings"

	"github.com/marmot-lang/marmot/op"
)

// UnitKind describes what a compiled unit is the body of.
type UnitKind int

const (
	// KindMain is a top-level program unit.
	KindMain UnitKind = iota
	// KindSub is a subroutine body.
	KindSub
	// KindChunk is a split-off block segment that runs in the caller's
	// frame, sharing its locals and captured cells.
	KindChunk
)

func (k UnitKind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindSub:
		return "sub"
	case KindChunk:
		return "chunk"
	default:
		return "unknown"
	}
}

// Unit represents one compiled body of instructions. It is immutable
// after creation and safe for concurrent use.
type Unit struct {
	id       string
	name     string
	kind     UnitKind
	children []*Unit
	parent   *Unit

	instructions []op.Code
	constants    []any
	source       string
	filename     string

	// localCount is the slot watermark: the number of local slots the
	// frame executing this unit must provide. Chunks report the count of
	// the unit they split from and never allocate their own frame locals.
	localCount int

	globalNames []string
	localNames  []string
	freeNames   []string
}

// UnitParams contains parameters for creating a new Unit.
type UnitParams struct {
	ID           string
	Name         string
	Kind         UnitKind
	Children     []*Unit
	Instructions []op.Code
	Constants    []any
	Source       string
	Filename     string
	LocalCount   int
	GlobalNames  []string
	LocalNames   []string
	FreeNames    []string
}

// NewUnit creates a new immutable Unit from the given parameters.
// Input slices are copied; there are no mutation methods.
func NewUnit(params UnitParams) *Unit {
	var children []*Unit
	if len(params.Children) > 0 {
		children = make([]*Unit, len(params.Children))
		copy(children, params.Children)
	}
	unit := &Unit{
		id:           params.ID,
		name:         params.Name,
		kind:         params.Kind,
		children:     children,
		instructions: copyInstructions(params.Instructions),
		constants:    copyAny(params.Constants),
		source:       params.Source,
		filename:     params.Filename,
		localCount:   params.LocalCount,
		globalNames:  copyStrings(params.GlobalNames),
		localNames:   copyStrings(params.LocalNames),
		freeNames:    copyStrings(params.FreeNames),
	}
	for _, child := range unit.children {
		child.parent = unit
	}
	return unit
}

// ID returns the unique identifier for this unit.
func (u *Unit) ID() string {
	return u.id
}

// Name returns the name of this unit.
func (u *Unit) Name() string {
	return u.name
}

// Kind returns what this unit is the body of.
func (u *Unit) Kind() UnitKind {
	return u.kind
}

// ChildCount returns the number of child units.
func (u *Unit) ChildCount() int {
	return len(u.children)
}

// ChildAt returns the child unit at the given index.
func (u *Unit) ChildAt(index int) *Unit {
	return u.children[index]
}

// InstructionCount returns the number of instruction words.
func (u *Unit) InstructionCount() int {
	return len(u.instructions)
}

// InstructionAt returns the instruction word at the given index.
func (u *Unit) InstructionAt(index int) op.Code {
	return u.instructions[index]
}

// ConstantCount returns the number of constants.
func (u *Unit) ConstantCount() int {
	return len(u.constants)
}

// ConstantAt returns the constant at the given index.
func (u *Unit) ConstantAt(index int) any {
	return u.constants[index]
}

// Source returns the source text for this unit, when known.
func (u *Unit) Source() string {
	return u.source
}

// Filename returns the source filename, when known.
func (u *Unit) Filename() string {
	return u.filename
}

// LocalCount returns the local slot watermark for this unit.
func (u *Unit) LocalCount() int {
	return u.localCount
}

// GlobalNameCount returns the number of global variable names.
// Only root units carry global names.
func (u *Unit) GlobalNameCount() int {
	return len(u.globalNames)
}

// GlobalNameAt returns the global variable name at the given slot index.
// Returns an empty string if the index is out of range.
func (u *Unit) GlobalNameAt(index int) string {
	if index < 0 || index >= len(u.globalNames) {
		return ""
	}
	return u.globalNames[index]
}

// GlobalNames returns a copy of all global variable names in slot order.
func (u *Unit) GlobalNames() []string {
	return copyStrings(u.globalNames)
}

// LocalNameCount returns the number of recorded local variable names.
func (u *Unit) LocalNameCount() int {
	return len(u.localNames)
}

// LocalNameAt returns the local variable name for the given slot.
// Returns an empty string if the index is out of range.
func (u *Unit) LocalNameAt(index int) string {
	if index < 0 || index >= len(u.localNames) {
		return ""
	}
	return u.localNames[index]
}

// FreeNameCount returns the number of captured variable names.
func (u *Unit) FreeNameCount() int {
	return len(u.freeNames)
}

// FreeNameAt returns the captured variable name at the given cell index.
// Returns an empty string if the index is out of range.
func (u *Unit) FreeNameAt(index int) string {
	if index < 0 || index >= len(u.freeNames) {
		return ""
	}
	return u.freeNames[index]
}

// Flatten returns this unit and all descendants in a flat slice. The
// returned slice is newly allocated.
func (u *Unit) Flatten() []*Unit {
	units := []*Unit{u}
	for _, child := range u.children {
		units = append(units, child.Flatten()...)
	}
	return units
}

// GetSourceLine returns the source line at the given 1-based line number,
// looked up against the root unit's source so nested units report
// original line numbers.
func (u *Unit) GetSourceLine(lineNum int) string {
	if lineNum < 1 {
		return ""
	}
	source := u.getRootSource()
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

func (u *Unit) getRootSource() string {
	root := u
	for root.parent != nil {
		root = root.parent
	}
	return root.source
}

// Stats returns statistics about this unit.
func (u *Unit) Stats() Stats {
	functionCount := 0
	chunkCount := 0
	for i := 0; i < u.ConstantCount(); i++ {
		switch u.ConstantAt(i).(type) {
		case *Function:
			functionCount++
		case *Unit:
			chunkCount++
		}
	}
	return Stats{
		InstructionCount: u.InstructionCount(),
		ConstantCount:    u.ConstantCount(),
		FunctionCount:    functionCount,
		ChunkCount:       chunkCount,
		LocalCount:       u.LocalCount(),
		SourceBytes:      len(u.source),
	}
}
