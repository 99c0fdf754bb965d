package compiler

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/op"
	"github.com/rs/zerolog"
)

// code is the mutable build state for one unit under compilation. The
// compiler appends instructions and constants here and converts the tree
// to immutable bytecode.Unit values once emission finishes.
//
// A subroutine child carries its own ScopeStack seeded from a Snapshot of
// the parent's. A chunk child shares the parent's ScopeStack outright,
// since a chunk runs in the frame of the unit it split from and addresses
// the same slots and cells.
type code struct {
	id     string
	name   string
	kind   bytecode.UnitKind
	parent *code

	scopes *ScopeStack

	instructions []op.Code
	constants    []any

	// localNames records slot-to-name mappings for the unit a frame is
	// built for. Chunks delegate to their frame root.
	localNames []string

	// freeNames records captured cell names, for subroutine units.
	freeNames []string

	chunkSeq int
}

// funcTemplate is the compile-time stand-in for a subroutine constant.
// It is replaced by a *bytecode.Function when the tree is finalized.
type funcTemplate struct {
	id        string
	name      string
	params    []string
	freeNames []string
	code      *code
}

func newUnitID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func newMainCode(globals *Globals, logger zerolog.Logger) *code {
	return &code{
		id:     newUnitID(),
		name:   "__main__",
		kind:   bytecode.KindMain,
		scopes: NewScopeStack(globals, logger),
	}
}

// newChunk creates a chained continuation unit. It shares the parent's
// ScopeStack: slot and cell numbering continue seamlessly across the
// boundary.
func (c *code) newChunk() *code {
	root := c.frameRoot()
	root.chunkSeq++
	return &code{
		id:     newUnitID(),
		name:   fmt.Sprintf("%s.chunk.%d", root.name, root.chunkSeq),
		kind:   bytecode.KindChunk,
		parent: c,
		scopes: c.scopes,
	}
}

// newSub creates a subroutine child whose base scope is the Closure
// Snapshot of the parent's current environment.
func (c *code) newSub(name string) *code {
	displayName := name
	if displayName == "" {
		displayName = "__anon__"
	}
	return &code{
		id:     newUnitID(),
		name:   displayName,
		kind:   bytecode.KindSub,
		parent: c,
		scopes: c.scopes.Snapshot(),
	}
}

// frameRoot returns the unit that owns the executing frame: the nearest
// ancestor that is not a chunk. Slot names and chunk numbering belong to
// the frame root.
func (c *code) frameRoot() *code {
	root := c
	for root.kind == bytecode.KindChunk {
		root = root.parent
	}
	return root
}

// setLocalName records the variable name for a frame slot.
func (c *code) setLocalName(slot int, name string) {
	root := c.frameRoot()
	for len(root.localNames) <= slot {
		root.localNames = append(root.localNames, "")
	}
	root.localNames[slot] = name
}

// build converts the code tree to an immutable Unit. Function templates
// and chunk children become *bytecode.Function and *bytecode.Unit
// constants, with the nested units listed as children.
func (c *code) build(source, filename string, globalNames []string) *bytecode.Unit {
	var children []*bytecode.Unit
	constants := make([]any, 0, len(c.constants))
	for _, constant := range c.constants {
		switch constant := constant.(type) {
		case *funcTemplate:
			unit := constant.code.build(source, filename, nil)
			children = append(children, unit)
			constants = append(constants, bytecode.NewFunction(bytecode.FunctionParams{
				ID:         constant.id,
				Name:       constant.name,
				Parameters: constant.params,
				FreeNames:  constant.freeNames,
				Unit:       unit,
			}))
		case *code:
			unit := constant.build(source, filename, nil)
			children = append(children, unit)
			constants = append(constants, unit)
		default:
			constants = append(constants, constant)
		}
	}
	return bytecode.NewUnit(bytecode.UnitParams{
		ID:           c.id,
		Name:         c.name,
		Kind:         c.kind,
		Children:     children,
		Instructions: c.instructions,
		Constants:    constants,
		Source:       source,
		Filename:     filename,
		LocalCount:   c.scopes.Watermark(),
		GlobalNames:  globalNames,
		LocalNames:   c.frameRoot().localNames,
		FreeNames:    c.freeNames,
	})
}
