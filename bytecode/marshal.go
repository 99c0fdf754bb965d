package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/marmot-lang/marmot/op"
)

// cborEncMode uses canonical options so equal units always encode to the
// same bytes, which the store relies on for content addressing.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	constUndef = 0
	constInt   = 1
	constFloat = 2
	constStr   = 3
	constFunc  = 4
	constUnit  = 5
)

type constWire struct {
	Kind  uint8     `cbor:"k"`
	Int   int64     `cbor:"i,omitempty"`
	Float float64   `cbor:"f,omitempty"`
	Str   string    `cbor:"s,omitempty"`
	Func  *funcWire `cbor:"fn,omitempty"`
	Unit  *unitWire `cbor:"u,omitempty"`
}

type funcWire struct {
	ID         string    `cbor:"id"`
	Name       string    `cbor:"n,omitempty"`
	Parameters []string  `cbor:"p,omitempty"`
	FreeNames  []string  `cbor:"fr,omitempty"`
	Unit       *unitWire `cbor:"u"`
}

type unitWire struct {
	ID           string      `cbor:"id"`
	Name         string      `cbor:"n,omitempty"`
	Kind         int         `cbor:"kd"`
	Instructions []uint16    `cbor:"in,omitempty"`
	Constants    []constWire `cbor:"c,omitempty"`
	Source       string      `cbor:"src,omitempty"`
	Filename     string      `cbor:"f,omitempty"`
	LocalCount   int         `cbor:"lc"`
	GlobalNames  []string    `cbor:"gn,omitempty"`
	LocalNames   []string    `cbor:"ln,omitempty"`
	FreeNames    []string    `cbor:"frn,omitempty"`
}

// Marshal serializes a Unit, including nested functions and chunks, to
// CBOR bytes. The encoding is deterministic.
func Marshal(u *Unit) ([]byte, error) {
	wire, err := toWire(u)
	if err != nil {
		return nil, err
	}
	data, err := cborEncMode.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal unit: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes a Unit from CBOR bytes produced by Marshal.
func Unmarshal(data []byte) (*Unit, error) {
	var wire unitWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal unit: %w", err)
	}
	return fromWire(&wire), nil
}

func toWire(u *Unit) (*unitWire, error) {
	wire := &unitWire{
		ID:          u.id,
		Name:        u.name,
		Kind:        int(u.kind),
		Source:      u.source,
		Filename:    u.filename,
		LocalCount:  u.localCount,
		GlobalNames: u.globalNames,
		LocalNames:  u.localNames,
		FreeNames:   u.freeNames,
	}
	if len(u.instructions) > 0 {
		wire.Instructions = make([]uint16, len(u.instructions))
		for i, ins := range u.instructions {
			wire.Instructions[i] = uint16(ins)
		}
	}
	for i, c := range u.constants {
		switch c := c.(type) {
		case nil:
			wire.Constants = append(wire.Constants, constWire{Kind: constUndef})
		case int64:
			wire.Constants = append(wire.Constants, constWire{Kind: constInt, Int: c})
		case float64:
			wire.Constants = append(wire.Constants, constWire{Kind: constFloat, Float: c})
		case string:
			wire.Constants = append(wire.Constants, constWire{Kind: constStr, Str: c})
		case *Function:
			fw, err := toWire(c.unit)
			if err != nil {
				return nil, err
			}
			wire.Constants = append(wire.Constants, constWire{Kind: constFunc, Func: &funcWire{
				ID:         c.id,
				Name:       c.name,
				Parameters: c.parameters,
				FreeNames:  c.freeNames,
				Unit:       fw,
			}})
		case *Unit:
			cw, err := toWire(c)
			if err != nil {
				return nil, err
			}
			wire.Constants = append(wire.Constants, constWire{Kind: constUnit, Unit: cw})
		default:
			return nil, fmt.Errorf("bytecode: unsupported constant %T at index %d", c, i)
		}
	}
	return wire, nil
}

func fromWire(wire *unitWire) *Unit {
	var instructions []op.Code
	if len(wire.Instructions) > 0 {
		instructions = make([]op.Code, len(wire.Instructions))
		for i, ins := range wire.Instructions {
			instructions[i] = op.Code(ins)
		}
	}
	var constants []any
	var children []*Unit
	for _, c := range wire.Constants {
		switch c.Kind {
		case constUndef:
			constants = append(constants, nil)
		case constInt:
			constants = append(constants, c.Int)
		case constFloat:
			constants = append(constants, c.Float)
		case constStr:
			constants = append(constants, c.Str)
		case constFunc:
			unit := fromWire(c.Func.Unit)
			fn := NewFunction(FunctionParams{
				ID:         c.Func.ID,
				Name:       c.Func.Name,
				Parameters: c.Func.Parameters,
				FreeNames:  c.Func.FreeNames,
				Unit:       unit,
			})
			constants = append(constants, fn)
			children = append(children, unit)
		case constUnit:
			unit := fromWire(c.Unit)
			constants = append(constants, unit)
			children = append(children, unit)
		}
	}
	return NewUnit(UnitParams{
		ID:           wire.ID,
		Name:         wire.Name,
		Kind:         UnitKind(wire.Kind),
		Children:     children,
		Instructions: instructions,
		Constants:    constants,
		Source:       wire.Source,
		Filename:     wire.Filename,
		LocalCount:   wire.LocalCount,
		GlobalNames:  wire.GlobalNames,
		LocalNames:   wire.LocalNames,
		FreeNames:    wire.FreeNames,
	})
}
