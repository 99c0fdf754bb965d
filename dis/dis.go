// Package dis supports inspection of compiled units by decoding their
// instruction streams back into readable opcode listings.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/internal/table"
	"github.com/marmot-lang/marmot/op"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   []op.Code
	Annotation string
}

// Disassemble decodes the instruction stream of a single unit. Nested
// function and chunk units are not followed; use Fprint for a full
// listing.
func Disassemble(unit *bytecode.Unit) ([]Instruction, error) {
	var instructions []Instruction
	count := unit.InstructionCount()
	for offset := 0; offset < count; {
		opcode := unit.InstructionAt(offset)
		info := op.GetInfo(opcode)
		if info.Name == "" {
			return nil, fmt.Errorf("unknown opcode %d at offset %d", opcode, offset)
		}
		if offset+info.OperandCount >= count && info.OperandCount > 0 {
			return nil, fmt.Errorf("truncated operands for %s at offset %d", info.Name, offset)
		}
		var operands []op.Code
		if info.OperandCount > 0 {
			operands = make([]op.Code, info.OperandCount)
			for i := range operands {
				operands[i] = unit.InstructionAt(offset + 1 + i)
			}
		}
		instructions = append(instructions, Instruction{
			Offset:     offset,
			Name:       info.Name,
			Opcode:     opcode,
			Operands:   operands,
			Annotation: annotate(unit, opcode, offset, operands),
		})
		offset += 1 + info.OperandCount
	}
	return instructions, nil
}

func annotate(unit *bytecode.Unit, opcode op.Code, offset int, operands []op.Code) string {
	switch opcode {
	case op.LoadFast, op.StoreFast, op.LoadFastRef, op.MakeCell:
		return unit.LocalNameAt(int(operands[0]))
	case op.LoadFree, op.StoreFree, op.LoadFreeRef, op.LoadFreeCell:
		return unit.FreeNameAt(int(operands[0]))
	case op.LoadGlobal, op.StoreGlobal, op.LoadGlobalRef, op.Localize:
		return globalName(unit, int(operands[0]))
	case op.LoadConst:
		return constantPreview(unit.ConstantAt(int(operands[0])))
	case op.LoadClosure:
		return constantPreview(unit.ConstantAt(int(operands[0])))
	case op.CallUnit:
		return constantPreview(unit.ConstantAt(int(operands[0])))
	case op.BinaryOp:
		return op.BinaryOpType(operands[0]).String()
	case op.CompareOp:
		return op.CompareOpType(operands[0]).String()
	case op.JumpForward, op.PopJumpForwardIfFalse, op.PopJumpForwardIfTrue,
		op.PushHandler, op.ForIter:
		return fmt.Sprintf("-> %d", offset+int(operands[0]))
	case op.JumpBackward:
		return fmt.Sprintf("-> %d", offset-int(operands[0]))
	default:
		return ""
	}
}

// globalName resolves a global slot through the root unit, since only
// root units carry the global name table.
func globalName(unit *bytecode.Unit, slot int) string {
	if name := unit.GlobalNameAt(slot); name != "" {
		return name
	}
	return ""
}

const previewLimit = 40

func constantPreview(value any) string {
	switch v := value.(type) {
	case nil:
		return "undef"
	case string:
		if len(v) > previewLimit {
			v = v[:previewLimit-3] + "..."
		}
		return fmt.Sprintf("%q", v)
	case *bytecode.Function:
		name := v.Name()
		if name == "" {
			name = "<anonymous>"
		}
		return "sub:" + name
	case *bytecode.Unit:
		return v.Kind().String() + ":" + v.Name()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Print renders decoded instructions as an aligned table. Colors are
// suppressed automatically when the writer is not a terminal.
func Print(instructions []Instruction, writer io.Writer) {
	bold := color.New(color.Bold)
	info := color.New(color.FgHiCyan)
	tbl := table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight, table.AlignLeft, table.AlignRight, table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter, table.AlignCenter, table.AlignCenter, table.AlignCenter,
		})
	for _, instr := range instructions {
		annotation := instr.Annotation
		if annotation != "" {
			annotation = info.Sprint(annotation)
		}
		tbl.Append([]string{
			fmt.Sprintf("%d", instr.Offset),
			bold.Sprint(instr.Name),
			formatOperands(instr.Operands),
			annotation,
		})
	}
	tbl.Render()
}

func formatOperands(operands []op.Code) string {
	parts := make([]string, len(operands))
	for i, operand := range operands {
		parts[i] = fmt.Sprintf("%d", operand)
	}
	return strings.Join(parts, ", ")
}

// Fprint disassembles a unit and every function and chunk reachable
// through its constant pool, writing one table per unit.
func Fprint(writer io.Writer, unit *bytecode.Unit) error {
	return fprint(writer, unit, map[string]bool{})
}

func fprint(writer io.Writer, unit *bytecode.Unit, seen map[string]bool) error {
	if seen[unit.ID()] {
		return nil
	}
	seen[unit.ID()] = true
	title := unit.Name()
	if title == "" {
		title = unit.Kind().String()
	}
	fmt.Fprintf(writer, "%s:\n", color.New(color.Bold).Sprint(title))
	instructions, err := Disassemble(unit)
	if err != nil {
		return err
	}
	Print(instructions, writer)
	for i := 0; i < unit.ConstantCount(); i++ {
		switch constant := unit.ConstantAt(i).(type) {
		case *bytecode.Function:
			fmt.Fprintln(writer)
			if err := fprint(writer, constant.Unit(), seen); err != nil {
				return err
			}
		case *bytecode.Unit:
			fmt.Fprintln(writer)
			if err := fprint(writer, constant, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
