// Package compiler lowers a Marmot abstract syntax tree to bytecode.
//
// # Two-Pass Compilation Strategy
//
// Compilation runs in two passes so subroutines can call other
// subroutines defined later in the source.
//
// Pass 1: collectSubDecls walks the tree and allocates a package global
// slot for every named subroutine, so call sites resolve forward
// references.
//
// Pass 2: compile recursively lowers each node. Named subroutines store
// their closure into the slot reserved in pass 1.
//
// # Variable Scopes
//
// The compiler tracks three storage classes:
//
//   - Local: my/param declarations, frame slots via LoadFast/StoreFast
//   - Free: captured lexicals inside closures, cells via LoadFree/StoreFree
//   - Global: package variables, program-wide slots via LoadGlobal/StoreGlobal
//
// Lexical scoping is handled by a ScopeStack of value-type scope records;
// closures compile against a Snapshot of the definition environment.
//
// # Block Splitting
//
// Statement lists whose estimated emission cost exceeds the configured
// ceiling are split: leading statements stay in the current unit and the
// remainder compiles into a chained chunk unit invoked with CallUnit,
// recursively. Chunks execute in the caller's frame, so slot and cell
// numbering is unchanged; an escape analysis refuses any split whose tail
// contains control flow that would cross the unit boundary.
package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/marmot-lang/marmot/ast"
	"github.com/marmot-lang/marmot/bytecode"
	"github.com/marmot-lang/marmot/errors"
	"github.com/marmot-lang/marmot/op"
	"github.com/marmot-lang/marmot/token"
	"github.com/rs/zerolog"
)

// Placeholder fills jump operands until the target is known.
const Placeholder = uint16(math.MaxUint16)

// Compiler lowers an AST to a tree of bytecode units. It is meant for
// single use: create one with New, call Compile once, inspect Warnings.
type Compiler struct {
	main    *code
	current *code
	globals *Globals

	labels       labelStack
	markDepth    int
	handlerDepth int

	filename    string
	source      string
	sourceLines []string

	maxUnitCost    int
	splitThreshold int

	logger zerolog.Logger

	warnings    []string
	definedSubs map[string]bool
}

// New creates a compiler with the given configuration. A nil config
// selects all defaults.
func New(cfg *Config) (*Compiler, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	maxUnitCost := cfg.MaxUnitCost
	if maxUnitCost <= 0 {
		maxUnitCost = DefaultMaxUnitCost
	}
	splitThreshold := cfg.SplitThreshold
	if splitThreshold == 0 {
		splitThreshold = DefaultSplitThreshold
	}
	globals := cfg.Globals
	if globals == nil {
		globals = NewGlobals()
	}
	main := newMainCode(globals, logger)
	if cfg.Flags != nil {
		*main.scopes.Flags() = *cfg.Flags
	}
	c := &Compiler{
		main:           main,
		current:        main,
		globals:        globals,
		filename:       cfg.Filename,
		source:         cfg.Source,
		maxUnitCost:    maxUnitCost,
		splitThreshold: splitThreshold,
		logger:         logger,
		definedSubs:    map[string]bool{},
	}
	if cfg.Source != "" {
		c.sourceLines = strings.Split(cfg.Source, "\n")
	}
	return c, nil
}

// Compile is a convenience that creates a compiler and compiles one
// program.
func Compile(program *ast.Program, cfg *Config) (*bytecode.Unit, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return c.Compile(program)
}

// Compile lowers the program to its main unit. The program's value is
// the value of its final expression statement.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Unit, error) {
	c.collectSubDecls(program.Stmts)
	if err := c.compileStmts(program.Stmts, true); err != nil {
		return nil, err
	}
	c.emit(op.Halt)
	return c.main.build(c.source, c.filename, c.globals.Names()), nil
}

// Warnings returns the diagnostics accumulated during compilation:
// enabled warning-category messages and split refusals.
func (c *Compiler) Warnings() []string {
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Globals returns the program-wide global symbol space, for compiling
// further units against the same slots.
func (c *Compiler) Globals() *Globals {
	return c.globals
}

// ---------------------------------------------------------------------
// Emission helpers

func (c *Compiler) emit(opcode op.Code, operands ...uint16) int {
	pos := len(c.current.instructions)
	c.current.instructions = append(c.current.instructions, opcode)
	for _, operand := range operands {
		c.current.instructions = append(c.current.instructions, op.Code(operand))
	}
	return pos
}

func (c *Compiler) constant(value any) (uint16, error) {
	if len(c.current.constants) >= int(Placeholder) {
		return 0, &errors.CompileError{
			Code:     errors.E2008,
			Message:  fmt.Sprintf("too many constants in unit %s", c.current.name),
			Filename: c.filename,
		}
	}
	c.current.constants = append(c.current.constants, value)
	return uint16(len(c.current.constants) - 1), nil
}

// patchForward resolves a pending forward jump: the operand becomes the
// delta from the jump opcode to the current emission position.
func (c *Compiler) patchForward(pos int) error {
	delta := len(c.current.instructions) - pos
	if delta > int(Placeholder) {
		return fmt.Errorf("compiler: forward jump of %d words exceeds operand range", delta)
	}
	c.current.instructions[pos+1] = op.Code(delta)
	return nil
}

// emitJumpBackward emits a backward jump to an already-emitted position.
func (c *Compiler) emitJumpBackward(targetPos int) error {
	delta := len(c.current.instructions) - targetPos
	if delta > int(Placeholder) {
		return fmt.Errorf("compiler: backward jump of %d words exceeds operand range", delta)
	}
	c.emit(op.JumpBackward, uint16(delta))
	return nil
}

func (c *Compiler) flags() Flags {
	return *c.current.scopes.Flags()
}

func (c *Compiler) sourceLine(line int) string {
	if line < 1 || line > len(c.sourceLines) {
		return ""
	}
	return c.sourceLines[line-1]
}

func (c *Compiler) location(pos token.Position) errors.SourceLocation {
	return errors.SourceLocation{
		Filename: c.filename,
		Line:     pos.LineNumber(),
		Column:   pos.ColumnNumber(),
		Source:   c.sourceLine(pos.LineNumber()),
	}
}

func (c *Compiler) compileError(code errors.ErrorCode, pos token.Position, format string, args ...any) *errors.CompileError {
	return &errors.CompileError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Filename:   c.filename,
		Line:       pos.LineNumber(),
		Column:     pos.ColumnNumber(),
		SourceLine: c.sourceLine(pos.LineNumber()),
	}
}

func (c *Compiler) warnIf(category string, pos token.Position, format string, args ...any) {
	if !c.flags().WarningEnabled(category) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	loc := c.location(pos)
	c.warnings = append(c.warnings, fmt.Sprintf("%s at %s", msg, loc))
	c.logger.Warn().Str("category", category).Stringer("location", loc).Msg(msg)
}

// declare allocates a frame slot (or global slot for our) for a variable
// in the current scope and records its name for diagnostics.
func (c *Compiler) declare(v *ast.Var, kind ast.DeclKind) (int, error) {
	slot := c.current.scopes.Add(v.Name, kind, v)
	if kind != ast.DeclOur {
		if slot >= int(Placeholder) {
			return 0, c.compileError(errors.E2007, v.Pos(), "too many local variables in unit %s", c.current.frameRoot().name)
		}
		c.current.setLocalName(slot, v.Name)
	}
	return slot, nil
}

func (c *Compiler) activeLabelNames() []string {
	var names []string
	for _, label := range c.labels.labels {
		if label.name != "" {
			names = append(names, label.name)
		}
	}
	return names
}

// subKey maps a subroutine name to its global symbol key.
func subKey(name string) string {
	return "&" + strings.TrimPrefix(name, "&")
}

func isPunctuationVar(name string) bool {
	for _, pre := range predeclaredGlobals {
		if name == pre {
			return true
		}
	}
	return false
}

// collectSubDecls reserves a global slot for every named subroutine so
// calls may precede definitions.
func (c *Compiler) collectSubDecls(stmts []ast.Stmt) {
	var walk func(stmts []ast.Stmt, pkg string)
	walk = func(stmts []ast.Stmt, pkg string) {
		for _, stmt := range stmts {
			switch stmt := stmt.(type) {
			case *ast.PackageStmt:
				pkg = stmt.Name
			case *ast.SubDecl:
				c.globals.Slot(pkg, subKey(stmt.Name))
				walk(stmt.Body.Stmts, pkg)
			case *ast.Block:
				walk(stmt.Stmts, pkg)
			case *ast.If:
				walk(stmt.Then.Stmts, pkg)
				if stmt.Else != nil {
					walk([]ast.Stmt{stmt.Else}, pkg)
				}
			case *ast.While:
				walk(stmt.Body.Stmts, pkg)
			case *ast.Foreach:
				walk(stmt.Body.Stmts, pkg)
			}
		}
	}
	walk(stmts, "main")
}

// ---------------------------------------------------------------------
// Statement lists and splitting

// compileStmts lowers a statement list, splitting it across chained
// units when the size estimate exceeds the ceiling. With wantValue the
// final expression statement's value is left on the stack (undef when
// the list ends with a non-expression).
func (c *Compiler) compileStmts(stmts []ast.Stmt, wantValue bool) error {
	if c.splitThreshold > 0 && len(stmts) >= c.splitThreshold {
		if cost := estimateStmts(stmts); cost > c.maxUnitCost {
			return c.compileSplit(stmts, wantValue)
		}
	}
	return c.compileStmtList(stmts, wantValue)
}

func (c *Compiler) compileStmtList(stmts []ast.Stmt, wantValue bool) error {
	produced := false
	for i := 0; i < len(stmts); i++ {
		stmt := stmts[i]
		label := ""
		if labelStmt, ok := stmt.(*ast.LabelStmt); ok {
			label = labelStmt.Name
			i++
			if i >= len(stmts) {
				break
			}
			stmt = stmts[i]
			switch stmt.(type) {
			case *ast.Block, *ast.While, *ast.Foreach:
			default:
				// Silently dropping the label would turn every later
				// transfer to it into a confusing "not found".
				return c.compileError(errors.E2014, labelStmt.Pos(),
					"label %s must precede a loop or a block", label)
			}
		}
		if expr, ok := stmt.(*ast.ExprStmt); ok {
			if err := c.compileExpr(expr.X); err != nil {
				return err
			}
			if wantValue && i == len(stmts)-1 {
				produced = true
			} else {
				c.emit(op.PopTop)
			}
			continue
		}
		if err := c.compileStmt(stmt, label); err != nil {
			return err
		}
	}
	if wantValue && !produced {
		c.emit(op.LoadUndef)
	}
	return nil
}

// compileSplit peels leading statements into the current unit and
// compiles the remainder as a chained chunk, reprocessing the tail
// recursively so every unit in the chain lands under the ceiling.
func (c *Compiler) compileSplit(stmts []ast.Stmt, wantValue bool) error {
	k := peelPoint(stmts, c.maxUnitCost)
	if k >= len(stmts) {
		return c.compileStmtList(stmts, wantValue)
	}
	tail := stmts[k:]
	if findings := analyzeEscapes(tail, &c.labels); findings != nil {
		splitErr := unsafeSplitError(c.location(tail[0].Pos()), findings)
		c.warnings = append(c.warnings, splitErr.Error())
		c.logger.Debug().Err(splitErr).Msg("refusing to split block")
		return c.compileStmtList(stmts, wantValue)
	}
	if err := c.compileStmtList(stmts[:k], false); err != nil {
		return err
	}
	chunk := c.current.newChunk()
	prev := c.current
	c.current = chunk
	err := c.compileStmts(tail, wantValue)
	if err == nil && !wantValue {
		c.emit(op.LoadUndef)
	}
	if err == nil {
		c.emit(op.ReturnValue)
	}
	c.current = prev
	if err != nil {
		return err
	}
	idx, err := c.constant(chunk)
	if err != nil {
		return err
	}
	c.emit(op.CallUnit, idx)
	if !wantValue {
		c.emit(op.PopTop)
	}
	c.logger.Debug().
		Str("chunk", chunk.name).
		Int("head_stmts", k).
		Int("tail_stmts", len(tail)).
		Msg("split block")
	return nil
}

// ---------------------------------------------------------------------
// Statements

func (c *Compiler) compileStmt(stmt ast.Stmt, label string) error {
	switch stmt := stmt.(type) {
	case *ast.Block:
		return c.compileBareBlock(stmt, label)
	case *ast.While:
		return c.compileWhile(stmt, label)
	case *ast.Foreach:
		return c.compileForeach(stmt, label)
	case *ast.If:
		return c.compileIf(stmt)
	case *ast.Decl:
		return c.compileDecl(stmt)
	case *ast.LocalStmt:
		return c.compileLocal(stmt)
	case *ast.Control:
		return c.compileControl(stmt)
	case *ast.Return:
		return c.compileReturn(stmt)
	case *ast.SubDecl:
		return c.compileSubDecl(stmt)
	case *ast.PackageStmt:
		c.current.scopes.SetPackage(stmt.Name, stmt.Class)
		return nil
	case *ast.Pragma:
		return c.current.scopes.Flags().Set(stmt.Category, stmt.Names, stmt.Enable, c.location(stmt.Pos()))
	case *ast.ExprStmt:
		if err := c.compileExpr(stmt.X); err != nil {
			return err
		}
		c.emit(op.PopTop)
		return nil
	case *ast.LabelStmt:
		// A trailing label controls nothing.
		return nil
	default:
		return fmt.Errorf("compiler: unsupported statement %T", stmt)
	}
}

// compileLoopBody emits the governed block of a loop construct: scope
// entry, the dynamic-scope save mark, the redo target, the statements,
// and the exit path (restore then forget). On return the label's next
// jumps are patched to the exit path; lastPatch entries remain for the
// enclosing construct to resolve.
func (c *Compiler) compileLoopBody(body *ast.Block, label *loopLabel) error {
	scope := c.current.scopes.Enter()
	c.emit(op.DynSave)
	c.markDepth++
	label.code = c.current
	label.markDepth = c.markDepth
	label.handlerDepth = c.handlerDepth
	label.redoPos = len(c.current.instructions)
	c.labels.push(label)
	err := c.compileStmts(body.Stmts, false)
	c.labels.pop()
	if err != nil {
		return err
	}
	for _, pos := range label.nextPatch {
		if err := c.patchForward(pos); err != nil {
			return err
		}
	}
	c.emit(op.DynRestore)
	c.emit(op.DynForget)
	c.markDepth--
	c.current.scopes.Exit(scope)
	return nil
}

// compilePlainBlock emits a non-loop block (if arms, eval bodies): a
// scope and a dynamic mark, but no loop-control record.
func (c *Compiler) compilePlainBlock(block *ast.Block, wantValue bool) error {
	scope := c.current.scopes.Enter()
	c.emit(op.DynSave)
	c.markDepth++
	err := c.compileStmts(block.Stmts, wantValue)
	if err != nil {
		return err
	}
	c.emit(op.DynRestore)
	c.emit(op.DynForget)
	c.markDepth--
	c.current.scopes.Exit(scope)
	return nil
}

// compileBareBlock emits a bare block: a one-iteration loop that
// participates in loop control.
func (c *Compiler) compileBareBlock(block *ast.Block, name string) error {
	label := &loopLabel{name: name}
	if err := c.compileLoopBody(block, label); err != nil {
		return err
	}
	// No back edge: next falls out, last jumps here.
	for _, pos := range label.lastPatch {
		if err := c.patchForward(pos); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileWhile(node *ast.While, name string) error {
	condPos := len(c.current.instructions)
	if err := c.compileExpr(node.Cond); err != nil {
		return err
	}
	endJump := c.emit(op.PopJumpForwardIfFalse, Placeholder)
	label := &loopLabel{name: name}
	if err := c.compileLoopBody(node.Body, label); err != nil {
		return err
	}
	if err := c.emitJumpBackward(condPos); err != nil {
		return err
	}
	if err := c.patchForward(endJump); err != nil {
		return err
	}
	for _, pos := range label.lastPatch {
		if err := c.patchForward(pos); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileForeach(node *ast.Foreach, name string) error {
	outer := c.current.scopes.Enter()
	if err := c.compileContainerArg(node.List, true); err != nil {
		return err
	}
	c.emit(op.GetIter)
	iterPos := len(c.current.instructions)
	doneJump := c.emit(op.ForIter, Placeholder, 1)
	slot, err := c.declare(node.Var, ast.DeclMy)
	if err != nil {
		return err
	}
	c.emit(op.StoreFast, uint16(slot))
	label := &loopLabel{name: name}
	if err := c.compileLoopBody(node.Body, label); err != nil {
		return err
	}
	if err := c.emitJumpBackward(iterPos); err != nil {
		return err
	}
	// Exhaustion lands here; ForIter already discarded the iterator.
	if err := c.patchForward(doneJump); err != nil {
		return err
	}
	if len(label.lastPatch) > 0 {
		// last arrives with the iterator still on the stack.
		endJump := c.emit(op.JumpForward, Placeholder)
		for _, pos := range label.lastPatch {
			if err := c.patchForward(pos); err != nil {
				return err
			}
		}
		c.emit(op.PopTop)
		if err := c.patchForward(endJump); err != nil {
			return err
		}
	}
	c.current.scopes.Exit(outer)
	return nil
}

func (c *Compiler) compileIf(node *ast.If) error {
	if err := c.compileExpr(node.Cond); err != nil {
		return err
	}
	elseJump := c.emit(op.PopJumpForwardIfFalse, Placeholder)
	if err := c.compilePlainBlock(node.Then, false); err != nil {
		return err
	}
	if node.Else == nil {
		return c.patchForward(elseJump)
	}
	endJump := c.emit(op.JumpForward, Placeholder)
	if err := c.patchForward(elseJump); err != nil {
		return err
	}
	switch alt := node.Else.(type) {
	case *ast.Block:
		if err := c.compilePlainBlock(alt, false); err != nil {
			return err
		}
	case *ast.If:
		if err := c.compileIf(alt); err != nil {
			return err
		}
	default:
		return fmt.Errorf("compiler: unsupported else clause %T", node.Else)
	}
	return c.patchForward(endJump)
}

func (c *Compiler) compileDecl(node *ast.Decl) error {
	name := node.Name.Name
	if existing := c.current.scopes.Lookup(name); existing != nil {
		c.warnIf("shadow", node.Pos(), "%q shadows an earlier declaration", name)
	}
	if node.Kind == ast.DeclOur {
		slot, err := c.declare(node.Name, ast.DeclOur)
		if err != nil {
			return err
		}
		if node.Init != nil {
			if err := c.compileExpr(node.Init); err != nil {
				return err
			}
			c.emit(op.StoreGlobal, uint16(slot))
		}
		return nil
	}
	// The initializer sees the outer binding: my $x = $x reads the
	// enclosing $x.
	if node.Init != nil {
		if err := c.compileExpr(node.Init); err != nil {
			return err
		}
	} else {
		switch node.Name.Sigil() {
		case '@':
			c.emit(op.BuildArray, 0)
		case '%':
			c.emit(op.BuildHash, 0)
		default:
			c.emit(op.LoadUndef)
		}
	}
	slot, err := c.declare(node.Name, node.Kind)
	if err != nil {
		return err
	}
	c.emit(op.StoreFast, uint16(slot))
	return nil
}

func (c *Compiler) compileLocal(node *ast.LocalStmt) error {
	name := node.Name.Name
	var slot int
	switch sym := c.current.scopes.Lookup(name); {
	case sym == nil:
		if c.flags().StrictEnabled("vars") && !isPunctuationVar(name) && !containsQualifier(name) {
			return c.compileError(errors.E2012, node.Pos(),
				"global symbol %q requires explicit package name", name)
		}
		slot = c.globals.Slot(c.current.scopes.Package(), name)
	case sym.Kind() == ast.DeclOur:
		slot = sym.GlobalSlot()
	default:
		return c.compileError(errors.E2010, node.Pos(),
			"cannot localize lexical variable %q", name)
	}
	// Localize saves the current global value on the dynamic save stack;
	// the enclosing mark restores it on every exit path.
	c.emit(op.Localize, uint16(slot))
	if node.Init != nil {
		if err := c.compileExpr(node.Init); err != nil {
			return err
		}
	} else {
		c.emit(op.LoadUndef)
	}
	c.emit(op.StoreGlobal, uint16(slot))
	return nil
}

func (c *Compiler) compileControl(node *ast.Control) error {
	if node.Kind == ast.ControlGoto && node.Label == "" {
		return c.compileError(errors.E2013, node.Pos(), "goto requires a label")
	}
	label := c.labels.resolve(node.Label)
	if label == nil {
		if node.Label == "" {
			return c.compileError(errors.E2003, node.Pos(), "%s used outside of a loop", node.Kind)
		}
		code := errors.E2004
		if node.Kind == ast.ControlGoto {
			code = errors.E2013
		}
		err := c.compileError(code, node.Pos(), "label %s not found", node.Label)
		err.Suggestions = errors.SuggestSimilar(node.Label, c.activeLabelNames())
		return err
	}
	if label.code != c.current {
		return fmt.Errorf("compiler: internal: %s %s would cross a unit boundary", node.Kind, node.Label)
	}
	// A transfer out of an eval body leaves its handler behind; pop
	// every handler installed between the target block and the jump.
	for n := c.handlerDepth - label.handlerDepth; n > 0; n-- {
		c.emit(op.PopHandler)
	}
	diff := c.markDepth - label.markDepth
	switch node.Kind {
	case ast.ControlRedo, ast.ControlGoto:
		// Unwind inner marks, restore the target block's bindings without
		// dropping its mark, and re-enter at the block head.
		if diff > 0 {
			c.emit(op.DynUnwind, uint16(diff))
		}
		c.emit(op.DynRestore)
		return c.emitJumpBackward(label.redoPos)
	case ast.ControlNext:
		if diff > 0 {
			c.emit(op.DynUnwind, uint16(diff))
		}
		label.nextPatch = append(label.nextPatch, c.emit(op.JumpForward, Placeholder))
	case ast.ControlLast:
		// Also unwinds the target block's own mark; the jump bypasses the
		// block's exit path.
		c.emit(op.DynUnwind, uint16(diff+1))
		label.lastPatch = append(label.lastPatch, c.emit(op.JumpForward, Placeholder))
	}
	return nil
}

func (c *Compiler) compileReturn(node *ast.Return) error {
	if !c.current.scopes.InSubBody() {
		return c.compileError(errors.E2005, node.Pos(), "return used outside of a subroutine")
	}
	if node.Value != nil {
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
	} else {
		c.emit(op.LoadUndef)
	}
	c.emit(op.ReturnValue)
	return nil
}

func (c *Compiler) compileSubDecl(node *ast.SubDecl) error {
	pkg := c.current.scopes.Package()
	qualified := QualifyName(pkg, subKey(node.Name))
	if c.definedSubs[qualified] {
		c.warnIf("redefine", node.Pos(), "subroutine %s redefined", node.Name)
	}
	c.definedSubs[qualified] = true
	slot := c.globals.Slot(pkg, subKey(node.Name))
	if err := c.compileFunction(node.Name, node.Params, node.Body); err != nil {
		return err
	}
	c.emit(op.StoreGlobal, uint16(slot))
	return nil
}

// ---------------------------------------------------------------------
// Expressions

func (c *Compiler) compileExpr(node ast.Expr) error {
	switch node := node.(type) {
	case *ast.IntLit:
		return c.emitConstant(node.Value)
	case *ast.FloatLit:
		return c.emitConstant(node.Value)
	case *ast.StrLit:
		return c.emitConstant(node.Value)
	case *ast.UndefLit:
		c.emit(op.LoadUndef)
		return nil
	case *ast.ArrayLit:
		for _, elem := range node.Elems {
			if err := c.compileExpr(elem); err != nil {
				return err
			}
		}
		c.emit(op.BuildArray, uint16(len(node.Elems)))
		return nil
	case *ast.HashLit:
		if len(node.Pairs)%2 != 0 {
			return fmt.Errorf("compiler: odd number of elements in hash literal at %s", node.Pos())
		}
		for _, item := range node.Pairs {
			if err := c.compileExpr(item); err != nil {
				return err
			}
		}
		c.emit(op.BuildHash, uint16(len(node.Pairs)/2))
		return nil
	case *ast.Var:
		return c.compileVarLoad(node)
	case *ast.Assign:
		return c.compileAssign(node)
	case *ast.Infix:
		return c.compileInfix(node)
	case *ast.Prefix:
		return c.compilePrefix(node)
	case *ast.Call:
		return c.compileCall(node)
	case *ast.Builtin:
		return c.compileBuiltin(node)
	case *ast.FuncLit:
		return c.compileFunction("", node.Params, node.Body)
	case *ast.Elem:
		return c.compileElemLoad(node)
	case *ast.Deref:
		// Plain rvalue dereference never vivifies.
		return c.compileDeref(node, false)
	case *ast.Eval:
		return c.compileEval(node)
	default:
		return fmt.Errorf("compiler: unsupported expression %T", node)
	}
}

func (c *Compiler) emitConstant(value any) error {
	idx, err := c.constant(value)
	if err != nil {
		return err
	}
	c.emit(op.LoadConst, idx)
	return nil
}

type varRefKind int

const (
	refLocal varRefKind = iota
	refFree
	refGlobal
)

type varRef struct {
	kind varRefKind
	slot int
}

// resolveVar maps a variable reference to its storage class. Undeclared
// names become package globals, or a compile error under strict vars.
func (c *Compiler) resolveVar(node *ast.Var) (varRef, error) {
	name := node.Name
	if sym := c.current.scopes.Lookup(name); sym != nil {
		if sym.IsFree() {
			return varRef{kind: refFree, slot: sym.FreeIndex()}, nil
		}
		if sym.Kind() == ast.DeclOur {
			return varRef{kind: refGlobal, slot: sym.GlobalSlot()}, nil
		}
		return varRef{kind: refLocal, slot: sym.Index()}, nil
	}
	if c.flags().StrictEnabled("vars") && !isPunctuationVar(name) && !containsQualifier(name) {
		err := c.compileError(errors.E2012, node.Pos(),
			"global symbol %q requires explicit package name", name)
		err.Suggestions = errors.SuggestSimilar(name, c.current.scopes.AllNames())
		return varRef{}, err
	}
	return varRef{kind: refGlobal, slot: c.globals.Slot(c.current.scopes.Package(), name)}, nil
}

func (c *Compiler) compileVarLoad(node *ast.Var) error {
	ref, err := c.resolveVar(node)
	if err != nil {
		return err
	}
	switch ref.kind {
	case refLocal:
		c.emit(op.LoadFast, uint16(ref.slot))
	case refFree:
		c.emit(op.LoadFree, uint16(ref.slot))
	case refGlobal:
		c.emit(op.LoadGlobal, uint16(ref.slot))
	}
	return nil
}

func (c *Compiler) compileVarStore(node *ast.Var) error {
	ref, err := c.resolveVar(node)
	if err != nil {
		return err
	}
	switch ref.kind {
	case refLocal:
		c.emit(op.StoreFast, uint16(ref.slot))
	case refFree:
		c.emit(op.StoreFree, uint16(ref.slot))
	case refGlobal:
		c.emit(op.StoreGlobal, uint16(ref.slot))
	}
	return nil
}

func (c *Compiler) compileAssign(node *ast.Assign) error {
	switch target := node.Target.(type) {
	case *ast.Var:
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
		// Duplicate so the assignment evaluates to the assigned value.
		c.emit(op.Copy, 0)
		return c.compileVarStore(target)
	case *ast.Elem:
		// StoreElem pops key, container and value, then pushes the value
		// back as the expression result.
		if err := c.compileExpr(node.Value); err != nil {
			return err
		}
		if err := c.compileElemContainer(target); err != nil {
			return err
		}
		if err := c.compileExpr(target.Key); err != nil {
			return err
		}
		c.emit(op.StoreElem)
		return nil
	default:
		return c.compileError(errors.E2011, node.Pos(), "cannot assign to %s", node.Target)
	}
}

// compileElemContainer pushes the container for an element access. A
// dereferencing access ($x->[i], $x->{k}) vivifies the outer container
// in every context; the element itself is never created by a read.
func (c *Compiler) compileElemContainer(node *ast.Elem) error {
	if node.Deref {
		if err := c.compileRef(node.X); err != nil {
			return err
		}
		if node.IsHash {
			c.emit(op.RefDerefHashViv)
		} else {
			c.emit(op.RefDerefArrayViv)
		}
		return nil
	}
	return c.compileExpr(node.X)
}

// compileRef pushes a reference to a scalar storage location: a frame
// slot, a capture cell, a global slot, or a container element.
func (c *Compiler) compileRef(node ast.Expr) error {
	switch node := node.(type) {
	case *ast.Var:
		ref, err := c.resolveVar(node)
		if err != nil {
			return err
		}
		switch ref.kind {
		case refLocal:
			c.emit(op.LoadFastRef, uint16(ref.slot))
		case refFree:
			c.emit(op.LoadFreeRef, uint16(ref.slot))
		case refGlobal:
			c.emit(op.LoadGlobalRef, uint16(ref.slot))
		}
		return nil
	case *ast.Elem:
		if err := c.compileElemContainer(node); err != nil {
			return err
		}
		if err := c.compileExpr(node.Key); err != nil {
			return err
		}
		c.emit(op.ElemRef)
		return nil
	default:
		return c.compileError(errors.E2011, node.Pos(), "cannot form a storage reference to %s", node)
	}
}

func (c *Compiler) compileElemLoad(node *ast.Elem) error {
	if err := c.compileElemContainer(node); err != nil {
		return err
	}
	if err := c.compileExpr(node.Key); err != nil {
		return err
	}
	c.emit(op.LoadElem)
	return nil
}

// compileDeref pushes the container a scalar refers to: @{$x} or %{$x}.
func (c *Compiler) compileDeref(node *ast.Deref, vivify bool) error {
	if err := c.compileRef(node.X); err != nil {
		return err
	}
	switch node.Sigil {
	case '@':
		if vivify {
			c.emit(op.RefDerefArrayViv)
		} else {
			c.emit(op.RefDerefArray)
		}
	case '%':
		if vivify {
			c.emit(op.RefDerefHashViv)
		} else {
			c.emit(op.RefDerefHash)
		}
	default:
		return fmt.Errorf("compiler: unsupported dereference sigil %q at %s", node.Sigil, node.Pos())
	}
	return nil
}

// compileContainerArg pushes a container operand for iteration or a
// container builtin. vivify selects the dereference class: mutating
// builtins and foreach vivify, sort and reverse do not.
func (c *Compiler) compileContainerArg(node ast.Expr, vivify bool) error {
	if deref, ok := node.(*ast.Deref); ok {
		return c.compileDeref(deref, vivify)
	}
	return c.compileExpr(node)
}

var binaryOps = map[string]op.BinaryOpType{
	"+": op.Add,
	"-": op.Subtract,
	"*": op.Multiply,
	"/": op.Divide,
	"%": op.Modulo,
	".": op.Concat,
}

var compareOps = map[string]op.CompareOpType{
	"==": op.Equal,
	"!=": op.NotEqual,
	"<":  op.LessThan,
	"<=": op.LessThanOrEqual,
	">":  op.GreaterThan,
	">=": op.GreaterThanOrEqual,
	"eq": op.StrEqual,
	"ne": op.StrNotEqual,
	"lt": op.StrLessThan,
	"gt": op.StrGreaterThan,
}

func (c *Compiler) compileInfix(node *ast.Infix) error {
	switch node.Op {
	case "&&":
		if err := c.compileExpr(node.Left); err != nil {
			return err
		}
		c.emit(op.Copy, 0)
		endJump := c.emit(op.PopJumpForwardIfFalse, Placeholder)
		c.emit(op.PopTop)
		if err := c.compileExpr(node.Right); err != nil {
			return err
		}
		return c.patchForward(endJump)
	case "||":
		if err := c.compileExpr(node.Left); err != nil {
			return err
		}
		c.emit(op.Copy, 0)
		endJump := c.emit(op.PopJumpForwardIfTrue, Placeholder)
		c.emit(op.PopTop)
		if err := c.compileExpr(node.Right); err != nil {
			return err
		}
		return c.patchForward(endJump)
	}
	if err := c.compileExpr(node.Left); err != nil {
		return err
	}
	if err := c.compileExpr(node.Right); err != nil {
		return err
	}
	if binOp, ok := binaryOps[node.Op]; ok {
		c.emit(op.BinaryOp, uint16(binOp))
		return nil
	}
	if cmpOp, ok := compareOps[node.Op]; ok {
		c.emit(op.CompareOp, uint16(cmpOp))
		return nil
	}
	return fmt.Errorf("compiler: unsupported operator %q at %s", node.Op, node.Pos())
}

func (c *Compiler) compilePrefix(node *ast.Prefix) error {
	if err := c.compileExpr(node.X); err != nil {
		return err
	}
	switch node.Op {
	case "-":
		c.emit(op.UnaryNegative)
	case "!", "not":
		c.emit(op.UnaryNot)
	default:
		return fmt.Errorf("compiler: unsupported prefix operator %q at %s", node.Op, node.Pos())
	}
	return nil
}

func (c *Compiler) compileCall(node *ast.Call) error {
	if fn, ok := node.Fn.(*ast.FuncName); ok {
		pkg := c.current.scopes.Package()
		slot := c.globals.LookupSlot(pkg, subKey(fn.Name))
		if slot < 0 {
			if c.flags().StrictEnabled("subs") {
				err := c.compileError(errors.E2002, node.Pos(), "undefined subroutine &%s called", strings.TrimPrefix(fn.Name, "&"))
				err.Suggestions = errors.SuggestSimilar(subKey(fn.Name), c.globals.Names())
				return err
			}
			slot = c.globals.Slot(pkg, subKey(fn.Name))
		}
		c.emit(op.LoadGlobal, uint16(slot))
	} else {
		if err := c.compileExpr(node.Fn); err != nil {
			return err
		}
	}
	for _, arg := range node.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.emit(op.Call, uint16(len(node.Args)))
	return nil
}

var builtinNames = []string{
	"push", "pop", "shift", "unshift", "splice", "sort", "reverse",
	"scalar", "defined", "exists", "delete", "say", "warn", "die",
}

func (c *Compiler) compileBuiltin(node *ast.Builtin) error {
	args := node.Args
	switch node.Name {
	case "say":
		if !c.flags().FeatureEnabled("say") {
			return c.compileError(errors.E2002, node.Pos(), `say used without "use feature 'say'"`)
		}
		for _, arg := range args {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.emit(op.Say, uint16(len(args)))
		return nil
	case "warn":
		for _, arg := range args {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.emit(op.Warn, uint16(len(args)))
		return nil
	case "die":
		if len(args) > 0 {
			if err := c.compileExpr(args[0]); err != nil {
				return err
			}
		} else {
			if err := c.emitConstant("Died"); err != nil {
				return err
			}
		}
		c.emit(op.Die)
		return nil
	case "push", "unshift":
		if len(args) < 1 {
			return fmt.Errorf("compiler: %s requires a container argument at %s", node.Name, node.Pos())
		}
		if err := c.compileContainerArg(args[0], true); err != nil {
			return err
		}
		for _, arg := range args[1:] {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		if node.Name == "push" {
			c.emit(op.ArrayPush, uint16(len(args)-1))
		} else {
			c.emit(op.ArrayUnshift, uint16(len(args)-1))
		}
		return nil
	case "pop", "shift":
		if len(args) != 1 {
			return fmt.Errorf("compiler: %s requires a container argument at %s", node.Name, node.Pos())
		}
		if err := c.compileContainerArg(args[0], true); err != nil {
			return err
		}
		if node.Name == "pop" {
			c.emit(op.ArrayPop)
		} else {
			c.emit(op.ArrayShift)
		}
		return nil
	case "splice":
		if len(args) < 1 {
			return fmt.Errorf("compiler: splice requires a container argument at %s", node.Pos())
		}
		if err := c.compileContainerArg(args[0], true); err != nil {
			return err
		}
		if len(args) > 1 {
			if err := c.compileExpr(args[1]); err != nil {
				return err
			}
		} else {
			if err := c.emitConstant(int64(0)); err != nil {
				return err
			}
		}
		if len(args) > 2 {
			if err := c.compileExpr(args[2]); err != nil {
				return err
			}
		} else {
			// Omitted length removes through the end; the VM clamps.
			if err := c.emitConstant(int64(math.MaxInt32)); err != nil {
				return err
			}
		}
		var repl int
		if len(args) > 3 {
			repl = len(args) - 3
			for _, arg := range args[3:] {
				if err := c.compileExpr(arg); err != nil {
					return err
				}
			}
		}
		c.emit(op.ArraySplice, uint16(repl))
		return nil
	case "sort", "reverse":
		if len(args) != 1 {
			return fmt.Errorf("compiler: %s requires a container argument at %s", node.Name, node.Pos())
		}
		if err := c.compileContainerArg(args[0], false); err != nil {
			return err
		}
		if node.Name == "sort" {
			c.emit(op.ArraySort)
		} else {
			c.emit(op.ArrayReverse)
		}
		return nil
	case "scalar":
		if len(args) != 1 {
			return fmt.Errorf("compiler: scalar requires one argument at %s", node.Pos())
		}
		switch arg := args[0].(type) {
		case *ast.Deref:
			// A length read counts as a writable-path access and vivifies.
			if err := c.compileDeref(arg, true); err != nil {
				return err
			}
			c.emit(op.Length)
		case *ast.Var:
			if err := c.compileExpr(arg); err != nil {
				return err
			}
			if arg.Sigil() == '@' || arg.Sigil() == '%' {
				c.emit(op.Length)
			}
		default:
			if err := c.compileExpr(args[0]); err != nil {
				return err
			}
		}
		return nil
	case "defined":
		if len(args) != 1 {
			return fmt.Errorf("compiler: defined requires one argument at %s", node.Pos())
		}
		if err := c.compileExpr(args[0]); err != nil {
			return err
		}
		c.emit(op.Defined)
		return nil
	case "exists", "delete":
		if len(args) != 1 {
			return fmt.Errorf("compiler: %s requires an element argument at %s", node.Name, node.Pos())
		}
		elem, ok := args[0].(*ast.Elem)
		if !ok {
			return c.compileError(errors.E2011, node.Pos(), "%s requires a hash or array element", node.Name)
		}
		if err := c.compileElemContainer(elem); err != nil {
			return err
		}
		if err := c.compileExpr(elem.Key); err != nil {
			return err
		}
		if node.Name == "exists" {
			c.emit(op.HashExists)
		} else {
			c.emit(op.HashDelete)
		}
		return nil
	default:
		err := c.compileError(errors.E2002, node.Pos(), "unknown builtin %q", node.Name)
		err.Suggestions = errors.SuggestSimilar(node.Name, builtinNames)
		return err
	}
}

// compileEval emits an eval block: install a handler, run the body for
// its value, clear $@ on success. On failure the VM unwinds to the
// handler target, stores the error in $@ and pushes undef, so both paths
// join with one value on the stack.
func (c *Compiler) compileEval(node *ast.Eval) error {
	handlerPos := c.emit(op.PushHandler, Placeholder)
	c.handlerDepth++
	err := c.compilePlainBlock(node.Body, true)
	c.handlerDepth--
	if err != nil {
		return err
	}
	c.emit(op.PopHandler)
	if err := c.emitConstant(""); err != nil {
		return err
	}
	c.emit(op.StoreGlobal, uint16(c.globals.Slot("", "$@")))
	return c.patchForward(handlerPos)
}

// compileFunction compiles a subroutine body into a child unit against a
// Snapshot of the current environment and emits the closure construction
// at the definition site: one cell per captured lexical, then
// LoadClosure.
func (c *Compiler) compileFunction(name string, params []*ast.Var, body *ast.Block) error {
	captured := c.current.scopes.Captured()
	sub := c.current.newSub(name)
	for _, sym := range captured {
		sub.freeNames = append(sub.freeNames, sym.Name())
	}

	prev := c.current
	prevLabels := c.labels
	prevMark := c.markDepth
	prevHandlers := c.handlerDepth
	c.current = sub
	c.labels = labelStack{}
	c.markDepth = 0
	c.handlerDepth = 0

	compileBody := func() error {
		subName := name
		if subName == "" {
			subName = "__anon__"
		}
		sub.scopes.SetSub(subName)
		scope := sub.scopes.Enter()
		seen := map[string]bool{}
		for _, param := range params {
			if seen[param.Name] {
				return c.compileError(errors.E2006, param.Pos(), "duplicate parameter %q in %s", param.Name, subName)
			}
			seen[param.Name] = true
			if _, err := c.declare(param, ast.DeclParam); err != nil {
				return err
			}
		}
		if err := c.compileStmts(body.Stmts, true); err != nil {
			return err
		}
		c.emit(op.ReturnValue)
		sub.scopes.Exit(scope)
		return nil
	}
	err := compileBody()
	c.current = prev
	c.labels = prevLabels
	c.markDepth = prevMark
	c.handlerDepth = prevHandlers
	if err != nil {
		return err
	}

	idx, err := c.constant(&funcTemplate{
		id:        sub.id,
		name:      name,
		params:    paramNames(params),
		freeNames: sub.freeNames,
		code:      sub,
	})
	if err != nil {
		return err
	}
	for _, sym := range captured {
		if sym.IsFree() {
			c.emit(op.LoadFreeCell, uint16(sym.FreeIndex()))
		} else {
			c.emit(op.MakeCell, uint16(sym.Index()))
		}
	}
	c.emit(op.LoadClosure, idx, uint16(len(captured)))
	return nil
}

func paramNames(params []*ast.Var) []string {
	names := make([]string, 0, len(params))
	for _, param := range params {
		names = append(names, param.Name)
	}
	return names
}
