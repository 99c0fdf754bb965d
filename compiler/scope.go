package compiler

import (
	"sort"

	"github.com/marmot-lang/marmot/ast"
	"github.com/rs/zerolog"
)

// ScopeID identifies a scope by its depth on the stack. Enter returns
// the new depth; Exit pops back down to a previously returned depth.
type ScopeID int

// Symbol is one variable slot entry: where a name lives for the rest of
// the compilation unit. Slot indices increase monotonically per unit
// and, once allocated, are never reassigned to a differently-typed
// binding (see the watermark rules on ScopeStack.Exit).
type Symbol struct {
	name string
	kind ast.DeclKind
	pkg  string
	node ast.Node

	// index is the frame slot for lexical bindings, or -1 for entries
	// that do not occupy a local slot (our-declared package aliases and
	// captured free variables).
	index int

	// free marks a captured binding in a snapshot-seeded stack; the
	// nested unit addresses it by cell index rather than frame slot.
	free      bool
	freeIndex int

	// globalSlot is the program-wide global index for our-declared
	// bindings, or -1.
	globalSlot int
}

// Name returns the variable name, sigil included.
func (s *Symbol) Name() string { return s.name }

// Kind returns how the variable was declared.
func (s *Symbol) Kind() ast.DeclKind { return s.kind }

// Index returns the local slot index, or -1 when the symbol does not
// occupy one.
func (s *Symbol) Index() int { return s.index }

// Package returns the package the symbol was declared in.
func (s *Symbol) Package() string { return s.pkg }

// Node returns the originating AST node, when known.
func (s *Symbol) Node() ast.Node { return s.node }

// IsFree reports whether the symbol is a captured free variable.
func (s *Symbol) IsFree() bool { return s.free }

// FreeIndex returns the capture cell index for free symbols.
func (s *Symbol) FreeIndex() int { return s.freeIndex }

// GlobalSlot returns the global slot for our-declared symbols, or -1.
func (s *Symbol) GlobalSlot() int { return s.globalSlot }

// Scope is one nested lexical region. It is a value record: entering a
// scope copies the parent's flags and context rather than aliasing
// them, so child mutations never leak upward.
type Scope struct {
	ordinal   ScopeID
	names     map[string]*Symbol
	flags     Flags
	pkg       string
	class     bool
	sub       string
	inSubBody bool

	// watermark is the next free slot index as seen by this scope. On
	// exit it folds into the surviving scope, never lowered: redo, next
	// and goto may re-enter code whose slots were allocated in an
	// exiting scope, and reusing an index for a differently-typed
	// binding would let resumed control flow observe a type-inconsistent
	// slot.
	watermark int
}

// ScopeStack is the symbol table for one compilation unit. It is not
// safe for concurrent mutation; Snapshot hands a nested compilation its
// own independent copy.
type ScopeStack struct {
	scopes  []Scope
	globals *Globals
	logger  zerolog.Logger

	// cached Closure Snapshot, invalidated by any mutation
	visibleCache []*Symbol
}

// NewScopeStack creates a stack with one base scope in package main.
// The globals table is shared across all units of a program.
func NewScopeStack(globals *Globals, logger zerolog.Logger) *ScopeStack {
	if globals == nil {
		globals = NewGlobals()
	}
	return &ScopeStack{
		globals: globals,
		logger:  logger,
		scopes: []Scope{{
			ordinal: 1,
			names:   map[string]*Symbol{},
			pkg:     "main",
		}},
	}
}

func (s *ScopeStack) top() *Scope {
	return &s.scopes[len(s.scopes)-1]
}

// Globals returns the shared program-wide global symbol space.
func (s *ScopeStack) Globals() *Globals { return s.globals }

// Depth returns the current stack depth.
func (s *ScopeStack) Depth() int { return len(s.scopes) }

// Watermark returns the unit's slot watermark: the number of local
// slots a frame executing this unit must provide.
func (s *ScopeStack) Watermark() int { return s.top().watermark }

// Flags returns the current scope's pragma state for mutation.
func (s *ScopeStack) Flags() *Flags { return &s.top().flags }

// Package returns the current package name.
func (s *ScopeStack) Package() string { return s.top().pkg }

// SetPackage switches the current package for the rest of the scope.
func (s *ScopeStack) SetPackage(name string, class bool) {
	top := s.top()
	top.pkg = name
	top.class = class
}

// IsClass reports whether the current package is an object class.
func (s *ScopeStack) IsClass() bool { return s.top().class }

// Sub returns the enclosing subroutine name, or empty string.
func (s *ScopeStack) Sub() string { return s.top().sub }

// SetSub records the enclosing subroutine name and marks the scope as
// inside a subroutine body.
func (s *ScopeStack) SetSub(name string) {
	top := s.top()
	top.sub = name
	top.inSubBody = true
}

// InSubBody reports whether compilation is inside a subroutine body.
func (s *ScopeStack) InSubBody() bool { return s.top().inSubBody }

// Enter pushes a scope copying the current top's flags, package,
// subroutine and in-body state, and returns the new stack depth.
func (s *ScopeStack) Enter() ScopeID {
	parent := s.top()
	s.scopes = append(s.scopes, Scope{
		ordinal:   ScopeID(len(s.scopes) + 1),
		names:     map[string]*Symbol{},
		flags:     parent.flags,
		pkg:       parent.pkg,
		class:     parent.class,
		sub:       parent.sub,
		inSubBody: parent.inSubBody,
		watermark: parent.watermark,
	})
	s.visibleCache = nil
	id := ScopeID(len(s.scopes))
	s.logger.Trace().Int("depth", int(id)).Msg("enter scope")
	return id
}

// Exit pops every scope deeper than id-1, folding the maximum watermark
// seen among the popped scopes into the surviving top. The watermark is
// never lowered.
func (s *ScopeStack) Exit(id ScopeID) {
	if int(id) < 2 || int(id) > len(s.scopes) {
		return
	}
	maxWatermark := 0
	for i := int(id) - 1; i < len(s.scopes); i++ {
		if s.scopes[i].watermark > maxWatermark {
			maxWatermark = s.scopes[i].watermark
		}
	}
	s.scopes = s.scopes[:int(id)-1]
	top := s.top()
	if maxWatermark > top.watermark {
		top.watermark = maxWatermark
	}
	s.visibleCache = nil
	s.logger.Trace().Int("depth", len(s.scopes)).Int("watermark", top.watermark).Msg("exit scope")
}

// Add registers a binding in the current scope only and returns its
// slot. Redeclaration in the same scope is permitted and shadows. For
// our-declared names the returned slot is the program global slot and
// no local slot is consumed.
func (s *ScopeStack) Add(name string, kind ast.DeclKind, node ast.Node) int {
	top := s.top()
	sym := &Symbol{
		name:       name,
		kind:       kind,
		pkg:        top.pkg,
		node:       node,
		index:      -1,
		globalSlot: -1,
	}
	if kind == ast.DeclOur {
		sym.globalSlot = s.globals.Slot(top.pkg, name)
	} else {
		sym.index = top.watermark
		top.watermark++
	}
	top.names[name] = sym
	s.visibleCache = nil
	s.logger.Trace().
		Str("name", name).
		Str("kind", kind.String()).
		Int("slot", sym.index).
		Int("global", sym.globalSlot).
		Msg("add variable")
	if kind == ast.DeclOur {
		return sym.globalSlot
	}
	return sym.index
}

// Replace overwrites the current scope's entry at its existing slot if
// present, finalizing a forward declaration; otherwise it behaves as
// Add.
func (s *ScopeStack) Replace(name string, kind ast.DeclKind, node ast.Node) int {
	top := s.top()
	if existing, ok := top.names[name]; ok && existing.index >= 0 {
		existing.kind = kind
		existing.node = node
		existing.pkg = top.pkg
		s.visibleCache = nil
		return existing.index
	}
	return s.Add(name, kind, node)
}

// Lookup searches innermost to outermost and returns the first match,
// or nil when the name is not bound.
func (s *ScopeStack) Lookup(name string) *Symbol {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i].names[name]; ok {
			return sym
		}
	}
	return nil
}

// Index returns the innermost slot index bound to name, or -1.
func (s *ScopeStack) Index(name string) int {
	sym := s.Lookup(name)
	if sym == nil {
		return -1
	}
	return sym.index
}

// Visible builds the Closure Snapshot: one entry per distinct visible
// name, innermost declaration winning, sorted by slot index with free
// and global entries last. The result is cached until the next
// mutation.
func (s *ScopeStack) Visible() []*Symbol {
	if s.visibleCache != nil {
		return s.visibleCache
	}
	seen := map[string]bool{}
	var visible []*Symbol
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for name, sym := range s.scopes[i].names {
			if seen[name] {
				continue
			}
			seen[name] = true
			visible = append(visible, sym)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if (a.index >= 0) != (b.index >= 0) {
			return a.index >= 0
		}
		if a.index != b.index {
			return a.index < b.index
		}
		if a.free != b.free {
			return !a.free
		}
		if a.freeIndex != b.freeIndex {
			return a.freeIndex < b.freeIndex
		}
		return a.name < b.name
	})
	s.visibleCache = visible
	return visible
}

// AllNames returns every visible name, for suggestion hints.
func (s *ScopeStack) AllNames() []string {
	visible := s.Visible()
	names := make([]string, 0, len(visible))
	for _, sym := range visible {
		names = append(names, sym.name)
	}
	return names
}

// Snapshot produces an independent stack for compiling a nested unit:
// one fresh base scope seeded with exactly the Closure Snapshot, plus a
// copy of the current package, subroutine and flag state. Lexical
// entries become captured free variables, cell indices assigned in
// snapshot order; our entries keep resolving to their global slots and
// need no capture. The nested unit sees, but never mutates, the
// enclosing environment.
func (s *ScopeStack) Snapshot() *ScopeStack {
	top := s.top()
	base := Scope{
		ordinal:   1,
		names:     map[string]*Symbol{},
		flags:     top.flags,
		pkg:       top.pkg,
		class:     top.class,
		sub:       top.sub,
		inSubBody: top.inSubBody,
	}
	freeIndex := 0
	for _, sym := range s.Visible() {
		copied := *sym
		if sym.kind == ast.DeclOur {
			base.names[sym.name] = &copied
			continue
		}
		copied.index = -1
		copied.free = true
		copied.freeIndex = freeIndex
		freeIndex++
		base.names[sym.name] = &copied
	}
	snap := &ScopeStack{
		globals: s.globals,
		logger:  s.logger,
		scopes:  []Scope{base},
	}
	s.logger.Trace().Int("captured", freeIndex).Msg("scope snapshot")
	return snap
}

// Captured returns the snapshot entries a nested unit compiled from
// Snapshot would capture as cells, in cell index order. Called on the
// enclosing stack at the closure definition site so the emitted cell
// order matches the nested unit's free indices.
func (s *ScopeStack) Captured() []*Symbol {
	var captured []*Symbol
	for _, sym := range s.Visible() {
		if sym.kind == ast.DeclOur {
			continue
		}
		captured = append(captured, sym)
	}
	return captured
}

// Globals is the program-wide package variable symbol space, shared by
// every compilation unit of a program. Slots are allocated on first
// reference and never reused.
type Globals struct {
	slots map[string]int
	names []string
}

// Predeclared global variables present in every program.
var predeclaredGlobals = []string{"$@", "$_"}

// NewGlobals creates a global symbol space with $@ and $_ predeclared.
func NewGlobals() *Globals {
	g := &Globals{slots: map[string]int{}}
	for _, name := range predeclaredGlobals {
		g.slots[name] = len(g.names)
		g.names = append(g.names, name)
	}
	return g
}

// QualifyName returns the package-qualified form of a sigiled name:
// ("main", "$x") becomes "$main::x". Names already containing "::" and
// the predeclared punctuation variables are returned unchanged.
func QualifyName(pkg, name string) string {
	if len(name) == 0 {
		return name
	}
	for _, pre := range predeclaredGlobals {
		if name == pre {
			return name
		}
	}
	if containsQualifier(name) {
		return name
	}
	sigil := name[0]
	if sigil == '$' || sigil == '@' || sigil == '%' || sigil == '&' {
		return string(sigil) + pkg + "::" + name[1:]
	}
	return pkg + "::" + name
}

func containsQualifier(name string) bool {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == ':' && name[i+1] == ':' {
			return true
		}
	}
	return false
}

// Slot returns the global slot for a name in a package, allocating one
// on first reference.
func (g *Globals) Slot(pkg, name string) int {
	qualified := QualifyName(pkg, name)
	if slot, ok := g.slots[qualified]; ok {
		return slot
	}
	slot := len(g.names)
	g.slots[qualified] = slot
	g.names = append(g.names, qualified)
	return slot
}

// LookupSlot returns the slot for an already-allocated name, or -1.
func (g *Globals) LookupSlot(pkg, name string) int {
	if slot, ok := g.slots[QualifyName(pkg, name)]; ok {
		return slot
	}
	return -1
}

// Names returns all global names in slot order.
func (g *Globals) Names() []string {
	names := make([]string, len(g.names))
	copy(names, g.names)
	return names
}

// Count returns the number of allocated global slots.
func (g *Globals) Count() int { return len(g.names) }
