package compiler

// loopLabel tracks one active loop (or bare block) during emission: its
// jump targets and the patch lists for forward jumps. Labels are scoped
// to the block: nested constructs push and pop their own records, so an
// unlabeled transfer resolves to the nearest enclosing loop and a named
// one searches outward by name, innermost first.
type loopLabel struct {
	name string

	// code is the unit the label was emitted in. The escape analysis in
	// the splitter guarantees a jump site always lives in the same unit
	// as its target label.
	code *code

	// redoPos is the block entry point: after the dynamic-scope restore
	// point, before the first statement.
	redoPos int

	// markDepth is the dynamic-scope mark depth while the block body
	// executes, including the block's own mark.
	markDepth int

	// handlerDepth is the eval handler depth at the block. A transfer
	// from inside an eval body pops back down to this before jumping.
	handlerDepth int

	// nextPatch and lastPatch collect forward jumps awaiting targets:
	// next jumps to the exit label (which still restores), last jumps
	// past the construct.
	nextPatch []int
	lastPatch []int
}

// labelStack manages the active loop labels for one compilation.
type labelStack struct {
	labels []*loopLabel
}

func (s *labelStack) push(label *loopLabel) {
	s.labels = append(s.labels, label)
}

func (s *labelStack) pop() {
	s.labels = s.labels[:len(s.labels)-1]
}

// resolve finds the transfer target: the nearest enclosing loop for an
// empty name, else the innermost label with a matching name. Same-named
// nested labels resolve innermost first.
func (s *labelStack) resolve(name string) *loopLabel {
	for i := len(s.labels) - 1; i >= 0; i-- {
		label := s.labels[i]
		if name == "" || label.name == name {
			return label
		}
	}
	return nil
}

// has reports whether a label with the given name is active.
func (s *labelStack) has(name string) bool {
	return s.resolve(name) != nil
}
