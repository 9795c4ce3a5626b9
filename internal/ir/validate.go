package ir

import "fmt"

// Validate checks that a unit description is structurally usable for
// identifier assignment. It does not check semantic properties of the
// program, only the invariants the index relies on.
func (p *Program) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("program has no name")
	}
	seenFn := make(map[string]bool, len(p.Functions))
	for fi, fn := range p.Functions {
		if fn.Name == "" {
			return fmt.Errorf("function %d has no name", fi)
		}
		if seenFn[fn.Name] {
			return fmt.Errorf("duplicate function %q", fn.Name)
		}
		seenFn[fn.Name] = true

		seenBB := make(map[string]bool, len(fn.Blocks))
		for bi, bb := range fn.Blocks {
			if bb.Label == "" {
				return fmt.Errorf("function %q: block %d has no label", fn.Name, bi)
			}
			if seenBB[bb.Label] {
				return fmt.Errorf("function %q: duplicate block label %q", fn.Name, bb.Label)
			}
			seenBB[bb.Label] = true

			for ii, in := range bb.Instrs {
				if !ValidInstrKinds[in.Kind] {
					return fmt.Errorf("function %q block %q: instr %d has invalid kind %q",
						fn.Name, bb.Label, ii, in.Kind)
				}
				if in.Kind == InstrCall && in.Callee == "" {
					return fmt.Errorf("function %q block %q: call instr %d has no callee",
						fn.Name, bb.Label, ii)
				}
			}
		}
	}
	return nil
}
