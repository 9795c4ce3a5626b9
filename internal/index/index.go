package index

import (
	"github.com/430YNG/slicetrace/internal/ir"
)

// BlockIndex is the dense bidirectional mapping between basic blocks and
// their ids. Immutable after assignment except for Alias.
type BlockIndex struct {
	ids    map[ir.BlockRef]uint32
	blocks map[uint32]ir.BlockRef
	next   uint32
}

// AssignBlocks numbers every basic block of the unit in program order and
// returns the resulting index. Ids are dense starting at 1.
func AssignBlocks(p *ir.Program) *BlockIndex {
	x := &BlockIndex{
		ids:    make(map[ir.BlockRef]uint32),
		blocks: make(map[uint32]ir.BlockRef),
	}
	for _, fn := range p.Functions {
		for _, bb := range fn.Blocks {
			ref := ir.BlockRef{Function: fn.Name, Label: bb.Label}
			x.next++
			x.ids[ref] = x.next
			x.blocks[x.next] = ref
		}
	}
	return x
}

// ID returns the id assigned to the block, or 0 if the block was never
// numbered.
func (x *BlockIndex) ID(ref ir.BlockRef) uint32 {
	return x.ids[ref]
}

// Block returns the block assigned the id. When several blocks alias one id
// the first writer is returned.
func (x *BlockIndex) Block(id uint32) (ir.BlockRef, bool) {
	ref, ok := x.blocks[id]
	return ref, ok
}

// Alias maps an additional block onto an already-assigned id. Cloning passes
// that duplicate blocks after numbering use this; the reverse map keeps its
// first writer.
func (x *BlockIndex) Alias(ref ir.BlockRef, id uint32) {
	x.ids[ref] = id
	if _, taken := x.blocks[id]; !taken {
		x.blocks[id] = ref
	}
}

// Len reports how many distinct ids have been assigned.
func (x *BlockIndex) Len() int {
	return int(x.next)
}

// InstrIndex is the instruction-level companion of BlockIndex, covering the
// individually-instrumented instructions only.
type InstrIndex struct {
	ids    map[ir.InstrRef]uint32
	instrs map[uint32]ir.InstrRef
	next   uint32
}

// AssignInstrs numbers every instrumentable instruction of the unit in
// program order. The id space is separate from the block id space.
func AssignInstrs(p *ir.Program) *InstrIndex {
	x := &InstrIndex{
		ids:    make(map[ir.InstrRef]uint32),
		instrs: make(map[uint32]ir.InstrRef),
	}
	for _, fn := range p.Functions {
		for _, bb := range fn.Blocks {
			for i, in := range bb.Instrs {
				if !ir.ValidInstrKinds[in.Kind] {
					continue
				}
				ref := ir.InstrRef{Function: fn.Name, Label: bb.Label, Index: i}
				x.next++
				x.ids[ref] = x.next
				x.instrs[x.next] = ref
			}
		}
	}
	return x
}

// ID returns the id assigned to the instruction, or 0 if it was never
// numbered.
func (x *InstrIndex) ID(ref ir.InstrRef) uint32 {
	return x.ids[ref]
}

// Instr returns the instruction assigned the id; first writer wins for
// aliased ids.
func (x *InstrIndex) Instr(id uint32) (ir.InstrRef, bool) {
	ref, ok := x.instrs[id]
	return ref, ok
}

// Alias maps an additional instruction onto an already-assigned id.
func (x *InstrIndex) Alias(ref ir.InstrRef, id uint32) {
	x.ids[ref] = id
	if _, taken := x.instrs[id]; !taken {
		x.instrs[id] = ref
	}
}

// Len reports how many distinct ids have been assigned.
func (x *InstrIndex) Len() int {
	return int(x.next)
}
