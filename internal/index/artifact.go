package index

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/430YNG/slicetrace/internal/ir"
)

// Artifact is the serialized id map emitted alongside an instrumented
// program. The instrumentation step writes it once; the offline slicer loads
// it back to pretty-print record ids. BuildID ties a trace file to the
// numbering pass that produced the ids inside it.
//
// Entries are ordered by id so the artifact is byte-stable for a given unit.
// Aliased ids appear as multiple entries sharing one id; on load the reverse
// map keeps the first entry.
type Artifact struct {
	BuildID string       `json:"build_id"`
	Program string       `json:"program"`
	Blocks  []BlockEntry `json:"blocks"`
	Instrs  []InstrEntry `json:"instrs"`
}

// BlockEntry is one block-id assignment in the artifact.
type BlockEntry struct {
	ID       uint32 `json:"id"`
	Function string `json:"function"`
	Label    string `json:"label"`
}

// InstrEntry is one instruction-id assignment in the artifact.
type InstrEntry struct {
	ID       uint32 `json:"id"`
	Function string `json:"function"`
	Label    string `json:"label"`
	Index    int    `json:"index"`
}

// NewArtifact numbers the unit in one pass and packages both id spaces with
// a fresh build id.
//
// UUIDv7 embeds a timestamp, so artifacts sort by build time - helpful when
// a directory accumulates several of them.
func NewArtifact(p *ir.Program) *Artifact {
	return buildArtifact(p, uuid.Must(uuid.NewV7()).String())
}

func buildArtifact(p *ir.Program, buildID string) *Artifact {
	a := &Artifact{
		BuildID: buildID,
		Program: p.Name,
	}
	bx := AssignBlocks(p)
	for id := uint32(1); id <= uint32(bx.Len()); id++ {
		ref, _ := bx.Block(id)
		a.Blocks = append(a.Blocks, BlockEntry{ID: id, Function: ref.Function, Label: ref.Label})
	}
	ix := AssignInstrs(p)
	for id := uint32(1); id <= uint32(ix.Len()); id++ {
		ref, _ := ix.Instr(id)
		a.Instrs = append(a.Instrs, InstrEntry{ID: id, Function: ref.Function, Label: ref.Label, Index: ref.Index})
	}
	return a
}

// BlockIndex reconstructs the block id map from the artifact.
func (a *Artifact) BlockIndex() *BlockIndex {
	x := &BlockIndex{
		ids:    make(map[ir.BlockRef]uint32, len(a.Blocks)),
		blocks: make(map[uint32]ir.BlockRef, len(a.Blocks)),
	}
	for _, e := range a.Blocks {
		ref := ir.BlockRef{Function: e.Function, Label: e.Label}
		x.ids[ref] = e.ID
		if _, taken := x.blocks[e.ID]; !taken {
			x.blocks[e.ID] = ref
		}
		if e.ID > x.next {
			x.next = e.ID
		}
	}
	return x
}

// InstrIndex reconstructs the instruction id map from the artifact.
func (a *Artifact) InstrIndex() *InstrIndex {
	x := &InstrIndex{
		ids:    make(map[ir.InstrRef]uint32, len(a.Instrs)),
		instrs: make(map[uint32]ir.InstrRef, len(a.Instrs)),
	}
	for _, e := range a.Instrs {
		ref := ir.InstrRef{Function: e.Function, Label: e.Label, Index: e.Index}
		x.ids[ref] = e.ID
		if _, taken := x.instrs[e.ID]; !taken {
			x.instrs[e.ID] = ref
		}
		if e.ID > x.next {
			x.next = e.ID
		}
	}
	return x
}

// Save writes the artifact as indented JSON.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal id map: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write id map: %w", err)
	}
	return nil
}

// LoadArtifact reads an id-map artifact back from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read id map: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse id map %s: %w", path, err)
	}
	return &a, nil
}
