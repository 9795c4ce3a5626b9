package ir

// Program describes one compilation unit: every function the instrumentation
// step will visit, in the order it will visit them.
type Program struct {
	Name      string     `json:"name" yaml:"name"`
	Functions []Function `json:"functions" yaml:"functions"`
}

// Function is a named sequence of basic blocks.
type Function struct {
	Name   string  `json:"name" yaml:"name"`
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Block is a basic block: label plus the instructions that can be
// individually instrumented. Straight-line instructions that carry no
// analysis-relevant effect (arithmetic, casts) are not listed.
type Block struct {
	Label  string  `json:"label" yaml:"label"`
	Instrs []Instr `json:"instrs,omitempty" yaml:"instrs,omitempty"`

	// Terminal marks a block whose terminator returns from the function.
	Terminal bool `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// InstrKind classifies the instructions that receive their own identifiers.
type InstrKind string

const (
	InstrLoad   InstrKind = "load"
	InstrStore  InstrKind = "store"
	InstrSelect InstrKind = "select"
	InstrCall   InstrKind = "call"
)

// ValidInstrKinds defines the allowed instruction kinds.
var ValidInstrKinds = map[InstrKind]bool{
	InstrLoad:   true,
	InstrStore:  true,
	InstrSelect: true,
	InstrCall:   true,
}

// Instr is one individually-instrumented instruction inside a block.
// Callee names only the target of a call instruction; for calls into
// body-less routines it is the key used by the effect catalog.
type Instr struct {
	Kind   InstrKind `json:"kind" yaml:"kind"`
	Callee string    `json:"callee,omitempty" yaml:"callee,omitempty"`
}

// BlockRef names a block within a unit. It is the key space of the block
// identifier index.
type BlockRef struct {
	Function string `json:"function" yaml:"function"`
	Label    string `json:"label" yaml:"label"`
}

// InstrRef names an instruction within a unit by position. It is the key
// space of the instruction identifier index.
type InstrRef struct {
	Function string `json:"function" yaml:"function"`
	Label    string `json:"label" yaml:"label"`
	Index    int    `json:"index" yaml:"index"`
}
