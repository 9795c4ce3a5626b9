package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one recorder conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are stored under
	// testdata/golden/{Name}.golden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are the runtime events, applied in order.
	Steps []Step `yaml:"steps"`

	// Expect lists records the finished trace must contain, in order but not
	// necessarily adjacent. Empty means golden-only.
	Expect []ExpectRecord `yaml:"expect,omitempty"`
}

// Step is one runtime event.
//
// Op names the recorder operation: block-enter, block-exit, load, store,
// select, call, ext-call, return, inv-failure, or crash. A crash step closes
// the recorder mid-run the way the signal path does, synthesizing exits for
// every block still open.
type Step struct {
	Op       string `yaml:"op"`
	ID       uint32 `yaml:"id,omitempty"`
	Fn       uint64 `yaml:"fn,omitempty"`
	Addr     uint64 `yaml:"addr,omitempty"`
	Len      uint64 `yaml:"len,omitempty"`
	Terminal bool   `yaml:"terminal,omitempty"`
	Flag     bool   `yaml:"flag,omitempty"`
}

// ExpectRecord is a subset match against one trace record. Zero-valued
// fields other than Kind are not checked. Caller is a number, "top", or
// "unresolved"; "unresolved" expects correlation id 0 explicitly.
type ExpectRecord struct {
	Kind   string `yaml:"kind"`
	ID     uint32 `yaml:"id,omitempty"`
	Addr   uint64 `yaml:"addr,omitempty"`
	Len    uint64 `yaml:"len,omitempty"`
	Caller string `yaml:"caller,omitempty"`
}

// validOps defines the recognized step operations.
var validOps = map[string]bool{
	"block-enter": true,
	"block-exit":  true,
	"load":        true,
	"store":       true,
	"select":      true,
	"call":        true,
	"ext-call":    true,
	"return":      true,
	"inv-failure": true,
	"crash":       true,
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the scenario's structure.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if !validOps[step.Op] {
			return fmt.Errorf("scenario %s step %d: unknown op %q", s.Name, i, step.Op)
		}
		if step.Op == "crash" && i != len(s.Steps)-1 {
			return fmt.Errorf("scenario %s step %d: crash must be the last step", s.Name, i)
		}
	}
	return nil
}
