package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/430YNG/slicetrace/internal/ir"
)

// LoadProgram reads a YAML program description and validates it.
//
// The description mirrors what an instrumentation pass sees: functions in
// emission order, each with its blocks and traced instructions. It is the
// input the index command assigns identifiers over.
func LoadProgram(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program description: %w", err)
	}

	var prog ir.Program
	if err := yaml.Unmarshal(data, &prog); err != nil {
		return nil, fmt.Errorf("parse program description %s: %w", path, err)
	}

	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program description %s: %w", path, err)
	}
	return &prog, nil
}
