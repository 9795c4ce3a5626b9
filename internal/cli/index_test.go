package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/430YNG/slicetrace/internal/index"
)

func TestIndexCommand(t *testing.T) {
	prog := writeProgram(t, sampleProgramYAML)
	out := filepath.Join(t.TempDir(), "ids.json")

	stdout, err := execute(t, "index", prog, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Indexed demo")

	artifact, err := index.LoadArtifact(out)
	require.NoError(t, err)
	assert.Equal(t, "demo", artifact.Program)
	assert.NotEmpty(t, artifact.BuildID)
	// Three blocks, three instrumented instructions in the sample unit.
	assert.Len(t, artifact.Blocks, 3)
	assert.Len(t, artifact.Instrs, 3)
}

func TestIndexCommand_JSON(t *testing.T) {
	prog := writeProgram(t, sampleProgramYAML)
	out := filepath.Join(t.TempDir(), "ids.json")

	stdout, err := execute(t, "--format", "json", "index", prog, "-o", out)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, _ := json.Marshal(resp.Data)
	var result IndexResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 3, result.Blocks)
	assert.Equal(t, 3, result.Instrs)
	assert.Equal(t, out, result.Output)
}

func TestIndexCommand_Deterministic(t *testing.T) {
	prog := writeProgram(t, sampleProgramYAML)
	dir := t.TempDir()

	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	_, err := execute(t, "index", prog, "-o", first)
	require.NoError(t, err)
	_, err = execute(t, "index", prog, "-o", second)
	require.NoError(t, err)

	a, err := index.LoadArtifact(first)
	require.NoError(t, err)
	b, err := index.LoadArtifact(second)
	require.NoError(t, err)

	// Build ids differ per run; the numbering does not.
	assert.NotEqual(t, a.BuildID, b.BuildID)
	assert.Equal(t, a.Blocks, b.Blocks)
	assert.Equal(t, a.Instrs, b.Instrs)
}

func TestIndexCommand_BadProgram(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ids.json")
	_, err := execute(t, "index", filepath.Join(t.TempDir(), "absent.yaml"), "-o", out)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
