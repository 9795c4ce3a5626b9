package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		t.Run(s.Name, func(t *testing.T) {
			RunWithGolden(t, s)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "call_correlation.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "call_correlation", s.Name)
	assert.NotEmpty(t, s.Description)
	require.Len(t, s.Steps, 6)
	assert.Equal(t, "block-enter", s.Steps[0].Op)
	assert.Equal(t, uint64(0x100), s.Steps[0].Fn)
	assert.True(t, s.Steps[3].Terminal)
	require.Len(t, s.Expect, 4)
	assert.Equal(t, "top", s.Expect[2].Caller)
}

func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no name",
			yaml:    "steps:\n  - op: store\n",
			wantErr: "no name",
		},
		{
			name:    "no steps",
			yaml:    "name: empty\n",
			wantErr: "no steps",
		},
		{
			name:    "unknown op",
			yaml:    "name: bad\nsteps:\n  - op: teleport\n",
			wantErr: "unknown op",
		},
		{
			name:    "crash not last",
			yaml:    "name: bad\nsteps:\n  - op: crash\n  - op: store\n    id: 1\n",
			wantErr: "crash must be the last step",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssert_OrderMatters(t *testing.T) {
	s := &Scenario{
		Name: "order",
		Expect: []ExpectRecord{
			{Kind: "load", ID: 1},
			{Kind: "store", ID: 2},
		},
	}
	recs := []tracefile.Record{
		{Kind: tracefile.KindLoad, ID: 1},
		{Kind: tracefile.KindStore, ID: 2},
	}
	Assert(t, s, recs)
}

func TestMatches(t *testing.T) {
	rec := tracefile.Record{
		Kind:    tracefile.KindBlockExit,
		ID:      2,
		Address: 0x200,
		CallID:  5,
	}

	assert.True(t, matches(ExpectRecord{Kind: "block-exit"}, rec))
	assert.True(t, matches(ExpectRecord{Kind: "block-exit", ID: 2, Caller: "5"}, rec))
	assert.False(t, matches(ExpectRecord{Kind: "block-exit", Caller: "top"}, rec))
	assert.False(t, matches(ExpectRecord{Kind: "store"}, rec))
	assert.False(t, matches(ExpectRecord{Kind: "block-exit", ID: 3}, rec))
	assert.False(t, matches(ExpectRecord{Kind: "block-exit", Addr: 0x999}, rec))
}

func TestParseCaller(t *testing.T) {
	n, err := parseCaller("top")
	require.NoError(t, err)
	assert.Equal(t, tracefile.NoCaller, n)

	n, err = parseCaller("unresolved")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)

	n, err = parseCaller("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), n)

	_, err = parseCaller("nope")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad caller"))
}
