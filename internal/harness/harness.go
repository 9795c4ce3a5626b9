package harness

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/430YNG/slicetrace/internal/recorder"
	"github.com/430YNG/slicetrace/internal/tracefile"
)

// Run drives a fresh recorder through the scenario's steps and returns the
// trace that resulted. The recorder is closed at the end of the steps; a
// crash step closes it early through the same path the signal handler uses.
func Run(t *testing.T, s *Scenario) []tracefile.Record {
	t.Helper()

	path := filepath.Join(t.TempDir(), s.Name+".trc")
	r, err := recorder.Open(path,
		recorder.WithWindowSize(tracefile.RecordSize*256),
		recorder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	closed := false
	for _, step := range s.Steps {
		switch step.Op {
		case "block-enter":
			r.BlockEnter(step.ID, uintptr(step.Fn))
		case "block-exit":
			r.BlockExit(step.ID, uintptr(step.Fn), step.Terminal)
		case "load":
			r.Load(step.ID, uintptr(step.Addr), uintptr(step.Len))
		case "store":
			r.Store(step.ID, uintptr(step.Addr), uintptr(step.Len))
		case "select":
			r.Select(step.ID, step.Flag)
		case "call":
			r.Call(step.ID, uintptr(step.Addr))
		case "ext-call":
			r.ExternalCall(step.ID, uintptr(step.Addr))
		case "return":
			r.Return(step.ID, uintptr(step.Addr))
		case "inv-failure":
			r.InvariantFailure(step.ID)
		case "crash":
			require.NoError(t, r.Close())
			closed = true
		}
	}
	if !closed {
		require.NoError(t, r.Close())
	}

	recs, ended, err := tracefile.ReadAll(path)
	require.NoError(t, err)
	require.True(t, ended, "scenario trace must end with its end record")
	return recs
}

// Assert checks the scenario's inline expectations against the trace: each
// expected record must match some trace record, and matches must appear in
// the expected order.
func Assert(t *testing.T, s *Scenario, recs []tracefile.Record) {
	t.Helper()

	next := 0
	for i, want := range s.Expect {
		found := false
		for ; next < len(recs); next++ {
			if matches(want, recs[next]) {
				found = true
				next++
				break
			}
		}
		require.True(t, found, "scenario %s: expected record %d (%s id=%d) not found in order",
			s.Name, i, want.Kind, want.ID)
	}
}

func matches(want ExpectRecord, rec tracefile.Record) bool {
	if rec.Kind.String() != want.Kind {
		return false
	}
	if want.ID != 0 && rec.ID != want.ID {
		return false
	}
	if want.Addr != 0 && rec.Address != want.Addr {
		return false
	}
	if want.Len != 0 && rec.Length != want.Len {
		return false
	}
	if want.Caller != "" {
		caller, err := parseCaller(want.Caller)
		if err != nil || rec.CallID != caller {
			return false
		}
	}
	return true
}

// parseCaller resolves the caller shorthand used in scenario files.
func parseCaller(s string) (uint32, error) {
	switch s {
	case "top":
		return tracefile.NoCaller, nil
	case "unresolved":
		return 0, nil
	default:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("bad caller %q: %w", s, err)
		}
		return uint32(n), nil
	}
}
