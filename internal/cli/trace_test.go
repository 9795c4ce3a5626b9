//go:build unix

package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// writeTrace persists the records to a fresh trace file.
func writeTrace(t *testing.T, recs []tracefile.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.trc")
	w, err := tracefile.Create(path, tracefile.WithWindowSize(tracefile.RecordSize*64))
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())
	return path
}

func completeTrace() []tracefile.Record {
	return []tracefile.Record{
		{Kind: tracefile.KindStore, ID: 4, Address: 0x1000, Length: 8},
		{Kind: tracefile.KindCall, ID: 7, Address: 0x2000},
		{Kind: tracefile.KindBlockExit, ID: 2, CallID: 7},
		{Kind: tracefile.KindReturn, ID: 7, Address: 0x2000},
		{Kind: tracefile.KindBlockExit, ID: 1, CallID: tracefile.NoCaller},
		{Kind: tracefile.KindEnd},
	}
}

func TestDumpCommand_JSON(t *testing.T) {
	path := writeTrace(t, completeTrace())

	out, err := execute(t, "--format", "json", "dump", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result DumpResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.True(t, result.Complete)
	require.Len(t, result.Records, 6)
	assert.Equal(t, "store", result.Records[0].Kind)
	assert.Equal(t, uint64(0x1000), result.Records[0].Address)
	assert.Equal(t, "end", result.Records[5].Kind)
}

func TestDumpCommand_KindFilter(t *testing.T) {
	path := writeTrace(t, completeTrace())

	out, err := execute(t, "--format", "json", "dump", path, "--kind", "block-exit")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := json.Marshal(resp.Data)
	var result DumpResult
	require.NoError(t, json.Unmarshal(data, &result))

	require.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Records[0].Seq, "original positions survive filtering")
	assert.Equal(t, 4, result.Records[1].Seq)
}

func TestDumpCommand_MissingTrace(t *testing.T) {
	_, err := execute(t, "dump", filepath.Join(t.TempDir(), "absent.trc"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDumpText_Golden(t *testing.T) {
	result := DumpResult{
		Trace:    "run.trc",
		Complete: true,
		Records: []DumpRecord{
			{Seq: 0, Kind: "store", ID: 4, Address: 0x1000, Length: 8},
			{Seq: 1, Kind: "call", ID: 7, Address: 0x2000},
			{Seq: 2, Kind: "block-exit", ID: 2, CorrelationID: 7, Where: "main:entry"},
			{Seq: 3, Kind: "block-exit", ID: 1, CorrelationID: tracefile.NoCaller},
			{Seq: 4, Kind: "end"},
		},
	}

	buf := &bytes.Buffer{}
	outputDumpText(buf, result)

	g := goldie.New(t)
	g.Assert(t, "dump_basic", buf.Bytes())
}

func TestDumpCommand_ResolvesIDs(t *testing.T) {
	prog := writeProgram(t, sampleProgramYAML)
	idPath := filepath.Join(t.TempDir(), "ids.json")
	_, err := execute(t, "index", prog, "-o", idPath)
	require.NoError(t, err)

	// Block 1 is main:entry, instruction 1 is the store in main:entry.
	trace := writeTrace(t, []tracefile.Record{
		{Kind: tracefile.KindStore, ID: 1, Address: 0x1000, Length: 8},
		{Kind: tracefile.KindBlockExit, ID: 1, CallID: tracefile.NoCaller},
		{Kind: tracefile.KindEnd},
	})

	out, err := execute(t, "dump", trace, "--ids", idPath)
	require.NoError(t, err)
	assert.Contains(t, out, "store id=1 addr=0x1000 len=8 (main:entry#0)")
	assert.Contains(t, out, "block-exit id=1 caller=top (main:entry)")
}

func TestVerifyCommand_Complete(t *testing.T) {
	path := writeTrace(t, completeTrace())

	out, err := execute(t, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestVerifyCommand_Truncated(t *testing.T) {
	path := writeTrace(t, []tracefile.Record{
		{Kind: tracefile.KindStore, ID: 4, Address: 0x1000, Length: 8},
	})

	out, err := execute(t, "verify", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no end record")
}

func TestVerifyCommand_ReturnWithoutCall(t *testing.T) {
	path := writeTrace(t, []tracefile.Record{
		{Kind: tracefile.KindReturn, ID: 7, Address: 0x2000},
		{Kind: tracefile.KindEnd},
	})

	out, err := execute(t, "verify", path)
	require.Error(t, err)
	assert.Contains(t, out, "without an open call")
}

func TestVerifyRecords_EndNotLast(t *testing.T) {
	recs := []tracefile.Record{
		{Kind: tracefile.KindEnd},
		{Kind: tracefile.KindStore, ID: 1, Address: 0x1, Length: 1},
	}
	result := verifyRecords("run.trc", recs, true, false)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "followed by")
}

func TestVerifyRecords_StrictNoTopLevel(t *testing.T) {
	recs := []tracefile.Record{
		{Kind: tracefile.KindBlockExit, ID: 2},
		{Kind: tracefile.KindEnd},
	}

	lax := verifyRecords("run.trc", recs, true, false)
	assert.Empty(t, lax.Problems)
	assert.Equal(t, 1, lax.UnresolvedExits)

	strict := verifyRecords("run.trc", recs, true, true)
	require.Len(t, strict.Problems, 1)
	assert.Contains(t, strict.Problems[0], "top-level")
}

func TestVerifyText_Golden(t *testing.T) {
	result := VerifyResult{
		Trace:         "run.trc",
		Records:       6,
		Complete:      true,
		Calls:         1,
		Returns:       1,
		TopLevelExits: 1,
	}

	buf := &bytes.Buffer{}
	outputVerifyText(buf, result)

	g := goldie.New(t)
	g.Assert(t, "verify_ok", buf.Bytes())
}

func TestImportAndStats(t *testing.T) {
	trace := writeTrace(t, completeTrace())
	db := filepath.Join(t.TempDir(), "run.db")

	out, err := execute(t, "import", trace, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	out, err = execute(t, "--format", "json", "stats", "--db", db)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := json.Marshal(resp.Data)
	var result StatsResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, trace, result.Source)
	assert.Equal(t, int64(6), result.Records)
	assert.True(t, result.Complete)
	assert.Equal(t, int64(2), result.KindCounts["block-exit"])
}

func TestStats_EventsForID(t *testing.T) {
	trace := writeTrace(t, completeTrace())
	db := filepath.Join(t.TempDir(), "run.db")

	_, err := execute(t, "import", trace, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "stats", "--db", db, "--id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Events:")
	assert.Contains(t, out, "call")
	assert.Contains(t, out, "return")
}

func TestStats_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	_, err := execute(t, "stats", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
