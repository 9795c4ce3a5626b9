package effects

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/430YNG/slicetrace/internal/recorder"
	"github.com/430YNG/slicetrace/internal/tracefile"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		ok     bool
	}{
		{"memset", PolicyFill, true},
		{"memcpy", PolicyCopy, true},
		{"memmove", PolicyCopy, true},
		{"llvm.memcpy.p0i8.p0i8.i64", PolicyCopy, true},
		{"llvm.memset.p0i8.i64", PolicyFill, true},
		{"strcpy", PolicyScanCopy, true},
		{"strcat", PolicyScanAppend, true},
		{"strlen", PolicyScanOnly, true},
		{"calloc", PolicyAlloc, true},
		{"sprintf", PolicyFormat, true},
		{"fgets", PolicyReadLine, true},
		{"pthread_create", PolicySpawn, true},
		{"tolower", PolicyNone, true},
		{"fscanf", PolicyNone, true},
		{"sscanf", PolicyNone, true},
		{"qsort", 0, false},
		{"llvm.dbg.declare", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Lookup(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.policy, p)
			}
		})
	}
}

// record runs the policy's Before/After bracket around nothing and returns
// the persisted records (without the trailing End).
func record(t *testing.T, p Policy, id uint32, c Call) []tracefile.Record {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.trc")
	r, err := recorder.Open(path,
		recorder.WithWindowSize(tracefile.RecordSize*64),
		recorder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	p.Before(r, id, c)
	p.After(r, id, c)
	require.NoError(t, r.Close())

	recs, ended, err := tracefile.ReadAll(path)
	require.NoError(t, err)
	require.True(t, ended)
	require.NotEmpty(t, recs)
	require.Equal(t, tracefile.KindEnd, recs[len(recs)-1].Kind)
	return recs[:len(recs)-1]
}

func cstr(s string) unsafe.Pointer {
	buf := append([]byte(s), 0)
	return unsafe.Pointer(&buf[0])
}

func TestPolicyFill(t *testing.T) {
	dst := make([]byte, 16)
	recs := record(t, PolicyFill, 1, Call{Dst: unsafe.Pointer(&dst[0]), Size: 16})

	require.Len(t, recs, 1)
	assert.Equal(t, tracefile.KindStore, recs[0].Kind)
	assert.Equal(t, uint64(16), recs[0].Length)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&dst[0]))), recs[0].Address)
}

func TestPolicyCopy_LoadBeforeStore(t *testing.T) {
	src := make([]byte, 10)
	dst := make([]byte, 10)
	recs := record(t, PolicyCopy, 2, Call{
		Dst:  unsafe.Pointer(&dst[0]),
		Src:  unsafe.Pointer(&src[0]),
		Size: 10,
	})

	// Exactly one Load and one Store, both length 10, Load first.
	require.Len(t, recs, 2)
	assert.Equal(t, tracefile.KindLoad, recs[0].Kind)
	assert.Equal(t, uint64(10), recs[0].Length)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&src[0]))), recs[0].Address)
	assert.Equal(t, tracefile.KindStore, recs[1].Kind)
	assert.Equal(t, uint64(10), recs[1].Length)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&dst[0]))), recs[1].Address)
}

func TestPolicyScanCopy(t *testing.T) {
	src := cstr("hello")
	dstBuf := make([]byte, 16)
	copy(dstBuf, "hello")
	dst := unsafe.Pointer(&dstBuf[0])

	recs := record(t, PolicyScanCopy, 3, Call{Dst: dst, Src: src})

	require.Len(t, recs, 2)
	assert.Equal(t, tracefile.KindLoad, recs[0].Kind)
	assert.Equal(t, uint64(6), recs[0].Length, "scanned length + terminator")
	assert.Equal(t, tracefile.KindStore, recs[1].Kind)
	assert.Equal(t, uint64(uintptr(dst)), recs[1].Address)
}

func TestPolicyScanAppend(t *testing.T) {
	dstBuf := make([]byte, 32)
	copy(dstBuf, "abc")
	dst := unsafe.Pointer(&dstBuf[0])
	src := cstr("defg")

	recs := record(t, PolicyScanAppend, 4, Call{Dst: dst, Src: src})

	require.Len(t, recs, 3)
	assert.Equal(t, tracefile.KindLoad, recs[0].Kind, "existing destination content")
	assert.Equal(t, uint64(4), recs[0].Length)
	assert.Equal(t, tracefile.KindLoad, recs[1].Kind, "source string")
	assert.Equal(t, uint64(5), recs[1].Length)

	// The store lands at dst+len(dst), computed before the concatenation.
	assert.Equal(t, tracefile.KindStore, recs[2].Kind)
	assert.Equal(t, uint64(uintptr(dst)+3), recs[2].Address)
	assert.Equal(t, uint64(5), recs[2].Length)
}

func TestPolicyScanOnly(t *testing.T) {
	src := cstr("abcdef")
	recs := record(t, PolicyScanOnly, 5, Call{Src: src})

	require.Len(t, recs, 1)
	assert.Equal(t, tracefile.KindLoad, recs[0].Kind)
	assert.Equal(t, uint64(7), recs[0].Length)
}

func TestPolicyAlloc(t *testing.T) {
	ret := make([]byte, 24)
	recs := record(t, PolicyAlloc, 6, Call{
		Count:    4,
		ElemSize: 6,
		Ret:      unsafe.Pointer(&ret[0]),
	})

	require.Len(t, recs, 1)
	assert.Equal(t, tracefile.KindStore, recs[0].Kind)
	assert.Equal(t, uint64(24), recs[0].Length)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&ret[0]))), recs[0].Address)
}

func TestPolicyFormat(t *testing.T) {
	dstBuf := make([]byte, 64)
	dstBuf[0] = 'x'
	dst := unsafe.Pointer(&dstBuf[0])
	a, b := cstr("one"), cstr("three")

	// nil marks a non-pointer variadic argument.
	recs := record(t, PolicyFormat, 7, Call{Dst: dst, Strings: []unsafe.Pointer{a, nil, b}})

	require.Len(t, recs, 3)
	assert.Equal(t, tracefile.KindLoad, recs[0].Kind)
	assert.Equal(t, uint64(4), recs[0].Length)
	assert.Equal(t, tracefile.KindLoad, recs[1].Kind)
	assert.Equal(t, uint64(6), recs[1].Length)
	assert.Equal(t, tracefile.KindStore, recs[2].Kind)
	assert.Equal(t, uint64(uintptr(dst)), recs[2].Address)
}

func TestPolicyReadLine(t *testing.T) {
	dstBuf := make([]byte, 16)
	copy(dstBuf, "line")
	dst := unsafe.Pointer(&dstBuf[0])

	recs := record(t, PolicyReadLine, 8, Call{Dst: dst})

	// Store only: the source is the external environment.
	require.Len(t, recs, 1)
	assert.Equal(t, tracefile.KindStore, recs[0].Kind)
	assert.Equal(t, uint64(5), recs[0].Length)
}

func TestPolicySpawn(t *testing.T) {
	recs := record(t, PolicySpawn, 9, Call{Routine: 0x7000, Entry: 0x8000})

	require.Len(t, recs, 4)
	assert.Equal(t, tracefile.KindExternalCall, recs[0].Kind)
	assert.Equal(t, uint64(0x7000), recs[0].Address)
	assert.Equal(t, tracefile.KindReturn, recs[1].Kind)
	assert.Equal(t, uint64(0x7000), recs[1].Address)

	// The spawned entry's synthetic pair shares the call's id.
	assert.Equal(t, tracefile.KindCall, recs[2].Kind)
	assert.Equal(t, uint64(0x8000), recs[2].Address)
	assert.Equal(t, tracefile.KindReturn, recs[3].Kind)
	for _, rec := range recs {
		assert.Equal(t, uint32(9), rec.ID)
	}
}

func TestPolicyNone(t *testing.T) {
	recs := record(t, PolicyNone, 10, Call{})
	assert.Empty(t, recs)
}
