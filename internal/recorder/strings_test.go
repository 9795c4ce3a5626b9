package recorder

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// cstr builds a NUL-terminated buffer and returns a pointer to its start.
func cstr(s string) unsafe.Pointer {
	buf := append([]byte(s), 0)
	return unsafe.Pointer(&buf[0])
}

func TestCstrlen(t *testing.T) {
	assert.Equal(t, uintptr(0), cstrlen(cstr("")))
	assert.Equal(t, uintptr(5), cstrlen(cstr("hello")))
}

func TestRuntime_StringLoadStore(t *testing.T) {
	r, path := openTest(t)

	src := cstr("hello")
	dst := cstr("world!!")
	r.StringLoad(1, src)
	r.StringStore(2, dst)
	require.NoError(t, r.Close())

	recs := readBack(t, path)
	require.Len(t, recs, 3)

	// Scanned length plus the terminator byte.
	assert.Equal(t, tracefile.KindLoad, recs[0].Kind)
	assert.Equal(t, uint64(uintptr(src)), recs[0].Address)
	assert.Equal(t, uint64(6), recs[0].Length)

	assert.Equal(t, tracefile.KindStore, recs[1].Kind)
	assert.Equal(t, uint64(8), recs[1].Length)
}

func TestRuntime_ConcatStore(t *testing.T) {
	r, path := openTest(t)

	// Destination has room after its current contents, as a real append
	// target would.
	dstBuf := make([]byte, 32)
	copy(dstBuf, "abc")
	dst := unsafe.Pointer(&dstBuf[0])
	src := cstr("defg")

	r.ConcatStore(3, dst, src)
	require.NoError(t, r.Close())

	recs := readBack(t, path)
	require.Len(t, recs, 2)

	// The write starts at dst's terminator and covers src plus a new
	// terminator.
	assert.Equal(t, tracefile.KindStore, recs[0].Kind)
	assert.Equal(t, uint64(uintptr(dst)+3), recs[0].Address)
	assert.Equal(t, uint64(5), recs[0].Length)
}
