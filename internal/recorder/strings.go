package recorder

import (
	"unsafe"

	"github.com/430YNG/slicetrace/internal/tracefile"
)

// cstrlen walks a NUL-terminated string and returns its length, terminator
// excluded. The pointer comes straight from the instrumented program; the
// recorder trusts it the same way the routine being modeled would.
func cstrlen(p unsafe.Pointer) uintptr {
	var n uintptr
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return n
}

// StringLoad records a read of the whole NUL-terminated string at p. The
// extent is the scanned length plus the terminator byte.
func (r *Runtime) StringLoad(id uint32, p unsafe.Pointer) {
	if r.filtered() {
		return
	}
	n := cstrlen(p) + 1
	r.append(tracefile.Record{
		Kind:    tracefile.KindLoad,
		ID:      id,
		Address: uint64(uintptr(p)),
		Length:  uint64(n),
	})
}

// StringStore records a write of the whole NUL-terminated string at p.
func (r *Runtime) StringStore(id uint32, p unsafe.Pointer) {
	if r.filtered() {
		return
	}
	n := cstrlen(p) + 1
	r.append(tracefile.Record{
		Kind:    tracefile.KindStore,
		ID:      id,
		Address: uint64(uintptr(p)),
		Length:  uint64(n),
	})
}

// ConcatStore records the write an append-style concatenation performs: it
// starts at dst's current terminator and covers src plus a new terminator.
// Must be called before the concatenation executes - the append mutates dst
// in place and the pre-image terminator position is unrecoverable afterwards.
func (r *Runtime) ConcatStore(id uint32, dst, src unsafe.Pointer) {
	if r.filtered() {
		return
	}
	start := uintptr(dst) + cstrlen(dst)
	n := cstrlen(src) + 1
	r.append(tracefile.Record{
		Kind:    tracefile.KindStore,
		ID:      id,
		Address: uint64(start),
		Length:  uint64(n),
	})
}
