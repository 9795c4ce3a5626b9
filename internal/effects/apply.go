package effects

import (
	"unsafe"

	"github.com/430YNG/slicetrace/internal/recorder"
)

// Call carries the concrete arguments of one opaque-routine invocation. The
// instrumentation step fills only the fields its policy consumes; addresses
// are the routine's own positional arguments.
type Call struct {
	// Routine is the callee's entry point.
	Routine uintptr

	// Dst and Src are the destination and source pointer arguments.
	Dst unsafe.Pointer
	Src unsafe.Pointer

	// Size is the requested byte count for fill- and copy-style routines.
	Size uintptr

	// Count and ElemSize are the allocation arguments of an alloc-style
	// routine; Ret is its returned pointer, available only after the call.
	Count    uintptr
	ElemSize uintptr
	Ret      unsafe.Pointer

	// Strings are the pointer-typed variadic arguments of a format-style
	// routine, in argument order.
	Strings []unsafe.Pointer

	// Entry is the spawned entry function of a thread-creating routine.
	Entry uintptr
}

// Before emits the policy's events that must precede the routine's
// execution. id is the call instruction's id; every synthesized record is
// attributed to it.
func (p Policy) Before(r *recorder.Runtime, id uint32, c Call) {
	switch p {
	case PolicyFill:
		r.Store(id, uintptr(c.Dst), c.Size)

	case PolicyCopy:
		// Load before Store, both the full requested extent.
		r.Load(id, uintptr(c.Src), c.Size)
		r.Store(id, uintptr(c.Dst), c.Size)

	case PolicyScanCopy:
		r.StringLoad(id, c.Src)

	case PolicyScanAppend:
		// Everything happens before the call: the append mutates dst in
		// place and the original terminator position is gone afterwards.
		r.StringLoad(id, c.Dst)
		r.StringLoad(id, c.Src)
		r.ConcatStore(id, c.Dst, c.Src)

	case PolicyScanOnly:
		r.StringLoad(id, c.Src)

	case PolicyFormat:
		for _, s := range c.Strings {
			if s != nil {
				r.StringLoad(id, s)
			}
		}

	case PolicySpawn:
		r.ExternalCall(id, c.Routine)
	}
}

// After emits the policy's events that must follow the routine's return:
// writes whose placement mirrors physical write time, and addresses that do
// not exist until the routine produces them.
func (p Policy) After(r *recorder.Runtime, id uint32, c Call) {
	switch p {
	case PolicyScanCopy:
		r.StringStore(id, c.Dst)

	case PolicyAlloc:
		// count*size is evaluated here, but the record is attributed to
		// the call itself via its id.
		r.Store(id, uintptr(c.Ret), c.Count*c.ElemSize)

	case PolicyFormat:
		r.StringStore(id, c.Dst)

	case PolicyReadLine:
		r.StringStore(id, c.Dst)

	case PolicySpawn:
		r.Return(id, c.Routine)
		// Synthetic pair for the spawned entry function, under the same
		// id, so its foreign-path invocation can be matched to this call.
		r.Call(id, c.Entry)
		r.Return(id, c.Entry)
	}
}
