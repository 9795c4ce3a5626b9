package tracefile

import (
	"fmt"
	"unsafe"
)

// Kind identifies what a trace record describes. The zero value is invalid
// so a zero-filled window tail can never be mistaken for a record.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBlockEnter
	KindBlockExit
	KindLoad
	KindStore
	KindSelect
	KindCall
	KindReturn
	KindExternalCall
	KindInvariantFailure
	KindEnd
)

var kindNames = map[Kind]string{
	KindBlockEnter:       "block-enter",
	KindBlockExit:        "block-exit",
	KindLoad:             "load",
	KindStore:            "store",
	KindSelect:           "select",
	KindCall:             "call",
	KindReturn:           "return",
	KindExternalCall:     "ext-call",
	KindInvariantFailure: "inv-failure",
	KindEnd:              "end",
}

// String returns the stable lowercase name used by the dump tooling.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// NoCaller is the CallID sentinel recorded on a top-level function return
// that has no matching call frame (the main function's own return).
const NoCaller = ^uint32(0)

// Record is the atomic unit of the log. Exactly 32 bytes; the struct layout
// is the wire layout, copied raw into the mapped window.
//
// Address is an opaque machine word: a memory location for loads and stores,
// a function entry point for calls, returns and block records, or a small
// payload (select predicate, invariant id). It is never dereferenced here.
// Length is the byte extent of a load or store and zero otherwise. CallID is
// populated only on a terminal block exit and names the call record that
// invocation structurally returns to (0 = unresolved, NoCaller = top level).
type Record struct {
	Kind    Kind
	_       [3]byte
	ID      uint32
	Address uint64
	Length  uint64
	CallID  uint32
	_       [4]byte
}

// RecordSize is the on-disk size of one record.
const RecordSize = int(unsafe.Sizeof(Record{}))

// encode copies the record into a RecordSize-byte slot. The slot must come
// from the mapped window, which is page-aligned, so the cast is safe.
func encode(slot []byte, rec Record) {
	*(*Record)(unsafe.Pointer(&slot[0])) = rec
}

// decode reads a record back out of a RecordSize-byte buffer.
func decode(buf *[RecordSize]byte) Record {
	return *(*Record)(unsafe.Pointer(buf))
}
