package effects

import "strings"

// Policy tags how a body-less routine touches memory.
type Policy int

const (
	// PolicyNone: recognized, no loads or stores worth recording
	// (tolower-style value transforms).
	PolicyNone Policy = iota

	// PolicyFill: one store at the destination for the requested byte
	// count (memset-style).
	PolicyFill

	// PolicyCopy: one load at the source then one store at the
	// destination, both for the requested byte count (memcpy/memmove).
	PolicyCopy

	// PolicyScanCopy: string load at the source before the call, string
	// store at the destination after it (strcpy).
	PolicyScanCopy

	// PolicyScanAppend: string loads of destination and source plus an
	// append store, all before the call - the pre-image destination
	// terminator is unrecoverable afterwards (strcat).
	PolicyScanAppend

	// PolicyScanOnly: string load of the argument, nothing written
	// (strlen).
	PolicyScanOnly

	// PolicyAlloc: one store at the returned pointer covering count*size,
	// emitted after the call because the address does not exist before it
	// (calloc).
	PolicyAlloc

	// PolicyFormat: string load of every pointer-typed variadic argument,
	// then a string store at the destination after the call (sprintf).
	PolicyFormat

	// PolicyReadLine: string store at the destination after the call; the
	// source is the external environment and not observable (fgets).
	PolicyReadLine

	// PolicySpawn: thread creation. The routine gets an external-call/
	// return pair, and the spawned entry function gets a synthetic
	// call/return pair under the same id so the two invocation paths can
	// be matched offline (pthread_create).
	PolicySpawn
)

// catalog maps canonical routine names to their effect policy. Keyed on the
// routine's canonical signature name; compiler-intrinsic spellings are
// normalized by Lookup first.
var catalog = map[string]Policy{
	"memset":  PolicyFill,
	"memcpy":  PolicyCopy,
	"memmove": PolicyCopy,
	"strcpy":  PolicyScanCopy,
	"strcat":  PolicyScanAppend,
	"strlen":  PolicyScanOnly,
	"calloc":  PolicyAlloc,
	"sprintf": PolicyFormat,
	"fgets":   PolicyReadLine,

	"pthread_create": PolicySpawn,

	"tolower": PolicyNone,
	"toupper": PolicyNone,
	"fscanf":  PolicyNone,
	"sscanf":  PolicyNone,
}

// Lookup resolves a callee name to its effect policy. Names like
// "llvm.memcpy.p0i8.p0i8.i64" normalize to their base routine. ok is false
// for routines outside the catalog; their internal effects are an accepted
// gap.
func Lookup(name string) (Policy, bool) {
	p, ok := catalog[canonical(name)]
	return p, ok
}

// canonical strips compiler-intrinsic decoration: "llvm.memset.p0i8.i64"
// becomes "memset".
func canonical(name string) string {
	if rest, ok := strings.CutPrefix(name, "llvm."); ok {
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			return rest[:i]
		}
		return rest
	}
	return name
}
