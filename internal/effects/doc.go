// Package effects models the memory behavior of well-known body-less library
// routines so the trace stays as informative as if the routine had been
// instrumented directly.
//
// A static catalog maps canonical routine names to a tagged policy; the
// instrumentation step looks the policy up at compile time and, at run time,
// brackets the routine with the policy's Before and After emissions. Routines
// with no catalog entry are a silent gap, not a failure: they still receive
// ordinary call/return records from the generic path, and most of them carry
// no analysis-relevant effect anyway.
//
// The catalog is open to extension - adding a routine means adding a table
// entry and, at most, a new policy arm - without touching the recorder.
package effects
