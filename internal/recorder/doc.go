// Package recorder is the execution-trace recording runtime linked into an
// instrumented program.
//
// A single Runtime owns the trace writer, the basic-block stack, and the
// function-call stack. Instrumentation call sites reach it either directly or
// through the flat package-level surface backed by one controlled global
// handle (see global.go) - exactly one live recorder per process.
//
// Every event operation is fire-and-forget: nothing here returns an error to
// the instrumented program. Unrecoverable conditions (trace file unusable,
// block-stack overflow) abort the process with a diagnostic; recoverable ones
// (call-stack mismatch or overflow) are logged and recorded with a sentinel
// so the rest of the trace survives.
//
// The runtime assumes a single recording thread. The one concession to
// multi-threaded targets is the handler-thread registration: a mutex-guarded
// thread id kept for a future filtering policy. The filter is currently
// disabled - every thread's events are recorded - but the registration
// machinery is a documented extension point and stays.
package recorder
