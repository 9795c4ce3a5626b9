// Package index assigns and resolves the stable identifiers that make trace
// records interpretable offline.
//
// Two logically separate id spaces share one contract: basic-block ids and
// instruction ids (loads, stores, selects, calls). Ids are dense, start at 1,
// and are assigned in a single deterministic pass over the unit in
// program/function/block order; 0 is reserved for "unassigned" and is never
// handed out. A unit must be fully numbered in one pass before any record
// that references its ids can be produced - there is no incremental
// numbering.
//
// Cloned code may legitimately alias several blocks onto one id; the reverse
// map keeps the first writer. This is accepted, not an error.
//
// The assignment is persisted as an explicit artifact (a JSON id map with a
// build id) emitted alongside the instrumented program and loaded back by
// both the instrumentation step and the offline slicer.
package index
