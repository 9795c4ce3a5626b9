// Package ir provides the compilation-unit model shared by the identifier
// index and the tooling that consumes id-map artifacts.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the unit model the
// foundational layer with no circular dependencies.
//
// The model is deliberately structural: a Program is an ordered list of
// Functions, a Function an ordered list of Blocks, a Block an ordered list of
// Instrs. Order is load-bearing - identifier assignment walks the unit in
// exactly this order, and the same description must always produce the same
// numbering.
package ir
