// Package store loads a finished trace file into SQLite so offline tooling
// can query it without re-reading the flat log.
//
// One database holds one imported trace; re-importing replaces the previous
// contents. The import is a diagnostics aid for people inspecting traces -
// the slicing pipeline itself consumes the flat trace file directly.
package store
