// Package harness runs declarative recorder scenarios.
//
// A scenario is a YAML file describing a sequence of runtime events and,
// optionally, the records the trace must contain afterwards. The harness
// drives a real recorder through the steps, reads the trace back, and checks
// it - either against the scenario's inline expectations or against a golden
// file.
//
// Scenarios keep correlation regressions visible without hand-building record
// slices in every test.
package harness
