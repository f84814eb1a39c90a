// Package report renders comparison results for people and machines.
//
// A Report is an immutable snapshot built from a diff.Result, carrying the
// classification counts, per-column drift metrics, schema drift notes and a
// bounded set of classified records.
//
// # Renderers
//
//   - WriteText: terminal summary for the CLI.
//   - WriteJSON: machine-readable document for pipelines and the HTTP API.
//   - WriteHTML: self-contained dashboard page with stat cards, the column
//     metrics table and mismatch samples.
package report
