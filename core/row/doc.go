// Package row defines the tabular data model shared by every source and by
// the diff engine: typed scalar values, rows, schemas, and key tuples.
//
// Values are a closed tagged variant over {null, bool, integer, float,
// string, timestamp}. Comparison and hashing dispatch over the tag
// explicitly; there is no reflection anywhere in the hot path.
//
// # Equality
//
// Two notions of equality exist and are deliberately distinct:
//
//   - EqualKey: exact per-component equality used for key tuples.
//     Null equals null; numeric values of different kinds are distinct.
//   - Equal: value-based comparison used for non-key columns. Integers and
//     floats compare numerically (1 == 1.0), and an optional epsilon
//     tolerance may be supplied for numeric columns.
//
// # Schemas
//
// A Schema is an ordered sequence of (name, kind) columns. Rows are
// positional slices of values in schema order. Sources canonicalize a
// missing column to the null value, so "absent" and "null" are
// indistinguishable downstream.
package row
