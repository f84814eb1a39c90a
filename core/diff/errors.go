package diff

import "fmt"

// Side identifies which input a row or error belongs to.
type Side uint8

const (
	// SideSource is the left-hand ("before") input.
	SideSource Side = iota
	// SideTarget is the right-hand ("after") input.
	SideTarget
)

// String returns "source" or "target".
func (s Side) String() string {
	if s == SideSource {
		return "source"
	}
	return "target"
}

// SchemaMismatchError reports that a declared key column is absent from one
// side. It is fatal and surfaced before any row is read.
type SchemaMismatchError struct {
	Side   Side
	Column string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: key column %q absent from %s", e.Column, e.Side)
}

// PartitionOverflowError reports that a single partition's source side
// exceeded the memory budget even at the maximum fan-out. The partition and
// fan-out identify the key-hash residue class (keyHash mod Fanout ==
// Partition) for diagnosis of key skew.
type PartitionOverflowError struct {
	Partition int
	Fanout    int
	Bytes     int64
	Budget    int64
}

func (e *PartitionOverflowError) Error() string {
	return fmt.Sprintf("partition overflow: partition %d of %d holds %d bytes of source rows, budget %d (keyHash mod %d == %d)",
		e.Partition, e.Fanout, e.Bytes, e.Budget, e.Fanout, e.Partition)
}

// SourceReadError wraps a row-stream failure with the side and row offset at
// which it occurred.
type SourceReadError struct {
	Side   Side
	Offset int64
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("reading %s row %d: %v", e.Side, e.Offset, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// SpillError wraps a failure writing or reading a spilled partition.
// It is fatal: correctness cannot be guaranteed with a lost partition.
type SpillError struct {
	Partition int
	Op        string // "write", "read", "create", "remove"
	Err       error
}

func (e *SpillError) Error() string {
	return fmt.Sprintf("spill %s failed for partition %d: %v", e.Op, e.Partition, e.Err)
}

func (e *SpillError) Unwrap() error { return e.Err }
