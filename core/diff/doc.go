// Package diff implements the streaming hash-join differ: it compares two
// row streams keyed by designated columns and classifies every key as
// Added, Removed, Matched, Modified, or DuplicateKey, under a bounded
// memory budget.
//
// # Pipeline
//
// Compare runs in two phases:
//
//  1. Partitioning: every row from both sides is routed to one of P
//     partitions by keyHash mod P. Partition buffers live in memory while
//     small; when the total resident size exceeds the budget, the largest
//     buffer is spilled to a compressed temporary file. All rows sharing a
//     key tuple land in the same partition.
//
//  2. Join: partitions are processed one at a time (or by a bounded worker
//     pool). For each partition the source side is loaded into a multimap
//     index keyed by keyHash, then the target side is streamed against it.
//     Hash matches are verified by exact key-tuple equality, so key-hash
//     collisions can never misclassify. A partition whose source side does
//     not fit its budget share is split recursively by further hash bits;
//     if the maximum fan-out is reached the whole comparison fails with
//     PartitionOverflowError rather than exceeding the budget.
//
// Each partition folds its outcomes into its own metric aggregate; the
// aggregates are merged with a pure associative operation after all
// partitions complete, which is the seam for parallel processing.
//
// # Guarantees
//
// Every distinct key tuple present in either input is accounted for in
// exactly one classification. Results are deterministic for a given input
// and fan-out; classification and metrics are identical for any fan-out,
// only row ordering varies. There is no partial result: any failure or
// cancellation aborts the whole comparison.
package diff
