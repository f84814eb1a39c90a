// Package source provides row stream adapters over the supported input
// formats: CSV, JSON, NDJSON, Parquet files, database tables, and objects
// fetched from S3-compatible storage.
//
// Every adapter implements the Source interface: a finite, forward-only
// stream of rows under an inferred or declared schema. Sources are not
// restartable; reopen the input to read it again.
//
// File-based adapters are selected by extension via Open, mirroring the
// classic koala-diff reader dispatch (.csv, .json, .jsonl/.ndjson,
// .parquet/.pq). Schema inference for text formats samples a bounded
// prefix of the input, so memory stays bounded regardless of file size.
// Empty CSV fields and missing JSON keys canonicalize to the null value.
package source
