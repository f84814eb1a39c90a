// Package compare wires row sources, the diff engine and the reporters into
// one operation shared by the CLI and the HTTP API.
//
// # Dataset References
//
// Inputs are referenced by strings:
//
//   - plain paths open local files by extension (.csv, .json, .ndjson,
//     .parquet)
//   - s3://bucket/key fetches an object through the storage client
//   - table:name streams a database table
//
// # HTTP Endpoints
//
//   - POST /compare : Runs a comparison and returns the JSON report.
//   - GET /healthz : Liveness probe.
package compare
