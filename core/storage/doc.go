// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so datasets referenced as s3://bucket/key can
// be fetched for comparison, and finished reports can be published back to a
// bucket. The abstraction supports both AWS S3 and self-hosted MinIO
// instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (as seen in
// core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket.
//   - GetObject: Retrieves a dataset as a stream.
//   - StatObject: Checks a dataset's size and existence before download.
//   - PutObject: Uploads a rendered report.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "datasets")
package storage
