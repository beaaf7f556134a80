// Package blobstore provides named-blob storage for cube snapshots.
//
// Bucket is the interface the snapshot reader/writer is built against, so a
// cube can be dumped to and loaded from a local directory or a remote
// endpoint through the same code path. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - Local: local filesystem directory with atomic writes
//   - Memory: in-memory map, for tests
//   - s3.Bucket: Amazon S3 (subpackage)
//   - minio.Bucket: MinIO and S3-compatible storage (subpackage)
package blobstore
