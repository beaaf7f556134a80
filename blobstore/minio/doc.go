// Package minio provides a blobstore.Bucket backed by MinIO and other
// S3-compatible object stores.
package minio
