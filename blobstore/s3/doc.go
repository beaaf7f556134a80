// Package s3 provides a blobstore.Bucket backed by Amazon S3.
//
// Remote cubes keep their snapshots under a key prefix in one S3 bucket;
// dump and load stream through the same snapshot code path as local
// directories.
package s3
