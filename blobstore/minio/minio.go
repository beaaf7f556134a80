package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/memcube/blobstore"
)

// Bucket implements blobstore.Bucket for MinIO and S3-compatible storage.
type Bucket struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a new MinIO bucket store.
// rootPrefix is prepended to all keys (e.g. "cubes/c1/").
func New(client *minio.Client, bucket, rootPrefix string) *Bucket {
	return &Bucket{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (b *Bucket) key(name string) string {
	return path.Join(b.prefix, name)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

// Open opens a blob for reading.
func (b *Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := b.key(name)

	// GetObject is lazy; stat first so a missing key surfaces here and not
	// on the first Read.
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Put writes a blob.
func (b *Bucket) Put(ctx context.Context, name string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key(name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Delete removes a blob. Missing blobs are ignored.
func (b *Bucket) Delete(ctx context.Context, name string) error {
	err := b.client.RemoveObject(ctx, b.bucket, b.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns all blob names with the given prefix, sorted.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := b.key(prefix)

	var names []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := obj.Key
		if b.prefix != "" {
			name = strings.TrimPrefix(name, b.prefix)
			name = strings.TrimPrefix(name, "/")
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}
