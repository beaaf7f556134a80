package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/memcube/blobstore"
)

// Bucket implements blobstore.Bucket for S3.
type Bucket struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New creates a new S3 bucket store.
// rootPrefix is prepended to all keys (e.g. "cubes/c1/").
func New(client *s3.Client, bucket, rootPrefix string) *Bucket {
	return &Bucket{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   rootPrefix,
	}
}

// NewFromDefaultConfig creates an S3 bucket store using the default AWS
// credential/config chain.
func NewFromDefaultConfig(ctx context.Context, bucket, rootPrefix string) (*Bucket, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return New(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (b *Bucket) key(name string) string {
	return path.Join(b.prefix, name)
}

// Open opens a blob for reading.
func (b *Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

// Put writes a blob. The managed uploader splits large bodies into
// parallel multipart uploads.
func (b *Bucket) Put(ctx context.Context, name string, data []byte) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes a blob. Missing blobs are ignored (S3 DeleteObject is
// idempotent).
func (b *Bucket) Delete(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	return err
}

// List returns all blob names with the given prefix, sorted.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := b.key(prefix)
	var names []string

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := aws.ToString(obj.Key)
			if b.prefix != "" {
				name = strings.TrimPrefix(name, b.prefix)
				name = strings.TrimPrefix(name, "/")
			}
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}
