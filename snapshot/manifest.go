package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hupe1980/memcube/blobstore"
)

// Manifest describes one snapshot of a cube's record table.
type Manifest struct {
	Version     int       `json:"version"`
	ID          uint64    `json:"id"`
	RecordCount int       `json:"record_count"`
	Dimension   int       `json:"dimension"`
	Codec       string    `json:"codec"`
	Compression string    `json:"compression"`
	RecordsFile string    `json:"records_file"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *Manifest) validate() error {
	if m.Version != FormatVersion {
		return formatErrorf(nil, "unsupported manifest version: %d (expected %d)", m.Version, FormatVersion)
	}
	if m.Codec == "" {
		return formatErrorf(nil, "manifest missing codec")
	}
	if m.RecordsFile == "" {
		return formatErrorf(nil, "manifest missing records file")
	}
	if m.Dimension <= 0 {
		return formatErrorf(nil, "manifest missing dimension")
	}
	if m.RecordCount < 0 {
		return formatErrorf(nil, "negative record count: %d", m.RecordCount)
	}
	switch m.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return formatErrorf(nil, "unknown compression: %q", m.Compression)
	}
	return nil
}

// loadManifest resolves CURRENT and decodes the manifest it points at.
func loadManifest(ctx context.Context, bucket blobstore.Bucket) (*Manifest, error) {
	current, err := blobstore.ReadAll(ctx, bucket, CurrentFileName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(string(current))
	if name == "" || !strings.HasPrefix(name, manifestPrefix) {
		return nil, formatErrorf(nil, "invalid CURRENT pointer: %q", name)
	}

	data, err := blobstore.ReadAll(ctx, bucket, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, formatErrorf(err, "CURRENT points at missing manifest %s", name)
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, formatErrorf(err, "manifest %s not decodable", name)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// saveManifest writes the manifest, then flips the CURRENT pointer.
// Bucket puts are atomic, so a reader sees either the old or the new
// snapshot, never a half-written one.
func saveManifest(ctx context.Context, bucket blobstore.Bucket, m *Manifest) error {
	name := fmt.Sprintf("%s%06d.json", manifestPrefix, m.ID)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := bucket.Put(ctx, name, data); err != nil {
		return err
	}
	return bucket.Put(ctx, CurrentFileName, []byte(name))
}

// Exists reports whether the bucket already holds a snapshot.
func Exists(ctx context.Context, bucket blobstore.Bucket) (bool, error) {
	_, err := blobstore.ReadAll(ctx, bucket, CurrentFileName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
