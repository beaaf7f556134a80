package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/memcube/blobstore"
	"github.com/hupe1980/memcube/codec"
	"github.com/hupe1980/memcube/model"
)

// WriteOptions configure snapshot writing.
type WriteOptions struct {
	// Codec encodes the record table. Defaults to codec.Default; the codec
	// name is recorded in the manifest.
	Codec codec.Codec

	// Compress enables zstd compression of the record payload.
	Compress bool
}

// DefaultWriteOptions compress with the default codec.
var DefaultWriteOptions = WriteOptions{
	Compress: true,
}

// recordsHeader is the fixed 16-byte header of a records file.
type recordsHeader struct {
	Magic     uint32
	Version   uint32
	Dimension uint32
	Flags     uint32
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Write serializes the record table into the bucket as a new snapshot and
// returns its manifest. Every embedding must have the given dimension.
func Write(ctx context.Context, bucket blobstore.Bucket, records []*model.MemoryRecord, dimension int, optFns ...func(o *WriteOptions)) (*Manifest, error) {
	opts := DefaultWriteOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("snapshot: invalid dimension: %d", dimension)
	}

	for _, r := range records {
		if len(r.Embedding) != dimension {
			return nil, fmt.Errorf("snapshot: record %s has embedding dimension %d, want %d", r.ID, len(r.Embedding), dimension)
		}
	}

	payload, err := opts.Codec.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode records: %w", err)
	}

	var flags uint32
	compression := CompressionNone
	if opts.Compress {
		payload = zstdEncoder.EncodeAll(payload, nil)
		flags |= flagZstd
		compression = CompressionZstd
	}

	// Next manifest id; ids only ever grow so older snapshot files are
	// never overwritten in place.
	var id uint64 = 1
	if prev, err := loadManifest(ctx, bucket); err == nil {
		id = prev.ID + 1
	} else if !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}

	var buf bytes.Buffer
	hdr := recordsHeader{
		Magic:     Magic,
		Version:   FormatVersion,
		Dimension: uint32(dimension),
		Flags:     flags,
	}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	buf.Write(payload)
	if err := binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(payload)); err != nil {
		return nil, err
	}

	recordsFile := fmt.Sprintf("%s%06d.mcr", recordsPrefix, id)
	if err := bucket.Put(ctx, recordsFile, buf.Bytes()); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:     FormatVersion,
		ID:          id,
		RecordCount: len(records),
		Dimension:   dimension,
		Codec:       opts.Codec.Name(),
		Compression: compression,
		RecordsFile: recordsFile,
		CreatedAt:   time.Now().UTC(),
	}
	if err := saveManifest(ctx, bucket, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Read loads the active snapshot from the bucket.
//
// Returns ErrNoSnapshot if the bucket holds none, or a *FormatError if the
// snapshot is unrecognized or corrupt. The caller is responsible for
// checking the manifest dimension against its embedder.
func Read(ctx context.Context, bucket blobstore.Bucket) (*Manifest, []*model.MemoryRecord, error) {
	m, err := loadManifest(ctx, bucket)
	if err != nil {
		return nil, nil, err
	}

	c, ok := codec.ByName(m.Codec)
	if !ok {
		return nil, nil, formatErrorf(nil, "unknown codec: %q", m.Codec)
	}

	data, err := blobstore.ReadAll(ctx, bucket, m.RecordsFile)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, formatErrorf(err, "manifest references missing records file %s", m.RecordsFile)
	}
	if err != nil {
		return nil, nil, err
	}

	const headerSize = 16
	if len(data) < headerSize+4 {
		return nil, nil, formatErrorf(nil, "records file truncated: %d bytes", len(data))
	}

	var hdr recordsHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, nil, formatErrorf(err, "records header not decodable")
	}
	if hdr.Magic != Magic {
		return nil, nil, formatErrorf(nil, "invalid magic number: 0x%08x", hdr.Magic)
	}
	if hdr.Version != FormatVersion {
		return nil, nil, formatErrorf(nil, "unsupported records version: %d", hdr.Version)
	}
	if int(hdr.Dimension) != m.Dimension {
		return nil, nil, formatErrorf(nil, "records dimension %d disagrees with manifest %d", hdr.Dimension, m.Dimension)
	}

	payload := data[headerSize : len(data)-4]
	wantCRC := binary.LittleEndian.Uint32(data[len(data)-4:])
	if got := crc32.ChecksumIEEE(payload); got != wantCRC {
		return nil, nil, formatErrorf(nil, "checksum mismatch: expected 0x%08x, got 0x%08x", wantCRC, got)
	}

	if hdr.Flags&flagZstd != 0 {
		payload, err = zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, nil, formatErrorf(err, "decompress records")
		}
	}

	var records []*model.MemoryRecord
	if err := c.Unmarshal(payload, &records); err != nil {
		return nil, nil, formatErrorf(err, "decode records")
	}
	if len(records) != m.RecordCount {
		return nil, nil, formatErrorf(nil, "record count mismatch: manifest says %d, decoded %d", m.RecordCount, len(records))
	}
	for _, r := range records {
		if r.ID == "" {
			return nil, nil, formatErrorf(nil, "record with empty id")
		}
		if len(r.Embedding) != m.Dimension {
			return nil, nil, &DimensionMismatchError{Snapshot: len(r.Embedding), Cube: m.Dimension}
		}
	}
	return m, records, nil
}
