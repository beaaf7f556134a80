package snapshot

import (
	"errors"
	"fmt"
)

const (
	// Magic identifies memcube record files (ASCII "MCB0").
	Magic = 0x4D434230

	// FormatVersion is the current snapshot format version.
	FormatVersion = 1

	// CurrentFileName points at the active manifest.
	CurrentFileName = "CURRENT"

	manifestPrefix = "MANIFEST-"
	recordsPrefix  = "RECORDS-"
)

// Compression names recorded in the manifest.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

var (
	// ErrNoSnapshot is returned when the source contains no snapshot at all.
	ErrNoSnapshot = errors.New("snapshot: no manifest found")
)

// FormatError indicates a snapshot that exists but cannot be decoded:
// bad magic, unsupported version, unknown codec, truncated or corrupt data,
// or a manifest missing required fields.
type FormatError struct {
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("snapshot: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("snapshot: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

func formatErrorf(cause error, format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...), cause: cause}
}

// DimensionMismatchError indicates a snapshot whose embedding dimension does
// not match the target cube's embedder. It is a FormatError, never silently
// truncated or padded.
type DimensionMismatchError struct {
	Snapshot int
	Cube     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("snapshot: embedding dimension mismatch: snapshot has %d, cube expects %d", e.Snapshot, e.Cube)
}

// flag bits in the records file header.
const flagZstd uint32 = 1 << 0
