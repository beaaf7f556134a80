package memcube

import (
	"errors"
	"fmt"

	"github.com/hupe1980/memcube/index/flat"
	"github.com/hupe1980/memcube/registry"
	"github.com/hupe1980/memcube/snapshot"
)

var (
	// ErrNotFound is returned when a user, cube, or record is not known.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating an identity that is
	// already registered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPreconditionFailed is returned when an operation's environmental
	// precondition does not hold, e.g. dumping into a non-empty directory.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrNoAccessibleCube is returned when an operation needs a cube but
	// the user has no access grants.
	ErrNoAccessibleCube = errors.New("no accessible cube")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store closed")

	// ErrInvalidK is returned when a search requests a non-positive k.
	ErrInvalidK = errors.New("k must be positive")
)

// Pipeline stages reported by PipelineFault.
const (
	StageExtract = "extract"
	StageEmbed   = "embed"
)

// PipelineFault reports a failed ingestion pipeline stage. A fault means no
// records were inserted; it is never a partial success.
//
// The underlying capability error can be accessed via errors.Unwrap.
type PipelineFault struct {
	Stage string
	cause error
}

func (e *PipelineFault) Error() string {
	return fmt.Sprintf("pipeline fault at %s: %v", e.Stage, e.cause)
}

func (e *PipelineFault) Unwrap() error { return e.cause }

func pipelineFault(stage string, cause error) *PipelineFault {
	return &PipelineFault{Stage: stage, cause: cause}
}

// DimensionMismatchError indicates an embedding whose dimensionality does
// not match the cube it is bound for.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return e.cause }

// translateError maps subsystem errors onto the package-level taxonomy so
// callers only need errors.Is/As against this package.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, registry.ErrUserNotFound) || errors.Is(err, flat.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, registry.ErrUserExists) {
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	}
	if errors.Is(err, flat.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	// Dimension normalization.
	var fdm *flat.ErrDimensionMismatch
	if errors.As(err, &fdm) {
		return &DimensionMismatchError{Expected: fdm.Expected, Actual: fdm.Actual, cause: err}
	}
	var sdm *snapshot.DimensionMismatchError
	if errors.As(err, &sdm) {
		return &DimensionMismatchError{Expected: sdm.Cube, Actual: sdm.Snapshot, cause: err}
	}

	return err
}
