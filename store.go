package memcube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/memcube/blobstore"
	"github.com/hupe1980/memcube/embedding"
	"github.com/hupe1980/memcube/internal/flock"
	"github.com/hupe1980/memcube/model"
	"github.com/hupe1980/memcube/reader"
	"github.com/hupe1980/memcube/registry"
)

// Store is the multi-tenant entry point: it owns the user registry and the
// table of live cubes, and mediates every user-facing operation.
type Store struct {
	opts     options
	embedder embedding.Embedder
	reader   reader.Reader

	mu       sync.Mutex
	registry *registry.Registry
	cubes    map[model.CubeID]*Cube
	locks    map[model.CubeID]*flock.Lock
	closed   bool
}

// New creates a Store around the given embedder. The embedder fixes the
// embedding dimensionality of every cube the store creates.
func New(embedder embedding.Embedder, optFns ...Option) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("memcube: embedder is required")
	}

	opts := applyOptions(optFns)

	rd := opts.reader
	if rd == nil {
		rd = reader.NewStructReader(func(o *reader.StructReaderOptions) {
			o.Generator = opts.generator
		})
	}

	return &Store{
		opts:     opts,
		embedder: embedder,
		reader:   rd,
		registry: registry.New(),
		cubes:    make(map[model.CubeID]*Cube),
		locks:    make(map[model.CubeID]*flock.Lock),
	}, nil
}

// CreateUser registers a new user. Returns ErrAlreadyExists if the id is
// taken.
func (s *Store) CreateUser(id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return translateError(s.registry.CreateUser(id))
}

// GetOrCreateUser registers the user if unknown. Idempotent.
func (s *Store) GetOrCreateUser(id model.UserID) (model.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	return s.registry.GetOrCreateUser(id), nil
}

// AccessibleCubes returns the cubes the user may operate on, in grant
// order. Unknown users get an empty slice.
func (s *Store) AccessibleCubes(user model.UserID) []model.CubeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.AccessibleCubes(user)
}

// Cube returns a live cube by id.
func (s *Store) Cube(id model.CubeID) (*Cube, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	cube, ok := s.cubes[id]
	if !ok {
		return nil, fmt.Errorf("%w: cube %s", ErrNotFound, id)
	}
	return cube, nil
}

// RegisterOptions configure cube registration.
type RegisterOptions struct {
	// CubeID fixes the cube's identifier. Defaults to a fresh random id.
	CubeID model.CubeID

	// Dir loads the cube's initial content from a local snapshot directory.
	// The directory stays locked until the store is closed.
	Dir string

	// Bucket loads the cube's initial content from a remote snapshot.
	Bucket blobstore.Bucket
}

// WithCubeID fixes the cube id used by RegisterCube.
func WithCubeID(id model.CubeID) func(*RegisterOptions) {
	return func(o *RegisterOptions) {
		o.CubeID = id
	}
}

// FromDir sources the cube's content from a local snapshot directory.
func FromDir(dir string) func(*RegisterOptions) {
	return func(o *RegisterOptions) {
		o.Dir = dir
	}
}

// FromBucket sources the cube's content from a remote snapshot bucket.
func FromBucket(bucket blobstore.Bucket) func(*RegisterOptions) {
	return func(o *RegisterOptions) {
		o.Bucket = bucket
	}
}

// RegisterCube binds a cube to a user, creating or loading it as needed.
//
// Without a source the cube starts empty. With FromDir or FromBucket the
// cube's content is loaded from the snapshot; a missing snapshot is
// ErrNotFound. Registering an already-live cube id only (re-)grants access;
// the grant is idempotent and the cube's content is untouched.
func (s *Store) RegisterCube(ctx context.Context, user model.UserID, optFns ...func(*RegisterOptions)) (model.CubeID, error) {
	var regOpts RegisterOptions
	for _, fn := range optFns {
		fn(&regOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if !s.registry.HasUser(user) {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, user)
	}

	id := regOpts.CubeID
	if id == "" {
		id = model.NewCubeID()
	}

	if _, live := s.cubes[id]; live {
		if err := s.registry.GrantAccess(user, id); err != nil {
			return "", translateError(err)
		}
		return id, nil
	}

	cube, err := newCube(id, s.opts, s.embedder, s.reader)
	if err != nil {
		return "", err
	}

	var lock *flock.Lock
	switch {
	case regOpts.Dir != "":
		lock, err = flock.Acquire(regOpts.Dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: snapshot directory %s: %w", ErrNotFound, regOpts.Dir, err)
			}
			return "", fmt.Errorf("%w: snapshot directory %s is locked: %w", ErrPreconditionFailed, regOpts.Dir, err)
		}
		if err := cube.Load(ctx, regOpts.Dir); err != nil {
			lock.Close()
			return "", err
		}
	case regOpts.Bucket != nil:
		if err := cube.LoadFrom(ctx, regOpts.Bucket); err != nil {
			return "", err
		}
	}

	if err := s.registry.GrantAccess(user, id); err != nil {
		if lock != nil {
			lock.Close()
		}
		return "", translateError(err)
	}

	s.cubes[id] = cube
	if lock != nil {
		s.locks[id] = lock
	}

	s.opts.logger.InfoContext(ctx, "cube registered",
		"user", string(user),
		"cube", string(id),
		"records", cube.Len(),
	)
	return id, nil
}

// AddOptions configure AddForUser.
type AddOptions struct {
	// TargetCube selects the cube to ingest into. Defaults to the user's
	// first accessible cube.
	TargetCube model.CubeID
}

// WithTargetCube directs an add to a specific cube.
func WithTargetCube(id model.CubeID) func(*AddOptions) {
	return func(o *AddOptions) {
		o.TargetCube = id
	}
}

// AddForUser ingests conversation turns into one of the user's cubes.
func (s *Store) AddForUser(ctx context.Context, user model.UserID, turns []model.Message, optFns ...func(*AddOptions)) ([]*model.MemoryRecord, error) {
	var addOpts AddOptions
	for _, fn := range optFns {
		fn(&addOpts)
	}

	cube, err := s.cubeForUser(user, addOpts.TargetCube)
	if err != nil {
		return nil, err
	}
	return cube.Add(ctx, turns)
}

// SearchOptions configure SearchForUser.
type SearchOptions struct {
	// TopK is the per-cube result budget. Defaults to the store's default.
	TopK int

	// Cubes restricts the fan-out to a subset of the user's accessible
	// cubes. Defaults to all of them.
	Cubes []model.CubeID
}

// WithTopK sets the per-cube result budget.
func WithTopK(k int) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.TopK = k
	}
}

// WithCubes restricts a search to the given cubes.
func WithCubes(ids ...model.CubeID) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.Cubes = ids
	}
}

// SearchForUser fans the query out to the user's accessible cubes and
// groups the hits per cube. A user without accessible cubes gets an empty
// result; per-cube ordering follows Cube.Search.
func (s *Store) SearchForUser(ctx context.Context, user model.UserID, query string, optFns ...func(*SearchOptions)) (model.SearchResult, error) {
	var searchOpts SearchOptions
	for _, fn := range optFns {
		fn(&searchOpts)
	}
	if searchOpts.TopK <= 0 {
		searchOpts.TopK = s.opts.defaultTopK
	}

	cubes, err := s.searchTargets(user, searchOpts.Cubes)
	if err != nil {
		return nil, err
	}

	result := make(model.SearchResult, len(cubes))
	if len(cubes) == 0 {
		return result, nil
	}

	var resultMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, cube := range cubes {
		g.Go(func() error {
			hits, err := cube.search(gctx, query, searchOpts.TopK)
			if err != nil {
				return err
			}
			resultMu.Lock()
			result[cube.ID()] = hits
			resultMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.opts.logger.LogSearch(ctx, searchOpts.TopK, len(cubes), 0, err)
		return nil, err
	}

	s.opts.logger.LogSearch(ctx, searchOpts.TopK, len(cubes), result.Total(), nil)
	return result, nil
}

// DumpOptions configure DumpForUser.
type DumpOptions struct {
	// Cube selects the cube to dump. Defaults to the user's first
	// accessible cube.
	Cube model.CubeID
}

// WithDumpCube selects the cube DumpForUser writes out.
func WithDumpCube(id model.CubeID) func(*DumpOptions) {
	return func(o *DumpOptions) {
		o.Cube = id
	}
}

// DumpForUser writes a cube snapshot into dir. The snapshot is content
// only: it never carries user identity or access grants, so after a restart
// callers re-register and then load.
func (s *Store) DumpForUser(ctx context.Context, user model.UserID, dir string, optFns ...func(*DumpOptions)) error {
	var dumpOpts DumpOptions
	for _, fn := range optFns {
		fn(&dumpOpts)
	}

	cube, err := s.cubeForUser(user, dumpOpts.Cube)
	if err != nil {
		return err
	}
	return cube.Dump(ctx, dir)
}

// LoadCube replaces a live cube's content with a snapshot from a local
// directory.
func (s *Store) LoadCube(ctx context.Context, id model.CubeID, dir string) error {
	cube, err := s.Cube(id)
	if err != nil {
		return err
	}
	return cube.Load(ctx, dir)
}

// LoadCubeFrom replaces a live cube's content with a snapshot from a
// remote bucket.
func (s *Store) LoadCubeFrom(ctx context.Context, id model.CubeID, bucket blobstore.Bucket) error {
	cube, err := s.Cube(id)
	if err != nil {
		return err
	}
	return cube.LoadFrom(ctx, bucket)
}

// Close releases directory locks and marks the store unusable. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for id, lock := range s.locks {
		if err := lock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("unlock cube %s: %w", id, err))
		}
	}
	s.locks = nil
	s.cubes = nil

	return errors.Join(errs...)
}

// cubeForUser resolves the target cube for a write-ish operation: the named
// cube if given (must be accessible), otherwise the first accessible one.
func (s *Store) cubeForUser(user model.UserID, target model.CubeID) (*Cube, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	accessible := s.registry.AccessibleCubes(user)
	if target != "" {
		for _, id := range accessible {
			if id == target {
				cube, ok := s.cubes[id]
				if !ok {
					return nil, fmt.Errorf("%w: cube %s", ErrNotFound, id)
				}
				return cube, nil
			}
		}
		return nil, fmt.Errorf("%w: user %s has no access to cube %s", ErrNoAccessibleCube, user, target)
	}

	if len(accessible) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoAccessibleCube, user)
	}

	cube, ok := s.cubes[accessible[0]]
	if !ok {
		return nil, fmt.Errorf("%w: cube %s", ErrNotFound, accessible[0])
	}
	return cube, nil
}

// searchTargets resolves the fan-out set for a search.
func (s *Store) searchTargets(user model.UserID, requested []model.CubeID) ([]*Cube, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	accessible := s.registry.AccessibleCubes(user)

	ids := accessible
	if len(requested) > 0 {
		allowed := make(map[model.CubeID]bool, len(accessible))
		for _, id := range accessible {
			allowed[id] = true
		}
		ids = ids[:0:0]
		for _, id := range requested {
			if !allowed[id] {
				return nil, fmt.Errorf("%w: user %s has no access to cube %s", ErrNoAccessibleCube, user, id)
			}
			ids = append(ids, id)
		}
	}

	cubes := make([]*Cube, 0, len(ids))
	for _, id := range ids {
		cube, ok := s.cubes[id]
		if !ok {
			return nil, fmt.Errorf("%w: cube %s", ErrNotFound, id)
		}
		cubes = append(cubes, cube)
	}
	return cubes, nil
}
