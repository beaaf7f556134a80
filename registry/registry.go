package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/memcube/model"
)

var (
	// ErrUserNotFound is returned for operations on an unknown user.
	ErrUserNotFound = errors.New("registry: user not found")

	// ErrUserExists is returned when creating a user id that is already taken.
	ErrUserExists = errors.New("registry: user already exists")
)

// Registry is an in-memory user/access-grant table.
// Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	// grants preserves insertion order per user; the first grant is the
	// default target for adds.
	grants map[model.UserID][]model.CubeID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		grants: make(map[model.UserID][]model.CubeID),
	}
}

// CreateUser inserts a new user with an empty access set.
// Fails with ErrUserExists if the id is already present.
func (r *Registry) CreateUser(id model.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[id]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, id)
	}
	r.grants[id] = nil
	return nil
}

// GetOrCreateUser is the idempotent variant of CreateUser; it never fails.
func (r *Registry) GetOrCreateUser(id model.UserID) model.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[id]; !ok {
		r.grants[id] = nil
	}
	return id
}

// HasUser reports whether the user exists.
func (r *Registry) HasUser(id model.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.grants[id]
	return ok
}

// GrantAccess records a (user, cube) edge. Granting twice is a no-op.
// Fails with ErrUserNotFound if the user is unknown.
func (r *Registry) GrantAccess(user model.UserID, cube model.CubeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cubes, ok := r.grants[user]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}
	if slices.Contains(cubes, cube) {
		return nil
	}
	r.grants[user] = append(cubes, cube)
	return nil
}

// RevokeAccess removes a (user, cube) edge. Revoking a missing edge is a
// no-op. Fails with ErrUserNotFound if the user is unknown.
func (r *Registry) RevokeAccess(user model.UserID, cube model.CubeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cubes, ok := r.grants[user]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}
	if i := slices.Index(cubes, cube); i >= 0 {
		r.grants[user] = slices.Delete(cubes, i, i+1)
	}
	return nil
}

// AccessibleCubes returns the cubes the user can access, in grant order.
// A user with no cubes gets an empty slice, not an error.
func (r *Registry) AccessibleCubes(user model.UserID) []model.CubeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.grants[user])
}
