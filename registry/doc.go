// Package registry tracks user identities and their access grants to cubes.
//
// The registry holds only identifiers and (user, cube) edges, never cube
// content. An access grant is an edge, not ownership: a cube may be shared
// across users. Grants are process-local state and are deliberately not part
// of cube snapshots; after a restart callers re-register cubes before
// loading them.
package registry
