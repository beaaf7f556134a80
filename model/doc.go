// Package model defines core types used throughout memcube.
//
// # Identity Types
//
//   - UserID: Opaque identity owning access grants to cubes
//   - CubeID: Unique identifier of one memory cube (one embedding space)
//   - RecordID: Unique identifier of a memory record within a cube
//
// Identity values are opaque strings. They are immutable once created and
// never recycled within a process lifetime.
//
// # Data Types
//
//   - Message: One conversational turn (role + content)
//   - MemoryRecord: Extracted memory with its embedding and provenance
//   - ScoredRecord: Search hit with a relevance score
//   - SearchResult: Per-cube grouping of search hits
package model
