package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserID is an opaque identity owning access grants to zero or more cubes.
type UserID string

// CubeID identifies one memory cube (one embedding space + record table).
type CubeID string

// RecordID is the stable identifier of a memory record within a cube.
type RecordID string

// NewUserID generates a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.NewString()) }

// NewCubeID generates a fresh random CubeID.
func NewCubeID() CubeID { return CubeID(uuid.NewString()) }

// NewRecordID generates a fresh random RecordID.
func NewRecordID() RecordID { return RecordID(uuid.NewString()) }

// Well-known conversation roles. Unknown roles are accepted and passed
// through to extraction verbatim.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemoryRecord is one extracted memory plus its embedding and provenance.
//
// Records are immutable after creation except for deletion; an update is a
// delete followed by an insert. Field names are part of the snapshot format
// and must stay stable.
type MemoryRecord struct {
	ID          RecordID  `json:"id"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding"`
	SourceTurns []Message `json:"source_turns,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy of the record. Callers receive clones so the
// cube-owned original can never be mutated from outside.
func (r *MemoryRecord) Clone() *MemoryRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Embedding != nil {
		cp.Embedding = make([]float32, len(r.Embedding))
		copy(cp.Embedding, r.Embedding)
	}
	if r.SourceTurns != nil {
		cp.SourceTurns = make([]Message, len(r.SourceTurns))
		copy(cp.SourceTurns, r.SourceTurns)
	}
	return &cp
}

func (r *MemoryRecord) String() string {
	return fmt.Sprintf("MemoryRecord(%s: %q)", r.ID, r.Text)
}

// ScoredRecord is a search hit. Score is a similarity (higher is better).
type ScoredRecord struct {
	Record *MemoryRecord `json:"record"`
	Score  float32       `json:"score"`
}

// SearchResult groups search hits by the cube they were found in.
// Per-cube result slices are ordered by descending score, ties broken by the
// most recent CreatedAt.
type SearchResult map[CubeID][]ScoredRecord

// Total returns the number of hits across all cubes.
func (sr SearchResult) Total() int {
	n := 0
	for _, hits := range sr {
		n += len(hits)
	}
	return n
}
