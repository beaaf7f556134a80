// Package reader turns conversations into candidate memory statements.
//
// A Reader consumes an ordered list of role/content turns and produces zero
// or more minimal factual statements worth remembering. Producing zero
// candidates is a valid outcome ("nothing worth remembering"), reported as
// an empty slice with a nil error; a failing chunker or LLM capability is a
// pipeline fault, reported as a non-nil error so callers can tell the two
// apart.
package reader
