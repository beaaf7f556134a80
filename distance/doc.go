// Package distance provides vector distance and similarity calculations.
//
// All functions assume both vectors have the same length; length checks are
// the caller's responsibility. Cosine similarity is implemented as a dot
// product over L2-normalized vectors, so stores that normalize at insert
// time get cosine ranking from the cheaper Dot kernel.
package distance
