// Package flat provides an exact (brute-force) nearest-neighbor index.
//
// The index stores vectors in a single contiguous float32 slice (SOA layout)
// and scans all live slots on every query, which gives 100% recall. Deleted
// slots are tracked in a Roaring Bitmap and reused by later inserts.
//
// The index is a derived structure: it can always be rebuilt in O(n) from
// the owning record table and is never the durable source of truth.
package flat
