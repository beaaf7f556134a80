// Package snapshot implements the durable, content-only serialization of a
// cube's record table.
//
// A snapshot is a set of named blobs in a blobstore.Bucket:
//
//	CURRENT             -> name of the active manifest file
//	MANIFEST-000001.json -> format version, record count, dimension, codec
//	RECORDS-000001.mcr   -> binary header + compressed record table + CRC32
//
// The manifest makes the format self-describing: load validates the format
// version, resolves the codec by its recorded name, and rejects a dimension
// that does not match the target cube. Snapshots never embed user identity;
// binding a cube to a user is re-established by registration at load time.
package snapshot
