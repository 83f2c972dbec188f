// Package journal keeps an append-only log of vault operations next to the
// vault file.
//
// The journal is a bbolt database at "<vault>.journal" with two buckets:
//   - meta: format version, creation time, chain head (unencrypted)
//   - entries: ULID key -> JSON entry, so keys sort by time
//
// Each entry stores a SHA-256 hash over the previous entry's hash and its own
// fields. Verify recomputes the chain to detect edits or deletions. Entries
// carry operation names and record counts only, never credentials.
package journal
