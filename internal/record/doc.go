// Package record holds the in-memory credential records of an open vault.
//
// A Store maps ids to records and keeps an explicit next-id counter, so an
// id is never handed out twice even after the highest record is removed.
// The store serializes to the JSON payload that the engine seals into the
// vault container.
package record
