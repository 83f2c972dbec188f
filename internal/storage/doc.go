// Package storage provides the on-disk vault container for lockpass.
//
// A container is a single file with a fixed big-endian layout:
//   - magic "LKPV" (4 bytes)
//   - format version (1 byte): 1 = PBKDF2-SHA256, 2 = Argon2id
//   - salt (16 bytes, unencrypted)
//   - KDF cost (4 bytes): iterations or memory in KiB
//   - nonce (12 bytes, fresh per save)
//   - ciphertext length (4 bytes)
//   - ciphertext (sealed record payload including the GCM tag)
//
// The ciphertext is opaque to this package. Writes go through a temporary
// file in the vault's directory followed by a rename, so the vault file is
// either the old or the new version, never a mix.
package storage
