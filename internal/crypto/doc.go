// Package crypto provides key derivation and authenticated encryption for lockpass.
//
// Key derivation turns a master passphrase and a per-vault salt into a
// 32-byte key. Two algorithms are supported, selected by the vault format
// version:
//   - PBKDF2-HMAC-SHA256, cost = iteration count (default 210,000)
//   - Argon2id, cost = memory in KiB (default 64 MiB), time 3, 4 lanes
//
// Encryption uses AES-256-GCM with:
//   - 12-byte nonce supplied by the caller, fresh for every seal
//   - 16-byte authentication tag appended to the ciphertext
//   - optional additional data bound into the tag (the vault header)
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
