// Package core provides the lockpass vault engine.
//
// An Engine owns at most one open vault. Its operations:
//   - Create/Open: derive the key, take the file lock, decrypt records
//   - Add/Update/Remove/Show/Search/List: work on the in-memory records
//   - Save: seal records under a fresh nonce and atomically replace the file
//   - Export/DiffExport: write or compare a plaintext JSON Lines backup
//   - Import/ChangePassphrase: bulk add and re-key
//   - Close: wipe the key and release the lock
//
// Errors are *Error values classified by Kind. A wrong passphrase and a
// damaged vault file are reported identically as WrongPassphrase.
package core
