// Package keyring caches vault passphrases in the OS keyring, keyed by
// vault ID.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "lockpass"

// ErrNotFound is returned when no passphrase is stored for a vault.
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a passphrase in the OS keyring
func SavePassword(vaultID string, password string) error {
	return keyring.Set(serviceName, vaultID, password)
}

// GetPassword retrieves a passphrase from the OS keyring
func GetPassword(vaultID string) (string, error) {
	return keyring.Get(serviceName, vaultID)
}

// DeletePassword removes a passphrase from the OS keyring. Deleting a
// missing entry is not an error.
func DeletePassword(vaultID string) error {
	err := keyring.Delete(serviceName, vaultID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassword checks if a passphrase is stored in the keyring
func HasPassword(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
