package core

import (
	"fmt"
	"os"
	"syscall"

	"github.com/illarion/lockpass/internal/crypto"
	"golang.org/x/term"
)

// PasswordEnv names the environment variable read by GetPasswordFromEnv.
const PasswordEnv = "LOCKPASS_PASSWORD"

// ReadPassword reads a passphrase from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // New line after passphrase

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a passphrase twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passphrases do not match")
	}

	// Return a copy of the passphrase
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// IsTerminal reports whether stdin is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetPasswordFromEnv reads the passphrase from LOCKPASS_PASSWORD
func GetPasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	// Return a copy to avoid issues when clearing the bytes
	result := make([]byte, len(password))
	copy(result, []byte(password))
	return result
}
