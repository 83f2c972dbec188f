// Package generate creates random passwords for new records.
package generate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	MinLength     = 8
	MaxLength     = 64
	DefaultLength = 16

	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	special = "!@#$%^&*()-_=+"
	Charset = lower + upper + digits + special
)

var ErrInvalidLength = errors.New("invalid password length")

// Generate returns a random password of the given length drawn uniformly from
// Charset. The result always contains at least one lowercase letter, one
// uppercase letter, one digit and one special character.
func Generate(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidLength, length, MinLength, MaxLength)
	}

	for {
		pw, err := random(length)
		if err != nil {
			return "", err
		}
		if complete(pw) {
			return pw, nil
		}
	}
}

func random(length int) (string, error) {
	n := big.NewInt(int64(len(Charset)))
	b := make([]byte, length)
	for i := range b {
		// rand.Int samples uniformly in [0, n), no modulo bias.
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		b[i] = Charset[idx.Int64()]
	}
	return string(b), nil
}

func complete(pw string) bool {
	return strings.ContainsAny(pw, lower) &&
		strings.ContainsAny(pw, upper) &&
		strings.ContainsAny(pw, digits) &&
		strings.ContainsAny(pw, special)
}
