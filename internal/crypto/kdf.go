package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize        = 16          // Salt size in bytes
	KeySize         = 32          // AES-256 key size
	DefaultIters    = 210000      // Default PBKDF2 iterations (OWASP minimum)
	MaxIters        = 10000000    // Upper bound accepted from a vault header
	DefaultArgonMem = 64 * 1024   // Default Argon2id memory in KiB
	MaxArgonMem     = 1024 * 1024 // Upper bound accepted from a vault header (1 GiB)
	MinArgonMem     = 8 * argonThreads
	argonTime       = 3
	argonThreads    = 4
)

// Algorithm identifies a key derivation function. The numeric values match
// the vault container format version that uses them.
type Algorithm uint8

const (
	PBKDF2SHA256 Algorithm = 1
	Argon2id     Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case PBKDF2SHA256:
		return "PBKDF2-HMAC-SHA256"
	case Argon2id:
		return "Argon2id"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

var ErrInvalidParams = errors.New("invalid key derivation parameters")

// KDFParams are the persisted derivation cost parameters of a vault.
type KDFParams struct {
	Algorithm Algorithm
	Cost      uint32
}

// DefaultParams returns the default cost for the given algorithm.
func DefaultParams(alg Algorithm) KDFParams {
	switch alg {
	case Argon2id:
		return KDFParams{Algorithm: Argon2id, Cost: DefaultArgonMem}
	default:
		return KDFParams{Algorithm: PBKDF2SHA256, Cost: DefaultIters}
	}
}

// Validate reports whether the parameters can be used for derivation.
func (p KDFParams) Validate() error {
	switch p.Algorithm {
	case PBKDF2SHA256:
		if p.Cost == 0 {
			return fmt.Errorf("%w: zero iteration count", ErrInvalidParams)
		}
		if p.Cost > MaxIters {
			return fmt.Errorf("%w: %d iterations above maximum", ErrInvalidParams, p.Cost)
		}
	case Argon2id:
		if p.Cost < MinArgonMem {
			return fmt.Errorf("%w: argon2id memory %d KiB below minimum", ErrInvalidParams, p.Cost)
		}
		if p.Cost > MaxArgonMem {
			return fmt.Errorf("%w: argon2id memory %d KiB above maximum", ErrInvalidParams, p.Cost)
		}
	default:
		return fmt.Errorf("%w: algorithm %s", ErrInvalidParams, p.Algorithm)
	}
	return nil
}

// KDF handles key derivation from passphrases
type KDF struct {
	Salt   []byte
	Params KDFParams
}

// NewKDF creates a new KDF with a random salt
func NewKDF(params KDFParams) (*KDF, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:   salt,
		Params: params,
	}, nil
}

// DeriveKey derives an encryption key from a passphrase. It fails only when
// the salt or parameters are unusable, never because of the passphrase.
func (k *KDF) DeriveKey(passphrase []byte) ([]byte, error) {
	return DeriveKey(passphrase, k.Salt, k.Params)
}

// DeriveKey is the stateless form of KDF.DeriveKey.
func DeriveKey(passphrase, salt []byte, params KDFParams) ([]byte, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch params.Algorithm {
	case Argon2id:
		return argon2.IDKey(passphrase, salt, argonTime, params.Cost, argonThreads, KeySize), nil
	default:
		return pbkdf2.Key(passphrase, salt, int(params.Cost), KeySize, sha256.New), nil
	}
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
