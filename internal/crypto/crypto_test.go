package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = KDFParams{Algorithm: PBKDF2SHA256, Cost: 1000}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltSize)

	k1, err := DeriveKey([]byte("hunter2"), salt, testParams)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("hunter2"), salt, testParams)
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)

	other, err := DeriveKey([]byte("hunter3"), salt, testParams)
	require.NoError(t, err)
	assert.NotEqual(t, k1, other)

	otherSalt := bytes.Repeat([]byte{0x43}, SaltSize)
	salted, err := DeriveKey([]byte("hunter2"), otherSalt, testParams)
	require.NoError(t, err)
	assert.NotEqual(t, k1, salted)
}

func TestDeriveKeyArgon2id(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)
	params := KDFParams{Algorithm: Argon2id, Cost: MinArgonMem}

	k1, err := DeriveKey([]byte("pw"), salt, params)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("pw"), salt, params)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	pb, err := DeriveKey([]byte("pw"), salt, KDFParams{Algorithm: PBKDF2SHA256, Cost: MinArgonMem})
	require.NoError(t, err)
	assert.NotEqual(t, k1, pb, "algorithms must not collide")
}

func TestDeriveKeyInvalidParams(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)

	tests := []struct {
		name   string
		salt   []byte
		params KDFParams
	}{
		{"zero iterations", salt, KDFParams{Algorithm: PBKDF2SHA256, Cost: 0}},
		{"too many iterations", salt, KDFParams{Algorithm: PBKDF2SHA256, Cost: MaxIters + 1}},
		{"argon memory too low", salt, KDFParams{Algorithm: Argon2id, Cost: 1}},
		{"argon memory too high", salt, KDFParams{Algorithm: Argon2id, Cost: MaxArgonMem + 1}},
		{"unknown algorithm", salt, KDFParams{Algorithm: 9, Cost: 1000}},
		{"empty salt", nil, testParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey([]byte("pw"), tt.salt, tt.params)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestDeriveKeyAnyPassphrase(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)
	for _, pw := range [][]byte{nil, {}, {0x00, 0xff}, []byte("ünïcødé")} {
		_, err := DeriveKey(pw, salt, testParams)
		assert.NoError(t, err)
	}
}

func TestNewKDF(t *testing.T) {
	a, err := NewKDF(DefaultParams(PBKDF2SHA256))
	require.NoError(t, err)
	b, err := NewKDF(DefaultParams(PBKDF2SHA256))
	require.NoError(t, err)

	assert.Len(t, a.Salt, SaltSize)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.Equal(t, uint32(DefaultIters), a.Params.Cost)

	_, err = NewKDF(KDFParams{Algorithm: PBKDF2SHA256})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSealOpen(t *testing.T) {
	key, err := GenerateRandom(KeySize)
	require.NoError(t, err)
	enc := NewEncryptor(key)

	nonce, err := NewNonce()
	require.NoError(t, err)
	ad := []byte("header")

	ct, err := enc.Seal(nonce, []byte("secret payload"), ad)
	require.NoError(t, err)
	assert.Len(t, ct, len("secret payload")+TagSize)

	pt, err := enc.Open(nonce, ct, ad)
	require.NoError(t, err)
	assert.Equal(t, "secret payload", string(pt))
}

func TestOpenDetectsTampering(t *testing.T) {
	key, err := GenerateRandom(KeySize)
	require.NoError(t, err)
	enc := NewEncryptor(key)
	nonce, err := NewNonce()
	require.NoError(t, err)

	ct, err := enc.Seal(nonce, []byte("secret payload"), []byte("ad"))
	require.NoError(t, err)

	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01
		_, err := enc.Open(nonce, tampered, []byte("ad"))
		require.ErrorIs(t, err, ErrAuthFailed, "byte %d", i)
	}

	_, err = enc.Open(nonce, ct, []byte("other"))
	assert.ErrorIs(t, err, ErrAuthFailed)

	otherKey, err := GenerateRandom(KeySize)
	require.NoError(t, err)
	_, err = NewEncryptor(otherKey).Open(nonce, ct, []byte("ad"))
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = enc.Open(nonce, ct[:TagSize-1], []byte("ad"))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNonceUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n, err := NewNonce()
		require.NoError(t, err)
		require.Len(t, n, NonceSize)
		require.False(t, seen[string(n)], "nonce repeated")
		seen[string(n)] = true
	}
}

func TestSealRejectsBadNonce(t *testing.T) {
	enc := NewEncryptor(make([]byte, KeySize))
	_, err := enc.Seal([]byte("short"), []byte("x"), nil)
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestDestroy(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	enc := NewEncryptor(key)
	enc.Destroy()
	assert.Equal(t, make([]byte, KeySize), key)
}
