package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	Magic           = "LKPV"
	VersionPBKDF2   = 1
	VersionArgon2id = 2
	SaltSize        = 16
	NonceSize       = 12
	HeaderSize      = len(Magic) + 1 + SaltSize + 4 // authenticated header
	prefixSize      = HeaderSize + NonceSize + 4
	MaxCiphertext   = 64 << 20
	FilePermSecure  = 0600 // File: owner rw only
)

var (
	ErrNotFound = errors.New("vault file not found")
	ErrFormat   = errors.New("unrecognized vault format")
)

// rename is replaced in tests to simulate a crash before the point of no return.
var rename = os.Rename

// Container is the parsed form of a vault file.
type Container struct {
	Version    uint8
	Salt       []byte
	KDFCost    uint32
	Nonce      []byte
	Ciphertext []byte
}

// SupportedVersion reports whether v is a format version this build can read.
func SupportedVersion(v uint8) bool {
	return v == VersionPBKDF2 || v == VersionArgon2id
}

// Header returns the magic, version, salt and cost fields as they appear on
// disk. The engine binds these bytes into the ciphertext's authentication tag.
func (c *Container) Header() []byte {
	h := make([]byte, 0, HeaderSize)
	h = append(h, Magic...)
	h = append(h, c.Version)
	h = append(h, c.Salt...)
	h = binary.BigEndian.AppendUint32(h, c.KDFCost)
	return h
}

func (c *Container) validate() error {
	if !SupportedVersion(c.Version) {
		return fmt.Errorf("%w: version %d", ErrFormat, c.Version)
	}
	if len(c.Salt) != SaltSize {
		return fmt.Errorf("%w: salt must be %d bytes", ErrFormat, SaltSize)
	}
	if len(c.Nonce) != NonceSize {
		return fmt.Errorf("%w: nonce must be %d bytes", ErrFormat, NonceSize)
	}
	if len(c.Ciphertext) > MaxCiphertext {
		return fmt.Errorf("%w: ciphertext too large", ErrFormat)
	}
	return nil
}

// MarshalBinary serializes the container into its on-disk form.
func (c *Container) MarshalBinary() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	b := make([]byte, 0, prefixSize+len(c.Ciphertext))
	b = append(b, c.Header()...)
	b = append(b, c.Nonce...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(c.Ciphertext)))
	b = append(b, c.Ciphertext...)
	return b, nil
}

// UnmarshalBinary parses an on-disk container. Truncated input, trailing
// bytes, a bad magic or an unknown version all yield ErrFormat.
func (c *Container) UnmarshalBinary(data []byte) error {
	if len(data) < prefixSize {
		return fmt.Errorf("%w: truncated header", ErrFormat)
	}
	if !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return fmt.Errorf("%w: bad magic", ErrFormat)
	}

	off := len(Magic)
	version := data[off]
	if !SupportedVersion(version) {
		return fmt.Errorf("%w: version %d", ErrFormat, version)
	}
	off++

	salt := data[off : off+SaltSize]
	off += SaltSize
	cost := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	nonce := data[off : off+NonceSize]
	off += NonceSize
	n := binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	if n > MaxCiphertext || uint64(len(data)-off) != uint64(n) {
		return fmt.Errorf("%w: ciphertext length %d does not match file", ErrFormat, n)
	}

	c.Version = version
	c.Salt = append([]byte(nil), salt...)
	c.KDFCost = cost
	c.Nonce = append([]byte(nil), nonce...)
	c.Ciphertext = append([]byte(nil), data[off:]...)
	return nil
}

// Load reads and parses the container at path.
func Load(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	c := &Container{}
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Write atomically replaces the file at path with the serialized container.
// The data is written to a temporary file in the same directory, synced, and
// renamed over the target. On failure before the rename the target is left
// untouched and the temporary file is removed.
func Write(path string, c *Container) (err error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(FilePermSecure); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close vault: %w", err)
	}

	// Point of no return
	if err := rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace vault: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry so the rename survives power loss.
// Not all platforms support syncing a directory; failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
