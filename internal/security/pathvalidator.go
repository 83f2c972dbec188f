package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrExists       = fs.ErrExist
)

// PathValidator confines file operations to one directory using os.Root.
// Plaintext exports are written through it so a crafted name cannot place
// the file anywhere else.
type PathValidator struct {
	root    *os.Root
	dirPath string
}

// New creates a PathValidator for the directory at the given path.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory root: %w", err)
	}

	return &PathValidator{
		root:    root,
		dirPath: absPath,
	}, nil
}

// ForFile splits path into its directory and base name and returns a
// validator rooted at the directory together with the name to use in it.
func ForFile(path string) (*PathValidator, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	pv, err := New(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return pv, filepath.Base(abs), nil
}

// Close releases resources held by the PathValidator.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute directory the validator is confined to.
func (pv *PathValidator) Dir() string {
	return pv.dirPath
}

// ValidateAndNormalize validates a user-provided path and returns a normalized
// relative path. It rejects:
// - Empty paths
// - Absolute paths
// - Paths that escape the directory (using ..)
// - Windows reserved names (CON, NUL, etc.)
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	cleanPath := filepath.Clean(userPath)
	absPath := filepath.Join(pv.dirPath, cleanPath)

	relPath, err := filepath.Rel(pv.dirPath, absPath)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(relPath), nil
}

// CreateFileInRoot creates a new file within the directory. It fails with an
// error matching ErrExists if the file is already there, and never follows
// a path out of the root.
func (pv *PathValidator) CreateFileInRoot(path string, perm os.FileMode) (*os.File, error) {
	platformPath := filepath.FromSlash(path)

	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := pv.root.OpenFile(platformPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, err
	}
	// The umask may have narrowed perm; make it exact.
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// RemoveInRoot removes a file within the directory.
func (pv *PathValidator) RemoveInRoot(path string) error {
	platformPath := filepath.FromSlash(path)

	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Remove(platformPath)
}

// ReadFileInRoot safely reads a file within the directory using os.Root.
func (pv *PathValidator) ReadFileInRoot(path string) ([]byte, error) {
	platformPath := filepath.FromSlash(path)

	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	return pv.root.ReadFile(platformPath)
}
