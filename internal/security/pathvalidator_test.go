package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	// Create a temporary directory for testing
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name      string
		input     string
		shouldErr bool
		errType   error
	}{
		// Valid paths
		{"simple file", "test.txt", false, nil},
		{"file in subdirectory", "subdir/test.txt", false, nil},
		{"nested subdirectory", "a/b/c/test.txt", false, nil},
		{"hidden file", ".env", false, nil},
		{"hidden in subdirectory", "config/.env", false, nil},

		// Path traversal attempts
		{"parent directory", "../test.txt", true, ErrPathEscapes},
		{"parent then child", "../sibling/test.txt", true, ErrPathEscapes},
		{"nested parent", "a/../../test.txt", true, ErrPathEscapes},
		{"multiple parents", "../../etc/passwd", true, ErrPathEscapes},
		{"absolute path unix", "/etc/passwd", true, ErrAbsolutePath},

		// Empty path
		{"empty path", "", true, ErrEmptyPath},

		// Clean should normalize these
		{"dot slash", "./test.txt", false, nil},
		{"redundant slashes", "a//b///c/test.txt", false, nil},
		{"dot segments", "a/./b/./test.txt", false, nil},
	}

	// Windows-specific tests
	if runtime.GOOS == "windows" {
		tests = append(tests, []struct {
			name      string
			input     string
			shouldErr bool
			errType   error
		}{
			{"absolute path windows", "C:\\Windows\\System32\\config", true, ErrAbsolutePath},
			{"unc path", "\\\\server\\share\\file", true, ErrPathEscapes},
		}...)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateAndNormalize(tt.input)

			if tt.shouldErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got none", tt.input)
					return
				}
				if tt.errType != nil && !strings.Contains(err.Error(), tt.errType.Error()) {
					t.Errorf("Expected error type %v, got %v", tt.errType, err)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for input %q: %v", tt.input, err)
					return
				}

				// Verify result uses forward slashes
				if strings.Contains(result, "\\") {
					t.Errorf("Result should use forward slashes, got %q", result)
				}

				// Verify result doesn't start with ..
				if strings.HasPrefix(result, "..") {
					t.Errorf("Result should not start with .., got %q", result)
				}

				// Verify result is not absolute
				if filepath.IsAbs(result) {
					t.Errorf("Result should not be absolute, got %q", result)
				}
			}
		})
	}
}

func TestPathValidator_ReadFileInRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a test file
	testFile := filepath.Join(tmpDir, "test.txt")
	testData := []byte("test content")
	if err := os.WriteFile(testFile, testData, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Create a subdirectory with a file
	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	subdirFile := filepath.Join(subdir, "nested.txt")
	if err := os.WriteFile(subdirFile, []byte("nested"), 0644); err != nil {
		t.Fatalf("Failed to create nested file: %v", err)
	}

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name      string
		path      string
		expected  string
		shouldErr bool
	}{
		{"valid file", "test.txt", "test content", false},
		{"nested file", "subdir/nested.txt", "nested", false},
		{"nonexistent file", "missing.txt", "", true},
		{"path traversal", "../outside.txt", "", true},
		{"absolute path", "/etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := validator.ReadFileInRoot(tt.path)

			if tt.shouldErr {
				if err == nil {
					t.Errorf("Expected error when reading %q, got none", tt.path)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error reading %q: %v", tt.path, err)
					return
				}
				if string(data) != tt.expected {
					t.Errorf("Content mismatch: got %q, want %q", data, tt.expected)
				}
			}
		})
	}
}

func TestPathValidator_CreateFileInRoot(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	f, err := validator.CreateFileInRoot("export.jsonl", 0600)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if _, err := f.Write([]byte("data\n")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	f.Close()

	info, err := os.Stat(filepath.Join(tmpDir, "export.jsonl"))
	if err != nil {
		t.Fatalf("File not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %o", info.Mode().Perm())
	}

	// Existing files are never overwritten
	if _, err := validator.CreateFileInRoot("export.jsonl", 0600); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(tmpDir, "export.jsonl"))
	if string(data) != "data\n" {
		t.Errorf("Existing file was modified: %q", data)
	}

	for _, bad := range []string{"", "../escape.jsonl", "/tmp/abs.jsonl"} {
		if _, err := validator.CreateFileInRoot(bad, 0600); err == nil {
			t.Errorf("Expected error for %q, got none", bad)
		}
	}
}

func TestPathValidator_RemoveInRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "partial.jsonl"), []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if err := validator.RemoveInRoot("partial.jsonl"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "partial.jsonl")); !os.IsNotExist(err) {
		t.Errorf("File still exists after remove")
	}
	if err := validator.RemoveInRoot("../partial.jsonl"); err == nil {
		t.Error("Expected error removing outside root")
	}
}

func TestForFile(t *testing.T) {
	tmpDir := t.TempDir()

	validator, name, err := ForFile(filepath.Join(tmpDir, "backup.jsonl"))
	if err != nil {
		t.Fatalf("ForFile failed: %v", err)
	}
	defer validator.Close()

	if name != "backup.jsonl" {
		t.Errorf("Expected name backup.jsonl, got %q", name)
	}
	want, _ := filepath.Abs(tmpDir)
	if validator.Dir() != want {
		t.Errorf("Expected dir %q, got %q", want, validator.Dir())
	}

	if _, _, err := ForFile(filepath.Join(tmpDir, "missing", "backup.jsonl")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

// Test that os.Root actually prevents escaping
func TestPathValidator_ActualEscapePrevention(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a file OUTSIDE the root to try to overwrite
	outsideDir := filepath.Dir(tmpDir)
	targetFile := filepath.Join(outsideDir, "should_not_be_written.txt")

	defer os.Remove(targetFile)

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	// Symlink inside the root pointing outside of it
	link := filepath.Join(tmpDir, "link")
	if err := os.Symlink(outsideDir, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	f, err := validator.CreateFileInRoot("link/should_not_be_written.txt", 0600)
	if err == nil {
		f.Close()
		t.Error("Expected error when trying to write through symlink, got none")
	}

	if _, statErr := os.Stat(targetFile); statErr == nil {
		t.Error("File was created outside root - security breach!")
	}
}
