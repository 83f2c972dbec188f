// Package config resolves lockpass settings from environment variables and
// defaults. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/illarion/lockpass/internal/crypto"
)

// Environment variables
const (
	EnvVault    = "LOCKPASS_VAULT"
	EnvPassword = "LOCKPASS_PASSWORD"
	EnvLogLevel = "LOCKPASS_LOG_LEVEL"
	EnvLogFile  = "LOCKPASS_LOG_FILE"
	EnvKDF      = "LOCKPASS_KDF"
)

const (
	appDir        = "lockpass"
	defaultVault  = "pass.db"
	logDir        = "logs"
	dirPermSecure = 0700
)

// Config holds resolved settings.
type Config struct {
	Vault    string
	LogLevel string
	// LogFile is a file, or a directory (trailing separator) for daily
	// files. Empty logs to stderr.
	LogFile string
	KDF     crypto.KDFParams
}

// Load reads the environment over built-in defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		KDF:      crypto.DefaultParams(crypto.PBKDF2SHA256),
	}

	dir, dirErr := os.UserConfigDir()
	if dirErr == nil {
		cfg.Vault = filepath.Join(dir, appDir, defaultVault)
		cfg.LogFile = filepath.Join(dir, appDir, logDir) + string(filepath.Separator)
	}

	if v := os.Getenv(EnvVault); v != "" {
		cfg.Vault = v
	} else if dirErr != nil {
		return nil, fmt.Errorf("locate config dir: %w", dirErr)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.LogFile = v
	}

	if v := os.Getenv(EnvKDF); v != "" {
		params, err := ParseKDF(v)
		if err != nil {
			return nil, err
		}
		cfg.KDF = params
	}

	return cfg, nil
}

// ParseKDF maps a KDF name to its default parameters.
func ParseKDF(name string) (crypto.KDFParams, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pbkdf2", "pbkdf2-sha256":
		return crypto.DefaultParams(crypto.PBKDF2SHA256), nil
	case "argon2id", "argon2":
		return crypto.DefaultParams(crypto.Argon2id), nil
	default:
		return crypto.KDFParams{}, fmt.Errorf("unknown kdf %q (want pbkdf2 or argon2id)", name)
	}
}

// VaultPath returns the vault location, creating its parent directory with
// owner-only permissions when missing.
func (c *Config) VaultPath() (string, error) {
	path, err := filepath.Abs(c.Vault)
	if err != nil {
		return "", fmt.Errorf("resolve vault path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermSecure); err != nil {
		return "", fmt.Errorf("create vault directory: %w", err)
	}
	return path, nil
}

// JournalPath is the audit journal stored next to the vault.
func JournalPath(vault string) string {
	return vault + ".journal"
}
