package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvVault, EnvPassword, EnvLogLevel, EnvKDF} {
		t.Setenv(k, "")
	}
	t.Setenv(EnvLogFile, "")
	os.Unsetenv(EnvLogFile)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, crypto.PBKDF2SHA256, cfg.KDF.Algorithm)
	assert.Equal(t, filepath.Join(home, "lockpass", "pass.db"), cfg.Vault)
	assert.Equal(t, filepath.Join(home, "lockpass", "logs")+string(filepath.Separator), cfg.LogFile)
}

func TestLoadEmptyLogFileMeansStderr(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvVault, "x.db")
	t.Setenv(EnvLogFile, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LogFile)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	vault := filepath.Join(t.TempDir(), "v.db")
	t.Setenv(EnvVault, vault)
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFile, "/tmp/lockpass.log")
	t.Setenv(EnvKDF, "argon2id")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, vault, cfg.Vault)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/lockpass.log", cfg.LogFile)
	assert.Equal(t, crypto.DefaultParams(crypto.Argon2id), cfg.KDF)
}

func TestLoadBadKDF(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvVault, "x.db")
	t.Setenv(EnvKDF, "scrypt")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseKDF(t *testing.T) {
	tests := []struct {
		in      string
		want    crypto.Algorithm
		wantErr bool
	}{
		{"pbkdf2", crypto.PBKDF2SHA256, false},
		{" PBKDF2 ", crypto.PBKDF2SHA256, false},
		{"argon2id", crypto.Argon2id, false},
		{"Argon2", crypto.Argon2id, false},
		{"bcrypt", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKDF(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Algorithm)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestVaultPathCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "lockpass")
	cfg := &Config{Vault: filepath.Join(dir, "pass.db")}

	path, err := cfg.VaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pass.db"), path)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestJournalPath(t *testing.T) {
	assert.Equal(t, "/a/pass.db.journal", JournalPath("/a/pass.db"))
}
