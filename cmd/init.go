package cmd

import (
	"fmt"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new empty vault",
		Long: `Create a new empty vault at the configured path.

The passphrase is read from LOCKPASS_PASSWORD or prompted twice. It is not
stored anywhere unless --keyring is given.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	cmd.Flags().String("kdf", "", "Key derivation: pbkdf2 (default) or argon2id")
	cmd.Flags().Bool("keyring", false, "Save the passphrase in the OS keyring")

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	if kdf, _ := cmd.Flags().GetString("kdf"); kdf != "" {
		params, err := config.ParseKDF(kdf)
		if err != nil {
			return usageError{err.Error()}
		}
		cfg.KDF = params
	}

	path, err := cfg.VaultPath()
	if err != nil {
		return err
	}

	password, err := GetPasswordForInit("New passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	s := newSession(path)
	defer s.Close()
	if err := s.Create(cmd.Context(), path, password); err != nil {
		return err
	}
	fmt.Printf("Initialized vault %s (%s)\n", path, cfg.KDF.Algorithm)

	if save, _ := cmd.Flags().GetBool("keyring"); save {
		info, err := s.Info()
		if err != nil {
			return err
		}
		saveToKeyring(info.VaultID, password)
	}
	return nil
}

// saveToKeyring stores password for the vault, reporting rather than
// failing when no keyring is available.
func saveToKeyring(vaultID string, password []byte) {
	if err := keyring.SavePassword(vaultID, string(password)); err != nil {
		fmt.Printf("warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Passphrase saved to keyring")
}
