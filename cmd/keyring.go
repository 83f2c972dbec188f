package cmd

import (
	"fmt"

	"github.com/illarion/lockpass/internal/core"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the passphrase stored in the OS keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Verify the passphrase and store it in the keyring",
			Args:  cobra.NoArgs,
			RunE:  runKeyringSave,
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored passphrase",
			Args:  cobra.NoArgs,
			RunE:  runKeyringDelete,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a passphrase is stored",
			Args:  cobra.NoArgs,
			RunE:  runKeyringStatus,
		},
	)

	RootCmd.AddCommand(cmd)
}

// runKeyringSave verifies the passphrase by opening the vault, then stores it.
func runKeyringSave(cmd *cobra.Command, _ []string) error {
	path, err := cfg.VaultPath()
	if err != nil {
		return err
	}

	password := core.GetPasswordFromEnv()
	if password == nil {
		password, err = core.ReadPassword("Enter passphrase: ")
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	s := newSession(path)
	defer s.Close()
	if err := s.Open(cmd.Context(), path, password); err != nil {
		return err
	}
	info, err := s.Info()
	if err != nil {
		return err
	}

	if err := keyring.SavePassword(info.VaultID, string(password)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	fmt.Println("Passphrase saved to keyring")
	return nil
}

func runKeyringDelete(*cobra.Command, []string) error {
	id, err := configuredVaultID()
	if err != nil {
		return err
	}
	if !keyring.HasPassword(id) {
		fmt.Println("No passphrase stored in keyring")
		return nil
	}
	if err := keyring.DeletePassword(id); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	fmt.Println("Passphrase removed from keyring")
	return nil
}

func runKeyringStatus(*cobra.Command, []string) error {
	id, err := configuredVaultID()
	if err != nil {
		return err
	}
	if keyring.HasPassword(id) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
	return nil
}

func configuredVaultID() (string, error) {
	path, err := cfg.VaultPath()
	if err != nil {
		return "", err
	}
	return core.VaultID(path)
}
